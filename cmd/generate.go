package cmd

import (
	"fmt"

	"chime/library"
	"chime/tts"

	"github.com/spf13/cobra"
)

var generateLanguage string

// generateCmd synthesizes spoken clips for scheduling
var generateCmd = &cobra.Command{
	Use:   "generate <text>...",
	Short: "Generate spoken clips into the timed sounds directory",
	Long: `Generate an MP3 clip for each text argument with Google text-to-speech and
write it to the timed sounds directory. The file name is derived from the text,
for example "Il est midi" becomes il_est_midi.mp3, and can be used as a
scheduled sound.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		if err := library.NewOS().EnsureDir(cfg.Sounds.TimedDir); err != nil {
			return err
		}

		gen := tts.NewGenerator(cfg.Sounds.TimedDir, generateLanguage)
		for _, text := range args {
			path, err := gen.Generate(text)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", path)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateLanguage, "lang", "l", tts.DefaultLanguage, "speech language")
	rootCmd.AddCommand(generateCmd)
}
