package cmd

import (
	"fmt"
	"log/slog"

	"chime/config"
	"chime/playback"
	"chime/service"

	"github.com/spf13/cobra"
)

// playCmd plays a single file through the configured engine
var playCmd = &cobra.Command{
	Use:   "play <file>",
	Short: "Play a sound file once",
	Long:  "Play a sound file through the configured playback backend and volume, to check the audio setup.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		// A single clip is always played synchronously
		cfg.Playback.Mode = config.ModeSync

		engine, err := service.NewEngine(cfg)
		if err != nil {
			return fmt.Errorf("failed to create playback engine: %w", err)
		}
		defer playback.Close(engine)

		slog.Info("Playing", slog.String("file", args[0]), slog.Float64("volume_db", cfg.Volume))
		return engine.Play(args[0], cfg.Volume)
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
}
