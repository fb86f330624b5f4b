package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"chime/library"

	"github.com/spf13/cobra"
)

var (
	// Version information, set during build with -ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// versionCmd prints build details and the recognized sound formats
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print the chime version, build details and the sound file formats it can play.",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func printVersion(cmd *cobra.Command) {
	version := Version
	if version == "dev" {
		// go install records the module version
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "chime %s (%s/%s, %s)\n", version, runtime.GOOS, runtime.GOARCH, runtime.Version())
	fmt.Fprintf(out, "Git commit: %s\n", GitCommit)
	fmt.Fprintf(out, "Built: %s\n", BuildDate)
	fmt.Fprintf(out, "Formats: %s\n", strings.Join(library.Extensions, " "))
}
