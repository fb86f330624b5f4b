package cmd

import (
	"fmt"
	"log/slog"
	"sort"

	"chime/config"
	"chime/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  "Commands for managing and validating chime configuration.",
}

// configValidateCmd validates the current configuration
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the current configuration file and environment variables.

Unlike the main command, which falls back to defaults, any problem is reported
as an error.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Setup("info", "text"); err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}

		cfg, err := config.Read(viper.GetViper())
		if err != nil {
			slog.Error("Configuration validation failed", slog.Any("error", err))
			return err
		}

		if invalid := invalidTimes(cfg); len(invalid) > 0 {
			for _, err := range invalid {
				slog.Error("Configuration validation failed", slog.Any("error", err))
			}
			return fmt.Errorf("%d invalid scheduled sound(s)", len(invalid))
		}

		slog.Info("Configuration is valid", slog.String("file", viper.ConfigFileUsed()))
		fmt.Fprintln(cmd.OutOrStdout(), "✅ Configuration is valid")
		return nil
	},
}

// configShowCmd shows the current configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the configuration values in effect, after defaults and fallbacks.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		printConfig(cmd, cfg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}

func printConfig(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Current Configuration:")
	fmt.Fprintf(out, "  Interval: %ds\n", cfg.Interval)
	fmt.Fprintf(out, "  Volume: %+.2f dB\n", cfg.Volume)
	fmt.Fprintf(out, "  Sounds:\n")
	fmt.Fprintf(out, "    General: %s\n", cfg.Sounds.GeneralDir)
	fmt.Fprintf(out, "    Timed: %s\n", cfg.Sounds.TimedDir)
	fmt.Fprintf(out, "  Scheduled sounds:\n")

	times := make([]string, 0, len(cfg.ScheduledSounds))
	for t := range cfg.ScheduledSounds {
		times = append(times, t)
	}
	sort.Strings(times)
	for _, t := range times {
		fmt.Fprintf(out, "    %s: %s\n", t, cfg.ScheduledSounds[t])
	}

	fmt.Fprintf(out, "  Playback:\n")
	fmt.Fprintf(out, "    Backend: %s\n", cfg.Playback.Backend)
	fmt.Fprintf(out, "    Mode: %s\n", cfg.Playback.Mode)
	fmt.Fprintf(out, "    Sample rate: %d\n", cfg.Playback.SampleRate)
	fmt.Fprintf(out, "    Preload: %t\n", cfg.Playback.Preload)
	fmt.Fprintf(out, "    Command: %s\n", cfg.Playback.Command)
	fmt.Fprintf(out, "  Logging:\n")
	fmt.Fprintf(out, "    Level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "    Format: %s\n", cfg.Logging.Format)
	fmt.Fprintf(out, "  Discord:\n")
	fmt.Fprintf(out, "    Webhook URL: %s\n", maskURL(cfg.Discord.WebhookURL))
}

// maskURL masks a webhook URL for display
func maskURL(url string) string {
	if url == "" {
		return "(disabled)"
	}
	if len(url) <= 40 {
		return "***"
	}
	return url[:40] + "***"
}
