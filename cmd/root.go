package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"chime/config"
	"chime/logger"
	"chime/service"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chime",
	Short: "Play sounds on an interval and at scheduled times of day",
	Long: `Chime plays a random clip from the general sounds directory every
interval, and plays specific clips from the timed sounds directory once at
configured times of day.

Sounds are read from sounds/general and sounds/timed by default; both
directories are created when missing.`,
	SilenceUsage: true,
	RunE:         runServer,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.{json,yaml})")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output, logs every tick")
	rootCmd.PersistentFlags().String("general-dir", config.DefaultGeneralDir, "directory of sounds played on the interval")
	rootCmd.PersistentFlags().String("timed-dir", config.DefaultTimedDir, "directory of sounds played at scheduled times")
	rootCmd.PersistentFlags().String("backend", config.DefaultBackend, "playback backend (speaker, command)")
	rootCmd.PersistentFlags().Bool("dry-run", false, "log sounds instead of playing them")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	// Local flags for the server command
	rootCmd.Flags().IntP("interval", "i", config.DefaultInterval, "seconds between two general sounds")
	rootCmd.Flags().Float64("volume", config.DefaultVolume, "gain adjustment in dB")
	rootCmd.Flags().String("mode", config.DefaultMode, "playback mode (sync, async)")

	// Bind flags to viper
	viper.BindPFlag("sounds.general_dir", rootCmd.PersistentFlags().Lookup("general-dir"))
	viper.BindPFlag("sounds.timed_dir", rootCmd.PersistentFlags().Lookup("timed-dir"))
	viper.BindPFlag("playback.backend", rootCmd.PersistentFlags().Lookup("backend"))
	viper.BindPFlag("playback.dry_run", rootCmd.PersistentFlags().Lookup("dry-run"))
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("interval", rootCmd.Flags().Lookup("interval"))
	viper.BindPFlag("volume", rootCmd.Flags().Lookup("volume"))
	viper.BindPFlag("playback.mode", rootCmd.Flags().Lookup("mode"))
}

// initConfig reads in config file and ENV variables
func initConfig() {
	config.Setup(viper.GetViper(), cfgFile)

	if verbose {
		viper.Set("logging.level", "debug")
	}
}

// loadConfig sets up logging from flags and environment, then loads the
// configuration, falling back to defaults on any error
func loadConfig() *config.Config {
	setupLogging(viper.GetString("logging.level"), viper.GetString("logging.format"))

	cfg := config.Load(viper.GetViper())

	setupLogging(cfg.Logging.Level, cfg.Logging.Format)
	return cfg
}

// setupLogging installs the global logger, using text output when the
// format is unknown
func setupLogging(level, format string) {
	if err := logger.Setup(level, format); err != nil {
		logger.Setup(level, config.DefaultLogFormat)
		slog.Warn("Invalid log format, using default",
			slog.String("format", format),
			slog.String("default", config.DefaultLogFormat))
	}
}

// runServer starts the main application
func runServer(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	s := service.New(cfg)
	if err := s.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	if err := s.Start(); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	// Setup graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal or error
	select {
	case sig := <-signalChan:
		fmt.Printf("\nReceived %s, shutting down gracefully...\n", sig)
	case err := <-s.Error():
		fmt.Printf("Error occurred: %v\n", err)
	}

	if err := s.Stop(); err != nil {
		return fmt.Errorf("failed to stop gracefully: %w", err)
	}

	return nil
}
