package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults
const (
	DefaultInterval   = 60
	DefaultVolume     = 0.5
	DefaultGeneralDir = "sounds/general"
	DefaultTimedDir   = "sounds/timed"
	DefaultBackend    = "speaker"
	DefaultMode       = "sync"
	DefaultSampleRate = 44100
	DefaultCommand    = "ffplay"
	DefaultQueueSize  = 4
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
)

// Playback modes
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// Config holds all configuration for the application
type Config struct {
	// Seconds between two periodic sounds
	Interval int `mapstructure:"interval"`

	// Gain adjustment in dB relative to the source clip
	Volume float64 `mapstructure:"volume"`

	// "HH:MM" to file name in the timed sounds directory
	ScheduledSounds map[string]string `mapstructure:"scheduled_sounds"`

	Sounds   SoundsConfig   `mapstructure:"sounds"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Discord  DiscordConfig  `mapstructure:"discord"`
}

// SoundsConfig holds the sound directories
type SoundsConfig struct {
	GeneralDir string `mapstructure:"general_dir"`
	TimedDir   string `mapstructure:"timed_dir"`
}

// PlaybackConfig holds playback engine configuration
type PlaybackConfig struct {
	Backend    string `mapstructure:"backend"` // speaker or command
	Mode       string `mapstructure:"mode"`    // sync or async
	SampleRate int    `mapstructure:"sample_rate"`
	Preload    bool   `mapstructure:"preload"`
	Command    string `mapstructure:"command"`
	QueueSize  int    `mapstructure:"queue_size"`
	DryRun     bool   `mapstructure:"dry_run"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// DiscordConfig holds the optional dispatch notification webhook
type DiscordConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// IntervalDuration returns the periodic interval as a duration
func (c *Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// Default returns the configuration used when none can be loaded
func Default() *Config {
	return &Config{
		Interval:        DefaultInterval,
		Volume:          DefaultVolume,
		ScheduledSounds: map[string]string{},
		Sounds: SoundsConfig{
			GeneralDir: DefaultGeneralDir,
			TimedDir:   DefaultTimedDir,
		},
		Playback: PlaybackConfig{
			Backend:    DefaultBackend,
			Mode:       DefaultMode,
			SampleRate: DefaultSampleRate,
			Command:    DefaultCommand,
			QueueSize:  DefaultQueueSize,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// SetDefaults registers the default of every key on v
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("interval", d.Interval)
	v.SetDefault("volume", d.Volume)
	v.SetDefault("scheduled_sounds", d.ScheduledSounds)
	v.SetDefault("sounds.general_dir", d.Sounds.GeneralDir)
	v.SetDefault("sounds.timed_dir", d.Sounds.TimedDir)
	v.SetDefault("playback.backend", d.Playback.Backend)
	v.SetDefault("playback.mode", d.Playback.Mode)
	v.SetDefault("playback.sample_rate", d.Playback.SampleRate)
	v.SetDefault("playback.preload", d.Playback.Preload)
	v.SetDefault("playback.command", d.Playback.Command)
	v.SetDefault("playback.queue_size", d.Playback.QueueSize)
	v.SetDefault("playback.dry_run", d.Playback.DryRun)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("discord.webhook_url", d.Discord.WebhookURL)
}

// Setup prepares v to look for the config file and CHIME_ environment
// variables. An explicit file overrides the search path.
func Setup(v *viper.Viper, file string) {
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.chime")
		v.AddConfigPath("/etc/chime")
	}

	v.SetEnvPrefix("CHIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Read loads the configuration strictly: a missing or malformed file and
// invalid values are reported as *ConfigError.
func Read(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		return nil, &ConfigError{Field: "file", Message: err.Error(), Err: err}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &ConfigError{Field: "file", Message: err.Error(), Err: err}
	}
	if config.ScheduledSounds == nil {
		config.ScheduledSounds = map[string]string{}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Load loads the configuration, recovering from every error. A missing or
// malformed file contributes nothing, so only defaults, environment and
// flags apply; invalid fields fall back to their defaults one by one.
func Load(v *viper.Viper) *Config {
	logger := slog.With("component", "config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logger.Warn("No config file found, using defaults")
		} else {
			logger.Error("Error loading configuration, using defaults", slog.Any("error", err))
		}
	} else {
		logger.Info("Using config file", slog.String("file", v.ConfigFileUsed()))
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		logger.Error("Error decoding configuration, using defaults", slog.Any("error", err))
		return Default()
	}

	for _, fixed := range config.Sanitize() {
		logger.Warn("Invalid configuration value, using default",
			slog.String("field", fixed.Field),
			slog.String("reason", fixed.Message))
	}
	return &config
}

// Sanitize replaces invalid fields with their defaults and returns one
// error per replaced field
func (c *Config) Sanitize() []*ConfigError {
	d := Default()
	var fixed []*ConfigError

	if c.Interval <= 0 {
		fixed = append(fixed, &ConfigError{Field: "interval", Message: fmt.Sprintf("must be positive, got %d", c.Interval)})
		c.Interval = d.Interval
	}
	if c.ScheduledSounds == nil {
		c.ScheduledSounds = map[string]string{}
	}
	if c.Sounds.GeneralDir == "" {
		fixed = append(fixed, &ConfigError{Field: "sounds.general_dir", Message: "must not be empty"})
		c.Sounds.GeneralDir = d.Sounds.GeneralDir
	}
	if c.Sounds.TimedDir == "" {
		fixed = append(fixed, &ConfigError{Field: "sounds.timed_dir", Message: "must not be empty"})
		c.Sounds.TimedDir = d.Sounds.TimedDir
	}
	if err := validBackend(c.Playback.Backend); err != nil {
		fixed = append(fixed, err)
		c.Playback.Backend = d.Playback.Backend
	}
	if err := validMode(c.Playback.Mode); err != nil {
		fixed = append(fixed, err)
		c.Playback.Mode = d.Playback.Mode
	}
	if c.Playback.SampleRate <= 0 {
		fixed = append(fixed, &ConfigError{Field: "playback.sample_rate", Message: fmt.Sprintf("must be positive, got %d", c.Playback.SampleRate)})
		c.Playback.SampleRate = d.Playback.SampleRate
	}
	if c.Playback.QueueSize <= 0 {
		fixed = append(fixed, &ConfigError{Field: "playback.queue_size", Message: fmt.Sprintf("must be positive, got %d", c.Playback.QueueSize)})
		c.Playback.QueueSize = d.Playback.QueueSize
	}
	if c.Playback.Command == "" {
		c.Playback.Command = d.Playback.Command
	}
	if err := validLogLevel(c.Logging.Level); err != nil {
		fixed = append(fixed, err)
		c.Logging.Level = d.Logging.Level
	}
	if err := validLogFormat(c.Logging.Format); err != nil {
		fixed = append(fixed, err)
		c.Logging.Format = d.Logging.Format
	}

	return fixed
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return &ConfigError{Field: "interval", Message: fmt.Sprintf("must be positive, got %d", c.Interval)}
	}
	if c.Sounds.GeneralDir == "" {
		return &ConfigError{Field: "sounds.general_dir", Message: "must not be empty"}
	}
	if c.Sounds.TimedDir == "" {
		return &ConfigError{Field: "sounds.timed_dir", Message: "must not be empty"}
	}
	if err := validBackend(c.Playback.Backend); err != nil {
		return err
	}
	if err := validMode(c.Playback.Mode); err != nil {
		return err
	}
	if c.Playback.SampleRate <= 0 {
		return &ConfigError{Field: "playback.sample_rate", Message: "must be positive"}
	}
	if c.Playback.QueueSize <= 0 {
		return &ConfigError{Field: "playback.queue_size", Message: "must be positive"}
	}
	if err := validLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if err := validLogFormat(c.Logging.Format); err != nil {
		return err
	}
	return nil
}

func validBackend(b string) *ConfigError {
	switch b {
	case "speaker", "command":
		return nil
	}
	return &ConfigError{Field: "playback.backend", Message: fmt.Sprintf("unknown backend %q", b)}
}

func validMode(m string) *ConfigError {
	switch m {
	case ModeSync, ModeAsync:
		return nil
	}
	return &ConfigError{Field: "playback.mode", Message: fmt.Sprintf("unknown mode %q", m)}
}

func validLogLevel(l string) *ConfigError {
	switch strings.ToLower(l) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	}
	return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", l)}
}

func validLogFormat(f string) *ConfigError {
	switch strings.ToLower(f) {
	case "text", "json":
		return nil
	}
	return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", f)}
}

// ConfigError represents a configuration loading or validation error
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
