// Package service wires configuration, sound directories, the playback
// engine and the scheduler into the running process.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"chime/config"
	"chime/library"
	"chime/notify"
	"chime/playback"
	"chime/schedule"
	"chime/scheduler"
)

// Service represents the running application
type Service struct {
	config  *config.Config
	library *library.Library
	logger  *slog.Logger

	engine    playback.Engine
	newEngine func(cfg *config.Config) (playback.Engine, error)
	clock     scheduler.Clock
	webhook   *notify.Webhook
	scheduler *scheduler.Scheduler

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	errorChan chan error
}

// Option customizes a Service
type Option func(s *Service)

// WithLibrary sets the library used to list sound directories
func WithLibrary(lib *library.Library) Option {
	return func(s *Service) { s.library = lib }
}

// WithEngine replaces the configured playback engine
func WithEngine(e playback.Engine) Option {
	return func(s *Service) {
		s.newEngine = func(*config.Config) (playback.Engine, error) { return e, nil }
	}
}

// WithClock sets the scheduler clock
func WithClock(c scheduler.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// New creates a new Service instance
func New(cfg *config.Config, opts ...Option) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Service{
		config:    cfg,
		library:   library.NewOS(),
		logger:    slog.With("component", "service"),
		newEngine: NewEngine,
		ctx:       ctx,
		cancel:    cancel,
		errorChan: make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewEngine creates the playback engine selected by the configuration
func NewEngine(cfg *config.Config) (playback.Engine, error) {
	var (
		engine playback.Engine
		err    error
	)
	if cfg.Playback.DryRun {
		engine = playback.NewDryRunEngine()
	} else {
		engine, err = playback.New(playback.Options{
			Backend:    cfg.Playback.Backend,
			SampleRate: cfg.Playback.SampleRate,
			Preload:    cfg.Playback.Preload,
			Command:    cfg.Playback.Command,
		})
		if err != nil {
			return nil, err
		}
	}

	if cfg.Playback.Mode == config.ModeAsync {
		w := playback.NewWorker(engine, cfg.Playback.QueueSize)
		w.Start()
		return w, nil
	}
	return engine, nil
}

// LoadSchedule ensures the sound directories exist and builds the pending
// one-shot triggers and the general pool. Only a failure to create the
// directories is returned; everything else is logged and recovered.
func LoadSchedule(cfg *config.Config, lib *library.Library, logger *slog.Logger) (*schedule.Pending, schedule.Pool, error) {
	for _, dir := range []string{cfg.Sounds.GeneralDir, cfg.Sounds.TimedDir} {
		if err := lib.EnsureDir(dir); err != nil {
			return nil, schedule.Pool{}, fmt.Errorf("failed to prepare sound directory: %w", err)
		}
	}

	sounds, err := lib.List(cfg.Sounds.GeneralDir)
	if err != nil {
		logger.Error("Failed to read general sounds, pool is empty",
			slog.String("dir", cfg.Sounds.GeneralDir),
			slog.Any("error", err))
		sounds = nil
	}

	pending, errs := schedule.Build(cfg.ScheduledSounds, cfg.Sounds.TimedDir)
	for _, err := range errs {
		logger.Warn("Skipping scheduled sound", slog.Any("error", err))
	}

	return pending, schedule.NewPool(sounds), nil
}

// Initialize sets up the service components
func (s *Service) Initialize() error {
	s.logger.Info("Initializing...")

	pending, pool, err := LoadSchedule(s.config, s.library, s.logger)
	if err != nil {
		return err
	}

	engine, err := s.newEngine(s.config)
	if err != nil {
		return fmt.Errorf("failed to create playback engine: %w", err)
	}
	s.engine = engine

	var reporter scheduler.Reporter
	if url := s.config.Discord.WebhookURL; url != "" {
		wh, err := notify.NewWebhook(url)
		if err != nil {
			s.logger.Error("Discord notifications disabled", slog.Any("error", err))
		} else {
			s.webhook = wh
			reporter = wh
		}
	}

	s.scheduler = scheduler.New(scheduler.Options{
		Interval: s.config.IntervalDuration(),
		GainDB:   s.config.Volume,
		Pending:  pending,
		Pool:     pool,
		Engine:   engine,
		Clock:    s.clock,
		Reporter: reporter,
		Logger:   slog.With("component", "scheduler"),
	})

	s.logger.Info("Initialized",
		slog.String("backend", s.config.Playback.Backend),
		slog.String("mode", s.config.Playback.Mode),
		slog.Float64("volume_db", s.config.Volume))
	return nil
}

// Start runs the scheduler loop in the background
func (s *Service) Start() error {
	if s.scheduler == nil {
		return errors.New("service is not initialized")
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.scheduler.Run(s.ctx); err != nil {
			select {
			case s.errorChan <- err:
			default:
			}
		}
	}()

	s.logger.Info("Started")
	return nil
}

// Stop cancels the loop, waits for it and releases the engine
func (s *Service) Stop() error {
	s.logger.Info("Stopping...")
	s.cancel()
	s.wg.Wait()

	if s.webhook != nil {
		s.webhook.Close()
	}

	var err error
	if s.engine != nil {
		err = playback.Close(s.engine)
	}

	s.logger.Info("Stopped")
	return err
}

// Error returns the error channel for monitoring errors
func (s *Service) Error() <-chan error {
	return s.errorChan
}

// Snapshot returns the current schedule state of the running loop
func (s *Service) Snapshot(ctx context.Context) (schedule.Snapshot, error) {
	if s.scheduler == nil {
		return schedule.Snapshot{}, errors.New("service is not initialized")
	}
	return s.scheduler.Snapshot(ctx)
}
