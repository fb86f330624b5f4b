// Package scheduler runs the polling loop that decides, once per tick,
// which sounds to play.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"chime/playback"
	"chime/schedule"
)

const (
	// TickInterval is the polling quantum between two evaluations
	TickInterval = time.Second

	// MatchWindow is how long after its time of day a one-shot trigger
	// remains eligible
	MatchWindow = 5 * time.Second
)

// ErrEngineStopped is returned by Run when an asynchronous engine stops
// delivering results while the loop is still running
var ErrEngineStopped = errors.New("playback engine stopped")

// Kind identifies the trigger behind a dispatch
type Kind string

const (
	KindOneShot  Kind = "one-shot"
	KindPeriodic Kind = "periodic"
)

// Dispatch describes one playback decision and its outcome
type Dispatch struct {
	Kind    Kind
	Sound   string
	At      time.Time
	Trigger schedule.TimeOfDay // one-shot only
	Err     error

	// Queued is set when the clip was handed to an asynchronous engine;
	// a later failure is reported as a separate Dispatch
	Queued bool
}

// Result is the outcome of a single tick
type Result struct {
	OneShot  *Dispatch
	Periodic *Dispatch

	// NoSound is set when the periodic trigger was due but the pool is empty
	NoSound bool
}

// Dispatches returns the dispatches made during the tick
func (r Result) Dispatches() []Dispatch {
	var out []Dispatch
	if r.OneShot != nil {
		out = append(out, *r.OneShot)
	}
	if r.Periodic != nil {
		out = append(out, *r.Periodic)
	}
	return out
}

// Reporter is told about every dispatch and playback failure
type Reporter interface {
	Report(d Dispatch)
}

// queue is an engine that plays clips in the background
type queue interface {
	Enqueue(ref string, gainDB float64, tag string) error
}

// Options configures a Scheduler
type Options struct {
	Interval time.Duration
	GainDB   float64
	Pending  *schedule.Pending
	Pool     schedule.Pool
	Engine   playback.Engine

	// Optional collaborators
	Clock    Clock
	Rand     func(n int) int
	Reporter Reporter
	Logger   *slog.Logger
}

// Scheduler owns the schedule state and is its only mutator. The loop
// runs on a single goroutine; other goroutines observe it through Snapshot.
type Scheduler struct {
	periodic schedule.PeriodicTrigger
	pending  *schedule.Pending
	pool     schedule.Pool
	gainDB   float64

	engine   playback.Engine
	clock    Clock
	rand     func(n int) int
	reporter Reporter
	logger   *slog.Logger

	snapshots chan chan schedule.Snapshot
}

// New creates a scheduler whose periodic trigger is first due one
// interval from now
func New(opts Options) *Scheduler {
	s := &Scheduler{
		pending:   opts.Pending,
		pool:      opts.Pool,
		gainDB:    opts.GainDB,
		engine:    opts.Engine,
		clock:     opts.Clock,
		rand:      opts.Rand,
		reporter:  opts.Reporter,
		logger:    opts.Logger,
		snapshots: make(chan chan schedule.Snapshot),
	}

	if s.pending == nil {
		s.pending = &schedule.Pending{}
	}
	if s.clock == nil {
		s.clock = SystemClock
	}
	if s.rand == nil {
		s.rand = rand.Intn
	}
	if s.logger == nil {
		s.logger = slog.With("component", "scheduler")
	}

	s.periodic = schedule.NewPeriodic(opts.Interval, s.clock.Now())
	return s
}

// Run evaluates the schedule once per TickInterval until ctx is cancelled.
// Playback failures never stop the loop; an asynchronous engine that shuts
// down underneath it does, with ErrEngineStopped.
func (s *Scheduler) Run(ctx context.Context) error {
	s.LogSchedule()

	var asyncErrs <-chan error
	if a, ok := s.engine.(interface{ Errors() <-chan error }); ok {
		asyncErrs = a.Errors()
	}

	for {
		if ctx.Err() != nil {
			s.logger.Info("Scheduler stopped")
			return nil
		}

		s.Tick(s.clock.Now())

		wait := s.clock.After(TickInterval)
	waiting:
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Scheduler stopped")
				return nil
			case <-wait:
				break waiting
			case reply := <-s.snapshots:
				reply <- s.snapshot()
			case err, ok := <-asyncErrs:
				if !ok {
					if ctx.Err() != nil {
						s.logger.Info("Scheduler stopped")
						return nil
					}
					s.logger.Error("Playback engine stopped")
					return ErrEngineStopped
				}
				s.asyncFailure(err)
			}
		}
	}
}

// Tick evaluates the schedule at now: at most one one-shot trigger, then
// the periodic trigger independently of it.
func (s *Scheduler) Tick(now time.Time) Result {
	s.logger.Debug("Tick", slog.String("current_time", now.Format(time.TimeOnly)))

	var r Result

	if trig, ok := s.pending.Eligible(now, MatchWindow); ok {
		d := s.dispatch(KindOneShot, trig.Sound, now)
		d.Trigger = trig.At
		// A one-shot trigger is spent whether or not playback succeeded
		s.pending.Remove(trig.At)
		r.OneShot = &d
	}

	if s.periodic.Due(now) {
		sound, ok := s.pool.Pick(s.rand)
		if ok {
			d := s.dispatch(KindPeriodic, sound, now)
			s.periodic.Advance(now)
			r.Periodic = &d
		} else {
			s.logger.Info("No general sound files to play")
			r.NoSound = true
		}
	}

	return r
}

func (s *Scheduler) dispatch(kind Kind, sound string, now time.Time) Dispatch {
	d := Dispatch{Kind: kind, Sound: sound, At: now}
	if q, ok := s.engine.(queue); ok {
		d.Queued = true
		d.Err = q.Enqueue(sound, s.gainDB, string(kind))
	} else {
		d.Err = s.engine.Play(sound, s.gainDB)
	}

	switch {
	case d.Err != nil:
		s.logger.Error("Playback failed",
			slog.String("kind", string(kind)),
			slog.String("sound", sound),
			slog.Any("error", d.Err))
	case d.Queued:
		s.logger.Info("Queued sound",
			slog.String("kind", string(kind)),
			slog.String("sound", sound),
			slog.String("at", now.Format(time.TimeOnly)))
	default:
		s.logger.Info("Played sound",
			slog.String("kind", string(kind)),
			slog.String("sound", sound),
			slog.String("at", now.Format(time.TimeOnly)))
	}

	if s.reporter != nil {
		s.reporter.Report(d)
	}
	return d
}

// asyncFailure handles a failure delivered by an asynchronous engine
func (s *Scheduler) asyncFailure(err error) {
	d := Dispatch{At: s.clock.Now(), Err: err}
	var pErr *playback.PlaybackError
	if errors.As(err, &pErr) {
		d.Sound = pErr.Ref
		d.Kind = Kind(pErr.Tag)
	}

	s.logger.Error("Playback failed",
		slog.String("kind", string(d.Kind)),
		slog.String("sound", d.Sound),
		slog.Any("error", err))
	if s.reporter != nil {
		s.reporter.Report(d)
	}
}

// LogSchedule logs the pending one-shot triggers and the pool size
func (s *Scheduler) LogSchedule() {
	s.logger.Info("Scheduled sounds", slog.Int("count", s.pending.Len()))
	for _, t := range s.pending.Triggers() {
		s.logger.Info("Scheduled sound", slog.String("at", t.At.String()), slog.String("sound", t.Sound))
	}

	if s.pool.Empty() {
		s.logger.Warn("No general sound files found")
	} else {
		s.logger.Info("General sounds loaded",
			slog.Int("count", s.pool.Len()),
			slog.Duration("interval", s.periodic.Interval))
	}
}

// Snapshot returns a copy of the schedule state. It is served by the
// running loop and blocks until Run picks it up or ctx is done.
func (s *Scheduler) Snapshot(ctx context.Context) (schedule.Snapshot, error) {
	reply := make(chan schedule.Snapshot, 1)
	select {
	case s.snapshots <- reply:
	case <-ctx.Done():
		return schedule.Snapshot{}, ctx.Err()
	}

	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return schedule.Snapshot{}, ctx.Err()
	}
}

func (s *Scheduler) snapshot() schedule.Snapshot {
	return schedule.Snapshot{
		Interval:   s.periodic.Interval,
		NextFireAt: s.periodic.NextFireAt,
		Pending:    s.pending.Triggers(),
		PoolSize:   s.pool.Len(),
	}
}
