package playback

import (
	"errors"
	"log/slog"
	"sync"
)

type job struct {
	ref    string
	gainDB float64
	tag    string
}

// Worker plays clips one after another on its own goroutine so callers
// never block on playback. Failures are reported on Errors.
type Worker struct {
	engine Engine
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
	jobs    chan job
	errs    chan error
	done    chan struct{}
}

var _ Engine = (*Worker)(nil)

// NewWorker creates a worker around engine with room for queueSize
// clips waiting to be played
func NewWorker(engine Engine, queueSize int) *Worker {
	if queueSize < 1 {
		queueSize = 1
	}

	return &Worker{
		engine: engine,
		logger: slog.With("component", "playback-worker"),
		jobs:   make(chan job, queueSize),
		errs:   make(chan error, queueSize),
		done:   make(chan struct{}),
	}
}

// Start launches the playback goroutine
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.closed {
		return
	}
	w.started = true

	go func() {
		defer close(w.done)
		defer close(w.errs)

		for j := range w.jobs {
			if err := w.engine.Play(j.ref, j.gainDB); err != nil {
				w.fail(j, err)
			}
		}
	}()
}

func (w *Worker) fail(j job, err error) {
	pErr := &PlaybackError{Ref: j.ref, Tag: j.tag, Err: err}
	var inner *PlaybackError
	if errors.As(err, &inner) {
		pErr.Err = inner.Err
	}

	select {
	case w.errs <- pErr:
	default:
		w.logger.Error("Dropped playback error", slog.Any("error", pErr))
	}
}

// Play queues ref for playback and returns immediately
func (w *Worker) Play(ref string, gainDB float64) error {
	return w.Enqueue(ref, gainDB, "")
}

// Enqueue queues ref like Play. A failure of the clip is delivered on
// Errors as a *PlaybackError carrying tag.
func (w *Worker) Enqueue(ref string, gainDB float64, tag string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return &PlaybackError{Ref: ref, Err: ErrClosed}
	}

	select {
	case w.jobs <- job{ref: ref, gainDB: gainDB, tag: tag}:
		return nil
	default:
		return &PlaybackError{Ref: ref, Err: ErrQueueFull}
	}
}

// Errors delivers failures of queued clips. It is closed once the worker
// has stopped.
func (w *Worker) Errors() <-chan error {
	return w.errs
}

// Close stops accepting clips, waits for queued clips to finish and closes
// the wrapped engine
func (w *Worker) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.jobs)
	started := w.started
	w.mu.Unlock()

	if started {
		<-w.done
	} else {
		close(w.errs)
	}
	return Close(w.engine)
}
