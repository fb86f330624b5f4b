package playback

import (
	"errors"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrDecode            = errors.New("decode failed")
	ErrDevice            = errors.New("audio device unavailable")
	ErrQueueFull         = errors.New("playback queue is full")
	ErrClosed            = errors.New("playback is closed")
)

// Engine plays a sound file with a gain adjustment in decibels relative to
// the source level. Play blocks until the clip has finished.
type Engine interface {
	Play(ref string, gainDB float64) error
}

// PlaybackError reports a clip that could not be played
type PlaybackError struct {
	Ref string
	Tag string // label given to Worker.Enqueue
	Err error
}

func (e *PlaybackError) Error() string {
	return "play " + e.Ref + ": " + e.Err.Error()
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// Backend names accepted by New
const (
	BackendSpeaker = "speaker"
	BackendCommand = "command"
)

// Options selects and tunes a playback backend
type Options struct {
	Backend    string
	SampleRate int
	Preload    bool
	Command    string
}

// New creates the engine for the selected backend
func New(opts Options) (Engine, error) {
	switch opts.Backend {
	case BackendSpeaker, "":
		e, err := NewSpeakerEngine(opts.SampleRate, opts.Preload)
		if err != nil {
			return nil, err
		}
		return e, nil
	case BackendCommand:
		return NewCommandEngine(opts.Command), nil
	default:
		return nil, errors.New("unknown playback backend: " + opts.Backend)
	}
}

// Close releases the engine's resources when it holds any
func Close(e Engine) error {
	if c, ok := e.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
