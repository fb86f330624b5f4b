package playback

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

// resampleQuality is the beep resampler quality used for clips whose rate
// differs from the device rate
const resampleQuality = 4

// SpeakerEngine plays clips on the default audio device
type SpeakerEngine struct {
	mu         sync.Mutex
	sampleRate beep.SampleRate
	cache      *Cache
	closed     bool
	logger     *slog.Logger
}

var _ Engine = (*SpeakerEngine)(nil)

// NewSpeakerEngine initializes the speaker at the given sample rate.
// When preload is set, decoded clips are kept in memory after first use.
func NewSpeakerEngine(sampleRate int, preload bool) (*SpeakerEngine, error) {
	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(100*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDevice, err)
	}

	e := &SpeakerEngine{
		sampleRate: sr,
		logger:     slog.With("component", "speaker"),
	}
	if preload {
		e.cache = NewCache()
	}

	return e, nil
}

// Play decodes ref, applies the gain and blocks until the clip has drained
func (e *SpeakerEngine) Play(ref string, gainDB float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return &PlaybackError{Ref: ref, Err: ErrClosed}
	}

	streamer, format, closer, err := e.source(ref)
	if err != nil {
		return &PlaybackError{Ref: ref, Err: err}
	}
	if closer != nil {
		defer closer.Close()
	}

	var s beep.Streamer = streamer
	if format.SampleRate != e.sampleRate {
		s = beep.Resample(resampleQuality, format.SampleRate, e.sampleRate, s)
	}
	s = Gain(s, gainDB)

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))
	<-done

	if err := streamer.Err(); err != nil {
		return &PlaybackError{Ref: ref, Err: fmt.Errorf("%w: %v", ErrDecode, err)}
	}

	e.logger.Debug("Clip finished", slog.String("ref", ref), slog.Float64("gain_db", gainDB))
	return nil
}

// source returns a streamer for ref, from the cache when enabled
func (e *SpeakerEngine) source(ref string) (beep.StreamSeeker, beep.Format, beep.StreamSeekCloser, error) {
	if e.cache != nil {
		clip, err := e.cache.Get(ref)
		if err != nil {
			return nil, beep.Format{}, nil, err
		}
		return clip.Streamer(), clip.Format, nil, nil
	}

	streamer, format, err := Open(ref)
	if err != nil {
		return nil, beep.Format{}, nil, err
	}
	return streamer, format, streamer, nil
}

// Close stops any playback and releases the audio device
func (e *SpeakerEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	speaker.Clear()
	speaker.Close()
	return nil
}

// Gain wraps s with a decibel gain adjustment
func Gain(s beep.Streamer, gainDB float64) beep.Streamer {
	return &effects.Volume{
		Streamer: s,
		Base:     10,
		Volume:   gainDB / 20,
	}
}
