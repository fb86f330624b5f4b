package playback

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constant streams n frames of the given value on both channels
func constant(n int, value float64) beep.Streamer {
	left := n
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if left <= 0 {
			return 0, false
		}
		count := min(len(samples), left)
		for i := 0; i < count; i++ {
			samples[i] = [2]float64{value, value}
		}
		left -= count
		return count, true
	})
}

// writeWAV writes a short mono clip of frames samples and returns its path
func writeWAV(t *testing.T, dir, name string, frames int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	format := beep.Format{SampleRate: 22050, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, constant(frames, 0.25), format))
	return path
}

func TestOpen_WAV(t *testing.T) {
	path := writeWAV(t, t.TempDir(), "tone.wav", 2205)

	streamer, format, err := Open(path)
	require.NoError(t, err)
	defer streamer.Close()

	assert.Equal(t, beep.SampleRate(22050), format.SampleRate)
	assert.Equal(t, 1, format.NumChannels)
	assert.Equal(t, 2205, streamer.Len())
}

func TestOpen_UnsupportedExtension(t *testing.T) {
	_, _, err := Open(filepath.Join(t.TempDir(), "clip.aiff"))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestOpen_MissingFile(t *testing.T) {
	_, _, err := Open(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestOpen_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"bad.wav", "bad.ogg", "bad.flac"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte("definitely not audio"), 0o644))

			_, _, err := Open(path)
			assert.True(t, errors.Is(err, ErrDecode), "got %v", err)
		})
	}
}

func TestCache_DecodesOnce(t *testing.T) {
	path := writeWAV(t, t.TempDir(), "tone.wav", 1000)
	cache := NewCache()

	first, err := cache.Get(path)
	require.NoError(t, err)
	assert.Equal(t, 1000, first.Buffer.Len())

	second, err := cache.Get(path)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, cache.Len())

	// Each streamer starts from the beginning of the clip
	s := first.Streamer()
	assert.Equal(t, 0, s.Position())
	assert.Equal(t, 1000, s.Len())
}

func TestCache_ErrorNotCached(t *testing.T) {
	cache := NewCache()
	_, err := cache.Get(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())
}

func TestGain(t *testing.T) {
	tests := []struct {
		name   string
		gainDB float64
		want   float64
	}{
		{"unity", 0, 0.5},
		{"minus 20 dB", -20, 0.05},
		{"plus 20 dB", 20, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := make([][2]float64, 4)
			n, ok := Gain(constant(4, 0.5), tt.gainDB).Stream(samples)
			require.True(t, ok)
			require.Equal(t, 4, n)
			assert.InDelta(t, tt.want, samples[0][0], 1e-9)
			assert.InDelta(t, tt.want, samples[3][1], 1e-9)
		})
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(Options{Backend: "cassette"})
	assert.Error(t, err)
}

func TestPlaybackError(t *testing.T) {
	err := &PlaybackError{Ref: "a.wav", Err: ErrDevice}
	assert.Equal(t, "play a.wav: audio device unavailable", err.Error())
	assert.True(t, errors.Is(err, ErrDevice))
}

func TestCommandEngine_Args(t *testing.T) {
	e := NewCommandEngine("")
	assert.Equal(t, []string{"-nodisp", "-autoexit", "-loglevel", "error", "-af", "volume=-3.50dB", "clip.mp3"}, e.Args("clip.mp3", -3.5))
}

func TestCommandEngine_Play(t *testing.T) {
	truePath, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true not available")
	}
	falsePath, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false not available")
	}
	clip := writeWAV(t, t.TempDir(), "clip.wav", 10)

	require.NoError(t, NewCommandEngine(truePath).Play(clip, 0))

	err = NewCommandEngine(falsePath).Play(clip, 0)
	var pErr *PlaybackError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, clip, pErr.Ref)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestCommandEngine_MissingPlayer(t *testing.T) {
	clip := writeWAV(t, t.TempDir(), "clip.wav", 10)

	err := NewCommandEngine(filepath.Join(t.TempDir(), "no-such-player")).Play(clip, 0)
	assert.True(t, errors.Is(err, ErrDevice))
}

func TestCommandEngine_Closed(t *testing.T) {
	e := NewCommandEngine("")
	require.NoError(t, e.Close())

	err := e.Play("clip.wav", 0)
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestDryRunEngine(t *testing.T) {
	clip := writeWAV(t, t.TempDir(), "clip.wav", 10)
	e := NewDryRunEngine()

	assert.NoError(t, e.Play(clip, 0.5))
	assert.Error(t, e.Play(filepath.Join(t.TempDir(), "gone.wav"), 0.5))
}

// recordingEngine records played refs and fails for refs listed in fail
type recordingEngine struct {
	mu     sync.Mutex
	played []string
	fail   map[string]bool
	block  chan struct{}
	closed bool
}

func (e *recordingEngine) Play(ref string, gainDB float64) error {
	if e.block != nil {
		<-e.block
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.played = append(e.played, ref)
	if e.fail[ref] {
		return &PlaybackError{Ref: ref, Err: ErrDecode}
	}
	return nil
}

func (e *recordingEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func TestWorker_PlaysInOrderAndReportsErrors(t *testing.T) {
	engine := &recordingEngine{fail: map[string]bool{"bad.wav": true}}
	w := NewWorker(engine, 4)
	w.Start()

	require.NoError(t, w.Play("a.wav", 0))
	require.NoError(t, w.Enqueue("bad.wav", 0, "periodic"))
	require.NoError(t, w.Play("b.wav", 0))

	select {
	case err := <-w.Errors():
		var pErr *PlaybackError
		require.True(t, errors.As(err, &pErr))
		assert.Equal(t, "bad.wav", pErr.Ref)
		assert.Equal(t, "periodic", pErr.Tag)
		assert.True(t, errors.Is(err, ErrDecode))
		assert.Equal(t, "play bad.wav: decode failed", err.Error())
	case <-time.After(time.Second):
		t.Fatal("expected playback error")
	}

	require.NoError(t, w.Close())
	assert.Equal(t, []string{"a.wav", "bad.wav", "b.wav"}, engine.played)
	assert.True(t, engine.closed)

	_, open := <-w.Errors()
	assert.False(t, open)
}

func TestWorker_QueueFull(t *testing.T) {
	engine := &recordingEngine{block: make(chan struct{})}
	w := NewWorker(engine, 1)

	// Not started: the single slot fills up
	require.NoError(t, w.Play("a.wav", 0))
	err := w.Play("b.wav", 0)
	assert.True(t, errors.Is(err, ErrQueueFull))

	close(engine.block)
	w.Start()
	require.NoError(t, w.Close())
	assert.Equal(t, []string{"a.wav"}, engine.played)
}

func TestWorker_PlayAfterClose(t *testing.T) {
	w := NewWorker(&recordingEngine{}, 1)
	require.NoError(t, w.Close())

	err := w.Play("a.wav", 0)
	assert.True(t, errors.Is(err, ErrClosed))
	require.NoError(t, w.Close())
}
