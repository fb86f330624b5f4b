package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// DefaultCommand is the external player used by CommandEngine
const DefaultCommand = "ffplay"

// CommandEngine plays clips through an external player process
type CommandEngine struct {
	mu     sync.Mutex
	exec   string
	ctx    context.Context
	cancel context.CancelFunc
}

var _ Engine = (*CommandEngine)(nil)

// NewCommandEngine creates an engine running the given player executable
func NewCommandEngine(executable string) *CommandEngine {
	if executable == "" {
		executable = DefaultCommand
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &CommandEngine{
		exec:   executable,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Args returns the player arguments for ref at the given gain
func (e *CommandEngine) Args(ref string, gainDB float64) []string {
	return []string{
		"-nodisp",   // No video window
		"-autoexit", // Exit once the clip ends
		"-loglevel", "error",
		"-af", fmt.Sprintf("volume=%.2fdB", gainDB),
		ref,
	}
}

// Play runs the player and waits for it to exit
func (e *CommandEngine) Play(ref string, gainDB float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx.Err() != nil {
		return &PlaybackError{Ref: ref, Err: ErrClosed}
	}

	if _, err := os.Stat(ref); err != nil {
		return &PlaybackError{Ref: ref, Err: err}
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(e.ctx, e.exec, e.Args(ref, gainDB)...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			return &PlaybackError{Ref: ref, Err: fmt.Errorf("%w: %s exited with %d: %s", ErrDecode, e.exec, exitErr.ExitCode(), msg)}
		}
		return &PlaybackError{Ref: ref, Err: fmt.Errorf("%w: %v", ErrDevice, err)}
	}

	return nil
}

// Close kills a running player and rejects further playback
func (e *CommandEngine) Close() error {
	e.cancel()
	return nil
}
