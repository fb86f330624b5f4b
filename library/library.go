// Package library discovers playable sound files in a directory.
package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Extensions lists the container extensions recognized as sound files
var Extensions = []string{".wav", ".mp3", ".ogg", ".flac"}

// Library lists sound files from a filesystem
type Library struct {
	fs afero.Fs
}

// New creates a Library backed by the given filesystem
func New(fs afero.Fs) *Library {
	return &Library{fs: fs}
}

// NewOS creates a Library backed by the host filesystem
func NewOS() *Library {
	return New(afero.NewOsFs())
}

// Supported reports whether path carries a recognized sound extension
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// List returns the sound files directly inside dir, ordered by name.
// Subdirectories are not scanned. Symlinks are followed.
func (l *Library) List(dir string) ([]string, error) {
	entries, err := afero.ReadDir(l.fs, dir)
	if err != nil {
		return nil, &FilesystemError{Op: "list", Path: dir, Err: err}
	}

	sounds := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !Supported(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !l.isFile(path, entry) {
			continue
		}
		sounds = append(sounds, path)
	}

	return sounds, nil
}

func (l *Library) isFile(path string, entry os.FileInfo) bool {
	if entry.Mode()&os.ModeSymlink == 0 {
		return entry.Mode().IsRegular()
	}
	target, err := l.fs.Stat(path)
	return err == nil && target.Mode().IsRegular()
}

// EnsureDir creates dir and its parents when missing
func (l *Library) EnsureDir(dir string) error {
	info, err := l.fs.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return &FilesystemError{Op: "create", Path: dir, Err: fmt.Errorf("exists and is not a directory")}
		}
		return nil
	case !os.IsNotExist(err):
		return &FilesystemError{Op: "stat", Path: dir, Err: err}
	}

	if err := l.fs.MkdirAll(dir, 0o755); err != nil {
		return &FilesystemError{Op: "create", Path: dir, Err: err}
	}
	return nil
}

// FilesystemError reports a sound directory that could not be used
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}
