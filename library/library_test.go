package library

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, fs afero.Fs, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, afero.WriteFile(fs, p, []byte("x"), 0o644))
	}
}

func TestList_FiltersByExtension(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := filepath.Join("sounds", "general")
	writeFiles(t, fs,
		filepath.Join(dir, "b.mp3"),
		filepath.Join(dir, "a.wav"),
		filepath.Join(dir, "c.OGG"),
		filepath.Join(dir, "d.flac"),
		filepath.Join(dir, "notes.txt"),
		filepath.Join(dir, "wav"),
	)

	sounds, err := New(fs).List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.wav"),
		filepath.Join(dir, "b.mp3"),
		filepath.Join(dir, "c.OGG"),
		filepath.Join(dir, "d.flac"),
	}, sounds)
}

func TestList_DoesNotRecurse(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs,
		filepath.Join("pool", "top.wav"),
		filepath.Join("pool", "nested", "deep.wav"),
	)
	require.NoError(t, fs.MkdirAll(filepath.Join("pool", "folder.wav"), 0o755))

	sounds, err := New(fs).List("pool")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("pool", "top.wav")}, sounds)
}

func TestList_FollowsSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(t.TempDir(), "real.wav")
	require.NoError(t, os.WriteFile(target, []byte("RIFF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain.wav"), []byte("RIFF"), 0o644))
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "link.wav")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing.wav"), filepath.Join(dir, "dangling.wav")))
	require.NoError(t, os.Symlink(t.TempDir(), filepath.Join(dir, "folder.wav")))

	sounds, err := New(afero.NewOsFs()).List(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "link.wav"),
		filepath.Join(dir, "plain.wav"),
	}, sounds)
}

func TestList_EmptyDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("empty", 0o755))

	sounds, err := New(fs).List("empty")
	require.NoError(t, err)
	assert.Empty(t, sounds)
}

func TestList_UnreadableDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := New(fs).List("missing")
	require.Error(t, err)

	var fsErr *FilesystemError
	require.True(t, errors.As(err, &fsErr))
	assert.Equal(t, "list", fsErr.Op)
	assert.Equal(t, "missing", fsErr.Path)
}

func TestEnsureDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	lib := New(fs)
	dir := filepath.Join("sounds", "timed")

	require.NoError(t, lib.EnsureDir(dir))
	info, err := fs.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Existing directories are left alone
	require.NoError(t, lib.EnsureDir(dir))
}

func TestEnsureDir_PathIsFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "sounds")

	err := New(fs).EnsureDir("sounds")
	var fsErr *FilesystemError
	require.True(t, errors.As(err, &fsErr))
	assert.Equal(t, "create", fsErr.Op)
}

func TestEnsureDir_ReadOnly(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())

	err := New(fs).EnsureDir("sounds")
	var fsErr *FilesystemError
	assert.True(t, errors.As(err, &fsErr))
}

func TestSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.wav", true},
		{"a.MP3", true},
		{"dir/a.ogg", true},
		{"a.flac", true},
		{"a.aiff", false},
		{"wav", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Supported(tt.path))
		})
	}
}
