// SPDX-License-Identifier: MIT

package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeVideo(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func TestDiscoverFiltersExtensionsAndSize(t *testing.T) {
	dir := t.TempDir()
	writeVideo(t, filepath.Join(dir, "a.mkv"), 2000)
	writeVideo(t, filepath.Join(dir, "b.MP4"), 2000)
	writeVideo(t, filepath.Join(dir, "notes.txt"), 2000)
	writeVideo(t, filepath.Join(dir, "stub.mkv"), 10) // below MinFileSize

	files, err := Discover(dir, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "a.mkv"),
		filepath.Join(dir, "b.MP4"),
	}, files)
}

func TestDiscoverRecursive(t *testing.T) {
	dir := t.TempDir()
	writeVideo(t, filepath.Join(dir, "top.mkv"), 2000)
	writeVideo(t, filepath.Join(dir, "sub", "nested.mkv"), 2000)

	flat, err := Discover(dir, Options{})
	require.NoError(t, err)
	require.Len(t, flat, 1)

	deep, err := Discover(dir, Options{Recursive: true})
	require.NoError(t, err)
	require.Len(t, deep, 2)
}

func TestDiscoverSkipSuffix(t *testing.T) {
	dir := t.TempDir()
	writeVideo(t, filepath.Join(dir, "movie.mkv"), 2000)
	writeVideo(t, filepath.Join(dir, "movie_reencoded.mp4"), 2000)

	files, err := Discover(dir, Options{SkipSuffix: "_reencoded"})
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "movie.mkv")}, files)
}

func TestDiscoverMissingDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "gone"), Options{})
	require.Error(t, err)
}

func TestIsVideo(t *testing.T) {
	require.True(t, IsVideo("x.mkv"))
	require.True(t, IsVideo("x.WebM"))
	require.False(t, IsVideo("x.srt"))
}
