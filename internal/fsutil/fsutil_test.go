// SPDX-License-Identifier: MIT

package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCopyFilePreservesContentAndSize(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mkv")
	dst := filepath.Join(dir, "dst.mkv")
	payload := []byte("not actually a video")
	require.NoError(t, os.WriteFile(src, payload, 0o644))

	n, err := CopyFile(src, dst)
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), n)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := CopyFile(filepath.Join(dir, "nope.mkv"), filepath.Join(dir, "out.mkv"))
	require.Error(t, err)
	require.NoFileExists(t, filepath.Join(dir, "out.mkv"))
}

func TestDirSizeCountsOnlyRegularFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b"), make([]byte, 50), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "nested"), make([]byte, 999), 0o644))

	size, err := DirSize(dir)
	require.NoError(t, err)
	require.Equal(t, int64(150), size)
}

func TestDirSizeMissingDirIsZero(t *testing.T) {
	size, err := DirSize(filepath.Join(t.TempDir(), "gone"))
	require.NoError(t, err)
	require.Zero(t, size)
}

func TestStem(t *testing.T) {
	require.Equal(t, "movie", Stem("/library/movie.mkv"))
	require.Equal(t, "download_movie", Stem("download_movie.mp4"))
	require.Equal(t, "noext", Stem("noext"))
}
