// SPDX-License-Identifier: MIT

package monitor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/videosentinel/videosentinel/internal/staging"
)

func seedState(t *testing.T, dir string, records []staging.Record) {
	t.Helper()
	require.NoError(t, staging.NewStateFile(dir).Save(records))
}

func TestCollectCountsStates(t *testing.T) {
	dir := t.TempDir()
	seedState(t, dir, []staging.Record{
		{SourcePath: "/net/a.mkv", State: staging.StatePending},
		{SourcePath: "/net/b.mkv", State: staging.StateComplete},
		{SourcePath: "/net/c.mkv", State: staging.StateFailed, Error: "upload failed: timeout"},
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "download_a.mkv"), make([]byte, 2048), 0o644))

	s, err := Collect(dir)
	require.NoError(t, err)
	require.True(t, s.StateFound)
	require.Equal(t, 3, s.Counts.Total)
	require.Equal(t, 1, s.Counts.Pending)
	require.Equal(t, 1, s.Counts.Complete)
	require.Equal(t, 1, s.Counts.Failed)
	require.Len(t, s.Failed, 1)
	require.Equal(t, "/net/c.mkv", s.Failed[0].SourcePath)

	require.True(t, s.StagingExists)
	require.GreaterOrEqual(t, s.StagingBytes, int64(2048))
}

func TestCollectMissingStateIsEmptyNotError(t *testing.T) {
	s, err := Collect(filepath.Join(t.TempDir(), "nowhere"))
	require.NoError(t, err)
	require.False(t, s.StateFound)
	require.False(t, s.StagingExists)
}

func TestRenderIncludesFailuresAndSizes(t *testing.T) {
	dir := t.TempDir()
	seedState(t, dir, []staging.Record{
		{SourcePath: "/net/c.mkv", State: staging.StateFailed, Error: "upload failed: timeout"},
	})

	s, err := Collect(dir)
	require.NoError(t, err)

	var buf bytes.Buffer
	Render(&buf, s)
	out := buf.String()
	require.Contains(t, out, "failed:      1")
	require.Contains(t, out, "/net/c.mkv")
	require.Contains(t, out, "upload failed: timeout")
	require.Contains(t, out, "Staging directory:")
}

func TestWatchEmitsOnStateReplace(t *testing.T) {
	dir := t.TempDir()
	seedState(t, dir, []staging.Record{{SourcePath: "/net/a.mkv", State: staging.StatePending}})

	updates := make(chan Summary, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, func(s Summary) { updates <- s })
	}()

	// Initial emission.
	select {
	case s := <-updates:
		require.Equal(t, 1, s.Counts.Pending)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial summary")
	}

	// Atomic replace of the state file triggers a re-collect.
	seedState(t, dir, []staging.Record{{SourcePath: "/net/a.mkv", State: staging.StateComplete}})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-updates:
			if s.Counts.Complete == 1 {
				cancel()
				require.NoError(t, <-done)
				return
			}
		case <-deadline:
			t.Fatal("state replacement not observed")
		}
	}
}
