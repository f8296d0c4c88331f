// SPDX-License-Identifier: MIT

// Package monitor reports on a staging pipeline's persisted queue state and
// scratch directory, for the status command and for watch mode.
package monitor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"

	"github.com/videosentinel/videosentinel/internal/log"
	"github.com/videosentinel/videosentinel/internal/staging"
)

// StagedFile is one file currently occupying the staging directory.
type StagedFile struct {
	Name string
	Size int64
}

// Summary is a point-in-time view of the queue state file and staging dir.
type Summary struct {
	StateFound bool
	UpdatedAt  time.Time

	Counts staging.Progress
	Failed []staging.Record

	StagingExists bool
	StagingBytes  int64
	StagingFiles  []StagedFile
}

// Collect reads the queue state and staging directory under stagingDir.
// A missing state file or directory yields an empty summary, not an error.
func Collect(stagingDir string) (Summary, error) {
	var s Summary

	records, found, err := staging.NewStateFile(stagingDir).Load()
	if err != nil {
		return s, err
	}
	if found {
		s.StateFound = true
		if info, err := os.Stat(staging.NewStateFile(stagingDir).Path()); err == nil {
			s.UpdatedAt = info.ModTime()
		}
		for _, rec := range records {
			s.Counts.Total++
			switch rec.State {
			case staging.StatePending:
				s.Counts.Pending++
			case staging.StateDownloading:
				s.Counts.Downloading++
			case staging.StateLocal:
				s.Counts.Local++
			case staging.StateEncoding:
				s.Counts.Encoding++
			case staging.StateUploading:
				s.Counts.Uploading++
			case staging.StateComplete:
				s.Counts.Complete++
			case staging.StateFailed:
				s.Counts.Failed++
				s.Failed = append(s.Failed, rec)
			}
		}
	}

	entries, err := os.ReadDir(stagingDir)
	if err == nil {
		s.StagingExists = true
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			s.StagingFiles = append(s.StagingFiles, StagedFile{Name: entry.Name(), Size: info.Size()})
			s.StagingBytes += info.Size()
		}
		sort.Slice(s.StagingFiles, func(i, j int) bool {
			return s.StagingFiles[i].Size > s.StagingFiles[j].Size
		})
	}

	return s, nil
}

// Render writes a human-readable status report.
func Render(w io.Writer, s Summary) {
	if !s.StateFound {
		fmt.Fprintln(w, "No queue state found.")
	} else {
		fmt.Fprintf(w, "Queue state (updated %s)\n", humanize.Time(s.UpdatedAt))
		c := s.Counts
		fmt.Fprintf(w, "  total:       %d\n", c.Total)
		fmt.Fprintf(w, "  pending:     %d\n", c.Pending)
		fmt.Fprintf(w, "  downloading: %d\n", c.Downloading)
		fmt.Fprintf(w, "  local:       %d\n", c.Local)
		fmt.Fprintf(w, "  encoding:    %d\n", c.Encoding)
		fmt.Fprintf(w, "  uploading:   %d\n", c.Uploading)
		fmt.Fprintf(w, "  complete:    %d\n", c.Complete)
		fmt.Fprintf(w, "  failed:      %d\n", c.Failed)

		if len(s.Failed) > 0 {
			fmt.Fprintln(w, "\nFailed files:")
			for _, rec := range s.Failed {
				fmt.Fprintf(w, "  %s\n    %s\n", rec.SourcePath, rec.Error)
			}
		}
	}

	if !s.StagingExists {
		fmt.Fprintln(w, "\nStaging directory does not exist.")
		return
	}
	fmt.Fprintf(w, "\nStaging directory: %d files, %s\n", len(s.StagingFiles), humanize.IBytes(uint64(s.StagingBytes)))
	for _, f := range s.StagingFiles {
		fmt.Fprintf(w, "  %-40s %s\n", f.Name, humanize.IBytes(uint64(f.Size)))
	}
}

// Watch re-collects and reports whenever the queue state file is replaced,
// until ctx is cancelled. The staging directory is watched rather than the
// file itself because atomic saves replace the file on every update.
func Watch(ctx context.Context, stagingDir string, onChange func(Summary)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(stagingDir); err != nil {
		return fmt.Errorf("watch %s: %w", stagingDir, err)
	}

	logger := log.WithComponent("monitor")

	emit := func() {
		s, err := Collect(stagingDir)
		if err != nil {
			logger.Warn().Err(err).Msg("could not collect queue status")
			return
		}
		onChange(s)
	}
	emit()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != staging.StateFileName {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			emit()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watcher error")
		}
	}
}
