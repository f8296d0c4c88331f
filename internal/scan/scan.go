// SPDX-License-Identifier: MIT

// Package scan discovers video files eligible for pipeline processing.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MinFileSize is the floor below which a file is treated as a corrupt stub
// rather than a processable video.
const MinFileSize = 1000

// Video file extensions recognized by discovery (lowercase, with leading dot).
var videoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpg":  true,
	".mpeg": true,
}

// IsVideo reports whether path has a recognized video extension.
func IsVideo(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// Options controls discovery behavior.
type Options struct {
	Recursive bool
	// SkipSuffix excludes files whose stem already carries the given suffix
	// (e.g. "_reencoded"), so prior pipeline output is not re-queued.
	SkipSuffix string
}

// Discover returns video files under dir, sorted lexicographically for a
// deterministic queue order. Files below MinFileSize are skipped.
func Discover(dir string, opts Options) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("scan directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan directory %s: not a directory", dir)
	}

	var files []string
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !opts.Recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsVideo(path) {
			return nil
		}
		if opts.SkipSuffix != "" {
			stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			if strings.HasSuffix(stem, opts.SkipSuffix) {
				return nil
			}
		}
		fi, err := d.Info()
		if err != nil || fi.Size() < MinFileSize {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scan directory %s: %w", dir, walkErr)
	}

	sort.Strings(files)
	return files, nil
}
