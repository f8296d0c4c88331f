// SPDX-License-Identifier: MIT

package staging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/videosentinel/videosentinel/internal/fsutil"
)

// StateFileName is the fixed name of the persisted queue state inside the
// staging directory.
const StateFileName = "queue_state.json"

// snapshot is the on-disk shape of the queue state. There is deliberately no
// schema-version field; the format matches what earlier releases wrote so
// in-flight batches survive upgrades.
type snapshot struct {
	Files     []Record `json:"files"`
	Timestamp float64  `json:"timestamp"`
}

// StateFile persists the file registry to a JSON side file using
// write-to-temp plus atomic rename, so a crash mid-save can never leave a
// truncated state file behind.
type StateFile struct {
	path string
}

// NewStateFile returns a StateFile rooted in stagingDir.
func NewStateFile(stagingDir string) *StateFile {
	return &StateFile{path: filepath.Join(stagingDir, StateFileName)}
}

// Path returns the location of the state file.
func (s *StateFile) Path() string {
	return s.path
}

// Save atomically replaces the state file with the given records. The staging
// directory is recreated first in case an external cleanup removed it.
func (s *StateFile) Save(records []Record) error {
	if err := fsutil.EnsureDir(filepath.Dir(s.path)); err != nil {
		return err
	}

	snap := snapshot{
		Files:     records,
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal queue state: %w", err)
	}

	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write queue state %s: %w", s.path, err)
	}
	return nil
}

// Load reads the state file. The second return value is false when no state
// file exists, which is not an error.
func (s *StateFile) Load() ([]Record, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read queue state %s: %w", s.path, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("parse queue state %s: %w", s.path, err)
	}
	return snap.Files, true, nil
}
