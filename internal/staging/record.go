// SPDX-License-Identifier: MIT

// Package staging implements the resumable download/encode/upload pipeline
// that buffers remote video files through a local scratch directory.
package staging

// State is the lifecycle of a file moving through the pipeline.
// The string values are the wire format of the persisted queue state.
type State string

const (
	StatePending     State = "pending"     // waiting to be downloaded
	StateDownloading State = "downloading" // copy from remote storage in flight
	StateLocal       State = "local"       // staged locally, waiting to encode
	StateEncoding    State = "encoding"    // encode callback in flight
	StateUploading   State = "uploading"   // encoded, copy back to remote in flight
	StateComplete    State = "complete"    // uploaded, nothing left to do
	StateFailed      State = "failed"      // per-file failure, never retried automatically
)

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateFailed
}

// Valid reports whether s is one of the known pipeline states.
func (s State) Valid() bool {
	switch s {
	case StatePending, StateDownloading, StateLocal, StateEncoding,
		StateUploading, StateComplete, StateFailed:
		return true
	}
	return false
}

// Record tracks one source file through the pipeline. SourcePath is the
// identity key; exactly one Record exists per registered source. All fields
// are guarded by the Manager's registry lock; workers never mutate a Record
// directly.
//
// Path fields use the empty string for "not set"; the persisted JSON form
// treats absent and null interchangeably on load.
type Record struct {
	SourcePath string `json:"source_path"`
	LocalPath  string `json:"local_path,omitempty"`
	OutputPath string `json:"output_path,omitempty"`
	FinalPath  string `json:"final_path,omitempty"`
	State      State  `json:"state"`
	Error      string `json:"error,omitempty"`
}
