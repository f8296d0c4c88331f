// SPDX-License-Identifier: MIT

package staging

import (
	"github.com/videosentinel/videosentinel/internal/fsutil"
	"github.com/videosentinel/videosentinel/internal/metrics"
)

// Backpressure reasons, used as log fields and metric labels.
const (
	PauseReasonBuffer = "buffer"
	PauseReasonQuota  = "quota"
)

// Backpressure decides whether the download stage may admit more work. Both
// checks read live state (the registry via countLocal, the filesystem via
// DirSize) rather than cached counters, so they react to encode-loop
// consumption and upload-loop cleanup without extra bookkeeping.
type Backpressure struct {
	maxBuffer  int
	maxBytes   int64 // 0 disables the quota check
	stagingDir string
	countLocal func() int
}

// NewBackpressure builds the controller. countLocal must return the number of
// records currently in LOCAL state.
func NewBackpressure(maxBuffer int, maxBytes int64, stagingDir string, countLocal func() int) *Backpressure {
	return &Backpressure{
		maxBuffer:  maxBuffer,
		maxBytes:   maxBytes,
		stagingDir: stagingDir,
		countLocal: countLocal,
	}
}

// ShouldPause reports whether downloads must pause, and why. The reason is
// empty when downloads may proceed.
func (b *Backpressure) ShouldPause() (bool, string) {
	if b.countLocal() >= b.maxBuffer {
		return true, PauseReasonBuffer
	}

	if b.maxBytes > 0 {
		used, err := fsutil.DirSize(b.stagingDir)
		if err == nil {
			metrics.StagingBytes.Set(float64(used))
			if used >= b.maxBytes {
				return true, PauseReasonQuota
			}
		}
	}
	return false, ""
}
