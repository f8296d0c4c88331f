// SPDX-License-Identifier: MIT

package staging

// Artifacts captures which on-disk files a loaded record can still rely on.
type Artifacts struct {
	LocalExists  bool // staged download present at LocalPath
	OutputExists bool // encoded result present at OutputPath
}

// Requeue names the queue a reconciled record must re-enter, if any.
type Requeue int

const (
	RequeueNone Requeue = iota
	RequeueDownload
	RequeueEncode
	RequeueUpload
)

// Reconcile maps a persisted state plus the surviving filesystem artifacts to
// the state a restarted pipeline resumes from. Every transitional state has a
// deterministic rewind target, so a process killed at any point resumes
// without manual intervention:
//
//	complete / failed            -> keep, no requeue
//	pending                      -> requeue download
//	downloading                  -> pending (partial copy is discarded)
//	local,     staged file kept  -> requeue encode
//	local,     staged file gone  -> pending
//	encoding,  staged file kept  -> local, re-encode from scratch
//	encoding,  staged file gone  -> pending
//	uploading, output kept       -> requeue upload as-is
//	uploading, output gone,
//	           staged file kept  -> local, re-encode
//	uploading, both gone         -> pending
//
// An unrecognized state is treated like pending so a record written by a
// newer build is recovered rather than dropped.
func Reconcile(st State, a Artifacts) (State, Requeue) {
	switch st {
	case StateComplete:
		return StateComplete, RequeueNone
	case StateFailed:
		return StateFailed, RequeueNone
	case StatePending, StateDownloading:
		return StatePending, RequeueDownload
	case StateLocal, StateEncoding:
		if a.LocalExists {
			return StateLocal, RequeueEncode
		}
		return StatePending, RequeueDownload
	case StateUploading:
		switch {
		case a.OutputExists:
			return StateUploading, RequeueUpload
		case a.LocalExists:
			return StateLocal, RequeueEncode
		default:
			return StatePending, RequeueDownload
		}
	default:
		return StatePending, RequeueDownload
	}
}

// normalize clears path fields that the reconciled state no longer owns, so
// the record satisfies the pipeline's path invariants when it re-enters a
// queue.
func normalize(rec *Record, st State) {
	rec.State = st
	switch st {
	case StatePending:
		rec.LocalPath = ""
		rec.OutputPath = ""
		rec.FinalPath = ""
	case StateLocal:
		rec.OutputPath = ""
		rec.FinalPath = ""
	}
}
