// SPDX-License-Identifier: MIT

package staging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/videosentinel/videosentinel/internal/fsutil"
	"github.com/videosentinel/videosentinel/internal/log"
	"github.com/videosentinel/videosentinel/internal/metrics"
)

// EncodeFunc transforms a staged input into an encoded output. On success the
// output file must exist at outputPath. The pipeline never interrupts an
// in-flight call; cancellation is observed between files only.
type EncodeFunc func(ctx context.Context, inputPath, outputPath string) error

// Staging file name prefixes. A restarted process re-associates orphaned
// scratch files with their record through these deterministic names.
const (
	downloadPrefix = "download_"
	encodedPrefix  = "encoded_"
)

const (
	pollInterval  = 200 * time.Millisecond
	pauseInterval = 500 * time.Millisecond
	stopTimeout   = 10 * time.Second
)

// Options configures a Manager.
type Options struct {
	// StagingDir is the local scratch directory for downloads and encodes.
	StagingDir string
	// MaxBufferSize caps the number of files held in LOCAL state.
	MaxBufferSize int
	// MaxStagingBytes caps staging-directory usage. Zero disables the check.
	MaxStagingBytes int64
	// ReplaceOriginal makes uploads overwrite the source (with OutputExt)
	// and delete the original, instead of writing a "_reencoded" sibling.
	ReplaceOriginal bool
	// OutputExt is the container extension for encoded outputs (".mp4").
	OutputExt string
}

// Progress is a point-in-time count of records per state.
type Progress struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	Downloading int `json:"downloading"`
	Local       int `json:"local"`
	Encoding    int `json:"encoding"`
	Uploading   int `json:"uploading"`
	Complete    int `json:"complete"`
	Failed      int `json:"failed"`
}

// Manager coordinates the three pipeline stages over a shared file registry.
//
// Scheduling is intentionally asymmetric: one goroutine downloads, one
// uploads, and the encode loop runs on the caller's goroutine. Encoding is
// CPU/memory-bound and a host sustains one productive video encode at a time;
// parallel encodes would contend for the same budget with no throughput gain.
type Manager struct {
	opts  Options
	state *StateFile
	bp    *Backpressure
	log   zerolog.Logger

	mu       sync.Mutex
	records  []*Record
	bySource map[string]*Record
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}

	downloadQ *fifo[*Record]
	encodeQ   *fifo[*Record]
	uploadQ   *fifo[*Record]
}

// NewManager builds a Manager. Zero option fields fall back to defaults
// (buffer size 4, ".mp4" outputs, system temp staging dir).
func NewManager(opts Options) *Manager {
	if opts.StagingDir == "" {
		opts.StagingDir = filepath.Join(os.TempDir(), "videosentinel")
	}
	if opts.MaxBufferSize <= 0 {
		opts.MaxBufferSize = 4
	}
	if opts.OutputExt == "" {
		opts.OutputExt = ".mp4"
	}

	m := &Manager{
		opts:      opts,
		state:     NewStateFile(opts.StagingDir),
		log:       log.WithComponent("staging"),
		bySource:  make(map[string]*Record),
		downloadQ: newFIFO[*Record](),
		encodeQ:   newFIFO[*Record](),
		uploadQ:   newFIFO[*Record](),
	}
	m.bp = NewBackpressure(opts.MaxBufferSize, opts.MaxStagingBytes, opts.StagingDir, m.countLocal)
	return m
}

// StagingDir returns the scratch directory the pipeline stages share.
func (m *Manager) StagingDir() string {
	return m.opts.StagingDir
}

// StatePath returns the location of the persisted queue state.
func (m *Manager) StatePath() string {
	return m.state.Path()
}

// AddFiles registers new source paths as PENDING and enqueues them for
// download. Already-registered paths are skipped.
func (m *Manager) AddFiles(paths []string) int {
	var queued []*Record
	m.mu.Lock()
	for _, p := range paths {
		if _, exists := m.bySource[p]; exists {
			continue
		}
		rec := &Record{SourcePath: p, State: StatePending}
		m.records = append(m.records, rec)
		m.bySource[p] = rec
		queued = append(queued, rec)
	}
	m.mu.Unlock()

	for _, rec := range queued {
		m.downloadQ.Push(rec)
	}
	m.saveState()
	m.log.Info().Int("added", len(queued)).Int("requested", len(paths)).Msg("files registered")
	return len(queued)
}

// Start runs the pipeline until the batch drains or ctx is cancelled. The
// download and upload workers run as goroutines; the encode loop runs on the
// caller's goroutine. Start returns only after the encode loop has drained
// and the upload worker has finished every enqueued upload, including records
// the encode loop pushed just before exiting. Returns ctx.Err() when the run
// was cancelled, nil otherwise.
func (m *Manager) Start(ctx context.Context, encode EncodeFunc) error {
	if encode == nil {
		return fmt.Errorf("staging: encode callback must not be nil")
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("staging: pipeline already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.running = true
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	defer func() {
		cancel()
		m.mu.Lock()
		m.running = false
		m.cancel = nil
		m.done = nil
		m.mu.Unlock()
		close(done)
	}()

	if err := fsutil.EnsureDir(m.opts.StagingDir); err != nil {
		return err
	}

	// encodeDone is the latch telling the upload worker that no further
	// uploads will ever be enqueued. An empty upload queue alone is not a
	// termination signal while encodes may still be running.
	encodeDone := make(chan struct{})

	g := new(errgroup.Group)
	g.Go(func() error {
		m.downloadLoop(ctx, encodeDone)
		return nil
	})
	g.Go(func() error {
		m.uploadLoop(ctx, encodeDone)
		return nil
	})

	m.encodeLoop(ctx, encode)
	close(encodeDone)

	_ = g.Wait()
	m.saveState()

	if err := ctx.Err(); err != nil {
		m.log.Warn().Msg("pipeline interrupted")
		return err
	}
	m.log.Info().Msg("pipeline drained")
	return nil
}

// Stop raises the cancellation signal, waits for the workers with a bounded
// timeout, and persists the final state. Partially-completed stages are not
// rolled back; the resume reconciliation handles them on the next run.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	select {
	case <-done:
	case <-time.After(stopTimeout):
		m.log.Warn().Dur("timeout", stopTimeout).Msg("workers did not exit in time, abandoning")
	}
	m.saveState()
}

// Progress returns a snapshot of per-state record counts.
func (m *Manager) Progress() Progress {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := Progress{Total: len(m.records)}
	for _, rec := range m.records {
		switch rec.State {
		case StatePending:
			p.Pending++
		case StateDownloading:
			p.Downloading++
		case StateLocal:
			p.Local++
		case StateEncoding:
			p.Encoding++
		case StateUploading:
			p.Uploading++
		case StateComplete:
			p.Complete++
		case StateFailed:
			p.Failed++
		}
	}
	return p
}

// Records returns a copy of the registry for reporting.
func (m *Manager) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	for i, rec := range m.records {
		out[i] = *rec
	}
	return out
}

// SaveState persists the registry. Failures are logged and returned, but the
// pipeline itself treats persistence as advisory and never aborts on them.
func (m *Manager) SaveState() error {
	return m.saveState()
}

// LoadState restores a previous run from the persisted state file and
// reconciles every record against the real filesystem before requeueing it.
// Returns false when no state file exists.
func (m *Manager) LoadState() (bool, error) {
	loaded, found, err := m.state.Load()
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	m.mu.Lock()
	m.records = m.records[:0]
	m.bySource = make(map[string]*Record, len(loaded))
	var requeueDownload, requeueEncode, requeueUpload []*Record
	for i := range loaded {
		rec := loaded[i]
		if _, dup := m.bySource[rec.SourcePath]; dup {
			continue
		}

		artifacts := Artifacts{
			LocalExists:  rec.LocalPath != "" && fsutil.FileExists(rec.LocalPath),
			OutputExists: rec.OutputPath != "" && fsutil.FileExists(rec.OutputPath),
		}
		newState, requeue := Reconcile(rec.State, artifacts)
		normalize(&rec, newState)

		r := &rec
		m.records = append(m.records, r)
		m.bySource[r.SourcePath] = r

		switch requeue {
		case RequeueDownload:
			requeueDownload = append(requeueDownload, r)
		case RequeueEncode:
			requeueEncode = append(requeueEncode, r)
		case RequeueUpload:
			requeueUpload = append(requeueUpload, r)
		}
	}
	total := len(m.records)
	m.mu.Unlock()

	for _, r := range requeueDownload {
		m.downloadQ.Push(r)
	}
	for _, r := range requeueEncode {
		m.encodeQ.Push(r)
	}
	for _, r := range requeueUpload {
		m.uploadQ.Push(r)
	}

	m.saveState()
	m.log.Info().
		Int("files", total).
		Int("download", len(requeueDownload)).
		Int("encode", len(requeueEncode)).
		Int("upload", len(requeueUpload)).
		Msg("resumed from saved state")
	return true, nil
}

// Cleanup deletes the staging directory, the state file inside it, and the
// in-memory registry. Irreversible; used by the explicit clear-queue command.
func (m *Manager) Cleanup() error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("staging: cannot clean up while the pipeline is running")
	}
	m.records = nil
	m.bySource = make(map[string]*Record)
	m.mu.Unlock()

	m.downloadQ.Drain()
	m.encodeQ.Drain()
	m.uploadQ.Drain()

	if err := os.RemoveAll(m.opts.StagingDir); err != nil {
		return fmt.Errorf("remove staging directory %s: %w", m.opts.StagingDir, err)
	}
	m.log.Info().Str(log.FieldPath, m.opts.StagingDir).Msg("staging directory removed")
	return nil
}

// --- stage workers ---

func (m *Manager) downloadLoop(ctx context.Context, encodeDone <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-encodeDone:
			// The encode loop only exits once nothing is left upstream, so
			// there is no more download work either.
			return
		default:
		}

		if !m.waitForCapacity(ctx, encodeDone) {
			return
		}

		rec, ok := m.downloadQ.PopWait(pollInterval)
		if !ok {
			continue
		}
		m.downloadOne(rec)
	}
}

// waitForCapacity blocks while backpressure holds. Returns false when the run
// was cancelled while paused.
func (m *Manager) waitForCapacity(ctx context.Context, encodeDone <-chan struct{}) bool {
	paused := false
	for {
		pause, reason := m.bp.ShouldPause()
		if !pause {
			return true
		}
		if !paused {
			paused = true
			metrics.BackpressurePausesTotal.WithLabelValues(reason).Inc()
			m.log.Debug().Str(log.FieldReason, reason).Msg("downloads paused")
		}
		select {
		case <-ctx.Done():
			return false
		case <-encodeDone:
			return false
		case <-time.After(pauseInterval):
		}
	}
}

func (m *Manager) downloadOne(rec *Record) {
	src := rec.SourcePath
	local := filepath.Join(m.opts.StagingDir, downloadPrefix+filepath.Base(src))

	m.transition(rec, StateDownloading, nil)

	if err := fsutil.EnsureDir(m.opts.StagingDir); err != nil {
		m.fail(rec, fmt.Sprintf("download failed: %v", err))
		return
	}
	n, err := fsutil.CopyFile(src, local)
	if err != nil {
		m.fail(rec, fmt.Sprintf("download failed: %v", err))
		return
	}
	metrics.StageBytesTotal.WithLabelValues("download").Add(float64(n))

	m.transition(rec, StateLocal, func(r *Record) {
		r.LocalPath = local
	})
	m.encodeQ.Push(rec)
	m.log.Debug().Str(log.FieldSourcePath, src).Int64(log.FieldBytes, n).Msg("downloaded")
}

// encodeLoop runs on the Start caller's goroutine. It exits once the download
// queue is empty and every record has left the download stages, meaning no
// further encode work can ever arrive. Cancellation is honored between files:
// the in-flight encode always finishes.
func (m *Manager) encodeLoop(ctx context.Context, encode EncodeFunc) {
	for {
		if ctx.Err() != nil {
			return
		}

		rec, ok := m.encodeQ.PopWait(pollInterval)
		if !ok {
			if m.downloadQ.Empty() && m.downloadsSettled() {
				return
			}
			continue
		}
		m.encodeOne(ctx, rec, encode)
	}
}

func (m *Manager) encodeOne(ctx context.Context, rec *Record, encode EncodeFunc) {
	m.transition(rec, StateEncoding, nil)

	m.mu.Lock()
	localIn := rec.LocalPath
	src := rec.SourcePath
	m.mu.Unlock()

	output := filepath.Join(m.opts.StagingDir, encodedPrefix+fsutil.Stem(localIn)+m.opts.OutputExt)
	if err := fsutil.EnsureDir(m.opts.StagingDir); err != nil {
		m.fail(rec, fmt.Sprintf("encoding failed: %v", err))
		return
	}

	err := encode(ctx, localIn, output)
	if err == nil && !fsutil.FileExists(output) {
		err = fmt.Errorf("encoder reported success but produced no output")
	}
	if err != nil {
		// Clean up both the staged input and any half-written output so a
		// failed file cannot leak staging space.
		m.removeQuiet(localIn)
		m.removeQuiet(output)
		m.fail(rec, fmt.Sprintf("encoding failed: %v", err))
		return
	}

	final := m.finalPath(src)
	m.removeQuiet(localIn)

	m.transition(rec, StateUploading, func(r *Record) {
		r.OutputPath = output
		r.FinalPath = final
	})
	m.uploadQ.Push(rec)
	m.log.Debug().Str(log.FieldSourcePath, src).Str(log.FieldOutputPath, output).Msg("encoded")
}

// uploadLoop terminates only after the encode-complete latch fires and its
// queue is empty: an empty queue during normal operation does not mean no
// more work is coming.
func (m *Manager) uploadLoop(ctx context.Context, encodeDone <-chan struct{}) {
	for {
		if ctx.Err() != nil {
			return
		}

		rec, ok := m.uploadQ.PopWait(pollInterval)
		if !ok {
			select {
			case <-encodeDone:
				if m.uploadQ.Empty() {
					return
				}
			default:
			}
			continue
		}
		m.uploadOne(rec)
	}
}

func (m *Manager) uploadOne(rec *Record) {
	m.mu.Lock()
	output := rec.OutputPath
	final := rec.FinalPath
	src := rec.SourcePath
	m.mu.Unlock()

	// The staging area is shared with external cleanup jobs; a vanished
	// output is a per-file failure, not a crash.
	if !fsutil.FileExists(output) {
		m.fail(rec, "upload failed: encoded output missing")
		return
	}

	if err := fsutil.EnsureDir(filepath.Dir(final)); err != nil {
		m.fail(rec, fmt.Sprintf("upload failed: %v", err))
		return
	}
	n, err := fsutil.CopyFile(output, final)
	if err != nil {
		m.fail(rec, fmt.Sprintf("upload failed: %v", err))
		return
	}
	metrics.StageBytesTotal.WithLabelValues("upload").Add(float64(n))

	if m.opts.ReplaceOriginal && src != final && fsutil.FileExists(src) {
		if err := os.Remove(src); err != nil {
			m.log.Warn().Err(err).Str(log.FieldSourcePath, src).Msg("could not delete original")
		}
	}
	m.removeQuiet(output)

	m.transition(rec, StateComplete, nil)
	m.log.Info().Str(log.FieldSourcePath, src).Str(log.FieldFinalPath, final).Msg("uploaded")
}

// --- registry helpers ---

// transition is the single mutation point for record state. It applies the
// state change and optional field updates under the registry lock, then
// persists, so the on-disk state never lags reality by more than one
// transition.
func (m *Manager) transition(rec *Record, to State, mutate func(*Record)) {
	m.mu.Lock()
	from := rec.State
	rec.State = to
	if mutate != nil {
		mutate(rec)
	}
	m.mu.Unlock()

	metrics.TransitionsTotal.WithLabelValues(string(to)).Inc()
	m.updateGauges()
	m.log.Debug().
		Str(log.FieldSourcePath, rec.SourcePath).
		Str(log.FieldOldState, string(from)).
		Str(log.FieldNewState, string(to)).
		Msg("state transition")
	m.saveState()
}

func (m *Manager) fail(rec *Record, msg string) {
	m.transition(rec, StateFailed, func(r *Record) {
		r.Error = msg
	})
	m.log.Error().Str(log.FieldSourcePath, rec.SourcePath).Str(log.FieldReason, msg).Msg("file failed")
}

func (m *Manager) countLocal() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rec := range m.records {
		if rec.State == StateLocal {
			n++
		}
	}
	return n
}

// downloadsSettled reports whether every record has left the download stages.
func (m *Manager) downloadsSettled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.State == StatePending || rec.State == StateDownloading {
			return false
		}
	}
	return true
}

func (m *Manager) updateGauges() {
	p := m.Progress()
	metrics.FilesByState.WithLabelValues(string(StatePending)).Set(float64(p.Pending))
	metrics.FilesByState.WithLabelValues(string(StateDownloading)).Set(float64(p.Downloading))
	metrics.FilesByState.WithLabelValues(string(StateLocal)).Set(float64(p.Local))
	metrics.FilesByState.WithLabelValues(string(StateEncoding)).Set(float64(p.Encoding))
	metrics.FilesByState.WithLabelValues(string(StateUploading)).Set(float64(p.Uploading))
	metrics.FilesByState.WithLabelValues(string(StateComplete)).Set(float64(p.Complete))
	metrics.FilesByState.WithLabelValues(string(StateFailed)).Set(float64(p.Failed))
}

// saveState persists a copy of the registry, best-effort. I/O failures are
// logged and counted, never escalated: persistence is advisory within a run.
func (m *Manager) saveState() error {
	if err := m.state.Save(m.Records()); err != nil {
		metrics.StateSaveFailuresTotal.Inc()
		m.log.Error().Err(err).Msg("could not persist queue state")
		return err
	}
	return nil
}

func (m *Manager) removeQuiet(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		m.log.Warn().Err(err).Str(log.FieldPath, path).Msg("could not remove staging file")
	}
}

// finalPath computes the destination at the source's storage: the source path
// with the output extension under replace-original, otherwise a
// "_reencoded" sibling next to the source.
func (m *Manager) finalPath(source string) string {
	if m.opts.ReplaceOriginal {
		return strings.TrimSuffix(source, filepath.Ext(source)) + m.opts.OutputExt
	}
	return filepath.Join(filepath.Dir(source), fsutil.Stem(source)+"_reencoded"+m.opts.OutputExt)
}
