package report

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/devicelab-dev/swaglabs-runner/pkg/logger"
)

// IndexWriter provides thread-safe updates to the report index.
// Parallel device workers update the index concurrently.
type IndexWriter struct {
	mu    sync.Mutex
	path  string
	index *Index

	// Debouncing for progress updates
	pending map[string]*ScenarioUpdate
	timer   *time.Timer
	closed  bool
}

// NewIndexWriter creates a new IndexWriter.
func NewIndexWriter(outputDir string, index *Index) *IndexWriter {
	return &IndexWriter{
		path:    filepath.Join(outputDir, "report.json"),
		index:   index,
		pending: make(map[string]*ScenarioUpdate),
	}
}

// Start marks the run as started.
func (w *IndexWriter) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	w.index.Status = StatusRunning
	w.index.StartTime = now

	w.flushLocked()
}

// UpdateScenario updates a scenario entry in the index.
// Terminal states flush immediately; progress updates are debounced.
func (w *IndexWriter) UpdateScenario(id string, update *ScenarioUpdate) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[id] = update

	if update.Status.IsTerminal() || w.closed {
		w.flushLocked()
		return
	}

	// Debounced flush for progress updates (100ms)
	if w.timer == nil {
		w.timer = time.AfterFunc(100*time.Millisecond, w.flush)
	}
}

// RecordAttempt records a retry attempt for a scenario.
func (w *IndexWriter) RecordAttempt(id string, attempt int, status Status, duration int64, errMsg string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range w.index.Scenarios {
		if w.index.Scenarios[i].ID == id {
			s := &w.index.Scenarios[i]
			s.Attempts = attempt
			s.AttemptHistory = append(s.AttemptHistory, AttemptEntry{
				Attempt:  attempt,
				Status:   status,
				Duration: duration,
				Error:    errMsg,
			})
			break
		}
	}

	w.flushLocked()
}

// End marks the run as complete.
func (w *IndexWriter) End() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	w.index.EndTime = &now
	w.applyPending()
	w.index.Status = w.computeRunStatus()
	w.flushLocked()
}

// Close flushes any pending updates and stops the debounce timer.
func (w *IndexWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.flushLocked()
}

// Index returns a snapshot of the current index.
func (w *IndexWriter) Index() Index {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := *w.index
	snap.Scenarios = make([]ScenarioEntry, len(w.index.Scenarios))
	copy(snap.Scenarios, w.index.Scenarios)
	return snap
}

func (w *IndexWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushLocked()
}

// flushLocked applies pending updates and writes report.json. Caller holds w.mu.
func (w *IndexWriter) flushLocked() {
	w.applyPending()

	w.index.UpdateSeq++
	w.index.LastUpdated = time.Now()
	w.index.Summary = w.computeSummary()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}

	if err := atomicWriteJSON(w.path, w.index); err != nil {
		logger.Error("report: write %s: %v", w.path, err)
	}
}

func (w *IndexWriter) applyPending() {
	for id, update := range w.pending {
		w.applyUpdate(id, update)
	}
	w.pending = make(map[string]*ScenarioUpdate)
}

func (w *IndexWriter) applyUpdate(id string, update *ScenarioUpdate) {
	for i := range w.index.Scenarios {
		if w.index.Scenarios[i].ID != id {
			continue
		}
		s := &w.index.Scenarios[i]
		s.Status = update.Status
		if update.Device != "" {
			s.Device = update.Device
		}
		if update.StartTime != nil {
			s.StartTime = update.StartTime
		}
		if update.EndTime != nil {
			s.EndTime = update.EndTime
		}
		if update.Duration != nil {
			s.Duration = update.Duration
		}
		s.Error = update.Error
		s.Attachments = append(s.Attachments, update.Attachments...)
		s.UpdateSeq++
		return
	}
}

func (w *IndexWriter) computeSummary() Summary {
	var s Summary
	for _, e := range w.index.Scenarios {
		s.Total++
		switch e.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusErrored:
			s.Errored++
		case StatusSkipped:
			s.Skipped++
		case StatusRunning:
			s.Running++
		case StatusPending:
			s.Pending++
		}
	}
	return s
}

// computeRunStatus determines overall run status from the scenarios.
func (w *IndexWriter) computeRunStatus() Status {
	hasFailure := false
	hasError := false

	for _, e := range w.index.Scenarios {
		switch e.Status {
		case StatusFailed:
			hasFailure = true
		case StatusErrored:
			hasError = true
		}
		if !e.Status.IsTerminal() {
			return StatusRunning
		}
	}

	switch {
	case hasFailure:
		return StatusFailed
	case hasError:
		return StatusErrored
	default:
		return StatusPassed
	}
}
