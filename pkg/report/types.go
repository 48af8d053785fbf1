// Package report provides JSON-based run reporting with live updates.
//
// Layout:
//   - report.json: run index (small, rewritten on every terminal update, mutex-protected)
//   - junit.xml: written once at the end of the run for CI systems
//
// The index file is the single source of truth for scenario status.
package report

import (
	"time"

	"github.com/devicelab-dev/swaglabs-runner/pkg/core"
)

// Version is the report schema version.
const Version = "1.0.0"

// Status represents the execution status.
type Status string

// Status values.
const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusErrored Status = "errored"
	StatusSkipped Status = "skipped"
)

// FromCore converts a scenario status to its report form.
func FromCore(s core.Status) Status {
	return Status(s.String())
}

// IsTerminal returns true if the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusErrored || s == StatusSkipped
}

// Index is the main report file.
type Index struct {
	Version     string          `json:"version"`
	RunID       string          `json:"runId"`
	UpdateSeq   uint64          `json:"updateSeq"`
	Status      Status          `json:"status"`
	StartTime   time.Time       `json:"startTime"`
	EndTime     *time.Time      `json:"endTime,omitempty"`
	LastUpdated time.Time       `json:"lastUpdated"`
	Devices     []Device        `json:"devices"`
	App         App             `json:"app"`
	Runner      RunnerInfo      `json:"runner"`
	Summary     Summary         `json:"summary"`
	Scenarios   []ScenarioEntry `json:"scenarios"`
}

// Device contains device information.
type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Platform string `json:"platform"` // android, ios, mock
}

// App contains application information.
type App struct {
	ID      string `json:"id"` // Bundle ID or package name
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// RunnerInfo describes the binary that produced the report.
type RunnerInfo struct {
	Version string `json:"version"`
	Driver  string `json:"driver"` // appium, mock
}

// Summary contains aggregated counts.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
	Skipped int `json:"skipped"`
	Running int `json:"running"`
	Pending int `json:"pending"`
}

// ScenarioEntry is the index entry for one scenario.
type ScenarioEntry struct {
	Index          int               `json:"index"`              // Original position
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Tags           []string          `json:"tags,omitempty"`
	Status         Status            `json:"status"`
	Device         string            `json:"device,omitempty"`   // Device that ran it
	UpdateSeq      uint64            `json:"updateSeq"`
	StartTime      *time.Time        `json:"startTime,omitempty"`
	EndTime        *time.Time        `json:"endTime,omitempty"`
	Duration       *int64            `json:"duration,omitempty"` // milliseconds
	Attempts       int               `json:"attempts"`
	AttemptHistory []AttemptEntry    `json:"attemptHistory,omitempty"`
	Error          *Error            `json:"error,omitempty"`
	Attachments    []core.Attachment `json:"attachments,omitempty"`
}

// AttemptEntry tracks retry attempts.
type AttemptEntry struct {
	Attempt  int    `json:"attempt"`
	Status   Status `json:"status"`
	Duration int64  `json:"duration"` // milliseconds
	Error    string `json:"error,omitempty"`
}

// Error contains error details.
type Error struct {
	Type    string `json:"type"` // assertion, timeout, connection, app, config
	Message string `json:"message"`
}

// ErrorFrom builds a report error from a scenario failure. Nil stays nil.
func ErrorFrom(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Type:    core.CategoryOf(err).String(),
		Message: err.Error(),
	}
}

// ScenarioUpdate contains the fields to update in the index for a scenario.
type ScenarioUpdate struct {
	Status    Status
	Device    string
	StartTime *time.Time
	EndTime   *time.Time
	Duration  *int64
	Error     *Error

	// Attachments are added to the entry, not replaced.
	Attachments []core.Attachment
}
