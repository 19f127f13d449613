// Package jobs implements the classification job domain: the persisted
// job state machine, idempotent request signatures, and the orchestrator
// that fans a batch of questions out to the retrieval + judge pipeline.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the job state machine:
// pending → processing → {completed | failed | cancelled}.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Cancellable reports whether a job in this status may be cancelled.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusProcessing
}

// Reusable reports whether an existing job in this status satisfies an
// idempotent re-submission. Failed and cancelled jobs are not reused; a
// retry produces a fresh job instead.
func (s Status) Reusable() bool {
	return s != StatusFailed && s != StatusCancelled
}

// StatusReport is the polling view of a job: the raw counters plus the
// derived progress percentage and cancellability.
type StatusReport struct {
	JobID           uuid.UUID  `json:"job_id"`
	Status          Status     `json:"status"`
	Total           int        `json:"total"`
	Processed       int        `json:"processed"`
	Success         int        `json:"success"`
	Failed          int        `json:"failed"`
	ProgressPercent float64    `json:"progress_percent"`
	CanCancel       bool       `json:"can_cancel"`
	Error           *string    `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Job represents one persisted classification run. Job rows are
// append-only history: a retry of a failed run creates a new row rather
// than mutating the old one.
type Job struct {
	ID             uuid.UUID       `json:"id"`
	Status         Status          `json:"status"`
	Signature      string          `json:"signature"`
	TotalCount     int             `json:"total_count"`
	ProcessedCount int             `json:"processed_count"`
	SuccessCount   int             `json:"success_count"`
	FailedCount    int             `json:"failed_count"`
	Request        json.RawMessage `json:"request"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *string         `json:"error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// StatusReport derives the polling view from the job row.
func (j *Job) StatusReport() StatusReport {
	var percent float64
	if j.TotalCount > 0 {
		percent = 100 * float64(j.ProcessedCount) / float64(j.TotalCount)
	}

	return StatusReport{
		JobID:           j.ID,
		Status:          j.Status,
		Total:           j.TotalCount,
		Processed:       j.ProcessedCount,
		Success:         j.SuccessCount,
		Failed:          j.FailedCount,
		ProgressPercent: percent,
		CanCancel:       j.Status.Cancellable(),
		Error:           j.Error,
		CreatedAt:       j.CreatedAt,
		StartedAt:       j.StartedAt,
		CompletedAt:     j.CompletedAt,
	}
}
