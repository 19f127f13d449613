// Package apply implements the result applier: given judged verdicts
// from a completed classification job, it decides per question whether
// the lecture assignment is mutated, held for review, or rejected, and
// persists evidence links either way. The whole batch runs in a single
// transaction.
package apply

import (
	"github.com/google/uuid"
)

// Mode selects how aggressively verdicts mutate lecture assignments.
type Mode string

const (
	// ModeAuto applies only verdicts that clear the confidence gate.
	ModeAuto Mode = "auto"
	// ModeAll applies every valid matched verdict; weak matches still
	// require the explicit weak-allow flag.
	ModeAll Mode = "all"
)

// Valid reports whether m is a recognized apply mode.
func (m Mode) Valid() bool {
	return m == ModeAuto || m == ModeAll
}

// RowStatus records the per-question outcome of an apply batch.
type RowStatus string

const (
	// StatusApplied means the question's lecture assignment was mutated.
	StatusApplied RowStatus = "applied"
	// StatusSuggested means bookkeeping was written but the gate held
	// the assignment for review.
	StatusSuggested RowStatus = "suggested"
	// StatusWeakHeld means a weak match was held because weak applies
	// are not allowed.
	StatusWeakHeld RowStatus = "weak_held"
	// StatusNoMatch means the verdict chose no lecture.
	StatusNoMatch RowStatus = "no_match"
	// StatusOutOfCandidates means the verdict's lecture was not among
	// the originally offered candidates and was rejected outright.
	StatusOutOfCandidates RowStatus = "out_of_candidates"
	// StatusFailed means the verdict itself recorded a pipeline failure.
	StatusFailed RowStatus = "failed"
)

// Row reports the outcome for one question.
type Row struct {
	QuestionID int64     `json:"question_id"`
	Status     RowStatus `json:"status"`
	LectureID  *int64    `json:"lecture_id,omitempty"`
	Confidence float64   `json:"confidence"`
	Detail     string    `json:"detail,omitempty"`
}

// Report summarizes an apply batch.
type Report struct {
	JobID        uuid.UUID `json:"job_id"`
	Mode         Mode      `json:"mode"`
	AppliedCount int       `json:"applied_count"`
	Rows         []Row     `json:"rows"`
}
