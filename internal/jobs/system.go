package jobs

import (
	"context"

	"github.com/google/uuid"

	"github.com/lectern-app/lectern/internal/apply"
	"github.com/lectern-app/lectern/internal/judge"
	"github.com/lectern-app/lectern/internal/lectures"
	"github.com/lectern-app/lectern/pkg/pagination"
)

// System defines the public contract for classification job operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Job], error)

	Start(ctx context.Context, cmd StartCommand) (*StartResult, error)
	Status(ctx context.Context, id uuid.UUID) (*StatusReport, error)
	Cancel(ctx context.Context, id uuid.UUID) (*Job, error)
	Result(ctx context.Context, id uuid.UUID) (*ResultReport, error)
	Diagnostics(ctx context.Context, id uuid.UUID, opts DiagnosticsOptions) (*DiagnosticsReport, error)
	Apply(ctx context.Context, id uuid.UUID, cmd ApplyCommand) (*apply.Report, error)
}

// StartCommand carries a classification batch request.
type StartCommand struct {
	QuestionIDs    []int64         `json:"question_ids"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Scope          *lectures.Scope `json:"scope,omitempty"`
	// Force creates a fresh job, bypassing signature reuse of prior
	// terminal runs. An identical job that is still pending or
	// processing is converged on rather than duplicated.
	Force bool `json:"force,omitempty"`
	// RetryFailed creates a fresh job when the matching prior job
	// failed or was cancelled; without it, such a submission is
	// rejected as a duplicate.
	RetryFailed bool `json:"retry_failed,omitempty"`
}

// StartResult reports the job a start request resolved to.
type StartResult struct {
	JobID  uuid.UUID `json:"job_id"`
	Status Status    `json:"status"`
	Reused bool      `json:"reused"`
}

// ApplyCommand requests application of a job's verdicts. An empty
// QuestionIDs list applies every question in the job.
type ApplyCommand struct {
	QuestionIDs []int64    `json:"question_ids,omitempty"`
	Mode        apply.Mode `json:"mode"`
}

// QuestionResult is one question's verdict in a result report.
type QuestionResult struct {
	QuestionID   int64              `json:"question_id"`
	Confidence   float64            `json:"confidence"`
	DecisionMode judge.DecisionMode `json:"decision_mode"`
	Reason       string             `json:"reason"`
	Failed       bool               `json:"failed,omitempty"`
	Error        string             `json:"error,omitempty"`
}

// LectureGroup collects the questions a job matched to one lecture.
type LectureGroup struct {
	LectureID   int64            `json:"lecture_id"`
	LecturePath string           `json:"lecture_path,omitempty"`
	Questions   []QuestionResult `json:"questions"`
}

// ResultSummary totals a finished job's outcomes.
type ResultSummary struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Success   int `json:"success"`
	Failed    int `json:"failed"`
	Matched   int `json:"matched"`
	NoMatch   int `json:"no_match"`
}

// ResultReport presents a terminal job's verdicts grouped by matched
// lecture, with unmatched and failed questions listed separately.
type ResultReport struct {
	JobID     uuid.UUID        `json:"job_id"`
	Status    Status           `json:"status"`
	Summary   ResultSummary    `json:"summary"`
	Lectures  []LectureGroup   `json:"lectures"`
	Unmatched []QuestionResult `json:"unmatched"`
}

// DiagnosticsOptions narrows a diagnostics request. An empty
// QuestionIDs list inspects every question in the job's request.
type DiagnosticsOptions struct {
	QuestionIDs []int64 `json:"question_ids,omitempty"`
	IncludeRows bool    `json:"include_rows,omitempty"`
}

// RejudgeStats aggregates second-pass bookkeeping across a job.
type RejudgeStats struct {
	Attempted        int `json:"attempted"`
	DecidedByPassTwo int `json:"decided_by_pass_two"`
	WeakMatches      int `json:"weak_matches"`
}

// DiagnosticsSummary counts verdict dispositions for review tooling.
type DiagnosticsSummary struct {
	Requested       int          `json:"requested"`
	Inspected       int          `json:"inspected"`
	Applyable       int          `json:"applyable"`
	NoMatch         int          `json:"no_match"`
	OutOfCandidates int          `json:"out_of_candidates"`
	MissingResult   int          `json:"missing_result"`
	FailedVerdicts  int          `json:"failed_verdicts"`
	Rejudge         RejudgeStats `json:"rejudge"`
}

// DiagnosticsRow is one question's verdict disposition.
type DiagnosticsRow struct {
	QuestionID       int64              `json:"question_id"`
	LectureID        *int64             `json:"lecture_id,omitempty"`
	Confidence       float64            `json:"confidence"`
	DecisionMode     judge.DecisionMode `json:"decision_mode"`
	NoMatch          bool               `json:"no_match"`
	Applyable        bool               `json:"applyable"`
	RejudgeAttempted bool               `json:"rejudge_attempted"`
	DecidedBy        judge.Pass         `json:"decided_by"`
	Reason           string             `json:"reason"`
}

// DiagnosticsReport summarizes a job's verdicts without mutating
// anything.
type DiagnosticsReport struct {
	JobID   uuid.UUID          `json:"job_id"`
	Status  Status             `json:"status"`
	Summary DiagnosticsSummary `json:"summary"`
	Rows    []DiagnosticsRow   `json:"rows,omitempty"`
}
