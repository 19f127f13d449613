package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/lectern-app/lectern/internal/apply"
	"github.com/lectern-app/lectern/internal/judge"
	"github.com/lectern-app/lectern/pkg/pagination"
	"github.com/lectern-app/lectern/pkg/query"
	"github.com/lectern-app/lectern/pkg/repository"
)

const jobColumns = `id, status, signature, total_count, processed_count,
	success_count, failed_count, request, result, error,
	created_at, started_at, completed_at`

type repo struct {
	db         *sql.DB
	cfg        Config
	pipeline   *Pipeline
	applier    *apply.Applier
	logger     *slog.Logger
	pagination pagination.Config

	// runCtx outlives individual requests; orchestration goroutines run
	// under it so a client disconnect does not abort a started job.
	runCtx context.Context
}

// New creates a job repository implementing the System interface.
// runCtx governs background orchestration and should be the server
// lifecycle context.
func New(
	runCtx context.Context,
	db *sql.DB,
	cfg Config,
	pipeline *Pipeline,
	applier *apply.Applier,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		cfg:        cfg,
		pipeline:   pipeline,
		applier:    applier,
		logger:     logger.With("system", "jobs"),
		pagination: pagination,
		runCtx:     runCtx,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Job], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Signature")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanJob)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Start(ctx context.Context, cmd StartCommand) (*StartResult, error) {
	ids := canonicalIDs(cmd.QuestionIDs)
	if len(ids) == 0 {
		return nil, ErrNoQuestions
	}

	sig := Signature(ids, cmd.IdempotencyKey, cmd.Scope)

	if !cmd.Force {
		existing, err := r.findBySignature(ctx, sig)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if existing.Status.Reusable() {
				r.logger.Info("job reused",
					"job_id", existing.ID,
					"status", existing.Status,
				)
				return &StartResult{JobID: existing.ID, Status: existing.Status, Reused: true}, nil
			}
			// A failed or cancelled prior run is never reused; retrying
			// it requires explicit intent.
			if !cmd.RetryFailed {
				return nil, fmt.Errorf("%w: prior job %s is %s", ErrDuplicate, existing.ID, existing.Status)
			}
		}
	}

	env := RequestEnvelope{
		QuestionIDs:    ids,
		IdempotencyKey: cmd.IdempotencyKey,
		Scope:          cmd.Scope,
	}
	raw, err := encodeRequest(env)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	insertQ := fmt.Sprintf(`
		INSERT INTO classification_jobs(id, status, signature, total_count, request)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, jobColumns)

	job, err := repository.QueryOne(ctx, r.db, insertQ,
		[]any{uuid.New(), StatusPending, sig, len(ids), raw},
		scanJob,
	)
	if err != nil {
		mapped := repository.MapError(err, ErrNotFound, ErrDuplicate)
		// The active-signature unique index rejects the loser of a
		// concurrent duplicate submission; converge on the winner.
		if errors.Is(mapped, ErrDuplicate) {
			winner, findErr := r.findBySignature(ctx, sig)
			if findErr == nil && winner != nil {
				r.logger.Info("job reused",
					"job_id", winner.ID,
					"status", winner.Status,
				)
				return &StartResult{JobID: winner.ID, Status: winner.Status, Reused: true}, nil
			}
		}
		return nil, mapped
	}

	r.logger.Info("job created",
		"job_id", job.ID,
		"questions", len(ids),
		"scoped", !cmd.Scope.IsZero(),
	)

	go r.orchestrate(r.runCtx, &job, env)

	return &StartResult{JobID: job.ID, Status: job.Status, Reused: false}, nil
}

func (r *repo) Status(ctx context.Context, id uuid.UUID) (*StatusReport, error) {
	job, err := r.find(ctx, id)
	if err != nil {
		return nil, err
	}

	report := job.StatusReport()
	return &report, nil
}

// Cancel transitions a pending or processing job to cancelled.
// Cancelling an already-cancelled job is a no-op success; cancelling a
// completed or failed job is a conflict.
func (r *repo) Cancel(ctx context.Context, id uuid.UUID) (*Job, error) {
	cancelQ := fmt.Sprintf(`
		UPDATE classification_jobs
		SET status = $1, completed_at = NOW()
		WHERE id = $2 AND status IN ($3, $4)
		RETURNING %s`, jobColumns)

	job, err := repository.QueryOne(ctx, r.db, cancelQ,
		[]any{StatusCancelled, id, StatusPending, StatusProcessing},
		scanJob,
	)
	if err == nil {
		r.logger.Info("job cancelled", "job_id", job.ID)
		return &job, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cancel job: %w", err)
	}

	existing, findErr := r.find(ctx, id)
	if findErr != nil {
		return nil, findErr
	}
	if existing.Status == StatusCancelled {
		return existing, nil
	}
	return nil, ErrNotCancellable
}

func (r *repo) Result(ctx context.Context, id uuid.UUID) (*ResultReport, error) {
	job, err := r.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !job.Status.Terminal() {
		return nil, ErrNotTerminal
	}

	env := parseResult(job.Result)

	report := &ResultReport{
		JobID:  job.ID,
		Status: job.Status,
		Summary: ResultSummary{
			Total:     job.TotalCount,
			Processed: job.ProcessedCount,
			Success:   job.SuccessCount,
			Failed:    job.FailedCount,
		},
		Lectures:  []LectureGroup{},
		Unmatched: []QuestionResult{},
	}

	groupIndex := make(map[int64]int)
	for _, v := range env.Verdicts {
		qr := QuestionResult{
			QuestionID:   v.QuestionID,
			Confidence:   v.Confidence,
			DecisionMode: v.DecisionMode,
			Reason:       v.Reason,
			Failed:       v.Failed,
			Error:        v.Error,
		}

		if v.Failed || v.NoMatch || v.LectureID == nil {
			report.Summary.NoMatch++
			report.Unmatched = append(report.Unmatched, qr)
			continue
		}

		report.Summary.Matched++
		idx, ok := groupIndex[*v.LectureID]
		if !ok {
			idx = len(report.Lectures)
			groupIndex[*v.LectureID] = idx
			report.Lectures = append(report.Lectures, LectureGroup{LectureID: *v.LectureID})
		}
		report.Lectures[idx].Questions = append(report.Lectures[idx].Questions, qr)
	}

	lectureIDs := make([]int64, len(report.Lectures))
	for i, g := range report.Lectures {
		lectureIDs[i] = g.LectureID
	}
	paths, err := r.pipeline.Lectures.Paths(ctx, lectureIDs)
	if err != nil {
		r.logger.Warn("lecture path lookup failed", "error", err)
	} else {
		for i := range report.Lectures {
			report.Lectures[i].LecturePath = paths[report.Lectures[i].LectureID]
		}
	}

	return report, nil
}

func (r *repo) Diagnostics(ctx context.Context, id uuid.UUID, opts DiagnosticsOptions) (*DiagnosticsReport, error) {
	job, err := r.find(ctx, id)
	if err != nil {
		return nil, err
	}

	request := parseRequest(job.Request)
	result := parseResult(job.Result)

	requested := request.QuestionIDs
	if len(opts.QuestionIDs) > 0 {
		requested = canonicalIDs(opts.QuestionIDs)
	}
	wanted := make(map[int64]bool, len(requested))
	for _, qid := range requested {
		wanted[qid] = true
	}

	report := &DiagnosticsReport{
		JobID:   job.ID,
		Status:  job.Status,
		Summary: DiagnosticsSummary{Requested: len(requested)},
	}

	inspected := make(map[int64]bool)
	for _, v := range result.Verdicts {
		if !wanted[v.QuestionID] {
			continue
		}
		inspected[v.QuestionID] = true
		report.Summary.Inspected++

		row := DiagnosticsRow{
			QuestionID:       v.QuestionID,
			LectureID:        v.LectureID,
			Confidence:       v.Confidence,
			DecisionMode:     v.DecisionMode,
			NoMatch:          v.NoMatch,
			RejudgeAttempted: v.Rejudge.Attempted,
			DecidedBy:        v.Rejudge.DecidedBy,
			Reason:           v.Reason,
		}

		if v.Rejudge.Attempted {
			report.Summary.Rejudge.Attempted++
		}
		if v.Rejudge.DecidedBy == judge.PassTwo {
			report.Summary.Rejudge.DecidedByPassTwo++
		}
		if v.DecisionMode == judge.DecisionWeakMatch {
			report.Summary.Rejudge.WeakMatches++
		}

		switch {
		case v.Failed:
			report.Summary.FailedVerdicts++
		case v.NoMatch || v.LectureID == nil:
			report.Summary.NoMatch++
		case !slices.Contains(v.OfferedLectureIDs, *v.LectureID):
			report.Summary.OutOfCandidates++
		default:
			report.Summary.Applyable++
			row.Applyable = true
		}

		if opts.IncludeRows {
			report.Rows = append(report.Rows, row)
		}
	}

	for _, qid := range requested {
		if !inspected[qid] {
			report.Summary.MissingResult++
		}
	}

	return report, nil
}

func (r *repo) Apply(ctx context.Context, id uuid.UUID, cmd ApplyCommand) (*apply.Report, error) {
	job, err := r.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !job.Status.Terminal() {
		return nil, ErrNotTerminal
	}

	env := parseResult(job.Result)

	verdicts := env.Verdicts
	if len(cmd.QuestionIDs) > 0 {
		wanted := make(map[int64]bool, len(cmd.QuestionIDs))
		for _, qid := range cmd.QuestionIDs {
			wanted[qid] = true
		}

		verdicts = make([]judge.Verdict, 0, len(cmd.QuestionIDs))
		for _, v := range env.Verdicts {
			if wanted[v.QuestionID] {
				verdicts = append(verdicts, v)
			}
		}
	}

	return r.applier.Apply(ctx, job.ID, verdicts, cmd.Mode)
}

func (r *repo) find(ctx context.Context, id uuid.UUID) (*Job, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	job, err := repository.QueryOne(ctx, r.db, q, args, scanJob)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &job, nil
}

// findBySignature returns the most recent job matching sig inside the
// reuse lookback window, or nil when none exists.
func (r *repo) findBySignature(ctx context.Context, sig string) (*Job, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM classification_jobs
		WHERE signature = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT 1`, jobColumns)

	since := time.Now().Add(-r.cfg.ReuseLookbackDuration())

	job, err := repository.QueryOne(ctx, r.db, q, []any{sig, since}, scanJob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup job signature: %w", err)
	}
	return &job, nil
}

func (r *repo) currentStatus(ctx context.Context, id uuid.UUID) (Status, error) {
	var status Status
	err := r.db.QueryRowContext(ctx,
		"SELECT status FROM classification_jobs WHERE id = $1", id,
	).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("read job status: %w", err)
	}
	return status, nil
}

func (r *repo) markProcessing(ctx context.Context, id uuid.UUID) error {
	return repository.ExecExpectOne(ctx, r.db, `
		UPDATE classification_jobs
		SET status = $1, started_at = NOW()
		WHERE id = $2 AND status = $3`,
		StatusProcessing, id, StatusPending,
	)
}

func (r *repo) recordProgress(ctx context.Context, id uuid.UUID, processed, succeeded, failed int) error {
	return repository.ExecExpectOne(ctx, r.db, `
		UPDATE classification_jobs
		SET processed_count = $1, success_count = $2, failed_count = $3
		WHERE id = $4`,
		processed, succeeded, failed, id,
	)
}

func (r *repo) storeResult(ctx context.Context, id uuid.UUID, result []byte) error {
	return repository.ExecExpectOne(ctx, r.db, `
		UPDATE classification_jobs
		SET result = $1
		WHERE id = $2`,
		result, id,
	)
}

func (r *repo) markCompleted(ctx context.Context, id uuid.UUID, result []byte) error {
	return repository.ExecExpectOne(ctx, r.db, `
		UPDATE classification_jobs
		SET status = $1, result = $2, completed_at = NOW()
		WHERE id = $3 AND status = $4`,
		StatusCompleted, result, id, StatusProcessing,
	)
}

func (r *repo) markFailed(ctx context.Context, id uuid.UUID, cause error) {
	msg := cause.Error()
	if err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE classification_jobs
		SET status = $1, error = $2, completed_at = NOW()
		WHERE id = $3 AND status IN ($4, $5)`,
		StatusFailed, msg, id, StatusPending, StatusProcessing,
	); err != nil {
		r.logger.Error("failed to mark job failed", "job_id", id, "error", err)
	}
}
