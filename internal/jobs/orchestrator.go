package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lectern-app/lectern/internal/judge"
	"github.com/lectern-app/lectern/internal/lectures"
	"github.com/lectern-app/lectern/internal/questions"
	"github.com/lectern-app/lectern/internal/search"
)

// Classifier is the judge surface the orchestrator depends on,
// satisfied by *judge.Judge.
type Classifier interface {
	Classify(ctx context.Context, question string, candidates []search.Candidate) (judge.Verdict, error)
}

// Pipeline bundles the per-question classification dependencies:
// question loading, lexical retrieval, candidate aggregation, and the
// judge.
type Pipeline struct {
	Questions questions.System
	Lectures  lectures.System
	Engine    *search.Engine
	Aggregate search.AggregateOptions
	Judge     Classifier
	TopN      int
	Logger    *slog.Logger
}

// classify runs retrieval + aggregation + judging for one question.
// It never returns an error: pipeline failures become failed verdicts
// so one bad question cannot abort a batch.
func (p *Pipeline) classify(ctx context.Context, q questions.Question, scope []int64) judge.Verdict {
	text := q.SearchText()

	hits, err := p.Engine.Search(ctx, text, p.TopN, scope)
	if err != nil {
		return failedVerdict(q.ID, fmt.Errorf("search: %w", err))
	}

	candidates := search.Aggregate(hits, p.Aggregate)
	if len(candidates) == 0 {
		v := judge.Verdict{
			QuestionID:        q.ID,
			Reason:            "no candidate lectures retrieved",
			NoMatch:           true,
			DecisionMode:      judge.DecisionNoMatch,
			Evidence:          []judge.Citation{},
			OfferedLectureIDs: []int64{},
			Rejudge:           judge.Rejudge{DecidedBy: judge.PassOne},
		}
		return v
	}

	p.attachPaths(ctx, candidates)

	v, err := p.Judge.Classify(ctx, text, candidates)
	if err != nil {
		return failedVerdict(q.ID, fmt.Errorf("judge: %w", err))
	}

	v.QuestionID = q.ID
	return v
}

// attachPaths decorates candidates with lecture display paths for the
// judge prompt. Path lookup failure is non-fatal; the judge can work
// from ids alone.
func (p *Pipeline) attachPaths(ctx context.Context, candidates []search.Candidate) {
	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.LectureID
	}

	paths, err := p.Lectures.Paths(ctx, ids)
	if err != nil {
		p.Logger.Warn("lecture path lookup failed", "error", err)
		return
	}

	for i := range candidates {
		candidates[i].LecturePath = paths[candidates[i].LectureID]
	}
}

func failedVerdict(questionID int64, err error) judge.Verdict {
	return judge.Verdict{
		QuestionID:        questionID,
		Reason:            "classification failed",
		NoMatch:           true,
		DecisionMode:      judge.DecisionNoMatch,
		Evidence:          []judge.Citation{},
		OfferedLectureIDs: []int64{},
		Rejudge:           judge.Rejudge{DecidedBy: judge.PassOne},
		Failed:            true,
		Error:             err.Error(),
	}
}

type indexedVerdict struct {
	index   int
	verdict judge.Verdict
}

// progressStore is the slice of job persistence the collector needs:
// the live status read backing cooperative cancellation, and the
// counter updates. Satisfied by *repo.
type progressStore interface {
	currentStatus(ctx context.Context, id uuid.UUID) (Status, error)
	recordProgress(ctx context.Context, id uuid.UUID, processed, succeeded, failed int) error
}

// collection is the outcome of draining one job's worker results.
type collection struct {
	verdicts  []judge.Verdict
	processed int
	succeeded int
	failed    int
	cancelled bool
}

// collectVerdicts drains worker results as the sole mutator of the
// counters and the verdict slice, so progress is monotonically
// consistent even though classification is parallel. Job status is
// re-read before accepting each result; once cancellation is observed
// it is sticky and later results are discarded. Accepted verdicts are
// returned in request order, not completion order.
func collectVerdicts(
	ctx context.Context,
	store progressStore,
	jobID uuid.UUID,
	total int,
	results <-chan indexedVerdict,
	logger *slog.Logger,
) collection {
	verdicts := make([]*judge.Verdict, total)
	var col collection

	for res := range results {
		if !col.cancelled {
			status, err := store.currentStatus(ctx, jobID)
			if err != nil {
				logger.Warn("status check failed", "error", err)
			} else if status == StatusCancelled {
				col.cancelled = true
			}
		}

		if col.cancelled {
			continue
		}

		col.processed++
		if res.verdict.Failed {
			col.failed++
		} else {
			col.succeeded++
		}

		v := res.verdict
		verdicts[res.index] = &v

		if err := store.recordProgress(ctx, jobID, col.processed, col.succeeded, col.failed); err != nil {
			logger.Warn("progress update failed", "error", err)
		}
	}

	col.verdicts = make([]judge.Verdict, 0, total)
	for _, v := range verdicts {
		if v != nil {
			col.verdicts = append(col.verdicts, *v)
		}
	}
	return col
}

// orchestrate drives one job from pending to a terminal state. It runs
// on a background goroutine detached from the originating request.
// Workers classify questions concurrently; this goroutine is the sole
// consumer of their results and the sole mutator of job counters.
func (r *repo) orchestrate(ctx context.Context, job *Job, env RequestEnvelope) {
	logger := r.logger.With("job_id", job.ID)

	if err := r.markProcessing(ctx, job.ID); err != nil {
		logger.Error("job start failed", "error", err)
		r.markFailed(ctx, job.ID, fmt.Errorf("start job: %w", err))
		return
	}

	scope, err := r.pipeline.Lectures.ResolveScope(ctx, env.Scope)
	if err != nil {
		logger.Error("scope resolution failed", "error", err)
		r.markFailed(ctx, job.ID, fmt.Errorf("resolve scope: %w", err))
		return
	}

	loaded, err := r.pipeline.Questions.FindMany(ctx, env.QuestionIDs)
	if err != nil {
		logger.Error("question load failed", "error", err)
		r.markFailed(ctx, job.ID, fmt.Errorf("load questions: %w", err))
		return
	}

	byID := make(map[int64]questions.Question, len(loaded))
	for _, q := range loaded {
		byID[q.ID] = q
	}

	results := make(chan indexedVerdict)

	g, workCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	go func() {
		for i, id := range env.QuestionIDs {
			g.Go(func() error {
				q, ok := byID[id]
				if !ok {
					results <- indexedVerdict{i, failedVerdict(id, questions.ErrNotFound)}
					return nil
				}
				results <- indexedVerdict{i, r.pipeline.classify(workCtx, q, scope)}
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	col := collectVerdicts(ctx, r, job.ID, len(env.QuestionIDs), results, logger)

	raw, err := encodeResult(ResultEnvelope{Verdicts: col.verdicts})
	if err != nil {
		logger.Error("result encoding failed", "error", err)
		r.markFailed(ctx, job.ID, fmt.Errorf("encode result: %w", err))
		return
	}

	if col.cancelled {
		if err := r.storeResult(ctx, job.ID, raw); err != nil {
			logger.Warn("result store on cancelled job failed", "error", err)
		}
		logger.Info("job cancelled", "processed", col.processed)
		return
	}

	if err := r.markCompleted(ctx, job.ID, raw); err != nil {
		logger.Error("job completion failed", "error", err)
		r.markFailed(ctx, job.ID, fmt.Errorf("complete job: %w", err))
		return
	}

	logger.Info("job completed",
		"total", len(env.QuestionIDs),
		"processed", col.processed,
		"succeeded", col.succeeded,
		"failed", col.failed,
	)
}
