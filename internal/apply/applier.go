package apply

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lectern-app/lectern/internal/judge"
	"github.com/lectern-app/lectern/pkg/repository"
)

// sourceAI tags evidence rows produced by the classification pipeline,
// as opposed to manually curated links.
const sourceAI = "ai"

// Applier persists apply decisions. One Apply call is one transaction:
// either every assignment mutation and evidence link in the batch
// commits, or none do.
type Applier struct {
	db     *sql.DB
	cfg    Config
	model  string
	logger *slog.Logger
}

// New creates an Applier. model tags the bookkeeping rows with the
// judge model that produced the verdicts.
func New(db *sql.DB, cfg Config, model string, logger *slog.Logger) *Applier {
	return &Applier{
		db:     db,
		cfg:    cfg,
		model:  model,
		logger: logger.With("system", "apply"),
	}
}

type chunkRow struct {
	ID         int64
	LectureID  int64
	MaterialID int64
	PageStart  int
	PageEnd    int
}

// Apply processes the given verdicts under the requested mode and
// returns the per-question report. Verdicts are processed in input
// order. Rejections (out-of-candidate lectures, failed verdicts) never
// abort the batch; only infrastructure errors roll it back.
func (a *Applier) Apply(ctx context.Context, jobID uuid.UUID, verdicts []judge.Verdict, mode Mode) (*Report, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}
	if len(verdicts) == 0 {
		return nil, ErrNoVerdicts
	}

	chunks, err := a.loadChunks(ctx, verdicts)
	if err != nil {
		return nil, err
	}

	report, err := repository.WithTx(ctx, a.db, func(tx *sql.Tx) (Report, error) {
		report := Report{
			JobID: jobID,
			Mode:  mode,
			Rows:  make([]Row, 0, len(verdicts)),
		}

		for _, v := range verdicts {
			row, err := a.applyOne(ctx, tx, jobID, v, mode, chunks)
			if err != nil {
				return Report{}, err
			}

			if row.Status == StatusApplied {
				report.AppliedCount++
			}
			report.Rows = append(report.Rows, row)
		}

		return report, nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("verdicts applied",
		"job_id", jobID,
		"mode", mode,
		"requested", len(verdicts),
		"applied", report.AppliedCount,
	)
	return &report, nil
}

func (a *Applier) applyOne(
	ctx context.Context,
	tx *sql.Tx,
	jobID uuid.UUID,
	v judge.Verdict,
	mode Mode,
	chunks map[int64]chunkRow,
) (Row, error) {
	row := Row{QuestionID: v.QuestionID, Confidence: v.Confidence}

	if v.Failed {
		row.Status = StatusFailed
		row.Detail = v.Error
		return row, nil
	}

	// Defensive containment re-check, independent of the judge's own.
	if v.LectureID != nil && !contains(v.OfferedLectureIDs, *v.LectureID) {
		a.logger.Warn("verdict lecture outside offered candidates",
			"question_id", v.QuestionID,
			"lecture_id", *v.LectureID,
		)
		row.Status = StatusOutOfCandidates
		return row, nil
	}

	// Reclassification replaces the question's prior pipeline evidence.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM question_evidence WHERE question_id = $1 AND source = $2",
		v.QuestionID, sourceAI,
	); err != nil {
		return Row{}, fmt.Errorf("clear prior evidence for question %d: %w", v.QuestionID, err)
	}

	if v.LectureID != nil {
		if err := a.insertEvidence(ctx, tx, jobID, v, chunks); err != nil {
			return Row{}, err
		}
	}

	row.Status, row.Detail = a.gate(v, mode)
	row.LectureID = v.LectureID

	if err := a.writeBookkeeping(ctx, tx, v, row.Status == StatusApplied); err != nil {
		return Row{}, err
	}

	return row, nil
}

// gate decides whether the assignment mutates, per apply mode.
func (a *Applier) gate(v judge.Verdict, mode Mode) (RowStatus, string) {
	if v.NoMatch || v.LectureID == nil {
		return StatusNoMatch, ""
	}

	weak := v.DecisionMode == judge.DecisionWeakMatch
	if weak && !a.cfg.AllowWeakApply {
		return StatusWeakHeld, "weak match requires allow_weak_apply"
	}

	if mode == ModeAll {
		return StatusApplied, ""
	}

	if !a.cfg.AutoApplyEnabled {
		return StatusSuggested, "auto-apply disabled"
	}

	gate := a.cfg.Threshold + a.cfg.Margin
	if v.Confidence < gate {
		return StatusSuggested, fmt.Sprintf("confidence %.2f below gate %.2f", v.Confidence, gate)
	}

	return StatusApplied, ""
}

func (a *Applier) insertEvidence(
	ctx context.Context,
	tx *sql.Tx,
	jobID uuid.UUID,
	v judge.Verdict,
	chunks map[int64]chunkRow,
) error {
	const insertQ = `
		INSERT INTO question_evidence(
			question_id, lecture_id, chunk_id, material_id,
			page_start, page_end, snippet, score, source, job_id, is_primary
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (question_id, chunk_id, source) DO NOTHING`

	seen := make(map[int64]bool, len(v.Evidence))
	primary := true

	for _, c := range v.Evidence {
		if seen[c.ChunkID] {
			continue
		}
		seen[c.ChunkID] = true

		chunk, ok := chunks[c.ChunkID]
		if !ok {
			a.logger.Warn("cited chunk no longer indexed",
				"question_id", v.QuestionID,
				"chunk_id", c.ChunkID,
			)
			continue
		}

		// Chunk-lecture consistency: a citation may only link evidence
		// belonging to the chosen lecture.
		if chunk.LectureID != *v.LectureID {
			a.logger.Warn("cited chunk belongs to another lecture",
				"question_id", v.QuestionID,
				"chunk_id", c.ChunkID,
				"chunk_lecture_id", chunk.LectureID,
			)
			continue
		}

		pageStart, pageEnd := chunk.PageStart, chunk.PageEnd
		if c.PageStart != nil {
			pageStart = *c.PageStart
		}
		if c.PageEnd != nil {
			pageEnd = *c.PageEnd
		}

		if _, err := tx.ExecContext(ctx, insertQ,
			v.QuestionID, *v.LectureID, c.ChunkID, chunk.MaterialID,
			pageStart, pageEnd, c.Quote, c.Score, sourceAI, jobID, primary,
		); err != nil {
			return fmt.Errorf("insert evidence for question %d chunk %d: %w", v.QuestionID, c.ChunkID, err)
		}

		primary = false
	}

	return nil
}

// writeBookkeeping records the judge's opinion on the question row
// whether or not the assignment was mutated.
func (a *Applier) writeBookkeeping(ctx context.Context, tx *sql.Tx, v judge.Verdict, applied bool) error {
	const bookkeepQ = `
		UPDATE questions
		SET suggested_lecture_id = $1, ai_confidence = $2, ai_reason = $3,
			ai_model = $4, ai_suggested_at = NOW()
		WHERE id = $5`

	const assignQ = `
		UPDATE questions
		SET lecture_id = $1, suggested_lecture_id = $1, ai_confidence = $2,
			ai_reason = $3, ai_model = $4, ai_suggested_at = NOW()
		WHERE id = $5`

	q := bookkeepQ
	if applied {
		q = assignQ
	}

	var lectureArg any
	if v.LectureID != nil {
		lectureArg = *v.LectureID
	}

	if err := repository.ExecExpectOne(ctx, tx, q,
		lectureArg, v.Confidence, v.Reason, a.model, v.QuestionID,
	); err != nil {
		return fmt.Errorf("update question %d: %w", v.QuestionID, err)
	}
	return nil
}

func (a *Applier) loadChunks(ctx context.Context, verdicts []judge.Verdict) (map[int64]chunkRow, error) {
	ids := make([]int64, 0)
	seen := make(map[int64]bool)

	for _, v := range verdicts {
		for _, c := range v.Evidence {
			if !seen[c.ChunkID] {
				seen[c.ChunkID] = true
				ids = append(ids, c.ChunkID)
			}
		}
	}

	chunks := make(map[int64]chunkRow, len(ids))
	if len(ids) == 0 {
		return chunks, nil
	}

	const chunkQ = `
		SELECT id, lecture_id, material_id, page_start, page_end
		FROM lecture_chunks
		WHERE id = ANY($1)`

	rows, err := repository.QueryMany(ctx, a.db, chunkQ, []any{ids}, func(s repository.Scanner) (chunkRow, error) {
		var c chunkRow
		err := s.Scan(&c.ID, &c.LectureID, &c.MaterialID, &c.PageStart, &c.PageEnd)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("load cited chunks: %w", err)
	}

	for _, c := range rows {
		chunks[c.ID] = c
	}
	return chunks, nil
}

func contains(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
