package questions

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lectern-app/lectern/pkg/query"
	"github.com/lectern-app/lectern/pkg/repository"
)

// System defines the read surface classification needs from questions.
type System interface {
	Find(ctx context.Context, id int64) (*Question, error)
	FindMany(ctx context.Context, ids []int64) ([]Question, error)
}

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a question repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "questions"),
	}
}

func (r *repo) Find(ctx context.Context, id int64) (*Question, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	question, err := repository.QueryOne(ctx, r.db, q, args, scanQuestion)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}
	return &question, nil
}

// FindMany returns the questions for the given ids. Missing ids are
// simply absent from the result; callers decide how to report them.
func (r *repo) FindMany(ctx context.Context, ids []int64) ([]Question, error) {
	if len(ids) == 0 {
		return []Question{}, nil
	}

	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s.id = ANY($1) ORDER BY %s.id",
		projection.Columns(), projection.Table(),
		projection.Alias(), projection.Alias(),
	)

	items, err := repository.QueryMany(ctx, r.db, q, []any{ids}, scanQuestion)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	return items, nil
}
