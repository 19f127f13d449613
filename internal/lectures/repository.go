package lectures

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"

	"github.com/lectern-app/lectern/pkg/query"
	"github.com/lectern-app/lectern/pkg/repository"
)

// System defines the read surface classification needs from lectures.
type System interface {
	Find(ctx context.Context, id int64) (*Lecture, error)
	// Paths returns the display path for each of the given lecture ids.
	// Unknown ids are absent from the map.
	Paths(ctx context.Context, ids []int64) (map[int64]string, error)
	// ResolveScope expands a scope filter into a sorted, deduplicated
	// lecture-id set. A zero scope resolves to nil (unscoped); a scope
	// that matches nothing returns ErrEmptyScope so a typo'd filter is
	// rejected rather than silently classifying against everything.
	ResolveScope(ctx context.Context, scope *Scope) ([]int64, error)
}

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a lecture repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "lectures"),
	}
}

func (r *repo) Find(ctx context.Context, id int64) (*Lecture, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	l, err := repository.QueryOne(ctx, r.db, q, args, scanLecture)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}
	return &l, nil
}

func (r *repo) Paths(ctx context.Context, ids []int64) (map[int64]string, error) {
	paths := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return paths, nil
	}

	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s.id = ANY($1)",
		projection.Columns(), projection.Table(), projection.Alias(),
	)

	items, err := repository.QueryMany(ctx, r.db, q, []any{ids}, scanLecture)
	if err != nil {
		return nil, fmt.Errorf("query lecture paths: %w", err)
	}

	for _, l := range items {
		paths[l.ID] = l.Path
	}
	return paths, nil
}

func (r *repo) ResolveScope(ctx context.Context, scope *Scope) ([]int64, error) {
	if scope.IsZero() {
		return nil, nil
	}

	var (
		q    string
		args []any
	)

	if len(scope.LectureIDs) > 0 {
		q = fmt.Sprintf(
			"SELECT %s.id FROM %s WHERE %s.id = ANY($1)",
			projection.Alias(), projection.Table(), projection.Alias(),
		)
		args = []any{scope.LectureIDs}
	} else {
		q = fmt.Sprintf(
			"SELECT %s.id FROM %s WHERE %s.block_id = ANY($1)",
			projection.Alias(), projection.Table(), projection.Alias(),
		)
		args = []any{scope.BlockIDs}
	}

	ids, err := repository.QueryMany(ctx, r.db, q, args, func(s repository.Scanner) (int64, error) {
		var id int64
		err := s.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, fmt.Errorf("resolve lecture scope: %w", err)
	}

	if len(ids) == 0 {
		return nil, ErrEmptyScope
	}

	slices.Sort(ids)
	return slices.Compact(ids), nil
}
