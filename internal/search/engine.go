package search

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/lectern-app/lectern/pkg/repository"
)

const headlineOptions = "StartSel=<b>, StopSel=</b>, MaxFragments=2, MaxWords=18, MinWords=4"

// Engine executes ranked full-text queries against the lecture_chunks
// index. Ranking comes from ts_rank_cd over a stored tsvector; a
// non-indexed substring scan is deliberately not supported.
type Engine struct {
	db     *sql.DB
	cfg    Config
	logger *slog.Logger
}

// NewEngine creates a search engine over the given connection pool.
func NewEngine(db *sql.DB, cfg Config, logger *slog.Logger) *Engine {
	return &Engine{
		db:     db,
		cfg:    cfg,
		logger: logger.With("system", "search"),
	}
}

// Search tokenizes queryText, executes the lexical pass, degrades the
// term cap (8 then 4) when the full query yields too few hits, and
// conditionally blends in trigram similarity scores. Results are ordered
// by descending score and truncated to topN. A non-empty scope restricts
// hits to the given lecture ids inside the query itself so truncation
// happens after scoping.
func (e *Engine) Search(ctx context.Context, queryText string, topN int, scope []int64) ([]Hit, error) {
	if topN <= 0 {
		topN = e.cfg.TopN
	}

	terms := Tokenize(queryText, e.cfg.MaxTerms)
	if len(terms) == 0 {
		return []Hit{}, nil
	}

	hits, err := e.lexical(ctx, terms, topN, scope)
	if err != nil {
		return nil, err
	}

	usedTerms := terms
	for _, termCap := range degradedTermCaps {
		if len(hits) >= e.cfg.MinHits || len(usedTerms) <= termCap {
			break
		}

		capped := terms[:termCap]
		degraded, err := e.lexical(ctx, capped, topN, scope)
		if err != nil {
			return nil, err
		}

		usedTerms = capped
		if len(degraded) > len(hits) {
			hits = degraded
		}
	}

	if e.cfg.FuzzyEnabled && (len(hits) < e.cfg.MinHits || len(usedTerms) <= e.cfg.ShortQueryTerms) {
		blended, err := e.blendFuzzy(ctx, usedTerms, hits, topN, scope)
		if err != nil {
			return nil, err
		}
		hits = blended
	}

	if len(hits) > topN {
		hits = hits[:topN]
	}

	return hits, nil
}

func (e *Engine) lexical(ctx context.Context, terms []string, topN int, scope []int64) ([]Hit, error) {
	queryStr := BuildQuery(terms, e.cfg.Mode())
	if queryStr == "" {
		return []Hit{}, nil
	}

	q := fmt.Sprintf(`
		SELECT c.id, c.lecture_id, c.material_id, c.page_start, c.page_end,
			   ts_headline($1, c.content, query, $2) AS snippet,
			   ts_rank_cd(c.search_vector, query) AS score
		  FROM lecture_chunks c,
			   %s($1, $3) query
		 WHERE c.search_vector @@ query`, e.cfg.Mode().tsqueryFunc())

	args := []any{e.cfg.TextSearchConfig, headlineOptions, queryStr}

	if len(scope) > 0 {
		args = append(args, scope)
		q += fmt.Sprintf(" AND c.lecture_id = ANY($%d)", len(args))
	}

	args = append(args, topN)
	q += fmt.Sprintf(" ORDER BY score DESC, c.id LIMIT $%d", len(args))

	hits, err := repository.QueryMany(ctx, e.db, q, args, scanHit)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	return hits, nil
}

// blendFuzzy runs a trigram similarity pass over the same scope and
// merges it with the lexical hits as lexical + alpha*fuzzy. Chunks found
// only by the fuzzy pass enter with alpha*fuzzy. The merged list is
// re-sorted by combined score before truncation.
func (e *Engine) blendFuzzy(ctx context.Context, terms []string, lexical []Hit, topN int, scope []int64) ([]Hit, error) {
	fuzzyText := BuildQuery(terms, QueryModePlain)
	if fuzzyText == "" {
		return lexical, nil
	}

	q := `
		SELECT c.id, c.lecture_id, c.material_id, c.page_start, c.page_end,
			   left(c.content, 240) AS snippet,
			   similarity(c.content, $1) AS score
		  FROM lecture_chunks c
		 WHERE similarity(c.content, $1) > $2`

	args := []any{fuzzyText, e.cfg.FuzzyThreshold}

	if len(scope) > 0 {
		args = append(args, scope)
		q += fmt.Sprintf(" AND c.lecture_id = ANY($%d)", len(args))
	}

	args = append(args, topN)
	q += fmt.Sprintf(" ORDER BY score DESC, c.id LIMIT $%d", len(args))

	fuzzy, err := repository.QueryMany(ctx, e.db, q, args, scanHit)
	if err != nil {
		return nil, fmt.Errorf("fuzzy search: %w", err)
	}

	e.logger.Debug("fuzzy blend",
		"lexical_hits", len(lexical),
		"fuzzy_hits", len(fuzzy),
		"alpha", e.cfg.FuzzyAlpha,
	)

	merged := make([]Hit, len(lexical))
	copy(merged, lexical)
	index := make(map[int64]int, len(merged))
	for i, h := range merged {
		index[h.ChunkID] = i
	}

	for _, f := range fuzzy {
		if i, ok := index[f.ChunkID]; ok {
			merged[i].Score += e.cfg.FuzzyAlpha * f.Score
			continue
		}
		f.Score *= e.cfg.FuzzyAlpha
		merged = append(merged, f)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	if len(merged) > topN {
		merged = merged[:topN]
	}

	return merged, nil
}

func scanHit(s repository.Scanner) (Hit, error) {
	var h Hit
	err := s.Scan(
		&h.ChunkID,
		&h.LectureID,
		&h.MaterialID,
		&h.PageStart,
		&h.PageEnd,
		&h.Snippet,
		&h.Score,
	)
	return h, err
}
