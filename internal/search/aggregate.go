package search

import (
	"regexp"
	"sort"
	"strings"
)

// AggMode selects how per-chunk scores roll up into a lecture score.
type AggMode string

const (
	// AggModeSum scores a lecture as the sum of its (capped) hit scores.
	AggModeSum AggMode = "sum"
	// AggModeTopMMean scores a lecture as the mean of its top-M hit
	// scores, rewarding concentrated relevance over raw chunk count.
	AggModeTopMMean AggMode = "topm_mean"
)

// Valid reports whether m is a recognized aggregation mode.
func (m AggMode) Valid() bool {
	return m == AggModeSum || m == AggModeTopMMean
}

// AggregateOptions bounds candidate aggregation. ChunkCap, when positive,
// truncates each lecture's hit list (in score order) before aggregation
// so one lecture cannot dominate purely on matching-chunk volume.
type AggregateOptions struct {
	TopKLectures       int
	EvidencePerLecture int
	Mode               AggMode
	TopM               int
	ChunkCap           int
}

const maxSnippetRunes = 200

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
var whitespacePattern = regexp.MustCompile(`\s+`)

// Aggregate rolls per-chunk hits up into ranked per-lecture candidates.
// Grouping preserves hit discovery order; candidates with tied scores
// retain that order (stable sort), so output is deterministic for a
// fixed hit list. Candidates are truncated to TopKLectures and each
// carries at most EvidencePerLecture snippet-trimmed evidence entries.
func Aggregate(hits []Hit, opts AggregateOptions) []Candidate {
	if len(hits) == 0 {
		return []Candidate{}
	}

	order := make([]int64, 0)
	groups := make(map[int64][]Hit)
	for _, h := range hits {
		if _, ok := groups[h.LectureID]; !ok {
			order = append(order, h.LectureID)
		}
		groups[h.LectureID] = append(groups[h.LectureID], h)
	}

	candidates := make([]Candidate, 0, len(order))
	for _, lectureID := range order {
		group := groups[lectureID]

		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Score > group[j].Score
		})

		if opts.ChunkCap > 0 && len(group) > opts.ChunkCap {
			group = group[:opts.ChunkCap]
		}

		candidates = append(candidates, Candidate{
			LectureID: lectureID,
			Score:     lectureScore(group, opts),
			Evidence:  collectEvidence(group, opts.EvidencePerLecture),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if opts.TopKLectures > 0 && len(candidates) > opts.TopKLectures {
		candidates = candidates[:opts.TopKLectures]
	}

	return candidates
}

func lectureScore(group []Hit, opts AggregateOptions) float64 {
	if opts.Mode == AggModeTopMMean {
		m := opts.TopM
		if m <= 0 {
			m = 3
		}
		if m > len(group) {
			m = len(group)
		}

		var sum float64
		for _, h := range group[:m] {
			sum += h.Score
		}
		return sum / float64(m)
	}

	var sum float64
	for _, h := range group {
		sum += h.Score
	}
	return sum
}

func collectEvidence(group []Hit, limit int) []Evidence {
	if limit <= 0 || len(group) == 0 {
		return []Evidence{}
	}
	if limit > len(group) {
		limit = len(group)
	}

	evidence := make([]Evidence, 0, limit)
	for _, h := range group[:limit] {
		evidence = append(evidence, Evidence{
			ChunkID:   h.ChunkID,
			PageStart: h.PageStart,
			PageEnd:   h.PageEnd,
			Snippet:   TrimSnippet(h.Snippet),
			Score:     h.Score,
		})
	}
	return evidence
}

// TrimSnippet strips markup and collapses whitespace, bounding the result
// to a short display length.
func TrimSnippet(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	runes := []rune(s)
	if len(runes) > maxSnippetRunes {
		s = string(runes[:maxSnippetRunes]) + "…"
	}
	return s
}
