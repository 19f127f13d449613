// Package search implements lexical retrieval over indexed lecture-material
// chunks. It provides tokenization of question text into search terms,
// backend query construction, ranked full-text search with optional trigram
// similarity blending, and per-lecture candidate aggregation.
package search

// Chunk is a contiguous span of indexed lecture text. Chunks are immutable
// once indexed; a lecture's chunks are replaced wholesale when its source
// material is re-indexed.
type Chunk struct {
	ID         int64  `json:"id"`
	LectureID  int64  `json:"lecture_id"`
	MaterialID int64  `json:"material_id"`
	PageStart  int    `json:"page_start"`
	PageEnd    int    `json:"page_end"`
	Content    string `json:"content"`
	Length     int    `json:"length"`
}

// Hit is the ephemeral result of a lexical query against chunks.
// Score is the lexical rank, optionally blended with a trigram
// similarity signal. Hits are never persisted.
type Hit struct {
	ChunkID    int64   `json:"chunk_id"`
	LectureID  int64   `json:"lecture_id"`
	MaterialID int64   `json:"material_id"`
	PageStart  int     `json:"page_start"`
	PageEnd    int     `json:"page_end"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

// Evidence is one supporting chunk reference attached to a candidate.
type Evidence struct {
	ChunkID   int64   `json:"chunk_id"`
	PageStart int     `json:"page_start"`
	PageEnd   int     `json:"page_end"`
	Snippet   string  `json:"snippet"`
	Score     float64 `json:"score"`
}

// Candidate is an aggregated per-lecture score for one question, with
// bounded supporting evidence. Candidates are recomputed per
// classification attempt and never persisted.
type Candidate struct {
	LectureID   int64      `json:"lecture_id"`
	LecturePath string     `json:"lecture_path"`
	Score       float64    `json:"score"`
	Evidence    []Evidence `json:"evidence"`
}
