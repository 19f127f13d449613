// Package lectures provides the read surface classification needs from
// the lecture hierarchy: display paths for candidates and results, and
// the scope resolver that maps a block/lecture filter to a concrete
// lecture-id set.
package lectures

// Lecture represents a lecture row. Path is the full display path
// within the curriculum hierarchy ("Block 3 / Cardiology / Lecture 12").
type Lecture struct {
	ID      int64  `json:"id"`
	BlockID int64  `json:"block_id"`
	Title   string `json:"title"`
	Path    string `json:"path"`
}

// Scope restricts a classification run to part of the curriculum.
// LectureIDs takes precedence; BlockIDs expand to every lecture in the
// named blocks. An empty Scope means unscoped.
type Scope struct {
	BlockIDs   []int64 `json:"block_ids,omitempty"`
	LectureIDs []int64 `json:"lecture_ids,omitempty"`
}

// IsZero reports whether the scope imposes no restriction.
func (s *Scope) IsZero() bool {
	return s == nil || (len(s.BlockIDs) == 0 && len(s.LectureIDs) == 0)
}
