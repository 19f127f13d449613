// Package questions provides the read surface for exam questions that
// classification consumes, plus the bookkeeping columns the applier
// writes back. Question CRUD itself lives in the authoring layer.
package questions

import (
	"strings"
	"time"
)

// Question represents an exam question row. LectureID is the current
// assignment and may be nil for unclassified questions. The AI* fields
// are bookkeeping written by the result applier and never block a human
// override.
type Question struct {
	ID                 int64      `json:"id"`
	LectureID          *int64     `json:"lecture_id"`
	Body               string     `json:"body"`
	ChoiceText         string     `json:"choice_text"`
	SuggestedLectureID *int64     `json:"suggested_lecture_id"`
	AIConfidence       *float64   `json:"ai_confidence"`
	AIReason           *string    `json:"ai_reason"`
	AIModel            *string    `json:"ai_model"`
	AISuggestedAt      *time.Time `json:"ai_suggested_at"`
}

// SearchText returns the text the retrieval pipeline tokenizes: the
// question body with inline choice text appended.
func (q *Question) SearchText() string {
	if q.ChoiceText == "" {
		return q.Body
	}
	return strings.TrimSpace(q.Body + "\n" + q.ChoiceText)
}
