package questions

import (
	"github.com/lectern-app/lectern/pkg/query"
	"github.com/lectern-app/lectern/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "questions", "q").
	Project("id", "ID").
	Project("lecture_id", "LectureID").
	Project("body", "Body").
	Project("choice_text", "ChoiceText").
	Project("suggested_lecture_id", "SuggestedLectureID").
	Project("ai_confidence", "AIConfidence").
	Project("ai_reason", "AIReason").
	Project("ai_model", "AIModel").
	Project("ai_suggested_at", "AISuggestedAt")

func scanQuestion(s repository.Scanner) (Question, error) {
	var q Question

	err := s.Scan(
		&q.ID,
		&q.LectureID,
		&q.Body,
		&q.ChoiceText,
		&q.SuggestedLectureID,
		&q.AIConfidence,
		&q.AIReason,
		&q.AIModel,
		&q.AISuggestedAt,
	)

	return q, err
}
