// Package judge implements the two-pass LLM classification protocol for
// assigning an exam question to one of its retrieved lecture candidates.
// Pass 1 issues a strict judged decision; an uncertain result may trigger
// a conditional second "rejudge" pass that distinguishes a true no-match
// from a weaker-but-real match.
package judge

// DecisionMode governs how aggressively a verdict may be auto-applied.
type DecisionMode string

const (
	// DecisionStrictMatch holds the verdict to the verbatim-citation bar.
	DecisionStrictMatch DecisionMode = "strict_match"
	// DecisionWeakMatch flags a looser match that downstream never
	// auto-applies without explicit opt-in.
	DecisionWeakMatch DecisionMode = "weak_match"
	// DecisionNoMatch records that no offered lecture fits.
	DecisionNoMatch DecisionMode = "no_match"
)

// Pass identifies which judge pass produced the final decision.
type Pass string

const (
	PassOne Pass = "pass1"
	PassTwo Pass = "pass2"
)

// Citation ties a verdict to a specific chunk with a verbatim quote from
// that chunk's offered snippet. Score carries the retrieval score of the
// cited chunk for evidence persistence.
type Citation struct {
	ChunkID   int64   `json:"chunk_id"`
	Quote     string  `json:"quote"`
	PageStart *int    `json:"page_start,omitempty"`
	PageEnd   *int    `json:"page_end,omitempty"`
	Score     float64 `json:"score,omitempty"`
}

// Rejudge records second-pass bookkeeping. It is kept even when pass 2
// confirms no_match, so the audit trail always shows the escalation.
type Rejudge struct {
	Attempted      bool         `json:"attempted"`
	SecondPassMode DecisionMode `json:"second_pass_mode,omitempty"`
	DecidedBy      Pass         `json:"decided_by"`
}

// Verdict is the judge's classification decision for one question.
// LectureID is nil when no offered candidate fits. OfferedLectureIDs
// preserves the candidate set the judge was constrained to, for the
// applier's defensive containment re-check.
type Verdict struct {
	QuestionID        int64        `json:"question_id"`
	LectureID         *int64       `json:"lecture_id"`
	Confidence        float64      `json:"confidence"`
	Reason            string       `json:"reason"`
	NoMatch           bool         `json:"no_match"`
	DecisionMode      DecisionMode `json:"decision_mode"`
	Evidence          []Citation   `json:"evidence"`
	OfferedLectureIDs []int64      `json:"offered_lecture_ids"`
	Rejudge           Rejudge      `json:"rejudge"`
	Failed            bool         `json:"failed,omitempty"`
	Error             string       `json:"error,omitempty"`
}

// noMatchVerdict builds a fail-safe verdict used when judge output is
// malformed or violates an offered-candidate invariant.
func noMatchVerdict(reason string, offered []int64) Verdict {
	return Verdict{
		LectureID:         nil,
		Confidence:        0,
		Reason:            reason,
		NoMatch:           true,
		DecisionMode:      DecisionNoMatch,
		Evidence:          []Citation{},
		OfferedLectureIDs: offered,
		Rejudge:           Rejudge{DecidedBy: PassOne},
	}
}
