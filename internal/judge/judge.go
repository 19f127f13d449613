package judge

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lectern-app/lectern/internal/search"
	"github.com/lectern-app/lectern/pkg/formatting"
)

// Preparer rewrites the candidate list presented to the second judge
// pass. The default implementation returns the pass-1 set unchanged;
// callers may plug in context expansion or re-retrieval.
type Preparer interface {
	Prepare(ctx context.Context, question string, candidates []search.Candidate) []search.Candidate
}

type identityPreparer struct{}

func (identityPreparer) Prepare(_ context.Context, _ string, candidates []search.Candidate) []search.Candidate {
	return candidates
}

// Judge runs the two-pass classification protocol. It holds no state
// between calls beyond its configuration and client.
type Judge struct {
	client   ChatClient
	preparer Preparer
	cfg      Config
	logger   *slog.Logger
}

// New creates a Judge over the given chat client. The client is wrapped
// with the configured retry policy. A nil preparer selects the identity
// preparation for pass 2.
func New(client ChatClient, preparer Preparer, cfg Config, logger *slog.Logger) *Judge {
	if preparer == nil {
		preparer = identityPreparer{}
	}
	return &Judge{
		client:   WithRetry(client, cfg.RetryAttempts, cfg.RetryBaseDelayDuration(), cfg.RetryMaxDelayDuration()),
		preparer: preparer,
		cfg:      cfg,
		logger:   logger.With("system", "judge"),
	}
}

type citationResponse struct {
	ChunkID   int64  `json:"chunk_id"`
	Quote     string `json:"quote"`
	PageStart *int   `json:"page_start"`
	PageEnd   *int   `json:"page_end"`
}

type passOneResponse struct {
	LectureID  *int64             `json:"lecture_id"`
	Confidence float64            `json:"confidence"`
	Reason     string             `json:"reason"`
	NoMatch    bool               `json:"no_match"`
	Evidence   []citationResponse `json:"evidence"`
}

type passTwoResponse struct {
	Decision   string             `json:"decision"`
	LectureID  *int64             `json:"lecture_id"`
	Confidence float64            `json:"confidence"`
	Reason     string             `json:"reason"`
	Evidence   []citationResponse `json:"evidence"`
}

// Classify judges one question against its ordered candidate list and
// returns the final verdict. An error is returned only when the pass-1
// judge call itself fails after retries; malformed or invariant-violating
// judge output always degrades to a no-match verdict instead of erroring.
func (j *Judge) Classify(ctx context.Context, question string, candidates []search.Candidate) (Verdict, error) {
	offered := lectureIDs(candidates)

	raw, err := j.client.Complete(ctx, passOneSystem, passOnePrompt(question, candidates))
	if err != nil {
		return Verdict{}, err
	}

	verdict := j.evaluatePassOne(raw, candidates, offered)

	if j.shouldRejudge(verdict, len(candidates)) {
		verdict = j.rejudge(ctx, question, candidates, verdict)
	}

	return verdict, nil
}

func (j *Judge) evaluatePassOne(raw string, candidates []search.Candidate, offered []int64) Verdict {
	parsed, err := formatting.Parse[passOneResponse](raw)
	if err != nil {
		j.logger.Warn("unparseable pass-1 output", "error", err)
		return noMatchVerdict("unparseable judge output", offered)
	}

	chosen := parsed.LectureID
	if parsed.NoMatch {
		chosen = nil
	}

	chosen, evidence, forced := j.harden(chosen, parsed.Evidence, candidates, !j.cfg.SkipVerbatimCheck)
	if forced {
		return noMatchVerdict(parsed.Reason, offered)
	}

	v := Verdict{
		LectureID:         chosen,
		Confidence:        clampConfidence(parsed.Confidence),
		Reason:            parsed.Reason,
		NoMatch:           chosen == nil,
		DecisionMode:      DecisionStrictMatch,
		Evidence:          evidence,
		OfferedLectureIDs: offered,
		Rejudge:           Rejudge{DecidedBy: PassOne},
	}
	if chosen == nil {
		v.DecisionMode = DecisionNoMatch
	}
	return v
}

func (j *Judge) shouldRejudge(v Verdict, candidateCount int) bool {
	if j.cfg.DisableRejudge {
		return false
	}
	if candidateCount < j.cfg.RejudgeMinCandidates {
		return false
	}
	return v.NoMatch || v.Confidence < j.cfg.RejudgeConfidenceFloor
}

// rejudge runs the escalation pass. Pass-2 failures, malformed output,
// and invariant-violating claims all fall back to the pass-1 verdict;
// the rejudge bookkeeping is recorded in every case.
func (j *Judge) rejudge(ctx context.Context, question string, candidates []search.Candidate, prior Verdict) Verdict {
	prior.Rejudge.Attempted = true

	prepared := j.preparer.Prepare(ctx, question, candidates)

	raw, err := j.client.Complete(ctx, passTwoSystem, passTwoPrompt(question, prepared))
	if err != nil {
		j.logger.Warn("rejudge call failed", "error", err)
		return prior
	}

	parsed, err := formatting.Parse[passTwoResponse](raw)
	if err != nil {
		j.logger.Warn("unparseable pass-2 output", "error", err)
		return prior
	}

	mode := DecisionMode(parsed.Decision)
	switch mode {
	case DecisionStrictMatch, DecisionWeakMatch, DecisionNoMatch:
		prior.Rejudge.SecondPassMode = mode
	default:
		return prior
	}

	switch mode {
	case DecisionNoMatch:
		v := noMatchVerdict(parsed.Reason, prior.OfferedLectureIDs)
		v.Confidence = clampConfidence(parsed.Confidence)
		v.Rejudge = Rejudge{Attempted: true, SecondPassMode: mode, DecidedBy: PassTwo}
		return v

	case DecisionStrictMatch:
		chosen, evidence, forced := j.harden(parsed.LectureID, parsed.Evidence, prepared, !j.cfg.SkipVerbatimCheck)
		if forced || chosen == nil {
			return prior
		}
		return Verdict{
			LectureID:         chosen,
			Confidence:        clampConfidence(parsed.Confidence),
			Reason:            parsed.Reason,
			NoMatch:           false,
			DecisionMode:      DecisionStrictMatch,
			Evidence:          evidence,
			OfferedLectureIDs: prior.OfferedLectureIDs,
			Rejudge:           Rejudge{Attempted: true, SecondPassMode: mode, DecidedBy: PassTwo},
		}

	default: // DecisionWeakMatch
		if !j.cfg.AllowWeakMatch {
			return prior
		}
		confidence := clampConfidence(parsed.Confidence)
		if confidence < j.cfg.WeakMatchFloor {
			return prior
		}

		// Weak matches skip the verbatim bar; non-verbatim citations are
		// still dropped rather than persisted.
		chosen, evidence, forced := j.harden(parsed.LectureID, parsed.Evidence, prepared, false)
		if forced || chosen == nil {
			return prior
		}
		return Verdict{
			LectureID:         chosen,
			Confidence:        confidence,
			Reason:            parsed.Reason,
			NoMatch:           false,
			DecisionMode:      DecisionWeakMatch,
			Evidence:          evidence,
			OfferedLectureIDs: prior.OfferedLectureIDs,
			Rejudge:           Rejudge{Attempted: true, SecondPassMode: mode, DecidedBy: PassTwo},
		}
	}
}

// harden applies the invariant checks to a judged lecture choice:
// the choice must be one of the offered candidates, citations must quote
// their chunk's offered snippet verbatim, and citations missing page
// spans are dropped when configuration requires them. Returns the
// surviving choice and citations, with forced=true when the choice had
// to be rewritten to no_match.
func (j *Judge) harden(
	chosen *int64,
	citations []citationResponse,
	candidates []search.Candidate,
	requireVerbatim bool,
) (*int64, []Citation, bool) {
	if chosen != nil && !containsLecture(candidates, *chosen) {
		j.logger.Warn("judge chose unoffered lecture", "lecture_id", *chosen)
		return nil, []Citation{}, true
	}

	snippets := snippetIndex(candidates)
	evidence := make([]Citation, 0, len(citations))

	for _, c := range citations {
		ev, ok := snippets[c.ChunkID]
		if !ok {
			continue
		}
		if c.Quote == "" || !strings.Contains(ev.Snippet, c.Quote) {
			continue
		}
		if j.cfg.RequirePageSpans && (c.PageStart == nil || c.PageEnd == nil) {
			continue
		}

		evidence = append(evidence, Citation{
			ChunkID:   c.ChunkID,
			Quote:     c.Quote,
			PageStart: c.PageStart,
			PageEnd:   c.PageEnd,
			Score:     ev.Score,
		})
	}

	if chosen != nil && requireVerbatim && len(evidence) == 0 {
		j.logger.Warn("no verbatim citations survived", "lecture_id", *chosen)
		return nil, []Citation{}, true
	}

	return chosen, evidence, false
}

func lectureIDs(candidates []search.Candidate) []int64 {
	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.LectureID
	}
	return ids
}

func containsLecture(candidates []search.Candidate, id int64) bool {
	for _, c := range candidates {
		if c.LectureID == id {
			return true
		}
	}
	return false
}

func snippetIndex(candidates []search.Candidate) map[int64]search.Evidence {
	index := make(map[int64]search.Evidence)
	for _, c := range candidates {
		for _, ev := range c.Evidence {
			if _, ok := index[ev.ChunkID]; !ok {
				index[ev.ChunkID] = ev
			}
		}
	}
	return index
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
