package judge_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/lectern-app/lectern/internal/judge"
	"github.com/lectern-app/lectern/internal/search"
)

type fakeClient struct {
	responses []string
	calls     int
}

func (f *fakeClient) Complete(_ context.Context, _, _ string) (string, error) {
	if f.calls >= len(f.responses) {
		return "", errors.New("unexpected judge call")
	}
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

type failingClient struct{}

func (failingClient) Complete(_ context.Context, _, _ string) (string, error) {
	return "", errors.New("connection refused")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) judge.Config {
	t.Helper()
	cfg := judge.Config{APIKey: "test"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize config: %v", err)
	}
	// Single attempt keeps transport-failure tests fast.
	cfg.RetryAttempts = 1
	return cfg
}

func testCandidates() []search.Candidate {
	return []search.Candidate{
		{
			LectureID:   1,
			LecturePath: "Block 1 / Cardiology / Cardiac Output",
			Score:       3.8,
			Evidence: []search.Evidence{
				{ChunkID: 101, PageStart: 3, PageEnd: 4, Snippet: "cardiac output is the product of heart rate and stroke volume", Score: 3.0},
			},
		},
		{
			LectureID: 2,
			Score:     1.2,
			Evidence: []search.Evidence{
				{ChunkID: 201, PageStart: 10, PageEnd: 11, Snippet: "renal blood flow autoregulation", Score: 1.2},
			},
		},
		{
			LectureID: 3,
			Score:     0.9,
			Evidence: []search.Evidence{
				{ChunkID: 301, PageStart: 1, PageEnd: 2, Snippet: "alveolar ventilation and dead space", Score: 0.9},
			},
		},
	}
}

func newJudge(t *testing.T, cfg judge.Config, client judge.ChatClient) *judge.Judge {
	t.Helper()
	return judge.New(client, nil, cfg, discardLogger())
}

func TestClassifyStrictMatch(t *testing.T) {
	client := &fakeClient{responses: []string{
		`{"lecture_id": 1, "confidence": 0.9, "reason": "direct definition",
		  "no_match": false,
		  "evidence": [{"chunk_id": 101, "quote": "heart rate and stroke volume", "page_start": 3, "page_end": 4}]}`,
	}}

	j := newJudge(t, testConfig(t), client)
	v, err := j.Classify(context.Background(), "What determines cardiac output?", testCandidates())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if v.LectureID == nil || *v.LectureID != 1 {
		t.Errorf("LectureID = %v, want 1", v.LectureID)
	}
	if v.DecisionMode != judge.DecisionStrictMatch {
		t.Errorf("DecisionMode = %q, want strict_match", v.DecisionMode)
	}
	if v.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", v.Confidence)
	}
	if len(v.Evidence) != 1 {
		t.Fatalf("evidence count = %d, want 1", len(v.Evidence))
	}
	if v.Evidence[0].Score != 3.0 {
		t.Errorf("citation score = %v, want retrieval score 3.0", v.Evidence[0].Score)
	}
	if v.Rejudge.Attempted {
		t.Error("high-confidence match should not trigger rejudge")
	}
	if v.Rejudge.DecidedBy != judge.PassOne {
		t.Errorf("DecidedBy = %q, want pass1", v.Rejudge.DecidedBy)
	}
	if client.calls != 1 {
		t.Errorf("judge calls = %d, want 1", client.calls)
	}
}

func TestClassifyUnofferedLectureForcedNoMatch(t *testing.T) {
	client := &fakeClient{responses: []string{
		`{"lecture_id": 99, "confidence": 0.9, "reason": "hallucinated", "no_match": false, "evidence": []}`,
	}}

	cfg := testConfig(t)
	cfg.DisableRejudge = true

	j := newJudge(t, cfg, client)
	v, err := j.Classify(context.Background(), "question", testCandidates())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if v.LectureID != nil {
		t.Errorf("LectureID = %v, want nil", v.LectureID)
	}
	if !v.NoMatch {
		t.Error("NoMatch = false, want true")
	}
	if v.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", v.Confidence)
	}
	if v.DecisionMode != judge.DecisionNoMatch {
		t.Errorf("DecisionMode = %q, want no_match", v.DecisionMode)
	}
}

func TestClassifyNonVerbatimCitationForcesNoMatch(t *testing.T) {
	client := &fakeClient{responses: []string{
		`{"lecture_id": 1, "confidence": 0.8, "reason": "paraphrased",
		  "no_match": false,
		  "evidence": [{"chunk_id": 101, "quote": "CO equals HR times SV", "page_start": 3, "page_end": 4}]}`,
	}}

	cfg := testConfig(t)
	cfg.DisableRejudge = true

	j := newJudge(t, cfg, client)
	v, err := j.Classify(context.Background(), "question", testCandidates())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if !v.NoMatch {
		t.Error("paraphrased citation should force no_match when verbatim is required")
	}
	if len(v.Evidence) != 0 {
		t.Errorf("evidence count = %d, want 0", len(v.Evidence))
	}
}

func TestClassifySkipVerbatimKeepsMatch(t *testing.T) {
	client := &fakeClient{responses: []string{
		`{"lecture_id": 1, "confidence": 0.8, "reason": "paraphrased",
		  "no_match": false,
		  "evidence": [{"chunk_id": 101, "quote": "CO equals HR times SV"}]}`,
	}}

	cfg := testConfig(t)
	cfg.DisableRejudge = true
	cfg.SkipVerbatimCheck = true

	j := newJudge(t, cfg, client)
	v, err := j.Classify(context.Background(), "question", testCandidates())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if v.LectureID == nil || *v.LectureID != 1 {
		t.Errorf("LectureID = %v, want 1", v.LectureID)
	}
	// The non-verbatim citation is still dropped, never persisted.
	if len(v.Evidence) != 0 {
		t.Errorf("evidence count = %d, want 0", len(v.Evidence))
	}
}

func TestClassifyPageSpanRequirement(t *testing.T) {
	client := &fakeClient{responses: []string{
		`{"lecture_id": 1, "confidence": 0.85, "reason": "cited",
		  "no_match": false,
		  "evidence": [
			{"chunk_id": 101, "quote": "heart rate and stroke volume", "page_start": 3, "page_end": 4},
			{"chunk_id": 101, "quote": "cardiac output"}
		  ]}`,
	}}

	cfg := testConfig(t)
	cfg.DisableRejudge = true
	cfg.RequirePageSpans = true

	j := newJudge(t, cfg, client)
	v, err := j.Classify(context.Background(), "question", testCandidates())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if len(v.Evidence) != 1 {
		t.Fatalf("evidence count = %d, want 1 (span-less citation dropped)", len(v.Evidence))
	}
	if v.Evidence[0].PageStart == nil || *v.Evidence[0].PageStart != 3 {
		t.Errorf("surviving citation PageStart = %v, want 3", v.Evidence[0].PageStart)
	}
}

func TestClassifyMalformedOutputFailsSafe(t *testing.T) {
	client := &fakeClient{responses: []string{"definitely not json"}}

	cfg := testConfig(t)
	cfg.DisableRejudge = true

	j := newJudge(t, cfg, client)
	v, err := j.Classify(context.Background(), "question", testCandidates())
	if err != nil {
		t.Fatalf("malformed output must not surface an error, got %v", err)
	}

	if !v.NoMatch || v.Confidence != 0 {
		t.Errorf("verdict = {NoMatch: %v, Confidence: %v}, want {true, 0}", v.NoMatch, v.Confidence)
	}
	if len(v.OfferedLectureIDs) != 3 {
		t.Errorf("OfferedLectureIDs = %v, want the 3 offered ids", v.OfferedLectureIDs)
	}
}

func TestClassifyTransportErrorSurfaces(t *testing.T) {
	j := newJudge(t, testConfig(t), failingClient{})

	_, err := j.Classify(context.Background(), "question", testCandidates())
	if err == nil {
		t.Fatal("transport failure must surface an error")
	}
}

func TestClassifyRejudgeUpgradesToStrict(t *testing.T) {
	client := &fakeClient{responses: []string{
		`{"lecture_id": null, "confidence": 0.2, "reason": "unsure", "no_match": true, "evidence": []}`,
		`{"decision": "strict_match", "lecture_id": 2, "confidence": 0.7, "reason": "second look",
		  "evidence": [{"chunk_id": 201, "quote": "renal blood flow", "page_start": 10, "page_end": 11}]}`,
	}}

	j := newJudge(t, testConfig(t), client)
	v, err := j.Classify(context.Background(), "question", testCandidates())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if v.LectureID == nil || *v.LectureID != 2 {
		t.Errorf("LectureID = %v, want 2", v.LectureID)
	}
	if v.DecisionMode != judge.DecisionStrictMatch {
		t.Errorf("DecisionMode = %q, want strict_match", v.DecisionMode)
	}
	if !v.Rejudge.Attempted {
		t.Error("Rejudge.Attempted = false, want true")
	}
	if v.Rejudge.SecondPassMode != judge.DecisionStrictMatch {
		t.Errorf("SecondPassMode = %q, want strict_match", v.Rejudge.SecondPassMode)
	}
	if v.Rejudge.DecidedBy != judge.PassTwo {
		t.Errorf("DecidedBy = %q, want pass2", v.Rejudge.DecidedBy)
	}
	if client.calls != 2 {
		t.Errorf("judge calls = %d, want 2", client.calls)
	}
}

func TestClassifyRejudgeConfirmsNoMatch(t *testing.T) {
	client := &fakeClient{responses: []string{
		`{"lecture_id": null, "confidence": 0.1, "reason": "unsure", "no_match": true, "evidence": []}`,
		`{"decision": "no_match", "lecture_id": null, "confidence": 0.8, "reason": "confirmed", "evidence": []}`,
	}}

	j := newJudge(t, testConfig(t), client)
	v, err := j.Classify(context.Background(), "question", testCandidates())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if !v.NoMatch {
		t.Error("NoMatch = false, want true")
	}
	// Bookkeeping survives even when pass 2 confirms no_match.
	if !v.Rejudge.Attempted || v.Rejudge.SecondPassMode != judge.DecisionNoMatch {
		t.Errorf("Rejudge = %+v, want attempted no_match", v.Rejudge)
	}
	if v.Rejudge.DecidedBy != judge.PassTwo {
		t.Errorf("DecidedBy = %q, want pass2", v.Rejudge.DecidedBy)
	}
}

func TestClassifyWeakMatchGating(t *testing.T) {
	responses := []string{
		`{"lecture_id": null, "confidence": 0.2, "reason": "unsure", "no_match": true, "evidence": []}`,
		`{"decision": "weak_match", "lecture_id": 3, "confidence": 0.5, "reason": "indirect",
		  "evidence": [{"chunk_id": 301, "quote": "alveolar ventilation", "page_start": 1, "page_end": 2}]}`,
	}

	t.Run("rejected without allow flag", func(t *testing.T) {
		j := newJudge(t, testConfig(t), &fakeClient{responses: responses})
		v, err := j.Classify(context.Background(), "question", testCandidates())
		if err != nil {
			t.Fatalf("Classify() error = %v", err)
		}

		if !v.NoMatch {
			t.Error("weak match without allow flag should keep the pass-1 no_match")
		}
		if v.Rejudge.SecondPassMode != judge.DecisionWeakMatch {
			t.Errorf("SecondPassMode = %q, want weak_match", v.Rejudge.SecondPassMode)
		}
		if v.Rejudge.DecidedBy != judge.PassOne {
			t.Errorf("DecidedBy = %q, want pass1", v.Rejudge.DecidedBy)
		}
	})

	t.Run("accepted with allow flag", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.AllowWeakMatch = true

		j := newJudge(t, cfg, &fakeClient{responses: responses})
		v, err := j.Classify(context.Background(), "question", testCandidates())
		if err != nil {
			t.Fatalf("Classify() error = %v", err)
		}

		if v.LectureID == nil || *v.LectureID != 3 {
			t.Errorf("LectureID = %v, want 3", v.LectureID)
		}
		if v.DecisionMode != judge.DecisionWeakMatch {
			t.Errorf("DecisionMode = %q, want weak_match", v.DecisionMode)
		}
		if v.Rejudge.DecidedBy != judge.PassTwo {
			t.Errorf("DecidedBy = %q, want pass2", v.Rejudge.DecidedBy)
		}
	})

	t.Run("rejected below weak floor", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.AllowWeakMatch = true
		cfg.WeakMatchFloor = 0.6

		j := newJudge(t, cfg, &fakeClient{responses: responses})
		v, err := j.Classify(context.Background(), "question", testCandidates())
		if err != nil {
			t.Fatalf("Classify() error = %v", err)
		}

		if !v.NoMatch {
			t.Error("weak match below the floor should keep the pass-1 no_match")
		}
	})
}

func TestClassifyRejudgeRequiresMinCandidates(t *testing.T) {
	client := &fakeClient{responses: []string{
		`{"lecture_id": null, "confidence": 0.1, "reason": "unsure", "no_match": true, "evidence": []}`,
	}}

	j := newJudge(t, testConfig(t), client)
	v, err := j.Classify(context.Background(), "question", testCandidates()[:2])
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if v.Rejudge.Attempted {
		t.Error("rejudge should not run below the candidate minimum")
	}
	if client.calls != 1 {
		t.Errorf("judge calls = %d, want 1", client.calls)
	}
}

func TestClassifyRejudgeMalformedKeepsPassOne(t *testing.T) {
	client := &fakeClient{responses: []string{
		`{"lecture_id": null, "confidence": 0.1, "reason": "unsure", "no_match": true, "evidence": []}`,
		`broken`,
	}}

	j := newJudge(t, testConfig(t), client)
	v, err := j.Classify(context.Background(), "question", testCandidates())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if !v.NoMatch {
		t.Error("NoMatch = false, want pass-1 verdict preserved")
	}
	if !v.Rejudge.Attempted {
		t.Error("Rejudge.Attempted = false, want true")
	}
	if v.Rejudge.DecidedBy != judge.PassOne {
		t.Errorf("DecidedBy = %q, want pass1", v.Rejudge.DecidedBy)
	}
}
