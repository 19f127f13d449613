package jobs

import (
	"testing"

	"github.com/lectern-app/lectern/internal/judge"
	"github.com/lectern-app/lectern/internal/lectures"
)

func TestRequestEnvelopeRoundTrip(t *testing.T) {
	raw, err := encodeRequest(RequestEnvelope{
		QuestionIDs:    []int64{10, 20, 30},
		IdempotencyKey: "batch-7",
		Scope:          &lectures.Scope{BlockIDs: []int64{3}},
	})
	if err != nil {
		t.Fatalf("encodeRequest() error = %v", err)
	}

	env := parseRequest(raw)
	if env.Version != envelopeVersion {
		t.Errorf("Version = %d, want %d", env.Version, envelopeVersion)
	}
	if len(env.QuestionIDs) != 3 || env.QuestionIDs[0] != 10 {
		t.Errorf("QuestionIDs = %v, want [10 20 30]", env.QuestionIDs)
	}
	if env.IdempotencyKey != "batch-7" {
		t.Errorf("IdempotencyKey = %q, want %q", env.IdempotencyKey, "batch-7")
	}
	if env.Scope == nil || len(env.Scope.BlockIDs) != 1 {
		t.Errorf("Scope = %+v, want block scope [3]", env.Scope)
	}
}

func TestParseRequestFailsClosed(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"malformed json", []byte(`{"question_ids": [10,`)},
		{"unknown version", []byte(`{"version": 2, "question_ids": [10]}`)},
		{"missing version", []byte(`{"question_ids": [10]}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := parseRequest(tt.raw)
			if len(env.QuestionIDs) != 0 {
				t.Errorf("QuestionIDs = %v, want empty", env.QuestionIDs)
			}
			if env.Version != envelopeVersion {
				t.Errorf("Version = %d, want %d", env.Version, envelopeVersion)
			}
		})
	}
}

func TestResultEnvelopePreservesVerdictOrder(t *testing.T) {
	lecture := int64(4)
	raw, err := encodeResult(ResultEnvelope{
		Verdicts: []judge.Verdict{
			{QuestionID: 30, NoMatch: true},
			{QuestionID: 10, LectureID: &lecture},
			{QuestionID: 20, Failed: true},
		},
	})
	if err != nil {
		t.Fatalf("encodeResult() error = %v", err)
	}

	env := parseResult(raw)
	want := []int64{30, 10, 20}
	if len(env.Verdicts) != len(want) {
		t.Fatalf("verdict count = %d, want %d", len(env.Verdicts), len(want))
	}
	for i, v := range env.Verdicts {
		if v.QuestionID != want[i] {
			t.Errorf("verdicts[%d].QuestionID = %d, want %d", i, v.QuestionID, want[i])
		}
	}
}

func TestParseResultFailsClosed(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"nil payload", nil},
		{"empty payload", []byte{}},
		{"malformed json", []byte(`{"verdicts": [`)},
		{"unknown version", []byte(`{"version": 99, "verdicts": [{"question_id": 10}]}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := parseResult(tt.raw)
			if env.Verdicts == nil {
				t.Fatal("Verdicts = nil, want empty slice")
			}
			if len(env.Verdicts) != 0 {
				t.Errorf("Verdicts = %v, want empty", env.Verdicts)
			}
		})
	}
}

func TestEncodeResultNilVerdicts(t *testing.T) {
	raw, err := encodeResult(ResultEnvelope{})
	if err != nil {
		t.Fatalf("encodeResult() error = %v", err)
	}

	env := parseResult(raw)
	if env.Verdicts == nil || len(env.Verdicts) != 0 {
		t.Errorf("Verdicts = %v, want empty slice", env.Verdicts)
	}
}
