package apply

import (
	"errors"
	"net/http"
	"testing"

	"github.com/lectern-app/lectern/internal/judge"
)

func gateApplier(cfg Config) *Applier {
	return &Applier{cfg: cfg}
}

func matched(confidence float64, mode judge.DecisionMode) judge.Verdict {
	lecture := int64(1)
	return judge.Verdict{
		QuestionID:   10,
		LectureID:    &lecture,
		Confidence:   confidence,
		DecisionMode: mode,
	}
}

func TestGateAutoMode(t *testing.T) {
	cfg := Config{AutoApplyEnabled: true}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize config: %v", err)
	}

	tests := []struct {
		name       string
		confidence float64
		want       RowStatus
	}{
		{"clears gate", 0.85, StatusApplied},
		{"at gate boundary", 0.80, StatusApplied},
		{"below gate", 0.79, StatusSuggested},
		{"well below gate", 0.40, StatusSuggested},
	}

	a := gateApplier(cfg)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := a.gate(matched(tt.confidence, judge.DecisionStrictMatch), ModeAuto)
			if got != tt.want {
				t.Errorf("gate(confidence=%v) = %q, want %q", tt.confidence, got, tt.want)
			}
		})
	}
}

func TestGateAutoDisabled(t *testing.T) {
	cfg := Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize config: %v", err)
	}

	a := gateApplier(cfg)
	got, detail := a.gate(matched(0.99, judge.DecisionStrictMatch), ModeAuto)
	if got != StatusSuggested {
		t.Errorf("gate() = %q, want suggested when auto-apply is disabled", got)
	}
	if detail == "" {
		t.Error("expected a detail explaining the held assignment")
	}
}

func TestGateAllModeBypassesConfidence(t *testing.T) {
	a := gateApplier(Config{})

	got, _ := a.gate(matched(0.10, judge.DecisionStrictMatch), ModeAll)
	if got != StatusApplied {
		t.Errorf("gate() = %q, want applied in all mode regardless of confidence", got)
	}
}

func TestGateWeakMatchHeld(t *testing.T) {
	// Weak verdicts are held in both modes unless explicitly allowed.
	for _, mode := range []Mode{ModeAuto, ModeAll} {
		a := gateApplier(Config{AutoApplyEnabled: true, Threshold: 0.5, Margin: 0})
		got, _ := a.gate(matched(0.95, judge.DecisionWeakMatch), mode)
		if got != StatusWeakHeld {
			t.Errorf("gate(weak, %q) = %q, want weak_held", mode, got)
		}
	}
}

func TestGateWeakMatchAllowed(t *testing.T) {
	a := gateApplier(Config{AllowWeakApply: true})

	got, _ := a.gate(matched(0.50, judge.DecisionWeakMatch), ModeAll)
	if got != StatusApplied {
		t.Errorf("gate(weak, all, allow_weak_apply) = %q, want applied", got)
	}
}

func TestGateNoMatch(t *testing.T) {
	a := gateApplier(Config{AutoApplyEnabled: true})

	got, _ := a.gate(judge.Verdict{QuestionID: 10, NoMatch: true}, ModeAll)
	if got != StatusNoMatch {
		t.Errorf("gate(no_match) = %q, want no_match", got)
	}
}

func TestModeValid(t *testing.T) {
	tests := []struct {
		mode Mode
		want bool
	}{
		{ModeAuto, true},
		{ModeAll, true},
		{Mode("force"), false},
		{Mode(""), false},
	}

	for _, tt := range tests {
		if got := tt.mode.Valid(); got != tt.want {
			t.Errorf("Mode(%q).Valid() = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrInvalidMode, http.StatusBadRequest},
		{ErrNoVerdicts, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
