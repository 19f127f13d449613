package search_test

import (
	"slices"
	"testing"

	"github.com/lectern-app/lectern/internal/search"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{
			name:  "lowercases and drops stopwords",
			text:  "Which of the following describes cardiac output",
			limit: 16,
			want:  []string{"cardiac", "output"},
		},
		{
			name:  "ratios survive intact",
			text:  "ventilation perfusion ratio 4:5 and 1/2 dose",
			limit: 16,
			want:  []string{"ventilation", "perfusion", "ratio", "4:5", "1/2", "dose"},
		},
		{
			name:  "decimals survive intact",
			text:  "pH below 7.35 indicates acidosis",
			limit: 16,
			want:  []string{"ph", "below", "7.35", "indicates", "acidosis"},
		},
		{
			name:  "compounds keep their joiners",
			text:  "COVID-19 spike_protein binding",
			limit: 16,
			want:  []string{"covid-19", "spike_protein", "binding"},
		},
		{
			name:  "reserved operators dropped case insensitively",
			text:  "sodium OR potassium Not chloride NEAR calcium",
			limit: 16,
			want:  []string{"sodium", "potassium", "chloride", "calcium"},
		},
		{
			name:  "deduplicates preserving first-seen order",
			text:  "renal tubule renal cortex tubule",
			limit: 16,
			want:  []string{"renal", "tubule", "cortex"},
		},
		{
			name:  "caps at limit",
			text:  "alpha beta gamma delta epsilon",
			limit: 3,
			want:  []string{"alpha", "beta", "gamma"},
		},
		{
			name:  "cjk runs extracted",
			text:  "心臓の構造 explained",
			limit: 16,
			want:  []string{"心臓の構造", "explained"},
		},
		{
			name:  "empty text",
			text:  "",
			limit: 16,
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := search.Tokenize(tt.text, tt.limit)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTokenizeZeroLimit(t *testing.T) {
	if got := search.Tokenize("cardiac output", 0); got != nil {
		t.Errorf("Tokenize with zero limit = %v, want nil", got)
	}
}
