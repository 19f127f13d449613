package search_test

import (
	"testing"

	"github.com/lectern-app/lectern/internal/search"
)

func TestQueryModeValid(t *testing.T) {
	tests := []struct {
		mode search.QueryMode
		want bool
	}{
		{search.QueryModeWebsearch, true},
		{search.QueryModePlain, true},
		{search.QueryModeBoolean, true},
		{search.QueryMode("semantic"), false},
		{search.QueryMode(""), false},
	}

	for _, tt := range tests {
		if got := tt.mode.Valid(); got != tt.want {
			t.Errorf("QueryMode(%q).Valid() = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name  string
		terms []string
		mode  search.QueryMode
		want  string
	}{
		{
			name:  "websearch joins with spaces",
			terms: []string{"cardiac", "output"},
			mode:  search.QueryModeWebsearch,
			want:  "cardiac output",
		},
		{
			name:  "plain joins with spaces",
			terms: []string{"renal", "tubule"},
			mode:  search.QueryModePlain,
			want:  "renal tubule",
		},
		{
			name:  "boolean joins with or",
			terms: []string{"cardiac", "output"},
			mode:  search.QueryModeBoolean,
			want:  "cardiac | output",
		},
		{
			name:  "boolean quotes numeric terms",
			terms: []string{"covid", "19", "7.35"},
			mode:  search.QueryModeBoolean,
			want:  "covid | '19' | '7.35'",
		},
		{
			name:  "boolean quotes single-rune terms",
			terms: []string{"x", "chromosome"},
			mode:  search.QueryModeBoolean,
			want:  "'x' | chromosome",
		},
		{
			name:  "boolean quotes metacharacter terms",
			terms: []string{"a&b", "plain"},
			mode:  search.QueryModeBoolean,
			want:  "'a&b' | plain",
		},
		{
			name:  "websearch strips metacharacters",
			terms: []string{"a&b", "c|d"},
			mode:  search.QueryModeWebsearch,
			want:  "ab cd",
		},
		{
			name:  "empty terms",
			terms: nil,
			mode:  search.QueryModeWebsearch,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := search.BuildQuery(tt.terms, tt.mode)
			if got != tt.want {
				t.Errorf("BuildQuery(%v, %q) = %q, want %q", tt.terms, tt.mode, got, tt.want)
			}
		})
	}
}
