package search

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds every retrieval tunable: query construction, result
// bounds, and the trigram similarity blend.
type Config struct {
	// TextSearchConfig is the Postgres text search configuration used for
	// both indexing and querying. Must match the migration's generated
	// search_vector column.
	TextSearchConfig string `toml:"text_search_config"`
	QueryMode        string `toml:"query_mode"`
	MaxTerms         int    `toml:"max_terms"`
	TopN             int    `toml:"top_n"`
	// MinHits is the result count under which the engine degrades the
	// term cap and, when fuzzy blending is enabled, invokes the trigram
	// similarity pass.
	MinHits         int     `toml:"min_hits"`
	FuzzyEnabled    bool    `toml:"fuzzy_enabled"`
	FuzzyAlpha      float64 `toml:"fuzzy_alpha"`
	FuzzyThreshold  float64 `toml:"fuzzy_threshold"`
	ShortQueryTerms int     `toml:"short_query_terms"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	TextSearchConfig string
	QueryMode        string
	MaxTerms         string
	TopN             string
	MinHits          string
	FuzzyEnabled     string
	FuzzyAlpha       string
	FuzzyThreshold   string
	ShortQueryTerms  string
}

// Mode returns the configured query mode.
func (c *Config) Mode() QueryMode {
	return QueryMode(c.QueryMode)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites fields from overlay. Boolean fields always apply;
// other fields only apply when non-zero.
func (c *Config) Merge(overlay *Config) {
	c.FuzzyEnabled = overlay.FuzzyEnabled

	if overlay.TextSearchConfig != "" {
		c.TextSearchConfig = overlay.TextSearchConfig
	}
	if overlay.QueryMode != "" {
		c.QueryMode = overlay.QueryMode
	}
	if overlay.MaxTerms != 0 {
		c.MaxTerms = overlay.MaxTerms
	}
	if overlay.TopN != 0 {
		c.TopN = overlay.TopN
	}
	if overlay.MinHits != 0 {
		c.MinHits = overlay.MinHits
	}
	if overlay.FuzzyAlpha != 0 {
		c.FuzzyAlpha = overlay.FuzzyAlpha
	}
	if overlay.FuzzyThreshold != 0 {
		c.FuzzyThreshold = overlay.FuzzyThreshold
	}
	if overlay.ShortQueryTerms != 0 {
		c.ShortQueryTerms = overlay.ShortQueryTerms
	}
}

func (c *Config) loadDefaults() {
	if c.TextSearchConfig == "" {
		c.TextSearchConfig = "simple"
	}
	if c.QueryMode == "" {
		c.QueryMode = string(QueryModeWebsearch)
	}
	if c.MaxTerms == 0 {
		c.MaxTerms = 16
	}
	if c.TopN == 0 {
		c.TopN = 30
	}
	if c.MinHits == 0 {
		c.MinHits = 3
	}
	if c.FuzzyAlpha == 0 {
		c.FuzzyAlpha = 0.3
	}
	if c.FuzzyThreshold == 0 {
		c.FuzzyThreshold = 0.1
	}
	if c.ShortQueryTerms == 0 {
		c.ShortQueryTerms = 5
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.TextSearchConfig != "" {
		if v := os.Getenv(env.TextSearchConfig); v != "" {
			c.TextSearchConfig = v
		}
	}
	if env.QueryMode != "" {
		if v := os.Getenv(env.QueryMode); v != "" {
			c.QueryMode = v
		}
	}
	if env.MaxTerms != "" {
		if v := os.Getenv(env.MaxTerms); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxTerms = n
			}
		}
	}
	if env.TopN != "" {
		if v := os.Getenv(env.TopN); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.TopN = n
			}
		}
	}
	if env.MinHits != "" {
		if v := os.Getenv(env.MinHits); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MinHits = n
			}
		}
	}
	if env.FuzzyEnabled != "" {
		if v := os.Getenv(env.FuzzyEnabled); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.FuzzyEnabled = b
			}
		}
	}
	if env.FuzzyAlpha != "" {
		if v := os.Getenv(env.FuzzyAlpha); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.FuzzyAlpha = f
			}
		}
	}
	if env.FuzzyThreshold != "" {
		if v := os.Getenv(env.FuzzyThreshold); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.FuzzyThreshold = f
			}
		}
	}
	if env.ShortQueryTerms != "" {
		if v := os.Getenv(env.ShortQueryTerms); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.ShortQueryTerms = n
			}
		}
	}
}

func (c *Config) validate() error {
	if !c.Mode().Valid() {
		return fmt.Errorf("invalid query_mode: %s", c.QueryMode)
	}
	if c.MaxTerms < 1 {
		return fmt.Errorf("max_terms must be positive")
	}
	if c.TopN < 1 {
		return fmt.Errorf("top_n must be positive")
	}
	if c.FuzzyAlpha < 0 || c.FuzzyAlpha > 1 {
		return fmt.Errorf("fuzzy_alpha must be in [0,1]: %f", c.FuzzyAlpha)
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy_threshold must be in [0,1]: %f", c.FuzzyThreshold)
	}
	return nil
}
