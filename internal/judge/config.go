package judge

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the judge endpoint settings, the retry policy, and the
// knobs for the hardening rules and rejudge escalation. Boolean fields
// are named so the zero value is the default behavior.
type Config struct {
	BaseURL     string  `toml:"base_url"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`

	RetryAttempts  int    `toml:"retry_attempts"`
	RetryBaseDelay string `toml:"retry_base_delay"`
	RetryMaxDelay  string `toml:"retry_max_delay"`

	// SkipVerbatimCheck disables the rule that a matched verdict must
	// carry at least one verbatim citation.
	SkipVerbatimCheck bool `toml:"skip_verbatim_check"`
	// RequirePageSpans drops citations missing page_start or page_end.
	RequirePageSpans bool `toml:"require_page_spans"`

	DisableRejudge         bool    `toml:"disable_rejudge"`
	RejudgeMinCandidates   int     `toml:"rejudge_min_candidates"`
	RejudgeConfidenceFloor float64 `toml:"rejudge_confidence_floor"`
	AllowWeakMatch         bool    `toml:"allow_weak_match"`
	WeakMatchFloor         float64 `toml:"weak_match_floor"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature string
	MaxTokens   string

	RetryAttempts  string
	RetryBaseDelay string
	RetryMaxDelay  string

	SkipVerbatimCheck string
	RequirePageSpans  string

	DisableRejudge         string
	RejudgeMinCandidates   string
	RejudgeConfidenceFloor string
	AllowWeakMatch         string
	WeakMatchFloor         string
}

// RetryBaseDelayDuration parses the configured base delay. Finalize has
// already validated the format.
func (c *Config) RetryBaseDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetryBaseDelay)
	return d
}

// RetryMaxDelayDuration parses the configured max delay.
func (c *Config) RetryMaxDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetryMaxDelay)
	return d
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
	c.SkipVerbatimCheck = overlay.SkipVerbatimCheck
	c.RequirePageSpans = overlay.RequirePageSpans
	c.DisableRejudge = overlay.DisableRejudge
	c.AllowWeakMatch = overlay.AllowWeakMatch

	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.Temperature != 0 {
		c.Temperature = overlay.Temperature
	}
	if overlay.MaxTokens != 0 {
		c.MaxTokens = overlay.MaxTokens
	}
	if overlay.RetryAttempts != 0 {
		c.RetryAttempts = overlay.RetryAttempts
	}
	if overlay.RetryBaseDelay != "" {
		c.RetryBaseDelay = overlay.RetryBaseDelay
	}
	if overlay.RetryMaxDelay != "" {
		c.RetryMaxDelay = overlay.RetryMaxDelay
	}
	if overlay.RejudgeMinCandidates != 0 {
		c.RejudgeMinCandidates = overlay.RejudgeMinCandidates
	}
	if overlay.RejudgeConfidenceFloor != 0 {
		c.RejudgeConfidenceFloor = overlay.RejudgeConfidenceFloor
	}
	if overlay.WeakMatchFloor != 0 {
		c.WeakMatchFloor = overlay.WeakMatchFloor
	}
}

func (c *Config) loadDefaults() {
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 900
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}
	if c.RetryBaseDelay == "" {
		c.RetryBaseDelay = "500ms"
	}
	if c.RetryMaxDelay == "" {
		c.RetryMaxDelay = "8s"
	}
	if c.RejudgeMinCandidates == 0 {
		c.RejudgeMinCandidates = 3
	}
	if c.RejudgeConfidenceFloor == 0 {
		c.RejudgeConfidenceFloor = 0.55
	}
	if c.WeakMatchFloor == 0 {
		c.WeakMatchFloor = 0.35
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.BaseURL != "" {
		if v := os.Getenv(env.BaseURL); v != "" {
			c.BaseURL = v
		}
	}
	if env.APIKey != "" {
		if v := os.Getenv(env.APIKey); v != "" {
			c.APIKey = v
		}
	}
	if env.Model != "" {
		if v := os.Getenv(env.Model); v != "" {
			c.Model = v
		}
	}
	if env.Temperature != "" {
		if v := os.Getenv(env.Temperature); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.Temperature = f
			}
		}
	}
	if env.MaxTokens != "" {
		if v := os.Getenv(env.MaxTokens); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxTokens = n
			}
		}
	}
	if env.RetryAttempts != "" {
		if v := os.Getenv(env.RetryAttempts); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.RetryAttempts = n
			}
		}
	}
	if env.RetryBaseDelay != "" {
		if v := os.Getenv(env.RetryBaseDelay); v != "" {
			c.RetryBaseDelay = v
		}
	}
	if env.RetryMaxDelay != "" {
		if v := os.Getenv(env.RetryMaxDelay); v != "" {
			c.RetryMaxDelay = v
		}
	}
	if env.SkipVerbatimCheck != "" {
		if v := os.Getenv(env.SkipVerbatimCheck); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.SkipVerbatimCheck = b
			}
		}
	}
	if env.RequirePageSpans != "" {
		if v := os.Getenv(env.RequirePageSpans); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.RequirePageSpans = b
			}
		}
	}
	if env.DisableRejudge != "" {
		if v := os.Getenv(env.DisableRejudge); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.DisableRejudge = b
			}
		}
	}
	if env.RejudgeMinCandidates != "" {
		if v := os.Getenv(env.RejudgeMinCandidates); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.RejudgeMinCandidates = n
			}
		}
	}
	if env.RejudgeConfidenceFloor != "" {
		if v := os.Getenv(env.RejudgeConfidenceFloor); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.RejudgeConfidenceFloor = f
			}
		}
	}
	if env.AllowWeakMatch != "" {
		if v := os.Getenv(env.AllowWeakMatch); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.AllowWeakMatch = b
			}
		}
	}
	if env.WeakMatchFloor != "" {
		if v := os.Getenv(env.WeakMatchFloor); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.WeakMatchFloor = f
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be positive")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be positive")
	}
	if _, err := time.ParseDuration(c.RetryBaseDelay); err != nil {
		return fmt.Errorf("invalid retry_base_delay: %w", err)
	}
	if _, err := time.ParseDuration(c.RetryMaxDelay); err != nil {
		return fmt.Errorf("invalid retry_max_delay: %w", err)
	}
	if c.RejudgeConfidenceFloor < 0 || c.RejudgeConfidenceFloor > 1 {
		return fmt.Errorf("rejudge_confidence_floor must be in [0,1]: %f", c.RejudgeConfidenceFloor)
	}
	if c.WeakMatchFloor < 0 || c.WeakMatchFloor > 1 {
		return fmt.Errorf("weak_match_floor must be in [0,1]: %f", c.WeakMatchFloor)
	}
	return nil
}
