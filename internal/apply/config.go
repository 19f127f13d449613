package apply

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the auto-apply gate. The gate passes when auto-apply is
// enabled and a strict verdict's confidence is at least
// threshold + margin.
type Config struct {
	AutoApplyEnabled bool    `toml:"auto_apply_enabled"`
	Threshold        float64 `toml:"threshold"`
	Margin           float64 `toml:"margin"`
	// AllowWeakApply permits weak_match verdicts to mutate assignments.
	// Off by default in both apply modes.
	AllowWeakApply bool `toml:"allow_weak_apply"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	AutoApplyEnabled string
	Threshold        string
	Margin           string
	AllowWeakApply   string
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
	c.AutoApplyEnabled = overlay.AutoApplyEnabled
	c.AllowWeakApply = overlay.AllowWeakApply

	if overlay.Threshold != 0 {
		c.Threshold = overlay.Threshold
	}
	if overlay.Margin != 0 {
		c.Margin = overlay.Margin
	}
}

func (c *Config) loadDefaults() {
	if c.Threshold == 0 {
		c.Threshold = 0.75
	}
	if c.Margin == 0 {
		c.Margin = 0.05
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.AutoApplyEnabled != "" {
		if v := os.Getenv(env.AutoApplyEnabled); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.AutoApplyEnabled = b
			}
		}
	}
	if env.Threshold != "" {
		if v := os.Getenv(env.Threshold); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.Threshold = f
			}
		}
	}
	if env.Margin != "" {
		if v := os.Getenv(env.Margin); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.Margin = f
			}
		}
	}
	if env.AllowWeakApply != "" {
		if v := os.Getenv(env.AllowWeakApply); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.AllowWeakApply = b
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be in [0,1]: %f", c.Threshold)
	}
	if c.Margin < 0 || c.Margin > 1 {
		return fmt.Errorf("margin must be in [0,1]: %f", c.Margin)
	}
	return nil
}
