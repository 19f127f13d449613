package jobs

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds orchestrator tunables: worker pool size and the reuse
// lookback window for idempotent job matching.
type Config struct {
	Workers       int    `toml:"workers"`
	ReuseLookback string `toml:"reuse_lookback"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Workers       string
	ReuseLookback string
}

// ReuseLookbackDuration parses the configured lookback window. Finalize
// has already validated the format.
func (c *Config) ReuseLookbackDuration() time.Duration {
	d, _ := time.ParseDuration(c.ReuseLookback)
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

// Merge overwrites fields from overlay. Fields only apply when non-zero.
func (c *Config) Merge(overlay *Config) {
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.ReuseLookback != "" {
		c.ReuseLookback = overlay.ReuseLookback
	}
}

func (c *Config) loadDefaults() {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.ReuseLookback == "" {
		c.ReuseLookback = "24h"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Workers != "" {
		if v := os.Getenv(env.Workers); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Workers = n
			}
		}
	}
	if env.ReuseLookback != "" {
		if v := os.Getenv(env.ReuseLookback); v != "" {
			c.ReuseLookback = v
		}
	}
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	if _, err := time.ParseDuration(c.ReuseLookback); err != nil {
		return fmt.Errorf("invalid reuse_lookback: %w", err)
	}
	return nil
}
