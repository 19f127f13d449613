package search

import (
	"fmt"
	"os"
	"strconv"
)

// AggregateConfig holds candidate-aggregation tunables.
type AggregateConfig struct {
	Mode               string `toml:"mode"`
	TopM               int    `toml:"top_m"`
	ChunkCap           int    `toml:"chunk_cap"`
	TopKLectures       int    `toml:"top_k_lectures"`
	EvidencePerLecture int    `toml:"evidence_per_lecture"`
}

// AggregateEnv maps aggregation config fields to environment variable names.
type AggregateEnv struct {
	Mode               string
	TopM               string
	ChunkCap           string
	TopKLectures       string
	EvidencePerLecture string
}

// Options returns the AggregateOptions this configuration describes.
func (c *AggregateConfig) Options() AggregateOptions {
	return AggregateOptions{
		TopKLectures:       c.TopKLectures,
		EvidencePerLecture: c.EvidencePerLecture,
		Mode:               AggMode(c.Mode),
		TopM:               c.TopM,
		ChunkCap:           c.ChunkCap,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AggregateConfig) Finalize(env *AggregateEnv) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *AggregateConfig) Merge(overlay *AggregateConfig) {
	if overlay.Mode != "" {
		c.Mode = overlay.Mode
	}
	if overlay.TopM != 0 {
		c.TopM = overlay.TopM
	}
	if overlay.ChunkCap != 0 {
		c.ChunkCap = overlay.ChunkCap
	}
	if overlay.TopKLectures != 0 {
		c.TopKLectures = overlay.TopKLectures
	}
	if overlay.EvidencePerLecture != 0 {
		c.EvidencePerLecture = overlay.EvidencePerLecture
	}
}

func (c *AggregateConfig) loadDefaults() {
	if c.Mode == "" {
		c.Mode = string(AggModeSum)
	}
	if c.TopM == 0 {
		c.TopM = 3
	}
	if c.TopKLectures == 0 {
		c.TopKLectures = 5
	}
	if c.EvidencePerLecture == 0 {
		c.EvidencePerLecture = 3
	}
}

func (c *AggregateConfig) loadEnv(env *AggregateEnv) {
	if env.Mode != "" {
		if v := os.Getenv(env.Mode); v != "" {
			c.Mode = v
		}
	}
	if env.TopM != "" {
		if v := os.Getenv(env.TopM); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.TopM = n
			}
		}
	}
	if env.ChunkCap != "" {
		if v := os.Getenv(env.ChunkCap); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.ChunkCap = n
			}
		}
	}
	if env.TopKLectures != "" {
		if v := os.Getenv(env.TopKLectures); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.TopKLectures = n
			}
		}
	}
	if env.EvidencePerLecture != "" {
		if v := os.Getenv(env.EvidencePerLecture); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.EvidencePerLecture = n
			}
		}
	}
}

func (c *AggregateConfig) validate() error {
	if !AggMode(c.Mode).Valid() {
		return fmt.Errorf("invalid aggregation mode: %s", c.Mode)
	}
	if c.TopM < 1 {
		return fmt.Errorf("top_m must be positive")
	}
	if c.TopKLectures < 1 {
		return fmt.Errorf("top_k_lectures must be positive")
	}
	if c.EvidencePerLecture < 1 {
		return fmt.Errorf("evidence_per_lecture must be positive")
	}
	return nil
}
