package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/lectern-app/lectern/internal/apply"
	"github.com/lectern-app/lectern/internal/jobs"
	"github.com/lectern-app/lectern/internal/judge"
	"github.com/lectern-app/lectern/internal/search"
	"github.com/lectern-app/lectern/pkg/database"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvLecternEnv             = "LECTERN_ENV"
	EnvLecternShutdownTimeout = "LECTERN_SHUTDOWN_TIMEOUT"
	EnvLecternVersion         = "LECTERN_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "LECTERN_DB_HOST",
	Port:            "LECTERN_DB_PORT",
	Name:            "LECTERN_DB_NAME",
	User:            "LECTERN_DB_USER",
	Password:        "LECTERN_DB_PASSWORD",
	SSLMode:         "LECTERN_DB_SSL_MODE",
	MaxOpenConns:    "LECTERN_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "LECTERN_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "LECTERN_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "LECTERN_DB_CONN_TIMEOUT",
}

var searchEnv = &search.Env{
	TextSearchConfig: "LECTERN_SEARCH_TEXT_SEARCH_CONFIG",
	QueryMode:        "LECTERN_SEARCH_QUERY_MODE",
	MaxTerms:         "LECTERN_SEARCH_MAX_TERMS",
	TopN:             "LECTERN_SEARCH_TOP_N",
	MinHits:          "LECTERN_SEARCH_MIN_HITS",
	FuzzyEnabled:     "LECTERN_SEARCH_FUZZY_ENABLED",
	FuzzyAlpha:       "LECTERN_SEARCH_FUZZY_ALPHA",
	FuzzyThreshold:   "LECTERN_SEARCH_FUZZY_THRESHOLD",
	ShortQueryTerms:  "LECTERN_SEARCH_SHORT_QUERY_TERMS",
}

var aggregateEnv = &search.AggregateEnv{
	Mode:               "LECTERN_AGGREGATE_MODE",
	TopM:               "LECTERN_AGGREGATE_TOP_M",
	ChunkCap:           "LECTERN_AGGREGATE_CHUNK_CAP",
	TopKLectures:       "LECTERN_AGGREGATE_TOP_K_LECTURES",
	EvidencePerLecture: "LECTERN_AGGREGATE_EVIDENCE_PER_LECTURE",
}

var judgeEnv = &judge.Env{
	BaseURL:                "LECTERN_JUDGE_BASE_URL",
	APIKey:                 "LECTERN_JUDGE_API_KEY",
	Model:                  "LECTERN_JUDGE_MODEL",
	Temperature:            "LECTERN_JUDGE_TEMPERATURE",
	MaxTokens:              "LECTERN_JUDGE_MAX_TOKENS",
	RetryAttempts:          "LECTERN_JUDGE_RETRY_ATTEMPTS",
	RetryBaseDelay:         "LECTERN_JUDGE_RETRY_BASE_DELAY",
	RetryMaxDelay:          "LECTERN_JUDGE_RETRY_MAX_DELAY",
	SkipVerbatimCheck:      "LECTERN_JUDGE_SKIP_VERBATIM_CHECK",
	RequirePageSpans:       "LECTERN_JUDGE_REQUIRE_PAGE_SPANS",
	DisableRejudge:         "LECTERN_JUDGE_DISABLE_REJUDGE",
	RejudgeMinCandidates:   "LECTERN_JUDGE_REJUDGE_MIN_CANDIDATES",
	RejudgeConfidenceFloor: "LECTERN_JUDGE_REJUDGE_CONFIDENCE_FLOOR",
	AllowWeakMatch:         "LECTERN_JUDGE_ALLOW_WEAK_MATCH",
	WeakMatchFloor:         "LECTERN_JUDGE_WEAK_MATCH_FLOOR",
}

var applyEnv = &apply.Env{
	AutoApplyEnabled: "LECTERN_APPLY_AUTO_APPLY_ENABLED",
	Threshold:        "LECTERN_APPLY_THRESHOLD",
	Margin:           "LECTERN_APPLY_MARGIN",
	AllowWeakApply:   "LECTERN_APPLY_ALLOW_WEAK_APPLY",
}

var jobsEnv = &jobs.Env{
	Workers:       "LECTERN_JOBS_WORKERS",
	ReuseLookback: "LECTERN_JOBS_REUSE_LOOKBACK",
}

// Config is the root configuration for the Lectern service.
type Config struct {
	Server          ServerConfig           `toml:"server"`
	Database        database.Config        `toml:"database"`
	API             APIConfig              `toml:"api"`
	Search          search.Config          `toml:"search"`
	Aggregate       search.AggregateConfig `toml:"aggregate"`
	Judge           judge.Config           `toml:"judge"`
	Apply           apply.Config           `toml:"apply"`
	Jobs            jobs.Config            `toml:"jobs"`
	ShutdownTimeout string                 `toml:"shutdown_timeout"`
	Version         string                 `toml:"version"`
}

// Env returns the LECTERN_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvLecternEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.API.Merge(&overlay.API)
	c.Search.Merge(&overlay.Search)
	c.Aggregate.Merge(&overlay.Aggregate)
	c.Judge.Merge(&overlay.Judge)
	c.Apply.Merge(&overlay.Apply)
	c.Jobs.Merge(&overlay.Jobs)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Search.Finalize(searchEnv); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := c.Aggregate.Finalize(aggregateEnv); err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	if err := c.Judge.Finalize(judgeEnv); err != nil {
		return fmt.Errorf("judge: %w", err)
	}
	if err := c.Apply.Finalize(applyEnv); err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	if err := c.Jobs.Finalize(jobsEnv); err != nil {
		return fmt.Errorf("jobs: %w", err)
	}
	return nil
}
func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvLecternShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvLecternVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvLecternEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
