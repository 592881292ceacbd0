// Package config loads the seqmine configuration file.
//
// The file is YAML and every key is optional; Default supplies the values
// a key takes when it is absent. Unknown keys are rejected so that typos
// surface instead of being silently ignored. Command-line flags override
// the loaded values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/seqmine/internal/catalog"
	"github.com/roach88/seqmine/internal/ir"
	"github.com/roach88/seqmine/internal/oracle"
)

// DefaultCapacity is the number of job-store rows created by init.
const DefaultCapacity = 368000

// Config is the complete configuration of a seqmine invocation.
type Config struct {
	// Database is the job-store SQLite file.
	Database string `yaml:"database"`

	// CacheDir is the content-cache root.
	CacheDir string `yaml:"cache_dir"`

	// Capacity is the number of ids created by init (A000001..capacity).
	Capacity int `yaml:"capacity"`

	Catalog CatalogConfig `yaml:"catalog"`
	Oracle  OracleConfig  `yaml:"oracle"`
	Engine  EngineConfig  `yaml:"engine"`
	Xref    XrefConfig    `yaml:"xref"`

	// Blacklist lists ids excluded in addition to the built-in defaults.
	Blacklist []string `yaml:"blacklist"`

	// MetricsAddr, when set, serves Prometheus metrics during a run.
	MetricsAddr string `yaml:"metrics_addr"`
}

// CatalogConfig configures the remote catalog client.
type CatalogConfig struct {
	URLTemplate   string        `yaml:"url_template"`
	UserAgent     string        `yaml:"user_agent"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
	Timeout       time.Duration `yaml:"timeout"`
}

// OracleConfig configures the guesser and the adapter around it.
type OracleConfig struct {
	// Command runs an external guesser; empty selects the built-in one.
	Command     []string      `yaml:"command"`
	Algorithms  []string      `yaml:"algorithms"`
	PrefixTerms int           `yaml:"prefix_terms"`
	MinTerms    int           `yaml:"min_terms"`
	MemoSize    int           `yaml:"memo_size"`
	ItemTimeout time.Duration `yaml:"item_timeout"`
}

// EngineConfig configures the processing driver.
type EngineConfig struct {
	CommitEvery            int `yaml:"commit_every"`
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures"`
	DownloadWorkers        int `yaml:"download_workers"`
}

// XrefConfig configures the cross-reference pass.
type XrefConfig struct {
	Snapshot string `yaml:"snapshot"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Database: "seqmine_data/seqmine.db",
		CacheDir: "seqmine_data",
		Capacity: DefaultCapacity,
		Catalog: CatalogConfig{
			URLTemplate:   catalog.DefaultURLTemplate,
			UserAgent:     "seqmine/1.0",
			RatePerSecond: 2,
			Burst:         1,
			Timeout:       30 * time.Second,
		},
		Oracle: OracleConfig{
			PrefixTerms: 10,
			MinTerms:    8,
			MemoSize:    4096,
			ItemTimeout: time.Minute,
		},
		Engine: EngineConfig{
			CommitEvery:            10,
			MaxConsecutiveFailures: 10,
			DownloadWorkers:        4,
		},
		Xref: XrefConfig{
			Snapshot: "seqmine_data/xref.snapshot",
		},
	}
}

// Load reads path over the defaults. An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := decode(data, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// Validate checks value ranges and references.
func (c *Config) Validate() error {
	var errs []error
	if c.Database == "" {
		errs = append(errs, errors.New("database is required"))
	}
	if c.CacheDir == "" {
		errs = append(errs, errors.New("cache_dir is required"))
	}
	if c.Capacity < 1 || c.Capacity > ir.MaxIDNumber {
		errs = append(errs, fmt.Errorf("capacity must be in [1, %d], got %d", ir.MaxIDNumber, c.Capacity))
	}
	if c.Catalog.URLTemplate != "" && strings.Count(c.Catalog.URLTemplate, "%s") != 1 {
		errs = append(errs, fmt.Errorf("catalog.url_template must contain exactly one %%s: %q", c.Catalog.URLTemplate))
	}
	if c.Catalog.RatePerSecond < 0 {
		errs = append(errs, errors.New("catalog.rate_per_second must not be negative"))
	}
	if c.Oracle.MinTerms > c.Oracle.PrefixTerms {
		errs = append(errs, fmt.Errorf("oracle.min_terms (%d) exceeds oracle.prefix_terms (%d)", c.Oracle.MinTerms, c.Oracle.PrefixTerms))
	}
	if c.Oracle.ItemTimeout < 0 {
		errs = append(errs, errors.New("oracle.item_timeout must not be negative"))
	}
	if c.Engine.CommitEvery < 1 {
		errs = append(errs, fmt.Errorf("engine.commit_every must be positive, got %d", c.Engine.CommitEvery))
	}
	if c.Engine.MaxConsecutiveFailures < 1 {
		errs = append(errs, fmt.Errorf("engine.max_consecutive_failures must be positive, got %d", c.Engine.MaxConsecutiveFailures))
	}
	for _, s := range c.Blacklist {
		if _, err := ir.ParseID(s); err != nil {
			errs = append(errs, fmt.Errorf("blacklist: %w", err))
		}
	}
	return errors.Join(errs...)
}

// BlacklistIDs returns the configured extra blacklist.
func (c *Config) BlacklistIDs() []ir.ID {
	ids := make([]ir.ID, 0, len(c.Blacklist))
	for _, s := range c.Blacklist {
		if id, err := ir.ParseID(s); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// ClientConfig returns the catalog client settings.
func (c *Config) ClientConfig() catalog.ClientConfig {
	return catalog.ClientConfig{
		URLTemplate:   c.Catalog.URLTemplate,
		UserAgent:     c.Catalog.UserAgent,
		Timeout:       c.Catalog.Timeout,
		RatePerSecond: c.Catalog.RatePerSecond,
		Burst:         c.Catalog.Burst,
	}
}

// AdapterConfig returns the oracle adapter settings.
func (c *Config) AdapterConfig() oracle.Config {
	return oracle.Config{
		Algorithms:  c.Oracle.Algorithms,
		PrefixTerms: c.Oracle.PrefixTerms,
		MinTerms:    c.Oracle.MinTerms,
		MemoSize:    c.Oracle.MemoSize,
		ItemTimeout: c.Oracle.ItemTimeout,
	}
}
