package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"drivesync/internal/scheduler"
	"drivesync/internal/sync"
)

// Config is the root of config.yaml.
type Config struct {
	System   SystemConfig    `yaml:"system"`
	Batch    BatchConfig     `yaml:"batch"`
	Pairings []PairingConfig `yaml:"pairings"`
}

// SystemConfig holds process-level settings.
type SystemConfig struct {
	StorePath string `yaml:"store_path"`
	LogLevel  string `yaml:"log_level"`
	LogFile   string `yaml:"log_file"`
}

// BatchConfig tunes the executor.
type BatchConfig struct {
	BatchSize       int    `yaml:"batch_size"`
	RetryAttempts   int    `yaml:"retry_attempts"`
	ContinueOnError bool   `yaml:"continue_on_error"`
	BaseDelay       string `yaml:"base_delay"`
	BatchDelay      string `yaml:"batch_delay"`

	// parsed forms, not part of the yaml surface
	BaseDelayDuration  time.Duration `yaml:"-"`
	BatchDelayDuration time.Duration `yaml:"-"`
}

// FilterConfig is the yaml shape of a snapshot filter.
type FilterConfig struct {
	Include     []string `yaml:"include"`
	Exclude     []string `yaml:"exclude"`
	MimeClasses []string `yaml:"mime_classes"`
	MinSize     int64    `yaml:"min_size"`
	MaxSize     int64    `yaml:"max_size"`
}

// PairingConfig declares one synchronization pairing between two local
// directory roots.
type PairingConfig struct {
	Name            string       `yaml:"name"`
	SourceRoot      string       `yaml:"source_root"`
	TargetRoot      string       `yaml:"target_root"`
	Mode            string       `yaml:"mode"`
	ConflictPolicy  string       `yaml:"conflict_policy"`
	PropagatePolicy string       `yaml:"propagate_policy"`
	IncludeSubtrees *bool        `yaml:"include_subtrees"`
	Filter          FilterConfig `yaml:"filter"`
	// Schedule: "hourly", "daily", "weekly" or a duration string.
	// Empty means manual runs only.
	Schedule string `yaml:"schedule"`

	ScheduleDuration time.Duration `yaml:"-"`
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.System.StorePath == "" {
		cfg.System.StorePath = "drivesync.db"
	}
	if cfg.System.LogLevel == "" {
		cfg.System.LogLevel = "info"
	}

	if cfg.Batch.BaseDelay != "" {
		if cfg.Batch.BaseDelayDuration, err = time.ParseDuration(cfg.Batch.BaseDelay); err != nil {
			return nil, fmt.Errorf("invalid batch.base_delay: %w", err)
		}
	}
	if cfg.Batch.BatchDelay != "" {
		if cfg.Batch.BatchDelayDuration, err = time.ParseDuration(cfg.Batch.BatchDelay); err != nil {
			return nil, fmt.Errorf("invalid batch.batch_delay: %w", err)
		}
	}

	names := make(map[string]bool)
	for i := range cfg.Pairings {
		if err := cfg.Pairings[i].validate(names); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// Pairing finds a pairing by name.
func (c *Config) Pairing(name string) (*PairingConfig, error) {
	for i := range c.Pairings {
		if c.Pairings[i].Name == name {
			return &c.Pairings[i], nil
		}
	}
	return nil, fmt.Errorf("unknown pairing %q", name)
}

func (p *PairingConfig) validate(names map[string]bool) error {
	if p.Name == "" {
		return fmt.Errorf("pairing without a name")
	}
	if names[p.Name] {
		return fmt.Errorf("duplicate pairing name %q", p.Name)
	}
	names[p.Name] = true

	if p.SourceRoot == "" || p.TargetRoot == "" {
		return fmt.Errorf("pairing %q: source_root and target_root are required", p.Name)
	}

	var err error
	if p.ScheduleDuration, err = scheduler.ParseInterval(p.Schedule); err != nil {
		return fmt.Errorf("pairing %q: %w", p.Name, err)
	}

	// Operation() validates mode, policies and filter globs
	_, err = p.Operation()
	return err
}

// Operation translates the yaml pairing into an engine config.
func (p *PairingConfig) Operation() (*sync.OperationConfig, error) {
	includeSubtrees := true
	if p.IncludeSubtrees != nil {
		includeSubtrees = *p.IncludeSubtrees
	}

	var filter *sync.Filter
	if len(p.Filter.Include) > 0 || len(p.Filter.Exclude) > 0 ||
		len(p.Filter.MimeClasses) > 0 || p.Filter.MinSize > 0 || p.Filter.MaxSize > 0 {
		classes := make([]sync.MimeClass, 0, len(p.Filter.MimeClasses))
		for _, c := range p.Filter.MimeClasses {
			classes = append(classes, sync.MimeClass(c))
		}
		filter = &sync.Filter{
			Include:     p.Filter.Include,
			Exclude:     p.Filter.Exclude,
			MimeClasses: classes,
			MinSize:     p.Filter.MinSize,
			MaxSize:     p.Filter.MaxSize,
		}
	}

	// the pairing name doubles as the config id so run history stays
	// attached across restarts
	op := &sync.OperationConfig{
		ID:              p.Name,
		Name:            p.Name,
		Mode:            sync.Mode(p.Mode),
		ConflictPolicy:  sync.ConflictPolicy(p.ConflictPolicy),
		Propagate:       sync.PropagatePolicy(p.PropagatePolicy),
		IncludeSubtrees: includeSubtrees,
		Filter:          filter,
		Schedule:        p.ScheduleDuration,
	}
	if err := op.Validate(); err != nil {
		return nil, fmt.Errorf("pairing %q: %w", p.Name, err)
	}
	return op, nil
}
