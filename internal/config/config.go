// Package config handles configuration loading and shared data structures.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/woozymasta/geosites/internal/geo"
	"github.com/woozymasta/geosites/internal/processor"

	"gopkg.in/yaml.v3"
)

const (
	DefaultWorkDir       = "output"
	DefaultUploadDir     = "uploads"
	DefaultTimeout       = 30 * time.Second
	DefaultMaxUploadSize = 32 << 20
)

// Config represents the root configuration file structure.
type Config struct {
	Columns    processor.Columns `yaml:"columns,omitempty"`
	Projection Projection        `yaml:"projection,omitempty"`

	// nil means true
	QuoteAware *bool `yaml:"quote_aware,omitempty"`

	WorkDir         string        `yaml:"work_dir,omitempty"`
	UploadDir       string        `yaml:"upload_dir,omitempty"`
	SourceDelimiter string        `yaml:"source_delimiter,omitempty"`
	TargetDelimiter string        `yaml:"target_delimiter,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty"`
	MaxUploadSize   int64         `yaml:"max_upload_size,omitempty"`

	SkipInvalidRows  bool `yaml:"skip_invalid_rows,omitempty"`
	KeepIntermediate bool `yaml:"keep_intermediate,omitempty"`
	Compact          bool `yaml:"compact,omitempty"` // no indentation in artifacts
}

// Projection holds the source and target reference system definitions.
type Projection struct {
	Source string `yaml:"source,omitempty"`
	Target string `yaml:"target,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	_ = cfg.Validate()
	return cfg
}

// Load reads and parses the YAML configuration file from the specified path.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}

	return &cfg, nil
}

// Validate fills defaults and checks values.
func (c *Config) Validate() error {
	if c.WorkDir == "" {
		c.WorkDir = DefaultWorkDir
	}
	if c.UploadDir == "" {
		c.UploadDir = DefaultUploadDir
	}
	if c.SourceDelimiter == "" {
		c.SourceDelimiter = ";"
	}
	if c.TargetDelimiter == "" {
		c.TargetDelimiter = ","
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxUploadSize == 0 {
		c.MaxUploadSize = DefaultMaxUploadSize
	}
	if c.QuoteAware == nil {
		quoteAware := true
		c.QuoteAware = &quoteAware
	}
	if c.Projection.Source == "" {
		c.Projection.Source = geo.DefaultSource
	}
	if c.Projection.Target == "" {
		c.Projection.Target = geo.DefaultTarget
	}
	c.Columns = c.Columns.WithDefaults()

	var errs []error
	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout must not be negative"))
	}
	if c.MaxUploadSize < 0 {
		errs = append(errs, errors.New("max_upload_size must not be negative"))
	}
	if _, err := delimiter(c.SourceDelimiter); err != nil {
		errs = append(errs, fmt.Errorf("source_delimiter: %w", err))
	}
	if _, err := delimiter(c.TargetDelimiter); err != nil {
		errs = append(errs, fmt.Errorf("target_delimiter: %w", err))
	}
	if _, err := geo.NewReprojectorFromStrings(c.Projection.Source, c.Projection.Target); err != nil {
		errs = append(errs, fmt.Errorf("projection: %w", err))
	}

	return errors.Join(errs...)
}

// PipelineOptions converts the configuration into pipeline options.
func (c *Config) PipelineOptions() (processor.Options, error) {
	if err := c.Validate(); err != nil {
		return processor.Options{}, err
	}

	src, _ := delimiter(c.SourceDelimiter)
	dst, _ := delimiter(c.TargetDelimiter)
	r, err := geo.NewReprojectorFromStrings(c.Projection.Source, c.Projection.Target)
	if err != nil {
		return processor.Options{}, err
	}

	indent := "  "
	if c.Compact {
		indent = ""
	}

	return processor.Options{
		WorkDir:          c.WorkDir,
		SourceDelimiter:  src,
		TargetDelimiter:  dst,
		QuoteAware:       *c.QuoteAware,
		SkipInvalidRows:  c.SkipInvalidRows,
		KeepIntermediate: c.KeepIntermediate,
		Timeout:          c.Timeout,
		Indent:           indent,
		Columns:          c.Columns,
		Reprojector:      r,
	}, nil
}

func delimiter(s string) (rune, error) {
	if s == `\t` {
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("expected a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}
