// Package config loads the project file (kiln.yaml).
//
// Every key is optional. Relative paths are resolved against the directory
// holding the project file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the project file looked up when no path is given.
const DefaultFile = "kiln.yaml"

// StateDir holds the store and diagnostics by default.
const StateDir = ".kiln"

// GraphOff disables dependency graph diagnostics when used as graph_path.
const GraphOff = "off"

// ErrInvalid classifies configuration validation failures.
var ErrInvalid = errors.New("invalid config")

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Config models kiln.yaml.
type Config struct {
	ContentDir string   `yaml:"content_dir"`
	Rules      string   `yaml:"rules"`
	OutputDir  string   `yaml:"output_dir"`
	StorePath  string   `yaml:"store_path"`
	GraphPath  string   `yaml:"graph_path"`
	Ignore     []string `yaml:"ignore"`
	LogLevel   string   `yaml:"log_level"`
	LogFormat  string   `yaml:"log_format"`

	// MaxWaves bounds metacompiler expansion per build; 0 uses the
	// engine default.
	MaxWaves int `yaml:"max_waves"`

	// HoistDependencies moves queued jobs that an expansion depends on
	// ahead of the expansion.
	HoistDependencies bool `yaml:"hoist_dependencies"`
}

// Load reads the project file at path and applies defaults.
//
// An empty path means DefaultFile in the working directory; a missing
// default file yields the defaults resolved against the working directory.
// A missing explicit path is an error.
func Load(p string) (*Config, error) {
	explicit := p != ""
	if !explicit {
		p = DefaultFile
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Parse(nil, ".")
		}
		return nil, fmt.Errorf("config: read %s: %w", p, err)
	}

	return Parse(data, filepath.Dir(p))
}

// Parse decodes a project file whose relative paths are relative to base.
// Every path of the result is absolute.
func Parse(data []byte, base string) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	c.applyDefaults()
	if err := c.normalize(base); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.ContentDir == "" {
		c.ContentDir = "content"
	}
	if c.Rules == "" {
		c.Rules = "site.cue"
	}
	if c.OutputDir == "" {
		c.OutputDir = "_site"
	}
	if c.StorePath == "" {
		c.StorePath = filepath.Join(StateDir, "store.db")
	}
	if c.GraphPath == "" {
		c.GraphPath = filepath.Join(StateDir, "dependencies.dot")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}

func (c *Config) normalize(base string) error {
	abs, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("config: resolve %s: %w", base, err)
	}
	base = abs
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(base, p)
	}
	c.ContentDir = resolve(c.ContentDir)
	c.Rules = resolve(c.Rules)
	c.OutputDir = resolve(c.OutputDir)
	c.StorePath = resolve(c.StorePath)
	if c.GraphPath != GraphOff {
		c.GraphPath = resolve(c.GraphPath)
	}
	return nil
}

// Graph returns the diagnostics path, or "" when diagnostics are off.
func (c *Config) Graph() string {
	if c.GraphPath == GraphOff {
		return ""
	}
	return c.GraphPath
}

// Validate checks values that defaults cannot fix.
func (c *Config) Validate() error {
	if !slices.Contains(logLevels, c.LogLevel) {
		return fmt.Errorf("%w: log_level %q (want one of %v)", ErrInvalid, c.LogLevel, logLevels)
	}
	if !slices.Contains(logFormats, c.LogFormat) {
		return fmt.Errorf("%w: log_format %q (want one of %v)", ErrInvalid, c.LogFormat, logFormats)
	}
	if c.MaxWaves < 0 {
		return fmt.Errorf("%w: max_waves %d must not be negative", ErrInvalid, c.MaxWaves)
	}
	if sameDir(c.OutputDir, c.ContentDir) {
		return fmt.Errorf("%w: output_dir must differ from content_dir", ErrInvalid)
	}
	for _, pattern := range c.Ignore {
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("%w: ignore pattern %q: %v", ErrInvalid, pattern, err)
		}
	}
	return nil
}

// sameDir compares two directories after resolving them against the working
// directory.
func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
