// Package config loads project settings for the yarn tools from a
// yarn.toml or yarn.yaml file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/dhamidi/yarn/parser"
)

// FileNames are the configuration files Discover looks for, in order.
var FileNames = []string{"yarn.toml", "yarn.yaml", "yarn.yml"}

var ErrNotFound = errors.New("no configuration file found")

// Config holds the complete tool configuration.
type Config struct {
	Parser    ParserConfig    `toml:"parser" yaml:"parser"`
	Workspace WorkspaceConfig `toml:"workspace" yaml:"workspace"`
	Log       LogConfig       `toml:"log" yaml:"log"`

	// Path is the file the configuration was read from, if any.
	Path string `toml:"-" yaml:"-"`
}

type ParserConfig struct {
	// Budget bounds the work of one parse; 0 means unlimited.
	Budget      int `toml:"budget" yaml:"budget"`
	MaxForks    int `toml:"max_forks" yaml:"max_forks"`
	ReuseWindow int `toml:"reuse_window" yaml:"reuse_window"`
}

type WorkspaceConfig struct {
	// Extensions are the file name suffixes treated as Yarn scripts.
	Extensions   []string `toml:"extensions" yaml:"extensions"`
	Exclude      []string `toml:"exclude" yaml:"exclude"`
	PollInterval Duration `toml:"poll_interval" yaml:"poll_interval"`
	TabWidth     int      `toml:"tab_width" yaml:"tab_width"`
}

type LogConfig struct {
	Verbosity int    `toml:"verbosity" yaml:"verbosity"`
	File      string `toml:"file" yaml:"file"`
}

// Duration wraps time.Duration for text decoding.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Parser.MaxForks == 0 {
		c.Parser.MaxForks = parser.DefaultMaxForks
	}
	if c.Parser.ReuseWindow == 0 {
		c.Parser.ReuseWindow = parser.DefaultReuseWindow
	}
	if len(c.Workspace.Extensions) == 0 {
		c.Workspace.Extensions = []string{".yarn"}
	}
	if c.Workspace.PollInterval.Duration == 0 {
		c.Workspace.PollInterval.Duration = time.Second
	}
	if c.Workspace.TabWidth == 0 {
		c.Workspace.TabWidth = 4
	}
}

// Load reads a configuration file. The format follows the extension:
// .yaml and .yml are YAML, everything else is TOML.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{Path: path}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if _, err := toml.Decode(string(content), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Parser.Budget < 0:
		return fmt.Errorf("parser.budget must not be negative, got %d", c.Parser.Budget)
	case c.Parser.MaxForks < 0:
		return fmt.Errorf("parser.max_forks must not be negative, got %d", c.Parser.MaxForks)
	case c.Parser.ReuseWindow < 0:
		return fmt.Errorf("parser.reuse_window must not be negative, got %d", c.Parser.ReuseWindow)
	case c.Workspace.PollInterval.Duration < 0:
		return fmt.Errorf("workspace.poll_interval must not be negative, got %s", c.Workspace.PollInterval)
	}
	return nil
}

// Discover looks for a configuration file in dir and its parents and
// returns the first one found.
func Discover(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

// LoadDir loads the configuration that applies to dir, falling back to
// the defaults when there is none.
func LoadDir(dir string) (*Config, error) {
	path, err := Discover(dir)
	if errors.Is(err, ErrNotFound) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// ParserOptions turns the parser section into parser options.
func (c *Config) ParserOptions() []parser.Option {
	return []parser.Option{
		parser.WithBudget(c.Parser.Budget),
		parser.WithMaxForks(c.Parser.MaxForks),
		parser.WithReuseWindow(c.Parser.ReuseWindow),
	}
}

// IsScript reports whether path has one of the configured extensions.
func (c *Config) IsScript(path string) bool {
	for _, ext := range c.Workspace.Extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// Excluded reports whether a path relative to the workspace root matches
// one of the exclude patterns.
func (c *Config) Excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range c.Workspace.Exclude {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}
