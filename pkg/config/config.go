// Package config loads spaces configuration from TOML, YAML or JSON files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	gotoml "github.com/pelletier/go-toml"

	"github.com/panbanda/spaces/pkg/parser"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Output formats.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatTOON     = "toon"
)

// Config holds the complete spaces configuration.
type Config struct {
	Analysis   AnalysisConfig  `koanf:"analysis" toml:"analysis"`
	Thresholds ThresholdConfig `koanf:"thresholds" toml:"thresholds"`
	Exclude    ExcludeConfig   `koanf:"exclude" toml:"exclude"`
	Cache      CacheConfig     `koanf:"cache" toml:"cache"`
	Output     OutputConfig    `koanf:"output" toml:"output"`
}

// AnalysisConfig selects what gets analyzed.
type AnalysisConfig struct {
	// Languages limits analysis to these languages; empty means all.
	Languages   []string `koanf:"languages" toml:"languages"`
	MaxFileSize int64    `koanf:"max_file_size" toml:"max_file_size"`
	// Workers is the number of files analyzed at once; 0 means 2x NumCPU.
	Workers int `koanf:"workers" toml:"workers"`
}

// ThresholdConfig holds violation limits. Zero disables a rule.
type ThresholdConfig struct {
	Cyclomatic        float64 `koanf:"cyclomatic" toml:"cyclomatic"`
	CyclomaticAverage float64 `koanf:"cyclomatic_average" toml:"cyclomatic_average"`
}

// ExcludeConfig defines file exclusion rules.
type ExcludeConfig struct {
	Patterns   []string `koanf:"patterns" toml:"patterns"`
	Extensions []string `koanf:"extensions" toml:"extensions"`
	Dirs       []string `koanf:"dirs" toml:"dirs"`
	Gitignore  bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig configures the result cache.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// TTLDuration returns the TTL as a duration.
func (c CacheConfig) TTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Hour
}

// OutputConfig configures report output.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			MaxFileSize: 1 << 20,
		},
		Thresholds: ThresholdConfig{
			Cyclomatic:        10,
			CyclomaticAverage: 5,
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.min.js",
				"*.bundle.js",
			},
			Extensions: []string{
				".d.ts",
			},
			Dirs: []string{
				"vendor",
				"node_modules",
				".git",
				".spaces",
				"dist",
				"build",
				"target",
				"__pycache__",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".spaces/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format:  FormatText,
			Color:   true,
			Verbose: false,
		},
	}
}

// Load reads configuration from path on top of the defaults. The parser is
// chosen by extension; unknown extensions are read as TOML.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var p koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		p = yaml.Parser()
	case ".json":
		p = json.Parser()
	default:
		p = toml.Parser()
	}

	if err := k.Load(file.Provider(path), p); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// FileNames are the config files LoadOrDefault looks for, in order.
var FileNames = []string{
	"spaces.toml",
	"spaces.yaml",
	"spaces.yml",
	"spaces.json",
	".spaces.toml",
	".spaces.yaml",
	".spaces.yml",
	".spaces.json",
}

// Find returns the first config file in dir or dir/.spaces, or "" if none.
func Find(dir string) string {
	for _, d := range []string{dir, filepath.Join(dir, ".spaces")} {
		for _, name := range FileNames {
			path := filepath.Join(d, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault loads the config file found in the working directory, or
// returns the defaults when there is none. A config file that exists but
// fails to load is an error.
func LoadOrDefault() (*Config, error) {
	path := Find(".")
	if path == "" {
		return DefaultConfig(), nil
	}
	return Load(path)
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error

	for _, l := range c.Analysis.Languages {
		if parser.ParseLanguage(l) == parser.LangUnknown {
			errs = append(errs, fmt.Errorf("analysis.languages: unknown language %q", l))
		}
	}
	if c.Analysis.MaxFileSize < 0 {
		errs = append(errs, errors.New("analysis.max_file_size must be >= 0"))
	}
	if c.Analysis.Workers < 0 {
		errs = append(errs, errors.New("analysis.workers must be >= 0"))
	}
	if c.Thresholds.Cyclomatic < 0 {
		errs = append(errs, errors.New("thresholds.cyclomatic must be >= 0"))
	}
	if c.Thresholds.CyclomaticAverage < 0 {
		errs = append(errs, errors.New("thresholds.cyclomatic_average must be >= 0"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must be >= 0"))
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		errs = append(errs, errors.New("cache.dir is required when the cache is enabled"))
	}
	switch c.Output.Format {
	case FormatText, FormatJSON, FormatMarkdown, FormatTOON:
	default:
		errs = append(errs, fmt.Errorf("output.format: unknown format %q", c.Output.Format))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// Languages returns the configured languages, or nil for all.
func (c *Config) Languages() []parser.Language {
	var langs []parser.Language
	for _, l := range c.Analysis.Languages {
		langs = append(langs, parser.ParseLanguage(l))
	}
	return langs
}

// ShouldExclude checks if a path should be excluded based on config.
// path is expected to be relative to the analysis root.
func (c *Config) ShouldExclude(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains("/"+slashed, "/"+dir+"/") {
			return true
		}
	}

	base := filepath.Base(path)
	for _, ext := range c.Exclude.Extensions {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}

	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// MarshalTOML renders the configuration as a TOML document.
func (c *Config) MarshalTOML() ([]byte, error) {
	return gotoml.Marshal(*c)
}

// WriteFile writes the configuration as TOML, refusing to overwrite an
// existing file unless force is set.
func (c *Config) WriteFile(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists: %w", path, os.ErrExist)
		}
	}
	content, err := c.MarshalTOML()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
