// Package config loads .sqlspectre.yml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/ppiankov/sqlspectre/internal/pipeline"
	"github.com/ppiankov/sqlspectre/internal/scanner"
	"github.com/ppiankov/sqlspectre/internal/source"
)

// FileName is the config file looked up in the working directory and $HOME.
const FileName = ".sqlspectre.yml"

// Config holds all sqlspectre configuration.
type Config struct {
	DBURL    string   `yaml:"db_url"`
	Scan     Scan     `yaml:"scan"`
	Exclude  Exclude  `yaml:"exclude"`
	Defaults Defaults `yaml:"defaults"`

	// Path is the file the config was read from, empty for built-in defaults.
	Path string `yaml:"-"`
}

// Scan tunes the repository walk and the SQL pipeline.
type Scan struct {
	Workers           int               `yaml:"workers"`
	SkipDirs          []string          `yaml:"skip_dirs"`
	Extensions        map[string]string `yaml:"extensions"` // ".groovy: java"; "none" drops a default
	MaxFileBytes      int64             `yaml:"max_file_bytes"`
	MaxChain          int               `yaml:"max_chain"`
	MaxStatementBytes int               `yaml:"max_statement_bytes"`
	CacheSize         int               `yaml:"cache_size"`
	ImportSample      int               `yaml:"import_sample"`
}

// Exclude lists tables, schemas, files and finding types to skip.
type Exclude struct {
	Tables   []string `yaml:"tables"`
	Schemas  []string `yaml:"schemas"`
	Files    []string `yaml:"files"`
	Findings []string `yaml:"findings"`
}

// Defaults holds default CLI flag values.
type Defaults struct {
	Format  string `yaml:"format"`
	Timeout string `yaml:"timeout"` // parsed as time.Duration
	FailOn  string `yaml:"fail_on"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Scan: Scan{
			MaxFileBytes:      scanner.DefaultMaxFileBytes,
			MaxChain:          pipeline.DefaultLimits.MaxChain,
			MaxStatementBytes: pipeline.DefaultLimits.MaxStatementBytes,
			CacheSize:         scanner.DefaultCacheSize,
		},
		Defaults: Defaults{
			Format:  "text",
			Timeout: "30s",
		},
	}
}

// Load reads configuration from .sqlspectre.yml in the given directory,
// falling back to ~/.sqlspectre.yml. Returns DefaultConfig if no file found.
func Load(dir string) (Config, error) {
	paths := []string{filepath.Join(dir, FileName)}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, FileName))
	}

	for _, path := range paths {
		cfg, err := LoadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return cfg, err
	}

	return DefaultConfig(), nil
}

// LoadFile reads one config file over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Exists reports whether dir holds a config file.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}

// TimeoutDuration parses the Defaults.Timeout string as a time.Duration.
// Returns 30s if parsing fails.
func (c *Config) TimeoutDuration() time.Duration {
	if c.Defaults.Timeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(c.Defaults.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ExtensionTable merges scan.extensions over source.DefaultExtensions.
func (c *Config) ExtensionTable() (map[string]source.Language, error) {
	table := make(map[string]source.Language, len(source.DefaultExtensions)+len(c.Scan.Extensions))
	for ext, lang := range source.DefaultExtensions {
		table[ext] = lang
	}
	for ext, name := range c.Scan.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if strings.EqualFold(name, "none") {
			delete(table, ext)
			continue
		}
		lang := source.ParseLanguage(name)
		if lang == source.LanguageUnknown {
			return nil, fmt.Errorf("scan.extensions: unknown language %q for %s", name, ext)
		}
		table[ext] = lang
	}
	return table, nil
}

// ScanOptions builds scanner options from the scan and exclude sections.
func (c *Config) ScanOptions() (scanner.Options, error) {
	exts, err := c.ExtensionTable()
	if err != nil {
		return scanner.Options{}, err
	}
	return scanner.Options{
		Workers:      c.Scan.Workers,
		SkipDirs:     c.Scan.SkipDirs,
		Extensions:   exts,
		ExcludeFiles: c.Exclude.Files,
		MaxFileBytes: c.Scan.MaxFileBytes,
		CacheSize:    c.Scan.CacheSize,
		Limits: pipeline.Limits{
			MaxChain:          c.Scan.MaxChain,
			MaxStatementBytes: c.Scan.MaxStatementBytes,
		},
	}, nil
}
