package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/sqlspectre/internal/source"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Scan.MaxChain != 64 {
		t.Errorf("MaxChain = %d, want 64", cfg.Scan.MaxChain)
	}
	if cfg.Scan.MaxStatementBytes != 64<<10 {
		t.Errorf("MaxStatementBytes = %d, want %d", cfg.Scan.MaxStatementBytes, 64<<10)
	}
	if cfg.Defaults.Format != "text" {
		t.Errorf("Format = %q, want text", cfg.Defaults.Format)
	}
	if cfg.Defaults.Timeout != "30s" {
		t.Errorf("Timeout = %q, want 30s", cfg.Defaults.Timeout)
	}
	if cfg.Path != "" {
		t.Errorf("Path = %q, want empty", cfg.Path)
	}
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scan.CacheSize != 1024 {
		t.Errorf("expected default CacheSize=1024, got %d", cfg.Scan.CacheSize)
	}
}

func TestLoad_FromDir(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
db_url: "postgres://localhost:5432/test"
scan:
  workers: 4
  skip_dirs: [legacy, generated]
  extensions:
    .groovy: java
    jsp: none
  max_chain: 16
exclude:
  tables:
    - flyway_schema_history
    - schema_versions
  schemas:
    - audit
  files:
    - "*Test.java"
  findings:
    - ORACLE_FEATURE
defaults:
  format: json
  timeout: "60s"
  fail_on: high
`)
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Path != path {
		t.Errorf("Path = %q, want %q", cfg.Path, path)
	}
	if cfg.DBURL != "postgres://localhost:5432/test" {
		t.Errorf("DBURL = %q", cfg.DBURL)
	}
	if cfg.Scan.Workers != 4 || len(cfg.Scan.SkipDirs) != 2 || cfg.Scan.MaxChain != 16 {
		t.Errorf("Scan = %+v", cfg.Scan)
	}
	if cfg.Scan.MaxStatementBytes != 64<<10 {
		t.Errorf("MaxStatementBytes = %d, want default", cfg.Scan.MaxStatementBytes)
	}
	if len(cfg.Exclude.Tables) != 2 || len(cfg.Exclude.Schemas) != 1 || len(cfg.Exclude.Files) != 1 || len(cfg.Exclude.Findings) != 1 {
		t.Errorf("Exclude = %+v", cfg.Exclude)
	}
	if cfg.Defaults.Format != "json" || cfg.Defaults.Timeout != "60s" || cfg.Defaults.FailOn != "high" {
		t.Errorf("Defaults = %+v", cfg.Defaults)
	}

	opts, err := cfg.ScanOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Extensions[".groovy"] != source.LanguageJava {
		t.Errorf(".groovy = %q, want java", opts.Extensions[".groovy"])
	}
	if _, ok := opts.Extensions[".jsp"]; ok {
		t.Error(".jsp should be removed by 'none'")
	}
	if opts.Extensions[".cs"] != source.LanguageCSharp {
		t.Error("defaults should be kept")
	}
	if opts.Workers != 4 || opts.Limits.MaxChain != 16 || len(opts.ExcludeFiles) != 1 {
		t.Errorf("opts = %+v", opts)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("{{invalid"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoad_HomeFallback(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.WriteFile(filepath.Join(home, FileName), []byte("db_url: from-home\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBURL != "from-home" {
		t.Errorf("DBURL = %q, want from-home", cfg.DBURL)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestExtensionTable_UnknownLanguage(t *testing.T) {
	cfg := Config{Scan: Scan{Extensions: map[string]string{".kt": "kotlin"}}}
	if _, err := cfg.ExtensionTable(); err == nil {
		t.Error("expected error for unknown language")
	}
	if _, err := cfg.ScanOptions(); err == nil {
		t.Error("ScanOptions should surface the extension error")
	}
}

func TestTimeoutDuration(t *testing.T) {
	tests := []struct {
		name    string
		timeout string
		want    time.Duration
	}{
		{"valid 60s", "60s", 60 * time.Second},
		{"valid 2m", "2m", 2 * time.Minute},
		{"empty", "", 30 * time.Second},
		{"invalid", "notaduration", 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Defaults: Defaults{Timeout: tt.timeout}}
			if got := cfg.TimeoutDuration(); got != tt.want {
				t.Errorf("TimeoutDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExists_Found(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("db_url: test"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !Exists(dir) {
		t.Error("Exists() = false, want true")
	}
}

func TestExists_NotFound(t *testing.T) {
	if Exists(t.TempDir()) {
		t.Error("Exists() = true, want false")
	}
}

func TestLoad_PartialOverride(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
scan:
  max_chain: 8
`)
	if err := os.WriteFile(filepath.Join(dir, FileName), content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Scan.MaxChain != 8 {
		t.Errorf("MaxChain = %d, want 8", cfg.Scan.MaxChain)
	}
	if cfg.Scan.CacheSize != 1024 {
		t.Errorf("CacheSize = %d, want default 1024", cfg.Scan.CacheSize)
	}
}
