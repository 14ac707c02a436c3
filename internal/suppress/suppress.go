// Package suppress applies the .sqlspectre-ignore.yml rules and configured
// finding exclusions.
package suppress

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/ppiankov/sqlspectre/internal/analyzer"
)

// FileName is the ignore file looked up in the scanned repository.
const FileName = ".sqlspectre-ignore.yml"

// Suppression is a single rule in the ignore file. Every field that is set
// must match; a rule with no table, file or type matches nothing.
type Suppression struct {
	Table  string `yaml:"table,omitempty"`
	File   string `yaml:"file,omitempty"`
	Type   string `yaml:"type,omitempty"`
	Reason string `yaml:"reason,omitempty"`
}

// IgnoreFile is the structure of .sqlspectre-ignore.yml.
type IgnoreFile struct {
	Suppressions []Suppression `yaml:"suppressions"`
}

// Rules holds loaded suppression rules from all sources.
type Rules struct {
	ignoreFile IgnoreFile
	// finding types from config exclude.findings
	configFindings []string
	// table patterns from config exclude.tables
	configTables []string
}

// LoadRules loads suppression rules from the ignore file in dir.
func LoadRules(dir string) (*Rules, error) {
	r := &Rules{}

	p := filepath.Join(dir, FileName)
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}

	if err := yaml.Unmarshal(data, &r.ignoreFile); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p, err)
	}
	return r, nil
}

// WithConfigFindings adds finding-type suppressions from config.
func (r *Rules) WithConfigFindings(findings []string) {
	r.configFindings = findings
}

// WithConfigTables adds table-pattern suppressions from config.
func (r *Rules) WithConfigTables(tables []string) {
	r.configTables = tables
}

// Len returns the number of rules from all sources.
func (r *Rules) Len() int {
	return len(r.ignoreFile.Suppressions) + len(r.configFindings) + len(r.configTables)
}

// IsSuppressed returns true if the finding should be suppressed.
func (r *Rules) IsSuppressed(f *analyzer.Finding) bool {
	for _, ft := range r.configFindings {
		if strings.EqualFold(string(f.Type), ft) {
			return true
		}
	}
	for _, pattern := range r.configTables {
		if matchFindingTable(pattern, f) {
			return true
		}
	}

	for _, s := range r.ignoreFile.Suppressions {
		if s.Table == "" && s.File == "" && s.Type == "" {
			continue
		}
		if s.Table != "" && !matchFindingTable(s.Table, f) {
			continue
		}
		if s.File != "" && !matchFile(s.File, f.File) {
			continue
		}
		if s.Type != "" && !strings.EqualFold(s.Type, string(f.Type)) {
			continue
		}
		return true
	}

	return false
}

// Filter removes suppressed findings and returns the remaining ones.
// Returns the filtered list and the number of suppressed findings.
func (r *Rules) Filter(findings []analyzer.Finding) ([]analyzer.Finding, int) {
	if r.Len() == 0 {
		return findings, 0
	}

	var filtered []analyzer.Finding
	suppressed := 0
	for i := range findings {
		if r.IsSuppressed(&findings[i]) {
			suppressed++
		} else {
			filtered = append(filtered, findings[i])
		}
	}
	return filtered, suppressed
}

// matchFindingTable matches the bare or schema-qualified table name.
func matchFindingTable(pattern string, f *analyzer.Finding) bool {
	if f.Table == "" {
		return false
	}
	if matchTable(pattern, f.Table) {
		return true
	}
	return f.Schema != "" && matchTable(pattern, f.Schema+"."+f.Table)
}

// matchTable matches a table name against a pattern that supports trailing wildcards.
func matchTable(pattern, table string) bool {
	pattern = strings.ToLower(pattern)
	table = strings.ToLower(table)

	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(table, prefix)
	}
	return pattern == table
}

// matchFile matches a glob against the slash-separated path, its base name,
// or any directory prefix ending in "/".
func matchFile(pattern, file string) bool {
	if file == "" {
		return false
	}
	if strings.HasSuffix(pattern, "/") {
		return strings.HasPrefix(file, pattern)
	}
	if ok, _ := path.Match(pattern, file); ok {
		return true
	}
	ok, _ := path.Match(pattern, path.Base(file))
	return ok
}
