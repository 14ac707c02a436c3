// Package baseline records accepted findings so later runs report only new
// ones.
package baseline

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/ppiankov/sqlspectre/internal/analyzer"
)

// Baseline holds fingerprints of previously seen findings.
type Baseline struct {
	Fingerprints []string `json:"fingerprints"`
	set          map[string]bool
}

// Load reads a baseline file. Returns an empty baseline if the file does not exist.
func Load(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Baseline{set: make(map[string]bool)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read baseline: %w", err)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse baseline: %w", err)
	}
	b.set = make(map[string]bool, len(b.Fingerprints))
	for _, fp := range b.Fingerprints {
		b.set[fp] = true
	}
	return &b, nil
}

// Save writes the baseline to a file.
func Save(path string, findings []analyzer.Finding) error {
	fps := make([]string, 0, len(findings))
	for i := range findings {
		fps = append(fps, Fingerprint(&findings[i]))
	}
	slices.Sort(fps)
	fps = slices.Compact(fps)

	data, err := json.MarshalIndent(Baseline{Fingerprints: fps}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write baseline: %w", err)
	}
	return nil
}

// Len returns the number of fingerprints.
func (b *Baseline) Len() int { return len(b.set) }

// Contains returns true if the finding's fingerprint is in the baseline.
func (b *Baseline) Contains(f *analyzer.Finding) bool {
	return b.set[Fingerprint(f)]
}

// Filter removes baselined findings and returns the remaining ones.
// Returns the filtered list and the number of suppressed findings.
func (b *Baseline) Filter(findings []analyzer.Finding) ([]analyzer.Finding, int) {
	if len(b.set) == 0 {
		return findings, 0
	}

	var filtered []analyzer.Finding
	suppressed := 0
	for i := range findings {
		if b.Contains(&findings[i]) {
			suppressed++
		} else {
			filtered = append(filtered, findings[i])
		}
	}
	return filtered, suppressed
}

// Fingerprint computes a stable identifier for a finding. Line numbers are
// left out so edits elsewhere in a file keep the finding baselined; the
// statement excerpt tells apart findings of one type in the same file.
func Fingerprint(f *analyzer.Finding) string {
	key := strings.Join([]string{
		string(f.Type),
		f.File,
		strings.ToLower(f.Schema),
		strings.ToLower(f.Table),
		strings.ToLower(f.Column),
		f.Detail["statement"],
	}, "|")
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h[:16])
}
