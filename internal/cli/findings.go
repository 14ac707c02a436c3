package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/sqlspectre/internal/analyzer"
	"github.com/ppiankov/sqlspectre/internal/baseline"
	"github.com/ppiankov/sqlspectre/internal/suppress"
)

// findingFlags are the baseline, filter and exit policy flags shared by
// scan and check.
type findingFlags struct {
	baselinePath   string
	updateBaseline string
	failOn         string
	minSeverity    string
	types          string
}

// process saves the baseline from the unfiltered findings, then applies
// baseline, suppression and report filters.
func (ff findingFlags) process(findings []analyzer.Finding, repo string) ([]analyzer.Finding, error) {
	if ff.updateBaseline != "" {
		if err := baseline.Save(ff.updateBaseline, findings); err != nil {
			return nil, fmt.Errorf("save baseline: %w", err)
		}
		slog.Info("baseline saved", "path", ff.updateBaseline, "findings", len(findings))
	}

	total := len(findings)
	findings, suppressed, err := filterFindings(findings, ff.baselinePath, repo)
	if err != nil {
		return nil, err
	}
	if suppressed > 0 {
		slog.Info("findings filtered", "total", total, "suppressed", suppressed)
	}
	return applyReportFilters(findings, ff.minSeverity, ff.types), nil
}

// exitError returns the --fail-on exit, or nil.
func (ff findingFlags) exitError(findings []analyzer.Finding) error {
	if ff.failOn != "" && shouldFailOn(findings, ff.failOn) {
		return &ExitError{Code: 2}
	}
	return nil
}

// filterFindings applies baseline and suppression rules to findings. The
// ignore file is read from the scanned repository.
func filterFindings(findings []analyzer.Finding, baselinePath, repo string) ([]analyzer.Finding, int, error) {
	totalSuppressed := 0

	if baselinePath != "" {
		bl, err := baseline.Load(baselinePath)
		if err != nil {
			return nil, 0, fmt.Errorf("load baseline: %w", err)
		}
		var n int
		findings, n = bl.Filter(findings)
		totalSuppressed += n
	}

	rules, err := suppress.LoadRules(repo)
	if err != nil {
		return nil, 0, fmt.Errorf("load suppress rules: %w", err)
	}
	rules.WithConfigFindings(cfg.Exclude.Findings)
	rules.WithConfigTables(cfg.Exclude.Tables)

	var n int
	findings, n = rules.Filter(findings)
	totalSuppressed += n

	return findings, totalSuppressed, nil
}

// shouldFailOn returns true if any finding matches the fail-on criteria.
// Criteria can be finding types (MISSING_TABLE) or severity levels (high, medium).
func shouldFailOn(findings []analyzer.Finding, failOn string) bool {
	types := make(map[string]bool)
	severities := make(map[string]bool)

	for p := range strings.SplitSeq(failOn, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if sev, ok := analyzer.ParseSeverity(p); ok {
			severities[string(sev)] = true
			continue
		}
		types[strings.ToUpper(p)] = true
	}

	for _, f := range findings {
		if types[string(f.Type)] || severities[string(f.Severity)] {
			return true
		}
	}
	return false
}

// filterBySeverity keeps findings at or above minSeverity. An unknown
// severity keeps everything.
func filterBySeverity(findings []analyzer.Finding, minSeverity string) []analyzer.Finding {
	floor, ok := analyzer.ParseSeverity(minSeverity)
	if !ok {
		return findings
	}
	var out []analyzer.Finding
	for _, f := range findings {
		if f.Severity.AtLeast(floor) {
			out = append(out, f)
		}
	}
	return out
}

// filterByType keeps findings whose type is in the comma-separated list.
func filterByType(findings []analyzer.Finding, typeList string) []analyzer.Finding {
	want := map[analyzer.FindingType]bool{}
	for t := range strings.SplitSeq(typeList, ",") {
		if t = strings.TrimSpace(t); t != "" {
			want[analyzer.FindingType(strings.ToUpper(t))] = true
		}
	}
	if len(want) == 0 {
		return findings
	}
	var out []analyzer.Finding
	for _, f := range findings {
		if want[f.Type] {
			out = append(out, f)
		}
	}
	return out
}

func applyReportFilters(findings []analyzer.Finding, minSeverity, typeList string) []analyzer.Finding {
	if minSeverity != "" {
		findings = filterBySeverity(findings, minSeverity)
	}
	if typeList != "" {
		findings = filterByType(findings, typeList)
	}
	return findings
}
