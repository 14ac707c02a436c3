// Package analyzer turns an aggregated scan into findings and statistics.
package analyzer

import (
	"cmp"
	"slices"
	"strings"
)

// Severity indicates the risk level of a finding.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
	SeverityInfo   Severity = "info"
)

// FindingType identifies what kind of issue was detected.
type FindingType string

const (
	FindingAmbiguousColumn   FindingType = "AMBIGUOUS_COLUMN"
	FindingUnparsedRegion    FindingType = "UNPARSED_REGION"
	FindingOracleFeature     FindingType = "ORACLE_FEATURE"
	FindingDynamicSQL        FindingType = "DYNAMIC_SQL"
	FindingMissingTable      FindingType = "MISSING_TABLE"
	FindingMissingColumn     FindingType = "MISSING_COLUMN"
	FindingUnreferencedTable FindingType = "UNREFERENCED_TABLE"
	FindingCodeMatch         FindingType = "CODE_MATCH"
)

// AllFindingTypes lists every finding type, for flag validation.
var AllFindingTypes = []FindingType{
	FindingAmbiguousColumn, FindingUnparsedRegion, FindingOracleFeature, FindingDynamicSQL,
	FindingMissingTable, FindingMissingColumn, FindingUnreferencedTable, FindingCodeMatch,
}

// Finding is a single scan or check result. File and Line locate the code
// that produced it; catalog-only findings have neither.
type Finding struct {
	Type     FindingType       `json:"type"`
	Severity Severity          `json:"severity"`
	File     string            `json:"file,omitempty"`
	Line     int               `json:"line,omitempty"`
	Schema   string            `json:"schema,omitempty"`
	Table    string            `json:"table,omitempty"`
	Column   string            `json:"column,omitempty"`
	Message  string            `json:"message"`
	Detail   map[string]string `json:"detail,omitempty"`
}

var severityOrder = map[Severity]int{
	SeverityInfo:   0,
	SeverityLow:    1,
	SeverityMedium: 2,
	SeverityHigh:   3,
}

// ParseSeverity reports whether s names a severity, ignoring case.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	_, ok := severityOrder[sev]
	return sev, ok
}

// AtLeast reports whether s is as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return severityOrder[s] >= severityOrder[other]
}

// MaxSeverity returns the highest severity among findings.
func MaxSeverity(findings []Finding) Severity {
	max := SeverityInfo
	for _, f := range findings {
		if severityOrder[f.Severity] > severityOrder[max] {
			max = f.Severity
		}
	}
	return max
}

// ExitCode maps severity to a CLI exit code.
func ExitCode(s Severity) int {
	switch s {
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// Sort orders findings by file, line, type, table and column. Catalog
// findings without a file sort last.
func Sort(findings []Finding) {
	slices.SortStableFunc(findings, func(a, b Finding) int {
		if (a.File == "") != (b.File == "") {
			if a.File == "" {
				return 1
			}
			return -1
		}
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.Type, b.Type),
			cmp.Compare(a.Schema, b.Schema),
			cmp.Compare(a.Table, b.Table),
			cmp.Compare(a.Column, b.Column),
		)
	})
}
