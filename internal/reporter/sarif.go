package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/ppiankov/sqlspectre/internal/analyzer"
)

// SARIF 2.1.0 types, minimal subset for valid output.

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string            `json:"id"`
	ShortDescription sarifMessage      `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaults `json:"defaultConfiguration"`
}

type sarifRuleDefaults struct {
	Level string `json:"level"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation *sarifPhysicalLocation `json:"physicalLocation,omitempty"`
	LogicalLocations []sarifLogicalLocation `json:"logicalLocations,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

type sarifLogicalLocation struct {
	Name               string `json:"name"`
	FullyQualifiedName string `json:"fullyQualifiedName"`
	Kind               string `json:"kind"`
}

var ruleDescriptions = map[analyzer.FindingType]string{
	analyzer.FindingAmbiguousColumn:   "Column owner could not be resolved from the statement",
	analyzer.FindingUnparsedRegion:    "Source region skipped by the SQL extractor",
	analyzer.FindingOracleFeature:     "Statement uses Oracle-specific syntax",
	analyzer.FindingDynamicSQL:        "Statement is built with text substitution",
	analyzer.FindingMissingTable:      "Table referenced in code does not exist in database",
	analyzer.FindingMissingColumn:     "Column referenced in code does not exist in table",
	analyzer.FindingUnreferencedTable: "Table exists in database but not referenced in code",
	analyzer.FindingCodeMatch:         "Table reference in code matches database table",
}

var severityToLevel = map[analyzer.Severity]string{
	analyzer.SeverityHigh:   "error",
	analyzer.SeverityMedium: "warning",
	analyzer.SeverityLow:    "note",
	analyzer.SeverityInfo:   "note",
}

const rulePrefix = "sqlspectre/"

func writeSARIF(w io.Writer, report *Report) error {
	// highest severity seen per rule sets its default level
	ruleSev := make(map[analyzer.FindingType]analyzer.Severity)
	for _, f := range report.Findings {
		if cur, ok := ruleSev[f.Type]; !ok || f.Severity.AtLeast(cur) {
			ruleSev[f.Type] = f.Severity
		}
	}

	rules := make([]sarifRule, 0, len(ruleSev))
	for _, ft := range slices.Sorted(maps.Keys(ruleSev)) {
		desc := ruleDescriptions[ft]
		if desc == "" {
			desc = string(ft)
		}
		rules = append(rules, sarifRule{
			ID:               ruleID(ft),
			ShortDescription: sarifMessage{Text: desc},
			DefaultConfig:    sarifRuleDefaults{Level: levelFor(ruleSev[ft])},
		})
	}

	results := make([]sarifResult, 0, len(report.Findings))
	for _, f := range report.Findings {
		msgText := f.Message
		for _, k := range slices.Sorted(maps.Keys(f.Detail)) {
			msgText += fmt.Sprintf(" [%s=%s]", k, f.Detail[k])
		}
		results = append(results, sarifResult{
			RuleID:    ruleID(f.Type),
			Level:     levelFor(f.Severity),
			Message:   sarifMessage{Text: msgText},
			Locations: sarifLocations(f),
		})
	}

	log := sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           "sqlspectre",
						Version:        report.Metadata.Version,
						InformationURI: "https://github.com/ppiankov/sqlspectre",
						Rules:          rules,
					},
				},
				Results: results,
			},
		},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(log); err != nil {
		return fmt.Errorf("encode SARIF: %w", err)
	}
	return nil
}

func ruleID(ft analyzer.FindingType) string { return rulePrefix + string(ft) }

func levelFor(sev analyzer.Severity) string {
	if level := severityToLevel[sev]; level != "" {
		return level
	}
	return "note"
}

// sarifLocations points code findings at their file and line and catalog
// findings at the database object.
func sarifLocations(f analyzer.Finding) []sarifLocation {
	var loc sarifLocation
	if f.File != "" {
		loc.PhysicalLocation = &sarifPhysicalLocation{ArtifactLocation: sarifArtifactLocation{URI: f.File}}
		if f.Line > 0 {
			loc.PhysicalLocation.Region = &sarifRegion{StartLine: f.Line}
		}
	}
	if f.Table != "" {
		kind := "database/table"
		name := f.Table
		if f.Column != "" {
			kind = "database/column"
			name = f.Column
		}
		loc.LogicalLocations = []sarifLogicalLocation{{
			Name:               name,
			FullyQualifiedName: objectName(f),
			Kind:               kind,
		}}
	}
	if loc.PhysicalLocation == nil && loc.LogicalLocations == nil {
		return nil
	}
	return []sarifLocation{loc}
}
