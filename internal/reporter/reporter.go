// Package reporter renders scan and check results.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/sqlspectre/internal/aggregate"
	"github.com/ppiankov/sqlspectre/internal/analyzer"
	"github.com/ppiankov/sqlspectre/internal/scanner"
	"github.com/ppiankov/sqlspectre/internal/techstack"
)

// Format controls report output format.
type Format string

const (
	FormatText       Format = "text"
	FormatJSON       Format = "json"
	FormatSARIF      Format = "sarif"
	FormatSpectreHub Format = "spectrehub"
	FormatMarkdown   Format = "markdown"
)

// Formats lists the accepted --format values.
var Formats = []Format{FormatText, FormatJSON, FormatSARIF, FormatSpectreHub, FormatMarkdown}

// ParseFormat validates a --format value. "md" is accepted for markdown.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FormatText, nil
	}
	if s == "md" {
		return FormatMarkdown, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (valid: text, json, sarif, spectrehub, markdown)", s)
}

// Metadata holds report context.
type Metadata struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	Command   string `json:"command"`
	RunID     string `json:"runId"`
	Timestamp string `json:"timestamp"`
	Repo      string `json:"repo,omitempty"`
	URIHash   string `json:"uriHash,omitempty"`
	Database  string `json:"database,omitempty"`
}

// Summary counts findings by severity.
type Summary struct {
	Total  int `json:"total"`
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
	Info   int `json:"info"`
}

// Scan is the code side of a report.
type Scan struct {
	Stats      scanner.Stats                   `json:"stats"`
	Summary    aggregate.Summary               `json:"summary"`
	Statistics analyzer.Stats                  `json:"statistics"`
	Files      map[string]aggregate.FileReport `json:"files"`
}

// Report is the top-level scan/check output.
type Report struct {
	Metadata     Metadata               `json:"metadata"`
	Scan         *Scan                  `json:"scan,omitempty"`
	Technologies []techstack.Technology `json:"technologies,omitempty"`
	Findings     []analyzer.Finding     `json:"findings"`
	MaxSeverity  analyzer.Severity      `json:"maxSeverity"`
	Summary      Summary                `json:"summary"`
}

// NewReport builds a report from findings with a fresh run id.
func NewReport(command string, findings []analyzer.Finding, version string) Report {
	if findings == nil {
		findings = []analyzer.Finding{}
	}
	return Report{
		Metadata: Metadata{
			Tool:      "sqlspectre",
			Version:   version,
			Command:   command,
			RunID:     uuid.NewString(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
		Findings:    findings,
		MaxSeverity: analyzer.MaxSeverity(findings),
		Summary:     summarize(findings),
	}
}

// AttachScan adds the aggregated code scan and its statistics.
func (r *Report) AttachScan(stats scanner.Stats, rep aggregate.Report) {
	r.Metadata.Repo = stats.RepoPath
	r.Scan = &Scan{
		Stats:      stats,
		Summary:    rep.Summary,
		Statistics: analyzer.Summarize(rep),
		Files:      rep.Files,
	}
}

// SetFindings replaces the findings and recomputes severity totals.
func (r *Report) SetFindings(findings []analyzer.Finding) {
	if findings == nil {
		findings = []analyzer.Finding{}
	}
	r.Findings = findings
	r.MaxSeverity = analyzer.MaxSeverity(findings)
	r.Summary = summarize(findings)
}

func summarize(findings []analyzer.Finding) Summary {
	var s Summary
	for _, f := range findings {
		s.Total++
		switch f.Severity {
		case analyzer.SeverityHigh:
			s.High++
		case analyzer.SeverityMedium:
			s.Medium++
		case analyzer.SeverityLow:
			s.Low++
		case analyzer.SeverityInfo:
			s.Info++
		}
	}
	return s
}

// Write outputs the report in the given format.
func Write(w io.Writer, report *Report, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatSARIF:
		return writeSARIF(w, report)
	case FormatSpectreHub:
		return writeSpectreHub(w, report)
	case FormatMarkdown:
		return writeMarkdown(w, report)
	default:
		return writeText(w, report)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// location names where a finding points: file:line for code findings,
// schema.table[.column] for catalog findings.
func location(f analyzer.Finding) string {
	if f.File != "" {
		if f.Line > 0 {
			return fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		return f.File
	}
	return objectName(f)
}

func objectName(f analyzer.Finding) string {
	return strings.Join(nonEmpty(f.Schema, f.Table, f.Column), ".")
}
