package analyzer

import (
	"fmt"
	"strings"

	"github.com/ppiankov/sqlspectre/internal/aggregate"
	"github.com/ppiankov/sqlspectre/internal/pipeline"
)

const excerptLen = 120

// Analyze derives findings from the scanned statements alone.
func Analyze(rep aggregate.Report) []Finding {
	var findings []Finding
	for _, path := range rep.Paths() {
		fr := rep.Files[path]
		for _, u := range fr.Unparsed {
			findings = append(findings, Finding{
				Type:     FindingUnparsedRegion,
				Severity: SeverityLow,
				File:     path,
				Line:     u.Line,
				Message:  "source skipped: " + u.Reason,
			})
		}
		for _, res := range fr.Statements {
			findings = append(findings, statementFindings(path, res)...)
		}
	}
	Sort(findings)
	return findings
}

func statementFindings(path string, res pipeline.Result) []Finding {
	var out []Finding
	at := func(f Finding) Finding {
		f.File, f.Line = path, res.Line
		if f.Detail == nil {
			f.Detail = map[string]string{}
		}
		f.Detail["statement"] = excerpt(res.Text)
		return f
	}

	if res.Dynamic {
		out = append(out, at(Finding{
			Type:     FindingDynamicSQL,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("%s statement is assembled from runtime values", res.Kind),
		}))
	}
	if feats := OracleFeatures(res.Text); len(feats) > 0 {
		out = append(out, at(Finding{
			Type:     FindingOracleFeature,
			Severity: SeverityInfo,
			Message:  "Oracle-specific syntax: " + strings.Join(feats, ", "),
			Detail:   map[string]string{"features": strings.Join(feats, ",")},
		}))
	}
	for _, c := range res.Columns {
		if !c.Ambiguous {
			continue
		}
		out = append(out, at(Finding{
			Type:     FindingAmbiguousColumn,
			Severity: SeverityInfo,
			Column:   c.Name,
			Message:  fmt.Sprintf("column %q cannot be tied to a single table", c.Name),
		}))
	}
	return out
}

// excerpt shortens statement text for finding details.
func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= excerptLen {
		return s
	}
	cut := excerptLen
	for cut > 0 && !utf8Start(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func utf8Start(b byte) bool { return b&0xC0 != 0x80 }
