package reporter

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ppiankov/sqlspectre/internal/analyzer"
	"github.com/ppiankov/sqlspectre/internal/pipeline"
)

// tocThreshold is the finding count above which a table of contents is printed.
const tocThreshold = 20

// topTables caps the table access listing in text and markdown output.
const topTables = 10

var severityLabel = map[analyzer.Severity]string{
	analyzer.SeverityHigh:   "HIGH",
	analyzer.SeverityMedium: "MEDIUM",
	analyzer.SeverityLow:    "LOW",
	analyzer.SeverityInfo:   "INFO",
}

var severityColor = map[analyzer.Severity]lipgloss.Color{
	analyzer.SeverityHigh:   lipgloss.Color("9"),
	analyzer.SeverityMedium: lipgloss.Color("11"),
	analyzer.SeverityLow:    lipgloss.Color("14"),
	analyzer.SeverityInfo:   lipgloss.Color("8"),
}

// styles are bound to the output writer so non-terminals get plain text.
type styles struct {
	heading  lipgloss.Style
	group    lipgloss.Style
	muted    lipgloss.Style
	severity map[analyzer.Severity]lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	s := styles{
		heading:  r.NewStyle().Bold(true).Underline(true),
		group:    r.NewStyle().Bold(true),
		muted:    r.NewStyle().Faint(true),
		severity: make(map[analyzer.Severity]lipgloss.Style, len(severityColor)),
	}
	for sev, c := range severityColor {
		s.severity[sev] = r.NewStyle().Foreground(c).Bold(sev == analyzer.SeverityHigh)
	}
	return s
}

func (s styles) label(sev analyzer.Severity) string {
	return s.severity[sev].Render("[" + severityLabel[sev] + "]")
}

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}

func writeText(w io.Writer, report *Report) error {
	st := newStyles(w)
	ew := &errWriter{w: w}

	if sc := report.Scan; sc != nil {
		ew.printf("%s %s\n", st.heading.Render("sqlspectre "+report.Metadata.Command), sc.Stats.RepoPath)
		ew.printf("  %d files scanned, %d skipped", sc.Stats.FilesScanned, sc.Stats.FilesSkipped)
		if sc.Stats.FilesTooLarge > 0 {
			ew.printf(", %d too large", sc.Stats.FilesTooLarge)
		}
		if n := len(sc.Stats.Unreadable); n > 0 {
			ew.printf(", %d unreadable", n)
		}
		ew.printf("\n  %d statements, %d unparsed regions, %d candidates dropped as noise\n\n",
			sc.Summary.Statements, sc.Summary.Unparsed, sc.Summary.Dropped)
	}
	if ew.err != nil {
		return ew.err
	}

	if len(report.Technologies) > 0 {
		ew.println(st.heading.Render("Technology stack"))
		techTable(w, report).Render()
		ew.println()
	}

	if sc := report.Scan; sc != nil && sc.Summary.Statements > 0 {
		ew.println(st.heading.Render("Statements"))
		kindTable(w, report).Render()
		if t := accessTable(w, report); t != nil {
			t.Render()
		}
		ew.printf("Complexity: avg %.2f, max %.2f", sc.Statistics.AvgComplexity, sc.Statistics.MaxComplexity)
		if sc.Statistics.MaxFile != "" {
			ew.printf(" at %s:%d", sc.Statistics.MaxFile, sc.Statistics.MaxLine)
		}
		ew.printf("\n\n")
	}
	if ew.err != nil {
		return ew.err
	}

	if report.Summary.Total == 0 {
		ew.println("No findings.")
		return ew.err
	}

	groups := groupByLocation(report.Findings)
	if report.Summary.Total > tocThreshold {
		ew.println("Files with findings:")
		for _, g := range groups {
			ew.printf("  %-50s %d\n", g.key, len(g.findings))
		}
		ew.println()
	}

	for _, g := range groups {
		ew.println(st.group.Render(g.key))
		for _, f := range g.findings {
			ew.printf("  %s %s: %s", st.label(f.Severity), f.Type, f.Message)
			if f.File != "" && f.Line > 0 {
				ew.printf(" %s", st.muted.Render(fmt.Sprintf("(line %d)", f.Line)))
			}
			ew.println()
			for _, k := range slices.Sorted(maps.Keys(f.Detail)) {
				ew.printf("    %s: %s\n", k, f.Detail[k])
			}
		}
	}

	s := report.Summary
	ew.printf("\nSummary: %d findings (high=%d medium=%d low=%d info=%d)\n", s.Total, s.High, s.Medium, s.Low, s.Info)
	ew.printf("Top types: %s\n", topTypes(report.Findings, 5))
	return ew.err
}

func techTable(w io.Writer, report *Report) table.Writer {
	t := newTable(w, "Category", "Name", "Version", "Evidence")
	for _, tech := range report.Technologies {
		t.AppendRow(table.Row{tech.Category, tech.Name, tech.Version, tech.EvidencePath})
	}
	return t
}

func kindTable(w io.Writer, report *Report) table.Writer {
	t := newTable(w, "Kind", "Statements")
	for _, k := range pipeline.AllKinds {
		if n := report.Scan.Statistics.Kinds[k]; n > 0 {
			t.AppendRow(table.Row{k, n})
		}
	}
	t.AppendFooter(table.Row{"Total", report.Scan.Statistics.Statements})
	return t
}

func accessTable(w io.Writer, report *Report) table.Writer {
	access := report.Scan.Statistics.Tables
	if len(access) == 0 {
		return nil
	}
	t := newTable(w, "Table", "Statements", "Files")
	for _, a := range access[:min(len(access), topTables)] {
		t.AppendRow(table.Row{a.Table, a.Statements, a.Files})
	}
	if n := len(access) - topTables; n > 0 {
		t.AppendFooter(table.Row{fmt.Sprintf("+%d more", n), "", ""})
	}
	return t
}

type findingGroup struct {
	key      string
	findings []analyzer.Finding
}

// groupByLocation groups findings by file, or by table for catalog
// findings, in order of first appearance.
func groupByLocation(findings []analyzer.Finding) []findingGroup {
	index := make(map[string]int)
	var groups []findingGroup
	for _, f := range findings {
		key := f.File
		if key == "" {
			key = strings.Join(nonEmpty(f.Schema, f.Table), ".")
		}
		if key == "" {
			key = "(repository)"
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, findingGroup{key: key})
		}
		groups[i].findings = append(groups[i].findings, f)
	}
	return groups
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// topTypes formats the n most frequent finding types as TYPE=count.
func topTypes(findings []analyzer.Finding, n int) string {
	counts := make(map[analyzer.FindingType]int)
	for _, f := range findings {
		counts[f.Type]++
	}
	types := slices.SortedFunc(maps.Keys(counts), func(a, b analyzer.FindingType) int {
		return cmp.Or(cmp.Compare(counts[b], counts[a]), cmp.Compare(a, b))
	})
	parts := make([]string, 0, n)
	for _, t := range types[:min(len(types), n)] {
		parts = append(parts, fmt.Sprintf("%s=%d", t, counts[t]))
	}
	return strings.Join(parts, ", ")
}

// errWriter keeps the first write error so a render can be checked once.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err == nil {
		_, e.err = fmt.Fprintf(e.w, format, args...)
	}
}

func (e *errWriter) println(args ...any) {
	if e.err == nil {
		_, e.err = fmt.Fprintln(e.w, args...)
	}
}
