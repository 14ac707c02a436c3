package reporter

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

func writeMarkdown(w io.Writer, report *Report) error {
	ew := &errWriter{w: w}
	ew.printf("# sqlspectre %s\n\n", report.Metadata.Command)
	ew.printf("- Run: `%s`\n- Generated: %s\n", report.Metadata.RunID, report.Metadata.Timestamp)
	if report.Metadata.Repo != "" {
		ew.printf("- Repository: `%s`\n", report.Metadata.Repo)
	}
	if sc := report.Scan; sc != nil {
		ew.printf("- Files scanned: %d (skipped %d, unreadable %d)\n",
			sc.Stats.FilesScanned, sc.Stats.FilesSkipped, len(sc.Stats.Unreadable))
		ew.printf("- Statements: %d, unparsed regions: %d\n", sc.Summary.Statements, sc.Summary.Unparsed)
	}
	ew.println()
	if ew.err != nil {
		return ew.err
	}

	if len(report.Technologies) > 0 {
		ew.printf("## Technology stack\n\n")
		techTable(w, report).RenderMarkdown()
		ew.println()
	}

	if sc := report.Scan; sc != nil && sc.Summary.Statements > 0 {
		ew.printf("## Statements\n\n")
		kindTable(w, report).RenderMarkdown()
		ew.println()
		if t := accessTable(w, report); t != nil {
			ew.printf("## Most referenced tables\n\n")
			t.RenderMarkdown()
			ew.println()
		}
	}

	ew.printf("## Findings\n\n")
	if report.Summary.Total == 0 {
		ew.println("No findings.")
		return ew.err
	}
	t := newTable(w, "Severity", "Type", "Location", "Message")
	for _, f := range report.Findings {
		t.AppendRow(table.Row{severityLabel[f.Severity], f.Type, location(f), oneLine(f.Message)})
	}
	t.RenderMarkdown()

	s := report.Summary
	ew.printf("\n**%d findings** (high=%d medium=%d low=%d info=%d)\n", s.Total, s.High, s.Medium, s.Low, s.Info)
	return ew.err
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
