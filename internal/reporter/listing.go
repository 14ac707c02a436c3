package reporter

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ppiankov/sqlspectre/internal/pipeline"
	"github.com/ppiankov/sqlspectre/internal/techstack"
)

// Statements is the output of a single-file extraction.
type Statements struct {
	Path       string                    `json:"path"`
	Language   string                    `json:"language"`
	Statements []pipeline.Result         `json:"statements"`
	Unparsed   []pipeline.UnparsedRegion `json:"unparsed,omitempty"`
}

// WriteStatements prints extracted statements as a table, markdown or JSON.
func WriteStatements(w io.Writer, res pipeline.FileResult, format Format) error {
	out := Statements{Path: res.Path, Language: res.Language, Statements: res.Statements, Unparsed: res.Unparsed}
	if out.Statements == nil {
		out.Statements = []pipeline.Result{}
	}
	if format == FormatJSON {
		return writeJSON(w, out)
	}

	ew := &errWriter{w: w}
	if len(out.Statements) == 0 {
		ew.printf("%s: no SQL statements found\n", res.Path)
	} else {
		t := newTable(w, "Line", "Kind", "Tables", "Statement")
		t.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: 80}})
		for _, st := range out.Statements {
			t.AppendRow(table.Row{st.Line, st.Kind, tableNames(st.Tables), st.Text})
		}
		if format == FormatMarkdown {
			t.RenderMarkdown()
		} else {
			t.Render()
		}
	}
	for _, u := range out.Unparsed {
		ew.printf("unparsed: line %d: %s\n", u.Line, u.Reason)
	}
	return ew.err
}

func tableNames(refs []pipeline.TableRef) string {
	names := make([]string, 0, len(refs))
	for _, t := range refs {
		names = append(names, t.QualifiedName())
	}
	return strings.Join(names, ", ")
}

// WriteTechnologies prints a detected technology stack.
func WriteTechnologies(w io.Writer, techs []techstack.Technology, format Format) error {
	if techs == nil {
		techs = []techstack.Technology{}
	}
	switch format {
	case FormatJSON:
		return writeJSON(w, techs)
	case FormatMarkdown:
		techTable(w, &Report{Technologies: techs}).RenderMarkdown()
		return nil
	}
	if len(techs) == 0 {
		_, err := io.WriteString(w, "No technologies detected.\n")
		return err
	}
	techTable(w, &Report{Technologies: techs}).Render()
	return nil
}
