package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ppiankov/sqlspectre/internal/source"
	"github.com/ppiankov/sqlspectre/internal/sqltext"
)

// Process runs extraction, normalization, splitting, classification and
// schema extraction over one file. It never fails: problems are recorded as
// unparsed regions on the result.
func Process(u source.Unit, limits Limits) FileResult {
	limits = limits.withDefaults()
	res := FileResult{
		Path:       u.Path,
		Language:   string(u.Language),
		Statements: []Result{},
	}

	for cand, err := range (Extractor{Limits: limits}).Candidates(u) {
		if err != nil {
			var region *UnparsedRegion
			if errors.As(err, &region) {
				res.Unparsed = append(res.Unparsed, *region)
			}
			slog.Debug("unparsed region", "error", err)
			continue
		}
		res.Candidates++

		norm, ok := Normalize(cand)
		if !ok {
			res.Dropped++
			continue
		}
		if len(norm.Text) > limits.MaxStatementBytes {
			res.Unparsed = append(res.Unparsed, UnparsedRegion{
				Path:   u.Path,
				Line:   norm.Line,
				Reason: fmt.Sprintf("statement exceeds %d bytes", limits.MaxStatementBytes),
			})
			continue
		}

		stmts, region := Statements(norm)
		res.Statements = append(res.Statements, stmts...)
		if region != nil {
			slog.Debug("unbalanced statement", "path", u.Path, "line", norm.Line, "problem", region.Reason)
			res.Unparsed = append(res.Unparsed, *region)
		}
	}
	return res
}

// Statements splits normalized SQL and classifies and extracts each
// statement. Unbalanced text is kept whole as one best-effort statement and
// reported as an unparsed region.
func Statements(norm Normalized) ([]Result, *UnparsedRegion) {
	var region *UnparsedRegion
	split := sqltext.Split(norm.Text)
	segs := split.Segments
	if !split.Balanced() {
		segs = []sqltext.Segment{{Text: norm.Text}}
		region = &UnparsedRegion{Path: norm.Path, Line: norm.Line, Reason: split.Problem()}
	}

	// Lines only line up with the segments when both splits agree.
	perStatement := region == nil && len(norm.Lines) == len(segs)

	out := make([]Result, 0, len(segs))
	for i, seg := range segs {
		kind := Classify(seg.Text)
		line := norm.Line
		if perStatement {
			line = norm.Lines[i]
		}
		out = append(out, Result{
			Statement: Statement{
				Text:    seg.Text,
				Kind:    kind,
				Line:    line,
				Offset:  norm.Offset,
				Index:   i,
				Dynamic: norm.Dynamic,
			},
			SchemaReference: Extract(seg.Text, kind),
		})
	}
	return out, region
}
