// Package aggregate folds per-file pipeline results into one repository-wide
// report. The Aggregator is the single accumulation point shared by scan
// workers.
package aggregate

import (
	"cmp"
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/ppiankov/sqlspectre/internal/pipeline"
)

// FileReport is the merged result for one path.
type FileReport struct {
	Language   string                    `json:"language"`
	Statements []pipeline.Result         `json:"statements"`
	Unparsed   []pipeline.UnparsedRegion `json:"unparsed,omitempty"`
	Mappings   []pipeline.Mapping        `json:"mappings,omitempty"`
	Candidates int                       `json:"candidates"`
	Dropped    int                       `json:"dropped"`
}

// Summary counts what the report holds.
type Summary struct {
	Files      int                            `json:"files"`
	Statements int                            `json:"statements"`
	Unparsed   int                            `json:"unparsed"`
	Candidates int                            `json:"candidates"`
	Dropped    int                            `json:"dropped"`
	Kinds      map[pipeline.OperationKind]int `json:"kinds"`
}

// Report is a point-in-time copy of the aggregated results keyed by path.
type Report struct {
	Files   map[string]FileReport `json:"files"`
	Summary Summary               `json:"summary"`
}

// Paths returns the report's file paths in sorted order.
func (r Report) Paths() []string {
	return slices.Sorted(maps.Keys(r.Files))
}

// Statements yields every statement with its path, in path then source order.
func (r Report) Statements() iter.Seq2[string, pipeline.Result] {
	return func(yield func(string, pipeline.Result) bool) {
		for _, p := range r.Paths() {
			for _, st := range r.Files[p].Statements {
				if !yield(p, st) {
					return
				}
			}
		}
	}
}

// Aggregator accumulates file results. It is safe for concurrent use.
type Aggregator struct {
	mu    sync.Mutex
	files map[string]*FileReport
}

// New returns an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{files: make(map[string]*FileReport)}
}

// Merge adds one file result. Merging is additive: results for a path that
// was already merged are appended, never replaced.
func (a *Aggregator) Merge(res pipeline.FileResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	fr, ok := a.files[res.Path]
	if !ok {
		fr = &FileReport{}
		a.files[res.Path] = fr
	}
	if fr.Language == "" || res.Language != "" && res.Language < fr.Language {
		fr.Language = res.Language
	}
	fr.Statements = append(fr.Statements, res.Statements...)
	fr.Unparsed = append(fr.Unparsed, res.Unparsed...)
	fr.Mappings = append(fr.Mappings, res.Mappings...)
	fr.Candidates += res.Candidates
	fr.Dropped += res.Dropped
}

// Len returns the number of files merged so far.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.files)
}

// Snapshot returns a deep copy of the accumulated results. Entries within a
// file are sorted by source position so the snapshot does not depend on the
// order results were merged in.
func (a *Aggregator) Snapshot() Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	rep := Report{
		Files:   make(map[string]FileReport, len(a.files)),
		Summary: Summary{Kinds: make(map[pipeline.OperationKind]int)},
	}
	for path, fr := range a.files {
		cp := FileReport{
			Language:   fr.Language,
			Statements: make([]pipeline.Result, len(fr.Statements)),
			Unparsed:   slices.Clone(fr.Unparsed),
			Mappings:   slices.Clone(fr.Mappings),
			Candidates: fr.Candidates,
			Dropped:    fr.Dropped,
		}
		for i, st := range fr.Statements {
			cp.Statements[i] = cloneResult(st)
		}
		slices.SortFunc(cp.Statements, compareResults)
		slices.SortFunc(cp.Unparsed, func(x, y pipeline.UnparsedRegion) int {
			return cmp.Or(cmp.Compare(x.Line, y.Line), cmp.Compare(x.Reason, y.Reason))
		})
		slices.SortFunc(cp.Mappings, func(x, y pipeline.Mapping) int {
			return cmp.Or(cmp.Compare(x.Line, y.Line), cmp.Compare(x.Table, y.Table), cmp.Compare(x.Pattern, y.Pattern))
		})
		rep.Files[path] = cp

		rep.Summary.Files++
		rep.Summary.Statements += len(cp.Statements)
		rep.Summary.Unparsed += len(cp.Unparsed)
		rep.Summary.Candidates += cp.Candidates
		rep.Summary.Dropped += cp.Dropped
		for _, st := range cp.Statements {
			rep.Summary.Kinds[st.Kind]++
		}
	}
	return rep
}

func cloneResult(r pipeline.Result) pipeline.Result {
	r.Tables = slices.Clone(r.Tables)
	r.Columns = slices.Clone(r.Columns)
	return r
}

// compareResults orders by offset, then index within the candidate. The
// remaining keys only break ties between duplicate merges of one path.
func compareResults(x, y pipeline.Result) int {
	return cmp.Or(
		cmp.Compare(x.Offset, y.Offset),
		cmp.Compare(x.Index, y.Index),
		cmp.Compare(x.Line, y.Line),
		cmp.Compare(x.Text, y.Text),
		cmp.Compare(x.Kind, y.Kind),
	)
}
