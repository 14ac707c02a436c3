package analyzer

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"github.com/ppiankov/sqlspectre/internal/aggregate"
	"github.com/ppiankov/sqlspectre/internal/pipeline"
	"github.com/ppiankov/sqlspectre/internal/sqltext"
)

// TableAccess counts the statements that name a table.
type TableAccess struct {
	Table      string `json:"table"`
	Statements int    `json:"statements"`
	Files      int    `json:"files"`
}

// Stats summarizes statement shapes across a report.
type Stats struct {
	Statements    int                            `json:"statements"`
	Kinds         map[pipeline.OperationKind]int `json:"kinds"`
	Tables        []TableAccess                  `json:"tables"`
	AvgComplexity float64                        `json:"avgComplexity"`
	MaxComplexity float64                        `json:"maxComplexity"`
	MaxFile       string                         `json:"maxFile,omitempty"`
	MaxLine       int                            `json:"maxLine,omitempty"`
}

var (
	joinRe      = regexp.MustCompile(`(?i)\bJOIN\b`)
	subqueryRe  = regexp.MustCompile(`(?i)\(\s*(?:SELECT|WITH)\b`)
	aggregateRe = regexp.MustCompile(`(?i)\b(COUNT|SUM|AVG|MIN|MAX)\s*\(`)
)

// Complexity scores a statement: 1, plus 1 if it joins, plus 2 if it nests
// a query, plus 0.5 for each distinct aggregate function.
func Complexity(text string) float64 {
	masked := sqltext.MaskLiterals(text)
	score := 1.0
	if joinRe.MatchString(masked) {
		score++
	}
	if subqueryRe.MatchString(masked) {
		score += 2
	}
	aggs := map[string]bool{}
	for _, m := range aggregateRe.FindAllStringSubmatch(masked, -1) {
		aggs[strings.ToUpper(m[1])] = true
	}
	return score + 0.5*float64(len(aggs))
}

// Summarize computes statement statistics for rep.
func Summarize(rep aggregate.Report) Stats {
	st := Stats{Kinds: map[pipeline.OperationKind]int{}}
	type acc struct {
		name       string
		statements int
		files      map[string]bool
	}
	tables := map[string]*acc{}

	var total float64
	for path, res := range rep.Statements() {
		st.Statements++
		st.Kinds[res.Kind]++

		c := Complexity(res.Text)
		total += c
		if c > st.MaxComplexity {
			st.MaxComplexity, st.MaxFile, st.MaxLine = c, path, res.Line
		}

		seen := map[string]bool{}
		for _, t := range res.Tables {
			name := t.QualifiedName()
			key := strings.ToLower(name)
			if seen[key] {
				continue
			}
			seen[key] = true
			a := tables[key]
			if a == nil {
				a = &acc{name: name, files: map[string]bool{}}
				tables[key] = a
			}
			a.statements++
			a.files[path] = true
		}
	}
	if st.Statements > 0 {
		st.AvgComplexity = total / float64(st.Statements)
	}

	for _, a := range tables {
		st.Tables = append(st.Tables, TableAccess{Table: a.name, Statements: a.statements, Files: len(a.files)})
	}
	slices.SortFunc(st.Tables, func(a, b TableAccess) int {
		return cmp.Or(cmp.Compare(b.Statements, a.Statements), cmp.Compare(a.Table, b.Table))
	})
	return st
}
