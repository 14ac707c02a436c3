// Package pipeline turns source files into classified SQL statements with
// their schema references. Each stage is a pure function of its input so
// files can be processed concurrently.
package pipeline

import (
	"fmt"
	"strings"
)

// OperationKind is the statement category derived from its leading keyword.
type OperationKind string

const (
	KindSelect OperationKind = "SELECT"
	KindInsert OperationKind = "INSERT"
	KindUpdate OperationKind = "UPDATE"
	KindDelete OperationKind = "DELETE"
	KindCreate OperationKind = "DDL_CREATE"
	KindAlter  OperationKind = "DDL_ALTER"
	KindDrop   OperationKind = "DDL_DROP"
	KindOther  OperationKind = "OTHER"
)

// AllKinds lists every kind in report order.
var AllKinds = []OperationKind{
	KindSelect, KindInsert, KindUpdate, KindDelete, KindCreate, KindAlter, KindDrop, KindOther,
}

// IsDDL reports whether k is a schema-changing kind.
func (k OperationKind) IsDDL() bool {
	return k == KindCreate || k == KindAlter || k == KindDrop
}

// UnparsedRegion marks source text the pipeline skipped.
type UnparsedRegion struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (u *UnparsedRegion) Error() string {
	return fmt.Sprintf("%s:%d: %s", u.Path, u.Line, u.Reason)
}

// Fragment is one string literal of a candidate. Line and EndLine are the
// source lines the raw literal opens and closes on; ValueLine is the line
// of Value's first byte.
type Fragment struct {
	Value     string
	Offset    int
	Line      int
	EndLine   int
	ValueLine int
}

// Candidate is a run of concatenated literals that looks like SQL.
type Candidate struct {
	Path      string
	Offset    int
	Length    int
	Line      int
	Fragments []Fragment
}

// Text joins the fragment values.
func (c Candidate) Text() string {
	if len(c.Fragments) == 1 {
		return c.Fragments[0].Value
	}
	var b strings.Builder
	for _, f := range c.Fragments {
		b.WriteString(f.Value)
	}
	return b.String()
}

// LineAt returns the source line of byte pos of Text. Line breaks inside a
// fragment count only when the literal spans lines in the source, so escaped
// newlines in a one-line string do not move it.
func (c Candidate) LineAt(pos int) int {
	start := 0
	for _, f := range c.Fragments {
		end := start + len(f.Value)
		if pos < end {
			if f.EndLine <= f.Line {
				return f.Line
			}
			line := f.ValueLine + strings.Count(f.Value[:pos-start], "\n")
			return min(max(line, f.Line), f.EndLine)
		}
		start = end
	}
	return c.Line
}

// Normalized is keyword-verified SQL text from one candidate.
type Normalized struct {
	Text    string
	Path    string
	Offset  int
	Line    int
	Dynamic bool  // text substitution (${...} or interpolation) was present
	Lines   []int // start line per statement when the candidate holds several
}

// Statement is one classified statement with its provenance.
type Statement struct {
	Text    string        `json:"statementText"`
	Kind    OperationKind `json:"operationKind"`
	Line    int           `json:"sourceLine"`
	Offset  int           `json:"offset"`
	Index   int           `json:"index"`
	Dynamic bool          `json:"dynamic,omitempty"`
}

// TableRef is a table (or other schema object) named by a statement.
type TableRef struct {
	Name   string `json:"name"`
	Schema string `json:"schema,omitempty"`
	Alias  string `json:"alias,omitempty"`
	Object string `json:"object,omitempty"`
}

// QualifiedName returns schema.name, or name when there is no schema.
func (t TableRef) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// ColumnRef is a column with its owning table when that can be resolved.
type ColumnRef struct {
	Name      string `json:"name"`
	Table     string `json:"table,omitempty"`
	Ambiguous bool   `json:"ambiguous"`
}

// SchemaReference is the set of objects one statement touches.
type SchemaReference struct {
	Tables  []TableRef  `json:"tables"`
	Columns []ColumnRef `json:"columns"`
}

// Result pairs a statement with its schema references.
type Result struct {
	Statement
	SchemaReference
}

// Mapping is a table named by an ORM mapping rather than by SQL text.
type Mapping struct {
	Table   string `json:"table"`
	Schema  string `json:"schema,omitempty"`
	Line    int    `json:"line"`
	Pattern string `json:"pattern"`
}

// FileResult is everything the pipeline produced for one file.
type FileResult struct {
	Path       string           `json:"path"`
	Language   string           `json:"language"`
	Statements []Result         `json:"statements"`
	Unparsed   []UnparsedRegion `json:"unparsed,omitempty"`
	Mappings   []Mapping        `json:"mappings,omitempty"`
	Candidates int              `json:"candidates"`
	Dropped    int              `json:"dropped"`
}

// Limits bound the work done on pathological input.
type Limits struct {
	MaxChain          int // literals in one concatenation chain
	MaxStatementBytes int // bytes in one normalized candidate
}

// DefaultLimits are used for zero fields.
var DefaultLimits = Limits{
	MaxChain:          64,
	MaxStatementBytes: 64 << 10,
}

func (l Limits) withDefaults() Limits {
	if l.MaxChain <= 0 {
		l.MaxChain = DefaultLimits.MaxChain
	}
	if l.MaxStatementBytes <= 0 {
		l.MaxStatementBytes = DefaultLimits.MaxStatementBytes
	}
	return l
}
