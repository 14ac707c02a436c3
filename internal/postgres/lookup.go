package postgres

import (
	"slices"
	"strings"
)

// DefaultSchema resolves unqualified names when it holds a match.
const DefaultSchema = "public"

// Lookup answers case-insensitive existence questions about a catalog.
// Unquoted identifiers fold to lower case in PostgreSQL, and code written
// for other engines rarely matches case exactly.
type Lookup struct {
	byName   map[string][]Relation
	columns  map[string]map[string]bool
	activity map[string]Activity
}

func key(schema, name string) string {
	return strings.ToLower(schema) + "." + strings.ToLower(name)
}

// NewLookup indexes cat.
func NewLookup(cat *Catalog) *Lookup {
	l := &Lookup{
		byName:   make(map[string][]Relation),
		columns:  make(map[string]map[string]bool),
		activity: make(map[string]Activity, len(cat.Activity)),
	}
	for _, r := range cat.Relations {
		n := strings.ToLower(r.Name)
		l.byName[n] = append(l.byName[n], r)
	}
	for _, c := range cat.Columns {
		k := key(c.Schema, c.Table)
		if l.columns[k] == nil {
			l.columns[k] = make(map[string]bool)
		}
		l.columns[k][strings.ToLower(c.Name)] = true
	}
	for _, a := range cat.Activity {
		l.activity[key(a.Schema, a.Name)] = a
	}
	return l
}

// Relation finds name in schema. With no schema it prefers DefaultSchema,
// then the first schema in name order.
func (l *Lookup) Relation(schema, name string) (Relation, bool) {
	cands := l.byName[strings.ToLower(name)]
	if len(cands) == 0 {
		return Relation{}, false
	}
	if schema != "" {
		i := slices.IndexFunc(cands, func(r Relation) bool { return strings.EqualFold(r.Schema, schema) })
		if i < 0 {
			return Relation{}, false
		}
		return cands[i], true
	}
	if i := slices.IndexFunc(cands, func(r Relation) bool { return r.Schema == DefaultSchema }); i >= 0 {
		return cands[i], true
	}
	return slices.MinFunc(cands, func(a, b Relation) int { return strings.Compare(a.Schema, b.Schema) }), true
}

// HasColumn reports whether rel has the named column.
func (l *Lookup) HasColumn(rel Relation, column string) bool {
	return l.columns[key(rel.Schema, rel.Name)][strings.ToLower(column)]
}

// Activity returns the scan counters of rel, if the server tracks any.
func (l *Lookup) Activity(rel Relation) (Activity, bool) {
	a, ok := l.activity[key(rel.Schema, rel.Name)]
	return a, ok
}
