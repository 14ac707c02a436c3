package pipeline

import (
	"slices"
	"strings"
)

// Extract returns the tables and columns a statement references.
//
// Column owners are resolved per query scope: a qualifier is looked up as an
// alias, then as a table name, from the innermost scope outward. An
// unqualified column belongs to the only table of its scope. Anything else,
// and any qualifier naming a derived table or CTE, is reported ambiguous.
func Extract(stmt string, kind OperationKind) SchemaReference {
	x := &schemaExtractor{
		toks:   tokenize(stmt),
		kind:   kind,
		ctes:   map[string]bool{},
		target: -1,
		scopes: []scope{{parent: -1}},
	}
	x.walk()
	return x.resolve()
}

type clause uint8

const (
	clNone clause = iota
	clSelectList
	clFrom
	clCondition
	clSet
	clValues
)

type parenKind uint8

const (
	parenGroup parenKind = iota
	parenSubquery
	parenFunc
	parenSource // subquery or table function used as a FROM item
)

type frame struct {
	kind        parenKind
	clause      clause
	clauseDepth int
	scope       int
}

type scope struct {
	parent  int
	sources []sourceRef
}

// sourceRef is a FROM item visible in a scope. table is -1 for derived
// tables and CTE references.
type sourceRef struct {
	table int
	alias string
	name  string
}

type colCand struct {
	name      string
	qualifier string
	scope     int
	owner     int
}

type schemaExtractor struct {
	toks []sqlToken
	kind OperationKind

	tables []TableRef
	scopes []scope
	cols   []colCand
	ctes   map[string]bool
	target int // DML target table

	// walk state
	stack       []frame
	cur         int
	cl          clause
	clauseDepth int
	expectTable bool
	setLHS      bool
}

func (x *schemaExtractor) peek(i int) sqlToken {
	if i >= 0 && i < len(x.toks) {
		return x.toks[i]
	}
	return sqlToken{kind: tPunct}
}

func (x *schemaExtractor) setClause(c clause) {
	x.cl = c
	x.clauseDepth = len(x.stack)
}

func (x *schemaExtractor) inFunc() bool {
	return len(x.stack) > 0 && x.stack[len(x.stack)-1].kind == parenFunc
}

// identifier reports whether t can name a table, alias or column.
func identifier(t sqlToken) bool {
	return t.kind == tQuoted || t.kind == tIdent && !reserved[t.upper]
}

// funcKeywords are reserved words that are also function names.
var funcKeywords = map[string]bool{
	"LEFT": true, "RIGHT": true, "REPLACE": true, "IF": true, "VALUES": true,
	"ROW": true, "ANY": true, "SOME": true, "CHECK": true,
}

func (x *schemaExtractor) funcName(i int) bool {
	t := x.peek(i)
	return identifier(t) || t.kind == tIdent && funcKeywords[t.upper]
}

func (x *schemaExtractor) walk() {
	for i := 0; i < len(x.toks); {
		i = x.step(i)
	}
}

// step consumes the token at i and returns the index of the next one.
func (x *schemaExtractor) step(i int) int {
	t := x.toks[i]
	switch {
	case t.is("("):
		return x.open(i)
	case t.is(")"):
		return x.close(i)
	case t.is(","):
		if len(x.stack) == x.clauseDepth {
			switch x.cl {
			case clFrom:
				x.expectTable = true
			case clSet:
				x.setLHS = true
			}
		}
		return i + 1
	case t.is("="):
		if x.cl == clSet {
			x.setLHS = false
		}
		return i + 1
	case t.is("::"):
		return i + 2 // type name
	case t.kind == tIdent && reserved[t.upper]:
		return x.keyword(i)
	case t.name():
		switch {
		case x.expectTable:
			x.expectTable = false
			_, j := x.tableRef(i, true)
			return j
		case x.cl == clSelectList || x.cl == clCondition || x.cl == clSet:
			return x.column(i)
		}
	}
	return i + 1
}

func (x *schemaExtractor) open(i int) int {
	next := x.peek(i + 1)
	kind := parenGroup
	switch {
	case next.keyword("SELECT") || next.keyword("WITH"):
		kind = parenSubquery
		if x.cl == clFrom && x.expectTable {
			kind = parenSource
		}
	case i > 0 && x.funcName(i-1):
		kind = parenFunc
	}

	x.stack = append(x.stack, frame{kind: kind, clause: x.cl, clauseDepth: x.clauseDepth, scope: x.cur})
	if kind == parenSubquery || kind == parenSource {
		x.scopes = append(x.scopes, scope{parent: x.cur})
		x.cur = len(x.scopes) - 1
	}
	if !(kind == parenGroup && x.cl == clFrom) {
		x.expectTable = false
	}
	return i + 1
}

func (x *schemaExtractor) close(i int) int {
	if len(x.stack) == 0 {
		return i + 1
	}
	f := x.stack[len(x.stack)-1]
	x.stack = x.stack[:len(x.stack)-1]
	x.cl, x.clauseDepth, x.cur = f.clause, f.clauseDepth, f.scope
	x.expectTable = false
	if f.kind == parenSource {
		alias, j := x.alias(i + 1)
		x.scopes[x.cur].sources = append(x.scopes[x.cur].sources, sourceRef{table: -1, alias: strings.ToLower(alias)})
		return j
	}
	return i + 1
}

func (x *schemaExtractor) keyword(i int) int {
	t := x.toks[i]
	switch t.upper {
	case "SELECT":
		x.setClause(clSelectList)
		x.expectTable = false
	case "TOP":
		if x.peek(i + 1).kind == tNumber {
			return i + 2
		}
		if x.peek(i + 1).is("(") {
			return x.skipGroup(i + 1)
		}
	case "FROM":
		if !x.inFunc() {
			x.setClause(clFrom)
			x.expectTable = true
		}
	case "JOIN", "APPLY":
		x.setClause(clFrom)
		x.expectTable = true
	case "WHERE", "ON", "HAVING", "BY", "RETURNING", "CONNECT", "START":
		x.setClause(clCondition)
		x.expectTable = false
	case "USING":
		x.setClause(clCondition)
		if (x.kind == KindDelete || x.target >= 0) && identifier(x.peek(i+1)) || x.peek(i+1).is("(") && x.peek(i+2).keyword("SELECT") {
			x.setClause(clFrom)
			x.expectTable = true
		}
	case "SET":
		if x.target >= 0 {
			x.setClause(clSet)
			x.setLHS = true
		}
	case "VALUES":
		if !x.peek(i + 1).is("(") || x.cl != clSet {
			x.setClause(clValues)
		}
	case "INTO":
		if x.cl == clSelectList {
			x.setClause(clNone) // SELECT ... INTO variables
		}
	case "UNION", "INTERSECT", "EXCEPT", "MINUS":
		x.setClause(clNone)
	case "AS":
		if identifier(x.peek(i + 1)) {
			return i + 2
		}
	case "WITH":
		x.registerCTEs(i)
	case "INSERT":
		return x.insertHead(i)
	case "UPDATE":
		if x.peek(i-1).keyword("FOR") {
			break
		}
		if x.target >= 0 {
			x.setClause(clSet)
			x.setLHS = true
			break
		}
		return x.dmlHead(i, "LOW_PRIORITY", "IGNORE", "ONLY")
	case "DELETE":
		if x.target < 0 {
			return x.dmlHead(i, "LOW_PRIORITY", "QUICK", "IGNORE", "FROM", "ONLY")
		}
	case "MERGE":
		return x.dmlHead(i, "INTO")
	case "CREATE", "ALTER", "DROP", "TRUNCATE":
		if i == 0 || len(x.tables) == 0 && x.target < 0 {
			return x.ddl(i)
		}
	}
	return i + 1
}

// qualified reads name(.name)* at i. star reports a trailing .*.
func (x *schemaExtractor) qualified(i int) (parts []string, j int, star bool) {
	parts = []string{x.toks[i].text}
	j = i + 1
	for x.peek(j).is(".") && x.peek(j + 1).name() {
		parts = append(parts, x.peek(j+1).text)
		j += 2
	}
	if x.peek(j).is(".") && x.peek(j+1).is("*") {
		return parts, j + 2, true
	}
	return parts, j, false
}

// alias reads an optional [AS] alias at i.
func (x *schemaExtractor) alias(i int) (string, int) {
	if x.peek(i).keyword("AS") && identifier(x.peek(i+1)) {
		return x.peek(i + 1).text, i + 2
	}
	if identifier(x.peek(i)) {
		return x.peek(i).text, i + 1
	}
	return "", i
}

func (x *schemaExtractor) addTable(ref TableRef) int {
	for i, t := range x.tables {
		if strings.EqualFold(t.QualifiedName(), ref.QualifiedName()) &&
			strings.EqualFold(t.Alias, ref.Alias) && t.Object == ref.Object {
			return i
		}
	}
	x.tables = append(x.tables, ref)
	return len(x.tables) - 1
}

// tableRef reads a FROM item at i. A name followed by '(' is a table
// function and is treated as a derived source. It returns the table index,
// or -1 when the item is not a base table.
func (x *schemaExtractor) tableRef(i int, source bool) (int, int) {
	parts, j, _ := x.qualified(i)
	if x.peek(j).is("(") {
		x.stack = append(x.stack, frame{kind: parenSource, clause: x.cl, clauseDepth: x.clauseDepth, scope: x.cur})
		x.setClause(clCondition)
		return -1, j + 1
	}

	name := parts[len(parts)-1]
	schema := strings.Join(parts[:len(parts)-1], ".")
	alias, j := x.alias(j)
	lname := strings.ToLower(name)

	if schema == "" && x.ctes[lname] {
		if source {
			x.scopes[x.cur].sources = append(x.scopes[x.cur].sources, sourceRef{table: -1, alias: strings.ToLower(alias), name: lname})
		}
		return -1, j
	}

	idx := x.addTable(TableRef{Name: name, Schema: schema, Alias: alias})
	if source {
		x.scopes[x.cur].sources = append(x.scopes[x.cur].sources, sourceRef{table: idx, alias: strings.ToLower(alias), name: lname})
	}
	return idx, j
}

func (x *schemaExtractor) column(i int) int {
	parts, j, star := x.qualified(i)
	if star || x.peek(j).is("(") {
		return j
	}
	if x.cl == clSelectList && implicitAlias(x.peek(i-1)) {
		return j
	}
	if x.peek(i-1).is("(") && x.peek(i-2).upper == "EXTRACT" {
		return j // date part
	}

	c := colCand{name: parts[len(parts)-1], scope: x.cur, owner: -1}
	if len(parts) > 1 {
		c.qualifier = strings.ToLower(parts[len(parts)-2])
	} else if x.cl == clSet && x.setLHS {
		c.owner = x.target
	}
	x.cols = append(x.cols, c)
	return j
}

// implicitAlias reports whether a name after prev is an alias in a select
// list, as in "count(*) total" or "u.name uname".
func implicitAlias(prev sqlToken) bool {
	switch prev.kind {
	case tQuoted, tNumber, tString:
		return true
	case tIdent:
		return !reserved[prev.upper] || prev.upper == "END"
	case tPunct:
		return prev.text == ")"
	}
	return false
}

func (x *schemaExtractor) skipGroup(i int) int {
	depth := 0
	for j := i; j < len(x.toks); j++ {
		switch {
		case x.toks[j].is("("):
			depth++
		case x.toks[j].is(")"):
			depth--
			if depth == 0 {
				return j + 1
			}
		}
	}
	return len(x.toks)
}

// registerCTEs records the names of WITH name [(cols)] AS [NOT MATERIALIZED] (...)
// entries. The bodies are walked normally afterwards.
func (x *schemaExtractor) registerCTEs(i int) {
	j := i + 1
	if x.peek(j).keyword("RECURSIVE") {
		j++
	}
	for identifier(x.peek(j)) {
		name := strings.ToLower(x.peek(j).text)
		j++
		if x.peek(j).is("(") {
			j = x.skipGroup(j)
		}
		if !x.peek(j).keyword("AS") {
			return
		}
		j++
		for x.peek(j).keyword("NOT") || x.peek(j).keyword("MATERIALIZED") {
			j++
		}
		if !x.peek(j).is("(") {
			return
		}
		x.ctes[name] = true
		j = x.skipGroup(j)
		if !x.peek(j).is(",") {
			return
		}
		j++
	}
}

// dmlHead reads the target of UPDATE, DELETE or MERGE after skipping
// modifiers, and registers it as a source of the outer scope.
func (x *schemaExtractor) dmlHead(i int, modifiers ...string) int {
	j := i + 1
	for j < len(x.toks) && x.toks[j].kind == tIdent && slices.Contains(modifiers, x.toks[j].upper) {
		j++
	}
	if x.peek(j).keyword("TOP") && x.peek(j+1).is("(") {
		j = x.skipGroup(j + 1)
	}
	x.setClause(clNone)
	if !identifier(x.peek(j)) {
		return j
	}
	idx, j := x.tableRef(j, true)
	if idx >= 0 {
		x.target = idx
	}
	return j
}

func (x *schemaExtractor) insertHead(i int) int {
	j := i + 1
	for x.peek(j).kind == tIdent && slices.Contains([]string{"INTO", "IGNORE", "OR", "REPLACE", "OVERWRITE", "LOW_PRIORITY", "DELAYED", "HIGH_PRIORITY", "ALL"}, x.peek(j).upper) {
		j++
	}
	x.setClause(clNone)
	if identifier(x.peek(j)) {
		parts, k, _ := x.qualified(j)
		ref := TableRef{Name: parts[len(parts)-1], Schema: strings.Join(parts[:len(parts)-1], ".")}
		if x.peek(k).keyword("AS") && identifier(x.peek(k+1)) {
			ref.Alias = x.peek(k + 1).text
			k += 2
		}
		idx := x.addTable(ref)
		if x.target < 0 {
			x.target = idx
		}
		j = k
	}
	if x.peek(j).is("(") && !x.peek(j+1).keyword("SELECT") && !x.peek(j+1).keyword("WITH") {
		j = x.ownedList(j, x.target)
	}
	return j
}

// ownedList records the names of a parenthesized column list at i as
// columns of owner and returns the index after the closing paren.
func (x *schemaExtractor) ownedList(i, owner int) int {
	depth := 0
	for j := i; j < len(x.toks); j++ {
		t := x.toks[j]
		switch {
		case t.is("("):
			depth++
		case t.is(")"):
			depth--
			if depth == 0 {
				return j + 1
			}
		case depth == 1 && identifier(t) && (x.peek(j-1).is("(") || x.peek(j-1).is(",")):
			parts, k, _ := x.qualified(j)
			x.cols = append(x.cols, colCand{name: parts[len(parts)-1], owner: owner, scope: x.cur})
			j = k - 1
		}
	}
	return len(x.toks)
}

// resolve drops UPDATE/DELETE targets that are really aliases of a joined
// table, assigns column owners and de-duplicates the result.
func (x *schemaExtractor) resolve() SchemaReference {
	redirect := make([]int, len(x.tables))
	for i := range redirect {
		redirect[i] = i
	}
	if t := x.target; t >= 0 && x.tables[t].Schema == "" && x.tables[t].Alias == "" {
		for i, other := range x.tables {
			if i != t && strings.EqualFold(other.Alias, x.tables[t].Name) {
				redirect[t] = i
				break
			}
		}
	}

	ref := SchemaReference{Tables: []TableRef{}, Columns: []ColumnRef{}}
	for i, t := range x.tables {
		if redirect[i] == i {
			ref.Tables = append(ref.Tables, t)
		}
	}

	seen := map[string]bool{}
	for _, c := range x.cols {
		col := ColumnRef{Name: c.name}
		switch {
		case c.qualifier != "":
			col.Table, col.Ambiguous = x.lookupQualifier(c.qualifier, c.scope, redirect)
		case c.owner >= 0:
			col.Table = x.tables[redirect[c.owner]].Name
		default:
			col.Table, col.Ambiguous = x.soleSource(c.scope, redirect)
		}
		key := strings.ToLower(col.Name) + "\x00" + strings.ToLower(col.Table)
		if col.Ambiguous {
			key += "\x00?"
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		ref.Columns = append(ref.Columns, col)
	}
	return ref
}

// lookupQualifier resolves q as an alias, then as a table name, from scope s
// outward. The bool result is true when q cannot be tied to one base table.
func (x *schemaExtractor) lookupQualifier(q string, s int, redirect []int) (string, bool) {
	for ; s >= 0; s = x.scopes[s].parent {
		var matched []sourceRef
		for _, src := range x.scopes[s].sources {
			if src.alias == q {
				matched = append(matched, src)
			}
		}
		if len(matched) == 0 {
			for _, src := range x.scopes[s].sources {
				if src.name == q {
					matched = append(matched, src)
				}
			}
		}
		if len(matched) == 0 {
			continue
		}

		owner := ""
		for _, src := range matched {
			if src.table < 0 {
				return "", true
			}
			name := x.tables[redirect[src.table]].Name
			if owner != "" && !strings.EqualFold(owner, name) {
				return "", true
			}
			owner = name
		}
		return owner, false
	}
	return "", true
}

// soleSource returns the only base table visible in scope s. A scope with
// no FROM items defers to its parent, and finally to the DML target.
func (x *schemaExtractor) soleSource(s int, redirect []int) (string, bool) {
	for ; s >= 0; s = x.scopes[s].parent {
		srcs := x.scopes[s].sources
		if len(srcs) == 0 {
			continue
		}
		owner := ""
		for _, src := range srcs {
			if src.table < 0 {
				return "", true
			}
			name := x.tables[redirect[src.table]].Name
			if owner != "" && !strings.EqualFold(owner, name) {
				return "", true
			}
			owner = name
		}
		return owner, false
	}
	if x.target >= 0 {
		return x.tables[redirect[x.target]].Name, false
	}
	return "", true
}
