package pipeline

import "strings"

// ddlModifiers may sit between CREATE/ALTER/DROP and the object type.
var ddlModifiers = map[string]bool{
	"OR": true, "REPLACE": true, "GLOBAL": true, "LOCAL": true, "TEMP": true,
	"TEMPORARY": true, "UNIQUE": true, "CLUSTERED": true, "NONCLUSTERED": true, "BITMAP": true,
	"UNLOGGED": true, "FORCE": true, "NOFORCE": true, "EDITIONABLE": true, "NONEDITIONABLE": true,
	"PUBLIC": true, "SPATIAL": true, "FULLTEXT": true, "VIRTUAL": true, "EXTERNAL": true,
}

// constraintWords open a table constraint rather than a column definition.
var constraintWords = map[string]bool{
	"CONSTRAINT": true, "PRIMARY": true, "FOREIGN": true, "UNIQUE": true, "CHECK": true,
	"KEY": true, "INDEX": true, "EXCLUDE": true, "LIKE": true, "PERIOD": true, "FULLTEXT": true,
}

func (x *schemaExtractor) skipIfExists(j int) int {
	if x.peek(j).keyword("IF") {
		j++
		if x.peek(j).keyword("NOT") {
			j++
		}
		if x.peek(j).upper == "EXISTS" {
			j++
		}
	}
	return j
}

// ddl handles a CREATE, ALTER, DROP or TRUNCATE statement starting at i and
// returns where the generic walk should resume.
func (x *schemaExtractor) ddl(i int) int {
	verb := x.toks[i].upper
	j := i + 1
	x.setClause(clNone)

	if verb == "TRUNCATE" {
		if x.peek(j).keyword("TABLE") {
			j++
		}
		return x.dropList("TABLE", j)
	}

	for x.peek(j).kind == tIdent && ddlModifiers[x.peek(j).upper] {
		j++
	}
	obj := x.peek(j).upper
	if x.peek(j).kind != tIdent || !ddlObjects[obj] {
		return len(x.toks)
	}
	j++
	switch {
	case obj == "MATERIALIZED" && x.peek(j).keyword("VIEW"):
		obj = "MATERIALIZED VIEW"
		j++
	case obj == "PACKAGE" && x.peek(j).upper == "BODY":
		j++
	}
	for x.peek(j).upper == "CONCURRENTLY" || x.peek(j).keyword("ONLY") {
		j++
	}
	j = x.skipIfExists(j)
	if !x.peek(j).name() {
		return len(x.toks)
	}

	switch verb {
	case "CREATE":
		return x.create(obj, j)
	case "ALTER":
		return x.alter(obj, j)
	default:
		return x.dropList(obj, j)
	}
}

func (x *schemaExtractor) objectRef(obj string, j int) (int, int) {
	parts, k, _ := x.qualified(j)
	idx := x.addTable(TableRef{
		Name:   parts[len(parts)-1],
		Schema: strings.Join(parts[:len(parts)-1], "."),
		Object: obj,
	})
	return idx, k
}

func (x *schemaExtractor) create(obj string, j int) int {
	idx := -1
	if !(obj == "INDEX" && x.peek(j).keyword("ON")) {
		idx, j = x.objectRef(obj, j)
	}
	switch obj {
	case "TABLE":
		if x.peek(j).is("(") {
			j = x.columnDefs(j, idx)
		}
		return j
	case "INDEX":
		if !x.peek(j).keyword("ON") || !x.peek(j+1).name() {
			return len(x.toks)
		}
		table, k := x.objectRef("TABLE", j+1)
		if x.peek(k).keyword("USING") {
			k += 2
		}
		if x.peek(k).is("(") {
			k = x.ownedList(k, table)
		}
		return k
	case "VIEW", "MATERIALIZED VIEW":
		return j // the AS SELECT body is walked normally
	default:
		return len(x.toks)
	}
}

// columnDefs reads (col type ..., constraint ...) at i. The first name of
// every element that is not a table constraint is a column of owner.
func (x *schemaExtractor) columnDefs(i, owner int) int {
	depth := 0
	elemStart := false
	for j := i; j < len(x.toks); j++ {
		t := x.toks[j]
		switch {
		case t.is("("):
			depth++
			if depth == 1 {
				elemStart = true
			}
			continue
		case t.is(")"):
			depth--
			if depth == 0 {
				return j + 1
			}
			continue
		case t.is(",") && depth == 1:
			elemStart = true
			continue
		}

		if t.keyword("REFERENCES") {
			j = x.references(j+1) - 1
			elemStart = false
			continue
		}
		if depth != 1 || !elemStart {
			continue
		}
		elemStart = false
		if t.kind == tIdent && constraintWords[t.upper] {
			continue
		}
		if t.name() {
			x.cols = append(x.cols, colCand{name: t.text, owner: owner, scope: x.cur})
		}
	}
	return len(x.toks)
}

// references reads the table and optional column list after REFERENCES.
func (x *schemaExtractor) references(j int) int {
	if !x.peek(j).name() {
		return j
	}
	idx, k := x.objectRef("TABLE", j)
	if x.peek(k).is("(") {
		k = x.ownedList(k, idx)
	}
	return k
}

func (x *schemaExtractor) alter(obj string, j int) int {
	idx, j := x.objectRef(obj, j)
	if obj != "TABLE" {
		return len(x.toks)
	}

	addColumn := func(k int) int {
		if x.peek(k).is("(") {
			return x.columnDefs(k, idx)
		}
		if t := x.peek(k); t.name() && !(t.kind == tIdent && constraintWords[t.upper]) {
			x.cols = append(x.cols, colCand{name: t.text, owner: idx, scope: x.cur})
		}
		return x.nextAction(k)
	}

	for j < len(x.toks) {
		t := x.toks[j]
		switch {
		case t.keyword("ADD"), t.keyword("MODIFY"), t.upper == "CHANGE":
			k := j + 1
			if x.peek(k).keyword("COLUMN") {
				k++
			}
			j = addColumn(x.skipIfExists(k))
		case t.keyword("DROP"), t.keyword("ALTER"):
			k := j + 1
			if x.peek(k).keyword("COLUMN") {
				k++
			}
			j = addColumn(x.skipIfExists(k))
		case t.keyword("RENAME"):
			k := j + 1
			switch {
			case x.peek(k).keyword("COLUMN"):
				for _, n := range []int{k + 1, k + 3} {
					if x.peek(n).name() {
						x.cols = append(x.cols, colCand{name: x.peek(n).text, owner: idx, scope: x.cur})
					}
				}
			case x.peek(k).keyword("TO") && x.peek(k+1).name():
				x.objectRef("TABLE", k+1)
			}
			j = x.nextAction(k)
		default:
			j = x.nextAction(j)
		}
	}
	return j
}

// nextAction skips to the token after the next top-level comma, recording
// any REFERENCES target on the way.
func (x *schemaExtractor) nextAction(j int) int {
	depth := 0
	for ; j < len(x.toks); j++ {
		t := x.toks[j]
		switch {
		case t.is("("):
			depth++
		case t.is(")"):
			depth--
		case t.is(",") && depth == 0:
			return j + 1
		case t.keyword("REFERENCES"):
			j = x.references(j+1) - 1
		}
	}
	return j
}

// dropList reads name[, name...] of obj. DROP INDEX name ON table also
// records the table.
func (x *schemaExtractor) dropList(obj string, j int) int {
	for x.peek(j).name() {
		_, k := x.objectRef(obj, j)
		if obj == "INDEX" && x.peek(k).keyword("ON") && x.peek(k+1).name() {
			_, k = x.objectRef("TABLE", k+1)
		}
		if !x.peek(k).is(",") {
			break
		}
		j = k + 1
	}
	return len(x.toks)
}
