package analyzer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/sqlspectre/internal/aggregate"
	"github.com/ppiankov/sqlspectre/internal/pipeline"
	"github.com/ppiankov/sqlspectre/internal/postgres"
)

// codeRef is one table named by code, with its first location.
type codeRef struct {
	schema, name string
	file         string
	line         int
	count        int
}

// checked reports whether a table reference should exist in the catalog.
// Dropped objects and non-relation DDL targets (indexes, sequences) are
// not expected to.
func checked(kind pipeline.OperationKind, t pipeline.TableRef) bool {
	if kind == pipeline.KindDrop {
		return false
	}
	switch t.Object {
	case "", "TABLE", "VIEW":
		return true
	}
	return false
}

// collectRefs gathers table references from statements and ORM mappings
// in report order.
func collectRefs(rep aggregate.Report) []*codeRef {
	byKey := map[string]*codeRef{}
	var order []*codeRef
	add := func(schema, name, file string, line int) {
		key := strings.ToLower(schema) + "." + strings.ToLower(name)
		if r, ok := byKey[key]; ok {
			r.count++
			return
		}
		r := &codeRef{schema: schema, name: name, file: file, line: line, count: 1}
		byKey[key] = r
		order = append(order, r)
	}

	for _, path := range rep.Paths() {
		fr := rep.Files[path]
		for _, res := range fr.Statements {
			for _, t := range res.Tables {
				if checked(res.Kind, t) {
					add(t.Schema, t.Name, path, res.Line)
				}
			}
		}
		for _, m := range fr.Mappings {
			add(m.Schema, m.Table, path, m.Line)
		}
	}
	return order
}

// Diff compares the tables and columns code references with a live
// catalog.
func Diff(rep aggregate.Report, cat *postgres.Catalog) []Finding {
	lookup := postgres.NewLookup(cat)
	var findings []Finding

	referenced := map[string]bool{}
	for _, ref := range collectRefs(rep) {
		display := ref.name
		if ref.schema != "" {
			display = ref.schema + "." + ref.name
		}
		detail := map[string]string{"references": strconv.Itoa(ref.count)}

		rel, ok := lookup.Relation(ref.schema, ref.name)
		if !ok {
			findings = append(findings, Finding{
				Type:     FindingMissingTable,
				Severity: SeverityHigh,
				File:     ref.file,
				Line:     ref.line,
				Schema:   ref.schema,
				Table:    ref.name,
				Message:  fmt.Sprintf("table %q referenced in code but does not exist in database", display),
				Detail:   detail,
			})
			continue
		}
		referenced[rel.QualifiedName()] = true
		detail["kind"] = rel.Kind
		findings = append(findings, Finding{
			Type:     FindingCodeMatch,
			Severity: SeverityInfo,
			File:     ref.file,
			Line:     ref.line,
			Schema:   rel.Schema,
			Table:    rel.Name,
			Message:  fmt.Sprintf("%s %q exists in database and is referenced in code", rel.Kind, rel.QualifiedName()),
			Detail:   detail,
		})
	}

	findings = append(findings, missingColumns(rep, lookup)...)

	for _, rel := range cat.Relations {
		if rel.Kind != postgres.KindTable || referenced[rel.QualifiedName()] {
			continue
		}
		act, _ := lookup.Activity(rel)
		if act.Scans() > 0 {
			continue
		}
		findings = append(findings, Finding{
			Type:     FindingUnreferencedTable,
			Severity: SeverityLow,
			Schema:   rel.Schema,
			Table:    rel.Name,
			Message:  fmt.Sprintf("table %q exists in database with no activity and is not referenced in code", rel.QualifiedName()),
		})
	}

	Sort(findings)
	return findings
}

// missingColumns reports resolved column references absent from their
// table. Columns of tables missing from the catalog are left to
// MISSING_TABLE.
func missingColumns(rep aggregate.Report, lookup *postgres.Lookup) []Finding {
	var out []Finding
	seen := map[string]bool{}
	for path, res := range rep.Statements() {
		if res.Kind == pipeline.KindDrop {
			continue
		}
		for _, c := range res.Columns {
			if c.Ambiguous || c.Table == "" || c.Name == "*" {
				continue
			}
			schema := ""
			for _, t := range res.Tables {
				if strings.EqualFold(t.Name, c.Table) {
					schema = t.Schema
					break
				}
			}
			rel, ok := lookup.Relation(schema, c.Table)
			if !ok || lookup.HasColumn(rel, c.Name) {
				continue
			}
			key := strings.ToLower(rel.QualifiedName() + "." + c.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Finding{
				Type:     FindingMissingColumn,
				Severity: SeverityMedium,
				File:     path,
				Line:     res.Line,
				Schema:   rel.Schema,
				Table:    rel.Name,
				Column:   c.Name,
				Message:  fmt.Sprintf("column %q referenced in code but does not exist in %s %q", c.Name, rel.Kind, rel.QualifiedName()),
				Detail:   map[string]string{"statement": excerpt(res.Text)},
			})
		}
	}
	return out
}
