package scanner

import (
	"regexp"
	"strings"

	"github.com/ppiankov/sqlspectre/internal/pipeline"
)

type pattern struct {
	re         *regexp.Regexp
	tableGroup int
	patType    PatternType
	// schemaGroup is set when the pattern captures the schema separately
	schemaGroup int
	// attrGroup captures an annotation argument list holding name= and schema=
	attrGroup int
}

// Compiled ORM mapping patterns. Table names may be schema-qualified.
var patterns = []pattern{
	// JPA: @Table(name = "users", schema = "app"), join and collection tables
	{re: regexp.MustCompile(`@(?:Table|JoinTable|CollectionTable|SecondaryTable)\s*\(([^)]*)\)`),
		attrGroup: 1, patType: PatternJPA},

	// Hibernate: <class name="User" table="users" schema="app">
	{re: regexp.MustCompile(`<(?:class|joined-subclass|union-subclass|set|bag|list|map)\b([^>]*)>`),
		attrGroup: 1, patType: PatternHibernate},

	// Entity Framework: [Table("users", Schema = "app")]
	{re: regexp.MustCompile(`\[Table\(\s*"([\w.]+)"(?:\s*,\s*Schema\s*=\s*"(\w+)")?`),
		tableGroup: 1, schemaGroup: 2, patType: PatternEF},
	// VB attribute: <Table("users")>
	{re: regexp.MustCompile(`<Table\(\s*"([\w.]+)"`),
		tableGroup: 1, patType: PatternEF},
	// Entity Framework fluent: .ToTable("users", "app")
	{re: regexp.MustCompile(`\.ToTable\(\s*"([\w.]+)"(?:\s*,\s*"(\w+)")?`),
		tableGroup: 1, schemaGroup: 2, patType: PatternEF},

	// LINQ to SQL: [Table(Name = "dbo.Users")], <Table(Name:="dbo.Users")>
	{re: regexp.MustCompile(`[\[<]Table\(\s*Name\s*:?=\s*"([\w.]+)"`),
		tableGroup: 1, patType: PatternLinqToSQL},
}

// attrRe matches key="value" and key = "value" pairs.
var attrRe = regexp.MustCompile(`(\w+)\s*=\s*"([^"]*)"`)

// SQL keywords that should not be treated as table names.
var sqlKeywords = map[string]bool{
	"select": true, "from": true, "where": true, "and": true, "or": true,
	"not": true, "in": true, "is": true, "null": true, "as": true,
	"on": true, "set": true, "values": true, "into": true, "join": true,
	"table": true, "index": true, "create": true, "alter": true, "drop": true,
	"insert": true, "update": true, "delete": true, "with": true,
	"true": true, "false": true,
}

// FindMappings extracts ORM table mappings from source text.
func FindMappings(text string) []pipeline.Mapping {
	if !strings.Contains(text, "Table") && !strings.Contains(text, "table") {
		return nil
	}

	var out []pipeline.Mapping
	lineNum := 0
	for line := range strings.Lines(text) {
		lineNum++
		for _, m := range ScanLine(line) {
			m.Line = lineNum
			out = append(out, m)
		}
	}
	return out
}

// ScanLine extracts ORM table mappings from a single line of code. The
// returned mappings have no line number.
func ScanLine(line string) []pipeline.Mapping {
	var matches []pipeline.Mapping
	seen := make(map[string]bool)

	for _, p := range patterns {
		for _, m := range p.re.FindAllStringSubmatch(line, -1) {
			var table, schema string
			switch {
			case p.attrGroup > 0:
				table, schema = tableAttrs(m[p.attrGroup], p.patType)
			default:
				table = m[p.tableGroup]
				if p.schemaGroup > 0 && p.schemaGroup < len(m) {
					schema = m[p.schemaGroup]
				}
			}
			if i := strings.LastIndexByte(table, '.'); i >= 0 {
				if schema == "" {
					schema = table[:i]
				}
				table = table[i+1:]
			}
			if !isValidTableName(table) {
				continue
			}

			key := strings.ToLower(schema + "." + table)
			if seen[key] {
				continue
			}
			seen[key] = true

			matches = append(matches, pipeline.Mapping{
				Table:   table,
				Schema:  schema,
				Pattern: string(p.patType),
			})
		}
	}

	return matches
}

// tableAttrs reads the table and schema from an attribute list. JPA names
// the table with name=, Hibernate mappings with table=. The first
// occurrence wins; later ones belong to nested annotations.
func tableAttrs(attrs string, pt PatternType) (table, schema string) {
	key := "table"
	if pt == PatternJPA {
		key = "name"
	}
	for _, kv := range attrRe.FindAllStringSubmatch(attrs, -1) {
		switch {
		case kv[1] == key && table == "":
			table = kv[2]
		case kv[1] == "schema" && schema == "":
			schema = kv[2]
		}
	}
	return table, schema
}

func isValidTableName(name string) bool {
	if len(name) < 2 || len(name) > 120 {
		return false
	}
	if sqlKeywords[strings.ToLower(name)] {
		return false
	}
	return true
}
