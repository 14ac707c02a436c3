package postgres

import "strings"

// ResolveSchemas normalizes schema filter values. Empty input, "all" or
// "*" mean every non-system schema and yield nil.
func ResolveSchemas(schemas []string) []string {
	var out []string
	for _, s := range schemas {
		s = strings.TrimSpace(s)
		switch strings.ToLower(s) {
		case "all", "*":
			return nil
		case "":
			continue
		}
		out = append(out, s)
	}
	return out
}

// Filter returns a catalog holding only objects in the given schemas. A nil
// or empty schema list returns cat itself.
func Filter(cat *Catalog, schemas []string) *Catalog {
	if len(schemas) == 0 {
		return cat
	}
	include := schemaSet(schemas)
	return subset(cat, func(schema string) bool { return include[strings.ToLower(schema)] })
}

// Exclude returns a catalog without objects in the given schemas.
func Exclude(cat *Catalog, schemas []string) *Catalog {
	if len(schemas) == 0 {
		return cat
	}
	drop := schemaSet(schemas)
	return subset(cat, func(schema string) bool { return !drop[strings.ToLower(schema)] })
}

func schemaSet(schemas []string) map[string]bool {
	set := make(map[string]bool, len(schemas))
	for _, s := range schemas {
		set[strings.ToLower(strings.TrimSpace(s))] = true
	}
	return set
}

func subset(cat *Catalog, keep func(schema string) bool) *Catalog {
	out := &Catalog{ServerVersion: cat.ServerVersion}
	for _, r := range cat.Relations {
		if keep(r.Schema) {
			out.Relations = append(out.Relations, r)
		}
	}
	for _, c := range cat.Columns {
		if keep(c.Schema) {
			out.Columns = append(out.Columns, c)
		}
	}
	for _, a := range cat.Activity {
		if keep(a.Schema) {
			out.Activity = append(out.Activity, a)
		}
	}
	return out
}
