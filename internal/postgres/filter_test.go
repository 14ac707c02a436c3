package postgres

import (
	"reflect"
	"testing"
)

func TestResolveSchemas(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, nil},
		{"all", []string{"all"}, nil},
		{"all upper", []string{"public", "ALL"}, nil},
		{"star", []string{" * "}, nil},
		{"specific", []string{"public", "reporting"}, []string{"public", "reporting"}},
		{"trims", []string{" public ", " app "}, []string{"public", "app"}},
		{"skips empty", []string{"public", "", " ", "app"}, []string{"public", "app"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveSchemas(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ResolveSchemas(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func testCatalog() *Catalog {
	return &Catalog{
		ServerVersion: "16.2",
		Relations: []Relation{
			{Schema: "app", Name: "orders", Kind: KindTable},
			{Schema: "public", Name: "users", Kind: KindTable},
			{Schema: "reporting", Name: "users", Kind: KindView},
		},
		Columns: []Column{
			{Schema: "app", Table: "orders", Name: "id"},
			{Schema: "app", Table: "orders", Name: "user_id"},
			{Schema: "public", Table: "users", Name: "id"},
			{Schema: "public", Table: "users", Name: "email"},
			{Schema: "reporting", Table: "users", Name: "total"},
		},
		Activity: []Activity{
			{Schema: "app", Name: "orders", SeqScan: 2, IdxScan: 5},
			{Schema: "public", Name: "users"},
		},
	}
}

func TestFilter_NoSchemas(t *testing.T) {
	cat := testCatalog()
	if got := Filter(cat, nil); got != cat {
		t.Error("expected same pointer for nil schemas")
	}
	if got := Filter(cat, []string{}); got != cat {
		t.Error("expected same pointer for empty schemas")
	}
}

func TestFilter_SingleSchema(t *testing.T) {
	got := Filter(testCatalog(), []string{"APP"})

	if len(got.Relations) != 1 || got.Relations[0].Name != "orders" {
		t.Errorf("relations = %+v", got.Relations)
	}
	if len(got.Columns) != 2 {
		t.Errorf("columns = %+v", got.Columns)
	}
	if len(got.Activity) != 1 {
		t.Errorf("activity = %+v", got.Activity)
	}
	if got.ServerVersion != "16.2" {
		t.Errorf("server version = %q", got.ServerVersion)
	}
}

func TestFilter_UnknownSchema(t *testing.T) {
	got := Filter(testCatalog(), []string{"nope"})
	if len(got.Relations)+len(got.Columns)+len(got.Activity) != 0 {
		t.Errorf("expected empty catalog, got %+v", got)
	}
}

func TestExclude(t *testing.T) {
	cat := testCatalog()
	if got := Exclude(cat, nil); got != cat {
		t.Error("expected same pointer for nil schemas")
	}

	got := Exclude(cat, []string{" Reporting ", "app"})
	if len(got.Relations) != 1 || got.Relations[0].QualifiedName() != "public.users" {
		t.Errorf("relations = %+v", got.Relations)
	}
	if len(got.Columns) != 2 {
		t.Errorf("columns = %+v", got.Columns)
	}
	if len(got.Activity) != 1 || got.Activity[0].Schema != "public" {
		t.Errorf("activity = %+v", got.Activity)
	}
}
