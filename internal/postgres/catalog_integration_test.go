//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/ppiankov/sqlspectre/internal/testutil"
)

func TestIntegration_Inspect(t *testing.T) {
	connStr, cleanup := testutil.SetupPostgres(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	insp, err := Connect(ctx, Config{URL: connStr})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer insp.Close()

	cat, err := insp.Inspect(ctx)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if cat.ServerVersion == "" {
		t.Error("server version is empty")
	}

	l := NewLookup(cat)
	for _, name := range []string{"users", "orders", "empty_table"} {
		rel, ok := l.Relation("", name)
		if !ok {
			t.Errorf("missing table %q", name)
			continue
		}
		if rel.Kind != KindTable || rel.Schema != "public" {
			t.Errorf("%s = %+v", name, rel)
		}
	}
	view, ok := l.Relation("", "active_users")
	if !ok || view.Kind != KindView {
		t.Errorf("active_users = %+v, %v", view, ok)
	}
	if audit, ok := l.Relation("app", "audit_log"); !ok || audit.Schema != "app" {
		t.Errorf("app.audit_log = %+v, %v", audit, ok)
	}

	users, _ := l.Relation("", "users")
	for _, col := range []string{"id", "name", "email", "status"} {
		if !l.HasColumn(users, col) {
			t.Errorf("users missing column %q", col)
		}
	}
	if !l.HasColumn(view, "email") {
		t.Error("view columns not listed")
	}
	if _, ok := l.Activity(users); !ok {
		t.Error("users has no activity row")
	}

	filtered := Filter(cat, []string{"app"})
	if len(filtered.Relations) != 1 || filtered.Relations[0].Name != "audit_log" {
		t.Errorf("filtered relations = %+v", filtered.Relations)
	}
}

func TestIntegration_Connect_BadPassword(t *testing.T) {
	connStr, cleanup := testutil.SetupPostgres(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bad := testutil.WithPassword(t, connStr, "wrong")
	start := time.Now()
	if _, err := Connect(ctx, Config{URL: bad}); err == nil {
		t.Fatal("expected auth error")
	}
	if elapsed := time.Since(start); elapsed >= baseDelay {
		t.Errorf("auth failure retried, took %v", elapsed)
	}
}
