package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/sqlspectre/internal/aggregate"
	"github.com/ppiankov/sqlspectre/internal/pipeline"
	"github.com/ppiankov/sqlspectre/internal/source"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, dir, "User.java", `package app;

@Entity
@Table(name = "users", schema = "app")
public class User {
    static final String FIND = "SELECT id, email FROM users WHERE id = ?";
}
`)
	writeFile(t, dir, "Dao.cs", `[Table("orders")]
public class Order {
    const string Sql = @"UPDATE orders
        SET status = @status
        WHERE id = @id";
}
`)
	writeFile(t, dir, "Mapper.xml", `<mapper namespace="app.OrderMapper">
  <select id="byUser" resultType="Order">
    SELECT * FROM orders WHERE user_id = #{userId}
  </select>
</mapper>
`)
	writeFile(t, dir, "db/seed.sql", "CREATE TABLE payments (id INT);\nINSERT INTO payments (id) VALUES (1);\n")
	writeFile(t, dir, "README.md", "SELECT * FROM nothing")
	writeFile(t, dir, "target/Generated.java", `String q = "DELETE FROM generated";`)
	return dir
}

func TestScan_MultiLanguage(t *testing.T) {
	dir := writeRepo(t)
	agg := aggregate.New()

	stats, err := Scan(context.Background(), dir, Options{}, agg)
	if err != nil {
		t.Fatal(err)
	}

	if stats.FilesScanned != 4 {
		t.Errorf("FilesScanned = %d, want 4", stats.FilesScanned)
	}
	if stats.FilesSkipped != 1 {
		t.Errorf("FilesSkipped = %d, want 1", stats.FilesSkipped)
	}

	rep := agg.Snapshot()
	want := map[string][]pipeline.OperationKind{
		"User.java":   {pipeline.KindSelect},
		"Dao.cs":      {pipeline.KindUpdate},
		"Mapper.xml":  {pipeline.KindSelect},
		"db/seed.sql": {pipeline.KindCreate, pipeline.KindInsert},
	}
	if len(rep.Files) != len(want) {
		t.Fatalf("files = %v, want %d", rep.Paths(), len(want))
	}
	for path, kinds := range want {
		fr, ok := rep.Files[path]
		if !ok {
			t.Errorf("missing %s", path)
			continue
		}
		if len(fr.Statements) != len(kinds) {
			t.Errorf("%s: %d statements, want %d", path, len(fr.Statements), len(kinds))
			continue
		}
		for i, k := range kinds {
			if fr.Statements[i].Kind != k {
				t.Errorf("%s[%d]: kind %s, want %s", path, i, fr.Statements[i].Kind, k)
			}
		}
	}

	if got := rep.Files["Mapper.xml"].Statements[0].Text; got != "SELECT * FROM orders WHERE user_id = ?" {
		t.Errorf("mapper statement = %q", got)
	}
	if got := rep.Files["Dao.cs"].Statements[0].Line; got != 3 {
		t.Errorf("Dao.cs line = %d, want 3", got)
	}

	userMappings := rep.Files["User.java"].Mappings
	if len(userMappings) != 1 || userMappings[0] != (pipeline.Mapping{Table: "users", Schema: "app", Line: 4, Pattern: "jpa"}) {
		t.Errorf("User.java mappings = %+v", userMappings)
	}
	orderMappings := rep.Files["Dao.cs"].Mappings
	if len(orderMappings) != 1 || orderMappings[0].Table != "orders" || orderMappings[0].Pattern != "entity-framework" {
		t.Errorf("Dao.cs mappings = %+v", orderMappings)
	}
}

func TestScan_SkipDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/A.java", `String q = "SELECT a FROM t";`)
	writeFile(t, dir, "legacy/B.java", `String q = "SELECT b FROM t";`)
	writeFile(t, dir, "node_modules/C.java", `String q = "SELECT c FROM t";`)

	agg := aggregate.New()
	if _, err := Scan(context.Background(), dir, Options{SkipDirs: []string{"legacy"}}, agg); err != nil {
		t.Fatal(err)
	}
	rep := agg.Snapshot()
	if paths := rep.Paths(); len(paths) != 1 || paths[0] != "src/A.java" {
		t.Errorf("paths = %v, want [src/A.java]", paths)
	}
}

func TestScan_ExcludeFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/Repo.java", `String q = "SELECT a FROM t";`)
	writeFile(t, dir, "src/RepoTest.java", `String q = "SELECT b FROM t";`)
	writeFile(t, dir, "gen/Db.cs", `var q = "SELECT c FROM t";`)

	agg := aggregate.New()
	stats, err := Scan(context.Background(), dir, Options{ExcludeFiles: []string{"*Test.java", "gen/*"}}, agg)
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesScanned != 1 || stats.FilesSkipped != 2 {
		t.Errorf("scanned=%d skipped=%d, want 1 and 2", stats.FilesScanned, stats.FilesSkipped)
	}
}

func TestScan_ExtensionOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Query.groovy", `def q = "SELECT a FROM t"`)
	writeFile(t, dir, "Repo.java", `String q = "SELECT b FROM t";`)

	agg := aggregate.New()
	opts := Options{Extensions: map[string]source.Language{".groovy": source.LanguageJava}}
	if _, err := Scan(context.Background(), dir, opts, agg); err != nil {
		t.Fatal(err)
	}
	if paths := agg.Snapshot().Paths(); len(paths) != 1 || paths[0] != "Query.groovy" {
		t.Errorf("paths = %v, want [Query.groovy]", paths)
	}
}

func TestScan_Unreadable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Blob.java", "\x00\x01binary\x00")
	writeFile(t, dir, "Good.java", `String q = "SELECT a FROM t";`)

	agg := aggregate.New()
	stats, err := Scan(context.Background(), dir, Options{}, agg)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats.Unreadable) != 1 || stats.Unreadable[0].Path != "Blob.java" {
		t.Errorf("unreadable = %+v", stats.Unreadable)
	}
	if stats.FilesScanned != 1 {
		t.Errorf("FilesScanned = %d, want 1", stats.FilesScanned)
	}
}

func TestScan_UnterminatedLiteralContinues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "A.java", "String a = \"SELECT * FROM broken\nString b = \"SELECT x FROM ok\";\n")
	writeFile(t, dir, "B.java", `String q = "DELETE FROM t WHERE id = ?";`)

	agg := aggregate.New()
	stats, err := Scan(context.Background(), dir, Options{}, agg)
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesScanned != 2 {
		t.Fatalf("FilesScanned = %d, want 2", stats.FilesScanned)
	}
	rep := agg.Snapshot()
	if n := len(rep.Files["A.java"].Unparsed); n != 1 {
		t.Errorf("A.java unparsed = %d, want 1", n)
	}
	if n := len(rep.Files["A.java"].Statements); n != 1 {
		t.Errorf("A.java statements = %d, want 1", n)
	}
	if n := len(rep.Files["B.java"].Statements); n != 1 {
		t.Errorf("B.java statements = %d, want 1", n)
	}
}

func TestScan_TooLarge(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Big.java", `String q = "SELECT a FROM some_long_table_name";`)

	agg := aggregate.New()
	stats, err := Scan(context.Background(), dir, Options{MaxFileBytes: 10}, agg)
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesTooLarge != 1 || stats.FilesScanned != 0 {
		t.Errorf("tooLarge=%d scanned=%d", stats.FilesTooLarge, stats.FilesScanned)
	}
	if agg.Len() != 0 {
		t.Errorf("aggregator has %d files", agg.Len())
	}
}

func TestScan_CacheRebindsPath(t *testing.T) {
	dir := t.TempDir()
	content := "String a = \"SELECT * FROM broken\nString q = \"SELECT a FROM t\";\n"
	writeFile(t, dir, "a/Same.java", content)
	writeFile(t, dir, "b/Same.java", content)

	agg := aggregate.New()
	stats, err := Scan(context.Background(), dir, Options{Workers: 1}, agg)
	if err != nil {
		t.Fatal(err)
	}
	if stats.CacheHits != 1 {
		t.Errorf("CacheHits = %d, want 1", stats.CacheHits)
	}
	rep := agg.Snapshot()
	for _, p := range []string{"a/Same.java", "b/Same.java"} {
		fr := rep.Files[p]
		if len(fr.Statements) != 1 {
			t.Errorf("%s: %d statements", p, len(fr.Statements))
		}
		if len(fr.Unparsed) != 1 || fr.Unparsed[0].Path != p {
			t.Errorf("%s: unparsed = %+v", p, fr.Unparsed)
		}
	}
}

func TestScan_CacheDisabled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a/Same.java", `String q = "SELECT a FROM t";`)
	writeFile(t, dir, "b/Same.java", `String q = "SELECT a FROM t";`)

	stats, err := Scan(context.Background(), dir, Options{Workers: 1, CacheSize: -1}, aggregate.New())
	if err != nil {
		t.Fatal(err)
	}
	if stats.CacheHits != 0 {
		t.Errorf("CacheHits = %d, want 0", stats.CacheHits)
	}
}

func TestScan_Cancelled(t *testing.T) {
	dir := writeRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := aggregate.New()
	_, err := Scan(ctx, dir, Options{}, agg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if agg.Len() != 0 {
		t.Errorf("aggregator has %d files after cancelled walk", agg.Len())
	}
	// a partial aggregator is still usable
	if rep := agg.Snapshot(); rep.Summary.Files != 0 {
		t.Errorf("summary files = %d", rep.Summary.Files)
	}
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := Scan(context.Background(), filepath.Join(t.TempDir(), "nope"), Options{}, aggregate.New())
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
		ok   bool
	}{
		{"plain", []byte("SELECT 1"), "SELECT 1", true},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "SELECT 1"...), "SELECT 1", true},
		{"utf16 le", []byte{0xFF, 0xFE, 'S', 0, 'Q', 0, 'L', 0}, "SQL", true},
		{"utf16 be", []byte{0xFE, 0xFF, 0, 'S', 0, 'Q', 0, 'L'}, "SQL", true},
		{"binary", []byte{'a', 0, 'b'}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := decode(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("decode = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}
