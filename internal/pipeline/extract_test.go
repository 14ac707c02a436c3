package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/sqlspectre/internal/source"
)

const repoJava = `class UserRepo {
    String find = "SELECT id, name " +
        "FROM users " +
        "WHERE id = ?";
    String label = "Selected users";
    void log() { logger.info("Update complete"); }
}
`

func collect(t *testing.T, e Extractor, u source.Unit) ([]Candidate, []*UnparsedRegion) {
	t.Helper()
	var cands []Candidate
	var regions []*UnparsedRegion
	for c, err := range e.Candidates(u) {
		if err != nil {
			var region *UnparsedRegion
			require.True(t, errors.As(err, &region), "unexpected error type %T", err)
			regions = append(regions, region)
			continue
		}
		cands = append(cands, c)
	}
	return cands, regions
}

func javaUnit(text string) source.Unit {
	return source.Unit{Path: "Repo.java", Language: source.LanguageJava, Text: text}
}

func TestCandidates_Concatenation(t *testing.T) {
	cands, regions := collect(t, Extractor{}, javaUnit(repoJava))

	require.Empty(t, regions)
	require.Len(t, cands, 2)

	find := cands[0]
	assert.Equal(t, "Repo.java", find.Path)
	assert.Equal(t, 2, find.Line)
	assert.Len(t, find.Fragments, 3)
	assert.Equal(t, "SELECT id, name FROM users WHERE id = ?", find.Text())
	assert.Equal(t, []int{2, 3, 4}, []int{find.Fragments[0].Line, find.Fragments[1].Line, find.Fragments[2].Line})

	// keyword-led prose is a candidate; the normalizer rejects it
	assert.Equal(t, "Update complete", cands[1].Text())
}

func TestCandidates_NoSQL(t *testing.T) {
	src := `class A {
    String greeting = "hello world";
    int count = 1 + 2;
    String selected = "Selected " + name;
}
`
	cands, regions := collect(t, Extractor{}, javaUnit(src))
	assert.Empty(t, cands)
	assert.Empty(t, regions)
}

func TestCandidates_UnknownLanguage(t *testing.T) {
	u := source.Unit{Path: "notes.txt", Text: `"SELECT * FROM t"`}
	cands, regions := collect(t, Extractor{}, u)
	assert.Empty(t, cands)
	assert.Empty(t, regions)
}

func TestCandidates_Unterminated(t *testing.T) {
	src := "String a = \"SELECT 1 FROM t;\nString b = \"SELECT x FROM y\";\n"
	cands, regions := collect(t, Extractor{}, javaUnit(src))

	require.Len(t, regions, 1)
	assert.Equal(t, 1, regions[0].Line)
	assert.Equal(t, "unterminated string literal", regions[0].Reason)

	require.Len(t, cands, 1)
	assert.Equal(t, "SELECT x FROM y", cands[0].Text())
	assert.Equal(t, 2, cands[0].Line)
}

func TestCandidates_ChainOverflow(t *testing.T) {
	src := `String q = "SELECT a " + "FROM t " + "WHERE x = 1";
String r = "SELECT 1";
`
	cands, regions := collect(t, Extractor{Limits: Limits{MaxChain: 2}}, javaUnit(src))

	require.Len(t, regions, 1)
	assert.Equal(t, 1, regions[0].Line)
	assert.Contains(t, regions[0].Reason, "exceeds 2 literals")

	require.Len(t, cands, 1)
	assert.Equal(t, "SELECT 1", cands[0].Text())
}

func TestCandidates_InlineIgnore(t *testing.T) {
	src := `// sqlspectre:ignore
String a = "SELECT * FROM secrets";
String b = "DELETE FROM t"; // sqlspectre:ignore

String c = "SELECT 1";
`
	cands, _ := collect(t, Extractor{}, javaUnit(src))
	require.Len(t, cands, 1)
	assert.Equal(t, "SELECT 1", cands[0].Text())
}

func TestCandidates_Restartable(t *testing.T) {
	seq := Extractor{}.Candidates(javaUnit(repoJava))

	var first, second []string
	for c := range seq {
		first = append(first, c.Text())
	}
	for c := range seq {
		second = append(second, c.Text())
	}
	assert.Equal(t, first, second)
}

func TestCandidates_FragmentLines(t *testing.T) {
	src := "class A {\n  String q = \"\"\"\n      SELECT a FROM t;\n      SELECT b FROM u;\n      \"\"\";\n}\n"
	cands, _ := collect(t, Extractor{}, javaUnit(src))
	require.Len(t, cands, 1)

	f := cands[0].Fragments[0]
	assert.Equal(t, 2, f.Line)
	assert.Equal(t, 3, f.ValueLine)
	assert.Equal(t, 5, f.EndLine)

	text := cands[0].Text()
	assert.Equal(t, 3, cands[0].LineAt(0))
	assert.Equal(t, 4, cands[0].LineAt(strings.Index(text, "SELECT b")))
	assert.Equal(t, cands[0].Line, cands[0].LineAt(len(text)))
}

func TestCandidates_EarlyStop(t *testing.T) {
	n := 0
	for range (Extractor{}).Candidates(javaUnit(repoJava)) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestHasInlineIgnore(t *testing.T) {
	text := "a\n// sqlspectre:ignore\nb\nc"
	assert.False(t, HasInlineIgnore(text, 0))
	assert.True(t, HasInlineIgnore(text, 3))
	assert.True(t, HasInlineIgnore(text, len("a\n// sqlspectre:ignore\n")))
	assert.False(t, HasInlineIgnore(text, len(text)-1))
	assert.False(t, HasInlineIgnore(text, len(text)+5))
}
