package sqltext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(res SplitResult) []string {
	out := make([]string, 0, len(res.Segments))
	for _, s := range res.Segments {
		out = append(out, s.Text)
	}
	return out
}

func TestSplit_QuotedTerminator(t *testing.T) {
	res := Split("SELECT 'a;b' FROM t;")

	assert.Equal(t, []string{"SELECT 'a;b' FROM t"}, texts(res))
	assert.True(t, res.Balanced())
}

func TestSplit_Cases(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"two statements", "SELECT 1; SELECT 2;", []string{"SELECT 1", "SELECT 2"}},
		{"no terminator", "SELECT 1", []string{"SELECT 1"}},
		{"empty segments dropped", ";;  ;SELECT 1;;", []string{"SELECT 1"}},
		{"doubled quote escape", "SELECT 'it''s;ok' FROM t; DELETE FROM t", []string{"SELECT 'it''s;ok' FROM t", "DELETE FROM t"}},
		{"double quoted identifier", `SELECT "a;b" FROM t; SELECT 2`, []string{`SELECT "a;b" FROM t`, "SELECT 2"}},
		{"backtick identifier", "SELECT `a;b` FROM t", []string{"SELECT `a;b` FROM t"}},
		{"line comment", "SELECT 1 -- not; here\n; SELECT 2", []string{"SELECT 1 -- not; here", "SELECT 2"}},
		{"block comment", "SELECT /* a; b */ 1; SELECT 2", []string{"SELECT /* a; b */ 1", "SELECT 2"}},
		{"terminator inside parens", "CALL p(1; 2); SELECT 3", []string{"CALL p(1; 2)", "SELECT 3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, texts(Split(tt.in)))
		})
	}
}

func TestSplit_Offsets(t *testing.T) {
	in := "  SELECT 1;\n  SELECT 2"
	res := Split(in)

	require.Len(t, res.Segments, 2)
	for _, seg := range res.Segments {
		assert.Equal(t, seg.Text, in[seg.Offset:seg.Offset+len(seg.Text)])
	}
	assert.Equal(t, 2, res.Segments[0].Offset)
}

func TestSplit_Unbalanced(t *testing.T) {
	tests := []struct {
		in      string
		problem string
	}{
		{"SELECT 'abc FROM t; SELECT 2", "unterminated single-quote literal"},
		{"SELECT (1 FROM t; SELECT 2", "unclosed parenthesis"},
		{"SELECT 1) FROM t", "unmatched closing parenthesis"},
		{"SELECT 1 /* open", "unterminated block comment"},
	}

	for _, tt := range tests {
		res := Split(tt.in)
		assert.False(t, res.Balanced(), tt.in)
		assert.Equal(t, tt.problem, res.Problem(), tt.in)
		assert.NotEmpty(t, res.Segments, tt.in)
	}
}

func TestSplit_OpenLineCommentIsBalanced(t *testing.T) {
	res := Split("SELECT 1 -- trailing")
	assert.True(t, res.Balanced())
	assert.Empty(t, res.Problem())
}

func TestSplit_RoundTrip(t *testing.T) {
	inputs := []string{
		"SELECT a FROM t WHERE x = 'a;b'; UPDATE t SET a = 1",
		"INSERT INTO t (a) VALUES (';'); DELETE FROM t WHERE (a = 1)",
		"SELECT 1",
	}
	for _, in := range inputs {
		first := texts(Split(in))
		second := texts(Split(strings.Join(first, ";")))
		assert.Equal(t, first, second, in)
	}
}

func TestTransitionTable(t *testing.T) {
	// quotes and comments suppress structural bytes
	for _, st := range []State{StateSingleQuote, StateDoubleQuote, StateBacktick, StateLineComment, StateBlockComment} {
		for _, c := range []class{classSemicolon, classOpenParen, classCloseParen} {
			tr := table[st][c]
			assert.Equal(t, st, tr.next, "%s/%d", st, c)
			assert.Equal(t, actNone, tr.act, "%s/%d", st, c)
		}
	}

	assert.Equal(t, actTerminate, table[StateDefault][classSemicolon].act)
	assert.Equal(t, StateDefault, table[StateLineComment][classNewline].next)
	assert.Equal(t, StateBlockComment, table[StateBlockComment][classNewline].next)
}

func TestLeadingWord(t *testing.T) {
	cases := map[string]string{
		"select * from t":         "SELECT",
		"  -- c\n/* x */ ( with": "WITH",
		"((SELECT 1))":            "SELECT",
		"123 abc":                 "",
		"":                        "",
		"Hello world":             "HELLO",
	}
	for in, want := range cases {
		assert.Equal(t, want, LeadingWord(in), in)
	}
}

func TestStartsStatement(t *testing.T) {
	assert.True(t, StartsStatement(" update t set a = 1"))
	assert.True(t, StartsStatement("/* hint */ MERGE INTO t"))
	assert.False(t, StartsStatement("Selected items"))
	assert.False(t, StartsStatement("hello world"))
}
