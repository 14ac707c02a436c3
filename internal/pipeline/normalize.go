package pipeline

import (
	"regexp"
	"slices"
	"strings"

	"github.com/ppiankov/sqlspectre/internal/sqltext"
)

// Normalize cleans a candidate into single-line SQL and verifies that it is
// plausibly a statement. Candidates that fail verification are noise.
func Normalize(c Candidate) (Normalized, bool) {
	text, dynamic := normalizeText(c.Text())
	if !Valid(text) {
		return Normalized{}, false
	}
	return Normalized{
		Text:    text,
		Path:    c.Path,
		Offset:  c.Offset,
		Line:    c.Line,
		Dynamic: dynamic,
		Lines:   statementLines(c),
	}, true
}

// statementLines maps each statement of a multi-statement candidate to the
// source line it starts on. Comment-only segments are skipped the same way
// normalization drops them. It returns nil for a single statement or for text
// that does not split cleanly.
func statementLines(c Candidate) []int {
	text := c.Text()
	if !strings.ContainsRune(text, ';') {
		return nil
	}
	split := sqltext.Split(text)
	if !split.Balanced() {
		return nil
	}
	var lines []int
	for _, seg := range split.Segments {
		skip := sqltext.SkipTrivia(seg.Text)
		if skip == len(seg.Text) {
			continue
		}
		lines = append(lines, c.LineAt(seg.Offset+skip))
	}
	if len(lines) < 2 {
		return nil
	}
	return lines
}

// NormalizeText strips comments, rewrites placeholders to '?' and collapses
// whitespace outside quotes. NormalizeText(NormalizeText(s)) == NormalizeText(s).
func NormalizeText(s string) string {
	text, _ := normalizeText(s)
	return text
}

// Whitespace is collapsed first so placeholders that span lines, such as
// #{id,\n jdbcType=INTEGER}, are rewritten in the same pass.
func normalizeText(s string) (string, bool) {
	s = collapseSpace(stripComments(s))
	dynamic := false
	for {
		next, d := rewritePlaceholders(s)
		dynamic = dynamic || d
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(s), dynamic
}

// stripComments replaces each comment with one space.
func stripComments(s string) string {
	if !strings.Contains(s, "--") && !strings.Contains(s, "/*") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inComment := false
	for step := range sqltext.Steps(s) {
		if step.From.InComment() || step.To.InComment() {
			if !inComment {
				b.WriteByte(' ')
			}
			inComment = true
			continue
		}
		inComment = false
		b.WriteString(s[step.Start:step.End])
	}
	return b.String()
}

// unquotedMask marks the bytes of s that are outside quotes and comments.
func unquotedMask(s string) []bool {
	mask := make([]bool, len(s))
	for step := range sqltext.Steps(s) {
		if step.From == sqltext.StateDefault && step.To == sqltext.StateDefault {
			for i := step.Start; i < step.End; i++ {
				mask[i] = true
			}
		}
	}
	return mask
}

// rewritePlaceholders turns ${x} and #{x} (MyBatis), {x} (interpolation
// holes) into '?'. JDBC escapes such as {call p(?)} and {fn now()} are kept.
// The bool result reports whether text substitution was found.
func rewritePlaceholders(s string) (string, bool) {
	if !strings.ContainsRune(s, '{') {
		return s, false
	}
	mask := unquotedMask(s)
	var b strings.Builder
	b.Grow(len(s))
	dynamic := false

	for i := 0; i < len(s); i++ {
		if !mask[i] {
			b.WriteByte(s[i])
			continue
		}
		switch {
		case (s[i] == '$' || s[i] == '#') && i+1 < len(s) && s[i+1] == '{':
			if end := placeholderEnd(s, mask, i+2, false); end > 0 {
				dynamic = dynamic || s[i] == '$'
				b.WriteByte('?')
				i = end
				continue
			}
		case s[i] == '{':
			if end := placeholderEnd(s, mask, i+1, true); end > 0 {
				dynamic = true
				b.WriteByte('?')
				i = end
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String(), dynamic
}

// placeholderEnd returns the index of the closing '}' for a placeholder whose
// body starts at from, or -1. Bare holes must be a simple member path or '?'.
func placeholderEnd(s string, mask []bool, from int, bare bool) int {
	for j := from; j < len(s); j++ {
		if !mask[j] || s[j] == '\n' || s[j] == '{' {
			return -1
		}
		if s[j] == '}' {
			if j == from {
				return -1
			}
			if bare && !simpleHole(s[from:j]) {
				return -1
			}
			return j
		}
	}
	return -1
}

func simpleHole(body string) bool {
	if body == "?" {
		return true
	}
	for i := 0; i < len(body); i++ {
		c := body[i]
		if !isIdentByte(c) && c != '.' {
			return false
		}
	}
	return !jdbcEscape[strings.ToLower(body)]
}

// jdbcEscape are single-word JDBC escape bodies that are not placeholders.
var jdbcEscape = map[string]bool{"call": true, "fn": true, "oj": true, "escape": true}

// collapseSpace squeezes whitespace runs outside quotes into one space.
func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for step := range sqltext.Steps(s) {
		if step.From == sqltext.StateDefault && step.End-step.Start == 1 && isSpaceByte(s[step.Start]) {
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pending = false
		b.WriteString(s[step.Start:step.End])
	}
	return b.String()
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

// sentenceRe catches prose such as "Select a file from the list."
var sentenceRe = regexp.MustCompile(`[A-Za-z][.!]$`)

var ddlObjects = map[string]bool{
	"TABLE": true, "VIEW": true, "INDEX": true, "SEQUENCE": true, "PROCEDURE": true,
	"FUNCTION": true, "TRIGGER": true, "SCHEMA": true, "DATABASE": true, "TYPE": true,
	"SYNONYM": true, "PACKAGE": true, "USER": true, "ROLE": true, "MATERIALIZED": true,
	"CONSTRAINT": true, "TABLESPACE": true, "DOMAIN": true, "EXTENSION": true,
}

// Valid reports whether normalized text opens with a statement keyword and
// carries the clause that keyword requires.
func Valid(text string) bool {
	first := sqltext.LeadingWord(text)
	if !sqltext.IsStatementKeyword(first) {
		return false
	}
	words := upperWords(text)
	if len(words) < 2 {
		return false
	}

	switch first {
	case "SELECT":
		if slices.Contains(words, "FROM") {
			return !sentenceRe.MatchString(text)
		}
		return selectExpression(text)
	case "UPDATE":
		return slices.Contains(words, "SET")
	case "INSERT":
		return slices.Contains(words, "INTO") || slices.Contains(words, "VALUES")
	case "DELETE":
		return slices.Contains(words, "FROM") || slices.Contains(words, "WHERE")
	case "CREATE", "ALTER", "DROP":
		for _, w := range words[1:] {
			if ddlObjects[w] {
				return true
			}
		}
		return false
	case "WITH":
		return slices.Contains(words, "AS")
	case "MERGE":
		return slices.Contains(words, "INTO") || slices.Contains(words, "USING")
	case "GRANT", "REVOKE":
		return slices.Contains(words, "ON") || slices.Contains(words, "TO") || slices.Contains(words, "FROM")
	default:
		return true
	}
}

// selectExpressionRe matches FROM-less selects of a literal, variable,
// star or function call: SELECT 1, SELECT @@VERSION, SELECT now().
var selectExpressionRe = regexp.MustCompile(`(?i)^\W*SELECT\s+(?:DISTINCT\s+)?(?:[0-9'*?:@(-]|[A-Za-z_][\w.]*\s*\()`)

func selectExpression(text string) bool {
	return selectExpressionRe.MatchString(text)
}

// upperWords returns the upper-cased words of text outside quotes.
func upperWords(text string) []string {
	mask := unquotedMask(text)
	var words []string
	for i := 0; i < len(text); {
		if !mask[i] || !isIdentByte(text[i]) {
			i++
			continue
		}
		j := i
		for j < len(text) && mask[j] && isIdentByte(text[j]) {
			j++
		}
		words = append(words, strings.ToUpper(text[i:j]))
		i = j
	}
	return words
}
