// Package lexer finds string literals and concatenation operators in source
// files. It knows just enough of each host language to skip comments and
// character literals; everything else is reported as opaque tokens.
package lexer

import (
	"iter"
	"sort"
	"strings"

	"github.com/ppiankov/sqlspectre/internal/source"
)

// Kind classifies a token.
type Kind uint8

const (
	// KindOther is any code that is neither a string nor a concatenation.
	KindOther Kind = iota
	// KindString is a string literal. Value holds its decoded content.
	KindString
	// KindConcat is a string concatenation operator.
	KindConcat
	// KindUnterminated is a literal that never closes.
	KindUnterminated
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindConcat:
		return "concat"
	case KindUnterminated:
		return "unterminated"
	default:
		return "other"
	}
}

// Token is one lexical unit. Offset and Length locate the raw token in the
// file; Line is 1-based.
type Token struct {
	Kind   Kind
	Value  string
	Offset int
	Length int
	Line   int
}

// Lexer turns file text into tokens.
type Lexer interface {
	Language() source.Language
	Tokens(text string) iter.Seq[Token]
}

// For returns the lexer for lang.
func For(lang source.Language) (Lexer, bool) {
	switch lang {
	case source.LanguageJava:
		return Java{}, true
	case source.LanguageCSharp:
		return CSharp{}, true
	case source.LanguageVB:
		return VB{}, true
	case source.LanguageXML:
		return XML{}, true
	case source.LanguageSQL:
		return SQL{}, true
	default:
		return nil, false
	}
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex []int

func newLineIndex(text string) lineIndex {
	idx := lineIndex{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (l lineIndex) line(offset int) int {
	return sort.SearchInts(l, offset+1)
}

// cursor is a byte cursor over source text shared by the code lexers.
type cursor struct {
	text  string
	pos   int
	lines lineIndex
}

func newCursor(text string) *cursor {
	return &cursor{text: text, lines: newLineIndex(text)}
}

func (c *cursor) eof() bool { return c.pos >= len(c.text) }

func (c *cursor) peek(n int) byte {
	if c.pos+n < len(c.text) {
		return c.text[c.pos+n]
	}
	return 0
}

func (c *cursor) hasPrefix(s string) bool {
	return strings.HasPrefix(c.text[c.pos:], s)
}

func (c *cursor) token(kind Kind, value string, start int) Token {
	return Token{
		Kind:   kind,
		Value:  value,
		Offset: start,
		Length: c.pos - start,
		Line:   c.lines.line(start),
	}
}

// skipToEOL moves to the next newline without consuming it.
func (c *cursor) skipToEOL() {
	if nl := strings.IndexByte(c.text[c.pos:], '\n'); nl >= 0 {
		c.pos += nl
		return
	}
	c.pos = len(c.text)
}

// skipPast moves past the next occurrence of end, or to EOF.
func (c *cursor) skipPast(end string) {
	if i := strings.Index(c.text[c.pos:], end); i >= 0 {
		c.pos += i + len(end)
		return
	}
	c.pos = len(c.text)
}

// skipWord consumes a run of identifier or number bytes, or a single other byte.
func (c *cursor) skipWord() {
	if c.eof() {
		return
	}
	if !isWordByte(c.text[c.pos]) {
		c.pos++
		return
	}
	for !c.eof() && isWordByte(c.text[c.pos]) {
		c.pos++
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= 0x80
}
