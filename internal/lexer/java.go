package lexer

import (
	"iter"
	"strings"

	"github.com/ppiankov/sqlspectre/internal/source"
)

// Java lexes Java and JSP sources: "..." strings, """ text blocks, '+'.
type Java struct{}

func (Java) Language() source.Language { return source.LanguageJava }

func (Java) Tokens(text string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		c := newCursor(text)
		for !c.eof() {
			start := c.pos
			ch := c.text[c.pos]

			var tok Token
			switch {
			case isSpace(ch):
				c.pos++
				continue
			case c.hasPrefix("//"):
				c.skipToEOL()
				continue
			case c.hasPrefix("/*"):
				c.pos += 2
				c.skipPast("*/")
				continue
			case c.hasPrefix(`"""`):
				tok = c.javaTextBlock(start)
			case ch == '"':
				c.pos++
				raw, ok := c.scanEscaped('"', false)
				if !ok {
					tok = c.token(KindUnterminated, raw, start)
				} else {
					tok = c.token(KindString, unescape(raw), start)
				}
			case ch == '\'':
				c.pos++
				c.scanEscaped('\'', false)
				tok = c.token(KindOther, "", start)
			case ch == '+':
				tok = c.plus(start)
			default:
				c.skipWord()
				tok = c.token(KindOther, "", start)
			}

			if !yield(tok) {
				return
			}
		}
	}
}

// plus lexes '+' as concatenation unless it is '++' or '+='.
func (c *cursor) plus(start int) Token {
	if n := c.peek(1); n == '+' || n == '=' {
		c.pos += 2
		return c.token(KindOther, "", start)
	}
	c.pos++
	return c.token(KindConcat, "", start)
}

func (c *cursor) javaTextBlock(start int) Token {
	c.pos += 3
	// content starts on the line after the opening delimiter
	for !c.eof() && (c.text[c.pos] == ' ' || c.text[c.pos] == '\t' || c.text[c.pos] == '\r') {
		c.pos++
	}
	if !c.eof() && c.text[c.pos] == '\n' {
		c.pos++
	}

	body := c.pos
	for !c.eof() {
		if c.text[c.pos] == '\\' {
			c.pos += 2
			continue
		}
		if c.hasPrefix(`"""`) {
			raw := c.text[body:c.pos]
			c.pos += 3
			return c.token(KindString, unescape(stripIndent(raw)), start)
		}
		c.pos++
	}
	c.pos = len(c.text)
	return c.token(KindUnterminated, c.text[body:], start)
}

// stripIndent removes the indentation common to all non-blank lines, counting
// the closing delimiter line, and trailing spaces on every line.
func stripIndent(raw string) string {
	lines := strings.Split(raw, "\n")
	closing := lines[len(lines)-1]
	closingBlank := strings.TrimSpace(closing) == ""

	indent := -1
	for i, ln := range lines {
		if strings.TrimSpace(ln) == "" && !(i == len(lines)-1 && closingBlank) {
			continue
		}
		n := len(ln) - len(strings.TrimLeft(ln, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent < 0 {
		indent = 0
	}

	for i, ln := range lines {
		if len(ln) >= indent {
			ln = ln[indent:]
		} else {
			ln = ""
		}
		lines[i] = strings.TrimRight(ln, " \t\r")
	}
	return strings.Join(lines, "\n")
}
