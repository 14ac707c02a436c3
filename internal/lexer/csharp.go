package lexer

import (
	"iter"
	"strings"

	"github.com/ppiankov/sqlspectre/internal/source"
)

// CSharp lexes C# sources: regular, verbatim (@), interpolated ($) and raw
// (""") strings joined with '+'.
type CSharp struct{}

func (CSharp) Language() source.Language { return source.LanguageCSharp }

func (CSharp) Tokens(text string) iter.Seq[Token] {
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
			case ch == '@' || ch == '$' || ch == '"':
				verbatim, interpolated := false, false
				j := c.pos
				for j < len(c.text) && (c.text[j] == '@' || c.text[j] == '$') {
					verbatim = verbatim || c.text[j] == '@'
					interpolated = interpolated || c.text[j] == '$'
					j++
				}
				if j >= len(c.text) || c.text[j] != '"' {
					c.pos++
					c.skipWord()
					tok = c.token(KindOther, "", start)
					break
				}
				c.pos = j
				if c.hasPrefix(`"""`) {
					tok = c.rawString(start)
					break
				}
				c.pos++
				value, ok := c.csharpString(verbatim, interpolated)
				if !ok {
					tok = c.token(KindUnterminated, value, start)
				} else {
					tok = c.token(KindString, value, start)
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

// csharpString reads a regular or verbatim string body after the opening
// quote. Interpolation holes become {name} for simple member paths and {?}
// for anything else.
func (c *cursor) csharpString(verbatim, interpolated bool) (string, bool) {
	var b strings.Builder
	for !c.eof() {
		ch := c.text[c.pos]
		switch {
		case ch == '"':
			if verbatim && c.peek(1) == '"' {
				b.WriteByte('"')
				c.pos += 2
				continue
			}
			c.pos++
			if verbatim {
				return b.String(), true
			}
			return unescape(b.String()), true
		case ch == '\\' && !verbatim:
			b.WriteString(c.text[c.pos:min(c.pos+2, len(c.text))])
			c.pos += 2
		case ch == '\n' && !verbatim:
			return b.String(), false
		case interpolated && (ch == '{' || ch == '}'):
			if c.peek(1) == ch {
				b.WriteByte(ch)
				c.pos += 2
				continue
			}
			if ch == '}' {
				b.WriteByte(ch)
				c.pos++
				continue
			}
			hole, ok := c.interpolationHole(verbatim)
			if !ok {
				return b.String(), false
			}
			b.WriteString(hole)
		default:
			b.WriteByte(ch)
			c.pos++
		}
	}
	c.pos = len(c.text)
	return b.String(), false
}

// interpolationHole consumes {expr[,align][:format]} and returns its
// placeholder text.
func (c *cursor) interpolationHole(multiline bool) (string, bool) {
	c.pos++ // {
	start := c.pos
	depth := 0
	for !c.eof() {
		ch := c.text[c.pos]
		switch {
		case ch == '"':
			c.pos++
			c.scanEscaped('"', multiline)
			continue
		case ch == '\n' && !multiline:
			return "", false
		case ch == '{' || ch == '(' || ch == '[':
			depth++
		case (ch == ')' || ch == ']') && depth > 0:
			depth--
		case ch == '}':
			if depth > 0 {
				depth--
				break
			}
			expr := c.text[start:c.pos]
			c.pos++
			return holePlaceholder(expr), true
		}
		c.pos++
	}
	return "", false
}

func holePlaceholder(expr string) string {
	if i := strings.IndexAny(expr, ",:"); i >= 0 {
		expr = expr[:i]
	}
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "{?}"
	}
	for i := 0; i < len(expr); i++ {
		if !isWordByte(expr[i]) && expr[i] != '.' {
			return "{?}"
		}
	}
	return "{" + expr + "}"
}

// rawString reads a C# 11 raw literal delimited by three or more quotes.
func (c *cursor) rawString(start int) Token {
	n := 0
	for !c.eof() && c.text[c.pos] == '"' {
		n++
		c.pos++
	}
	delim := strings.Repeat(`"`, n)
	body := c.pos
	end := strings.Index(c.text[body:], delim)
	if end < 0 {
		c.pos = len(c.text)
		return c.token(KindUnterminated, c.text[body:], start)
	}
	raw := c.text[body : body+end]
	c.pos = body + end + n

	if strings.Contains(raw, "\n") {
		// multi-line raw strings drop the first and last line
		if nl := strings.IndexByte(raw, '\n'); nl >= 0 && strings.TrimSpace(raw[:nl]) == "" {
			raw = raw[nl+1:]
		}
		raw = stripIndent(raw)
		raw = strings.TrimSuffix(raw, "\n")
	}
	return c.token(KindString, raw, start)
}
