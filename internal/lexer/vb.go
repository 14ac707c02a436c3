package lexer

import (
	"iter"
	"strings"

	"github.com/ppiankov/sqlspectre/internal/source"
)

// VB lexes Visual Basic .NET sources: "..." strings with "" escapes joined
// by '&' or '+', with ' and REM comments and _ line continuations.
type VB struct{}

func (VB) Language() source.Language { return source.LanguageVB }

// vbConstants are the newline and tab constants commonly spliced into SQL.
var vbConstants = map[string]string{
	"vbcrlf":    "\r\n",
	"vbcr":      "\r",
	"vblf":      "\n",
	"vbnewline": "\n",
	"vbtab":     "\t",
}

func (VB) Tokens(text string) iter.Seq[Token] {
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
			case ch == '\'':
				c.skipToEOL()
				continue
			case ch == '_' && c.lineContinuation():
				continue
			case ch == '"' || ch == '$' && c.peek(1) == '"':
				interpolated := ch == '$'
				if interpolated {
					c.pos++
				}
				c.pos++
				value, ok := c.vbString(interpolated)
				switch {
				case !ok:
					tok = c.token(KindUnterminated, value, start)
				case !c.eof() && (c.text[c.pos] == 'c' || c.text[c.pos] == 'C') && !isWordByte(c.peek(1)):
					// "x"c is a Char literal
					c.pos++
					tok = c.token(KindOther, "", start)
				default:
					tok = c.token(KindString, value, start)
				}
			case ch == '&':
				tok = c.ampersand(start)
			case ch == '+':
				tok = c.plus(start)
			default:
				c.skipWord()
				word := c.text[start:c.pos]
				if strings.EqualFold(word, "rem") && c.atLineStart(start) && (c.eof() || isSpace(c.text[c.pos])) {
					c.skipToEOL()
					continue
				}
				if v, ok := vbConstants[strings.ToLower(word)]; ok {
					tok = c.token(KindString, v, start)
					break
				}
				tok = c.token(KindOther, "", start)
			}

			if !yield(tok) {
				return
			}
		}
	}
}

// vbString reads a string body after the opening quote. VB 14 strings may
// span lines, so only EOF leaves a string unterminated.
func (c *cursor) vbString(interpolated bool) (string, bool) {
	var b strings.Builder
	for !c.eof() {
		ch := c.text[c.pos]
		switch {
		case ch == '"':
			if c.peek(1) == '"' {
				b.WriteByte('"')
				c.pos += 2
				continue
			}
			c.pos++
			return b.String(), true
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
			hole, ok := c.interpolationHole(true)
			if !ok {
				return b.String(), false
			}
			b.WriteString(hole)
		default:
			b.WriteByte(ch)
			c.pos++
		}
	}
	return b.String(), false
}

// ampersand lexes '&' as concatenation unless it is '&=' or a &H/&O/&B
// numeric literal.
func (c *cursor) ampersand(start int) Token {
	switch c.peek(1) {
	case '=':
		c.pos += 2
		return c.token(KindOther, "", start)
	case 'H', 'h', 'O', 'o', 'B', 'b':
		d := c.peek(2)
		numeric := isHex(d)
		switch c.peek(1) {
		case 'O', 'o':
			numeric = d >= '0' && d <= '7'
		case 'B', 'b':
			numeric = d == '0' || d == '1'
		}
		if numeric {
			c.pos++
			c.skipWord()
			return c.token(KindOther, "", start)
		}
	}
	c.pos++
	return c.token(KindConcat, "", start)
}

// lineContinuation consumes a trailing " _" and reports whether it did.
func (c *cursor) lineContinuation() bool {
	if c.pos > 0 && !isSpace(c.text[c.pos-1]) {
		return false
	}
	j := c.pos + 1
	for j < len(c.text) && (c.text[j] == ' ' || c.text[j] == '\t' || c.text[j] == '\r') {
		j++
	}
	if j < len(c.text) && c.text[j] != '\n' {
		return false
	}
	c.pos = j
	return true
}

func (c *cursor) atLineStart(offset int) bool {
	for i := offset - 1; i >= 0; i-- {
		switch c.text[i] {
		case '\n':
			return true
		case ' ', '\t', '\r':
		default:
			return false
		}
	}
	return true
}
