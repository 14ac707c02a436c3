package lexer

import (
	"strconv"
	"strings"
)

// scanEscaped consumes a backslash-escaped literal body up to and including
// the closing quote. The cursor must sit just past the opening quote. When
// multiline is false a newline ends the literal as unterminated.
func (c *cursor) scanEscaped(quote byte, multiline bool) (string, bool) {
	start := c.pos
	for c.pos < len(c.text) {
		switch ch := c.text[c.pos]; {
		case ch == '\\':
			c.pos += 2
		case ch == quote:
			raw := c.text[start:c.pos]
			c.pos++
			return raw, true
		case ch == '\n' && !multiline:
			return c.text[start:c.pos], false
		default:
			c.pos++
		}
	}
	c.pos = len(c.text)
	return c.text[start:], false
}

// unescape decodes C-family escape sequences. Unknown escapes keep the
// escaped character.
func unescape(raw string) string {
	if strings.IndexByte(raw, '\\') < 0 {
		return raw
	}

	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if ch != '\\' || i+1 == len(raw) {
			b.WriteByte(ch)
			continue
		}
		i++
		switch e := raw[i]; e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case 'a':
			b.WriteByte('\a')
		case 's':
			b.WriteByte(' ')
		case '0':
			b.WriteByte(0)
		case '\n':
			// line continuation
		case 'u', 'U', 'x':
			n := hexLen(e)
			j := i + 1
			for j < len(raw) && raw[j] == 'u' && e == 'u' {
				j++ // Java allows \uuuu0041
			}
			end := j
			for end < len(raw) && end-j < n && isHex(raw[end]) {
				end++
			}
			if end == j || (e != 'x' && end-j != n) {
				b.WriteByte(e)
				continue
			}
			v, err := strconv.ParseUint(raw[j:end], 16, 32)
			if err != nil {
				b.WriteByte(e)
				continue
			}
			b.WriteRune(rune(v))
			i = end - 1
		default:
			b.WriteByte(e)
		}
	}
	return b.String()
}

func hexLen(e byte) int {
	switch e {
	case 'U':
		return 8
	default:
		return 4
	}
}

func isHex(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F'
}
