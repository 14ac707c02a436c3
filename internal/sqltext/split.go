package sqltext

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Segment is one statement cut out of a larger text.
// Offset is the byte position of the first non-space byte of Text.
type Segment struct {
	Text   string
	Offset int
}

// SplitResult holds the statements found in a text and the scanner state at EOF.
type SplitResult struct {
	Segments  []Segment
	State     State
	Depth     int
	Underflow bool
}

// Balanced reports whether the text ended outside any quote or block comment
// with every parenthesis matched. An open line comment at EOF is fine.
func (r SplitResult) Balanced() bool {
	return !r.State.InQuote() && r.State != StateBlockComment && r.Depth == 0 && !r.Underflow
}

// Problem describes why the result is unbalanced, or "" if it is not.
func (r SplitResult) Problem() string {
	switch {
	case r.State.InQuote():
		return "unterminated " + r.State.String() + " literal"
	case r.State == StateBlockComment:
		return "unterminated block comment"
	case r.Depth > 0:
		return "unclosed parenthesis"
	case r.Underflow:
		return "unmatched closing parenthesis"
	default:
		return ""
	}
}

// Split cuts text at every top-level ';' that is outside quotes and comments.
// Segments are trimmed and empty ones are dropped. For comment-free input,
// joining the segments with ";" and splitting again gives the same segments.
func Split(text string) SplitResult {
	var res SplitResult
	start := 0
	last := Step{To: StateDefault}
	for step := range Steps(text) {
		if step.Underflow {
			res.Underflow = true
		}
		if step.Terminator {
			res.Segments = appendSegment(res.Segments, text, start, step.Start)
			start = step.End
		}
		last = step
	}
	res.Segments = appendSegment(res.Segments, text, start, len(text))
	res.State = last.To
	res.Depth = last.Depth
	return res
}

func appendSegment(segs []Segment, text string, start, end int) []Segment {
	raw := text[start:end]
	trimmed := strings.TrimLeftFunc(raw, unicode.IsSpace)
	offset := start + len(raw) - len(trimmed)
	trimmed = strings.TrimRightFunc(trimmed, unicode.IsSpace)
	if trimmed == "" {
		return segs
	}
	return append(segs, Segment{Text: trimmed, Offset: offset})
}

// SkipTrivia returns the index of the first byte in s that is not whitespace
// or part of a SQL comment.
func SkipTrivia(s string) int {
	i := 0
	for i < len(s) {
		r, w := utf8.DecodeRuneInString(s[i:])
		switch {
		case unicode.IsSpace(r):
			i += w
		case strings.HasPrefix(s[i:], "--"):
			nl := strings.IndexByte(s[i:], '\n')
			if nl < 0 {
				return len(s)
			}
			i += nl + 1
		case strings.HasPrefix(s[i:], "/*"):
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return len(s)
			}
			i += 2 + end + 2
		default:
			return i
		}
	}
	return i
}

// LeadingWord returns the first word of s, upper-cased, after skipping
// trivia and opening parentheses. It returns "" when s does not start with
// a letter.
func LeadingWord(s string) string {
	i := SkipTrivia(s)
	for i < len(s) && s[i] == '(' {
		i++
		i += SkipTrivia(s[i:])
	}
	j := i
	for j < len(s) && isWordByte(s[j]) {
		j++
	}
	if j == i || !isLetter(s[i]) {
		return ""
	}
	return strings.ToUpper(s[i:j])
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isWordByte(c byte) bool {
	return isLetter(c) || c >= '0' && c <= '9' || c == '_'
}
