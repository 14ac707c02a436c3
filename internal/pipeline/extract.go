package pipeline

import (
	"fmt"
	"iter"
	"strings"

	"github.com/ppiankov/sqlspectre/internal/lexer"
	"github.com/ppiankov/sqlspectre/internal/source"
	"github.com/ppiankov/sqlspectre/internal/sqltext"
)

// IgnoreMarker on a candidate's line, or the line above it, skips the candidate.
const IgnoreMarker = "sqlspectre:ignore"

// Extractor finds SQL candidates in source files.
type Extractor struct {
	Limits Limits
}

// Candidates lazily yields the candidates of u. Skipped regions are yielded
// as *UnparsedRegion errors with a zero Candidate; extraction continues after
// them. The sequence holds no state between runs.
func (e Extractor) Candidates(u source.Unit) iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		lx, ok := lexer.For(u.Language)
		if !ok {
			return
		}
		limits := e.Limits.withDefaults()

		var (
			chain    []lexer.Token
			joinNext bool // last token was a concat operator after a string
			overflow bool
		)

		flush := func() bool {
			defer func() { chain, joinNext, overflow = chain[:0], false, false }()
			if len(chain) == 0 || overflow {
				return true
			}
			c := buildCandidate(u, chain)
			if !sqltext.StartsStatement(c.Text()) || HasInlineIgnore(u.Text, c.Offset) {
				return true
			}
			return yield(c, nil)
		}

		for tok := range lx.Tokens(u.Text) {
			switch tok.Kind {
			case lexer.KindString:
				if !joinNext && !flush() {
					return
				}
				joinNext = false
				if overflow {
					continue
				}
				if len(chain) == limits.MaxChain {
					overflow = true
					err := &UnparsedRegion{
						Path:   u.Path,
						Line:   chain[0].Line,
						Reason: fmt.Sprintf("concatenation chain exceeds %d literals", limits.MaxChain),
					}
					if !yield(Candidate{}, err) {
						return
					}
					continue
				}
				chain = append(chain, tok)
			case lexer.KindConcat:
				joinNext = len(chain) > 0 || overflow
			case lexer.KindUnterminated:
				if !flush() {
					return
				}
				err := &UnparsedRegion{Path: u.Path, Line: tok.Line, Reason: "unterminated string literal"}
				if !yield(Candidate{}, err) {
					return
				}
			default:
				if !flush() {
					return
				}
			}
		}
		flush()
	}
}

func buildCandidate(u source.Unit, chain []lexer.Token) Candidate {
	first, last := chain[0], chain[len(chain)-1]
	c := Candidate{
		Path:      u.Path,
		Offset:    first.Offset,
		Length:    last.Offset + last.Length - first.Offset,
		Line:      first.Line,
		Fragments: make([]Fragment, len(chain)),
	}
	for i, tok := range chain {
		f := Fragment{Value: tok.Value, Offset: tok.Offset, Line: tok.Line, EndLine: tok.Line, ValueLine: tok.Line}
		if end := tok.Offset + tok.Length; tok.Offset >= 0 && end <= len(u.Text) {
			raw := u.Text[tok.Offset:end]
			f.EndLine += strings.Count(raw, "\n")
			f.ValueLine += valueShift(raw, tok.Value)
		}
		c.Fragments[i] = f
	}
	return c
}

// valueShift returns the line of value's first byte relative to the start of
// raw, found by locating value's first non-blank line in raw. It is positive
// past a delimiter line such as a text block's opening quotes, and negative
// when value keeps leading line breaks that raw does not cover.
func valueShift(raw, value string) int {
	if !strings.ContainsRune(raw, '\n') {
		return 0
	}
	lead := len(value) - len(strings.TrimLeft(value, " \t\r\n"))
	first, _, _ := strings.Cut(value[lead:], "\n")
	first = strings.TrimSpace(first)
	if first == "" {
		return 0
	}
	at := strings.Index(raw, first)
	if at < 0 {
		return 0
	}
	return strings.Count(raw[:at], "\n") - strings.Count(value[:lead], "\n")
}

// HasInlineIgnore reports whether the line holding offset, or the line
// before it, carries IgnoreMarker.
func HasInlineIgnore(text string, offset int) bool {
	if offset > len(text) {
		return false
	}
	start := strings.LastIndexByte(text[:offset], '\n') + 1
	end := len(text)
	if nl := strings.IndexByte(text[offset:], '\n'); nl >= 0 {
		end = offset + nl
	}
	if strings.Contains(text[start:end], IgnoreMarker) {
		return true
	}
	if start == 0 {
		return false
	}
	prev := strings.LastIndexByte(text[:start-1], '\n') + 1
	return strings.Contains(text[prev:start-1], IgnoreMarker)
}
