package lexer

import (
	"iter"

	"github.com/ppiankov/sqlspectre/internal/source"
	"github.com/ppiankov/sqlspectre/internal/sqltext"
)

// SQL lexes plain .sql scripts. Each statement of the script is one string
// token positioned at its first significant byte.
type SQL struct{}

func (SQL) Language() source.Language { return source.LanguageSQL }

func (SQL) Tokens(text string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		lines := newLineIndex(text)
		for _, seg := range sqltext.Split(text).Segments {
			skip := sqltext.SkipTrivia(seg.Text)
			if skip == len(seg.Text) {
				continue
			}
			offset := seg.Offset + skip
			tok := Token{
				Kind:   KindString,
				Value:  seg.Text[skip:],
				Offset: offset,
				Length: len(seg.Text) - skip,
				Line:   lines.line(offset),
			}
			if !yield(tok) {
				return
			}
		}
	}
}
