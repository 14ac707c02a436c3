package lexer

import (
	"encoding/xml"
	"errors"
	"io"
	"iter"
	"strings"
	"unicode"

	"github.com/ppiankov/sqlspectre/internal/source"
)

// XML lexes mapper and descriptor files. Character data and attribute values
// become string tokens. Inside statement elements (MyBatis, iBATIS, Hibernate,
// JPA) text split by dynamic child elements is joined with synthetic concat
// tokens so the statement is rebuilt as one candidate.
type XML struct{}

func (XML) Language() source.Language { return source.LanguageXML }

// statementElements hold a complete SQL statement as their text content.
var statementElements = map[string]bool{
	"select":             true,
	"insert":             true,
	"update":             true,
	"delete":             true,
	"sql":                true,
	"statement":          true,
	"procedure":          true,
	"selectkey":          true,
	"sql-query":          true,
	"sql-insert":         true,
	"sql-update":         true,
	"sql-delete":         true,
	"named-native-query": true,
}

// clauseElements are MyBatis dynamic elements that contribute a keyword.
var clauseElements = map[string]string{
	"where": " WHERE ",
	"set":   " SET ",
}

func (XML) Tokens(text string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		lines := newLineIndex(text)
		dec := xml.NewDecoder(strings.NewReader(text))
		dec.Strict = false
		dec.AutoClose = xml.HTMLAutoClose
		dec.Entity = xml.HTMLEntity

		// frame is one open element.
		type frame struct {
			statement bool
			suffix    string // emitted when the element closes
		}
		var stack []frame
		inStatement := func() bool {
			for _, f := range stack {
				if f.statement {
					return true
				}
			}
			return false
		}
		pending := false // a string was emitted inside the current statement

		emit := func(kind Kind, value string, offset, length int) bool {
			return yield(Token{Kind: kind, Value: value, Offset: offset, Length: length, Line: lines.line(offset)})
		}
		// str emits a string, joined to the previous one inside a statement.
		str := func(value string, offset, length int) bool {
			if pending && inStatement() {
				if !emit(KindConcat, "", offset, 0) {
					return false
				}
			}
			pending = inStatement()
			return emit(KindString, value, offset, length)
		}
		brk := func(offset, length int) bool {
			pending = false
			return emit(KindOther, "", offset, length)
		}

		for {
			start := int(dec.InputOffset())
			tok, err := dec.Token()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				emit(KindUnterminated, err.Error(), start, len(text)-start)
				return
			}
			end := int(dec.InputOffset())

			switch t := tok.(type) {
			case xml.StartElement:
				name := strings.ToLower(t.Name.Local)
				isStmt := statementElements[name]
				if isStmt && !brk(start, end-start) {
					return
				}
				stack = append(stack, frame{statement: isStmt})
				for _, a := range t.Attr {
					if inStatement() {
						switch a.Name.Local {
						case "prefix", "open":
							if !str(" "+a.Value+" ", start, end-start) {
								return
							}
						case "suffix", "close":
							stack[len(stack)-1].suffix = " " + a.Value + " "
						}
						continue
					}
					if strings.TrimSpace(a.Value) == "" {
						continue
					}
					if !str(a.Value, start, end-start) || !brk(start, 0) {
						return
					}
				}
				if kw, ok := clauseElements[name]; ok && inStatement() {
					if !str(kw, start, end-start) {
						return
					}
				}
			case xml.EndElement:
				var top frame
				if n := len(stack); n > 0 {
					top = stack[n-1]
					if top.suffix != "" && !str(top.suffix, start, end-start) {
						return
					}
					stack = stack[:n-1]
				}
				if top.statement && !brk(start, end-start) {
					return
				}
			case xml.CharData:
				value := string(t)
				trimmed := strings.TrimLeftFunc(value, unicode.IsSpace)
				if strings.TrimSpace(trimmed) == "" {
					continue
				}
				offset := start + len(value) - len(trimmed)
				if strings.HasPrefix(text[start:], "<![CDATA[") {
					offset = start + len("<![CDATA[")
				}
				if !str(value, offset, end-offset) {
					return
				}
			case xml.Comment:
				continue
			default:
				if !brk(start, end-start) {
					return
				}
			}
		}
	}
}
