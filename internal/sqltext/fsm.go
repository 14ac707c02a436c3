// Package sqltext holds the lexical state machine shared by the statement
// splitter, the normalizer and the .sql file lexer.
//
// The machine tracks quoting and comment context over raw SQL text. Every
// transition lives in one table so the quote/comment/paren rules can be read
// and tested in isolation.
package sqltext

import "iter"

// State is the lexical context the scanner is in.
type State uint8

const (
	StateDefault State = iota
	StateSingleQuote
	StateDoubleQuote
	StateBacktick
	StateLineComment
	StateBlockComment
	numStates
)

var stateNames = [numStates]string{
	StateDefault:      "default",
	StateSingleQuote:  "single-quote",
	StateDoubleQuote:  "double-quote",
	StateBacktick:     "backtick",
	StateLineComment:  "line-comment",
	StateBlockComment: "block-comment",
}

func (s State) String() string {
	if s < numStates {
		return stateNames[s]
	}
	return "unknown"
}

// InQuote reports whether s is inside a quoted string or identifier.
func (s State) InQuote() bool {
	return s == StateSingleQuote || s == StateDoubleQuote || s == StateBacktick
}

// InComment reports whether s is inside a comment.
func (s State) InComment() bool {
	return s == StateLineComment || s == StateBlockComment
}

// class is the input category of one scanned unit (one or two bytes).
type class uint8

const (
	classOther class = iota
	classSingleQuote
	classDoubleQuote
	classBacktick
	classLineComment  // --
	classBlockOpen    // /*
	classBlockClose   // */
	classNewline
	classOpenParen
	classCloseParen
	classSemicolon
	numClasses
)

type action uint8

const (
	actNone action = iota
	actOpenParen
	actCloseParen
	actTerminate
)

type transition struct {
	next State
	act  action
}

// rules lists every transition that is not a self-loop.
// Anything missing keeps the current state and does nothing.
var rules = []struct {
	from State
	on   class
	to   State
	act  action
}{
	{StateDefault, classSingleQuote, StateSingleQuote, actNone},
	{StateDefault, classDoubleQuote, StateDoubleQuote, actNone},
	{StateDefault, classBacktick, StateBacktick, actNone},
	{StateDefault, classLineComment, StateLineComment, actNone},
	{StateDefault, classBlockOpen, StateBlockComment, actNone},
	{StateDefault, classOpenParen, StateDefault, actOpenParen},
	{StateDefault, classCloseParen, StateDefault, actCloseParen},
	{StateDefault, classSemicolon, StateDefault, actTerminate},

	// '' inside a literal closes and immediately reopens it.
	{StateSingleQuote, classSingleQuote, StateDefault, actNone},
	{StateDoubleQuote, classDoubleQuote, StateDefault, actNone},
	{StateBacktick, classBacktick, StateDefault, actNone},

	{StateLineComment, classNewline, StateDefault, actNone},
	{StateBlockComment, classBlockClose, StateDefault, actNone},
}

var table = buildTable()

func buildTable() [numStates][numClasses]transition {
	var t [numStates][numClasses]transition
	for s := State(0); s < numStates; s++ {
		for c := class(0); c < numClasses; c++ {
			t[s][c] = transition{next: s, act: actNone}
		}
	}
	for _, r := range rules {
		t[r.from][r.on] = transition{next: r.to, act: r.act}
	}
	return t
}

// classify recognizes the unit starting at text[i]. Two-byte comment
// delimiters are only recognized where they can change state.
func classify(text string, i int, st State) (class, int) {
	ch := text[i]
	var next byte
	if i+1 < len(text) {
		next = text[i+1]
	}

	switch st {
	case StateDefault:
		if ch == '-' && next == '-' {
			return classLineComment, 2
		}
		if ch == '/' && next == '*' {
			return classBlockOpen, 2
		}
	case StateBlockComment:
		if ch == '*' && next == '/' {
			return classBlockClose, 2
		}
		return classOther, 1
	}

	switch ch {
	case '\'':
		return classSingleQuote, 1
	case '"':
		return classDoubleQuote, 1
	case '`':
		return classBacktick, 1
	case '\n':
		return classNewline, 1
	case '(':
		return classOpenParen, 1
	case ')':
		return classCloseParen, 1
	case ';':
		return classSemicolon, 1
	default:
		return classOther, 1
	}
}

// Step is one unit of text consumed by the state machine.
type Step struct {
	Start, End int   // byte range of the unit
	From, To   State // state before and after the unit
	Depth      int   // paren depth after the unit
	Terminator bool  // unit is a top-level ';'
	Underflow  bool  // unit is a ')' with no matching '('
}

// Steps walks text one unit at a time.
func Steps(text string) iter.Seq[Step] {
	return func(yield func(Step) bool) {
		st := StateDefault
		depth := 0
		for i := 0; i < len(text); {
			c, w := classify(text, i, st)
			tr := table[st][c]
			step := Step{Start: i, End: i + w, From: st, To: tr.next}

			switch tr.act {
			case actOpenParen:
				depth++
			case actCloseParen:
				if depth == 0 {
					step.Underflow = true
				} else {
					depth--
				}
			case actTerminate:
				step.Terminator = depth == 0
			}
			step.Depth = depth

			if !yield(step) {
				return
			}
			st = tr.next
			i += w
		}
	}
}
