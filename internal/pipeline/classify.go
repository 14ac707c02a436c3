package pipeline

import "github.com/ppiankov/sqlspectre/internal/sqltext"

// kindTable maps leading keywords to kinds. First match wins.
var kindTable = []struct {
	keyword string
	kind    OperationKind
}{
	{"SELECT", KindSelect},
	{"INSERT", KindInsert},
	{"UPDATE", KindUpdate},
	{"DELETE", KindDelete},
	{"CREATE", KindCreate},
	{"ALTER", KindAlter},
	{"DROP", KindDrop},
	{"MERGE", KindOther},
	{"TRUNCATE", KindOther},
	{"GRANT", KindOther},
	{"REVOKE", KindOther},
}

// Classify returns the kind of a statement from its leading keyword after
// whitespace, comments and opening parentheses. A WITH statement takes the
// kind of the DML that follows its common table expressions.
func Classify(stmt string) OperationKind {
	word := sqltext.LeadingWord(stmt)
	if word == "WITH" {
		return classifyWith(stmt)
	}
	for _, row := range kindTable {
		if row.keyword == word {
			return row.kind
		}
	}
	return KindOther
}

// classifyWith finds the first DML keyword at paren depth zero after WITH.
func classifyWith(stmt string) OperationKind {
	depth := 0
	for _, t := range tokenize(stmt)[1:] {
		switch {
		case t.is("("):
			depth++
		case t.is(")"):
			depth = max(0, depth-1)
		case depth == 0 && t.kind == tIdent && statementStarts[t.upper]:
			if t.upper == "MERGE" {
				return KindOther
			}
			return Classify(t.upper)
		}
	}
	return KindOther
}
