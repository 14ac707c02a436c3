package pipeline

import "strings"

type tokKind uint8

const (
	tIdent tokKind = iota
	tQuoted // quoted identifier
	tNumber
	tString
	tParam
	tPunct
)

type sqlToken struct {
	kind  tokKind
	text  string // identifier text without quotes
	upper string // upper-cased text for bare identifiers
}

func (t sqlToken) is(punct string) bool {
	return t.kind == tPunct && t.text == punct
}

// keyword reports whether t is the bare word kw (upper case).
func (t sqlToken) keyword(kw string) bool {
	return t.kind == tIdent && t.upper == kw
}

func (t sqlToken) name() bool {
	return t.kind == tIdent || t.kind == tQuoted
}

// tokenize splits one statement into tokens. Comments are dropped.
func tokenize(s string) []sqlToken {
	var toks []sqlToken
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case isSpaceByte(c):
			i++
		case strings.HasPrefix(s[i:], "--"):
			nl := strings.IndexByte(s[i:], '\n')
			if nl < 0 {
				i = len(s)
			} else {
				i += nl + 1
			}
		case strings.HasPrefix(s[i:], "/*"):
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				i = len(s)
			} else {
				i += end + 4
			}
		case c == '\'':
			j := quotedEnd(s, i, '\'')
			toks = append(toks, sqlToken{kind: tString, text: s[i:j]})
			i = j
		case c == '"' || c == '`':
			j := quotedEnd(s, i, c)
			body := s[i+1 : max(i+1, j-1)]
			body = strings.ReplaceAll(body, string([]byte{c, c}), string(c))
			toks = append(toks, sqlToken{kind: tQuoted, text: body})
			i = j
		case c == '[':
			if j := strings.IndexByte(s[i:], ']'); j > 1 && bracketIdent(s[i+1:i+j]) {
				toks = append(toks, sqlToken{kind: tQuoted, text: s[i+1 : i+j]})
				i += j + 1
				break
			}
			toks = append(toks, sqlToken{kind: tPunct, text: "["})
			i++
		case c >= '0' && c <= '9' || c == '.' && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9':
			j := i + 1
			for j < len(s) && (isIdentByte(s[j]) || s[j] == '.') {
				j++
			}
			toks = append(toks, sqlToken{kind: tNumber, text: s[i:j]})
			i = j
		case c == '?':
			toks = append(toks, sqlToken{kind: tParam, text: "?"})
			i++
		case (c == ':' || c == '@' || c == '$') && i+1 < len(s) && (isIdentByte(s[i+1]) || c == '@' && s[i+1] == '@'):
			j := i + 1
			for j < len(s) && (isIdentByte(s[j]) || s[j] == '@') {
				j++
			}
			toks = append(toks, sqlToken{kind: tParam, text: s[i:j]})
			i = j
		case isIdentByte(c):
			j := i + 1
			for j < len(s) && (isIdentByte(s[j]) || s[j] == '$' || s[j] == '#') {
				j++
			}
			word := s[i:j]
			// N'...', E'...', X'...' string prefixes
			if j < len(s) && s[j] == '\'' && len(word) == 1 && strings.ContainsAny(word, "NnEeXxBbUu") {
				k := quotedEnd(s, j, '\'')
				toks = append(toks, sqlToken{kind: tString, text: s[i:k]})
				i = k
				break
			}
			toks = append(toks, sqlToken{kind: tIdent, text: word, upper: strings.ToUpper(word)})
			i = j
		default:
			toks = append(toks, sqlToken{kind: tPunct, text: punct(s[i:])})
			i += len(toks[len(toks)-1].text)
		}
	}
	return toks
}

// quotedEnd returns the index just past the literal opened at s[i].
// A doubled quote is an escaped quote.
func quotedEnd(s string, i int, q byte) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] != q {
			continue
		}
		if j+1 < len(s) && s[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

func bracketIdent(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i]) && s[i] != ' ' && s[i] != '-' && s[i] != '$' && s[i] != '#' {
			return false
		}
	}
	return true
}

var multiPunct = []string{"::", "||", "<=", ">=", "<>", "!=", "=>", ":="}

func punct(s string) string {
	for _, p := range multiPunct {
		if strings.HasPrefix(s, p) {
			return p
		}
	}
	return s[:1]
}

// reserved words are never table aliases or column names.
var reserved = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "AND": true, "OR": true,
	"NOT": true, "IN": true, "IS": true, "NULL": true, "AS": true,
	"ON": true, "SET": true, "VALUES": true, "INTO": true, "JOIN": true,
	"LEFT": true, "RIGHT": true, "INNER": true, "OUTER": true, "CROSS": true,
	"FULL": true, "NATURAL": true, "GROUP": true, "BY": true, "ORDER": true,
	"HAVING": true, "LIMIT": true, "OFFSET": true, "UNION": true, "ALL": true,
	"DISTINCT": true, "CASE": true, "WHEN": true, "THEN": true, "ELSE": true,
	"END": true, "EXISTS": true, "BETWEEN": true, "LIKE": true, "ILIKE": true,
	"TRUE": true, "FALSE": true, "TABLE": true, "INDEX": true, "CREATE": true,
	"ALTER": true, "DROP": true, "INSERT": true, "UPDATE": true, "DELETE": true,
	"WITH": true, "RETURNING": true, "ASC": true, "DESC": true, "NULLS": true,
	"FETCH": true, "NEXT": true, "ROWS": true, "ONLY": true, "TOP": true,
	"USING": true, "MERGE": true, "MATCHED": true, "APPLY": true, "OVER": true,
	"PARTITION": true, "WINDOW": true, "INTERSECT": true, "EXCEPT": true, "MINUS": true,
	"ANY": true, "SOME": true, "ESCAPE": true, "COLLATE": true, "INTERVAL": true,
	"CURRENT_DATE": true, "CURRENT_TIME": true, "CURRENT_TIMESTAMP": true, "LOCALTIMESTAMP": true,
	"SYSDATE": true, "SYSTIMESTAMP": true, "ROWNUM": true, "DUAL": true, "NEXTVAL": true,
	"CURRVAL": true, "PRIOR": true, "CONNECT": true, "START": true, "DEFAULT": true,
	"PRIMARY": true, "KEY": true, "FOREIGN": true, "REFERENCES": true, "CONSTRAINT": true,
	"UNIQUE": true, "CHECK": true, "IF": true, "REPLACE": true, "CASCADE": true,
	"RESTRICT": true, "FOR": true, "SHARE": true, "NOWAIT": true, "OF": true,
	"LATERAL": true, "RECURSIVE": true, "DUPLICATE": true, "CONFLICT": true, "DO": true,
	"NOTHING": true, "TRUNCATE": true, "GRANT": true, "REVOKE": true, "TO": true,
	"COLUMN": true, "ADD": true, "MODIFY": true, "RENAME": true, "VIEW": true,
	"SEQUENCE": true, "TRIGGER": true, "PROCEDURE": true, "FUNCTION": true, "SCHEMA": true,
	"WITHIN": true, "FILTER": true, "IGNORE": true, "LOCK": true, "SKIP": true,
	"LOCKED": true, "ROW": true, "FIRST": true, "LAST": true, "PERCENT": true,
	"EXEC": true, "EXECUTE": true, "CALL": true, "BEGIN": true, "COMMIT": true,
	"ROLLBACK": true, "MATERIALIZED": true, "TEMPORARY": true, "TEMP": true, "UNLOGGED": true,
}

// statementStarts are words that begin a DML statement inside a larger one.
var statementStarts = map[string]bool{
	"SELECT": true, "INSERT": true, "UPDATE": true, "DELETE": true, "MERGE": true,
}
