package sqltext

// statementKeywords are the words that can open an embedded SQL statement.
var statementKeywords = map[string]bool{
	"SELECT":   true,
	"INSERT":   true,
	"UPDATE":   true,
	"DELETE":   true,
	"CREATE":   true,
	"ALTER":    true,
	"DROP":     true,
	"WITH":     true,
	"MERGE":    true,
	"TRUNCATE": true,
	"GRANT":    true,
	"REVOKE":   true,
	"EXEC":     true,
	"EXECUTE":  true,
	"CALL":     true,
}

// IsStatementKeyword reports whether the upper-cased word can start a statement.
func IsStatementKeyword(word string) bool {
	return statementKeywords[word]
}

// StartsStatement reports whether s opens with a statement keyword once
// leading whitespace, comments and parentheses are skipped.
func StartsStatement(s string) bool {
	return statementKeywords[LeadingWord(s)]
}
