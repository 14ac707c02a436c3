package source

import (
	"path/filepath"
	"strings"
)

// Language is the lexical family used to find string literals in a file.
type Language string

const (
	LanguageJava    Language = "java"
	LanguageCSharp  Language = "csharp"
	LanguageVB      Language = "vb"
	LanguageXML     Language = "xml"
	LanguageSQL     Language = "sql"
	LanguageUnknown Language = ""
)

// Unit is one scanned file. Text is the raw file content.
type Unit struct {
	Path     string   `json:"path"`
	Language Language `json:"language"`
	Text     string   `json:"-"`
}

// DefaultExtensions maps file extensions to the language used to lex them.
var DefaultExtensions = map[string]Language{
	".java": LanguageJava,
	".jsp":  LanguageJava,
	".cs":   LanguageCSharp,
	".vb":   LanguageVB,
	".xml":  LanguageXML,
	".sql":  LanguageSQL,
}

// ParseLanguage maps a user supplied name to a Language.
// Unrecognized names return LanguageUnknown.
func ParseLanguage(name string) Language {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "java", "jsp":
		return LanguageJava
	case "csharp", "c#", "cs", "dotnet":
		return LanguageCSharp
	case "vb", "vbnet", "vb.net":
		return LanguageVB
	case "xml", "mybatis":
		return LanguageXML
	case "sql":
		return LanguageSQL
	default:
		return LanguageUnknown
	}
}

// LanguageForPath returns the language for path using the extension table.
// A nil table means DefaultExtensions.
func LanguageForPath(path string, table map[string]Language) Language {
	if table == nil {
		table = DefaultExtensions
	}
	return table[strings.ToLower(filepath.Ext(path))]
}
