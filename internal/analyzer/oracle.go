package analyzer

import (
	"regexp"

	"github.com/ppiankov/sqlspectre/internal/sqltext"
)

type oracleFeature struct {
	name string
	re   *regexp.Regexp
}

// Oracle-only constructs, in report order.
var oracleFeatures = []oracleFeature{
	{"CONNECT BY", regexp.MustCompile(`(?i)\bCONNECT\s+BY\b`)},
	{"START WITH", regexp.MustCompile(`(?i)\bSTART\s+WITH\b`)},
	{"MERGE", regexp.MustCompile(`(?i)\bMERGE\s+INTO\b`)},
	{"(+)", regexp.MustCompile(`\(\s*\+\s*\)`)},
	{"NVL", regexp.MustCompile(`(?i)\bNVL2?\s*\(`)},
	{"DECODE", regexp.MustCompile(`(?i)\bDECODE\s*\(`)},
	{"DUAL", regexp.MustCompile(`(?i)\bFROM\s+DUAL\b`)},
	{"ROWNUM", regexp.MustCompile(`(?i)\bROWNUM\b`)},
	{"ROWID", regexp.MustCompile(`(?i)\bROWID\b`)},
	{"NEXTVAL", regexp.MustCompile(`(?i)\w\.(?:NEXTVAL|CURRVAL)\b`)},
	{"VARCHAR2", regexp.MustCompile(`(?i)\bN?VARCHAR2\b`)},
	{"SYSDATE", regexp.MustCompile(`(?i)\bSYS(?:DATE|TIMESTAMP)\b`)},
	{"TO_DATE", regexp.MustCompile(`(?i)\bTO_DATE\s*\(`)},
	{"ADD_MONTHS", regexp.MustCompile(`(?i)\b(?:ADD_MONTHS|MONTHS_BETWEEN)\s*\(`)},
	{"SYSTEM VIEW", regexp.MustCompile(`(?i)\bFROM\s+(?:USER_|ALL_|DBA_|V\$)\w+`)},
	{"FLASHBACK", regexp.MustCompile(`(?i)\bAS\s+OF\s+(?:SCN|TIMESTAMP)\b`)},
}

// OracleFeatures lists the Oracle-specific constructs used by a statement.
// String literal contents are ignored.
func OracleFeatures(text string) []string {
	masked := sqltext.MaskLiterals(text)
	var out []string
	for _, f := range oracleFeatures {
		if f.re.MatchString(masked) {
			out = append(out, f.name)
		}
	}
	return out
}
