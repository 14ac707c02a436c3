package sqltext

// MaskLiterals blanks the contents of single-quoted string literals so
// pattern matching sees only SQL structure. Quotes, offsets and length are
// preserved.
func MaskLiterals(text string) string {
	var b []byte
	for st := range Steps(text) {
		if st.From != StateSingleQuote || st.To != StateSingleQuote {
			continue
		}
		if b == nil {
			b = []byte(text)
		}
		for i := st.Start; i < st.End; i++ {
			if b[i] != '\n' {
				b[i] = ' '
			}
		}
	}
	if b == nil {
		return text
	}
	return string(b)
}
