package scanner

import (
	"bytes"

	"golang.org/x/text/encoding/unicode"
)

const binarySniffBytes = 8000

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decode returns file content as UTF-8 text. Visual Studio commonly writes
// UTF-16 sources with a byte order mark. Content with NUL bytes and no
// UTF-16 mark is binary and reported as not text.
func decode(data []byte) (string, bool) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return string(data[len(bomUTF8):]), true
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		out, err := dec.Bytes(data)
		if err != nil {
			return "", false
		}
		return string(out), true
	}
	if bytes.IndexByte(data[:min(len(data), binarySniffBytes)], 0) >= 0 {
		return "", false
	}
	return string(data), true
}
