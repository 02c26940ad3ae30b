package pgn

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// PGN file extension accepted by the importer.
const Ext = ".pgn"

// ReadFile reads a PGN file as UTF-8, falling back to ISO-8859-1, the
// encoding the PGN specification assumes.
func ReadFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read pgn file: %w", err)
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	return decodeLatin1(raw), nil
}

// decodeLatin1 converts ISO-8859-1 bytes to a UTF-8 string. Every byte
// maps to the code point of the same value.
func decodeLatin1(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		b.WriteRune(rune(c))
	}
	return b.String()
}

// IsPGNFile reports whether path has the .pgn extension, compared
// case-insensitively.
func IsPGNFile(path string) bool {
	return strings.EqualFold(extOf(path), Ext)
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		switch path[i] {
		case '.':
			return path[i:]
		case '/', '\\':
			return ""
		}
	}
	return ""
}
