package ingest

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as a string, replacing invalid UTF-8
// sequences with U+FFFD.
func extractPlain(content []byte) string {
	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "\ufffd")
	}
	return string(content)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}
