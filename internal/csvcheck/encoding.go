package csvcheck

// encoding.go resolves the text encoding of an uploaded file.
//
// UTF-8 is tried first so that valid UTF-8 is never misread as Latin-1
// mojibake. Latin-1 decoding succeeds for every byte sequence, so the
// fallback cannot fail; the only structural failure is an empty buffer.
// There is no heuristic confidence scoring: the fallback fires only on an
// explicit UTF-8 decode failure.

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	encodingUTF8   = "utf-8"
	encodingLatin1 = "latin-1"
)

// decodeText decodes raw file bytes into text, returning the decoded
// string and the name of the encoding used.
func decodeText(data []byte) (string, string, *StructureError) {
	if len(data) == 0 {
		return "", "", &StructureError{Message: "file is empty"}
	}

	if utf8.Valid(data) {
		return stripBOM(string(data)), encodingUTF8, nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		// Latin-1 maps every byte to a code point; this cannot happen.
		return "", "", &StructureError{Message: "file could not be decoded: " + err.Error()}
	}
	return string(decoded), encodingLatin1, nil
}

// stripBOM removes a leading UTF-8 byte order mark. Windows tools commonly
// prepend one, and it would otherwise end up glued to the first header name.
func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
