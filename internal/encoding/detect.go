package encoding

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// sniffLen bounds how much of a file is inspected for charset heuristics.
const sniffLen = 4096

// ToUTF8 decodes a bank export into UTF-8 text.
//
// Detection order:
//  1. BOM (UTF-8 BOM is stripped; UTF-16 LE/BE is decoded)
//  2. Valid UTF-8 is returned as-is
//  3. Heuristic detection via chardet
//  4. Fallback to Windows-1252
func ToUTF8(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return string(data[len(bomUTF8):]), nil
	case bytes.HasPrefix(data, bomUTF16LE):
		return decode(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), data)
	case bytes.HasPrefix(data, bomUTF16BE):
		return decode(unicode.UTF16(unicode.BigEndian, unicode.UseBOM), data)
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	sample := data
	if len(sample) > sniffLen {
		sample = sample[:sniffLen]
	}

	result, err := chardet.NewTextDetector().DetectBest(sample)
	if err == nil {
		switch result.Charset {
		case "UTF-8":
			return string(data), nil
		case "ISO-8859-1", "windows-1252":
			return decode(charmap.Windows1252, data)
		case "ISO-8859-9":
			return decode(charmap.ISO8859_9, data)
		case "ISO-8859-15":
			return decode(charmap.ISO8859_15, data)
		}
	}

	return decode(charmap.Windows1252, data)
}

func decode(enc encoding.Encoding, data []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decoding text: %w", err)
	}

	return string(out), nil
}

// IsText reports whether data can be treated as a text export. Spreadsheet
// workbooks, zip/OLE containers, PDFs and other binary payloads are not text.
// The second return value is the detected MIME type, for error messages.
func IsText(data []byte) (bool, string) {
	if len(data) == 0 {
		return true, "text/plain"
	}

	if bytes.HasPrefix(data, bomUTF8) || bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE) {
		return true, "text/plain"
	}

	m := mimetype.Detect(data)

	for cur := m; cur != nil; cur = cur.Parent() {
		if cur.Is("text/plain") {
			return true, m.String()
		}
	}

	// Legacy single-byte exports are often reported as octet-stream.
	// Without NUL bytes they still read as text once decoded.
	if m.Is("application/octet-stream") {
		sample := data
		if len(sample) > sniffLen {
			sample = sample[:sniffLen]
		}

		return bytes.IndexByte(sample, 0) < 0, m.String()
	}

	return false, m.String()
}
