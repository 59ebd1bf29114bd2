package importer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

type FileType string

const (
	FileTypeCSV FileType = "csv"
	FileTypeTSV FileType = "tsv"
	FileTypeTXT FileType = "txt"
	FileTypeOFX FileType = "ofx"
	FileTypeQFX FileType = "qfx"

	// Binary spreadsheet types are recognised only to be rejected.
	FileTypeXLS  FileType = "xls"
	FileTypeXLSX FileType = "xlsx"
	FileTypeODS  FileType = "ods"
)

// Structured reports whether the format names its own fields (OFX/QFX).
func (t FileType) Structured() bool {
	return t == FileTypeOFX || t == FileTypeQFX
}

func (t FileType) spreadsheet() bool {
	return t == FileTypeXLS || t == FileTypeXLSX || t == FileTypeODS
}

// ParseFileType accepts a declared type such as "CSV", ".ofx" or "".
func ParseFileType(s string) (FileType, error) {
	ft := FileType(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))

	switch ft {
	case "", FileTypeCSV, FileTypeTSV, FileTypeTXT, FileTypeOFX, FileTypeQFX, FileTypeXLS, FileTypeXLSX, FileTypeODS:
		return ft, nil
	}

	return "", fmt.Errorf("unknown file type: %s", s)
}

// DetectFileType guesses the type from the file name, then from the content.
func DetectFileType(fileName, text string) FileType {
	if ft, err := ParseFileType(filepath.Ext(fileName)); err == nil && ft != "" {
		return ft
	}

	head := strings.ToUpper(text[:min(len(text), 1024)])
	if strings.Contains(head, "OFXHEADER") || strings.Contains(head, "<OFX>") {
		return FileTypeOFX
	}

	return FileTypeCSV
}

// Field names of a structured transaction block.
const (
	FieldDatePosted = "DTPOSTED"
	FieldAmount     = "TRNAMT"
	FieldFITID      = "FITID"
	FieldName       = "NAME"
	FieldMemo       = "MEMO"
	FieldCheckNum   = "CHECKNUM"
	FieldTrnType    = "TRNTYPE"
)

// StructuredHeaders is the fixed header set of every structured file.
var StructuredHeaders = []string{
	FieldDatePosted, FieldAmount, FieldFITID, FieldName, FieldMemo, FieldCheckNum, FieldTrnType,
}

// RawRow is one source row keyed by header name. Index is the 1-based file
// line for delimited files and the 1-based block number for structured ones.
type RawRow struct {
	Index  int
	Values map[string]string
}

func (r RawRow) Get(header string) string {
	return r.Values[header]
}

type Parsed struct {
	FileType  FileType
	Headers   []string
	Rows      []RawRow
	Delimiter rune
	// Strict is false when a structured file needed the tolerant scanner.
	Strict bool
}

type Options struct {
	Delimiter  rune
	HeaderLine int
}

type ErrorKind string

const (
	KindUnsupportedFormat ErrorKind = "unsupported_format"
	KindUnreadable        ErrorKind = "unreadable"
	KindEmpty             ErrorKind = "empty"
)

const HintReexport = "re-export this file as a text/CSV format"

// FormatError aborts an import before any row is processed.
type FormatError struct {
	Kind ErrorKind
	Hint string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error (%s): %v", e.Kind, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatError(kind ErrorKind, hint string, format string, args ...any) *FormatError {
	return &FormatError{Kind: kind, Hint: hint, Err: fmt.Errorf(format, args...)}
}

// IsFormatError reports whether err is a *FormatError of the given kind.
func IsFormatError(err error, kind ErrorKind) bool {
	var fe *FormatError
	return errors.As(err, &fe) && fe.Kind == kind
}
