package mapping

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/importer"
)

// Field is the semantic meaning of a source column.
type Field string

const (
	FieldDate        Field = "date"
	FieldAmount      Field = "amount"
	FieldDebit       Field = "debit"
	FieldCredit      Field = "credit"
	FieldDescription Field = "description"
	FieldMemo        Field = "memo"
	FieldCheckNumber Field = "checkNumber"
	FieldReferenceID Field = "referenceId"
	FieldBalance     Field = "balance"
	FieldSkip        Field = "skip"
)

var Fields = []Field{
	FieldDate, FieldAmount, FieldDebit, FieldCredit, FieldDescription,
	FieldMemo, FieldCheckNumber, FieldReferenceID, FieldBalance, FieldSkip,
}

func (f Field) Valid() bool {
	return slices.Contains(Fields, f)
}

// ColumnMapping assigns a field to each source header.
type ColumnMapping map[string]Field

// Header returns the header mapped to f. When several are, the
// alphabetically first wins so the choice is stable.
func (m ColumnMapping) Header(f Field) (string, bool) {
	var found []string

	for h, v := range m {
		if v == f {
			found = append(found, h)
		}
	}

	if len(found) == 0 {
		return "", false
	}

	slices.Sort(found)

	return found[0], true
}

func (m ColumnMapping) Has(f Field) bool {
	_, ok := m.Header(f)
	return ok
}

// Validate checks field names and the required set: date, and amount or
// both debit and credit.
func (m ColumnMapping) Validate() error {
	var invalid []string

	for h, f := range m {
		if !f.Valid() {
			invalid = append(invalid, fmt.Sprintf("%s=%s", h, f))
		}
	}

	var missing []Field
	if !m.Has(FieldDate) {
		missing = append(missing, FieldDate)
	}

	if !m.Has(FieldAmount) {
		switch {
		case m.Has(FieldDebit) && !m.Has(FieldCredit):
			missing = append(missing, FieldCredit)
		case m.Has(FieldCredit) && !m.Has(FieldDebit):
			missing = append(missing, FieldDebit)
		case !m.Has(FieldDebit) && !m.Has(FieldCredit):
			missing = append(missing, FieldAmount)
		}
	}

	if len(invalid) == 0 && len(missing) == 0 {
		return nil
	}

	slices.Sort(invalid)

	return &MappingError{Missing: missing, Invalid: invalid}
}

// MappingError means required fields are unmapped. It aborts an import
// before normalization.
type MappingError struct {
	Missing []Field
	Invalid []string
	// Suggested is a best-effort mapping the caller may review and resubmit.
	Suggested           ColumnMapping
	SuggestedDateFormat string
}

func (e *MappingError) Error() string {
	var parts []string

	if len(e.Missing) > 0 {
		names := make([]string, len(e.Missing))
		for i, f := range e.Missing {
			names[i] = string(f)
		}

		parts = append(parts, "missing required fields: "+strings.Join(names, ", "))
	}

	if len(e.Invalid) > 0 {
		parts = append(parts, "unknown fields: "+strings.Join(e.Invalid, ", "))
	}

	return "column mapping " + strings.Join(parts, "; ")
}

func (e *MappingError) Hint() string {
	return "map a date column and either an amount column or both debit and credit columns, then retry"
}

// Profile is a saved mapping reused for files with the same headers.
type Profile struct {
	ID               uuid.UUID
	OwnerID          string
	Name             string
	FileType         importer.FileType
	Mapping          ColumnMapping
	DateFormat       string
	DefaultAccountID *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        *time.Time
}

// Matches reports whether the profile was saved for exactly this header set.
// A profile saved without its skip columns only matches files that lack them;
// saving it with ProfileParams.Headers covers the whole row.
func (p *Profile) Matches(fileType importer.FileType, headers []string) bool {
	if p.FileType != fileType || len(p.Mapping) != len(headers) {
		return false
	}

	want := make(map[string]bool, len(headers))
	for _, h := range headers {
		want[normalizeHeader(h)] = true
	}

	if len(want) != len(headers) {
		return false
	}

	for h := range p.Mapping {
		if !want[normalizeHeader(h)] {
			return false
		}
	}

	return true
}

// rekey returns the profile mapping keyed by the file's own header spelling.
func (p *Profile) rekey(headers []string) ColumnMapping {
	byNorm := make(map[string]Field, len(p.Mapping))
	for h, f := range p.Mapping {
		byNorm[normalizeHeader(h)] = f
	}

	out := make(ColumnMapping, len(headers))
	for _, h := range headers {
		if f, ok := byNorm[normalizeHeader(h)]; ok {
			out[h] = f
		}
	}

	return out
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

// Fingerprint identifies a header set independent of order, case and spacing.
func Fingerprint(headers []string) string {
	norm := make([]string, len(headers))
	for i, h := range headers {
		norm[i] = normalizeHeader(h)
	}

	slices.Sort(norm)

	sum := sha256.Sum256([]byte(strings.Join(norm, "|")))

	return hex.EncodeToString(sum[:8])
}

// StructuredDateFormat is the date layout of every structured row.
const StructuredDateFormat = "YYYYMMDD"

// Structured is the identity mapping for OFX/QFX rows.
func Structured() ColumnMapping {
	return ColumnMapping{
		importer.FieldDatePosted: FieldDate,
		importer.FieldAmount:     FieldAmount,
		importer.FieldFITID:      FieldReferenceID,
		importer.FieldName:       FieldDescription,
		importer.FieldMemo:       FieldMemo,
		importer.FieldCheckNum:   FieldCheckNumber,
		importer.FieldTrnType:    FieldSkip,
	}
}
