// Package normalize turns raw rows into canonical transactions using a
// resolved column mapping.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/bankfeed/internal/importer"
	"github.com/MrJamesThe3rd/bankfeed/internal/mapping"
	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

type ErrorKind string

const (
	KindInvalidDate   ErrorKind = "invalid_date"
	KindInvalidAmount ErrorKind = "invalid_amount"
	KindTimeout       ErrorKind = "timeout"
)

// ValidationError means one field of one row could not be coerced.
type ValidationError struct {
	Kind  ErrorKind
	Field mapping.Field
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}

	return fmt.Sprintf("%s: %s %q: %v", e.Kind, e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// RowError ties a ValidationError to the source row it came from.
type RowError struct {
	Row int
	Err *ValidationError
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

type Normalizer struct {
	source transaction.Source
}

func New() *Normalizer {
	return &Normalizer{source: transaction.SourceFile}
}

// Normalize converts every row, in order. Each row yields either a
// transaction or a RowError. Rows not reached before ctx is done are
// reported as timeouts.
func (n *Normalizer) Normalize(ctx context.Context, rows []importer.RawRow, res *mapping.Resolution, accountID uuid.UUID) ([]*transaction.Transaction, []RowError) {
	cols := columnsOf(res.Mapping)

	txs := make([]*transaction.Transaction, 0, len(rows))

	var rowErrs []RowError

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			for _, rest := range rows[i:] {
				rowErrs = append(rowErrs, RowError{
					Row: rest.Index,
					Err: &ValidationError{Kind: KindTimeout, Err: err},
				})
			}

			break
		}

		tx, verr := n.row(row, cols, res.DateFormat, accountID)
		if verr != nil {
			rowErrs = append(rowErrs, RowError{Row: row.Index, Err: verr})
			continue
		}

		txs = append(txs, tx)
	}

	return txs, rowErrs
}

// columns holds the header chosen for each field; empty means unmapped.
type columns struct {
	date, amount, debit, credit     string
	description, memo, check, refID string
}

func columnsOf(m mapping.ColumnMapping) columns {
	get := func(f mapping.Field) string {
		h, _ := m.Header(f)
		return h
	}

	return columns{
		date:        get(mapping.FieldDate),
		amount:      get(mapping.FieldAmount),
		debit:       get(mapping.FieldDebit),
		credit:      get(mapping.FieldCredit),
		description: get(mapping.FieldDescription),
		memo:        get(mapping.FieldMemo),
		check:       get(mapping.FieldCheckNumber),
		refID:       get(mapping.FieldReferenceID),
	}
}

func (c columns) value(row importer.RawRow, header string) string {
	if header == "" {
		return ""
	}

	return row.Get(header)
}

func (n *Normalizer) row(row importer.RawRow, c columns, dateFormat string, accountID uuid.UUID) (*transaction.Transaction, *ValidationError) {
	rawDate := c.value(row, c.date)

	date, err := ParseDate(rawDate, dateFormat)
	if err != nil {
		return nil, &ValidationError{Kind: KindInvalidDate, Field: mapping.FieldDate, Value: rawDate, Err: err}
	}

	amount, verr := c.amountOf(row)
	if verr != nil {
		return nil, verr
	}

	description := CleanText(c.value(row, c.description))
	memo := CleanText(c.value(row, c.memo))

	if description == "" {
		description = memo
	}

	return &transaction.Transaction{
		AccountID:    accountID,
		Date:         date,
		Amount:       amount,
		Description:  description,
		MerchantName: description,
		Memo:         memo,
		CheckNumber:  CleanText(c.value(row, c.check)),
		ExternalID:   strings.TrimSpace(c.value(row, c.refID)),
		Source:       n.source,
	}, nil
}

// amountOf applies the sign convention: a signed amount column is taken
// as is; with debit and credit columns a non-zero debit is negated,
// otherwise the credit is positive.
func (c columns) amountOf(row importer.RawRow) (decimal.Decimal, *ValidationError) {
	if c.amount != "" {
		raw := row.Get(c.amount)

		d, err := ParseAmount(raw)
		if err != nil {
			return decimal.Zero, &ValidationError{Kind: KindInvalidAmount, Field: mapping.FieldAmount, Value: raw, Err: err}
		}

		return d, nil
	}

	rawDebit := c.value(row, c.debit)
	rawCredit := c.value(row, c.credit)

	debit, err := ParseAmount(rawDebit)
	if err != nil && !errors.Is(err, errBlank) {
		return decimal.Zero, &ValidationError{Kind: KindInvalidAmount, Field: mapping.FieldDebit, Value: rawDebit, Err: err}
	}

	debitSet := err == nil

	if debitSet && !debit.IsZero() {
		return debit.Abs().Neg(), nil
	}

	credit, err := ParseAmount(rawCredit)
	if err != nil {
		if errors.Is(err, errBlank) && debitSet {
			return decimal.Zero, nil
		}

		if errors.Is(err, errBlank) {
			err = errors.New("neither debit nor credit is set")
		}

		return decimal.Zero, &ValidationError{Kind: KindInvalidAmount, Field: mapping.FieldCredit, Value: rawCredit, Err: err}
	}

	return credit.Abs(), nil
}

// CleanText trims s and collapses inner runs of whitespace.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
