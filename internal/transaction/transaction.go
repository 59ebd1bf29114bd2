package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("transaction not found")

// Source records how a transaction entered the system.
type Source string

const (
	SourceFile     Source = "file"
	SourceBankLink Source = "bank_link"
	SourceManual   Source = "manual"
)

// Transaction is the canonical record. Amount is signed: negative is money
// out, positive is money in, whatever the source layout. Date is a calendar
// date at UTC midnight.
type Transaction struct {
	ID              uuid.UUID
	AccountID       uuid.UUID
	Date            time.Time
	Amount          decimal.Decimal
	Description     string
	MerchantName    string
	Memo            string
	CheckNumber     string
	ExternalID      string // bank-assigned id (OFX FITID); empty when the source has none
	Category        string
	Notes           string
	Source          Source
	ImportSessionID *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

func (t *Transaction) IsOutflow() bool {
	return t.Amount.IsNegative()
}

// CalendarDate truncates t to its date at UTC midnight.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
