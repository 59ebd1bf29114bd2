// Package reconcile links hand-entered checks to the bank transactions that
// cleared them.
package reconcile

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

var (
	ErrNotFound                  = errors.New("check not found")
	ErrCheckNotPending           = errors.New("check is not pending")
	ErrTransactionAlreadyMatched = errors.New("transaction is already matched to another check")
	ErrAccountMismatch           = errors.New("check and transaction belong to different accounts")
	ErrInvalidCheck              = errors.New("invalid check")
)

type Status string

const (
	StatusPending Status = "pending"
	StatusCleared Status = "cleared"
	StatusVoid    Status = "void"
)

// Check is a check-register entry. Amount is always positive.
type Check struct {
	ID                   uuid.UUID
	AccountID            uuid.UUID
	CheckNumber          string
	Payee                string
	Amount               decimal.Decimal
	DateWritten          time.Time
	Status               Status
	MatchedTransactionID *uuid.UUID
	CreatedAt            time.Time
	UpdatedAt            *time.Time
}

// NormalizeNumber keeps only the digits of a check number, without leading
// zeros, so "#001042" and "1042" compare equal.
func NormalizeNumber(s string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}

		return -1
	}, s)

	if digits == "" {
		return ""
	}

	if trimmed := strings.TrimLeft(digits, "0"); trimmed != "" {
		return trimmed
	}

	return "0"
}

// FindCandidates returns the transactions that could have cleared c: same
// account, same normalized check number and an absolute amount equal to the
// check's. Transactions in taken are already matched to another check and
// are left out. The input order is kept.
func FindCandidates(c *Check, txs []*transaction.Transaction, taken map[uuid.UUID]uuid.UUID) []*transaction.Transaction {
	number := NormalizeNumber(c.CheckNumber)
	if number == "" {
		return nil
	}

	var out []*transaction.Transaction

	for _, tx := range txs {
		if tx.AccountID != c.AccountID || NormalizeNumber(tx.CheckNumber) != number {
			continue
		}

		if !tx.Amount.Abs().Equal(c.Amount) {
			continue
		}

		if owner, ok := taken[tx.ID]; ok && owner != c.ID {
			continue
		}

		out = append(out, tx)
	}

	return out
}
