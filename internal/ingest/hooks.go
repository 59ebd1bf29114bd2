package ingest

import (
	"context"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

type hookFunc struct {
	name string
	fn   func(ctx context.Context, s *Session, inserted []*transaction.Transaction) error
}

func (h hookFunc) Name() string { return h.name }

func (h hookFunc) AfterImport(ctx context.Context, s *Session, inserted []*transaction.Transaction) error {
	return h.fn(ctx, s, inserted)
}

// NewHook adapts fn into a Hook.
func NewHook(name string, fn func(ctx context.Context, s *Session, inserted []*transaction.Transaction) error) Hook {
	return hookFunc{name: name, fn: fn}
}

// AccountHook runs fn with the session's account, for collaborators that
// rescan a whole account (check auto-match, subscription detection).
func AccountHook(name string, fn func(ctx context.Context, accountID uuid.UUID) error) Hook {
	return NewHook(name, func(ctx context.Context, s *Session, _ []*transaction.Transaction) error {
		if s.AccountID == nil {
			return nil
		}

		return fn(ctx, *s.AccountID)
	})
}
