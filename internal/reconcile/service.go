package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=reconcile
type Repository interface {
	CreateCheck(ctx context.Context, c *Check) error
	GetCheck(ctx context.Context, id uuid.UUID) (*Check, error)
	ListChecks(ctx context.Context, filter ListFilter) ([]*Check, error)
	// MatchedTransactions maps each matched transaction of the account to
	// the check it cleared.
	MatchedTransactions(ctx context.Context, accountID uuid.UUID) (map[uuid.UUID]uuid.UUID, error)
	BeginMatch(ctx context.Context) (MatchTx, error)
}

// MatchTx is a store transaction in which the check row is locked.
type MatchTx interface {
	LockCheck(ctx context.Context, id uuid.UUID) (*Check, error)
	// MatchedBy returns the check matched to the transaction, if any.
	MatchedBy(ctx context.Context, transactionID uuid.UUID) (*uuid.UUID, error)
	UpdateStatus(ctx context.Context, c *Check) error
	Commit() error
	Rollback() error
}

// Transactions reads the cleared side of a match.
type Transactions interface {
	Get(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
}

type Service struct {
	repo   Repository
	txs    Transactions
	logger *slog.Logger
}

func NewService(repo Repository, txs Transactions, logger *slog.Logger) *Service {
	return &Service{repo: repo, txs: txs, logger: logger}
}

type ListFilter struct {
	AccountID *uuid.UUID
	Status    Status
}

type CreateParams struct {
	AccountID   uuid.UUID
	CheckNumber string
	Payee       string
	Amount      decimal.Decimal
	DateWritten time.Time
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Check, error) {
	c := &Check{
		AccountID:   params.AccountID,
		CheckNumber: strings.TrimSpace(params.CheckNumber),
		Payee:       strings.TrimSpace(params.Payee),
		Amount:      params.Amount.Abs(),
		DateWritten: transaction.CalendarDate(params.DateWritten),
		Status:      StatusPending,
	}

	if NormalizeNumber(c.CheckNumber) == "" {
		return nil, fmt.Errorf("%w: check number must contain digits", ErrInvalidCheck)
	}

	if !c.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidCheck)
	}

	if err := s.repo.CreateCheck(ctx, c); err != nil {
		return nil, fmt.Errorf("create check: %w", err)
	}

	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Check, error) {
	return s.repo.GetCheck(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Check, error) {
	return s.repo.ListChecks(ctx, filter)
}

// Candidates lists the transactions of the check's account that could be its
// match.
func (s *Service) Candidates(ctx context.Context, checkID uuid.UUID) ([]*transaction.Transaction, error) {
	c, err := s.repo.GetCheck(ctx, checkID)
	if err != nil {
		return nil, err
	}

	txs, err := s.txs.List(ctx, transaction.ListFilter{AccountID: &c.AccountID})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	taken, err := s.repo.MatchedTransactions(ctx, c.AccountID)
	if err != nil {
		return nil, fmt.Errorf("list matched transactions: %w", err)
	}

	return FindCandidates(c, txs, taken), nil
}

// Match clears the check against the transaction. Matching the same pair
// again returns the check unchanged.
func (s *Service) Match(ctx context.Context, checkID, transactionID uuid.UUID) (*Check, error) {
	tx, err := s.txs.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	mtx, err := s.repo.BeginMatch(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin match: %w", err)
	}
	defer mtx.Rollback()

	c, err := mtx.LockCheck(ctx, checkID)
	if err != nil {
		return nil, err
	}

	if c.Status == StatusCleared && c.MatchedTransactionID != nil && *c.MatchedTransactionID == transactionID {
		return c, nil
	}

	if c.Status != StatusPending {
		return nil, ErrCheckNotPending
	}

	if tx.AccountID != c.AccountID {
		return nil, ErrAccountMismatch
	}

	owner, err := mtx.MatchedBy(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("lookup match: %w", err)
	}

	if owner != nil && *owner != c.ID {
		return nil, ErrTransactionAlreadyMatched
	}

	c.Status = StatusCleared
	c.MatchedTransactionID = new(transactionID)

	if err := mtx.UpdateStatus(ctx, c); err != nil {
		return nil, err
	}

	if err := mtx.Commit(); err != nil {
		return nil, fmt.Errorf("commit match: %w", err)
	}

	return c, nil
}

// Void marks a pending check as void. Voiding a void check is a no-op.
func (s *Service) Void(ctx context.Context, checkID uuid.UUID) (*Check, error) {
	mtx, err := s.repo.BeginMatch(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin void: %w", err)
	}
	defer mtx.Rollback()

	c, err := mtx.LockCheck(ctx, checkID)
	if err != nil {
		return nil, err
	}

	switch c.Status {
	case StatusVoid:
		return c, nil
	case StatusCleared:
		return nil, ErrCheckNotPending
	}

	c.Status = StatusVoid

	if err := mtx.UpdateStatus(ctx, c); err != nil {
		return nil, err
	}

	if err := mtx.Commit(); err != nil {
		return nil, fmt.Errorf("commit void: %w", err)
	}

	return c, nil
}

type AutoMatchResult struct {
	Matched   []*Check
	Ambiguous int
	Failed    int
}

// AutoMatch clears every pending check of the account that has exactly one
// candidate. Individual failures are logged and counted, never returned.
func (s *Service) AutoMatch(ctx context.Context, accountID uuid.UUID) (*AutoMatchResult, error) {
	checks, err := s.repo.ListChecks(ctx, ListFilter{AccountID: &accountID, Status: StatusPending})
	if err != nil {
		return nil, fmt.Errorf("list pending checks: %w", err)
	}

	result := &AutoMatchResult{}
	if len(checks) == 0 {
		return result, nil
	}

	txs, err := s.txs.List(ctx, transaction.ListFilter{AccountID: &accountID, OutflowsOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	taken, err := s.repo.MatchedTransactions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list matched transactions: %w", err)
	}

	for _, c := range checks {
		candidates := FindCandidates(c, txs, taken)

		switch len(candidates) {
		case 0:
			continue
		case 1:
		default:
			result.Ambiguous++
			continue
		}

		matched, err := s.Match(ctx, c.ID, candidates[0].ID)
		if err != nil {
			if !errors.Is(err, ErrTransactionAlreadyMatched) && !errors.Is(err, ErrCheckNotPending) {
				s.logger.WarnContext(ctx, "auto-match failed", "check_id", c.ID, "transaction_id", candidates[0].ID, "error", err)
			}

			result.Failed++

			continue
		}

		taken[candidates[0].ID] = c.ID
		result.Matched = append(result.Matched, matched)
	}

	return result, nil
}
