package transaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error

	// BeginImport opens a store transaction holding the account's import lock.
	BeginImport(ctx context.Context, accountID uuid.UUID) (ImportTx, error)
}

type ImportTx interface {
	// ListExisting returns the account's transactions dated within [from, to]
	// or carrying one of externalIDs.
	ListExisting(ctx context.Context, accountID uuid.UUID, from, to time.Time, externalIDs []string) ([]*Transaction, error)
	// InsertTransactions stores txs and returns the ones rejected by the
	// (account_id, external_id) unique constraint.
	InsertTransactions(ctx context.Context, txs []*Transaction) ([]*Transaction, error)
	Commit() error
	Rollback() error
}

// Deduper splits candidates into new and already-known transactions.
type Deduper interface {
	Dedupe(candidates, existing []*Transaction) (toInsert, duplicates []*Transaction)
	ToleranceDays() int
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type ListFilter struct {
	AccountID    *uuid.UUID
	StartDate    *time.Time
	EndDate      *time.Time
	OutflowsOnly bool
}

// UpdateParams holds the user-editable fields; nil leaves a field unchanged.
type UpdateParams struct {
	Description  *string
	MerchantName *string
	Category     *string
	Notes        *string
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, filter)
}

// Update applies a user edit. Amount, date and the source identifiers are
// never changed after import.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Description != nil {
		tx.Description = strings.TrimSpace(*params.Description)
	}

	if params.MerchantName != nil {
		tx.MerchantName = strings.TrimSpace(*params.MerchantName)
	}

	if params.Category != nil {
		tx.Category = strings.TrimSpace(*params.Category)
	}

	if params.Notes != nil {
		tx.Notes = *params.Notes
	}

	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

type ImportResult struct {
	Inserted   []*Transaction
	Duplicates []*Transaction
}

// ImportBatch deduplicates candidates against the account's stored
// transactions and inserts the rest, all under the account's import lock.
// Rows the unique constraint still rejects are reported as duplicates.
func (s *Service) ImportBatch(ctx context.Context, accountID uuid.UUID, candidates []*Transaction, d Deduper) (*ImportResult, error) {
	if len(candidates) == 0 {
		return &ImportResult{}, nil
	}

	itx, err := s.repo.BeginImport(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	minDate, maxDate := dateRange(candidates)
	tolerance := time.Duration(d.ToleranceDays()) * 24 * time.Hour

	existing, err := itx.ListExisting(ctx, accountID, minDate.Add(-tolerance), maxDate.Add(tolerance), externalIDs(candidates))
	if err != nil {
		return nil, fmt.Errorf("list existing: %w", err)
	}

	toInsert, duplicates := d.Dedupe(candidates, existing)

	conflicts, err := itx.InsertTransactions(ctx, toInsert)
	if err != nil {
		return nil, fmt.Errorf("insert transactions: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	inserted := toInsert
	if len(conflicts) > 0 {
		rejected := make(map[*Transaction]bool, len(conflicts))
		for _, c := range conflicts {
			rejected[c] = true
		}

		inserted = make([]*Transaction, 0, len(toInsert)-len(conflicts))

		for _, tx := range toInsert {
			if !rejected[tx] {
				inserted = append(inserted, tx)
			}
		}

		duplicates = append(duplicates, conflicts...)
	}

	return &ImportResult{Inserted: inserted, Duplicates: duplicates}, nil
}

func dateRange(txs []*Transaction) (time.Time, time.Time) {
	minDate := txs[0].Date
	maxDate := txs[0].Date

	for _, t := range txs[1:] {
		if t.Date.Before(minDate) {
			minDate = t.Date
		}

		if t.Date.After(maxDate) {
			maxDate = t.Date
		}
	}

	return minDate, maxDate
}

func externalIDs(txs []*Transaction) []string {
	var ids []string

	for _, t := range txs {
		if t.ExternalID != "" {
			ids = append(ids, t.ExternalID)
		}
	}

	return ids
}
