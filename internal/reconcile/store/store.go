package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/database"
	"github.com/MrJamesThe3rd/bankfeed/internal/reconcile"
	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

const matchedConstraint = "checks_matched_transaction_key"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectCheckColumns = `
	id, account_id, check_number, payee, amount, date_written,
	status, matched_transaction_id, created_at, updated_at
`

type scanner interface {
	Scan(dest ...any) error
}

func scanCheck(s scanner) (*reconcile.Check, error) {
	var c reconcile.Check

	var status string

	if err := s.Scan(
		&c.ID, &c.AccountID, &c.CheckNumber, &c.Payee, &c.Amount, &c.DateWritten,
		&status, &c.MatchedTransactionID, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	c.Status = reconcile.Status(status)
	c.DateWritten = transaction.CalendarDate(c.DateWritten)

	return &c, nil
}

func (s *Store) CreateCheck(ctx context.Context, c *reconcile.Check) error {
	query := `
		INSERT INTO checks (account_id, check_number, payee, amount, date_written, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		c.AccountID,
		c.CheckNumber,
		c.Payee,
		c.Amount,
		c.DateWritten,
		c.Status,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating check: %w", err)
	}

	return nil
}

func (s *Store) GetCheck(ctx context.Context, id uuid.UUID) (*reconcile.Check, error) {
	query := `SELECT ` + selectCheckColumns + ` FROM checks WHERE id = $1`

	c, err := scanCheck(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reconcile.ErrNotFound
		}

		return nil, fmt.Errorf("getting check: %w", err)
	}

	return c, nil
}

func (s *Store) ListChecks(ctx context.Context, filter reconcile.ListFilter) ([]*reconcile.Check, error) {
	query := `SELECT ` + selectCheckColumns + ` FROM checks WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.AccountID != nil {
		query += fmt.Sprintf(" AND account_id = $%d", argIdx)

		args = append(args, *filter.AccountID)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)

		args = append(args, filter.Status)
	}

	query += " ORDER BY date_written ASC, created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing checks: %w", err)
	}
	defer rows.Close()

	var checks []*reconcile.Check

	for rows.Next() {
		c, err := scanCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning check: %w", err)
		}

		checks = append(checks, c)
	}

	return checks, rows.Err()
}

func (s *Store) MatchedTransactions(ctx context.Context, accountID uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	query := `
		SELECT matched_transaction_id, id
		FROM checks
		WHERE account_id = $1 AND matched_transaction_id IS NOT NULL
	`

	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing matched transactions: %w", err)
	}
	defer rows.Close()

	matched := make(map[uuid.UUID]uuid.UUID)

	for rows.Next() {
		var txID, checkID uuid.UUID
		if err := rows.Scan(&txID, &checkID); err != nil {
			return nil, fmt.Errorf("scanning matched transaction: %w", err)
		}

		matched[txID] = checkID
	}

	return matched, rows.Err()
}

type matchTx struct {
	tx *sql.Tx
}

func (s *Store) BeginMatch(ctx context.Context) (reconcile.MatchTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning match tx: %w", err)
	}

	return &matchTx{tx: tx}, nil
}

func (m *matchTx) Commit() error   { return m.tx.Commit() }
func (m *matchTx) Rollback() error { return m.tx.Rollback() }

func (m *matchTx) LockCheck(ctx context.Context, id uuid.UUID) (*reconcile.Check, error) {
	query := `SELECT ` + selectCheckColumns + ` FROM checks WHERE id = $1 FOR UPDATE`

	c, err := scanCheck(m.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reconcile.ErrNotFound
		}

		return nil, fmt.Errorf("locking check: %w", err)
	}

	return c, nil
}

func (m *matchTx) MatchedBy(ctx context.Context, transactionID uuid.UUID) (*uuid.UUID, error) {
	query := `SELECT id FROM checks WHERE matched_transaction_id = $1 FOR UPDATE`

	var id uuid.UUID

	err := m.tx.QueryRowContext(ctx, query, transactionID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("finding check for transaction: %w", err)
	}

	return &id, nil
}

// UpdateStatus relies on checks_matched_transaction_key when two matches
// race for the same transaction.
func (m *matchTx) UpdateStatus(ctx context.Context, c *reconcile.Check) error {
	query := `
		UPDATE checks
		SET status = $1, matched_transaction_id = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at
	`

	err := m.tx.QueryRowContext(ctx, query, c.Status, c.MatchedTransactionID, c.ID).Scan(&c.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, matchedConstraint) {
			return reconcile.ErrTransactionAlreadyMatched
		}

		if errors.Is(err, sql.ErrNoRows) {
			return reconcile.ErrNotFound
		}

		return fmt.Errorf("updating check: %w", err)
	}

	return nil
}
