package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTransaction expects the columns of selectTransactionColumns, in order.
func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	var merchant, memo, checkNumber, externalID, category, notes sql.NullString

	var source string

	if err := s.Scan(
		&tx.ID, &tx.AccountID, &tx.Date, &tx.Amount, &tx.Description,
		&merchant, &memo, &checkNumber, &externalID, &category, &notes,
		&source, &tx.ImportSessionID, &tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tx.Date = transaction.CalendarDate(tx.Date)
	tx.MerchantName = merchant.String
	tx.Memo = memo.String
	tx.CheckNumber = checkNumber.String
	tx.ExternalID = externalID.String
	tx.Category = category.String
	tx.Notes = notes.String
	tx.Source = transaction.Source(source)

	return &tx, nil
}

const selectTransactionColumns = `
	id, account_id, date, amount, description,
	merchant_name, memo, check_number, external_id, category, notes,
	source, import_session_id, created_at, updated_at
`

func collect(rows *sql.Rows) ([]*transaction.Transaction, error) {
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE id = $1`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.AccountID != nil {
		query += fmt.Sprintf(" AND account_id = $%d", argIdx)

		args = append(args, *filter.AccountID)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	if filter.OutflowsOnly {
		query += " AND amount < 0"
	}

	query += " ORDER BY date ASC, created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	return collect(rows)
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET description = $1, merchant_name = NULLIF($2, ''), category = NULLIF($3, ''),
			notes = NULLIF($4, ''), updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		tx.Description,
		tx.MerchantName,
		tx.Category,
		tx.Notes,
		tx.ID,
	).Scan(&tx.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transaction.ErrNotFound
		}

		return fmt.Errorf("updating transaction: %w", err)
	}

	return nil
}

func importLockKey(accountID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write([]byte("import"))
	h.Write([]byte{0})
	h.Write(accountID[:])

	return int64(h.Sum64())
}

type importTx struct {
	tx *sql.Tx
}

// BeginImport serializes imports into one account across processes with a
// transaction-scoped advisory lock.
func (s *Store) BeginImport(ctx context.Context, accountID uuid.UUID) (transaction.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", importLockKey(accountID)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: dbTx}, nil
}

func (itx *importTx) Commit() error   { return itx.tx.Commit() }
func (itx *importTx) Rollback() error { return itx.tx.Rollback() }

func (itx *importTx) ListExisting(ctx context.Context, accountID uuid.UUID, from, to time.Time, externalIDs []string) ([]*transaction.Transaction, error) {
	if externalIDs == nil {
		externalIDs = []string{}
	}

	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE account_id = $1
			AND ((date >= $2 AND date <= $3) OR external_id = ANY($4))
		ORDER BY date ASC, created_at ASC, id ASC`

	rows, err := itx.tx.QueryContext(ctx, query, accountID, from, to, externalIDs)
	if err != nil {
		return nil, fmt.Errorf("listing existing transactions: %w", err)
	}

	return collect(rows)
}

// InsertTransactions skips rows that collide on (account_id, external_id)
// and returns them; every other row gets its id and timestamps.
func (itx *importTx) InsertTransactions(ctx context.Context, txs []*transaction.Transaction) ([]*transaction.Transaction, error) {
	query := `
		INSERT INTO transactions (
			account_id, date, amount, description, merchant_name, memo, check_number,
			external_id, category, notes, source, import_session_id, created_at
		)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''),
			NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11, $12, NOW())
		ON CONFLICT (account_id, external_id) WHERE external_id IS NOT NULL DO NOTHING
		RETURNING id, created_at
	`

	var conflicts []*transaction.Transaction

	for _, tx := range txs {
		err := itx.tx.QueryRowContext(ctx, query,
			tx.AccountID,
			tx.Date,
			tx.Amount,
			tx.Description,
			tx.MerchantName,
			tx.Memo,
			tx.CheckNumber,
			tx.ExternalID,
			tx.Category,
			tx.Notes,
			tx.Source,
			tx.ImportSessionID,
		).Scan(&tx.ID, &tx.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			conflicts = append(conflicts, tx)
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("creating transaction: %w", err)
		}
	}

	return conflicts, nil
}
