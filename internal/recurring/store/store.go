package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/recurring"
	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ReplaceSubscriptions(ctx context.Context, accountID uuid.UUID, subs []*recurring.Subscription) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recurring_transactions WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("clearing subscriptions: %w", err)
	}

	query := `
		INSERT INTO recurring_transactions (
			account_id, merchant_name, amount, frequency, confidence, is_essential,
			last_date, transaction_count, monthly_equivalent, detected_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, detected_at
	`

	for _, sub := range subs {
		err := tx.QueryRowContext(ctx, query,
			accountID,
			sub.MerchantName,
			sub.Amount,
			sub.Frequency,
			sub.Confidence,
			sub.IsEssential,
			sub.LastDate,
			sub.TransactionCount,
			sub.MonthlyEquivalent,
		).Scan(&sub.ID, &sub.DetectedAt)
		if err != nil {
			return fmt.Errorf("inserting subscription: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) ListSubscriptions(ctx context.Context, accountID *uuid.UUID) ([]*recurring.Subscription, error) {
	query := `
		SELECT id, account_id, merchant_name, amount, frequency, confidence, is_essential,
			last_date, transaction_count, monthly_equivalent, detected_at
		FROM recurring_transactions
	`

	var args []any
	if accountID != nil {
		query += " WHERE account_id = $1"

		args = append(args, *accountID)
	}

	query += " ORDER BY monthly_equivalent DESC, merchant_name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*recurring.Subscription

	for rows.Next() {
		var sub recurring.Subscription

		var frequency string

		if err := rows.Scan(
			&sub.ID, &sub.AccountID, &sub.MerchantName, &sub.Amount, &frequency, &sub.Confidence, &sub.IsEssential,
			&sub.LastDate, &sub.TransactionCount, &sub.MonthlyEquivalent, &sub.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}

		sub.Frequency = recurring.Frequency(frequency)
		sub.LastDate = transaction.CalendarDate(sub.LastDate)
		subs = append(subs, &sub)
	}

	return subs, rows.Err()
}
