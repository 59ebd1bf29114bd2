package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/account"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	query := `
		INSERT INTO accounts (owner_id, name, institution, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NOW())
		RETURNING id, created_at
	`

	if err := s.db.QueryRowContext(ctx, query, a.OwnerID, a.Name, a.Institution).Scan(&a.ID, &a.CreatedAt); err != nil {
		return fmt.Errorf("creating account: %w", err)
	}

	return nil
}

func (s *Store) GetAccount(ctx context.Context, ownerID string, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT id, owner_id, name, COALESCE(institution, ''), created_at
		FROM accounts
		WHERE id = $1 AND owner_id = $2
	`

	var a account.Account

	err := s.db.QueryRowContext(ctx, query, id, ownerID).Scan(&a.ID, &a.OwnerID, &a.Name, &a.Institution, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrNotFound
		}

		return nil, fmt.Errorf("getting account: %w", err)
	}

	return &a, nil
}

func (s *Store) ListAccounts(ctx context.Context, ownerID string) ([]*account.Account, error) {
	query := `
		SELECT id, owner_id, name, COALESCE(institution, ''), created_at
		FROM accounts
		WHERE owner_id = $1
		ORDER BY name, id
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account

	for rows.Next() {
		var a account.Account
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Institution, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}

		accounts = append(accounts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}

	return accounts, nil
}
