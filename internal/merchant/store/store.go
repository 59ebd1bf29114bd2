package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrJamesThe3rd/bankfeed/internal/merchant"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindMatch(ctx context.Context, ownerID, rawDescription string) (string, error) {
	query := `
		SELECT merchant_name
		FROM merchant_aliases
		WHERE owner_id = $1 AND $2 ILIKE '%' || raw_pattern || '%'
		ORDER BY LENGTH(raw_pattern) DESC, created_at DESC
		LIMIT 1
	`

	var name string

	err := s.db.QueryRowContext(ctx, query, ownerID, rawDescription).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}

		return "", fmt.Errorf("finding merchant alias: %w", err)
	}

	return name, nil
}

func (s *Store) ListAliases(ctx context.Context, ownerID string) ([]*merchant.Alias, error) {
	query := `
		SELECT id, owner_id, raw_pattern, merchant_name, created_at
		FROM merchant_aliases
		WHERE owner_id = $1
		ORDER BY LENGTH(raw_pattern) DESC, created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing merchant aliases: %w", err)
	}
	defer rows.Close()

	var aliases []*merchant.Alias

	for rows.Next() {
		var a merchant.Alias
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.RawPattern, &a.MerchantName, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning merchant alias: %w", err)
		}

		aliases = append(aliases, &a)
	}

	return aliases, rows.Err()
}

func (s *Store) CreateAlias(ctx context.Context, a *merchant.Alias) error {
	query := `
		INSERT INTO merchant_aliases (owner_id, raw_pattern, merchant_name, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`

	if err := s.db.QueryRowContext(ctx, query, a.OwnerID, a.RawPattern, a.MerchantName).Scan(&a.ID, &a.CreatedAt); err != nil {
		return fmt.Errorf("creating merchant alias: %w", err)
	}

	return nil
}
