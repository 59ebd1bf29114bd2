package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/importer"
	"github.com/MrJamesThe3rd/bankfeed/internal/mapping"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectProfileColumns = `
	id, owner_id, name, file_type, column_mapping, date_format, default_account_id, created_at, updated_at
`

func scanProfile(s scanner) (*mapping.Profile, error) {
	var p mapping.Profile

	var fileType string

	var raw []byte

	var dateFormat sql.NullString

	if err := s.Scan(
		&p.ID, &p.OwnerID, &p.Name, &fileType, &raw, &dateFormat, &p.DefaultAccountID,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(raw, &p.Mapping); err != nil {
		return nil, fmt.Errorf("decoding column mapping: %w", err)
	}

	p.FileType = importer.FileType(fileType)
	p.DateFormat = dateFormat.String

	return &p, nil
}

func (s *Store) CreateProfile(ctx context.Context, p *mapping.Profile) error {
	raw, err := json.Marshal(p.Mapping)
	if err != nil {
		return fmt.Errorf("encoding column mapping: %w", err)
	}

	query := `
		INSERT INTO import_profiles (owner_id, name, file_type, column_mapping, date_format, default_account_id, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NOW())
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		p.OwnerID,
		p.Name,
		p.FileType,
		string(raw),
		p.DateFormat,
		p.DefaultAccountID,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating profile: %w", err)
	}

	return nil
}

func (s *Store) GetProfile(ctx context.Context, ownerID string, id uuid.UUID) (*mapping.Profile, error) {
	query := `SELECT ` + selectProfileColumns + `
		FROM import_profiles
		WHERE id = $1 AND owner_id = $2`

	p, err := scanProfile(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, mapping.ErrNotFound
		}

		return nil, fmt.Errorf("getting profile: %w", err)
	}

	return p, nil
}

func (s *Store) ListProfiles(ctx context.Context, ownerID string, fileType importer.FileType) ([]*mapping.Profile, error) {
	query := `SELECT ` + selectProfileColumns + `
		FROM import_profiles
		WHERE owner_id = $1`

	args := []any{ownerID}

	if fileType != "" {
		query += " AND file_type = $2"

		args = append(args, fileType)
	}

	query += " ORDER BY COALESCE(updated_at, created_at) DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*mapping.Profile

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}

		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profiles: %w", err)
	}

	return profiles, nil
}

func (s *Store) UpdateProfile(ctx context.Context, p *mapping.Profile) error {
	raw, err := json.Marshal(p.Mapping)
	if err != nil {
		return fmt.Errorf("encoding column mapping: %w", err)
	}

	query := `
		UPDATE import_profiles
		SET name = $1, file_type = $2, column_mapping = $3, date_format = NULLIF($4, ''),
			default_account_id = $5, updated_at = NOW()
		WHERE id = $6 AND owner_id = $7
		RETURNING updated_at
	`

	err = s.db.QueryRowContext(ctx, query,
		p.Name,
		p.FileType,
		string(raw),
		p.DateFormat,
		p.DefaultAccountID,
		p.ID,
		p.OwnerID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mapping.ErrNotFound
		}

		return fmt.Errorf("updating profile: %w", err)
	}

	return nil
}

func (s *Store) DeleteProfile(ctx context.Context, ownerID string, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM import_profiles WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}

	if n == 0 {
		return mapping.ErrNotFound
	}

	return nil
}
