package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/ingest"
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

const selectSessionColumns = `
	id, owner_id, account_id, file_name, file_type, header_fingerprint, status,
	total_rows, transactions_created, duplicates_skipped, errors_count,
	error_message, hint, created_at, completed_at
`

func scanSession(s scanner) (*ingest.Session, error) {
	var sess ingest.Session

	var status string

	var fingerprint, errMsg, hint sql.NullString

	if err := s.Scan(
		&sess.ID, &sess.OwnerID, &sess.AccountID, &sess.FileName, &sess.FileType, &fingerprint, &status,
		&sess.TotalRows, &sess.TransactionsCreated, &sess.DuplicatesSkipped, &sess.ErrorsCount,
		&errMsg, &hint, &sess.CreatedAt, &sess.CompletedAt,
	); err != nil {
		return nil, err
	}

	sess.Status = ingest.Status(status)
	sess.HeaderFingerprint = fingerprint.String
	sess.Error = errMsg.String
	sess.Hint = hint.String

	return &sess, nil
}

func (s *Store) CreateSession(ctx context.Context, sess *ingest.Session) error {
	query := `
		INSERT INTO import_sessions (owner_id, account_id, file_name, file_type, status, total_rows, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		sess.OwnerID,
		sess.AccountID,
		sess.FileName,
		sess.FileType,
		sess.Status,
		sess.TotalRows,
	).Scan(&sess.ID, &sess.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating import session: %w", err)
	}

	return nil
}

// UpdateSession only touches sessions that are not yet terminal, so a
// completed or failed session is never rewritten.
func (s *Store) UpdateSession(ctx context.Context, sess *ingest.Session) error {
	query := `
		UPDATE import_sessions
		SET account_id = $2, file_type = $3, header_fingerprint = NULLIF($4, ''), status = $5,
			total_rows = $6, transactions_created = $7, duplicates_skipped = $8, errors_count = $9,
			error_message = NULLIF($10, ''), hint = NULLIF($11, ''), completed_at = $12
		WHERE id = $1 AND status NOT IN ('completed', 'failed')
	`

	res, err := s.db.ExecContext(ctx, query,
		sess.ID,
		sess.AccountID,
		sess.FileType,
		sess.HeaderFingerprint,
		sess.Status,
		sess.TotalRows,
		sess.TransactionsCreated,
		sess.DuplicatesSkipped,
		sess.ErrorsCount,
		sess.Error,
		sess.Hint,
		sess.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("updating import session: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating import session: %w", err)
	}

	if n == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM import_sessions WHERE id = $1)`, sess.ID).Scan(&exists); err != nil {
			return fmt.Errorf("checking import session: %w", err)
		}

		if !exists {
			return ingest.ErrNotFound
		}

		return ingest.ErrSessionFinished
	}

	return nil
}

func (s *Store) GetSession(ctx context.Context, ownerID string, id uuid.UUID) (*ingest.Session, error) {
	query := `SELECT ` + selectSessionColumns + `
		FROM import_sessions
		WHERE id = $1 AND owner_id = $2`

	sess, err := scanSession(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ingest.ErrNotFound
		}

		return nil, fmt.Errorf("getting import session: %w", err)
	}

	return sess, nil
}

func (s *Store) ListSessions(ctx context.Context, ownerID string, accountID *uuid.UUID) ([]*ingest.Session, error) {
	query := `SELECT ` + selectSessionColumns + `
		FROM import_sessions
		WHERE owner_id = $1`

	args := []any{ownerID}

	if accountID != nil {
		query += " AND account_id = $2"

		args = append(args, *accountID)
	}

	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing import sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*ingest.Session

	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning import session: %w", err)
		}

		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating import sessions: %w", err)
	}

	return sessions, nil
}

var _ ingest.SessionRepository = (*Store)(nil)
