// Package ingest runs one file (or one bank-link delivery) through parsing,
// column mapping, normalization and deduplication, and records the outcome
// as an import session.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("import session not found")
	ErrSessionFinished = errors.New("import session is already finished")
	ErrAccountRequired = errors.New("no account selected and the import profile has no default account")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusImporting Status = "importing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// FileTypeBankLink marks sessions fed by the bank-link collaborator.
const FileTypeBankLink = "bank_link"

// Session counts what happened to the rows of one import. Once completed,
// TotalRows == TransactionsCreated + DuplicatesSkipped + ErrorsCount.
type Session struct {
	ID                  uuid.UUID
	OwnerID             string
	AccountID           *uuid.UUID
	FileName            string
	FileType            string
	HeaderFingerprint   string
	Status              Status
	TotalRows           int
	TransactionsCreated int
	DuplicatesSkipped   int
	ErrorsCount         int
	Error               string
	Hint                string
	CreatedAt           time.Time
	CompletedAt         *time.Time
}

//go:generate mockgen -source=session.go -destination=repository_mock.go -package=ingest
type SessionRepository interface {
	CreateSession(ctx context.Context, s *Session) error
	// UpdateSession returns ErrSessionFinished when the stored session is
	// already terminal.
	UpdateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, ownerID string, id uuid.UUID) (*Session, error)
	ListSessions(ctx context.Context, ownerID string, accountID *uuid.UUID) ([]*Session, error)
}

// PersistenceError is a store failure that aborts the session.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Hint() string {
	return "the import could not be saved; retry later, already imported rows will be skipped"
}
