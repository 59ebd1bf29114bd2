package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("account not found")
	ErrInvalidName = errors.New("account name is required")
)

type Account struct {
	ID          uuid.UUID
	OwnerID     string
	Name        string
	Institution string
	CreatedAt   time.Time
}

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=account
type Repository interface {
	CreateAccount(ctx context.Context, a *Account) error
	GetAccount(ctx context.Context, ownerID string, id uuid.UUID) (*Account, error)
	ListAccounts(ctx context.Context, ownerID string) ([]*Account, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, ownerID, name, institution string) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	a := &Account{
		OwnerID:     ownerID,
		Name:        name,
		Institution: strings.TrimSpace(institution),
	}

	if err := s.repo.CreateAccount(ctx, a); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	return a, nil
}

// Get returns ErrNotFound for accounts owned by someone else.
func (s *Service) Get(ctx context.Context, ownerID string, id uuid.UUID) (*Account, error) {
	return s.repo.GetAccount(ctx, ownerID, id)
}

func (s *Service) List(ctx context.Context, ownerID string) ([]*Account, error) {
	return s.repo.ListAccounts(ctx, ownerID)
}
