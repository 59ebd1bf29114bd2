package recurring

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=recurring
type Repository interface {
	// ReplaceSubscriptions swaps the account's detected subscriptions for subs.
	ReplaceSubscriptions(ctx context.Context, accountID uuid.UUID, subs []*Subscription) error
	ListSubscriptions(ctx context.Context, accountID *uuid.UUID) ([]*Subscription, error)
}

// Transactions is the history the detector reads.
type Transactions interface {
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
}

type Service struct {
	repo     Repository
	txs      Transactions
	detector *Detector
}

func NewService(repo Repository, txs Transactions, detector *Detector) *Service {
	return &Service{repo: repo, txs: txs, detector: detector}
}

// Detect runs detection over the account's outflows and stores the result.
func (s *Service) Detect(ctx context.Context, accountID uuid.UUID) (*Result, error) {
	txs, err := s.txs.List(ctx, transaction.ListFilter{AccountID: &accountID, OutflowsOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	result := s.detector.Detect(ctx, txs)

	for _, sub := range result.Subscriptions {
		sub.AccountID = accountID
	}

	if err := s.repo.ReplaceSubscriptions(ctx, accountID, result.Subscriptions); err != nil {
		return nil, fmt.Errorf("store subscriptions: %w", err)
	}

	return result, nil
}

func (s *Service) List(ctx context.Context, accountID *uuid.UUID) ([]*Subscription, error) {
	return s.repo.ListSubscriptions(ctx, accountID)
}
