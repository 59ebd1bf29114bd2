package merchant

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

var ErrInvalidAlias = errors.New("raw pattern and merchant name are required")

// Alias maps any raw description containing RawPattern to MerchantName for
// one owner's imports.
type Alias struct {
	ID           uuid.UUID
	OwnerID      string
	RawPattern   string
	MerchantName string
	CreatedAt    time.Time
}

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=merchant
type Repository interface {
	FindMatch(ctx context.Context, ownerID, rawDescription string) (string, error)
	ListAliases(ctx context.Context, ownerID string) ([]*Alias, error)
	CreateAlias(ctx context.Context, a *Alias) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Suggest returns the merchant name learned for a raw description, or ""
// when nothing matches.
func (s *Service) Suggest(ctx context.Context, ownerID, rawDescription string) (string, error) {
	return s.repo.FindMatch(ctx, ownerID, rawDescription)
}

// Learn remembers that descriptions containing rawPattern belong to
// merchantName.
func (s *Service) Learn(ctx context.Context, ownerID, rawPattern, merchantName string) (*Alias, error) {
	a := &Alias{
		OwnerID:      ownerID,
		RawPattern:   strings.TrimSpace(rawPattern),
		MerchantName: strings.Join(strings.Fields(merchantName), " "),
	}

	if a.RawPattern == "" || a.MerchantName == "" {
		return nil, ErrInvalidAlias
	}

	if err := s.repo.CreateAlias(ctx, a); err != nil {
		return nil, fmt.Errorf("create alias: %w", err)
	}

	return a, nil
}

// Apply sets MerchantName on every transaction whose description contains a
// pattern the owner taught. The longest pattern wins, then the most recent.
func (s *Service) Apply(ctx context.Context, ownerID string, txs []*transaction.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	aliases, err := s.repo.ListAliases(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list aliases: %w", err)
	}

	if len(aliases) == 0 {
		return nil
	}

	aliases = slices.Clone(aliases)
	slices.SortStableFunc(aliases, func(a, b *Alias) int {
		if d := len(b.RawPattern) - len(a.RawPattern); d != 0 {
			return d
		}

		return b.CreatedAt.Compare(a.CreatedAt)
	})

	for _, tx := range txs {
		desc := strings.ToLower(tx.Description)

		for _, a := range aliases {
			if strings.Contains(desc, strings.ToLower(a.RawPattern)) {
				tx.MerchantName = a.MerchantName
				break
			}
		}
	}

	return nil
}
