// Package categorize asks the classifier for a category for newly imported
// transactions. Suggestions outside the taxonomy or below the confidence
// floor are ignored, and a classifier failure leaves transactions untouched.
package categorize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bankfeed/internal/classifier"
	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

const minConfidence = 0.5

var DefaultCategories = []string{
	"Groceries", "Dining", "Transport", "Housing", "Utilities", "Subscriptions",
	"Shopping", "Health", "Entertainment", "Travel", "Income", "Transfers", "Fees", "Other",
}

type Updater interface {
	Update(ctx context.Context, id uuid.UUID, params transaction.UpdateParams) (*transaction.Transaction, error)
}

type Categorizer struct {
	classifier classifier.Classifier
	updater    Updater
	categories map[string]string // normalized -> canonical spelling
	names      []string
	batchSize  int
	timeout    time.Duration
	logger     *slog.Logger
}

func New(c classifier.Classifier, updater Updater, categories []string, batchSize int, timeout time.Duration, logger *slog.Logger) *Categorizer {
	if len(categories) == 0 {
		categories = DefaultCategories
	}

	byNorm := make(map[string]string, len(categories))
	for _, name := range categories {
		byNorm[normalizeCategory(name)] = name
	}

	return &Categorizer{
		classifier: c,
		updater:    updater,
		categories: byNorm,
		names:      categories,
		batchSize:  batchSize,
		timeout:    timeout,
		logger:     logger,
	}
}

type categoryResult struct {
	Index      int     `json:"index"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

func (r categoryResult) ResultIndex() int { return r.Index }

func (r categoryResult) Validate() error {
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range", r.Confidence)
	}

	if strings.TrimSpace(r.Category) == "" {
		return errors.New("empty category")
	}

	return nil
}

// Categorize sets the category of every uncategorized transaction the
// classifier is confident about and returns how many were updated.
func (c *Categorizer) Categorize(ctx context.Context, txs []*transaction.Transaction) (int, error) {
	var pending []*transaction.Transaction

	for _, t := range txs {
		if t.Category == "" {
			pending = append(pending, t)
		}
	}

	if len(pending) == 0 {
		return 0, nil
	}

	items := make([]classifier.Item, len(pending))
	for i, t := range pending {
		items[i] = classifier.Item{
			Index: i,
			Fields: map[string]any{
				"description": t.Description,
				"merchant":    t.MerchantName,
				"amount":      t.Amount.StringFixed(2),
			},
		}
	}

	out := classifier.Run[categoryResult](ctx, c.classifier, classifier.TaskCategorize, items,
		map[string]any{"categories": c.names},
		classifier.RunOptions{BatchSize: c.batchSize, Timeout: c.timeout})

	for _, err := range out.Errs {
		c.logger.WarnContext(ctx, "category classifier failed, leaving transactions uncategorized", "kind", err.Kind, "error", err)
	}

	var errs []error

	updated := 0

	for idx, r := range out.Results {
		if r.Confidence <= minConfidence {
			continue
		}

		category, ok := c.categories[normalizeCategory(r.Category)]
		if !ok {
			c.logger.DebugContext(ctx, "classifier suggested unknown category", "category", r.Category)
			continue
		}

		t := pending[idx]
		if _, err := c.updater.Update(ctx, t.ID, transaction.UpdateParams{Category: &category}); err != nil {
			errs = append(errs, fmt.Errorf("update category of %s: %w", t.ID, err))
			continue
		}

		t.Category = category
		updated++
	}

	return updated, errors.Join(errs...)
}

func normalizeCategory(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
