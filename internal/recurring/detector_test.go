package recurring_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/bankfeed/internal/classifier"
	"github.com/MrJamesThe3rd/bankfeed/internal/recurring"
	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type classifyFunc func(ctx context.Context, req classifier.Request) (*classifier.Response, error)

func (f classifyFunc) Classify(ctx context.Context, req classifier.Request) (*classifier.Response, error) {
	return f(ctx, req)
}

// answer replies to every item with the same frequency and confidence.
func answer(frequency string, confidence float64) classifyFunc {
	return func(_ context.Context, req classifier.Request) (*classifier.Response, error) {
		resp := &classifier.Response{}

		for _, it := range req.Items {
			raw, _ := json.Marshal(map[string]any{
				"index":        it.Index,
				"merchantName": fmt.Sprint(it.Fields["merchant"]),
				"frequency":    frequency,
				"confidence":   confidence,
				"isEssential":  false,
			})
			resp.Results = append(resp.Results, raw)
		}

		return resp, nil
	}
}

func charges(name string, amounts ...string) []*transaction.Transaction {
	txs := make([]*transaction.Transaction, len(amounts))
	for i, a := range amounts {
		txs[i] = &transaction.Transaction{
			ID:           uuid.New(),
			Date:         time.Date(2024, time.Month(i+1), 3, 0, 0, 0, 0, time.UTC),
			Amount:       decimal.RequireFromString(a).Neg(),
			Description:  name,
			MerchantName: name,
		}
	}

	return txs
}

func TestDetect_NetflixFallback(t *testing.T) {
	d := recurring.NewDetector(nil, classifier.DefaultBatchSize, time.Second, discard)

	result := d.Detect(context.Background(), charges("Netflix", "9.99", "9.99", "9.99"))

	require.Len(t, result.Subscriptions, 1)

	sub := result.Subscriptions[0]
	assert.Equal(t, "Netflix", sub.MerchantName)
	assert.Equal(t, recurring.FrequencyMonthly, sub.Frequency)
	assert.InDelta(t, 0.6, sub.Confidence, 1e-9)
	assert.Equal(t, "9.99", sub.MonthlyEquivalent.StringFixed(2))
	assert.Equal(t, 3, sub.TransactionCount)
	assert.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), sub.LastDate)

	assert.False(t, result.ClassifierUsed)
	assert.NotEmpty(t, result.Note)
	assert.Equal(t, "9.99", result.TotalMonthlyCost.StringFixed(2))
}

func TestDetect_FallbackNeedsThreeOccurrences(t *testing.T) {
	d := recurring.NewDetector(classifier.None{}, 0, 0, discard)

	result := d.Detect(context.Background(), charges("Spotify", "10.99", "10.99"))

	assert.Empty(t, result.Subscriptions)
	assert.NotEmpty(t, result.Note)
	assert.True(t, result.TotalMonthlyCost.IsZero())
}

func TestDetect_Classifier(t *testing.T) {
	type testCase struct {
		name       string
		classifier classifier.Classifier
		txs        []*transaction.Transaction
		wantSubs   int
		wantTotal  string
		wantUsed   bool
		wantNote   bool
	}

	tests := []testCase{
		{
			name:       "QuarterlyMultiplier",
			classifier: answer("quarterly", 0.9),
			txs:        charges("Gym", "30", "30"),
			wantSubs:   1,
			wantTotal:  "9.90",
			wantUsed:   true,
		},
		{
			name:       "WeeklyMultiplier",
			classifier: answer("weekly", 0.8),
			txs:        charges("Lunch Club", "10", "10", "10"),
			wantSubs:   1,
			wantTotal:  "43.30",
			wantUsed:   true,
		},
		{
			name:       "LowConfidenceDiscarded",
			classifier: answer("monthly", 0.5),
			txs:        charges("Netflix", "9.99", "9.99", "9.99"),
			wantTotal:  "0.00",
			wantUsed:   true,
		},
		{
			name:       "UnknownFrequencyFallsBack",
			classifier: answer("fortnightly", 0.9),
			txs:        charges("Netflix", "9.99", "9.99", "9.99"),
			wantSubs:   1,
			wantTotal:  "9.99",
			wantNote:   true,
		},
		{
			name: "TimeoutFallsBack",
			classifier: classifyFunc(func(ctx context.Context, _ classifier.Request) (*classifier.Response, error) {
				return nil, context.DeadlineExceeded
			}),
			txs:       charges("Netflix", "9.99", "9.99", "9.99"),
			wantSubs:  1,
			wantTotal: "9.99",
			wantNote:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := recurring.NewDetector(tt.classifier, classifier.DefaultBatchSize, time.Second, discard)

			result := d.Detect(context.Background(), tt.txs)

			assert.Len(t, result.Subscriptions, tt.wantSubs)
			assert.Equal(t, tt.wantTotal, result.TotalMonthlyCost.StringFixed(2))
			assert.Equal(t, tt.wantUsed, result.ClassifierUsed)
			assert.Equal(t, tt.wantNote, result.Note != "")
		})
	}
}

func TestDetect_FallbackIsPerBatch(t *testing.T) {
	calls := 0
	c := classifyFunc(func(ctx context.Context, req classifier.Request) (*classifier.Response, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("connection reset")
		}

		return answer("yearly", 0.95)(ctx, req)
	})

	var txs []*transaction.Transaction
	txs = append(txs, charges("Amazon Prime", "139", "139")...)
	txs = append(txs, charges("Netflix", "9.99", "9.99", "9.99")...)

	d := recurring.NewDetector(c, 1, time.Second, discard)
	result := d.Detect(context.Background(), txs)

	require.Len(t, result.Subscriptions, 2)
	assert.Equal(t, 2, calls)
	assert.True(t, result.ClassifierUsed)
	assert.NotEmpty(t, result.Note)

	byName := map[string]*recurring.Subscription{}
	for _, s := range result.Subscriptions {
		byName[s.MerchantName] = s
	}

	assert.Equal(t, recurring.FrequencyYearly, byName["Amazon Prime"].Frequency)
	assert.Equal(t, "11.54", byName["Amazon Prime"].MonthlyEquivalent.StringFixed(2))
	assert.Equal(t, recurring.FrequencyMonthly, byName["Netflix"].Frequency)
}

func TestCandidates(t *testing.T) {
	var txs []*transaction.Transaction
	txs = append(txs, charges("Within Band", "10", "15")...)
	txs = append(txs, charges("Outside Band", "10", "20")...)
	txs = append(txs, charges("Groceries", "10", "80", "35")...)
	txs = append(txs, charges("Once", "5")...)
	txs = append(txs, charges("X", "1", "1", "1")...)

	blank := charges("", "7", "7")
	blank[0].Description, blank[1].Description = "  COFFEE  shop", "coffee SHOP"
	txs = append(txs, blank...)

	got := recurring.Candidates(txs)

	keys := make([]string, len(got))
	for i, c := range got {
		keys[i] = c.MerchantKey
	}

	assert.Equal(t, []string{"coffee shop", "groceries", "within band"}, keys)
	assert.Equal(t, "12.5", got[2].AvgAmount.String())
	assert.Equal(t, 3, got[1].OccurrenceCount)
}

func TestFrequency_MonthlyEquivalent(t *testing.T) {
	amount := decimal.NewFromInt(30)

	assert.Equal(t, "9.90", recurring.FrequencyQuarterly.MonthlyEquivalent(amount).StringFixed(2))
	assert.Equal(t, "65.10", recurring.FrequencyBiweekly.MonthlyEquivalent(amount).StringFixed(2))
	assert.Equal(t, "2.49", recurring.FrequencyYearly.MonthlyEquivalent(amount).StringFixed(2))
	assert.True(t, recurring.Frequency("daily").MonthlyEquivalent(amount).IsZero())
}

func TestService_Detect(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accountID := uuid.New()

	repo := recurring.NewMockRepository(ctrl)
	txs := recurring.NewMockTransactions(ctrl)

	txs.EXPECT().
		List(gomock.Any(), transaction.ListFilter{AccountID: &accountID, OutflowsOnly: true}).
		Return(charges("Netflix", "9.99", "9.99", "9.99"), nil)
	repo.EXPECT().
		ReplaceSubscriptions(gomock.Any(), accountID, gomock.Len(1)).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, subs []*recurring.Subscription) error {
			assert.Equal(t, accountID, subs[0].AccountID)
			return nil
		})

	svc := recurring.NewService(repo, txs, recurring.NewDetector(nil, 0, 0, discard))

	result, err := svc.Detect(context.Background(), accountID)
	require.NoError(t, err)
	assert.Len(t, result.Subscriptions, 1)
}
