package recurring

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/bankfeed/internal/classifier"
	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

const (
	minOccurrences      = 2
	minKeyLength        = 2
	minCountAnyVariance = 3
	minConfidence       = 0.5

	fallbackConfidence = 0.6
	fallbackNote       = "AI classification was unavailable; charges seen at least 3 times are assumed to be monthly"
)

var varianceTolerance = decimal.RequireFromString("0.2")

type Detector struct {
	classifier classifier.Classifier
	batchSize  int
	timeout    time.Duration
	logger     *slog.Logger
}

func NewDetector(c classifier.Classifier, batchSize int, timeout time.Duration, logger *slog.Logger) *Detector {
	if c == nil {
		c = classifier.None{}
	}

	return &Detector{classifier: c, batchSize: batchSize, timeout: timeout, logger: logger}
}

// Detect never fails: classifier problems degrade the affected batches to
// the monthly fallback and set Note.
func (d *Detector) Detect(ctx context.Context, txs []*transaction.Transaction) *Result {
	candidates := Candidates(txs)

	result := &Result{TotalMonthlyCost: decimal.Zero}

	if len(candidates) > 0 {
		result.Subscriptions, result.ClassifierUsed, result.Note = d.classify(ctx, candidates)
	}

	slices.SortStableFunc(result.Subscriptions, func(a, b *Subscription) int {
		if c := b.MonthlyEquivalent.Cmp(a.MonthlyEquivalent); c != 0 {
			return c
		}

		return cmp.Compare(a.MerchantName, b.MerchantName)
	})

	for _, s := range result.Subscriptions {
		result.TotalMonthlyCost = result.TotalMonthlyCost.Add(s.MonthlyEquivalent)
	}

	result.Summary = fmt.Sprintf("%d recurring charges costing %s per month", len(result.Subscriptions), result.TotalMonthlyCost.StringFixed(2))

	return result
}

// Key groups transactions by lowercased merchant name, falling back to the
// description.
func Key(tx *transaction.Transaction) string {
	name := tx.MerchantName
	if strings.TrimSpace(name) == "" {
		name = tx.Description
	}

	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Candidates groups txs by merchant and keeps the groups that repeat: at
// least two charges with every amount within 20% of the mean, or at least
// three charges whatever the amounts. Groups come back ordered by key.
func Candidates(txs []*transaction.Transaction) []*Candidate {
	groups := make(map[string]*Candidate)

	for _, tx := range txs {
		key := Key(tx)
		if len([]rune(key)) < minKeyLength {
			continue
		}

		name := tx.MerchantName
		if strings.TrimSpace(name) == "" {
			name = tx.Description
		}

		g, ok := groups[key]
		if !ok {
			g = &Candidate{MerchantKey: key}
			groups[key] = g
		}

		g.Occurrences = append(g.Occurrences, Occurrence{Amount: tx.Amount.Abs(), Date: tx.Date, Name: name})
	}

	var out []*Candidate

	for _, g := range groups {
		g.OccurrenceCount = len(g.Occurrences)
		if g.OccurrenceCount < minOccurrences {
			continue
		}

		sum := decimal.Zero
		for _, o := range g.Occurrences {
			sum = sum.Add(o.Amount)
		}

		g.AvgAmount = sum.Div(decimal.NewFromInt(int64(g.OccurrenceCount)))

		if g.OccurrenceCount >= minCountAnyVariance || withinTolerance(g) {
			slices.SortStableFunc(g.Occurrences, func(a, b Occurrence) int { return a.Date.Compare(b.Date) })
			out = append(out, g)
		}
	}

	slices.SortFunc(out, func(a, b *Candidate) int { return cmp.Compare(a.MerchantKey, b.MerchantKey) })

	return out
}

func withinTolerance(c *Candidate) bool {
	limit := c.AvgAmount.Mul(varianceTolerance)

	for _, o := range c.Occurrences {
		if o.Amount.Sub(c.AvgAmount).Abs().GreaterThan(limit) {
			return false
		}
	}

	return true
}

type subscriptionResult struct {
	Index        int     `json:"index"`
	MerchantName string  `json:"merchantName"`
	Frequency    string  `json:"frequency"`
	Confidence   float64 `json:"confidence"`
	IsEssential  bool    `json:"isEssential"`
}

func (r subscriptionResult) ResultIndex() int { return r.Index }

func (r subscriptionResult) Validate() error {
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range", r.Confidence)
	}

	if !Frequency(r.Frequency).Valid() {
		return fmt.Errorf("unknown frequency %q", r.Frequency)
	}

	return nil
}

func (d *Detector) classify(ctx context.Context, candidates []*Candidate) ([]*Subscription, bool, string) {
	items := make([]classifier.Item, len(candidates))

	for i, c := range candidates {
		occ := make([]map[string]string, len(c.Occurrences))
		for j, o := range c.Occurrences {
			occ[j] = map[string]string{"amount": o.Amount.StringFixed(2), "date": o.Date.Format(time.DateOnly)}
		}

		items[i] = classifier.Item{
			Index: i,
			Fields: map[string]any{
				"merchant":    c.LastOccurrence().Name,
				"occurrences": occ,
				"avgAmount":   c.AvgAmount.StringFixed(2),
				"count":       c.OccurrenceCount,
			},
		}
	}

	out := classifier.Run[subscriptionResult](ctx, d.classifier, classifier.TaskSubscriptions, items,
		map[string]any{"frequencies": []Frequency{FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly}},
		classifier.RunOptions{BatchSize: d.batchSize, Timeout: d.timeout})

	var subs []*Subscription

	for idx, r := range out.Results {
		if r.Confidence <= minConfidence {
			continue
		}

		c := candidates[idx]

		name := strings.TrimSpace(r.MerchantName)
		if name == "" {
			name = c.LastOccurrence().Name
		}

		subs = append(subs, newSubscription(c, name, Frequency(r.Frequency), r.Confidence, r.IsEssential))
	}

	if out.OK() {
		return subs, true, ""
	}

	for _, err := range out.Errs {
		d.logger.WarnContext(ctx, "subscription classifier failed, using monthly fallback", "kind", err.Kind, "error", err)
	}

	for _, idx := range out.Failed {
		c := candidates[idx]
		if c.OccurrenceCount < minCountAnyVariance {
			continue
		}

		subs = append(subs, newSubscription(c, c.LastOccurrence().Name, FrequencyMonthly, fallbackConfidence, false))
	}

	return subs, len(out.Failed) < len(candidates), fallbackNote
}

func newSubscription(c *Candidate, name string, f Frequency, confidence float64, essential bool) *Subscription {
	amount := c.AvgAmount.Round(2)

	return &Subscription{
		MerchantName:      name,
		Amount:            amount,
		Frequency:         f,
		Confidence:        confidence,
		IsEssential:       essential,
		LastDate:          c.LastOccurrence().Date,
		TransactionCount:  c.OccurrenceCount,
		MonthlyEquivalent: f.MonthlyEquivalent(amount),
	}
}
