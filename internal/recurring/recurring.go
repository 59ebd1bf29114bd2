// Package recurring finds repeat charges in transaction history and
// classifies them as subscriptions.
package recurring

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

var multipliers = map[Frequency]decimal.Decimal{
	FrequencyWeekly:    decimal.RequireFromString("4.33"),
	FrequencyBiweekly:  decimal.RequireFromString("2.17"),
	FrequencyMonthly:   decimal.NewFromInt(1),
	FrequencyQuarterly: decimal.RequireFromString("0.33"),
	FrequencyYearly:    decimal.RequireFromString("0.083"),
}

func (f Frequency) Valid() bool {
	_, ok := multipliers[f]
	return ok
}

// MonthlyEquivalent converts a charge at this frequency to a monthly cost.
func (f Frequency) MonthlyEquivalent(amount decimal.Decimal) decimal.Decimal {
	m, ok := multipliers[f]
	if !ok {
		return decimal.Zero
	}

	return amount.Mul(m).Round(2)
}

type Occurrence struct {
	Amount decimal.Decimal
	Date   time.Time
	Name   string
}

// Candidate is a merchant group that looks like a repeat charge. Amounts are
// absolute values.
type Candidate struct {
	MerchantKey     string
	Occurrences     []Occurrence
	AvgAmount       decimal.Decimal
	OccurrenceCount int
}

// LastOccurrence returns the most recent charge.
func (c *Candidate) LastOccurrence() Occurrence {
	last := c.Occurrences[0]
	for _, o := range c.Occurrences[1:] {
		if !o.Date.Before(last.Date) {
			last = o
		}
	}

	return last
}

type Subscription struct {
	ID                uuid.UUID
	AccountID         uuid.UUID
	MerchantName      string
	Amount            decimal.Decimal
	Frequency         Frequency
	Confidence        float64
	IsEssential       bool
	LastDate          time.Time
	TransactionCount  int
	MonthlyEquivalent decimal.Decimal
	DetectedAt        time.Time
}

type Result struct {
	Subscriptions    []*Subscription
	TotalMonthlyCost decimal.Decimal
	Summary          string
	// ClassifierUsed is false when every batch took the fallback path.
	ClassifierUsed bool
	// Note explains a degraded result.
	Note string
}
