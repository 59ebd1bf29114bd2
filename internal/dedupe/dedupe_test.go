package dedupe_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/bankfeed/internal/dedupe"
	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

var account = uuid.MustParse("6b1f4f5e-2f6a-4d7e-9d55-0a1f7c2b9e11")

func tx(day int, amount, description, externalID string) *transaction.Transaction {
	return &transaction.Transaction{
		ID:          uuid.New(),
		AccountID:   account,
		Date:        time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString(amount),
		Description: description,
		ExternalID:  externalID,
	}
}

func TestEngine_Dedupe(t *testing.T) {
	stored := tx(15, "-15.99", "NETFLIX.COM", "")
	storedOFX := tx(10, "-42.00", "SHELL", "FIT-1")
	coffeeA := tx(20, "-3.50", "STARBUCKS", "")
	coffeeB := tx(20, "-3.50", "STARBUCKS", "")

	otherAccount := tx(15, "-15.99", "NETFLIX.COM", "")
	otherAccount.AccountID = uuid.New()

	type args struct {
		candidates []*transaction.Transaction
		existing   []*transaction.Transaction
		tolerance  int
	}

	type testCase struct {
		name           string
		args           args
		wantInserted   int
		wantDuplicates []int // indexes into args.candidates
	}

	tests := []testCase{
		{
			name: "ExternalIDAlreadyStored",
			args: args{
				candidates: []*transaction.Transaction{tx(10, "-42.00", "SHELL", "FIT-1"), tx(11, "-9.00", "SHELL", "FIT-1")},
				existing:   []*transaction.Transaction{storedOFX},
			},
			wantDuplicates: []int{0, 1},
		},
		{
			name: "ExternalIDRepeatedWithinBatch",
			args: args{
				candidates: []*transaction.Transaction{tx(12, "-1.00", "A", "FIT-2"), tx(12, "-1.00", "A", "FIT-2")},
			},
			wantInserted:   1,
			wantDuplicates: []int{1},
		},
		{
			name: "ExternalIDIsAuthoritative",
			args: args{
				candidates: []*transaction.Transaction{tx(15, "-15.99", "NETFLIX.COM", "FIT-3")},
				existing:   []*transaction.Transaction{stored},
			},
			wantInserted: 1,
		},
		{
			name: "FuzzyMatchIgnoresCaseAndPunctuation",
			args: args{
				candidates: []*transaction.Transaction{tx(15, "-15.99", "Netflix.com ", "")},
				existing:   []*transaction.Transaction{stored},
			},
			wantDuplicates: []int{0},
		},
		{
			name: "DifferentAmountIsNew",
			args: args{
				candidates: []*transaction.Transaction{tx(15, "-16.99", "NETFLIX.COM", "")},
				existing:   []*transaction.Transaction{stored},
			},
			wantInserted: 1,
		},
		{
			name: "ThreeDecimalAmountReplayed",
			args: args{
				candidates: []*transaction.Transaction{tx(8, "-1.234", "FX FEE", "")},
				existing:   []*transaction.Transaction{tx(8, "-1.234", "FX FEE", "")},
			},
			wantDuplicates: []int{0},
		},
		{
			name: "TrailingZerosDoNotMatter",
			args: args{
				candidates: []*transaction.Transaction{tx(15, "-15.9900", "NETFLIX.COM", "")},
				existing:   []*transaction.Transaction{stored},
			},
			wantDuplicates: []int{0},
		},
		{
			name: "RoundedAmountIsNotTheSameCharge",
			args: args{
				candidates: []*transaction.Transaction{tx(8, "-1.234", "FX FEE", "")},
				existing:   []*transaction.Transaction{tx(8, "-1.23", "FX FEE", "")},
			},
			wantInserted: 1,
		},
		{
			name: "DifferentDateIsNewWithZeroTolerance",
			args: args{
				candidates: []*transaction.Transaction{tx(16, "-15.99", "NETFLIX.COM", "")},
				existing:   []*transaction.Transaction{stored},
			},
			wantInserted: 1,
		},
		{
			name: "DateToleranceWidensMatch",
			args: args{
				candidates: []*transaction.Transaction{tx(16, "-15.99", "NETFLIX.COM", "")},
				existing:   []*transaction.Transaction{stored},
				tolerance:  1,
			},
			wantDuplicates: []int{0},
		},
		{
			name: "DissimilarDescriptionIsNew",
			args: args{
				candidates: []*transaction.Transaction{tx(15, "-15.99", "SPOTIFY AB", "")},
				existing:   []*transaction.Transaction{stored},
			},
			wantInserted: 1,
		},
		{
			name: "OtherAccountNeverMatches",
			args: args{
				candidates: []*transaction.Transaction{tx(15, "-15.99", "NETFLIX.COM", "")},
				existing:   []*transaction.Transaction{otherAccount},
			},
			wantInserted: 1,
		},
		{
			name: "EachStoredRowAbsorbsOneCandidate",
			args: args{
				candidates: []*transaction.Transaction{tx(20, "-3.50", "STARBUCKS", ""), tx(20, "-3.50", "STARBUCKS", ""), tx(20, "-3.50", "STARBUCKS", "")},
				existing:   []*transaction.Transaction{coffeeA, coffeeB},
			},
			wantInserted:   1,
			wantDuplicates: []int{0, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := dedupe.New(tt.args.tolerance, dedupe.DefaultThreshold)

			toInsert, duplicates := e.Dedupe(tt.args.candidates, tt.args.existing)

			assert.Len(t, toInsert, tt.wantInserted)
			assert.Len(t, duplicates, len(tt.wantDuplicates))

			for i, idx := range tt.wantDuplicates {
				assert.Same(t, tt.args.candidates[idx], duplicates[i])
			}
		})
	}
}

func TestEngine_Deterministic(t *testing.T) {
	existing := []*transaction.Transaction{
		tx(3, "-10.00", "AMAZON MKTPLACE", ""),
		tx(3, "-10.00", "AMAZON MARKETPLACE", ""),
	}
	candidates := []*transaction.Transaction{tx(3, "-10.00", "AMAZON MARKETPLACE", "")}

	e := dedupe.New(0, 0.5)

	for range 5 {
		toInsert, duplicates := e.Dedupe(candidates, existing)
		assert.Empty(t, toInsert)
		assert.Len(t, duplicates, 1)
	}

	// The better match is claimed, leaving the weaker one for a second candidate.
	second := tx(3, "-10.00", "AMAZON MKTPLACE", "")

	_, duplicates := e.Dedupe(append(candidates, second), existing)
	assert.Len(t, duplicates, 2)
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, dedupe.Similarity("", ""), 1e-9)
	assert.InDelta(t, 1.0, dedupe.Similarity("netflix", "netflix"), 1e-9)
	assert.Less(t, dedupe.Similarity("starbucks 123", "starbucks 456"), dedupe.DefaultThreshold)
	assert.GreaterOrEqual(t, dedupe.Similarity("amazon marketplace", "amazon mktplace"), 0.8)
}

func TestNew_Defaults(t *testing.T) {
	e := dedupe.New(-1, 0)
	assert.Equal(t, dedupe.DefaultToleranceDays, e.ToleranceDays())
}
