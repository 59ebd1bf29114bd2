// Package dedupe decides which imported transactions are already known.
package dedupe

import (
	"slices"
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

const (
	DefaultToleranceDays = 0
	DefaultThreshold     = 0.8
)

// Engine matches candidates against stored transactions. A candidate with an
// external id is a duplicate only when that id is already known for the
// account. Candidates without one are matched fuzzily: same account, equal
// amount, dates at most ToleranceDays apart and description similarity of
// at least Threshold. Each stored transaction absorbs at most one candidate.
type Engine struct {
	toleranceDays int
	threshold     float64
}

func New(toleranceDays int, threshold float64) *Engine {
	if toleranceDays < 0 {
		toleranceDays = DefaultToleranceDays
	}

	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}

	return &Engine{toleranceDays: toleranceDays, threshold: threshold}
}

func (e *Engine) ToleranceDays() int {
	return e.toleranceDays
}

type externalKey struct {
	account string
	id      string
}

// Dedupe keeps candidate order in both outputs.
func (e *Engine) Dedupe(candidates, existing []*transaction.Transaction) (toInsert, duplicates []*transaction.Transaction) {
	known := make(map[externalKey]bool, len(existing))

	for _, ex := range existing {
		if ex.ExternalID != "" {
			known[externalKey{ex.AccountID.String(), ex.ExternalID}] = true
		}
	}

	pool := slices.Clone(existing)
	slices.SortStableFunc(pool, func(a, b *transaction.Transaction) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}

		return a.CreatedAt.Compare(b.CreatedAt)
	})

	claimed := make([]bool, len(pool))

	for _, c := range candidates {
		if c.ExternalID != "" {
			key := externalKey{c.AccountID.String(), c.ExternalID}
			if known[key] {
				duplicates = append(duplicates, c)
				continue
			}

			known[key] = true
			toInsert = append(toInsert, c)

			continue
		}

		if i := e.bestMatch(c, pool, claimed); i >= 0 {
			claimed[i] = true
			duplicates = append(duplicates, c)

			continue
		}

		toInsert = append(toInsert, c)
	}

	return toInsert, duplicates
}

// bestMatch returns the index of the unclaimed stored transaction most
// similar to c, or -1. Ties go to the earliest.
func (e *Engine) bestMatch(c *transaction.Transaction, pool []*transaction.Transaction, claimed []bool) int {
	best := -1
	bestScore := 0.0
	desc := normalizeDescription(c.Description)

	for i, ex := range pool {
		if claimed[i] || ex.AccountID != c.AccountID || !ex.Amount.Equal(c.Amount) {
			continue
		}

		if daysApart(c, ex) > e.toleranceDays {
			continue
		}

		score := Similarity(desc, normalizeDescription(ex.Description))
		if score >= e.threshold && score > bestScore {
			best, bestScore = i, score
		}
	}

	return best
}

func daysApart(a, b *transaction.Transaction) int {
	d := transaction.CalendarDate(a.Date).Sub(transaction.CalendarDate(b.Date)).Hours() / 24
	if d < 0 {
		d = -d
	}

	return int(d + 0.5)
}

// Similarity is the Levenshtein ratio of a and b in [0, 1].
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)

	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}

	dist := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)

	return float64(total-dist) / float64(total)
}

func normalizeDescription(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		default:
			return ' '
		}
	}, s)

	return strings.Join(strings.Fields(s), " ")
}

var _ transaction.Deduper = (*Engine)(nil)
