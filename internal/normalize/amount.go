package normalize

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var errBlank = errors.New("blank amount")

// ParseAmount reads a bank-formatted amount. It accepts currency symbols and
// codes, "(12.00)" and "12.00-" for negatives, and both "1.234,56" and
// "1,234.56" grouping.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	neg := false

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}

	clean := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsDigit(r), r == '.', r == ',', r == '-', r == '+':
			return r
		case unicode.IsSpace(r), unicode.Is(unicode.Sc, r), unicode.IsLetter(r), r == '\'':
			return -1
		}

		return r
	}, s)

	if clean == "" {
		return decimal.Zero, errBlank
	}

	switch {
	case strings.HasSuffix(clean, "-"):
		neg = !neg
		clean = strings.TrimSuffix(clean, "-")
	case strings.HasPrefix(clean, "-"):
		neg = !neg
		clean = clean[1:]
	case strings.HasPrefix(clean, "+"):
		clean = clean[1:]
	}

	d, err := decimal.NewFromString(ungroup(clean))
	if err != nil {
		return decimal.Zero, err
	}

	if neg {
		d = d.Neg()
	}

	return d, nil
}

// ungroup rewrites s with '.' as the only decimal separator. When both
// separators appear the last one is the decimal mark. A lone separator
// followed by exactly three digits is read as grouping.
func ungroup(s string) string {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			return strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
		}

		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 || len(s)-lastComma-1 == 3 {
			return strings.ReplaceAll(s, ",", "")
		}

		return strings.Replace(s, ",", ".", 1)
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			return strings.ReplaceAll(s, ".", "")
		}
	}

	return s
}
