package mapping

import (
	"strings"
	"unicode"
)

// layout is a bank export format known by its column names. Layouts are
// tried before keyword guessing; more specific ones come first.
type layout struct {
	Name       string
	Columns    map[string]Field
	DateFormat string
}

var layouts = []layout{
	{
		Name:       "cgd-cartao",
		DateFormat: "DD-MM-YYYY",
		Columns: map[string]Field{
			"Data": FieldDate, "Descrição": FieldDescription, "Débito": FieldDebit, "Crédito": FieldCredit,
		},
	},
	{
		Name:       "cgd-extrato",
		DateFormat: "DD-MM-YYYY",
		Columns: map[string]Field{
			"Data mov.": FieldDate, "Descrição": FieldDescription, "Movimento": FieldAmount,
		},
	},
	{
		Name:       "cgd-conta",
		DateFormat: "DD-MM-YYYY",
		Columns: map[string]Field{
			"Data mov.": FieldDate, "Descrição": FieldDescription, "Montante": FieldAmount,
		},
	},
	{
		Name:       "chase",
		DateFormat: "MM/DD/YYYY",
		Columns: map[string]Field{
			"Posting Date": FieldDate, "Description": FieldDescription, "Amount": FieldAmount, "Check or Slip #": FieldCheckNumber,
		},
	},
}

// keywords are checked in this order so that "Debit Amount" is a debit and
// "Balance" is never taken for an amount. Single words match a header word
// by prefix; phrases match anywhere in the header.
var keywords = []struct {
	field Field
	words []string
}{
	{FieldBalance, []string{"balance", "saldo", "running"}},
	{FieldCheckNumber, []string{"check", "cheque", "chk", "check or slip"}},
	{FieldDebit, []string{"debit", "débito", "debito", "withdrawal", "cargo", "paid out", "money out"}},
	{FieldCredit, []string{"credit", "crédito", "credito", "deposit", "abono", "paid in", "money in"}},
	{FieldDate, []string{"date", "data", "fecha", "posted", "datum"}},
	{FieldReferenceID, []string{"reference", "ref", "fitid", "transaction id", "id"}},
	{FieldMemo, []string{"memo", "note", "notes"}},
	{FieldDescription, []string{"descri", "payee", "name", "details", "narrative", "merchant", "nome"}},
	{FieldAmount, []string{"amount", "montante", "valor", "importe", "movimento", "value", "betrag"}},
}

// Suggest guesses a mapping from header names alone. It is shown to the
// user and never applied without confirmation.
func Suggest(headers []string) ColumnMapping {
	if m, _ := matchLayout(headers); m != nil {
		return m
	}

	out := make(ColumnMapping, len(headers))
	taken := make(map[Field]bool)

	for _, h := range headers {
		out[h] = FieldSkip

		// The first matching keyword decides; a second "date" column stays skipped.
		for _, kw := range keywords {
			if !matchesAny(h, kw.words) {
				continue
			}

			if !taken[kw.field] || kw.field == FieldBalance {
				out[h] = kw.field
				taken[kw.field] = true
			}

			break
		}
	}

	// A lone debit or credit column is really a signed amount.
	if taken[FieldDebit] != taken[FieldCredit] && !taken[FieldAmount] {
		for h, f := range out {
			if f == FieldDebit || f == FieldCredit {
				out[h] = FieldAmount
			}
		}
	}

	return out
}

// SuggestDateFormat returns the date format of the known bank layout the
// headers belong to, or "" when they match none.
func SuggestDateFormat(headers []string) string {
	if _, l := matchLayout(headers); l != nil {
		return l.DateFormat
	}

	return ""
}

func matchLayout(headers []string) (ColumnMapping, *layout) {
	byNorm := make(map[string]string, len(headers))
	for _, h := range headers {
		byNorm[normalizeHeader(h)] = h
	}

	for i := range layouts {
		l := &layouts[i]
		m := make(ColumnMapping, len(headers))

		for col, f := range l.Columns {
			if h, ok := byNorm[normalizeHeader(col)]; ok {
				m[h] = f
			}
		}

		if len(m) != len(l.Columns) {
			continue
		}

		for _, h := range headers {
			if _, ok := m[h]; !ok {
				m[h] = FieldSkip
			}
		}

		return m, l
	}

	return nil, nil
}

func matchesAny(header string, words []string) bool {
	h := normalizeHeader(header)
	tokens := strings.FieldsFunc(h, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, w := range words {
		if strings.Contains(w, " ") {
			if strings.Contains(h, w) {
				return true
			}

			continue
		}

		for _, t := range tokens {
			if strings.HasPrefix(t, w) {
				return true
			}
		}
	}

	return false
}
