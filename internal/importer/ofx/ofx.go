// Package ofx extracts statement transactions from OFX and QFX exports.
//
// Files are first handed to ofxgo. Many banks ship exports that a strict
// parser rejects (no signon block, unclosed SGML elements, Quicken
// extensions), so when that fails the <STMTTRN> blocks are scanned directly.
package ofx

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

var ErrNoTransactions = errors.New("no transaction blocks found")

// Transaction holds the raw values of one <STMTTRN> block. DatePosted is
// always reduced to YYYYMMDD.
type Transaction struct {
	Type       string
	DatePosted string
	Amount     string
	FITID      string
	Name       string
	Memo       string
	CheckNum   string
}

// Parse returns the transactions in file order. strict reports whether ofxgo
// accepted the document.
func Parse(text string) (txs []Transaction, strict bool, err error) {
	txs, err = parseStrict(text)
	if err == nil && len(txs) > 0 {
		return txs, true, nil
	}

	txs = scan(text)
	if len(txs) == 0 {
		return nil, false, ErrNoTransactions
	}

	return txs, false, nil
}

func parseStrict(text string) ([]Transaction, error) {
	resp, err := ofxgo.ParseResponse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parsing ofx: %w", err)
	}

	var txs []Transaction

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			txs = appendStrict(txs, stmt.BankTranList.Transactions)
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			txs = appendStrict(txs, stmt.BankTranList.Transactions)
		}
	}

	return txs, nil
}

func appendStrict(txs []Transaction, list []ofxgo.Transaction) []Transaction {
	for _, t := range list {
		name := string(t.Name)
		if name == "" && t.Payee != nil {
			name = string(t.Payee.Name)
		}

		amount, err := decimal.NewFromString(t.TrnAmt.FloatString(4))
		if err != nil {
			amount = decimal.Zero
		}

		txs = append(txs, Transaction{
			Type:       t.TrnType.String(),
			DatePosted: t.DtPosted.Format("20060102"),
			Amount:     amount.String(),
			FITID:      string(t.FiTID),
			Name:       name,
			Memo:       string(t.Memo),
			CheckNum:   string(t.CheckNum),
		})
	}

	return txs
}

var (
	openBlock  = regexp.MustCompile(`(?i)<STMTTRN>`)
	closeBlock = regexp.MustCompile(`(?i)</STMTTRN>|</BANKTRANLIST>`)
	element    = regexp.MustCompile(`(?i)<([A-Z0-9.]+)>([^<\r\n]*)`)
)

// scan is the tolerant path: it reads every <STMTTRN> block, closed or not,
// taking each element's text up to the next tag or line break.
func scan(text string) []Transaction {
	opens := openBlock.FindAllStringIndex(text, -1)

	var txs []Transaction

	for i, open := range opens {
		end := len(text)
		if i+1 < len(opens) {
			end = opens[i+1][0]
		}

		block := text[open[1]:end]
		if loc := closeBlock.FindStringIndex(block); loc != nil {
			block = block[:loc[0]]
		}

		fields := make(map[string]string)

		for _, m := range element.FindAllStringSubmatch(block, -1) {
			tag := strings.ToUpper(m[1])
			if _, seen := fields[tag]; seen {
				continue
			}

			fields[tag] = strings.TrimSpace(html.UnescapeString(m[2]))
		}

		name := fields["NAME"]
		if name == "" {
			name = fields["PAYEE"]
		}

		txs = append(txs, Transaction{
			Type:       fields["TRNTYPE"],
			DatePosted: datePart(fields["DTPOSTED"]),
			Amount:     strings.ReplaceAll(fields["TRNAMT"], ",", "."),
			FITID:      fields["FITID"],
			Name:       name,
			Memo:       fields["MEMO"],
			CheckNum:   fields["CHECKNUM"],
		})
	}

	return txs
}

// datePart keeps the leading YYYYMMDD of an OFX datetime such as
// 20240115120000.000[-5:EST].
func datePart(s string) string {
	if len(s) >= 8 {
		return s[:8]
	}

	return s
}
