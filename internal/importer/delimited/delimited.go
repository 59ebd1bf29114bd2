// Package delimited reads character-separated bank exports (CSV, TSV and the
// text exports spreadsheet tools produce) into a header row plus data rows.
package delimited

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

var (
	ErrEmpty    = errors.New("file has no rows")
	ErrNoHeader = errors.New("could not find a header row")
)

// Delimiters tried by Sniff, in order of preference on ties.
var Delimiters = []rune{',', ';', '\t', '|'}

const (
	// maxHeaderSearch bounds how many records may precede the header (bank preambles).
	maxHeaderSearch = 20
	sniffLines      = 30
)

type Options struct {
	// Delimiter overrides sniffing when non-zero.
	Delimiter rune
	// HeaderLine is the 1-based file line holding the headers; 0 detects it.
	HeaderLine int
}

type Table struct {
	Delimiter  rune
	HeaderLine int
	Headers    []string
	Rows       []Row
}

// Row is one data record, padded or truncated to the header width.
type Row struct {
	Line  int
	Cells []string
}

type record struct {
	line  int
	cells []string
}

func Parse(text string, opts Options) (*Table, error) {
	delim := opts.Delimiter
	if delim == 0 {
		delim = Sniff(text)
	}

	records, err := readRecords(text, delim)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, ErrEmpty
	}

	headerIdx, err := findHeader(records, opts.HeaderLine)
	if err != nil {
		return nil, err
	}

	headers := cleanHeaders(records[headerIdx].cells)

	table := &Table{
		Delimiter:  delim,
		HeaderLine: records[headerIdx].line,
		Headers:    headers,
	}

	for _, rec := range records[headerIdx+1:] {
		cells := make([]string, len(headers))
		copy(cells, rec.cells)

		table.Rows = append(table.Rows, Row{Line: rec.line, Cells: cells})
	}

	return table, nil
}

func readRecords(text string, delim rune) ([]record, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records []record

	for {
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("reading delimited text: %w", err)
		}

		if blank(cells) {
			continue
		}

		line, _ := reader.FieldPos(0)
		records = append(records, record{line: line, cells: cells})
	}

	return records, nil
}

func findHeader(records []record, headerLine int) (int, error) {
	if headerLine > 0 {
		for i, rec := range records {
			if rec.line == headerLine {
				return i, nil
			}
		}

		return 0, fmt.Errorf("%w: line %d is empty or out of range", ErrNoHeader, headerLine)
	}

	width := bodyWidth(records)

	for i, rec := range records {
		if i >= maxHeaderSearch {
			break
		}

		if looksLikeHeader(rec.cells, width) {
			return i, nil
		}
	}

	return 0, ErrNoHeader
}

// looksLikeHeader accepts a record about as wide as the body of the file
// whose non-empty cells are labels rather than values. One missing trailing
// cell is tolerated.
func looksLikeHeader(cells []string, width int) bool {
	if len(trimTrailingEmpty(cells)) < 2 || len(cells)+1 < width {
		return false
	}

	labels := 0

	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}

		if !isLabel(c) {
			return false
		}

		labels++
	}

	return labels >= 2
}

func isLabel(s string) bool {
	hasLetter := false

	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			break
		}
	}

	if !hasLetter {
		return false
	}

	// Month names ("Jan 15, 2024") and currency-suffixed amounts ("10,00 EUR")
	// contain letters but also digits; labels rarely do both.
	digits := 0

	for _, r := range s {
		if unicode.IsDigit(r) {
			digits++
		}
	}

	return digits*2 < len([]rune(s))
}

// bodyWidth is the widest record width seen at least twice, so that short
// preamble lines never outvote a handful of data rows. A file with a single
// wide record falls back to its width.
func bodyWidth(records []record) int {
	counts := make(map[int]int)
	widest, repeated := 0, 0

	for _, rec := range records {
		w := len(rec.cells)
		counts[w]++

		widest = max(widest, w)
		if counts[w] >= 2 {
			repeated = max(repeated, w)
		}
	}

	if repeated == 0 {
		return widest
	}

	return repeated
}

// cleanHeaders trims names, labels blank columns by position and makes
// duplicates unique so rows can be addressed by header name.
func cleanHeaders(cells []string) []string {
	headers := make([]string, len(cells))
	seen := make(map[string]int, len(cells))

	for i, c := range cells {
		name := strings.Join(strings.Fields(c), " ")
		if name == "" {
			name = "Column " + strconv.Itoa(i+1)
		}

		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s (%d)", name, n)
		}

		headers[i] = name
	}

	return headers
}

// Sniff picks the delimiter that splits the most lines into the same number of fields.
func Sniff(text string) rune {
	lines := make([]string, 0, sniffLines)

	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}

		lines = append(lines, l)
		if len(lines) == sniffLines {
			break
		}
	}

	best := Delimiters[0]
	bestFreq, bestCount := 0, 0

	for _, d := range Delimiters {
		freq, count := consistency(lines, d)
		if freq > bestFreq || (freq == bestFreq && count > bestCount) {
			best, bestFreq, bestCount = d, freq, count
		}
	}

	return best
}

// consistency returns how many lines share the most common non-zero
// occurrence count of d, and that count.
func consistency(lines []string, d rune) (int, int) {
	counts := make(map[int]int)
	freq, count := 0, 0

	for _, l := range lines {
		n := countOutsideQuotes(l, d)
		if n == 0 {
			continue
		}

		counts[n]++

		if counts[n] > freq || (counts[n] == freq && n > count) {
			freq, count = counts[n], n
		}
	}

	return freq, count
}

func countOutsideQuotes(line string, d rune) int {
	n := 0
	quoted := false

	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == d && !quoted:
			n++
		}
	}

	return n
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}

	return true
}

func trimTrailingEmpty(cells []string) []string {
	end := len(cells)
	for end > 0 && strings.TrimSpace(cells[end-1]) == "" {
		end--
	}

	return cells[:end]
}
