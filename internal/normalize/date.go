package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/bankfeed/internal/transaction"
)

// dateLayouts are tried in order when no format was resolved for the file.
// US month-first layouts come before day-first ones, so an ambiguous
// "03/04/2024" reads as March 4 and only "15/01/2024" reaches 02/01/2006.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"01-02-2006",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"20060102",
	"Jan 2, 2006",
	"02 Jan 2006",
	"02-Jan-2006",
	time.RFC3339,
}

var tokenReplacer = strings.NewReplacer(
	"YYYY", "2006",
	"YY", "06",
	"MMMM", "January",
	"MMM", "Jan",
	"MM", "01",
	"DD", "02",
	"M", "1",
	"D", "2",
)

// Layout turns a date format into a Go layout. Token forms such as
// "DD/MM/YYYY" are converted; anything else is taken as a Go layout.
func Layout(format string) string {
	upper := strings.ToUpper(format)
	if strings.Contains(upper, "YY") || strings.Contains(upper, "DD") {
		return tokenReplacer.Replace(upper)
	}

	return format
}

var errNoLayout = errors.New("no known date layout matches")

// ParseDate returns the calendar date of s. A non-empty format is the only
// layout tried; the guess list is for files without one.
func ParseDate(s, format string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("blank date")
	}

	if format != "" {
		t, err := time.Parse(Layout(format), s)
		if err != nil {
			return time.Time{}, fmt.Errorf("date does not match format %s", format)
		}

		return transaction.CalendarDate(t), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return transaction.CalendarDate(t), nil
		}
	}

	return time.Time{}, errNoLayout
}
