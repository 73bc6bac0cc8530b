// Package calendar holds the date conventions shared by the offline price-table job
// and the serving-time feature reconstruction. Both sides must call the same functions.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/salescast/internal/contracts"
)

const (
	// ISODateLayout is the request date format of the item endpoint (yyyy-mm-dd)
	ISODateLayout = "2006-01-02"
	// NationalDateLayout is the date format of the national endpoint (dd/mm/yyyy)
	NationalDateLayout = "02/01/2006"
)

// YearWeekConvention selects how a date maps to a year-week price key
type YearWeekConvention string

const (
	// WalmartFiscal: weeks start on Saturday, the fiscal year starts the Saturday after the
	// last Friday of January. Key = 10000 + (fiscal year mod 100)*100 + week, e.g. 2011-01-29 -> 11101.
	WalmartFiscal YearWeekConvention = "walmart_fiscal"
	// CalendarISO: calendar year*100 + ISO week number (year is NOT the ISO year).
	CalendarISO YearWeekConvention = "calendar_iso"
	// ISO: ISO year*100 + ISO week number.
	ISO YearWeekConvention = "iso"
)

// ParseYearWeekConvention validates a convention name
func ParseYearWeekConvention(s string) (YearWeekConvention, error) {
	switch c := YearWeekConvention(strings.ToLower(strings.TrimSpace(s))); c {
	case WalmartFiscal, CalendarISO, ISO:
		return c, nil
	default:
		return "", fmt.Errorf("unknown year-week convention %q (valid: walmart_fiscal, calendar_iso, iso)", s)
	}
}

// YearWeek derives the year-week key of a date
func (c YearWeekConvention) YearWeek(d time.Time) int {
	d = Day(d)
	switch c {
	case CalendarISO:
		_, week := d.ISOWeek()
		return d.Year()*100 + week
	case ISO:
		year, week := d.ISOWeek()
		return year*100 + week
	default:
		year, week := fiscalWeek(d)
		return 10000 + (year%100)*100 + week
	}
}

// fiscalWeek returns the Walmart fiscal year and 1-based week of d
func fiscalWeek(d time.Time) (int, int) {
	year := d.Year()
	start := fiscalYearStart(year)
	if d.Before(start) {
		year--
		start = fiscalYearStart(year)
	}
	days := int(d.Sub(start).Hours() / 24)
	return year, days/7 + 1
}

// fiscalYearStart is the Saturday following the last Friday of January
func fiscalYearStart(year int) time.Time {
	d := time.Date(year, time.January, 31, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Friday {
		d = d.AddDate(0, 0, -1)
	}
	return d.AddDate(0, 0, 1)
}

// Day truncates t to midnight UTC of its calendar date
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Weekend is the set of weekdays counted as weekend
type Weekend map[time.Weekday]bool

// DefaultWeekend is Saturday and Sunday
func DefaultWeekend() Weekend {
	return Weekend{time.Saturday: true, time.Sunday: true}
}

// ParseWeekend builds a Weekend from weekday names ("saturday", "sun", ...)
func ParseWeekend(names []string) (Weekend, error) {
	if len(names) != 2 {
		return nil, fmt.Errorf("weekend must name exactly two days, got %d", len(names))
	}
	w := Weekend{}
	for _, n := range names {
		day, ok := weekdays[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", n)
		}
		w[day] = true
	}
	if len(w) != 2 {
		return nil, fmt.Errorf("weekend days must be distinct")
	}
	return w, nil
}

// Contains reports whether d falls on a weekend day
func (w Weekend) Contains(d time.Time) bool {
	return w[d.Weekday()]
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseISODate parses a yyyy-mm-dd request date
func ParseISODate(field, s string) (time.Time, error) {
	d, err := time.Parse(ISODateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, contracts.NewValidationError(field, "%q does not match the required format yyyy-mm-dd", s)
	}
	return d, nil
}

// ParseNationalDate parses a dd/mm/yyyy request date
func ParseNationalDate(field, s string) (time.Time, error) {
	d, err := time.Parse(NationalDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, contracts.NewValidationError(field, "%q does not match the required format dd/mm/yyyy", s)
	}
	return d, nil
}

// FormatNationalDate formats a date as dd/mm/yyyy
func FormatNationalDate(d time.Time) string {
	return d.Format(NationalDateLayout)
}
