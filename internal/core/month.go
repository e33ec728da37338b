package core

import (
	"fmt"
	"time"
)

// Month identifies one calendar month. All budget arithmetic is anchored to
// the first day of the month in UTC.
type Month struct {
	Year int
	Mon  time.Month
}

func NewMonth(year int, mon time.Month) Month {
	return MonthOf(time.Date(year, mon, 1, 0, 0, 0, 0, time.UTC))
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Mon: t.Month()}
}

// CurrentMonth returns the month containing the current wall-clock time.
func CurrentMonth() Month {
	return MonthOf(time.Now())
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q (want YYYY-MM)", ErrInvalidDate, s)
	}
	return MonthOf(t), nil
}

// Start is the first day of the month at UTC midnight.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Mon, 1, 0, 0, 0, 0, time.UTC)
}

// End is the first day of the following month; the month spans
// [Start, End).
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0)
}

func (m Month) Next() Month { return m.AddMonths(1) }

func (m Month) Prev() Month { return m.AddMonths(-1) }

func (m Month) AddMonths(n int) Month {
	return MonthOf(m.Start().AddDate(0, n, 0))
}

func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Mon < o.Mon
}

func (m Month) Contains(t time.Time) bool {
	return !t.Before(m.Start()) && t.Before(m.End())
}

func (m Month) IsZero() bool { return m.Year == 0 && m.Mon == 0 }

// String renders "YYYY-MM", the same form ParseMonth accepts and the form
// persisted in budget entry rows. Lexicographic order on these strings is
// chronological, which the storage layer relies on.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Mon))
}

// Display renders a human month name, e.g. "March 2026".
func (m Month) Display() string {
	return m.Start().Format("January 2006")
}

// MonthsBetween counts calendar months from a to b, negative when b
// precedes a.
func MonthsBetween(a, b Month) int {
	return (b.Year-a.Year)*12 + int(b.Mon) - int(a.Mon)
}
