package calendar

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMonths is how many months RenderRange shows when asked for none.
const DefaultMonths = 12

// Day is one non-empty calendar cell.
type Day struct {
	Number int             `json:"day"`
	ISO    string          `json:"date"`
	Booked bool            `json:"booked"`
	Past   bool            `json:"past"`
	Price  decimal.Decimal `json:"price"`
}

// Cell is a grid position; Day is nil for the padding before the first weekday.
type Cell struct {
	Day *Day `json:"day,omitempty"`
}

func (c Cell) Empty() bool { return c.Day == nil }

// MonthView is the derived grid for one (year, month).
type MonthView struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Name  string     `json:"name"`
	Cells []Cell     `json:"cells"`
}

// Key identifies the view, e.g. "2025-07".
func (m MonthView) Key() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }

// Days returns the non-empty cells in order.
func (m MonthView) Days() []Day {
	out := make([]Day, 0, len(m.Cells))
	for _, c := range m.Cells {
		if c.Day != nil {
			out = append(out, *c.Day)
		}
	}
	return out
}

// LeadingBlanks is the number of padding cells before day 1.
func (m MonthView) LeadingBlanks() int {
	n := 0
	for _, c := range m.Cells {
		if c.Day != nil {
			break
		}
		n++
	}
	return n
}

// DaysIn returns the length of the month, accounting for leap years.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FirstWeekday returns the weekday of day 1 (Sunday=0).
func FirstWeekday(year int, month time.Month) time.Weekday {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday()
}

// ISODate formats a calendar date as YYYY-MM-DD.
func ISODate(year int, month time.Month, day int) string {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format(isoLayout)
}

// RenderMonth builds the grid for one month. today is interpreted in its own
// location; only its calendar date matters.
func RenderMonth(year int, month time.Month, today time.Time, booked BookedDateSet, prices PriceSchedule) MonthView {
	first := FirstWeekday(year, month)
	total := DaysIn(year, month)
	ty, tm, td := today.Date()
	todayDate := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)

	cells := make([]Cell, 0, int(first)+total)
	for i := 0; i < int(first); i++ {
		cells = append(cells, Cell{})
	}
	for d := 1; d <= total; d++ {
		date := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
		iso := date.Format(isoLayout)
		cells = append(cells, Cell{Day: &Day{
			Number: d,
			ISO:    iso,
			Booked: booked.Has(iso),
			Past:   date.Before(todayDate),
			Price:  prices.PriceFor(iso),
		}})
	}
	return MonthView{
		Year:  year,
		Month: month,
		Name:  time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("January 2006"),
		Cells: cells,
	}
}

// RenderRange renders months consecutive months starting at today's month.
func RenderRange(today time.Time, months int, booked BookedDateSet, prices PriceSchedule) []MonthView {
	if months <= 0 {
		months = DefaultMonths
	}
	startYear, startMonth, _ := today.Date()
	out := make([]MonthView, 0, months)
	for i := 0; i < months; i++ {
		m := int(startMonth) - 1 + i
		out = append(out, RenderMonth(startYear+m/12, time.Month(m%12+1), today, booked, prices))
	}
	return out
}
