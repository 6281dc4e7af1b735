package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func schedule(def int64, overrides map[string]int64) PriceSchedule {
	ps := PriceSchedule{Currency: "USD", Default: decimal.NewFromInt(def), Overrides: map[string]decimal.Decimal{}}
	for k, v := range overrides {
		ps.Overrides[k] = decimal.NewFromInt(v)
	}
	return ps
}

func dayByISO(t *testing.T, m MonthView, iso string) Day {
	t.Helper()
	for _, d := range m.Days() {
		if d.ISO == iso {
			return d
		}
	}
	t.Fatalf("no cell for %s in %s", iso, m.Key())
	return Day{}
}

func TestRenderMonthDayCounts(t *testing.T) {
	today := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		year  int
		month time.Month
		days  int
	}{
		{2024, time.February, 29},
		{2023, time.February, 28},
		{1900, time.February, 28},
		{2000, time.February, 29},
		{2025, time.April, 30},
		{2025, time.December, 31},
	}
	for _, c := range cases {
		m := RenderMonth(c.year, c.month, today, BookedDateSet{}, schedule(1000, nil))
		if got := len(m.Days()); got != c.days {
			t.Fatalf("%d-%02d: got %d day cells, want %d", c.year, c.month, got, c.days)
		}
		if got, want := m.LeadingBlanks(), int(FirstWeekday(c.year, c.month)); got != want {
			t.Fatalf("%d-%02d: got %d leading blanks, want %d", c.year, c.month, got, want)
		}
	}
}

func TestRenderMonthLeadingBlanks(t *testing.T) {
	today := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	// June 1, 2025 is a Sunday; February 1, 2025 is a Saturday.
	if got := RenderMonth(2025, time.June, today, nil, schedule(1, nil)).LeadingBlanks(); got != 0 {
		t.Fatalf("june 2025: got %d blanks, want 0", got)
	}
	if got := RenderMonth(2025, time.February, today, nil, schedule(1, nil)).LeadingBlanks(); got != 6 {
		t.Fatalf("february 2025: got %d blanks, want 6", got)
	}
}

func TestRenderMonthBooked(t *testing.T) {
	today := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	m := RenderMonth(2025, time.July, today, NewBookedDateSet("2025-07-04"), schedule(1000, nil))
	if !dayByISO(t, m, "2025-07-04").Booked {
		t.Fatalf("expected 2025-07-04 booked")
	}
	for _, iso := range []string{"2025-07-03", "2025-07-05"} {
		if dayByISO(t, m, iso).Booked {
			t.Fatalf("expected %s available", iso)
		}
	}
}

func TestRenderMonthPrices(t *testing.T) {
	today := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	m := RenderMonth(2025, time.August, today, nil, schedule(1000, map[string]int64{"2025-08-15": 2500}))
	if p := dayByISO(t, m, "2025-08-15").Price; !p.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("override: got %s, want 2500", p)
	}
	if p := dayByISO(t, m, "2025-08-16").Price; !p.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("default: got %s, want 1000", p)
	}
}

func TestRenderMonthPast(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// Late evening local time: the UTC date is already the next day.
	today := time.Date(2025, 7, 10, 23, 30, 0, 0, loc)
	m := RenderMonth(2025, time.July, today, nil, schedule(1000, nil))
	if !dayByISO(t, m, "2025-07-09").Past {
		t.Fatalf("yesterday should be past")
	}
	if dayByISO(t, m, "2025-07-10").Past {
		t.Fatalf("today should never be past")
	}
	if dayByISO(t, m, "2025-07-11").Past {
		t.Fatalf("tomorrow should not be past")
	}
}

func TestRenderRangeWrapsYear(t *testing.T) {
	today := time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC)
	views := RenderRange(today, 4, nil, schedule(1000, nil))
	want := []string{"2025-11", "2025-12", "2026-01", "2026-02"}
	if len(views) != len(want) {
		t.Fatalf("got %d months, want %d", len(views), len(want))
	}
	for i, v := range views {
		if v.Key() != want[i] {
			t.Fatalf("month %d: got %s, want %s", i, v.Key(), want[i])
		}
	}
	if views[2].Name != "January 2026" {
		t.Fatalf("unexpected name %q", views[2].Name)
	}
}

func TestRenderRangeDefault(t *testing.T) {
	views := RenderRange(time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), 0, nil, schedule(1000, nil))
	if len(views) != DefaultMonths {
		t.Fatalf("got %d months, want %d", len(views), DefaultMonths)
	}
}

func TestFailedAvailabilityLoadRendersAllOpen(t *testing.T) {
	src := &stubSource{bookedErr: errors.New("boom"), prices: schedule(1000, nil)}
	snap, err := NewLoader(src, DefaultFallback, zerolog.Nop()).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.AvailabilityErr == nil {
		t.Fatalf("expected the availability error to be recorded")
	}

	today := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	failed := RenderRange(today, 3, snap.Booked, snap.Prices)
	empty := RenderRange(today, 3, BookedDateSet{}, schedule(1000, nil))
	for i := range failed {
		df, de := failed[i].Days(), empty[i].Days()
		if len(df) != len(de) {
			t.Fatalf("%s: %d days, want %d", failed[i].Name, len(df), len(de))
		}
		for j := range df {
			if df[j].Booked || df[j].ISO != de[j].ISO || !df[j].Price.Equal(de[j].Price) {
				t.Fatalf("views differ at %s", df[j].ISO)
			}
		}
	}
}
