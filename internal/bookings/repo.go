// Package bookings keeps the calendar resources in Postgres. The site only
// reads them; writes happen through the import command.
package bookings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/example/staysite/internal/calendar"
	"github.com/example/staysite/internal/db"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type Repo struct {
	db *db.DB
}

func NewRepo(d *db.DB) *Repo {
	return &Repo{db: d}
}

var _ calendar.Source = (*Repo)(nil)

func (r *Repo) BookedDates(ctx context.Context) (calendar.BookedDateSet, error) {
	rows, err := r.db.Query(ctx, `SELECT to_char(day, 'YYYY-MM-DD') FROM booked_dates ORDER BY day`)
	if err != nil {
		return nil, fmt.Errorf("booked dates: %w", err)
	}
	defer rows.Close()

	set := calendar.NewBookedDateSet()
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		set[d] = struct{}{}
	}
	return set, rows.Err()
}

// PriceSchedule uses the stored settings row when present and fb otherwise.
func (r *Repo) PriceSchedule(ctx context.Context, fb calendar.Fallback) (calendar.PriceSchedule, error) {
	ps := fb.Schedule()

	var cur, def string
	err := r.db.QueryRow(ctx, `SELECT currency, default_price::text FROM pricing_settings WHERE id`).Scan(&cur, &def)
	switch {
	case db.IsNotFound(err):
	case err != nil:
		return calendar.PriceSchedule{}, db.WrapNotFound(err)
	default:
		ps.Currency = cur
		if v, perr := decimal.NewFromString(def); perr == nil {
			ps.Default = v
		}
	}

	rows, err := r.db.Query(ctx, `SELECT to_char(day, 'YYYY-MM-DD'), price::text FROM nightly_prices ORDER BY day`)
	if err != nil {
		return calendar.PriceSchedule{}, fmt.Errorf("nightly prices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var day, price string
		if err := rows.Scan(&day, &price); err != nil {
			return calendar.PriceSchedule{}, err
		}
		v, err := decimal.NewFromString(price)
		if err != nil {
			continue
		}
		ps.Overrides[day] = v
	}
	return ps, rows.Err()
}

// Summary describes one import.
type Summary struct {
	Booked    int
	Overrides int
	Currency  string
	Default   decimal.Decimal
}

var ErrInvalidDate = errors.New("invalid date")

// Import replaces the stored calendar with booked and prices in a single
// transaction.
func (r *Repo) Import(ctx context.Context, source string, booked calendar.BookedDateSet, prices calendar.PriceSchedule) (Summary, error) {
	dates := booked.Dates()
	sort.Strings(dates)
	for _, d := range dates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return Summary{}, fmt.Errorf("%w: booked %q", ErrInvalidDate, d)
		}
	}
	for d := range prices.Overrides {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return Summary{}, fmt.Errorf("%w: price %q", ErrInvalidDate, d)
		}
	}

	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		b.Queue(`DELETE FROM booked_dates`)
		for _, d := range dates {
			b.Queue(`INSERT INTO booked_dates(day) VALUES ($1::date)`, d)
		}
		b.Queue(`DELETE FROM nightly_prices`)
		for d, p := range prices.Overrides {
			b.Queue(`INSERT INTO nightly_prices(day, price) VALUES ($1::date, $2::numeric)`, d, p.String())
		}
		b.Queue(`INSERT INTO pricing_settings(id, currency, default_price, updated_at) VALUES (TRUE, $1, $2::numeric, now())
			ON CONFLICT (id) DO UPDATE SET currency=EXCLUDED.currency, default_price=EXCLUDED.default_price, updated_at=now()`,
			prices.Currency, prices.Default.String())
		b.Queue(`INSERT INTO calendar_imports(source, booked, overrides) VALUES ($1, $2, $3)`,
			source, len(dates), len(prices.Overrides))
		return tx.SendBatch(ctx, b).Close()
	})
	if err != nil {
		return Summary{}, fmt.Errorf("import: %w", err)
	}
	return Summary{Booked: len(dates), Overrides: len(prices.Overrides), Currency: prices.Currency, Default: prices.Default}, nil
}
