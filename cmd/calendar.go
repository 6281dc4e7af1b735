package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/example/staysite/internal/bookings"
	"github.com/example/staysite/internal/calendar"
	"github.com/example/staysite/internal/config"
	"github.com/example/staysite/internal/logging"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
)

func newCalendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Inspect and import calendar data",
	}
	cmd.AddCommand(newCalendarRenderCmd())
	cmd.AddCommand(newCalendarImportCmd())
	return cmd
}

func newCalendarRenderCmd() *cobra.Command {
	var months int
	var from string

	c := &cobra.Command{
		Use:   "render",
		Short: "Print the availability calendar from the configured source",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			today := time.Now().In(cfg.Timezone)
			if from != "" {
				t, err := time.ParseInLocation("2006-01", from, cfg.Timezone)
				if err != nil {
					return fmt.Errorf("--from: %w", err)
				}
				today = t
			}
			if months <= 0 {
				months = cfg.CalendarMonths
			}

			src, closeSrc, err := openSource(ctx, cfg, false, log)
			if err != nil {
				return err
			}
			defer closeSrc()

			snap, err := calendar.NewLoader(src, cfg.Fallback(), logging.Component(log, "calendar")).Load(ctx)
			if err != nil {
				return err
			}
			money := calendar.NewFormatter(snap.Prices.Currency, language.AmericanEnglish)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "default %s per night, [n] booked\n\n", money.Format(snap.Prices.Default))
			for _, v := range calendar.RenderRange(today, months, snap.Booked, snap.Prices) {
				writeMonth(out, v)
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	c.Flags().IntVar(&months, "months", 0, "number of months (defaults to CALENDAR_MONTHS)")
	c.Flags().StringVar(&from, "from", "", "first month as YYYY-MM (defaults to the current month)")
	return c
}

func writeMonth(w io.Writer, v calendar.MonthView) {
	fmt.Fprintln(w, v.Name)
	fmt.Fprintln(w, " Su  Mo  Tu  We  Th  Fr  Sa")
	var b strings.Builder
	for i, c := range v.Cells {
		switch {
		case c.Empty():
			b.WriteString("    ")
		case c.Day.Booked:
			fmt.Fprintf(&b, "[%2d]", c.Day.Number)
		default:
			fmt.Fprintf(&b, " %2d ", c.Day.Number)
		}
		if i%7 == 6 {
			fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
			b.Reset()
		}
	}
	if b.Len() > 0 {
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
}

func newCalendarImportCmd() *cobra.Command {
	var from string

	c := &cobra.Command{
		Use:   "import",
		Short: "Load availability.json and pricing.json into Postgres",
		Long: "Reads the two calendar resources from a directory or base URL and replaces the\n" +
			"calendar stored in DATABASE_URL, for use with CALENDAR_SOURCE=postgres.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			if from == "" {
				from = cfg.DataDir
			}
			var src calendar.Source = calendar.DirSource{Dir: from}
			if strings.HasPrefix(from, "http://") || strings.HasPrefix(from, "https://") {
				src = calendar.NewHTTPSource(from)
			}

			// unlike the site, an import refuses to degrade
			var booked calendar.BookedDateSet
			var prices calendar.PriceSchedule
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				booked, err = src.BookedDates(gctx)
				return err
			})
			g.Go(func() error {
				var err error
				prices, err = src.PriceSchedule(gctx, cfg.Fallback())
				return err
			})
			if err := g.Wait(); err != nil {
				return fmt.Errorf("read %s: %w", from, err)
			}

			d, err := openDB(ctx, cfg.DatabaseURL, true, log)
			if err != nil {
				return err
			}
			defer d.Close()

			sum, err := bookings.NewRepo(d).Import(ctx, from, booked, prices)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d booked dates, %d price overrides, default %s %s\n",
				sum.Booked, sum.Overrides, sum.Default.String(), sum.Currency)
			return nil
		},
	}

	c.Flags().StringVar(&from, "from", "", "directory or base URL holding the resources (defaults to CALENDAR_DATA_DIR)")
	return c
}
