package cmd

import (
	"context"
	"fmt"

	"github.com/example/staysite/internal/bookings"
	"github.com/example/staysite/internal/calendar"
	"github.com/example/staysite/internal/config"
	"github.com/example/staysite/internal/db"
	"github.com/example/staysite/internal/migrate"
	"github.com/rs/zerolog"
)

// openSource builds the configured calendar source. The returned func
// releases whatever it opened.
func openSource(ctx context.Context, cfg config.Config, migrateUp bool, log zerolog.Logger) (calendar.Source, func(), error) {
	switch cfg.Source {
	case config.SourceHTTP:
		return calendar.NewHTTPSource(cfg.SourceBaseURL), func() {}, nil
	case config.SourcePostgres:
		d, err := openDB(ctx, cfg.DatabaseURL, migrateUp, log)
		if err != nil {
			return nil, nil, err
		}
		return bookings.NewRepo(d), d.Close, nil
	default:
		return calendar.DirSource{Dir: cfg.DataDir}, func() {}, nil
	}
}

func openDB(ctx context.Context, url string, migrateUp bool, log zerolog.Logger) (*db.DB, error) {
	d, err := db.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := d.Ping(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if migrateUp {
		applied, err := migrate.Up(ctx, d)
		if err != nil {
			d.Close()
			return nil, err
		}
		for _, v := range applied {
			log.Info().Str("version", v).Msg("migration applied")
		}
	}
	return d, nil
}
