package migrate

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/example/staysite/internal/db"
	"github.com/jackc/pgx/v5"
)

//go:embed *.sql
var files embed.FS

// Files lists the embedded migrations in apply order.
func Files(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// Up applies every pending migration, each in its own transaction, and
// returns the versions it applied.
func Up(ctx context.Context, d *db.DB) ([]string, error) {
	names, err := Files(files)
	if err != nil {
		return nil, err
	}

	if err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT now());`); err != nil {
		return nil, err
	}

	var applied []string
	for _, f := range names {
		var done bool
		if err := d.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, f).Scan(&done); err != nil {
			return applied, err
		}
		if done {
			continue
		}

		b, err := files.ReadFile(f)
		if err != nil {
			return applied, err
		}
		err = d.InTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(b)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations(version) VALUES ($1)`, f)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("apply %s: %w", f, err)
		}
		applied = append(applied, f)
	}

	return applied, nil
}
