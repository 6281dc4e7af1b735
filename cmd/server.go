package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/staysite/internal/auth"
	"github.com/example/staysite/internal/config"
	"github.com/example/staysite/internal/logging"
	"github.com/example/staysite/internal/relay"
	"github.com/example/staysite/internal/web"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool
	var locale string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the site",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

			tag, err := language.Parse(locale)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			src, closeSrc, err := openSource(ctx, cfg, migrateUp, log)
			if err != nil {
				return err
			}
			defer closeSrc()

			authStore := auth.NewStore(auth.Options{
				HashKey:           cfg.CookieHashKey,
				BlockKey:          cfg.CookieBlockKey,
				JWTSecret:         cfg.IdentitySecret,
				OwnerEmail:        cfg.OwnerEmail,
				OwnerPasswordHash: cfg.OwnerPasswordHash,
			})
			rc := cfg.Relay()

			ws := &web.Server{
				Auth:     authStore,
				Source:   src,
				Fallback: cfg.Fallback(),
				Relay:    relay.New(rc, nil, logging.Component(log, "relay")),
				Log:      log,
				Location: cfg.Timezone,
				Months:   cfg.CalendarMonths,
				Locale:   tag,
				BaseURL:  cfg.BaseURL,
				Status: web.Status{
					SourceName:        cfg.Source,
					WebhookConfigured: rc.WebhookURL != "",
					ReplyConfigured:   rc.CompletionKey != "",
				},
			}
			log.Info().
				Str("source", cfg.Source).
				Str("timezone", cfg.Timezone.String()).
				Bool("owner_login", authStore.LoginEnabled()).
				Msg("starting staysite")
			return web.Start(ctx, cfg.ListenAddr, ws.Routes(), log)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup (postgres source)")
	cmd.Flags().StringVar(&locale, "locale", "en-US", "BCP 47 locale used to format prices")

	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
