package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/staysite/internal/calendar"
	"github.com/example/staysite/internal/relay"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	SourceDir      = "dir"
	SourcePostgres = "postgres"
	SourceHTTP     = "http"
)

type Config struct {
	ListenAddr string `validate:"required"`
	BaseURL    string `validate:"required,url"`
	LogLevel   string `validate:"oneof=trace debug info warn error"`
	LogFormat  string `validate:"oneof=json console"`

	// calendar
	Timezone       *time.Location  `validate:"required"`
	CalendarMonths int             `validate:"min=1,max=36"`
	Source         string          `validate:"oneof=dir postgres http"`
	DataDir        string          `validate:"required_if=Source dir"`
	SourceBaseURL  string          `validate:"required_if=Source http"`
	DatabaseURL    string          `validate:"required_if=Source postgres"`
	DefaultPrice   decimal.Decimal `validate:"-"`
	Currency       string          `validate:"len=3"`

	// relay
	WebhookURL    string `validate:"omitempty,url"`
	CompletionKey string
	CompletionURL string `validate:"omitempty,url"`
	Model         string

	// owner mode
	OwnerEmail        string `validate:"omitempty,email"`
	OwnerPasswordHash string
	IdentitySecret    string
	CookieHashKey     []byte
	CookieBlockKey    []byte
}

// Load reads an optional .env file and then the environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		ListenAddr:        getenv("LISTEN_ADDR", ":8080"),
		BaseURL:           getenv("BASE_URL", "http://localhost:8080"),
		LogLevel:          strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getenv("LOG_FORMAT", "console")),
		Source:            strings.ToLower(getenv("CALENDAR_SOURCE", SourceDir)),
		DataDir:           getenv("CALENDAR_DATA_DIR", "data"),
		SourceBaseURL:     os.Getenv("CALENDAR_BASE_URL"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Currency:          strings.ToUpper(getenv("DEFAULT_CURRENCY", "USD")),
		WebhookURL:        os.Getenv("SLACK_WEBHOOK_URL"),
		CompletionKey:     os.Getenv("OPENAI_API_KEY"),
		CompletionURL:     os.Getenv("OPENAI_API_URL"),
		Model:             os.Getenv("OPENAI_MODEL"),
		OwnerEmail:        strings.TrimSpace(os.Getenv("OWNER_EMAIL")),
		OwnerPasswordHash: os.Getenv("OWNER_PASSWORD_HASH"),
		IdentitySecret:    os.Getenv("IDENTITY_JWT_SECRET"),
	}

	loc, err := time.LoadLocation(getenv("PROPERTY_TIMEZONE", "America/New_York"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid PROPERTY_TIMEZONE: %w", err)
	}
	cfg.Timezone = loc

	months, err := strconv.Atoi(getenv("CALENDAR_MONTHS", strconv.Itoa(calendar.DefaultMonths)))
	if err != nil {
		return Config{}, fmt.Errorf("invalid CALENDAR_MONTHS")
	}
	cfg.CalendarMonths = months

	price, err := decimal.NewFromString(getenv("DEFAULT_NIGHTLY_PRICE", "1000"))
	if err != nil || price.IsNegative() {
		return Config{}, fmt.Errorf("invalid DEFAULT_NIGHTLY_PRICE")
	}
	cfg.DefaultPrice = price

	// cookie keys are optional; without them owner login is off
	hashKey := os.Getenv("COOKIE_HASH_KEY")
	blockKey := os.Getenv("COOKIE_BLOCK_KEY")
	if (hashKey == "") != (blockKey == "") {
		return Config{}, fmt.Errorf("COOKIE_HASH_KEY and COOKIE_BLOCK_KEY must be set together")
	}
	if hashKey != "" {
		if cfg.CookieHashKey, err = decodeB64(hashKey); err != nil {
			return Config{}, fmt.Errorf("COOKIE_HASH_KEY: %w", err)
		}
		if cfg.CookieBlockKey, err = decodeB64(blockKey); err != nil {
			return Config{}, fmt.Errorf("COOKIE_BLOCK_KEY: %w", err)
		}
		switch len(cfg.CookieBlockKey) {
		case 16, 24, 32:
		default:
			return Config{}, fmt.Errorf("COOKIE_BLOCK_KEY must decode to 16, 24 or 32 bytes")
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

var validate = validator.New()

// Fallback is the price schedule used when the pricing resource is unusable.
func (c Config) Fallback() calendar.Fallback {
	return calendar.Fallback{Currency: c.Currency, Default: c.DefaultPrice}
}

func (c Config) Relay() relay.Config {
	return relay.Config{
		WebhookURL:    c.WebhookURL,
		CompletionKey: c.CompletionKey,
		CompletionURL: c.CompletionURL,
		Model:         c.Model,
	}
}

// OwnerLogin reports whether password login can be offered.
func (c Config) OwnerLogin() bool {
	return c.OwnerEmail != "" && c.OwnerPasswordHash != "" && len(c.CookieHashKey) > 0
}

func decodeB64(s string) ([]byte, error) {
	b, err := os.ReadFile(s)
	if err == nil {
		// allow pointing to file path for k8s secret mounts
		s = string(b)
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
