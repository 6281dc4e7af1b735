// Package relay forwards a site chat message to the team webhook and, when
// configured, asks a chat-completion service for an automatic reply. Neither
// outbound call can fail the inquiry: each stage yields a tagged result and the
// response is composed from the two.
package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	// ReplyReceived is used when no completion credential is configured.
	ReplyReceived = "Thanks. We received your message and will get back to you shortly"
	// ReplyFallback is used when the completion call does not produce text.
	ReplyFallback = "Thanks. We received your message"
)

const DefaultSystemPrompt = "You are a helpful concierge for a Hampton Bays luxury rental with 4 bedrooms, 5 baths, " +
	"heated saltwater pool, sleeps 10, minutes from Shinnecock Hills. Be concise and friendly. " +
	"If asked about availability, explain that the team will confirm by email after an inquiry is submitted on the Contact section."

// Config is built once at startup and never changes afterwards.
type Config struct {
	WebhookURL string

	CompletionKey string
	CompletionURL string
	Model         string
	MaxTokens     int
	Temperature   float64
	SystemPrompt  string

	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.CompletionURL == "" {
		c.CompletionURL = "https://api.openai.com/v1/chat/completions"
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 220
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.4
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return c
}

// NotifyStatus is the outcome of the team notification stage.
type NotifyStatus int

const (
	NotifySkipped NotifyStatus = iota
	NotifyDelivered
	NotifyFailed
)

func (s NotifyStatus) String() string {
	switch s {
	case NotifySkipped:
		return "skipped"
	case NotifyDelivered:
		return "delivered"
	case NotifyFailed:
		return "failed"
	}
	return "unknown"
}

type Notification struct {
	Status NotifyStatus
	Err    error
}

// CompletionStatus is the outcome of the auto-reply stage.
type CompletionStatus int

const (
	CompletionSkipped CompletionStatus = iota
	CompletionGenerated
	CompletionFailed
)

func (s CompletionStatus) String() string {
	switch s {
	case CompletionSkipped:
		return "skipped"
	case CompletionGenerated:
		return "generated"
	case CompletionFailed:
		return "failed"
	}
	return "unknown"
}

// Completion carries the generated text when Status is CompletionGenerated.
type Completion struct {
	Status CompletionStatus
	Text   string
	Err    error
}

func (c Completion) Reply() string {
	switch c.Status {
	case CompletionSkipped:
		return ReplyReceived
	case CompletionGenerated:
		if c.Text != "" {
			return c.Text
		}
	}
	return ReplyFallback
}

// Result is the body of a successful relay response.
type Result struct {
	Notified bool   `json:"notified"`
	Reply    string `json:"reply"`
}

func Compose(n Notification, c Completion) Result {
	return Result{Notified: n.Status == NotifyDelivered, Reply: c.Reply()}
}

type Notifier interface {
	Notify(ctx context.Context, message string) Notification
}

type Completer interface {
	Complete(ctx context.Context, message string) Completion
}

type skipNotifier struct{}

func (skipNotifier) Notify(context.Context, string) Notification {
	return Notification{Status: NotifySkipped}
}

type skipCompleter struct{}

func (skipCompleter) Complete(context.Context, string) Completion {
	return Completion{Status: CompletionSkipped}
}

// Relay runs the two stages for one message.
type Relay struct {
	notifier  Notifier
	completer Completer
	log       zerolog.Logger
}

// New wires the stages from cfg. A missing webhook URL or credential turns
// the corresponding stage into a no-op.
func New(cfg Config, hc *http.Client, log zerolog.Logger) *Relay {
	cfg = cfg.withDefaults()
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	r := &Relay{notifier: skipNotifier{}, completer: skipCompleter{}, log: log}
	if cfg.WebhookURL != "" {
		r.notifier = &WebhookNotifier{URL: cfg.WebhookURL, Client: hc}
	}
	if cfg.CompletionKey != "" {
		r.completer = &ChatCompleter{
			URL:          cfg.CompletionURL,
			Key:          cfg.CompletionKey,
			Model:        cfg.Model,
			MaxTokens:    cfg.MaxTokens,
			Temperature:  cfg.Temperature,
			SystemPrompt: cfg.SystemPrompt,
			Client:       hc,
		}
	}
	return r
}

// NewWith builds a Relay from explicit stages.
func NewWith(n Notifier, c Completer, log zerolog.Logger) *Relay {
	if n == nil {
		n = skipNotifier{}
	}
	if c == nil {
		c = skipCompleter{}
	}
	return &Relay{notifier: n, completer: c, log: log}
}

// Relay notifies first, then asks for a reply regardless of how notifying went.
func (r *Relay) Relay(ctx context.Context, message string) Result {
	log := r.logger(ctx)
	n := r.notifier.Notify(ctx, message)
	if n.Status == NotifyFailed {
		log.Warn().Err(n.Err).Msg("team notification failed")
	}
	c := r.completer.Complete(ctx, message)
	if c.Status == CompletionFailed {
		log.Warn().Err(c.Err).Msg("auto reply failed")
	}
	log.Info().Str("notify", n.Status.String()).Str("completion", c.Status.String()).Msg("inquiry relayed")
	return Compose(n, c)
}

// logger prefers the request-scoped logger carried by ctx.
func (r *Relay) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &r.log
}
