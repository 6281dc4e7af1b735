package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/example/staysite/internal/auth"
	"github.com/example/staysite/internal/calendar"
	"github.com/example/staysite/internal/logging"
	"github.com/example/staysite/internal/relay"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

//go:embed templates/*.html static/*
var fs embed.FS

// Status is what the owner panel reports about the wiring.
type Status struct {
	SourceName        string
	WebhookConfigured bool
	ReplyConfigured   bool
}

type Server struct {
	Auth     *auth.Store
	Source   calendar.Source
	Fallback calendar.Fallback
	Relay    *relay.Relay
	Log      zerolog.Logger

	Location *time.Location
	Months   int
	Locale   language.Tag
	Status   Status
	BaseURL  string

	// Now is overridden in tests.
	Now func() time.Time
}

type tmplData struct {
	Title   string
	Flash   string
	BaseURL string

	Owner        bool
	OwnerEmail   string
	LoginEnabled bool

	Calendar *calendarPage
	Panel    *ownerPanel
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Requests(logging.Component(s.Log, "web")))
	r.Use(middleware.Recoverer)

	r.Handle("/static/*", http.FileServer(http.FS(fs)))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Get("/availability.json", s.handleAvailability)
	r.Get("/pricing.json", s.handlePricing)

	chat := relay.NewHandler(s.Relay, logging.Component(s.Log, "relay"))
	r.Handle("/api/chat", chat)
	r.Handle("/.netlify/functions/chat", chat)

	r.Group(func(r chi.Router) {
		r.Use(s.Auth.Middleware)
		r.Get("/", s.handleHome)
		r.Get("/api/calendar", s.handleCalendarJSON)
		r.Get("/login", s.handleLogin)
		r.Post("/login", s.handleLogin)
		r.Get("/logout", s.handleLogout)
		r.Post("/logout", s.handleLogout)
	})

	return r
}

func (s *Server) now() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}

// load runs one Loader and reports whether it reached StateReady.
func (s *Server) load(ctx context.Context) (calendar.Snapshot, bool, error) {
	l := calendar.NewLoader(s.Source, s.Fallback, logging.Component(s.Log, "calendar"))
	snap, err := l.Load(ctx)
	return snap, l.State() == calendar.StateReady, err
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	snap, loaded, err := s.load(r.Context())
	if err != nil {
		// client went away
		return
	}
	owner := s.Auth.IsOwnerRequest(r.Context())
	today := s.now()
	views := calendar.RenderRange(today, s.Months, snap.Booked, snap.Prices)

	data := tmplData{
		Title:        "Hampton Bays Beach House",
		BaseURL:      strings.TrimRight(s.BaseURL, "/"),
		Owner:        owner,
		OwnerEmail:   s.Auth.OwnerEmail(),
		LoginEnabled: s.Auth.LoginEnabled(),
		Calendar:     buildCalendarPage(views, snap, loaded, s.formatter(snap), owner),
	}
	if owner {
		data.Panel = buildOwnerPanel(s.Status, snap)
	}
	s.render(w, http.StatusOK, "templates/home.html", data)
}

func (s *Server) formatter(snap calendar.Snapshot) calendar.Formatter {
	tag := s.Locale
	if tag == language.Und {
		tag = language.AmericanEnglish
	}
	return calendar.NewFormatter(snap.Prices.Currency, tag)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	data := tmplData{Title: "Owner login", LoginEnabled: s.Auth.LoginEnabled()}
	if !data.LoginEnabled {
		data.Flash = "Owner login is not configured"
		s.render(w, http.StatusNotFound, "templates/login.html", data)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.render(w, http.StatusOK, "templates/login.html", data)
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		id, err := s.Auth.Authenticate(strings.TrimSpace(r.FormValue("email")), r.FormValue("password"))
		if err != nil {
			data.Flash = "Invalid email/password"
			s.render(w, http.StatusUnauthorized, "templates/login.html", data)
			return
		}
		if err := s.Auth.SetSession(w, r, id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.ClearSession(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	set, err := s.Source.BookedDates(r.Context())
	if err != nil {
		s.Log.Warn().Err(err).Msg("availability resource")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "availability unavailable"})
		return
	}
	dates := set.Dates()
	sort.Strings(dates)
	writeJSON(w, http.StatusOK, calendar.AvailabilityDocument{Booked: dates})
}

func (s *Server) handlePricing(w http.ResponseWriter, r *http.Request) {
	ps, err := s.Source.PriceSchedule(r.Context(), s.Fallback)
	if err != nil {
		s.Log.Warn().Err(err).Msg("pricing resource")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "pricing unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, ps.Document())
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data tmplData) {
	t, err := template.ParseFS(fs,
		"templates/base.html",
		name,
	)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func Start(ctx context.Context, addr string, h http.Handler, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info().Str("addr", addr).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
