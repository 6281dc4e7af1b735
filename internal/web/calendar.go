package web

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/example/staysite/internal/calendar"
)

var weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

const maxMonths = 36

type calendarPage struct {
	Weekdays []string
	Months   []monthGrid
	Currency string
	Loaded   bool
	Degraded bool
}

type monthGrid struct {
	Key   string
	Name  string
	Weeks [][]cellView
}

type cellView struct {
	Empty  bool
	Number int
	ISO    string
	Booked bool
	Past   bool
	Label  string
	// Price is shown inline; for guests only on open days.
	Price string
}

type ownerPanel struct {
	Source          string
	Webhook         bool
	Reply           bool
	Booked          int
	Overrides       int
	Currency        string
	DefaultPrice    string
	AvailabilityErr string
	PricingErr      string
}

func buildCalendarPage(views []calendar.MonthView, snap calendar.Snapshot, loaded bool, money calendar.Formatter, owner bool) *calendarPage {
	page := &calendarPage{
		Weekdays: weekdays,
		Currency: money.Currency(),
		Loaded:   loaded,
		Degraded: snap.Degraded(),
	}
	for _, v := range views {
		page.Months = append(page.Months, monthGrid{Key: v.Key(), Name: v.Name, Weeks: weeks(v, money, owner)})
	}
	return page
}

// weeks splits the cells into rows of seven, padding the last row.
func weeks(v calendar.MonthView, money calendar.Formatter, owner bool) [][]cellView {
	var out [][]cellView
	var row []cellView
	for _, c := range v.Cells {
		row = append(row, toCell(c, money, owner))
		if len(row) == 7 {
			out = append(out, row)
			row = nil
		}
	}
	if len(row) > 0 {
		for len(row) < 7 {
			row = append(row, cellView{Empty: true})
		}
		out = append(out, row)
	}
	return out
}

func toCell(c calendar.Cell, money calendar.Formatter, owner bool) cellView {
	if c.Empty() {
		return cellView{Empty: true}
	}
	d := *c.Day
	cv := cellView{Number: d.Number, ISO: d.ISO, Booked: d.Booked, Past: d.Past, Label: money.Label(d)}
	if !d.Booked || owner {
		cv.Price = money.Format(d.Price)
	}
	return cv
}

func buildOwnerPanel(st Status, snap calendar.Snapshot) *ownerPanel {
	p := &ownerPanel{
		Source:       st.SourceName,
		Webhook:      st.WebhookConfigured,
		Reply:        st.ReplyConfigured,
		Booked:       len(snap.Booked),
		Overrides:    len(snap.Prices.Overrides),
		Currency:     snap.Prices.Currency,
		DefaultPrice: snap.Prices.Default.String(),
	}
	if snap.AvailabilityErr != nil {
		p.AvailabilityErr = snap.AvailabilityErr.Error()
	}
	if snap.PricingErr != nil {
		p.PricingErr = snap.PricingErr.Error()
	}
	return p
}

type calendarResponse struct {
	Loaded   bool                 `json:"loaded"`
	Degraded bool                 `json:"degraded"`
	Currency string               `json:"currency"`
	Booked   []string             `json:"booked"`
	Months   []calendar.MonthView `json:"months"`
}

func (s *Server) handleCalendarJSON(w http.ResponseWriter, r *http.Request) {
	months := s.Months
	if q := r.URL.Query().Get("months"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > maxMonths {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "months must be between 1 and 36"})
			return
		}
		months = n
	}
	snap, loaded, err := s.load(r.Context())
	if err != nil {
		return
	}
	booked := snap.Booked.Dates()
	sort.Strings(booked)
	writeJSON(w, http.StatusOK, calendarResponse{
		Loaded:   loaded,
		Degraded: snap.Degraded(),
		Currency: s.formatter(snap).Currency(),
		Booked:   booked,
		Months:   calendar.RenderRange(s.now(), months, snap.Booked, snap.Prices),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
