package calendar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const isoLayout = "2006-01-02"

// BookedDateSet holds the ISO dates (YYYY-MM-DD) the property is unavailable.
type BookedDateSet map[string]struct{}

func NewBookedDateSet(dates ...string) BookedDateSet {
	s := make(BookedDateSet, len(dates))
	for _, d := range dates {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		s[d] = struct{}{}
	}
	return s
}

func (s BookedDateSet) Has(iso string) bool {
	_, ok := s[iso]
	return ok
}

// Dates returns the members in no particular order.
func (s BookedDateSet) Dates() []string {
	out := make([]string, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	return out
}

// PriceSchedule is a default nightly rate plus date-specific overrides.
type PriceSchedule struct {
	Currency  string
	Default   decimal.Decimal
	Overrides map[string]decimal.Decimal
}

// PriceFor resolves the nightly price of an ISO date: the override when present, else the default.
func (p PriceSchedule) PriceFor(iso string) decimal.Decimal {
	if v, ok := p.Overrides[iso]; ok {
		return v
	}
	return p.Default
}

// Fallback is the schedule used when pricing data is missing or unreadable.
type Fallback struct {
	Currency string
	Default  decimal.Decimal
}

// DefaultFallback is USD at 1000 per night.
var DefaultFallback = Fallback{Currency: "USD", Default: decimal.NewFromInt(1000)}

func (f Fallback) Schedule() PriceSchedule {
	cur := f.Currency
	if cur == "" {
		cur = DefaultFallback.Currency
	}
	return PriceSchedule{Currency: cur, Default: f.Default, Overrides: map[string]decimal.Decimal{}}
}

// AvailabilityDocument is the wire shape of /availability.json.
type AvailabilityDocument struct {
	Booked []string `json:"booked"`
}

// PricingDocument is the wire shape of /pricing.json.
type PricingDocument struct {
	Currency string                 `json:"currency"`
	Default  json.Number            `json:"default"`
	Prices   map[string]json.Number `json:"prices"`
}

// DecodeAvailability parses an availability document. Entries that are not
// strings are skipped; a payload that is not an object with a "booked" array
// is an error.
func DecodeAvailability(b []byte) (BookedDateSet, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("availability: %w", err)
	}
	list, ok := raw["booked"]
	if !ok {
		return nil, fmt.Errorf("availability: missing booked list")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(list, &items); err != nil {
		return nil, fmt.Errorf("availability: booked is not a list: %w", err)
	}
	set := make(BookedDateSet, len(items))
	for _, it := range items {
		var d string
		if err := json.Unmarshal(it, &d); err != nil {
			continue
		}
		if d = strings.TrimSpace(d); d != "" {
			set[d] = struct{}{}
		}
	}
	return set, nil
}

// DecodePricing parses a pricing document. Each field falls back on its own:
// a missing or non-string currency becomes fb.Currency, a missing or
// non-numeric default becomes fb.Default, and override entries that are not
// numbers are dropped.
func DecodePricing(b []byte, fb Fallback) (PriceSchedule, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return PriceSchedule{}, fmt.Errorf("pricing: %w", err)
	}
	if raw == nil {
		return PriceSchedule{}, fmt.Errorf("pricing: not an object")
	}

	ps := fb.Schedule()
	if cur, ok := raw["currency"].(string); ok && strings.TrimSpace(cur) != "" {
		ps.Currency = strings.TrimSpace(cur)
	}
	if d, ok := number(raw["default"]); ok {
		ps.Default = d
	}
	if m, ok := raw["prices"].(map[string]any); ok {
		for iso, v := range m {
			if d, ok := number(v); ok {
				ps.Overrides[iso] = d
			}
		}
	}
	return ps, nil
}

func number(v any) (decimal.Decimal, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// Document converts a schedule back to its wire shape.
func (p PriceSchedule) Document() PricingDocument {
	prices := make(map[string]json.Number, len(p.Overrides))
	for k, v := range p.Overrides {
		prices[k] = json.Number(v.String())
	}
	return PricingDocument{Currency: p.Currency, Default: json.Number(p.Default.String()), Prices: prices}
}
