package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/example/staysite/internal/internaltypes"
)

const (
	AvailabilityFile = "availability.json"
	PricingFile      = "pricing.json"
)

// Source provides the two read-only calendar resources.
type Source interface {
	BookedDates(ctx context.Context) (BookedDateSet, error)
	PriceSchedule(ctx context.Context, fb Fallback) (PriceSchedule, error)
}

// HTTPSource reads the resources from a static host, e.g. https://example.com/availability.json.
// Every request carries a changing v= query parameter so intermediaries do not
// serve a stale copy.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
	Now     func() time.Time
}

func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
		Now:     time.Now,
	}
}

func (s *HTTPSource) BookedDates(ctx context.Context) (BookedDateSet, error) {
	b, err := s.fetch(ctx, AvailabilityFile)
	if err != nil {
		return nil, err
	}
	return DecodeAvailability(b)
}

func (s *HTTPSource) PriceSchedule(ctx context.Context, fb Fallback) (PriceSchedule, error) {
	b, err := s.fetch(ctx, PricingFile)
	if err != nil {
		return PriceSchedule{}, err
	}
	return DecodePricing(b, fb)
}

// URL returns the cache-busted address of a resource.
func (s *HTTPSource) URL(name string) (string, error) {
	u, err := url.Parse(strings.TrimRight(s.BaseURL, "/") + "/" + name)
	if err != nil {
		return "", err
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	q := u.Query()
	q.Set("v", strconv.FormatInt(now().UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *HTTPSource) fetch(ctx context.Context, name string) ([]byte, error) {
	rawURL, err := s.URL(name)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("cache-control", "no-cache")

	hc := s.Client
	if hc == nil {
		hc = http.DefaultClient
	}
	res, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s (status=%d): %w", name, res.StatusCode, internaltypes.ErrUnavailable)
	}
	return body, nil
}

// DirSource reads the resources from a local directory.
type DirSource struct {
	Dir string
}

func (s DirSource) BookedDates(ctx context.Context) (BookedDateSet, error) {
	b, err := os.ReadFile(filepath.Join(s.Dir, AvailabilityFile))
	if err != nil {
		return nil, err
	}
	return DecodeAvailability(b)
}

func (s DirSource) PriceSchedule(ctx context.Context, fb Fallback) (PriceSchedule, error) {
	b, err := os.ReadFile(filepath.Join(s.Dir, PricingFile))
	if err != nil {
		return PriceSchedule{}, err
	}
	return DecodePricing(b, fb)
}
