package calendar

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle of one Loader.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	}
	return "unknown"
}

// Snapshot is the data one load settled on. The error fields record why a
// resource was replaced by its fallback; they are informational only.
type Snapshot struct {
	Booked BookedDateSet
	Prices PriceSchedule

	AvailabilityErr error
	PricingErr      error
}

// Degraded reports whether either resource fell back.
func (s Snapshot) Degraded() bool { return s.AvailabilityErr != nil || s.PricingErr != nil }

// Loader fetches both calendar resources for one render. Failures are
// replaced with fallbacks; only cancellation of ctx is reported.
type Loader struct {
	source   Source
	fallback Fallback
	log      zerolog.Logger

	mu    sync.Mutex
	state State
	snap  Snapshot
}

func NewLoader(src Source, fb Fallback, log zerolog.Logger) *Loader {
	return &Loader{
		source:   src,
		fallback: fb,
		log:      log,
		snap:     Snapshot{Booked: BookedDateSet{}, Prices: fb.Schedule()},
	}
}

func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Snapshot returns the last settled data, or the fallbacks before the first load.
func (l *Loader) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap
}

// Load issues both fetches concurrently and waits for both to settle. If ctx
// is done by then the results are dropped and the state is left as is.
func (l *Loader) Load(ctx context.Context) (Snapshot, error) {
	l.mu.Lock()
	l.state = StateLoading
	l.mu.Unlock()

	var snap Snapshot
	var g errgroup.Group
	g.Go(func() error {
		set, err := l.source.BookedDates(ctx)
		if err != nil || set == nil {
			snap.AvailabilityErr = err
			set = BookedDateSet{}
		}
		snap.Booked = set
		return nil
	})
	g.Go(func() error {
		ps, err := l.source.PriceSchedule(ctx, l.fallback)
		if err != nil {
			snap.PricingErr = err
			ps = l.fallback.Schedule()
		}
		snap.Prices = ps
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	if snap.AvailabilityErr != nil {
		l.log.Warn().Err(snap.AvailabilityErr).Msg("availability unavailable, showing all dates open")
	}
	if snap.PricingErr != nil {
		l.log.Warn().Err(snap.PricingErr).Msg("pricing unavailable, using default price")
	}

	l.mu.Lock()
	l.snap = snap
	l.state = StateReady
	l.mu.Unlock()
	return snap, nil
}
