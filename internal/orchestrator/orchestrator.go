package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"mangacal/internal/providers"
	"mangacal/pkg/models"
)

// ErrNoResult means every registered backend failed or returned nothing.
// Individual backend failures are absorbed and logged; this is the only
// resolution error callers ever see.
var ErrNoResult = errors.New("no metadata found")

// defaultAttemptTimeout is the ceiling for one backend attempt. A caller
// deadline shorter than this still wins.
const defaultAttemptTimeout = 30 * time.Second

// Orchestrator coordinates the registered metadata backends. It is
// constructed once at process start and passed by reference; the backend
// set only changes under Reconfigure, guarded by a single lock.
type Orchestrator struct {
	mu             sync.RWMutex
	backends       []providers.Provider // registration order = fallback priority
	attemptTimeout time.Duration
}

// New registers every candidate whose IsAvailable check passes, preserving
// the given order as fallback priority.
func New(ctx context.Context, candidates ...providers.Provider) *Orchestrator {
	o := &Orchestrator{attemptTimeout: defaultAttemptTimeout}
	o.Reconfigure(ctx, candidates...)
	return o
}

// Reconfigure re-runs availability checks and swaps the backend set. Called
// at startup and again whenever credentials change at runtime.
func (o *Orchestrator) Reconfigure(ctx context.Context, candidates ...providers.Provider) {
	registered := make([]providers.Provider, 0, len(candidates))
	for _, c := range candidates {
		if !c.IsAvailable(ctx) {
			log.Printf("[orchestrator] backend %s unavailable, not registered", c.Name())
			continue
		}
		registered = append(registered, c)
	}

	o.mu.Lock()
	o.backends = registered
	o.mu.Unlock()
	log.Printf("[orchestrator] %d backend(s) registered", len(registered))
}

// Backends returns the registered backend names in priority order.
func (o *Orchestrator) Backends() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := make([]string, 0, len(o.backends))
	for _, b := range o.backends {
		names = append(names, b.Name())
	}
	return names
}

// Provider returns the registered backend with the given name, or nil.
func (o *Orchestrator) Provider(name string) providers.Provider {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, b := range o.backends {
		if b.Name() == name {
			return b
		}
	}
	return nil
}

// HasReliableFutureBoundary reports the capability flag for a metadata
// source. Unknown sources are assumed reliable so the calendar window still
// applies to them.
func (o *Orchestrator) HasReliableFutureBoundary(source string) bool {
	if b := o.Provider(source); b != nil {
		return b.HasReliableFutureBoundary()
	}
	return true
}

func (o *Orchestrator) snapshot() []providers.Provider {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]providers.Provider(nil), o.backends...)
}

// ResolveWithFallback walks the backends in priority order and returns the
// first usable result. Sequential on purpose: interactive search wants
// predictable latency and no wasted quota once an answer arrives.
func (o *Orchestrator) ResolveWithFallback(ctx context.Context, query string) (*models.ExtractionResult, error) {
	for _, b := range o.snapshot() {
		res, err := o.extract(ctx, b, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("[orchestrator] backend %s miss: %v", b.Name(), err)
			continue
		}
		return res, nil
	}
	return nil, ErrNoResult
}

// ResolveBestOf queries every backend concurrently, each under its own
// attempt timeout, and returns the highest-confidence result. Arrival order
// never decides the winner; ties go to the earliest-registered backend.
// Used for enrichment, where accuracy beats latency.
func (o *Orchestrator) ResolveBestOf(ctx context.Context, query string) (*models.ExtractionResult, error) {
	backends := o.snapshot()
	if len(backends) == 0 {
		return nil, ErrNoResult
	}

	type attempt struct {
		idx int
		res *models.ExtractionResult
	}
	ch := make(chan attempt, len(backends))

	for i, b := range backends {
		go func(idx int, b providers.Provider) {
			res, err := o.extract(ctx, b, query)
			if err != nil {
				log.Printf("[orchestrator] backend %s miss: %v", b.Name(), err)
				ch <- attempt{idx: idx}
				return
			}
			ch <- attempt{idx: idx, res: res}
		}(i, b)
	}

	var best *attempt
	consider := func(a attempt) {
		if a.res == nil {
			return
		}
		if best == nil || a.res.Confidence > best.res.Confidence ||
			(a.res.Confidence == best.res.Confidence && a.idx < best.idx) {
			best = &attempt{idx: a.idx, res: a.res}
		}
	}

	pending := len(backends)
collect:
	for pending > 0 {
		select {
		case a := <-ch:
			pending--
			consider(a)
		case <-ctx.Done():
			// Deadline hit: abandon in-flight calls but keep whatever has
			// already landed in the channel eligible for selection.
			for {
				select {
				case a := <-ch:
					consider(a)
				default:
					break collect
				}
			}
		}
	}

	if best == nil {
		return nil, ErrNoResult
	}
	return best.res, nil
}

// extract runs one backend attempt: search, pick the best-scored hit, fetch
// its details. The whole attempt shares one bounded timeout.
func (o *Orchestrator) extract(ctx context.Context, b providers.Provider, query string) (*models.ExtractionResult, error) {
	cctx, cancel := context.WithTimeout(ctx, o.attemptTimeout)
	defer cancel()

	hits, err := b.Search(cctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(hits) == 0 {
		return nil, errors.New("no search results")
	}

	top := hits[0]
	for _, h := range hits[1:] {
		if h.Score > top.Score {
			top = h
		}
	}

	res, err := b.GetDetails(cctx, top.ID)
	if err != nil {
		return nil, fmt.Errorf("details for %s: %w", top.ID, err)
	}
	if res == nil {
		return nil, errors.New("empty result")
	}
	if res.Source == "" {
		res.Source = b.Name()
	}
	return res, nil
}
