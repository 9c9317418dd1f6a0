package tracking

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/seatrail/backend-cargo/internal/obs"
)

// L2Cache is an optional shared second-level cache (Redis in production) so
// multiple instances reuse each other's enrichments.
type L2Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any) error
}

// Client orchestrates tracking lookups: cache check, rate-limit check, vendor
// register + fetch, normalization and cache write, with deterministic mock
// fallback on every failure path. Track never returns an error; the
// availability contract is that callers always get a usable result, and
// suppressed failures surface through the Lookup tag, logs and metrics.
//
// All collaborators are injected; the client owns no process-global state.
type Client struct {
	// Provider is the vendor integration. Nil puts the client in permanent
	// mock mode, the configured behaviour when no vendor credentials exist.
	Provider Provider
	Cache    *ResultCache
	Limiter  *ProviderLimiter
	L2       L2Cache
	Logger   zerolog.Logger

	mu       sync.Mutex
	inflight map[cacheKey]*inflightCall
}

type inflightCall struct {
	done   chan struct{}
	lookup Lookup
}

// Track performs one lookup for the query. Concurrent calls for the same
// (identifier, type) are coalesced onto a single vendor round-trip.
func (c *Client) Track(ctx context.Context, q Query) Lookup {
	identifier := strings.TrimSpace(q.Identifier)
	resolved, matched := c.resolveType(q)
	key := cacheKey{identifier: identifier, t: resolved}

	if !q.ForceRefresh && c.Cache != nil {
		if result, ok := c.Cache.Get(identifier, resolved); ok {
			c.observe(resolved, SourceCache, nil)
			return Lookup{Result: result, Source: SourceCache}
		}
	}

	c.mu.Lock()
	if c.inflight == nil {
		c.inflight = make(map[cacheKey]*inflightCall)
	}
	if call, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.lookup
		case <-ctx.Done():
			return c.fallback(identifier, resolved, ctx.Err())
		}
	}
	call := &inflightCall{done: make(chan struct{})}
	c.inflight[key] = call
	c.mu.Unlock()

	call.lookup = c.lookup(ctx, q, identifier, resolved, matched)

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	close(call.done)

	c.observe(resolved, call.lookup.Source, call.lookup.Suppressed)
	return call.lookup
}

func (c *Client) lookup(ctx context.Context, q Query, identifier string, resolved Type, matched bool) Lookup {
	if !q.ForceRefresh && c.L2 != nil {
		var result Result
		if ok, err := c.L2.GetJSON(ctx, resultKey(identifier, resolved), &result); err == nil && ok {
			if c.Cache != nil {
				c.Cache.Put(identifier, resolved, result)
			}
			return Lookup{Result: result, Source: SourceCache}
		} else if err != nil {
			c.Logger.Warn().Err(err).Str("tracking_number", identifier).Msg("l2 cache read failed")
		}
	}

	if c.Provider == nil {
		return c.fallback(identifier, resolved, ErrNoProvider)
	}
	if c.Limiter != nil && !c.Limiter.Allow(c.Provider.Name()) {
		return c.fallback(identifier, resolved, ErrRateLimited)
	}

	// An auto-detected identifier that matched no pattern is ambiguous: try
	// the sea-freight path first, then the air-freight path.
	candidates := []Type{resolved}
	if q.Type == TypeAuto && !matched && resolved != TypeAWB {
		candidates = append(candidates, TypeAWB)
	}

	var lastErr error
	for _, t := range candidates {
		result, err := c.fetchLive(ctx, q, identifier, t)
		if err == nil {
			if c.Cache != nil {
				c.Cache.Put(identifier, t, result)
			}
			if c.L2 != nil {
				if err := c.L2.SetJSON(ctx, resultKey(identifier, t), result); err != nil {
					c.Logger.Warn().Err(err).Str("tracking_number", identifier).Msg("l2 cache write failed")
				}
			}
			return Lookup{Result: result, Source: SourceLive}
		}
		lastErr = err
	}
	return c.fallback(identifier, resolved, lastErr)
}

// fetchLive drives one register + fetch + normalize round-trip.
func (c *Client) fetchLive(ctx context.Context, q Query, identifier string, t Type) (Result, error) {
	requestID := strings.TrimSpace(q.RequestID)
	if requestID == "" {
		ack, err := c.Provider.Register(ctx, identifier, t)
		if err != nil {
			return Result{}, fmt.Errorf("register %s: %w", identifier, err)
		}
		requestID = ack.RequestID
		if requestID == "" {
			requestID = identifier
		}
	}
	payload, err := c.Provider.Fetch(ctx, requestID, t)
	if err != nil {
		return Result{}, fmt.Errorf("fetch %s: %w", requestID, err)
	}
	return Normalize(payload, t, identifier), nil
}

// fallback synthesizes a mock result and records the suppressed cause. Mock
// results are deliberately not cached so the next call retries the vendor.
func (c *Client) fallback(identifier string, t Type, cause error) Lookup {
	if cause != nil {
		c.Logger.Warn().Err(cause).
			Str("tracking_number", identifier).
			Str("tracking_type", string(t)).
			Msg("tracking lookup fell back to mock data")
	}
	return Lookup{Result: MockResult(identifier, t), Source: SourceMock, Suppressed: cause}
}

func (c *Client) resolveType(q Query) (Type, bool) {
	if q.Type.Valid() {
		return q.Type, true
	}
	return detectType(q.Identifier)
}

func (c *Client) observe(t Type, source Source, suppressed error) {
	if obs.TrackingLookupsTotal != nil {
		obs.TrackingLookupsTotal.WithLabelValues(string(t), string(source)).Inc()
	}
	if suppressed != nil && obs.TrackingFallbacksTotal != nil {
		obs.TrackingFallbacksTotal.WithLabelValues(string(t)).Inc()
	}
}

func resultKey(identifier string, t Type) string {
	return fmt.Sprintf("track:res:%s:%s", t, identifier)
}
