// Package tokens implements the Token Manager (spec §4.7): a pool of
// API tokens per provider with round-robin selection, rate-limit
// accounting, and terminal invalidation. Generalizes the teacher's
// single-token TokenBucketRateLimiter
// (infrastructure/github/rate_limiter.go) into a multi-token pool; the
// per-token accounting rule ("Active when remaining>0 or now>=reset")
// is the same rule the teacher's rate limiter already implements, now
// applied per pooled token instead of per client.
package tokens

import (
	"sync"
	"time"

	"github.com/repofleet/gitfleet/internal/domain/provider"
)

// Clock abstracts time.Now for deterministic tests.
type Clock func() time.Time

// Manager pools tokens per provider.Type and rotates among the Active
// ones. All operations are safe under concurrent use; the rotation
// cursor advances atomically with selection so a hot loop of callers
// cannot starve the last token in the rotation.
type Manager struct {
	mu     sync.Mutex
	clock  Clock
	pools  map[provider.Type][]*entry
	cursor map[provider.Type]int
}

type entry struct {
	info provider.TokenInfo
}

// NewManager creates an empty token manager using the real wall
// clock.
func NewManager() *Manager {
	return &Manager{
		clock:  time.Now,
		pools:  make(map[provider.Type][]*entry),
		cursor: make(map[provider.Type]int),
	}
}

// NewManagerWithClock is NewManager with an injectable clock, used by
// tests exercising reset-time boundaries.
func NewManagerWithClock(clock Clock) *Manager {
	m := NewManager()
	m.clock = clock
	return m
}

// AddToken idempotently inserts token as Active for the given
// provider; re-adding an existing token is a no-op.
func (m *Manager) AddToken(token string, t provider.Type) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.pools[t] {
		if e.info.Token == token {
			return
		}
	}
	m.pools[t] = append(m.pools[t], &entry{info: provider.TokenInfo{
		Token:  token,
		Type:   t,
		Status: provider.TokenActive,
	}})
}

// GetNextAvailableToken returns the next Active token for t in
// round-robin order. If every token is RateLimited, it returns the
// one with the earliest ResetTime (the caller may choose to wait). It
// returns (TokenInfo{}, false) only when no token is usable and none
// has a future reset time (i.e. every token is Invalid, or the pool is
// empty).
func (m *Manager) GetNextAvailableToken(t provider.Type) (provider.TokenInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pool := m.pools[t]
	if len(pool) == 0 {
		return provider.TokenInfo{}, false
	}

	m.refreshLocked(t, pool)

	start := m.cursor[t]
	for i := 0; i < len(pool); i++ {
		idx := (start + i) % len(pool)
		if pool[idx].info.Status == provider.TokenActive {
			m.cursor[t] = (idx + 1) % len(pool)
			return pool[idx].info, true
		}
	}

	// No Active token: fall back to the earliest-reset RateLimited one.
	var best *entry
	for _, e := range pool {
		if e.info.Status != provider.TokenRateLimited {
			continue
		}
		if best == nil || e.info.ResetTime < best.info.ResetTime {
			best = e
		}
	}
	if best != nil {
		return best.info, true
	}
	return provider.TokenInfo{}, false
}

// UpdateRateLimit authoritatively updates token's quota. remaining==0
// with a future resetTime transitions it to RateLimited; otherwise it
// becomes (or stays) Active. Updating an Invalid token is a no-op:
// invalidation is terminal.
func (m *Manager) UpdateRateLimit(token string, t provider.Type, remaining int, resetTime int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.findLocked(t, token)
	if e == nil || e.info.Status == provider.TokenInvalid {
		return
	}
	e.info.Remaining = remaining
	e.info.ResetTime = resetTime
	m.recomputeStatusLocked(e)
}

// MarkTokenInvalid terminally invalidates token; it is never returned
// by GetNextAvailableToken again and never reverts.
func (m *Manager) MarkTokenInvalid(token string, t provider.Type) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e := m.findLocked(t, token); e != nil {
		e.info.Status = provider.TokenInvalid
	}
}

// Snapshot returns a copy of every pooled token for a provider, for
// diagnostics/CLI display.
func (m *Manager) Snapshot(t provider.Type) []provider.TokenInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	pool := m.pools[t]
	m.refreshLocked(t, pool)
	out := make([]provider.TokenInfo, len(pool))
	for i, e := range pool {
		out[i] = e.info
	}
	return out
}

func (m *Manager) findLocked(t provider.Type, token string) *entry {
	for _, e := range m.pools[t] {
		if e.info.Token == token {
			return e
		}
	}
	return nil
}

// refreshLocked re-derives Active/RateLimited status for every
// non-Invalid token whose reset time has since passed.
func (m *Manager) refreshLocked(t provider.Type, pool []*entry) {
	_ = t
	for _, e := range pool {
		if e.info.Status == provider.TokenInvalid {
			continue
		}
		m.recomputeStatusLocked(e)
	}
}

func (m *Manager) recomputeStatusLocked(e *entry) {
	now := m.clock().Unix()
	if e.info.Remaining == 0 && e.info.ResetTime > now {
		e.info.Status = provider.TokenRateLimited
		return
	}
	e.info.Status = provider.TokenActive
}
