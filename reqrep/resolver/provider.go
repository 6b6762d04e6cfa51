package resolver

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agaheman/ReqRepTransformation/reqrep/plan"
)

// DetailProvider maps an incoming (method, path) pair to a resolved plan.
// It is the host's sole dependency for turning a request into a plan, which
// it then hands to the executor.
type DetailProvider interface {
	Resolve(method, path string) (plan.Detail, error)
}

// StaticProvider resolves routes from an in-memory RouteSource and caches
// the built plan.Detail keyed on CacheKey(method, path). It is
// concurrent-read/mostly-read: lookups take a read path through sync.Map,
// cache fills race harmlessly (last write wins, all writes are equivalent
// since they resolve the same rows).
type StaticProvider struct {
	source  RouteSource
	builder *Builder
	opts    func(rows []RouteEntry) BuildOptions
	log     *zap.Logger

	cache sync.Map // string -> plan.Detail
}

// NewStaticProvider builds a StaticProvider. optsFn derives the per-route
// BuildOptions (timeout, failure mode, parallel flag) from the matched row
// set; callers that keep these as route-level columns alongside
// RouteEntry can close over that lookup here.
func NewStaticProvider(source RouteSource, builder *Builder, optsFn func(rows []RouteEntry) BuildOptions, log *zap.Logger) *StaticProvider {
	if log == nil {
		log = zap.NewNop()
	}
	if optsFn == nil {
		optsFn = func([]RouteEntry) BuildOptions { return BuildOptions{} }
	}
	return &StaticProvider{source: source, builder: builder, opts: optsFn, log: log}
}

// Resolve returns the cached plan for (method, path), building and caching
// it on first access. A RouteSource failure is logged and treated as
// pass-through: the caller gets plan.Empty, not an error, so the host
// simply forwards without transforms rather than breaking the exchange.
func (p *StaticProvider) Resolve(method, path string) (plan.Detail, error) {
	key := CacheKey(method, path)
	if cached, ok := p.cache.Load(key); ok {
		return cached.(plan.Detail), nil
	}

	rows, err := p.source.Routes()
	if err != nil {
		p.log.Warn("resolver: route source failed, passing through without transforms", zap.Error(err))
		return plan.Empty, nil
	}

	matched := matchRows(rows, method, path)
	detail := p.builder.Build(matched, p.opts(matched))
	p.cache.Store(key, detail)
	return detail, nil
}

// Invalidate drops one cached entry, forcing the next Resolve for that key
// to rebuild from the RouteSource.
func (p *StaticProvider) Invalidate(method, path string) {
	p.cache.Delete(CacheKey(method, path))
}

// TTLProvider wraps a DetailProvider with a sliding-window invalidation
// policy: every access pushes a key's expiry ttl into the future, and a
// cached plan not accessed for longer than ttl is rebuilt on next access
// rather than reused indefinitely, without the inner provider needing to
// know about time at all.
type TTLProvider struct {
	inner DetailProvider
	ttl   time.Duration

	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewTTLProvider wraps inner with a sliding-window TTL. now is the clock
// source; callers pass time.Now in production and a fake in tests.
func NewTTLProvider(inner DetailProvider, ttl time.Duration, now func() time.Time) *TTLProvider {
	if now == nil {
		now = time.Now
	}
	return &TTLProvider{inner: inner, ttl: ttl, expires: make(map[string]time.Time), now: now}
}

// Resolve delegates to the wrapped provider, invalidating the underlying
// StaticProvider's cache entry first if its sliding window has lapsed.
func (p *TTLProvider) Resolve(method, path string) (plan.Detail, error) {
	key := CacheKey(method, path)

	p.mu.Lock()
	expiry, known := p.expires[key]
	expired := known && p.now().After(expiry)
	p.expires[key] = p.now().Add(p.ttl)
	p.mu.Unlock()

	if expired {
		if invalidator, ok := p.inner.(interface{ Invalidate(method, path string) }); ok {
			invalidator.Invalidate(method, path)
		}
	}

	return p.inner.Resolve(method, path)
}
