package idp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/zitadel/dynconfig/internal/otel"
)

var tracer = otel.Tracer("github.com/zitadel/dynconfig/pkg/idp")

// StalePolicy decides what a lookup returns when the store fails
// while an expired entry is still cached.
type StalePolicy int

const (
	// StaleStrict surfaces the store failure.
	StaleStrict StalePolicy = iota
	// StaleBestEffort serves the expired entry and logs a warning.
	// Entries removed by Invalidate are never served.
	StaleBestEffort
)

func (p StalePolicy) String() string {
	switch p {
	case StaleStrict:
		return "strict"
	case StaleBestEffort:
		return "best-effort"
	default:
		return "StalePolicy(" + strconv.Itoa(int(p)) + ")"
	}
}

func ParseStalePolicy(s string) (StalePolicy, error) {
	switch s {
	case "", "strict":
		return StaleStrict, nil
	case "best-effort", "best_effort":
		return StaleBestEffort, nil
	default:
		return 0, fmt.Errorf("unknown stale policy %q", s)
	}
}

const (
	DefaultTTL          = 60 * time.Minute
	DefaultFetchTimeout = 10 * time.Second
	DefaultCacheSize    = 1000
)

type CacheOption func(*Cache)

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithFetchTimeout bounds a single store read, independent of the
// contexts of the lookups waiting for it.
func WithFetchTimeout(timeout time.Duration) CacheOption {
	return func(c *Cache) {
		c.fetchTimeout = timeout
	}
}

func WithStalePolicy(policy StalePolicy) CacheOption {
	return func(c *Cache) {
		c.stale = policy
	}
}

func WithSize(size int) CacheOption {
	return func(c *Cache) {
		c.size = size
	}
}

func WithMetrics(m *Metrics) CacheOption {
	return func(c *Cache) {
		c.metrics = m
	}
}

func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger
	}
}

func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

type cacheEntry struct {
	record  *Record
	expires time.Time
	// version identifies this fetch, 0 if the result was not cached.
	version uint64
}

// Cache serves identity provider records from memory in front of a [Store].
//
// Concurrent misses for a scheme are coalesced into a single store read.
// Every scheme carries a generation that [Cache.Invalidate] increments: a read
// only joins a fetch of the current generation and a fetch only populates the
// cache if its generation is still current, so no lookup started after
// Invalidate returned observes the invalidated record.
type Cache struct {
	store        Store
	ttl          time.Duration
	fetchTimeout time.Duration
	stale        StalePolicy
	size         int
	metrics      *Metrics
	logger       *slog.Logger
	now          func() time.Time

	group singleflight.Group

	mu          sync.Mutex
	entries     *lru.ARCCache
	generations map[string]uint64
	epoch       uint64
	version     uint64
}

func NewCache(store Store, opts ...CacheOption) (*Cache, error) {
	c := &Cache{
		store:        store,
		ttl:          DefaultTTL,
		fetchTimeout: DefaultFetchTimeout,
		size:         DefaultCacheSize,
		logger:       slog.Default(),
		now:          time.Now,
		generations:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", c.ttl)
	}
	if c.fetchTimeout <= 0 {
		return nil, fmt.Errorf("cache fetch timeout must be positive, got %s", c.fetchTimeout)
	}
	entries, err := lru.NewARC(c.size)
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

// GetByScheme returns a copy of the record of scheme.
func (c *Cache) GetByScheme(ctx context.Context, scheme string) (*Record, error) {
	e, err := c.get(ctx, scheme)
	if err != nil {
		return nil, err
	}
	return e.record.Clone(), nil
}

// Invalidate removes scheme. Once it returned, lookups read the store again.
func (c *Cache) Invalidate(scheme string) {
	c.mu.Lock()
	c.generations[scheme]++
	c.entries.Remove(scheme)
	c.mu.Unlock()
	c.logger.Debug("identity provider invalidated", "scheme", scheme)
}

// Purge removes all schemes.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.epoch++
	c.generations = make(map[string]uint64)
	c.entries.Purge()
	c.mu.Unlock()
	c.logger.Debug("identity provider cache purged")
}

func (c *Cache) get(ctx context.Context, scheme string) (*cacheEntry, error) {
	ctx, span := tracer.Start(ctx, "Cache.get")
	defer span.End()

	c.mu.Lock()
	cached, _ := c.lookup(scheme)
	epoch, gen := c.epoch, c.generations[scheme]
	c.mu.Unlock()

	if cached != nil && c.now().Before(cached.expires) {
		c.metrics.cacheLookup("hit")
		c.logger.DebugContext(ctx, "identity provider cache hit", "scheme", scheme)
		return cached, nil
	}
	c.metrics.cacheLookup("miss")
	c.logger.DebugContext(ctx, "identity provider cache miss", "scheme", scheme)

	key := scheme + "\x00" + strconv.FormatUint(epoch, 10) + "\x00" + strconv.FormatUint(gen, 10)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.fetch(ctx, scheme, epoch, gen)
	})

	select {
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(*cacheEntry), nil
		}
		if cached != nil && c.stale == StaleBestEffort && !errors.Is(res.Err, ErrNotFound) {
			c.metrics.cacheLookup("stale")
			c.logger.WarnContext(ctx, "serving stale identity provider", "scheme", scheme, "expired", cached.expires, "error", res.Err)
			return cached, nil
		}
		return nil, res.Err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: scheme %q: %w", ErrProviderResolutionTimeout, scheme, ctx.Err())
		}
		return nil, ctx.Err()
	}
}

// lookup must be called with mu held.
func (c *Cache) lookup(scheme string) (*cacheEntry, bool) {
	raw, ok := c.entries.Get(scheme)
	if !ok {
		return nil, false
	}
	return raw.(*cacheEntry), true
}

// fetch runs detached from the cancellation of the lookup that started it,
// as other lookups may be waiting for its result.
func (c *Cache) fetch(ctx context.Context, scheme string, epoch, gen uint64) (*cacheEntry, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
	defer cancel()

	start := c.now()
	record, err := c.store.GetByScheme(ctx, scheme)
	elapsed := c.now().Sub(start)
	if err == nil && record == nil {
		err = ErrNotFound
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.metrics.storeFetch("not_found", elapsed)
			return nil, fmt.Errorf("%w: scheme %q", ErrNotFound, scheme)
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			c.metrics.storeFetch("timeout", elapsed)
			c.logger.ErrorContext(ctx, "identity provider store timed out", "scheme", scheme, "timeout", c.fetchTimeout, "error", err)
			return nil, fmt.Errorf("%w: scheme %q: %w", ErrProviderResolutionTimeout, scheme, err)
		default:
			c.metrics.storeFetch("error", elapsed)
			c.logger.ErrorContext(ctx, "identity provider store failed", "scheme", scheme, "error", err)
			return nil, fmt.Errorf("%w: scheme %q: %w", ErrStoreFailure, scheme, err)
		}
	}
	c.metrics.storeFetch("success", elapsed)

	e := &cacheEntry{
		record:  record.Clone(),
		expires: c.now().Add(c.ttl),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch || gen != c.generations[scheme] {
		c.logger.DebugContext(ctx, "identity provider invalidated during fetch, not caching", "scheme", scheme)
		return e, nil
	}
	c.version++
	e.version = c.version
	c.entries.Add(scheme, e)
	return e, nil
}
