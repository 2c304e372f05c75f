// Package cache memoizes lookup responses in Redis. Keys carry the domain
// so an index activation can flush exactly that domain's entries.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/searcher/request"
	pkgredis "github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/resilience"
)

const keyPrefix = "lookup:"

// Backend is the subset of the Redis client the cache needs.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	breaker *resilience.Breaker
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

type Option func(*QueryCache)

// WithBreaker skips the backend while b is open so a failing Redis does
// not add its timeout to every lookup.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *QueryCache) { c.breaker = b }
}

// New returns a cache over backend. A nil *QueryCache computes every
// lookup.
func New(backend Backend, ttl time.Duration, opts ...Option) *QueryCache {
	c := &QueryCache{
		backend: backend,
		ttl:     ttl,
		logger:  slog.Default().With("component", "query-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type shared struct {
	value  any
	cached bool
}

// GetOrCompute returns the cached response for req or computes and stores
// it. Concurrent misses for the same key share one computation. Each call
// counts as exactly one hit or one miss.
func GetOrCompute[T any](ctx context.Context, c *QueryCache, req request.LookupRequest, compute func() (T, error)) (T, bool, error) {
	if c == nil {
		v, err := compute()
		return v, false, err
	}
	key := Key(req)
	var out T
	if c.get(ctx, key, &out) {
		c.hits.Add(1)
		c.logger.Debug("cache hit", "key", key)
		return out, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		var cached T
		if c.get(ctx, key, &cached) {
			return shared{value: cached, cached: true}, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, v)
		return shared{value: v}, nil
	})
	if err != nil {
		c.misses.Add(1)
		var zero T
		return zero, false, err
	}
	res := val.(shared)
	if res.cached {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return res.value.(T), res.cached, nil
}

func (c *QueryCache) get(ctx context.Context, key string, dst any) bool {
	var data string
	err := c.breaker.Do(func() error {
		var err error
		data, err = c.backend.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		return err
	})
	if err != nil || data == "" {
		if err != nil && !errors.Is(err, resilience.ErrOpen) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return false
	}
	return true
}

func (c *QueryCache) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Do(func() error {
		return c.backend.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// Invalidate drops every cached response of domain.
func (c *QueryCache) Invalidate(ctx context.Context, domain string) error {
	if c == nil {
		return nil
	}
	var deleted int64
	err := c.breaker.Do(func() error {
		var err error
		deleted, err = c.backend.FlushByPattern(ctx, keyPrefix+domain+":*")
		return err
	})
	if err != nil {
		return fmt.Errorf("invalidating cache for %s: %w", domain, err)
	}
	c.logger.Info("cache invalidate", "domain", domain, "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}

// Key identifies the response of req. Inputs differing only in case or
// spacing share a key.
func Key(req request.LookupRequest) string {
	tags := slices.Clone(req.TagFilter())
	slices.Sort(tags)
	raw := strings.Join(strings.Fields(strings.ToLower(req.Input().Raw)), " ")
	if req.Input().Trailing {
		raw += " "
	}
	parts := fmt.Sprintf("%s|%s|%s|%s|tags=%s|max=%d|off=%d|tagmax=%d|where=%s|len=%d",
		req.Type(), req.Site().ID, req.Language(), raw, strings.Join(tags, ","),
		req.MaxItems(), req.Offset(), req.MaxTagItems(), req.AdditionalWhere(), req.ContentMatchLength())
	hash := sha256.Sum256([]byte(parts))
	return fmt.Sprintf("%s%s:%x", keyPrefix, req.Domain().Name, hash[:16])
}
