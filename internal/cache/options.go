package cache

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTTL         = 300 * time.Second
	DefaultLoadTimeout = 30 * time.Second
)

// Clock returns the current time.
type Clock func() time.Time

// StatFunc reports the modification time of the source at path.
type StatFunc func(path string) (time.Time, error)

// Observer is notified of cache activity. metrics.Collector implements it.
type Observer interface {
	CacheHit(path string)
	CacheLoad(path string, latency time.Duration, err error)
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now Clock) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithStat replaces the filesystem modification time probe.
func WithStat(stat StatFunc) Option {
	return func(c *Cache) {
		if stat != nil {
			c.stat = stat
		}
	}
}

// WithTTL sets how long an entry stays valid after it was loaded. A zero TTL
// makes every lookup reload.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl >= 0 {
			c.ttl = ttl
		}
	}
}

// WithLoadTimeout bounds a single load. Zero disables the deadline.
func WithLoadTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d >= 0 {
			c.loadTimeout = d
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Cache) {
		if o != nil {
			c.observer = o
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Cache) {
		if t != nil {
			c.tracer = t
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

type nopObserver struct{}

func (nopObserver) CacheHit(string) {}
func (nopObserver) CacheLoad(string, time.Duration, error) {}
