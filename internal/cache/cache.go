// Package cache keeps loaded table snapshots in memory until their source
// file changes or their TTL runs out.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/singleflight"

	"github.com/torosent/tableloop/internal/table"
	"github.com/torosent/tableloop/internal/tracing"
)

// Source identifies a table. Path should already be absolute; the cache keys
// entries by it verbatim.
type Source struct {
	Path   string
	Format table.Format
}

// resolved fills in an auto format from the extension.
func (s Source) resolved() Source {
	if s.Format == "" || s.Format == table.FormatAuto {
		if detected := table.DetectFormat(s.Path); detected != "" {
			s.Format = detected
		}
	}
	return s
}

type entry struct {
	snap       *table.Snapshot
	format     table.Format
	modTime    time.Time
	insertedAt time.Time
}

// Cache maps a source path to the snapshot last loaded from it. Entries are
// replaced wholesale and removed when a load fails.
type Cache struct {
	loader      table.Loader
	now         Clock
	stat        StatFunc
	ttl         time.Duration
	loadTimeout time.Duration
	observer    Observer
	tracer      trace.Tracer
	logger      *slog.Logger

	mu      sync.Mutex
	entries map[string]entry
	group   singleflight.Group
}

// New returns a cache that loads misses through loader.
func New(loader table.Loader, opts ...Option) *Cache {
	c := &Cache{
		loader:      loader,
		now:         time.Now,
		stat:        table.ModTime,
		ttl:         DefaultTTL,
		loadTimeout: DefaultLoadTimeout,
		observer:    nopObserver{},
		tracer:      noop.NewTracerProvider().Tracer(""),
		logger:      slog.Default(),
		entries:     make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the snapshot for src. A valid entry is served without touching
// the loader; force drops the entry first so the loader always runs. Errors
// are *table.LoadError.
func (c *Cache) Get(ctx context.Context, src Source, force bool) (*table.Snapshot, error) {
	src = src.resolved()
	key := flightKey(src)

	if force {
		c.Invalidate(src.Path)
		c.group.Forget(key)
		c.logger.Debug("cache refresh forced", "path", src.Path)
	} else if snap, ok := c.lookup(src); ok {
		c.observer.CacheHit(src.Path)
		c.logger.Debug("cache hit", "path", src.Path, "rows", snap.RowCount())
		return snap, nil
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		// Another flight may have stored the entry since the lookup above.
		if !force {
			if snap, ok := c.lookup(src); ok {
				return snap, nil
			}
		}
		return c.load(ctx, src)
	})
	if shared {
		c.logger.Debug("cache load shared", "path", src.Path)
	}
	if err != nil {
		return nil, err
	}
	return v.(*table.Snapshot), nil
}

func (c *Cache) lookup(src Source) (*table.Snapshot, bool) {
	c.mu.Lock()
	e, ok := c.entries[src.Path]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	if e.format != src.Format {
		return nil, false
	}
	if !c.now().Before(e.insertedAt.Add(c.ttl)) {
		return nil, false
	}
	mod, err := c.stat(src.Path)
	if err != nil || !mod.Equal(e.modTime) {
		return nil, false
	}
	return e.snap, true
}

// load runs detached from the caller's cancellation so one caller giving up
// does not fail the others sharing the flight.
func (c *Cache) load(ctx context.Context, src Source) (*table.Snapshot, error) {
	loadCtx := context.WithoutCancel(ctx)
	if c.loadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(loadCtx, c.loadTimeout)
		defer cancel()
	}
	loadCtx, span := tracing.StartLoadSpan(loadCtx, c.tracer, src.Path, string(src.Format))

	mod, statErr := c.stat(src.Path)
	start := c.now()
	snap, err := c.loader.Load(loadCtx, src.Path, src.Format)
	latency := c.now().Sub(start)

	if err != nil {
		err = asLoadError(src.Path, err)
		c.Invalidate(src.Path)
		c.observer.CacheLoad(src.Path, latency, err)
		tracing.EndSpan(span, err)
		c.logger.Warn("table load failed", "path", src.Path, "format", src.Format, "kind", table.KindOf(err), "error", err)
		return nil, err
	}

	c.observer.CacheLoad(src.Path, latency, nil)
	tracing.EndSpan(span, nil, tracing.AttrRows.Int(snap.RowCount()))
	c.logger.Info("table loaded", "path", src.Path, "format", src.Format, "rows", snap.RowCount(), "columns", snap.ColumnCount(), "latency", latency)

	if statErr != nil {
		// Without a modification time the entry could never validate.
		c.Invalidate(src.Path)
		return snap, nil
	}
	c.mu.Lock()
	c.entries[src.Path] = entry{snap: snap, format: src.Format, modTime: mod, insertedAt: c.now()}
	c.mu.Unlock()
	return snap, nil
}

// ModTime is the staleness probe: the source's current modification time, or
// now when it cannot be read. It never changes cache state.
func (c *Cache) ModTime(path string) time.Time {
	mod, err := c.stat(path)
	if err != nil {
		return c.now()
	}
	return mod
}

// Invalidate drops the entry for path, if any.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Len reports the number of cached snapshots.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func flightKey(src Source) string {
	return string(src.Format) + "\x00" + src.Path
}

func asLoadError(path string, err error) error {
	var le *table.LoadError
	if errors.As(err, &le) {
		return err
	}
	kind := table.KindParseFailure
	if errors.Is(err, context.DeadlineExceeded) {
		kind = table.KindTimeout
	}
	return &table.LoadError{Kind: kind, Path: path, Err: err}
}
