package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/tableloop/internal/table"
)

// Collector records cache and cursor activity in a thread-safe manner.
type Collector struct {
	mu          sync.Mutex
	hist        *hdrhistogram.Histogram
	hits        int64
	loads       int64
	failures    int64
	ticks       int64
	emptyTicks  int64
	completions int64
	minLatency  time.Duration
	maxLatency  time.Duration
	sumLatency  time.Duration
	errorsByKey map[string]int64
	paths       map[string]struct{}
	start       time.Time
}

// Stats represents aggregated metrics.
type Stats struct {
	CacheHits    int64         `json:"cache_hits"`
	Loads        int64         `json:"loads"`
	LoadFailures int64         `json:"load_failures"`
	HitRatio     float64       `json:"hit_ratio"`
	Sources      int           `json:"sources"`
	Ticks        int64         `json:"ticks"`
	EmptyTicks   int64         `json:"empty_ticks"`
	Completions  int64         `json:"completions"`
	TicksPerSec  float64       `json:"ticks_per_sec"`
	MinLoad      time.Duration `json:"-"`
	MaxLoad      time.Duration `json:"-"`
	MeanLoad     time.Duration `json:"-"`
	P50Load      time.Duration `json:"-"`
	P90Load      time.Duration `json:"-"`
	P99Load      time.Duration `json:"-"`
	Duration     time.Duration `json:"-"`

	// JSON-friendly millisecond fields.
	MinLoadMs  float64        `json:"min_load_ms"`
	MaxLoadMs  float64        `json:"max_load_ms"`
	MeanLoadMs float64        `json:"mean_load_ms"`
	P50LoadMs  float64        `json:"p50_load_ms"`
	P90LoadMs  float64        `json:"p90_load_ms"`
	P99LoadMs  float64        `json:"p99_load_ms"`
	DurationMs float64        `json:"duration_ms"`
	Errors     map[string]int `json:"errors,omitempty"`
}

func NewCollector() *Collector {
	// Track load latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{
		hist:        h,
		errorsByKey: make(map[string]int64),
		paths:       make(map[string]struct{}),
		start:       time.Now(),
	}
}

// CacheHit counts a lookup served without touching the file.
func (c *Collector) CacheHit(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits++
	c.paths[path] = struct{}{}
}

// CacheLoad records a file read, successful or not.
func (c *Collector) CacheLoad(path string, latency time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.paths[path] = struct{}{}
	c.loads++

	if latency > 0 {
		us := latency.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}
	c.sumLatency += latency
	if c.minLatency == 0 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}

	if err != nil {
		c.failures++
		c.errorsByKey[string(table.KindOf(err))]++
	}
}

// RecordTick counts one cursor advance. hasRow is false when the table was
// empty or failed to load; complete is the loop_complete flag of the tick.
func (c *Collector) RecordTick(hasRow, complete bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	if !hasRow {
		c.emptyTicks++
	}
	if complete {
		c.completions++
	}
}

// Start resets the clock used for Elapsed.
func (c *Collector) Start() {
	c.mu.Lock()
	c.start = time.Now()
	c.mu.Unlock()
}

// Elapsed reports the time since the collector was created or last started.
func (c *Collector) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.start)
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		CacheHits:    c.hits,
		Loads:        c.loads,
		LoadFailures: c.failures,
		Sources:      len(c.paths),
		Ticks:        c.ticks,
		EmptyTicks:   c.emptyTicks,
		Completions:  c.completions,
		MinLoad:      c.minLatency,
		MaxLoad:      c.maxLatency,
	}

	if lookups := c.hits + c.loads; lookups > 0 {
		stats.HitRatio = float64(c.hits) / float64(lookups)
	}
	if c.loads > 0 {
		stats.MeanLoad = time.Duration(int64(c.sumLatency) / c.loads)
	}
	if c.hist.TotalCount() > 0 {
		stats.P50Load = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Load = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P99Load = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	stats.MinLoadMs = millis(stats.MinLoad)
	stats.MaxLoadMs = millis(stats.MaxLoad)
	stats.MeanLoadMs = millis(stats.MeanLoad)
	stats.P50LoadMs = millis(stats.P50Load)
	stats.P90LoadMs = millis(stats.P90Load)
	stats.P99LoadMs = millis(stats.P99Load)

	stats.Duration = elapsed
	stats.DurationMs = millis(elapsed)
	if elapsed > 0 && c.ticks > 0 {
		stats.TicksPerSec = float64(c.ticks) / elapsed.Seconds()
	}

	if len(c.errorsByKey) > 0 {
		stats.Errors = make(map[string]int, len(c.errorsByKey))
		for k, v := range c.errorsByKey {
			stats.Errors[k] = int(v)
		}
	}

	return stats
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
