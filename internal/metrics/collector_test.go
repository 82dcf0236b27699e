package metrics_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/torosent/tableloop/internal/metrics"
	"github.com/torosent/tableloop/internal/table"
)

func TestCollectorLoadLatencyStats(t *testing.T) {
	c := metrics.NewCollector()

	c.CacheLoad("a.csv", 10*time.Millisecond, nil)
	c.CacheLoad("a.csv", 20*time.Millisecond, nil)
	c.CacheLoad("a.csv", 30*time.Millisecond, nil)
	c.CacheLoad("b.csv", 40*time.Millisecond, nil)
	c.CacheLoad("b.csv", 50*time.Millisecond, nil)

	stats := c.Stats(0)

	if stats.Loads != 5 {
		t.Errorf("expected loads 5, got %d", stats.Loads)
	}
	if stats.LoadFailures != 0 {
		t.Errorf("expected failures 0, got %d", stats.LoadFailures)
	}
	if stats.Sources != 2 {
		t.Errorf("expected 2 sources, got %d", stats.Sources)
	}
	if stats.MinLoad != 10*time.Millisecond {
		t.Errorf("expected min 10ms, got %s", stats.MinLoad)
	}
	if stats.MaxLoad != 50*time.Millisecond {
		t.Errorf("expected max 50ms, got %s", stats.MaxLoad)
	}
	if stats.MeanLoad != 30*time.Millisecond {
		t.Errorf("expected mean 30ms, got %s", stats.MeanLoad)
	}
}

func TestPercentilesCalculations(t *testing.T) {
	c := metrics.NewCollector()
	for i := 1; i <= 100; i++ {
		c.CacheLoad("a.csv", time.Duration(i)*time.Millisecond, nil)
	}

	stats := c.Stats(0)

	if stats.P50Load < 49*time.Millisecond || stats.P50Load > 51*time.Millisecond {
		t.Errorf("expected P50 ~50ms, got %s", stats.P50Load)
	}
	if stats.P99Load < 98*time.Millisecond || stats.P99Load > 100*time.Millisecond {
		t.Errorf("expected P99 ~99ms, got %s", stats.P99Load)
	}
}

func TestCollectorHitRatioAndErrors(t *testing.T) {
	c := metrics.NewCollector()
	c.CacheLoad("a.csv", time.Millisecond, nil)
	c.CacheHit("a.csv")
	c.CacheHit("a.csv")
	c.CacheHit("a.csv")
	c.CacheLoad("missing.csv", time.Millisecond, &table.LoadError{Kind: table.KindSourceNotFound, Path: "missing.csv"})
	c.CacheLoad("bad.csv", time.Millisecond, errors.New("boom"))

	stats := c.Stats(0)

	if stats.CacheHits != 3 || stats.Loads != 3 {
		t.Fatalf("hits, loads = %d, %d, want 3, 3", stats.CacheHits, stats.Loads)
	}
	if stats.HitRatio != 0.5 {
		t.Errorf("expected hit ratio 0.5, got %g", stats.HitRatio)
	}
	if stats.LoadFailures != 2 {
		t.Errorf("expected 2 failures, got %d", stats.LoadFailures)
	}
	if stats.Errors["source_not_found"] != 1 || stats.Errors["parse_failure"] != 1 {
		t.Errorf("unexpected error breakdown: %v", stats.Errors)
	}
}

func TestCollectorTicks(t *testing.T) {
	c := metrics.NewCollector()
	c.RecordTick(true, false)
	c.RecordTick(true, false)
	c.RecordTick(true, true)
	c.RecordTick(false, true)

	stats := c.Stats(2 * time.Second)

	if stats.Ticks != 4 || stats.EmptyTicks != 1 || stats.Completions != 2 {
		t.Errorf("ticks, empty, completions = %d, %d, %d, want 4, 1, 2", stats.Ticks, stats.EmptyTicks, stats.Completions)
	}
	if stats.TicksPerSec != 2 {
		t.Errorf("expected 2 ticks/sec, got %g", stats.TicksPerSec)
	}
}

func TestCollectorConcurrentSafety(t *testing.T) {
	c := metrics.NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.CacheHit("a.csv")
			c.CacheLoad("a.csv", time.Duration(i+1)*time.Microsecond, nil)
			c.RecordTick(true, false)
		}(i)
	}
	wg.Wait()

	stats := c.Stats(0)
	if stats.CacheHits != 50 || stats.Loads != 50 || stats.Ticks != 50 {
		t.Errorf("hits, loads, ticks = %d, %d, %d, want 50 each", stats.CacheHits, stats.Loads, stats.Ticks)
	}
}

func TestStatsJSONFields(t *testing.T) {
	c := metrics.NewCollector()
	c.CacheLoad("a.csv", 5*time.Millisecond, nil)

	data, err := json.Marshal(c.Stats(time.Second))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"cache_hits", "loads", "mean_load_ms", "duration_ms"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("JSON missing %q: %s", key, data)
		}
	}
	if _, ok := decoded["errors"]; ok {
		t.Errorf("errors should be omitted when empty: %s", data)
	}
}

func TestFlattenErrors(t *testing.T) {
	rows := metrics.FlattenErrors(map[string]int{
		"timeout":          1,
		"source_not_found": 3,
		"empty_table":      1,
	})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Kind != "source_not_found" || rows[0].Label != "Source not found" {
		t.Errorf("first row = %+v", rows[0])
	}
	if rows[1].Kind != "empty_table" || rows[2].Kind != "timeout" {
		t.Errorf("ties not sorted by kind: %+v", rows)
	}
	if metrics.FlattenErrors(nil) != nil {
		t.Error("FlattenErrors(nil) should be nil")
	}
}

func TestFriendlyErrorName(t *testing.T) {
	tests := map[string]string{
		"":                "Unknown error",
		"timeout":         "Load timed out",
		"disk_on_fire":    "Disk on fire",
		"parse_failure":   "Parse failure",
		"  empty_table  ": "Empty table",
	}
	for in, want := range tests {
		if got := metrics.FriendlyErrorName(in); got != want {
			t.Errorf("FriendlyErrorName(%q) = %q, want %q", in, got, want)
		}
	}
}
