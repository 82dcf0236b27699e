package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/torosent/tableloop/internal/table"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type fakeStat struct {
	mu    sync.Mutex
	times map[string]time.Time
}

func (f *fakeStat) Stat(path string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.times[path]
	if !ok {
		return time.Time{}, os.ErrNotExist
	}
	return t, nil
}

func (f *fakeStat) Touch(path string, t time.Time) {
	f.mu.Lock()
	f.times[path] = t
	f.mu.Unlock()
}

type countingLoader struct {
	calls atomic.Int32
	rows  int
	err   error
	delay time.Duration
}

func (l *countingLoader) Load(ctx context.Context, path string, format table.Format) (*table.Snapshot, error) {
	l.calls.Add(1)
	if l.delay > 0 {
		select {
		case <-time.After(l.delay):
		case <-ctx.Done():
			return nil, &table.LoadError{Kind: table.KindTimeout, Path: path, Err: ctx.Err()}
		}
	}
	if l.err != nil {
		return nil, l.err
	}
	col := make([]table.Value, l.rows)
	for i := range col {
		col[i] = table.IntValue(int64(i))
	}
	return table.NewSnapshot([]string{"n"}, [][]table.Value{col})
}

type recordingObserver struct {
	mu    sync.Mutex
	hits  int
	loads int
	errs  []error
}

func (r *recordingObserver) CacheHit(string) {
	r.mu.Lock()
	r.hits++
	r.mu.Unlock()
}

func (r *recordingObserver) CacheLoad(_ string, _ time.Duration, err error) {
	r.mu.Lock()
	r.loads++
	if err != nil {
		r.errs = append(r.errs, err)
	}
	r.mu.Unlock()
}

const testPath = "/data/rows.csv"

func newTestCache(loader table.Loader, opts ...Option) (*Cache, *fakeClock, *fakeStat) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	stat := &fakeStat{times: map[string]time.Time{testPath: clock.now.Add(-time.Hour)}}
	base := []Option{WithClock(clock.Now), WithStat(stat.Stat), WithTTL(time.Minute)}
	return New(loader, append(base, opts...)...), clock, stat
}

var src = Source{Path: testPath, Format: table.FormatCSV}

func TestGetHitDoesNotReload(t *testing.T) {
	loader := &countingLoader{rows: 3}
	obs := &recordingObserver{}
	c, clock, _ := newTestCache(loader, WithObserver(obs))

	for i := 0; i < 5; i++ {
		snap, err := c.Get(context.Background(), src, false)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if snap.RowCount() != 3 {
			t.Fatalf("RowCount() = %d, want 3", snap.RowCount())
		}
		clock.Advance(10 * time.Second)
	}

	if got := loader.calls.Load(); got != 1 {
		t.Errorf("loader calls = %d, want 1", got)
	}
	if obs.hits != 4 || obs.loads != 1 {
		t.Errorf("observer hits, loads = %d, %d, want 4, 1", obs.hits, obs.loads)
	}
}

func TestGetForceAlwaysReloads(t *testing.T) {
	loader := &countingLoader{rows: 2}
	c, _, _ := newTestCache(loader)

	for i := 0; i < 3; i++ {
		if _, err := c.Get(context.Background(), src, true); err != nil {
			t.Fatalf("Get(force) error = %v", err)
		}
	}
	if got := loader.calls.Load(); got != 3 {
		t.Errorf("loader calls = %d, want 3", got)
	}
}

func TestGetReloadsOnModTimeChange(t *testing.T) {
	loader := &countingLoader{rows: 2}
	c, clock, stat := newTestCache(loader)

	if _, err := c.Get(context.Background(), src, false); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	stat.Touch(testPath, clock.Now())
	if _, err := c.Get(context.Background(), src, false); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := loader.calls.Load(); got != 2 {
		t.Errorf("loader calls = %d, want 2 after modtime change", got)
	}
}

func TestGetReloadsAfterTTL(t *testing.T) {
	loader := &countingLoader{rows: 2}
	c, clock, _ := newTestCache(loader)

	if _, err := c.Get(context.Background(), src, false); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	clock.Advance(59 * time.Second)
	if _, err := c.Get(context.Background(), src, false); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := loader.calls.Load(); got != 1 {
		t.Fatalf("loader calls = %d, want 1 inside TTL", got)
	}

	clock.Advance(time.Second)
	if _, err := c.Get(context.Background(), src, false); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := loader.calls.Load(); got != 2 {
		t.Errorf("loader calls = %d, want 2 once TTL elapsed", got)
	}
}

func TestGetReloadsOnFormatChange(t *testing.T) {
	loader := &countingLoader{rows: 1}
	c, _, _ := newTestCache(loader)

	if _, err := c.Get(context.Background(), src, false); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if _, err := c.Get(context.Background(), Source{Path: testPath, Format: table.FormatJSON}, false); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := loader.calls.Load(); got != 2 {
		t.Errorf("loader calls = %d, want 2", got)
	}
}

func TestGetAutoFormatSharesEntry(t *testing.T) {
	loader := &countingLoader{rows: 1}
	c, _, _ := newTestCache(loader)

	if _, err := c.Get(context.Background(), Source{Path: testPath, Format: table.FormatAuto}, false); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if _, err := c.Get(context.Background(), src, false); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := loader.calls.Load(); got != 1 {
		t.Errorf("loader calls = %d, want 1 (auto resolves to csv)", got)
	}
}

func TestGetFailureEvicts(t *testing.T) {
	loader := &countingLoader{rows: 2}
	obs := &recordingObserver{}
	c, _, _ := newTestCache(loader, WithObserver(obs))

	if _, err := c.Get(context.Background(), src, false); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}

	loader.err = &table.LoadError{Kind: table.KindParseFailure, Path: testPath, Err: errors.New("bad quote")}
	_, err := c.Get(context.Background(), src, true)
	if table.KindOf(err) != table.KindParseFailure {
		t.Fatalf("Get() error kind = %q, want parse_failure", table.KindOf(err))
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after failed load", c.Len())
	}
	if len(obs.errs) != 1 {
		t.Errorf("observer errors = %d, want 1", len(obs.errs))
	}
}

func TestGetWrapsPlainErrors(t *testing.T) {
	loader := &countingLoader{err: errors.New("disk on fire")}
	c, _, _ := newTestCache(loader)

	_, err := c.Get(context.Background(), src, false)
	var le *table.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("Get() error = %T, want *table.LoadError", err)
	}
	if le.Kind != table.KindParseFailure || le.Path != testPath {
		t.Errorf("LoadError = %+v", le)
	}
}

func TestGetStatFailureIsNotCached(t *testing.T) {
	loader := &countingLoader{rows: 1}
	c, _, _ := newTestCache(loader)
	missing := Source{Path: "/data/ghost.csv", Format: table.FormatCSV}

	for i := 0; i < 2; i++ {
		if _, err := c.Get(context.Background(), missing, false); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
	}
	if got := loader.calls.Load(); got != 2 {
		t.Errorf("loader calls = %d, want 2 when the source cannot be stat'ed", got)
	}
}

func TestGetCollapsesConcurrentLoads(t *testing.T) {
	loader := &countingLoader{rows: 4, delay: 50 * time.Millisecond}
	c, _, _ := newTestCache(loader)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Get(context.Background(), src, false); err != nil {
				t.Errorf("Get() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := loader.calls.Load(); got != 1 {
		t.Errorf("loader calls = %d, want 1 for concurrent callers", got)
	}
}

func TestGetLoadTimeout(t *testing.T) {
	loader := &countingLoader{rows: 1, delay: time.Second}
	c, _, _ := newTestCache(loader, WithLoadTimeout(20*time.Millisecond))

	_, err := c.Get(context.Background(), src, false)
	if table.KindOf(err) != table.KindTimeout {
		t.Errorf("Get() error kind = %q, want timeout", table.KindOf(err))
	}
}

func TestGetIgnoresCallerCancellation(t *testing.T) {
	loader := &countingLoader{rows: 1}
	c, _, _ := newTestCache(loader)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Get(ctx, src, false); err != nil {
		t.Errorf("Get() with cancelled context error = %v", err)
	}
}

func TestModTime(t *testing.T) {
	loader := &countingLoader{rows: 1}
	c, clock, stat := newTestCache(loader)

	want := clock.Now().Add(-time.Hour)
	if got := c.ModTime(testPath); !got.Equal(want) {
		t.Errorf("ModTime() = %v, want %v", got, want)
	}
	if got := c.ModTime("/nope.csv"); !got.Equal(clock.Now()) {
		t.Errorf("ModTime(missing) = %v, want now %v", got, clock.Now())
	}

	stat.Touch(testPath, clock.Now())
	c.ModTime(testPath)
	if c.Len() != 0 || loader.calls.Load() != 0 {
		t.Error("ModTime() must not load or store")
	}
}

func TestInvalidate(t *testing.T) {
	loader := &countingLoader{rows: 1}
	c, _, _ := newTestCache(loader)

	if _, err := c.Get(context.Background(), src, false); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	c.Invalidate(testPath)
	if _, err := c.Get(context.Background(), src, false); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := loader.calls.Load(); got != 2 {
		t.Errorf("loader calls = %d, want 2 after Invalidate", got)
	}
}

func TestWithFileLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.csv")
	if err := os.WriteFile(path, []byte("name,age\nada,36\nbob,41\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	c := New(table.NewFileLoader())
	snap, err := c.Get(context.Background(), Source{Path: path}, false)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if snap.RowCount() != 2 || snap.ColumnCount() != 2 {
		t.Errorf("snapshot = %d rows x %d cols, want 2 x 2", snap.RowCount(), snap.ColumnCount())
	}

	again, err := c.Get(context.Background(), Source{Path: path}, false)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if again != snap {
		t.Error("second Get() returned a different snapshot, want cached one")
	}
}
