package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/torosent/tableloop/internal/metrics"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestProgressReporterStopWithoutStart(t *testing.T) {
	reporter := NewProgressReporter(metrics.NewCollector(), 100*time.Millisecond, nil)
	if reporter == nil {
		t.Fatal("Expected non-nil reporter")
	}
	reporter.Stop()
}

func TestProgressReporterFormatting(t *testing.T) {
	collector := metrics.NewCollector()
	collector.Start()
	collector.CacheLoad("/data/users.csv", 5*time.Millisecond, nil)
	for i := 0; i < 3; i++ {
		collector.CacheHit("/data/users.csv")
		collector.RecordTick(true, i == 2)
	}

	var buf syncBuffer
	reporter := NewProgressReporter(collector, 20*time.Millisecond, &buf)
	reporter.Start()
	reporter.Start()
	time.Sleep(100 * time.Millisecond)
	reporter.Stop()
	reporter.Stop()

	output := buf.String()
	if !strings.HasSuffix(output, "\n") {
		t.Errorf("expected the status line to be ended on Stop: %q", output)
	}
	for _, want := range []string{"Ticks: 3", "Completions: 1", "Cache: 1 loads, 3 hits"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in progress output: %q", want, output)
		}
	}
}

func TestStatusLineShowsFailuresAndEmptyTicks(t *testing.T) {
	line := statusLine(metrics.Stats{Ticks: 4, EmptyTicks: 2, Loads: 2, LoadFailures: 1})
	for _, want := range []string{"Empty: 2", "Failed loads: 1"} {
		if !strings.Contains(line, want) {
			t.Errorf("expected %q in %q", want, line)
		}
	}
	quiet := statusLine(metrics.Stats{})
	if strings.Contains(quiet, "Failed") || strings.Contains(quiet, "Empty") {
		t.Errorf("did not expect failure or empty counts in %q", quiet)
	}
}

func TestProgressReporterPadsShorterRedraw(t *testing.T) {
	collector := metrics.NewCollector()
	collector.Start()
	var buf syncBuffer
	reporter := NewProgressReporter(collector, time.Hour, &buf)
	reporter.width = 200

	reporter.redraw()

	line := strings.TrimPrefix(buf.String(), "\r")
	if len(line) != 200 {
		t.Errorf("redraw wrote %d columns, want 200 to clear the previous line", len(line))
	}
}
