package output

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/torosent/tableloop/internal/metrics"
)

// ProgressReporter redraws a one-line run status on stderr while ticks are
// written to stdout.
type ProgressReporter struct {
	collector *metrics.Collector
	interval  time.Duration
	w         io.Writer

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
	width   int
}

func NewProgressReporter(collector *metrics.Collector, interval time.Duration, w io.Writer) *ProgressReporter {
	if w == nil {
		w = io.Discard
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &ProgressReporter{collector: collector, interval: interval, w: w}
}

// Start begins redrawing. It is a no-op once started or stopped.
func (p *ProgressReporter) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil || p.stopped {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	go p.loop(ctx)
}

// Stop draws the final status and ends the line.
func (p *ProgressReporter) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.stopped = true
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()
	p.redraw()
	fmt.Fprintln(p.w)
}

func (p *ProgressReporter) loop(ctx context.Context) {
	defer p.wg.Done()
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.redraw()
		}
	}
}

// redraw overwrites the previous status, padding when the new one is shorter.
func (p *ProgressReporter) redraw() {
	line := statusLine(p.collector.Stats(p.collector.Elapsed()))
	pad := max(p.width-len(line), 0)
	p.width = len(line)
	fmt.Fprint(p.w, "\r"+line+strings.Repeat(" ", pad))
}

func statusLine(stats metrics.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticks: %d | Completions: %d | Ticks/s: %.1f", stats.Ticks, stats.Completions, stats.TicksPerSec)
	if stats.EmptyTicks > 0 {
		fmt.Fprintf(&b, " | Empty: %d", stats.EmptyTicks)
	}
	fmt.Fprintf(&b, " | Cache: %d loads, %d hits", stats.Loads, stats.CacheHits)
	if stats.LoadFailures > 0 {
		fmt.Fprintf(&b, " | Failed loads: %d", stats.LoadFailures)
	}
	return b.String()
}
