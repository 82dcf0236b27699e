package runner_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/tableloop/internal/runner"
)

// fakeTicker reports completion once completeAt ticks have run.
type fakeTicker struct {
	calls      atomic.Int64
	completeAt int64
	latency    time.Duration
}

func (f *fakeTicker) Tick(ctx context.Context) bool {
	n := f.calls.Add(1)
	if f.latency > 0 {
		select {
		case <-time.After(f.latency):
		case <-ctx.Done():
		}
	}
	return f.completeAt > 0 && n >= f.completeAt
}

func TestRunnerRespectsTickBudget(t *testing.T) {
	ticker := &fakeTicker{}
	res, err := runner.New(runner.Options{Ticks: 25, Ticker: ticker}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Ticks != 25 || ticker.calls.Load() != 25 {
		t.Fatalf("expected 25 ticks, got %d (calls %d)", res.Ticks, ticker.calls.Load())
	}
	if res.Reason != runner.StopTickBudget {
		t.Errorf("Reason = %q, want tick_budget", res.Reason)
	}
}

func TestRunnerStopsOnComplete(t *testing.T) {
	ticker := &fakeTicker{completeAt: 4}
	res, err := runner.New(runner.Options{Ticks: 100, StopOnComplete: true, Ticker: ticker}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Ticks != 4 || !res.Complete || res.Reason != runner.StopComplete {
		t.Errorf("Run() = %+v, want 4 ticks ending complete", res)
	}
}

func TestRunnerKeepsTickingPastCompleteWhenAsked(t *testing.T) {
	ticker := &fakeTicker{completeAt: 2}
	res, _ := runner.New(runner.Options{Ticks: 5, Ticker: ticker}).Run(context.Background())
	if res.Ticks != 5 || !res.Complete {
		t.Errorf("Run() = %+v, want 5 ticks with the last complete", res)
	}
}

func TestRunnerHonorsDuration(t *testing.T) {
	ticker := &fakeTicker{latency: 5 * time.Millisecond}
	start := time.Now()
	res, err := runner.New(runner.Options{Duration: 50 * time.Millisecond, Ticker: ticker}).Run(context.Background())
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if elapsed < 50*time.Millisecond || elapsed > 250*time.Millisecond {
		t.Fatalf("duration enforcement off: %s", elapsed)
	}
	if res.Reason != runner.StopDuration {
		t.Errorf("Reason = %q, want duration", res.Reason)
	}
	if res.Ticks <= 0 {
		t.Fatalf("expected some ticks executed")
	}
}

func TestRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ticker := runner.TickerFunc(func(context.Context) bool {
		cancel()
		return false
	})
	res, err := runner.New(runner.Options{Ticker: ticker}).Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Ticks != 1 || res.Reason != runner.StopCancelled {
		t.Errorf("Run() = %+v, want one tick then cancelled", res)
	}
}

func TestRateLimiterCapsThroughput(t *testing.T) {
	ticker := &fakeTicker{}
	rateLimit := 100
	duration := 100 * time.Millisecond
	res, _ := runner.New(runner.Options{
		Duration:       duration,
		RatePerSecond:  rateLimit,
		Ticker:         ticker,
		LimiterFactory: func(rps int) *rate.Limiter { return rate.NewLimiter(rate.Limit(rps), 1) },
	}).Run(context.Background())

	maxExpected := int(float64(rateLimit) * (float64(duration) / float64(time.Second)) * 1.20) // 20% slack
	if int(res.Ticks) > maxExpected {
		t.Fatalf("rate limiter exceeded: ticks=%d max=%d", res.Ticks, maxExpected)
	}
	if ticker.calls.Load() != res.Ticks {
		t.Fatalf("calls mismatch: %d vs %d", ticker.calls.Load(), res.Ticks)
	}
}

func TestRunnerPoissonArrival(t *testing.T) {
	ticker := &fakeTicker{}
	res, err := runner.New(runner.Options{
		Ticks:          5,
		RatePerSecond:  1000,
		ArrivalModel:   runner.ArrivalModelPoisson,
		PoissonSampler: func() float64 { return 1 },
		Ticker:         ticker,
	}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Ticks != 5 {
		t.Errorf("Ticks = %d, want 5", res.Ticks)
	}
	if res.Duration < 5*time.Millisecond {
		t.Errorf("Duration = %s, want at least 5ms at 1ms spacing", res.Duration)
	}
}

func TestRunnerRequiresTicker(t *testing.T) {
	if _, err := runner.New(runner.Options{}).Run(context.Background()); !errors.Is(err, runner.ErrNoTicker) {
		t.Errorf("Run() error = %v, want ErrNoTicker", err)
	}
}
