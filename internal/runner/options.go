package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Ticker performs one tick and reports whether the loop has completed.
type Ticker interface {
	Tick(ctx context.Context) (complete bool)
}

// TickerFunc adapts a function to Ticker.
type TickerFunc func(ctx context.Context) bool

func (f TickerFunc) Tick(ctx context.Context) bool {
	return f(ctx)
}

// ArrivalModel selects how ticks are spaced when a rate is set.
type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

// Options configure the Runner.
type Options struct {
	Ticks          int           // ticks to run (0 means unlimited until duration/completion)
	Duration       time.Duration // overall time limit (0 means no duration cap)
	RatePerSecond  int           // ticks per second pacing (0 means unlimited)
	StopOnComplete bool          // stop after the first tick that reports completion
	ArrivalModel   ArrivalModel
	RandomSeed     int64
	Ticker         Ticker                      // tick executor (required)
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
	PoissonSampler func() float64              // optional injection for tests
}

func (o *Options) normalize() {
	if o.Ticks < 0 {
		o.Ticks = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.ArrivalModel == "" {
		o.ArrivalModel = ArrivalModelUniform
	}
	if o.RandomSeed == 0 {
		o.RandomSeed = time.Now().UnixNano()
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// A burst of one keeps ticks evenly spaced.
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}
