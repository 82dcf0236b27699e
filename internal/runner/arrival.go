package runner

import (
	"context"
	"math"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// pacer blocks until the next tick may run.
type pacer interface {
	Next(ctx context.Context) error
}

// newPacer returns nil when ticks are unpaced.
func newPacer(opt Options) pacer {
	if opt.RatePerSecond <= 0 {
		return nil
	}
	if opt.ArrivalModel == ArrivalModelPoisson {
		sample := opt.PoissonSampler
		if sample == nil {
			sample = rand.New(rand.NewSource(opt.RandomSeed)).ExpFloat64
		}
		return &poissonPacer{
			mean:   time.Second / time.Duration(opt.RatePerSecond),
			sample: sample,
		}
	}
	return steadyPacer{limiter: opt.LimiterFactory(opt.RatePerSecond)}
}

// steadyPacer spaces ticks evenly through a token bucket.
type steadyPacer struct {
	limiter *rate.Limiter
}

func (s steadyPacer) Next(ctx context.Context) error {
	return s.limiter.Wait(ctx)
}

// poissonPacer draws exponentially distributed gaps between ticks, so the
// node sees bursts and lulls around the configured mean tick rate.
type poissonPacer struct {
	mean   time.Duration
	sample func() float64
}

func (p *poissonPacer) gap() time.Duration {
	d := float64(p.mean) * p.sample()
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

func (p *poissonPacer) Next(ctx context.Context) error {
	gap := p.gap()
	if gap <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(gap)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
