package runner

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPoissonPacerScalesSampleByTickRate(t *testing.T) {
	samples := []float64{1, 0.5, 2}
	i := 0
	opts := Options{
		RatePerSecond:  50,
		ArrivalModel:   ArrivalModelPoisson,
		PoissonSampler: func() float64 { s := samples[i]; i++; return s },
	}
	opts.normalize()

	p, ok := newPacer(opts).(*poissonPacer)
	if !ok {
		t.Fatalf("newPacer() = %T, want *poissonPacer", newPacer(opts))
	}
	want := []time.Duration{20 * time.Millisecond, 10 * time.Millisecond, 40 * time.Millisecond}
	for n, w := range want {
		if got := p.gap(); got != w {
			t.Errorf("gap %d = %s, want %s", n, got, w)
		}
	}
}

func TestPoissonPacerZeroGapDoesNotBlock(t *testing.T) {
	p := &poissonPacer{mean: time.Hour, sample: func() float64 { return 0 }}
	if err := p.Next(context.Background()); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
}

func TestPoissonPacerStopsOnCancel(t *testing.T) {
	p := &poissonPacer{mean: time.Hour, sample: func() float64 { return 1 }}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Next() error = %v, want context.Canceled", err)
	}
}

func TestSteadyPacerSelectedByDefault(t *testing.T) {
	opts := Options{RatePerSecond: 10}
	opts.normalize()

	if _, ok := newPacer(opts).(steadyPacer); !ok {
		t.Fatalf("newPacer() = %T, want steadyPacer", newPacer(opts))
	}
}
