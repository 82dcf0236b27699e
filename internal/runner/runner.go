package runner

import (
	"context"
	"errors"
	"time"
)

// ErrNoTicker is returned by Run when Options.Ticker is nil.
var ErrNoTicker = errors.New("runner: no ticker configured")

// StopReason explains why a run ended.
type StopReason string

const (
	StopComplete   StopReason = "complete"
	StopTickBudget StopReason = "tick_budget"
	StopDuration   StopReason = "duration"
	StopCancelled  StopReason = "cancelled"
)

// Result captures execution summary.
type Result struct {
	Ticks    int64
	Complete bool
	Reason   StopReason
	Duration time.Duration
}

// Runner ticks a single node sequentially. A cursor belongs to one node, so
// ticks are never issued concurrently.
type Runner struct {
	opt   Options
	pacer pacer
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt, pacer: newPacer(opt)}
}

// Run ticks until the tick budget, the duration, completion (when
// StopOnComplete is set) or ctx ends the run.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.opt.Ticker == nil {
		return Result{}, ErrNoTicker
	}
	start := time.Now()
	parent := ctx

	if r.opt.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opt.Duration)
		defer cancel()
	}

	res := Result{}
	for {
		if ctx.Err() != nil {
			res.Reason = stopReason(parent)
			break
		}
		if r.opt.Ticks > 0 && res.Ticks >= int64(r.opt.Ticks) {
			res.Reason = StopTickBudget
			break
		}
		if r.pacer != nil {
			if err := r.pacer.Next(ctx); err != nil {
				// The limiter refuses waits that would overrun the deadline.
				<-ctx.Done()
				continue
			}
		}

		complete := r.opt.Ticker.Tick(ctx)
		res.Ticks++
		res.Complete = complete
		if complete && r.opt.StopOnComplete {
			res.Reason = StopComplete
			break
		}
	}

	res.Duration = time.Since(start)
	return res, nil
}

func stopReason(parent context.Context) StopReason {
	if parent.Err() != nil {
		return StopCancelled
	}
	return StopDuration
}
