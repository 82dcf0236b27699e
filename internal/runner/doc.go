// Package runner drives a node by calling it repeatedly.
//
// A run ends at the first of: the tick budget ([Options.Ticks]), the time
// limit ([Options.Duration]), the loop completing when
// [Options.StopOnComplete] is set, or the caller's context being cancelled.
// Infinite loops therefore need a budget, a duration or a signal.
//
//	r := runner.New(runner.Options{
//		Ticks:          100,
//		RatePerSecond:  10,
//		StopOnComplete: true,
//		Ticker: runner.TickerFunc(func(ctx context.Context) bool {
//			return node.Process(ctx, params).Complete
//		}),
//	})
//	res, err := r.Run(ctx)
//
// With a rate set, ticks are spaced evenly through golang.org/x/time/rate
// ([ArrivalModelUniform]) or drawn from an exponential distribution
// ([ArrivalModelPoisson]).
package runner
