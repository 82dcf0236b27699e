package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/torosent/tableloop/internal/metrics"
	"github.com/torosent/tableloop/internal/runner"
)

// Summary is the end-of-run report.
type Summary struct {
	Ticks    int64             `json:"ticks" yaml:"ticks"`
	Complete bool              `json:"complete" yaml:"complete"`
	Reason   runner.StopReason `json:"stop_reason" yaml:"stop_reason"`
	Stats    metrics.Stats     `json:"stats" yaml:"-"`
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, res runner.Result, stats metrics.Stats) {
	fmt.Fprintln(w, "\n--- Table Loop Results ---")
	fmt.Fprintf(w, "Ticks:             %d\n", res.Ticks)
	fmt.Fprintf(w, "Stopped:           %s\n", res.Reason)
	fmt.Fprintf(w, "Loop complete:     %t\n", res.Complete)
	fmt.Fprintf(w, "Empty ticks:       %d\n", stats.EmptyTicks)
	fmt.Fprintf(w, "Duration:          %s\n", res.Duration)
	fmt.Fprintf(w, "Ticks/sec:         %.2f\n", stats.TicksPerSec)
	fmt.Fprintln(w, "\nCache:")
	fmt.Fprintf(w, "  Hits:            %d\n", stats.CacheHits)
	fmt.Fprintf(w, "  Loads:           %d\n", stats.Loads)
	fmt.Fprintf(w, "  Failed loads:    %d\n", stats.LoadFailures)
	fmt.Fprintf(w, "  Hit ratio:       %.1f%%\n", stats.HitRatio*100)
	if stats.Loads > 0 {
		fmt.Fprintln(w, "\nLoad latency:")
		fmt.Fprintf(w, "  Min:             %s\n", stats.MinLoad)
		fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLoad)
		fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLoad)
		fmt.Fprintf(w, "  P50:             %s\n", stats.P50Load)
		fmt.Fprintf(w, "  P90:             %s\n", stats.P90Load)
		fmt.Fprintf(w, "  P99:             %s\n", stats.P99Load)
	}
	if rows := metrics.FlattenErrors(stats.Errors); len(rows) > 0 {
		fmt.Fprintln(w, "\nLoad errors:")
		for _, row := range rows {
			fmt.Fprintf(w, "  %s: %d\n", row.Label, row.Count)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, res runner.Result, stats metrics.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Summary{Ticks: res.Ticks, Complete: res.Complete, Reason: res.Reason, Stats: stats})
}
