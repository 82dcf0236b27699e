package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/torosent/tableloop/internal/config"
	"github.com/torosent/tableloop/internal/cursor"
	"github.com/torosent/tableloop/internal/dashboard"
	"github.com/torosent/tableloop/internal/looper"
	"github.com/torosent/tableloop/internal/output"
	"github.com/torosent/tableloop/internal/runner"
)

const progressInterval = time.Second

func newRunCommand(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Tick through the table and print each row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, stderr)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.cfg.RequireSource(); err != nil {
				return err
			}
			return runLoop(cmd.Context(), a, stdout, stderr)
		},
	}
}

func runLoop(ctx context.Context, a *app, stdout, stderr io.Writer) error {
	cfg := a.cfg
	node := a.newNode()
	params := a.params()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tickOut := stdout
	if cfg.Dashboard {
		tickOut = io.Discard
	}
	writer, err := output.NewTickWriter(cfg.Output, cfg.Template, tickOut)
	if err != nil {
		return err
	}

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash, err = dashboard.New(a.collector, dashboardConfig(cfg), cancel)
		if err != nil {
			return err
		}
		dash.Start()
		defer func() {
			if dash != nil {
				dash.Stop()
			}
		}()
	}

	var progress *output.ProgressReporter
	if !cfg.Dashboard && cfg.Output != config.OutputText {
		progress = output.NewProgressReporter(a.collector, progressInterval, stderr)
		progress.Start()
		defer progress.Stop()
	}

	var (
		last     looper.Output
		writeErr error
	)
	ticker := runner.TickerFunc(func(ctx context.Context) bool {
		out := node.Process(ctx, params)
		// A forced load resets the cursor, so it only applies to the first tick.
		params.ForceRefresh = false
		last = out
		a.collector.RecordTick(out.TotalRows > 0, out.Complete)
		if dash != nil {
			state, ok := node.State()
			dash.Observe(out, state, ok)
		}
		if err := writer.Write(out); err != nil {
			writeErr = fmt.Errorf("write output: %w", err)
			cancel()
		}
		return out.Complete
	})

	mode, err := cursor.ParseMode(cfg.LoopMode)
	if err != nil {
		return err
	}
	r := runner.New(runner.Options{
		Ticks:          cfg.Ticks,
		Duration:       cfg.Duration,
		RatePerSecond:  cfg.Rate,
		ArrivalModel:   runner.ArrivalModel(cfg.Arrival),
		StopOnComplete: mode != cursor.Infinite,
		Ticker:         ticker,
	})

	// Mark the actual start time so rates ignore setup.
	a.collector.Start()
	result, err := r.Run(ctx)
	if err != nil {
		return err
	}
	if writeErr != nil {
		return writeErr
	}
	a.logger.Info("run finished", "ticks", result.Ticks, "reason", result.Reason, "complete", result.Complete)

	if progress != nil {
		progress.Stop()
	}
	stats := a.collector.Stats(result.Duration)
	if dash != nil {
		dash.Stop()
		stats = dash.GetFinalStats()
		dash = nil
	}

	if cfg.Output == config.OutputText {
		output.PrintReport(stdout, result, stats)
	} else if err := output.PrintJSONReport(stderr, result, stats); err != nil {
		return err
	}

	if !last.OK() {
		return fmt.Errorf("table %s: %s: %s", cfg.Path, last.Status, last.Error)
	}
	return nil
}

func dashboardConfig(cfg *config.Config) dashboard.RunConfig {
	return dashboard.RunConfig{
		Path:        cfg.Path,
		Format:      cfg.Format,
		LoopMode:    cfg.LoopMode,
		RepeatCount: cfg.RepeatCount,
		StartRow:    cfg.StartRow,
		Ticks:       cfg.Ticks,
		Rate:        cfg.Rate,
		Duration:    cfg.Duration,
		CacheTTL:    cfg.CacheTTL,
		ConfigFile:  cfg.ConfigFile,
	}
}
