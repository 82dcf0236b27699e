package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/torosent/tableloop/internal/cache"
	"github.com/torosent/tableloop/internal/config"
	"github.com/torosent/tableloop/internal/logging"
	"github.com/torosent/tableloop/internal/looper"
	"github.com/torosent/tableloop/internal/metrics"
	"github.com/torosent/tableloop/internal/table"
	"github.com/torosent/tableloop/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

// app carries the pieces every subcommand shares.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	flushLogs func()
	tracing   *tracing.Provider
	collector *metrics.Collector
	cache     *cache.Cache
}

// setup loads and validates the configuration, then builds logging, tracing,
// metrics and the table cache. logOut receives console logs.
func setup(cmd *cobra.Command, logOut io.Writer) (*app, error) {
	cfg, err := config.NewLoader().Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Dashboard {
		// termui owns the terminal.
		logOut = io.Discard
	}
	logger, flush, err := logging.Setup(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		SeqURL: cfg.Log.SeqURL,
		Writer: logOut,
	})
	if err != nil {
		return nil, err
	}
	logger = logger.With("run", ulid.Make().String(), "command", cmd.Name())

	provider, err := tracing.Init(cmd.Context(), cfg.Tracing)
	if err != nil {
		flush()
		return nil, err
	}

	collector := metrics.NewCollector()
	c := cache.New(table.NewFileLoader(),
		cache.WithTTL(cfg.CacheTTL),
		cache.WithLoadTimeout(cfg.LoadTimeout),
		cache.WithObserver(collector),
		cache.WithTracer(provider.Tracer()),
		cache.WithLogger(logger),
	)

	if cfg.ConfigFile != "" {
		logger.Debug("configuration loaded", "file", cfg.ConfigFile)
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		flushLogs: flush,
		tracing:   provider,
		collector: collector,
		cache:     c,
	}, nil
}

// close flushes spans and remote logs.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.tracing.Shutdown(ctx); err != nil {
		a.logger.Warn("tracing shutdown failed", "error", err)
	}
	a.flushLogs()
}

func (a *app) newNode() *looper.Node {
	return looper.New(a.cache,
		looper.WithBaseDir(a.cfg.BaseDir),
		looper.WithLogger(a.logger),
		looper.WithTracer(a.tracing.Tracer()),
	)
}

func (a *app) params() looper.Params {
	return looper.Params{
		Path:         a.cfg.Path,
		Format:       a.cfg.Format,
		LoopMode:     a.cfg.LoopMode,
		RepeatCount:  a.cfg.RepeatCount,
		StartRow:     a.cfg.StartRow,
		ForceRefresh: a.cfg.ForceRefresh,
		Columns:      a.cfg.Columns,
	}
}
