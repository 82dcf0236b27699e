package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/torosent/tableloop/internal/server"
)

func newServeCommand(_, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Host looper nodes over HTTP and WebSocket",
		Long: `serve exposes looper nodes on --listen:

  POST   /nodes                create a node
  POST   /nodes/{id}/tick      advance a node with JSON params
  POST   /nodes/{id}/reset     rewind a node
  GET    /nodes/{id}/ports     output manifest
  GET    /nodes/{id}/stream    WebSocket that ticks every --stream-interval
  GET    /changed?path=        staleness probe
  GET    /stats                cache and tick statistics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, stderr)
			if err != nil {
				return err
			}
			defer a.close()

			srv, err := server.New(server.Config{
				Addr:           a.cfg.Listen,
				BaseDir:        a.cfg.BaseDir,
				StreamInterval: a.cfg.StreamInterval,
				Propagate:      a.tracing.ShouldPropagate(),
				Logger:         a.logger,
				Tracer:         a.tracing.Tracer(),
			}, a.cache, a.collector)
			if err != nil {
				return err
			}
			a.collector.Start()
			return srv.Start(cmd.Context())
		},
	}
}
