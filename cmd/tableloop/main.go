package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/torosent/tableloop/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "tableloop",
		Short: "Iterate the rows of a CSV, Excel or JSON table one tick at a time",
		Long: `tableloop loads a table, caches it until the file changes, and emits one
row per tick. Loop modes decide what happens after the last row:
single_pass stops, repeat starts over a fixed number of times, and
infinite wraps forever.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	config.RegisterFlags(root)

	runCmd := newRunCommand(stdout, stderr)
	root.RunE = runCmd.RunE
	root.AddCommand(
		runCmd,
		newProbeCommand(stdout, stderr),
		newSchemaCommand(stdout, stderr),
		newServeCommand(stdout, stderr),
	)
	return root
}
