package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/torosent/tableloop/internal/output"
)

func newSchemaCommand(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Load the table once and print its output ports",
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

			node := a.newNode()
			out := node.Process(cmd.Context(), a.params())
			if !out.OK() {
				return fmt.Errorf("table %s: %s: %s", a.cfg.Path, out.Status, out.Error)
			}
			return output.PrintPorts(stdout, node.Ports(), a.cfg.Output)
		},
	}
}
