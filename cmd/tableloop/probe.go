package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/torosent/tableloop/internal/output"
)

func newProbeCommand(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Print the table's modification time without loading it",
		Long: `probe prints the staleness timestamp a host would compare between runs:
the source file's modification time, or the current time when the file
cannot be read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, stderr)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.cfg.RequireSource(); err != nil {
				return err
			}

			changed := a.newNode().Changed(a.params())
			return output.PrintProbe(stdout, a.cfg.Output, a.cfg.Path, changed)
		},
	}
}
