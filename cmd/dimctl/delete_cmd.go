package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jacentio/dimensions/dimension"
)

type deleteOutput struct {
	Command    string                 `json:"command" yaml:"command"`
	DurationMS int64                  `json:"duration_ms" yaml:"duration_ms"`
	Stage      string                 `json:"stage" yaml:"stage"`
	Report     dimension.DeleteReport `json:"report" yaml:"report"`
	Error      string                 `json:"error,omitempty" yaml:"error,omitempty"`
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <dimension-id...>",
		Short: "Delete dimensions with their descendants, bindings and settings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			start := time.Now()
			report, runErr := a.Service.DeleteDimensionsReport(cmd.Context(), args)
			out := deleteOutput{
				Command:    "delete",
				DurationMS: time.Since(start).Milliseconds(),
				Stage:      report.Stage.String(),
				Report:     report,
			}
			if runErr != nil {
				out.Error = runErr.Error()
			}
			if err := writeOutput(cmd.OutOrStdout(), opts.output, out); err != nil {
				return err
			}
			return runErr
		},
	}
	return cmd
}
