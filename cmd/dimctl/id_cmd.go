package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jacentio/dimensions/idgen"
)

type idOutput struct {
	Strategy string `json:"strategy" yaml:"strategy"`
	IDs      []any  `json:"ids" yaml:"ids"`
}

func newIDCmd(opts *rootOptions) *cobra.Command {
	var (
		strategy string
		count    int
	)

	cmd := &cobra.Command{
		Use:   "id",
		Short: "Generate identifiers with a registered strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("invalid --count %d: must be positive", count)
			}
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			if strategy == "" {
				strategy = cfg.IDs.Strategy
			}
			sf, err := idgen.NewSnowflake(cfg.SnowflakeConfig())
			if err != nil {
				return err
			}
			reg := idgen.NewRegistry(sf)

			out := idOutput{Strategy: strategy, IDs: make([]any, 0, count)}
			for i := 0; i < count; i++ {
				id, err := reg.Generate(idgen.Strategy(strategy))
				if err != nil {
					return err
				}
				out.IDs = append(out.IDs, id)
			}
			return writeOutput(cmd.OutOrStdout(), opts.output, out)
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "", "Strategy name (default from DIMENSIONS_ID_STRATEGY)")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of ids to generate")
	return cmd
}
