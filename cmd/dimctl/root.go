package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jacentio/dimensions/config"
	"github.com/jacentio/dimensions/internal/app"
)

type rootOptions struct {
	envFiles []string
	output   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "dimctl",
		Short:         "Dimension store operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case outputJSON, outputYAML:
				return nil
			}
			return fmt.Errorf("invalid --output %q: want json or yaml", opts.output)
		},
	}

	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "Env files to load (default .env, .env.local)")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", outputJSON, "Output format: json or yaml")

	cmd.AddCommand(newIDCmd(opts))
	cmd.AddCommand(newResolveCmd(opts))
	cmd.AddCommand(newTreeCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts))
	cmd.AddCommand(newSeedCmd(opts))
	cmd.AddCommand(newListenCmd(opts))
	return cmd
}

// openApp loads configuration and builds the service. Logs go to stderr so
// stdout stays machine readable.
func (o *rootOptions) openApp(ctx context.Context, cmd *cobra.Command) (*app.App, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return app.Build(ctx, cfg, logger)
}

func (o *rootOptions) config() (*config.Configuration, error) {
	cfg, err := config.Load(o.envFiles...)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
