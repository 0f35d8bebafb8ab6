package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jacentio/dimensions/broadcast"
)

func newListenCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print invalidations published on the Redis channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.Redis == nil {
				return fmt.Errorf("listen requires REDIS_URL")
			}

			w := cmd.OutOrStdout()
			a.Bus.Subscribe(func(_ context.Context, inv broadcast.Invalidation) {
				if err := writeOutput(w, opts.output, inv); err != nil {
					a.Logger.Error("write invalidation", "error", err)
				}
			})

			if addr := a.Config.Metrics.Addr; addr != "" {
				srv := &http.Server{
					Addr:              addr,
					Handler:           promhttp.HandlerFor(a.Metrics, promhttp.HandlerOpts{}),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.Logger.Error("metrics server stopped", "error", err)
					}
				}()
				defer srv.Shutdown(context.WithoutCancel(ctx))
				a.Logger.Info("serving metrics", "addr", addr)
			}

			listener := broadcast.NewRedisListener(a.Redis, a.Config.Redis.Channel, a.Bus, a.Logger)
			err = listener.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	return cmd
}
