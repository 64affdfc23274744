package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/kylerisse/metricstore/pkg/server"
	"github.com/kylerisse/metricstore/pkg/store"
	"github.com/kylerisse/metricstore/pkg/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const statsInterval = time.Minute

func newServeCmd(a *app) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the metric and evaluation parameter stores over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, port)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides server.listen_port)")
	return cmd
}

func (a *app) serve(ctx context.Context, port string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Server.ListenPort = port
	}

	exporter, err := telemetry.New(ctx, cfg.Telemetry.Merge(telemetry.LoadConfig()))
	if err != nil {
		return fmt.Errorf("failed to start telemetry: %w", err)
	}

	stats := store.NewStats()
	stores, err := cfg.Build(store.WithLogger(a.logger), store.WithObserver(store.Multi{stats, exporter}))
	if err != nil {
		exporter.Close(context.Background())
		return fmt.Errorf("failed to build stores: %w", err)
	}

	srv := server.NewServer(stores, cfg.Server, stats, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		a.reportStats(gctx, stats, statsInterval)
		return nil
	})
	err = g.Wait()

	a.logger.Info("Closing stores...")
	if cerr := stores.Close(); cerr != nil {
		a.logger.Errorf("Failed to close stores: %v", cerr)
	}
	if cerr := exporter.Close(context.Background()); cerr != nil {
		a.logger.Errorf("Failed to flush telemetry: %v", cerr)
	}
	return err
}

// reportStats logs per-store operation counts every interval until ctx is
// done.
func (a *app) reportStats(ctx context.Context, stats *store.Stats, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, st := range stats.Snapshot() {
				a.logger.Debugf("Store %s: %s total=%d failures=%d time=%v", st.Store, st.Op, st.Total, st.Failures, st.Duration)
				if st.Failures > 0 {
					a.logger.Warnf("Store %s: %s last error: %s", st.Store, st.Op, st.LastError)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
