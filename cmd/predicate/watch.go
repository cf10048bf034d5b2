package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"mercator-hq/predicate/pkg/catalog"
	"mercator-hq/predicate/pkg/cli"
	"mercator-hq/predicate/pkg/telemetry/logging"
	"mercator-hq/predicate/pkg/telemetry/metrics"

	"github.com/spf13/cobra"
)

const metricsShutdownTimeout = 5 * time.Second

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [PATH...]",
		Short: "Keep the catalog in sync with predicate files on disk",
		Long: `Load every predicate file under the given paths (or watch.paths from the
config file) into the catalog, then reload files as they change until
interrupted. Deleted files remove their predicates.

Composites unused for catalog.cache_ttl are pruned on catalog.prune_schedule.
When telemetry.metrics.listen_address is set, Prometheus metrics are served
there.

Examples:
  predicate watch predicates/
  predicate watch --config predicate.yaml`,
		RunE: func(cmd *cobra.Command, paths []string) error {
			ctx, stop := cli.SetupSignalHandler(cmd.Context())
			defer stop()
			return a.watch(ctx, cmd, paths)
		},
	}
}

func (a *app) watch(ctx context.Context, cmd *cobra.Command, paths []string) error {
	watchCfg := a.cfg.Watch
	if len(paths) > 0 {
		watchCfg.Paths = paths
	}
	if len(watchCfg.Paths) == 0 {
		return cli.NewCommandError("watch", fmt.Errorf("no paths to watch (pass PATH or set watch.paths)"))
	}

	logger := logging.FromContext(ctx)
	c, err := a.openCatalog()
	if err != nil {
		return cli.NewConfigError(a.cfgFile, err)
	}
	defer c.Close()

	out := cmd.OutOrStdout()
	marks := cli.MarksFor(out)
	w, err := catalog.NewWatcher(c, &watchCfg,
		catalog.WithWatcherLogger(a.logger),
		catalog.WithWatcherMetrics(a.metrics),
		catalog.WithReloadHook(func(path string, err error) {
			if err != nil {
				fmt.Fprintf(out, "%s %s: %v\n", marks.Fail, path, err)
				return
			}
			fmt.Fprintf(out, "%s reloaded %s\n", marks.OK, path)
		}),
	)
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer w.Stop()

	n, err := w.Load(ctx)
	if err != nil {
		logger.Warn("some predicates failed to load", "error", err)
	}
	fmt.Fprintf(out, "%s loaded %d predicate(s)\n", marks.OK, n)

	sched := catalog.NewScheduler(c, &a.cfg.Catalog)
	if err := sched.Start(ctx); err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer sched.Stop()
	if next := sched.NextRun(); next != nil {
		logger.Debug("cache prune scheduled", "next_run", next)
	}

	errCh := make(chan error, 1)
	if addr := a.cfg.Telemetry.Metrics.ListenAddress; addr != "" && a.cfg.Telemetry.Metrics.Enabled {
		srv, ln, err := a.metricsServer(addr)
		if err != nil {
			return cli.NewCommandError("watch", err)
		}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown failed", "error", err)
			}
		}()
		fmt.Fprintf(out, "%s metrics on http://%s%s\n", marks.OK, ln.Addr(), a.cfg.Telemetry.Metrics.Path)
	}

	go func() {
		if err := w.Watch(ctx); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(out, "stopping")
		return nil
	case err := <-errCh:
		return cli.NewCommandError("watch", err)
	}
}

// metricsServer binds addr and returns a server for the metrics endpoint.
func (a *app) metricsServer(addr string) (*http.Server, net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Telemetry.Metrics.Path, metrics.Handler(a.registry))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv, ln, nil
}
