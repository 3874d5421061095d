package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"translator-agent/internal/api"
	"translator-agent/internal/config"
	"translator-agent/internal/ingest"
	"translator-agent/internal/monitor"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var port, ingestPort int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent as a long-lived service",
		Long: `Run the HTTP API (/api/..., /metrics) and the TCP/UDP line listener.

Build lifecycle is driven through /api/build/* and /api/runner/*. When
CHECKOUT_DIR is set, a build is started immediately.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := rootOpts.Config
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("ingest-port") {
				cfg.IngestPort = ingestPort
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&port, "port", 9102, "HTTP port for the API and /metrics")
	cmd.Flags().IntVar(&ingestPort, "ingest-port", 5140, "TCP/UDP port for log lines (0 disables)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, out io.Writer) error {
	a, err := newAgent(cfg, out)
	if err != nil {
		return err
	}
	defer a.close()

	watcher := monitor.NewDefinitionWatcher(a.registry)
	watcher.Register(a.metrics)

	mux := http.NewServeMux()
	api.NewAPI(a.pool, a.tracker, a.registry).RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.CheckoutDir != "" {
		if _, err := a.startBuild("", cfg.CheckoutDir); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.IngestPort > 0 {
		ing := ingest.NewServer(cfg.IngestPort, a.pool)
		g.Go(func() error { return ing.Serve(gctx) })
	}
	g.Go(func() error {
		watcher.Run(gctx, cfg.WatchInterval)
		return nil
	})

	err = g.Wait()
	if a.tracker.IsRunningBuild() {
		if ferr := a.finishBuild(); ferr != nil {
			log.Printf("Agent: finishing build: %v", ferr)
		}
	}
	return err
}
