package system

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/daystreak/internal/cli"
	"github.com/julianstephens/daystreak/internal/logger"
	"github.com/julianstephens/daystreak/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

// DaemonCmd keeps the process alive, reconciling once per local day and
// exposing Prometheus metrics.
type DaemonCmd struct {
	MetricsAddr string `help:"Listen address for /metrics (defaults to daemon.metrics_addr)." placeholder:"HOST:PORT"`
	NoMetrics   bool   `help:"Do not serve /metrics."`
}

func (c *DaemonCmd) Run(ctx *cli.Context) error {
	addr := c.MetricsAddr
	if addr == "" {
		addr = ctx.Config.Daemon.MetricsAddr
	}

	var ln net.Listener
	if !c.NoMetrics && addr != "" {
		var err error
		ln, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
		ctx.Printf("Serving metrics on http://%s/metrics\n", ln.Addr())
	}
	ctx.Printf("Reconciling daily at %s (ctrl+c to stop)\n", ctx.Config.Daemon.ReconcileAt)
	return Serve(ctx, ln)
}

// Serve runs the reconciliation loop and, when ln is non-nil, the metrics
// endpoint until ctx's base context is cancelled.
func Serve(ctx *cli.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx.Context())

	g.Go(func() error {
		return ctx.Trigger.Loop(gctx)
	})

	if ln != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok\n"))
		})
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	err := g.Wait()
	logger.Info("daemon stopped", "error", err)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
