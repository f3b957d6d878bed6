package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	promexport "github.com/MrEthical07/authcache/metrics/export/prometheus"
	"github.com/MrEthical07/authcache/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve metrics, JWKS, identity and health endpoints, and reap in the background",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address (overrides http.addr)"},
			&cli.DurationFlag{Name: "reap-interval", Value: time.Minute, Usage: "reaper period; 0 disables"},
		},
		Action: func(c *cli.Context) error {
			cfg := configFrom(c)
			if addr := c.String("addr"); addr != "" {
				cfg.HTTP.Addr = addr
			}
			logger := loggerFrom(c)

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := openRuntime(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.close(context.Background())

			if interval := c.Duration("reap-interval"); interval > 0 {
				stopReaper := startReaper(ctx, rt, interval)
				defer stopReaper()
			}

			srv := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           rt.routes(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				logger.Info("http listening", zap.String("addr", cfg.HTTP.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			logger.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func (rt *runtime) routes() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		promexport.NewPrometheusExporter(rt.engine),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/.well-known/jwks.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=300")
		_ = json.NewEncoder(w).Encode(rt.engine.JWKS())
	})
	// lets gateways confirm a bearer token without holding the keys
	mux.Handle("/v1/identity", middleware.Guard(rt.engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := middleware.IdentityFromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(id)
	})))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !rt.redis.Healthy() {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
