// Package server exposes the control API and Prometheus metrics over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/gridbalance/api/control"
	"github.com/kilianp07/gridbalance/config"
	"github.com/kilianp07/gridbalance/infra/logger"
)

// Handler mounts the control API and, when cfg.MetricsPath is set, the
// metrics of gatherer. Metrics are served without authentication.
func Handler(r control.Runner, cfg config.HTTPConfig, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", control.NewHandler(r, cfg.Token))
	if cfg.MetricsPath != "" {
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Serve listens on cfg.Addr until ctx is canceled, then shuts down within
// cfg.ShutdownTimeout.
func Serve(ctx context.Context, r control.Runner, cfg config.HTTPConfig) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	return ServeListener(ctx, ln, r, cfg)
}

// ServeListener is Serve on an existing listener.
func ServeListener(ctx context.Context, ln net.Listener, r control.Runner, cfg config.HTTPConfig) error {
	log := logger.New("http")
	srv := &http.Server{
		Handler:           Handler(r, cfg, nil),
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}()
	log.Infof("listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
