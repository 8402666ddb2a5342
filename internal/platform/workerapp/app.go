package workerapp

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ovation22/triplederby-workers/internal/config"
)

// Startable is satisfied by *bus.Consumer[T] for any message type T.
type Startable interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// App bootstraps the common process shell every <domain>worker binary runs:
// a Prometheus /metrics endpoint, one or more bus consumers, and an optional
// background reaper, all torn down together on SIGINT/SIGTERM.
type App struct {
	Service string
	Config  *config.Config
	Logger  zerolog.Logger

	Consumers []Startable
	Reaper    func(ctx context.Context) // optional; run in its own goroutine until ctx is cancelled
}

// Run starts the metrics server and every consumer, then blocks until ctx is
// cancelled or SIGINT/SIGTERM arrives. It then stops the consumers in the
// order they were started and finally shuts down the metrics server.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSrv := a.startMetricsServer()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	if a.Reaper != nil {
		go a.Reaper(ctx)
	}

	for _, c := range a.Consumers {
		if err := c.Start(ctx); err != nil {
			return err
		}
	}

	a.Logger.Info().Str("service", a.Service).Msg("worker started")
	<-ctx.Done()
	a.Logger.Info().Str("service", a.Service).Msg("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, c := range a.Consumers {
		if err := c.Stop(stopCtx); err != nil {
			a.Logger.Warn().Err(err).Msg("error stopping consumer")
		}
	}
	return nil
}

func (a *App) startMetricsServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: a.Config.MetricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Warn().Err(err).Msg("metrics server stopped unexpectedly")
		}
	}()
	return srv
}

