package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"paper-reader/internal/app"
	"paper-reader/internal/httputil"
)

const shutdownTimeout = 10 * time.Second

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              net.JoinHostPort(deps.Config.BindHost(), strconv.Itoa(deps.Config.Port)),
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deps.Log.Info("reader listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("reader stopped", "err", err)
		return
	}
	deps.Log.Info("reader stopped")
}

func newRouter(deps app.Deps) *chi.Mux {
	r := httputil.NewRouter(deps.Log)

	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(httputil.Timeout())
			r.Get("/presets", presetsHandler())
			r.Get("/summaries", summariesHandler(deps))
			r.Post("/sessions", createSessionHandler(deps))
			r.Get("/sessions/{id}", sessionHandler(deps))
		})
		// OCR and streaming routes run as long as the provider does.
		r.Post("/sessions/{id}/document", uploadHandler(deps))
		r.Post("/sessions/{id}/document/url", uploadURLHandler(deps))
		r.Post("/sessions/{id}/summary", summaryHandler(deps))
		r.Post("/sessions/{id}/messages", messageHandler(deps))
	})
	return r
}
