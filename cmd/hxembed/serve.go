package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/pthm/hxembed"
	"github.com/pthm/hxembed/internal/config"
)

func runServe(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)

	addr := cmd.String("listen")
	if addr == "" {
		addr = e.cfg.Serve.Listen
	}

	router, err := newRouter(e.cfg, e.log, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		e.log.Info("Serving embeds", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("server error: %w", err)
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	e.log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRouter wires the registry, a preview page and the metrics endpoint.
func newRouter(cfg *config.Config, log *zap.Logger, registerer prometheus.Registerer, gatherer prometheus.Gatherer) (*chi.Mux, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts, hxembed.WithLogger(log))

	if cfg.Serve.Metrics {
		m := hxembed.NewMetrics()
		if err := m.Register(registerer); err != nil {
			return nil, fmt.Errorf("unable to register metrics: %w", err)
		}
		opts = append(opts, hxembed.WithMetrics(m))
	}

	key := []byte(cfg.Serve.Key)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		log.Warn("No serve.key configured, using a random key; tokens will not survive a restart")
	}
	reg := hxembed.NewRegistry(key, opts...)
	if cfg.Serve.Opaque {
		reg.Opaque()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle(reg.Prefix()+"*", reg.Handler())
	r.Get("/preview", previewHandler(reg, log))
	if cfg.Serve.Metrics {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r, nil
}

// previewHandler renders a bare page holding one lazily loaded embed, for
// checking a target by hand: /preview?target=...&mode=header.
func previewHandler(reg *hxembed.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mode, err := hxembed.ParseMode(q.Get("mode"))
		if err != nil || q.Get("target") == "" {
			http.Error(w, "target and a valid mode are required", http.StatusBadRequest)
			return
		}

		req := hxembed.EmbedRequest{TargetURL: q.Get("target"), Mode: mode}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<!DOCTYPE html><html><head><title>%s</title>`+
			`<script src="https://unpkg.com/htmx.org@2.0.4"></script></head><body>`,
			html.EscapeString(req.TargetURL))
		if err := reg.Defer(req, nil).Render(r.Context(), w); err != nil {
			log.Warn("Unable to render preview", zap.Error(err))
			return
		}
		fmt.Fprint(w, `</body></html>`)
	}
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("Request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
