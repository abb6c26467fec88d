package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/navigare/internal/config"
	"github.com/vango-dev/navigare/pkg/bridge"
)

func serveCmd() *cobra.Command {
	var (
		addr string
		from string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose a router to remote view adapters",
		Long: `Boot a router and serve it over WebSocket.

Router events stream to every connected client; clients send visit,
reload, back and cancel commands. The same listener serves the
current page at /page and Prometheus metrics at /metrics unless
telemetry.metricsAddr names a separate address.

Examples:
  navigare serve
  navigare serve --addr :7070 --from /dashboard`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Bridge.Addr = addr
			}
			if cfg.Bridge.Addr == "" {
				cfg.Bridge.Addr = ":7070"
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg.Logger(cmd.ErrOrStderr()), cfg, from)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from config, then :7070)")
	cmd.Flags().StringVar(&from, "from", "/", "Path of the first page")

	return cmd
}

func runServe(ctx context.Context, logger *slog.Logger, cfg *config.Config, from string) error {
	s, err := openSession(ctx, cfg, logger, from)
	if err != nil {
		return err
	}
	defer s.Close()

	hub := bridge.NewHub(s.router, bridge.WithLogger(logger.With("component", "bridge")))
	defer hub.Close()

	metrics := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle(cfg.Bridge.Path, hub)
	r.Get("/page", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.router.Page())
	})

	servers := []*http.Server{{Addr: cfg.Bridge.Addr, Handler: r}}
	if cfg.Telemetry.MetricsAddr == "" || cfg.Telemetry.MetricsAddr == cfg.Bridge.Addr {
		r.Handle("/metrics", metrics)
	} else {
		m := chi.NewRouter()
		m.Handle("/metrics", metrics)
		servers = append(servers, &http.Server{Addr: cfg.Telemetry.MetricsAddr, Handler: m})
	}

	errc := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errc <- err
			}
		}(srv)
		info("listening on %s", srv.Addr)
	}
	success("bridge ready at ws://%s%s", cfg.Bridge.Addr, cfg.Bridge.Path)

	select {
	case <-ctx.Done():
	case err = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		srv.Shutdown(shutdownCtx)
	}
	return err
}
