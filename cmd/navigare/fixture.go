package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/navigare/pkg/navtest"
)

func fixtureCmd() *cobra.Command {
	var (
		addr       string
		appVersion string
	)

	cmd := &cobra.Command{
		Use:   "fixture",
		Short: "Run the demo Navigare server",
		Long: `Run the protocol fixture used by the tests as a standalone server.

It serves a small user directory with deferred properties, a modal
route, validation errors, uploads, an external redirect and a
non-protocol error page.

Examples:
  navigare fixture --addr :3000
  navigare visit /users --events`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := cfg.Logger(cmd.ErrOrStderr())
			fx := navtest.New(
				navtest.WithLogger(logger.With("component", "fixture")),
				navtest.WithVersion(appVersion),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{Addr: addr, Handler: fx}
			errc := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errc <- err
				}
			}()
			success("fixture listening on %s", addr)

			select {
			case <-ctx.Done():
			case err = <-errc:
				return err
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":3000", "Address to listen on")
	cmd.Flags().StringVar(&appVersion, "app-version", navtest.DefaultVersion, "Asset version the fixture reports")

	return cmd
}
