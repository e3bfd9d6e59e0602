package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/PabloGalante/farum-chat/internal/adapters/http"
	"github.com/PabloGalante/farum-chat/internal/observability"
)

const shutdownTimeout = 10 * time.Second

// evictionInterval sweeps a few times per TTL, at most once a minute.
func evictionInterval(ttl time.Duration) time.Duration {
	return min(ttl/4, time.Minute)
}

func serveCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			log := observability.Configure(os.Stdout, cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, cfg)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           httpadapter.NewServer(a.svc),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go a.svc.RunEviction(ctx, evictionInterval(cfg.SessionIdleTTL.Duration))

			errCh := make(chan error, 1)
			go func() {
				log.Info("farum API listening", "port", cfg.Port, "mode", cfg.Mode)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					_ = a.Close(context.Background())
					return err
				}
			case <-ctx.Done():
				log.Info("shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			var errs []error
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
			if err := a.Close(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen port (overrides FARUM_PORT)")
	return cmd
}
