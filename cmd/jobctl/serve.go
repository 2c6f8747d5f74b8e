package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"job-collector/internal/api"
	"job-collector/internal/config"
	"job-collector/internal/logger"
)

func newServeCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the background retention scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.Get("serve")

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			d, err := buildDeps(ctx, cfg)
			if err != nil {
				return err
			}
			defer d.cleanup()

			if cfg.SchedulerOnStart {
				if err := d.sched.Start(); err != nil {
					return err
				}
			}
			defer d.sched.Stop()

			server := api.New(cfg, d.store, d.collector, d.sched)
			httpServer := &http.Server{
				Addr:    ":" + cfg.HTTPPort,
				Handler: server.Router(),
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", httpServer.Addr).Msg("api listening")
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
}
