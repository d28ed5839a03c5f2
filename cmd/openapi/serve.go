package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dev-fuadhasan/openapi/internal/common"
	"github.com/dev-fuadhasan/openapi/internal/logger"
	"github.com/dev-fuadhasan/openapi/internal/metrics"
	"github.com/dev-fuadhasan/openapi/internal/rslimiter"
	"github.com/dev-fuadhasan/openapi/internal/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /scan over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if listen != "" {
				cfg.ServerConfig.ListenAddress = listen
			}

			appLogger, err := logger.New(cfg.LogConfig)
			if err != nil {
				return common.WrapError(err, "failed to initialize logger")
			}
			defer appLogger.Close()
			log := *appLogger.GetZerolog()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			limiter := rslimiter.NewResourceLimiter(cfg.ResourceLimiterConfig, log)
			limiter.Start()
			defer limiter.Stop()

			srv := server.New(cfg.ServerConfig, a.orchestrator, log).
				WithAdmitter(limiter).
				WithMetrics(a.recorder)
			if err := srv.Start(); err != nil {
				return err
			}

			var metricsListener *metrics.Listener
			if cfg.MetricsConfig.Enabled {
				metricsListener = metrics.NewListener(cfg.MetricsConfig, a.recorder, limiter.Admit, log)
				if err := metricsListener.Start(); err != nil {
					log.Error().Err(err).Msg("Failed to start metrics listener, continuing without it")
					metricsListener = nil
				}
			}

			<-ctx.Done()
			log.Info().Msg("Received interrupt signal, initiating graceful shutdown...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			var errs []error
			errs = append(errs, srv.Shutdown(shutdownCtx))
			if metricsListener != nil {
				errs = append(errs, metricsListener.Shutdown(shutdownCtx))
			}
			if err := common.CombineErrors(errs); err != nil {
				log.Error().Err(err).Msg("Graceful shutdown incomplete")
				return err
			}
			log.Info().Msg("Server stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (overrides server_config.listen_address)")
	return cmd
}
