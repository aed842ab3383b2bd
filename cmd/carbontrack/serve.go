package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/ecotrace/carbon-tracker/catalog"
	"github.com/ecotrace/carbon-tracker/server"
)

var serveAddress string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if serveAddress != "" {
			cfg.HTTPAddress = serveAddress
		}
		if cfg.UsesDefaultSecret() {
			log.Warn().Msg("JWT_SECRET is not set; using the development default")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return withDB(ctx, cfg, func(db *gorm.DB, cat *catalog.Catalog) error {
			handler := server.NewRouter(server.NewHandlers(db, cat, cfg), server.AuthConfig(cfg))
			srv := server.NewServer(server.ServerConfig{
				Address:      cfg.HTTPAddress,
				ReadTimeout:  cfg.ReadTimeout,
				WriteTimeout: cfg.WriteTimeout,
				IdleTimeout:  60 * time.Second,
			}, handler)

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("address", cfg.HTTPAddress).Str("catalog_version", cat.Version).Msg("carbontrack listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("graceful shutdown failed")
				return err
			}
			log.Info().Msg("server stopped")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddress, "addr", "", "Listen address (overrides HTTP_ADDRESS)")
}
