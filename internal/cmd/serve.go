package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/mr1hm/quake-etl/internal/api"
	"github.com/mr1hm/quake-etl/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API over the earthquakes table",
	RunE: func(cmd *cobra.Command, args []string) error {
		// nothing else is written to stdout while serving
		logging.Setup(cfg.Logging.Level)

		ctx, stop := signalContext()
		defer stop()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		c, closeCache := openCache(ctx)
		defer closeCache()

		gin.SetMode(gin.ReleaseMode)
		router := api.NewRouter(api.NewHandler(store, c), cfg.Server.RateLimit)

		srv := &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("server listening", "addr", srv.Addr, logging.Driver(store.Driver()))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
		case <-ctx.Done():
		}

		slog.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", logging.Error(err))
		}

		slog.Info("shutdown complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
