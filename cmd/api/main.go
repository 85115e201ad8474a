package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/georgemunganga/bijoux-shop/internal/platform/config"
	"github.com/georgemunganga/bijoux-shop/internal/platform/database"
	"github.com/georgemunganga/bijoux-shop/internal/platform/logging"
)

// rootCmd is the shop binary.
var rootCmd = &cobra.Command{
	Use:           "shop",
	Short:         "Jewelry storefront and back-office",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// serveCmd runs the HTTP server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the storefront and admin HTTP server",
	Long: `Start the HTTP server.

Pending migrations are applied first unless --skip-migrate is set.`,
	RunE: runServe,
}

// migrateCmd applies the embedded schema migrations and exits.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE:  runMigrate,
}

var skipMigrate bool

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not apply migrations on start")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// boot loads configuration and builds the base logger.
func boot() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := boot()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.Open(cmd.Context(), cfg.Database.URL, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	return database.Migrate(cmd.Context(), db, logger)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := boot()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database.URL, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if !skipMigrate {
		if err := database.Migrate(ctx, db, logger); err != nil {
			return err
		}
	}

	app, err := newApp(ctx, cfg, db, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr), zap.String("shop", cfg.Shop.Name))
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

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
