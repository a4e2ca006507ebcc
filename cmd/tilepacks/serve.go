package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tilepacks.dev/internal/backend"
	"tilepacks.dev/internal/backend/remote"
	"tilepacks.dev/internal/backend/sqlite"
	"tilepacks.dev/internal/config"
	"tilepacks.dev/internal/handlers"
)

const shutdownTimeout = 10 * time.Second

// serveCmd runs the web server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.Close()

	router, err := handlers.SetupRoutes(cfg, be, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			zap.String("addr", cfg.ServerAddr),
			zap.String("backend", cfg.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// openBackend connects the configured backend
func openBackend(ctx context.Context, cfg *config.Config) (backend.Backend, error) {
	switch cfg.Backend {
	case config.BackendRemote:
		client, err := remote.New(remote.Options{
			BaseURL:   cfg.BackendURL,
			APIKey:    cfg.BackendKey,
			UploadURL: cfg.UploadURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create backend client: %w", err)
		}
		return client, nil
	default:
		store, err := sqlite.Open(ctx, cfg.DatabasePath(), sqlite.Options{
			ObjectDir:     cfg.ObjectDir(),
			Bucket:        cfg.ImageBucket,
			PublicBaseURL: cfg.PublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if len(cfg.SeedTags) > 0 {
			if err := store.SeedTags(ctx, cfg.SeedTags); err != nil {
				store.Close()
				return nil, fmt.Errorf("failed to seed tags: %w", err)
			}
			logger.Info("Seeded tag catalog", zap.Int("tags", len(cfg.SeedTags)))
		}
		return store, nil
	}
}
