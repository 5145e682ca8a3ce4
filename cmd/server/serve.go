package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/Nikhil-Joson/HomeCanvas/internal/api"
	"github.com/Nikhil-Joson/HomeCanvas/internal/asset"
	"github.com/Nikhil-Joson/HomeCanvas/internal/auth"
	"github.com/Nikhil-Joson/HomeCanvas/internal/config"
	"github.com/Nikhil-Joson/HomeCanvas/internal/db"
	"github.com/Nikhil-Joson/HomeCanvas/internal/export"
	"github.com/Nikhil-Joson/HomeCanvas/internal/generate"
	"github.com/Nikhil-Joson/HomeCanvas/internal/live"
	mw "github.com/Nikhil-Joson/HomeCanvas/internal/middleware"
	"github.com/Nikhil-Joson/HomeCanvas/internal/store"
	"github.com/Nikhil-Joson/HomeCanvas/internal/studio"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the studio HTTP and websocket server",
		Long: `Starts the HomeCanvas server.

Sessions are journaled to Postgres when DATABASE_URL is set and kept in
memory otherwise. Display images are written under ASSET_DIR.`,
		Example: `  # Start on the configured PORT (default 8080)
  homecanvas serve

  # Start on a custom port
  homecanvas serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if port != 0 {
				cfg.Port = port
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides PORT)")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	var journal store.Journal = store.NewMemory()
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		journal = store.NewPostgres(pool)
	} else {
		slog.Warn("DATABASE_URL not set, sessions will not survive a restart")
	}

	assets, err := asset.NewStore(cfg.AssetDir, "/assets/")
	if err != nil {
		return fmt.Errorf("open asset store: %w", err)
	}
	// Handles from a previous run are not referenced by any live studio.
	assets.Sweep()

	gen, err := generate.NewGemini(ctx, generate.GeminiConfig{
		APIKey:     cfg.GeminiAPIKey,
		ImageModel: cfg.GeminiImageModel,
		TextModel:  cfg.GeminiTextModel,
	})
	if err != nil {
		return fmt.Errorf("create generator: %w", err)
	}

	sessions := api.NewManager(journal, studio.Options{
		Generator: gen,
		Assets:    assets,
		Timeout:   cfg.GenerationTimeout,
	})

	go evictIdleSessions(ctx, sessions, cfg.SessionIdleTimeout)

	hub := live.NewHub()
	go hub.Run()

	tokens := auth.NewService(cfg.SessionSecret, auth.DefaultTTL)
	handler := api.NewHandler(sessions, tokens, hub, export.NewExporter(cfg.FfmpegPath), api.Config{
		MaxUploadBytes: cfg.MaxUploadBytes,
		OriginPatterns: live.OriginPatterns(cfg.Origins()),
	})

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.PathPrefix("/assets/").Handler(assets.Serve()).Methods("GET")

	handler.Register(r)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.GenerationTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	// Stop the hub first so no client starts new work during shutdown.
	hub.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	err = srv.Shutdown(shutdownCtx)
	sessions.Close()
	return err
}

// evictIdleSessions unloads idle studios until ctx is done. A zero timeout
// keeps every studio loaded.
func evictIdleSessions(ctx context.Context, sessions *api.Manager, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(maxIdle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.EvictIdle(maxIdle)
		}
	}
}
