package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/tracelay/tracelay/backend-go/internal/asset"
	"github.com/tracelay/tracelay/backend-go/internal/config"
	"github.com/tracelay/tracelay/backend-go/internal/engine"
	mw "github.com/tracelay/tracelay/backend-go/internal/middleware"
	"github.com/tracelay/tracelay/backend-go/internal/raster"
	"github.com/tracelay/tracelay/backend-go/internal/session"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
	logger := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := asset.NewStore(cfg.AssetDir)
	if err != nil {
		slog.Error("open asset store", "error", err)
		os.Exit(1)
	}
	assetHandler := asset.NewHandler(store, logger)

	// Each session gets its own engine resolving images from the store
	newEngine := func() *engine.Engine {
		return engine.NewEngine(
			engine.WithImageSource(store),
			engine.WithLogger(logger),
		)
	}
	hub := session.NewHub(newEngine, cfg.SessionTTL, logger)
	go hub.Run(ctx)

	tokens := session.NewTokenService(cfg.SessionSecret, cfg.SessionTTL)
	compositor := raster.NewCompositor(store, cfg.PreviewWidth, cfg.PreviewHeight, logger)
	origins := cfg.Origins()
	sessionHandler := session.NewHandler(hub, tokens, compositor, mw.OriginPatterns(origins), logger)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(origins))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Assets
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix(asset.URLPrefix).Handler(assetHandler.Serve()).Methods("GET")

	// Sessions
	r.HandleFunc("/sessions", sessionHandler.Create).Methods("POST", "OPTIONS")
	r.HandleFunc("/sessions/{sessionId}/preview.webp", sessionHandler.Preview).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws/session/{sessionId}", sessionHandler.Connect)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		cancel()
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
