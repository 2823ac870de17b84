// ABOUTME: Development stand-in for the vehicle-market agent service.
// ABOUTME: Serves /health, /api/query, and /ws/{clientID} with canned listings.

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	addr := flag.String("addr", envOr("FAKE_BACKEND_ADDR", ":8000"), "Listen address")
	thinkDelay := flag.Duration("think-delay", 300*time.Millisecond, "Pause between typing and response frames")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using environment")
	}

	backend := newBackend(logger, *thinkDelay)

	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Get("/health", backend.handleHealth)
	r.Post("/api/query", backend.handleQuery)
	r.Get("/ws/{clientID}", backend.handleWebSocket)

	srv := &http.Server{
		Addr:    *addr,
		Handler: r,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown error", "error", err)
		}
	}()

	logger.Info("fake backend listening", "addr", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
