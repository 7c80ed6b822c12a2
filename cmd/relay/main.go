package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Renegades-Studio/live-activity-demo/internal/apns"
	"github.com/Renegades-Studio/live-activity-demo/internal/auth"
	"github.com/Renegades-Studio/live-activity-demo/internal/config"
	"github.com/Renegades-Studio/live-activity-demo/internal/relay"
	httptransport "github.com/Renegades-Studio/live-activity-demo/internal/transport/http"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	dispatcher, err := apns.NewDispatcher(apns.Config{
		KeyFile: cfg.APNSKeyFile,
		KeyID:   cfg.APNSKeyID,
		TeamID:  cfg.APNSTeamID,
	}, logger)
	if err != nil {
		logger.Error("configuring APNs dispatcher", "error", err)
		logger.Error("set APNS_KEY_FILE, APNS_KEY_ID and APNS_TEAM_ID to valid credentials")
		os.Exit(1)
	}

	handler := relay.NewHandler(dispatcher, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Simple CORS middleware for the local dev client
	cors := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", cfg.AllowedOrigin)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "POST,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// Request logger with a per-request id
	requestLog := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Info("request", "method", r.Method, "path", r.URL.Path, "request_id", uuid.NewString())
			next.ServeHTTP(w, r)
		})
	}

	var root http.Handler = requestLog(cors(mux))
	if cfg.JWTSecret != "" {
		root = auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}).Wrap(root)
	}

	server := httptransport.NewServer(httptransport.ServerConfig{Address: cfg.HTTPAddress}, root)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("dispatch relay listening", "address", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-shutdownCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
