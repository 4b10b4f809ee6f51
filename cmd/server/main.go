package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pickup-dispatch/dispatch/internal/api"
	"pickup-dispatch/dispatch/internal/config"
	"pickup-dispatch/dispatch/internal/logging"
	"pickup-dispatch/dispatch/internal/metrics"
	"pickup-dispatch/dispatch/internal/routes"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()

	// Initialize structured logging
	if err := logging.Init(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("Dispatch dashboard starting up",
		"environment", cfg.Server.Env,
		"backend", cfg.Dispatch.BaseURL,
		"db_driver", cfg.DB.Driver,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	metricsReg := metrics.NewMetricsRegistry(prometheus.DefaultRegisterer)

	// Boards run until shutdown cancels this context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := api.InitDependencies(ctx, cfg, metricsReg)
	if err != nil {
		logging.Fatal("Failed to initialize dependencies", "error", err.Error())
	}
	defer deps.Close()
	logging.Info("Connected to database", "driver", cfg.DB.Driver)

	upSince := time.Now()
	router, err := routes.RegisterRoutes(deps, upSince)
	if err != nil {
		logging.Fatal("Failed to register routes", "error", err.Error())
	}

	// Setup metrics endpoint outside of Chi router
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", router)
	logging.Info("Prometheus metrics endpoint registered at /metrics")

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		logging.Info("Shutting down server")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error("Server shutdown error", "error", err.Error())
		}
	}()

	logging.Info("Server starting", "port", cfg.Server.Port, "environment", cfg.Server.Env)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error", "error", err.Error())
	}

	logging.Info("Server stopped")
}
