/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Sahayog grant engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment)
  2. Configure structured logging
  3. Initialize SQLite store
  4. Create API handler and router
  5. Start the disbursement scheduler
  6. Start server with graceful shutdown

CONFIGURATION (environment, .env honored):
  PORT               HTTP server port (default: 8080)
  DB_PATH            SQLite database path (default: grants.db)
                     Use ":memory:" for an in-memory database
  LOG_LEVEL          logrus level (default: info)
  CORS_ORIGINS       comma-separated allowed origins
  DISBURSEMENT_CRON  cron spec of the due sweep (empty disables)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and close the database
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sahayog/grant-engine/api"
	"github.com/sahayog/grant-engine/config"
	"github.com/sahayog/grant-engine/store/sqlite"
)

func main() {
	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	handler := api.NewHandler(store, log)
	router := api.NewRouter(handler, cfg.CORSOrigins)

	scheduler, err := api.NewScheduler(store, log, cfg.DisbursementCron)
	if err != nil {
		log.WithError(err).Fatal("invalid disbursement cron spec")
	}
	scheduler.Start()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}
	scheduler.Stop()

	log.Info("server stopped")
}
