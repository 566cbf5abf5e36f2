package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"engram/internal/app"
	"engram/internal/events"
	"engram/internal/server"
	"engram/pkg/database"
	"engram/pkg/fetch"
	"engram/pkg/logger"
	"engram/pkg/utils"
)

func main() {
	cfg, err := utils.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.LogMode != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	svc, err := app.New(app.Options{
		Timeout:  cfg.FetchTimeout,
		Database: database.Config{DSN: cfg.DBDSN},
	}, fetch.New(cfg.Content, cfg.FetchTimeout), log)
	if err != nil {
		log.Fatal("service init failed", "error", err)
	}
	defer svc.Close()

	hub := events.NewHub(log)
	router := server.NewRouter(server.RouterConfig{
		Service:     svc,
		Hub:         hub,
		Auth:        cfg.Auth,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      log,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// warm the catalogs so the first request does not pay for the fetch
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout)
		defer cancel()
		if !svc.Ready(ctx) {
			log.Warn("no catalog reachable at startup", "content", cfg.Content)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP API server listening", "addr", cfg.HTTPAddr, "content", cfg.Content)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		log.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", "error", err)
	}
	log.Info("server stopped")
}
