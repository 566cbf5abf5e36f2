package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"engram/internal/app"
	"engram/internal/grpcserver"
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

	svc, err := app.New(app.Options{
		Timeout:  cfg.FetchTimeout,
		Database: database.Config{DSN: cfg.DBDSN},
	}, fetch.New(cfg.Content, cfg.FetchTimeout), log)
	if err != nil {
		log.Fatal("service init failed", "error", err)
	}
	defer svc.Close()

	listener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal("grpc listen failed", "addr", cfg.GRPCAddr, "error", err)
	}

	srv := grpcserver.New(svc, log)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Info("shutdown signal received", "signal", sig.String())
		srv.GracefulStop()
	}()

	log.Info("gRPC server listening", "addr", cfg.GRPCAddr, "content", cfg.Content)
	if err := srv.Serve(listener); err != nil {
		log.Error("grpc server stopped", "error", err)
	}
}
