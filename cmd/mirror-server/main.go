package main

import (
	"github.com/gin-gonic/gin"

	"engram/internal/middleware"
	"engram/internal/mirror"
	"engram/pkg/logger"
	"engram/pkg/utils"
)

// serves <mirror_dir>/Content-Meta/*.json at GET /Content-Meta/*
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

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.CORS(nil))
	mirror.NewHandler(cfg.MirrorDir, log).RegisterRoutes(router)

	log.Info("mirror-server listening", "addr", cfg.MirrorAddr, "dir", cfg.MirrorDir)
	if err := router.Run(cfg.MirrorAddr); err != nil {
		log.Fatal("mirror-server stopped", "error", err)
	}
}
