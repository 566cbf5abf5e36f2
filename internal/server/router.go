// Package server assembles the HTTP API.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"engram/internal/app"
	"engram/internal/auth"
	"engram/internal/events"
	"engram/internal/middleware"
	"engram/internal/search"
	"engram/internal/subjects"
	"engram/pkg/logger"
	"engram/pkg/utils"
)

type RouterConfig struct {
	Service     *app.Service
	Hub         *events.Hub
	Auth        utils.AuthConfig
	CORSOrigins []string
	Logger      *logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := logger.OrNop(cfg.Logger)
	hub := cfg.Hub
	if hub == nil {
		hub = events.NewHub(log)
	}

	router := gin.New()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(log.With("component", "http")),
		middleware.CORS(cfg.CORSOrigins),
	)

	cfg.Service.OnClear(func() { hub.Broadcast(events.CacheCleared()) })

	h := subjects.NewHandler(cfg.Service, log)
	h.RegisterProbes(router)
	h.RegisterRoutes(router)

	search.NewHandler(cfg.Service.Index()).RegisterRoutes(router.Group("/search"))

	router.GET("/ws", events.WSHandler(hub, cfg.CORSOrigins))
	router.GET("/debug", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ws_clients": hub.Stats().WSClients,
			"content":    cfg.Service.ContentStatus(c.Request.Context()),
		})
	})

	tokens := auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration,
	}
	auth.NewHandler(cfg.Auth.AdminPasswordHash, tokens, cfg.Service, log).RegisterRoutes(router.Group("/admin"))

	return router
}
