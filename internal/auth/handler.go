// Package auth guards the admin cache controls with a single bcrypt
// password and short-lived HS256 tokens.
package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"engram/pkg/logger"
)

// Cache is what the admin routes operate on.
type Cache interface {
	ClearCache()
}

type Handler struct {
	PasswordHash string
	Tokens       TokenService
	Cache        Cache
	log          *logger.Logger
}

func NewHandler(passwordHash string, tokens TokenService, cache Cache, log *logger.Logger) *Handler {
	return &Handler{
		PasswordHash: passwordHash,
		Tokens:       tokens,
		Cache:        cache,
		log:          logger.OrNop(log).With("component", "admin"),
	}
}

// Enabled reports whether an admin password is configured.
func (h *Handler) Enabled() bool { return h.PasswordHash != "" }

// RegisterRoutes mounts the admin routes; with no password configured
// nothing is mounted and the routes answer 404.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	if !h.Enabled() {
		h.log.Info("admin routes disabled: no password hash configured")
		return
	}
	rg.POST("/login", h.login)
	rg.POST("/cache/clear", AuthMiddleware(h.Tokens), h.clearCache)
}

type loginReq struct {
	Password string `json:"password" binding:"required,max=72"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password required"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.PasswordHash), []byte(req.Password)); err != nil {
		h.log.Warn("admin login rejected", "remote", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, exp, err := h.Tokens.Sign(uuid.NewString())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) clearCache(c *gin.Context) {
	claims := MustGetClaims(c)
	h.Cache.ClearCache()
	h.log.Info("cache cleared by admin", "session", claims.ID)
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
