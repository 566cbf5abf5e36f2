// Package subjects serves the browse API: branches, semesters, subjects
// and everything attached to a subject.
package subjects

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"engram/internal/unified"
	"engram/pkg/logger"
	"engram/pkg/models"
)

type Service interface {
	Ready(ctx context.Context) bool
	Branches(ctx context.Context) ([]string, error)
	Semesters(ctx context.Context, branch string) ([]string, error)
	Subjects(ctx context.Context, branch, semester string) ([]string, error)
	Materials(ctx context.Context, branch, semester, subject string) models.MaterialSet
	Syllabus(ctx context.Context, branch, semester, subject string) (models.Syllabus, bool)
	Videos(ctx context.Context, branch, semester, subject string) []models.VideoDescriptor
	Mapping(subject, branch, semester string) models.SubjectMapping
}

type Handler struct {
	Svc          Service
	ReadyTimeout time.Duration
	log          *logger.Logger
}

func NewHandler(svc Service, log *logger.Logger) *Handler {
	return &Handler{Svc: svc, ReadyTimeout: 5 * time.Second, log: logger.OrNop(log).With("component", "http")}
}

func (h *Handler) RegisterProbes(r gin.IRoutes) {
	r.GET("/health", h.health)
	r.GET("/ready", h.ready)
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/branches", h.branches)
	r.GET("/branches/:branch/semesters", h.semesters)
	r.GET("/branches/:branch/semesters/:semester/subjects", h.subjects)
	r.GET("/branches/:branch/semesters/:semester/subjects/:subject/materials", h.materials)
	r.GET("/branches/:branch/semesters/:semester/subjects/:subject/syllabus", h.syllabus)
	r.GET("/branches/:branch/semesters/:semester/subjects/:subject/videos", h.videos)
	r.GET("/mapping", h.mapping)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.ReadyTimeout)
	defer cancel()

	if !h.Svc.Ready(ctx) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// listError answers a failed listing; a total catalog outage is retryable.
func (h *Handler) listError(c *gin.Context, op string, err error) {
	if errors.Is(err, unified.ErrAllSourcesFailed) {
		h.log.Warn("listing unavailable", "op", op, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalogs unavailable", "retryable": true})
		return
	}
	h.log.Error("listing failed", "op", op, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
}

func (h *Handler) branches(c *gin.Context) {
	items, err := h.Svc.Branches(c.Request.Context())
	if err != nil {
		h.listError(c, "branches", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) semesters(c *gin.Context) {
	branch := c.Param("branch")
	items, err := h.Svc.Semesters(c.Request.Context(), branch)
	if err != nil {
		h.listError(c, "semesters", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"branch": branch, "items": items})
}

func (h *Handler) subjects(c *gin.Context) {
	branch, semester := c.Param("branch"), c.Param("semester")
	items, err := h.Svc.Subjects(c.Request.Context(), branch, semester)
	if err != nil {
		h.listError(c, "subjects", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"branch": branch, "semester": semester, "items": items})
}

func (h *Handler) materials(c *gin.Context) {
	branch, semester, subject := c.Param("branch"), c.Param("semester"), c.Param("subject")
	set := h.Svc.Materials(c.Request.Context(), branch, semester, subject)
	c.JSON(http.StatusOK, gin.H{
		"branch":    branch,
		"semester":  semester,
		"subject":   subject,
		"total":     set.Total(),
		"materials": set,
	})
}

func (h *Handler) syllabus(c *gin.Context) {
	branch, semester, subject := c.Param("branch"), c.Param("semester"), c.Param("subject")
	syl, ok := h.Svc.Syllabus(c.Request.Context(), branch, semester, subject)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no syllabus"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subject": subject, "units": syl})
}

func (h *Handler) videos(c *gin.Context) {
	branch, semester, subject := c.Param("branch"), c.Param("semester"), c.Param("subject")
	c.JSON(http.StatusOK, gin.H{"subject": subject, "items": h.Svc.Videos(c.Request.Context(), branch, semester, subject)})
}

type mappingQuery struct {
	Subject  string `form:"subject" binding:"required"`
	Branch   string `form:"branch"`
	Semester string `form:"semester"`
}

func (h *Handler) mapping(c *gin.Context) {
	var q mappingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject required"})
		return
	}
	c.JSON(http.StatusOK, h.Svc.Mapping(q.Subject, q.Branch, q.Semester))
}
