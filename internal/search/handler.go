package search

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"engram/internal/unified"
)

type Handler struct {
	Index *Index
}

func NewHandler(index *Index) *Handler {
	return &Handler{Index: index}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.search) // GET /search?q=&branch=&limit=&offset=
}

func (h *Handler) search(c *gin.Context) {
	q := Query{
		Q:      c.Query("q"),
		Branch: c.Query("branch"),
		Limit:  parseInt(c.Query("limit"), DefaultLimit),
		Offset: parseInt(c.Query("offset"), 0),
	}

	res, err := h.Index.Search(c.Request.Context(), q)
	if err != nil {
		if errors.Is(err, unified.ErrAllSourcesFailed) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalogs unavailable", "retryable": true})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
