// Package mirror serves a local Content-Meta directory the way the
// static site does, so the API can be pointed at it during development.
package mirror

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"engram/pkg/logger"
)

// Prefix is the URL path every catalog document lives under.
const Prefix = "/Content-Meta"

type Handler struct {
	Root string // directory containing Content-Meta/
	log  *logger.Logger
}

func NewHandler(root string, log *logger.Logger) *Handler {
	return &Handler{Root: root, log: logger.OrNop(log).With("component", "mirror")}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET(Prefix+"/*file", h.serve)
}

// serve reads the file fresh on every request and refuses bodies that
// are not valid JSON, so a half-written file never reaches a client.
func (h *Handler) serve(c *gin.Context) {
	name := path.Clean("/" + c.Param("file"))
	if name == "/" || !strings.EqualFold(path.Ext(name), ".json") {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	p := filepath.Join(h.Root, filepath.FromSlash(Prefix+name))
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.log.Error("read document", "path", p, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot read document"})
		return
	}
	if !json.Valid(b) {
		h.log.Warn("invalid JSON document", "path", p)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "document is not valid JSON"})
		return
	}

	c.Data(http.StatusOK, "application/json", b)
}
