package documents

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Getter is the read surface the HTTP handler needs.
type Getter interface {
	Get(ctx context.Context, id int64) (*Document, error)
}

type Handler struct {
	repo Getter
}

func NewHandler(repo Getter) *Handler {
	return &Handler{repo: repo}
}

func Register(g gin.IRouter, repo Getter) {
	h := NewHandler(repo)
	g.GET("/documents/:id", h.get)
}

func (h *Handler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid document id"})
		return
	}

	d, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "document": d})
}
