package http

import "github.com/gin-gonic/gin"

// Register mounts the versioning routes on the given group.
func (h *Handler) Register(g gin.IRouter) {
	docs := g.Group("/documents/:id")
	{
		docs.POST("/versions", h.save)
		docs.GET("/versions", h.list)
		docs.GET("/versions/:versionId", h.detail)
		docs.DELETE("/versions/:versionId", h.delete)
		docs.POST("/versions/:versionId/restore", h.restore)
		docs.POST("/cleanup", h.cleanup)
		docs.GET("/compare", h.compareVersions)
		docs.GET("/conflict", h.detectConflict)
		docs.POST("/conflict/resolve", h.resolveConflict)
	}

	admin := g.Group("/admin/retention")
	{
		admin.POST("/daily", h.triggerDaily)
		admin.POST("/thinning", h.triggerThinning)
	}
}
