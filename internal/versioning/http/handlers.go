package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/docwave/docwave-backend/internal/versioning/domain"
	"github.com/docwave/docwave-backend/internal/versioning/service"
)

type Handler struct {
	versions  VersionAPI
	conflicts ConflictAPI
	compare   CompareAPI
	retention RetentionAPI
	keepDays  int // default horizon for cleanup requests
}

func New(versions VersionAPI, conflicts ConflictAPI, compare CompareAPI, retention RetentionAPI, keepDays int) *Handler {
	return &Handler{
		versions:  versions,
		conflicts: conflicts,
		compare:   compare,
		retention: retention,
		keepDays:  keepDays,
	}
}

func (h *Handler) save(c *gin.Context) {
	documentID, ok := docID(c)
	if !ok {
		return
	}

	var req saveVersionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	isAutoSave := true
	if req.IsAutoSave != nil {
		isAutoSave = *req.IsAutoSave
	}

	v, err := h.versions.SaveVersion(c.Request.Context(), documentID, req.UserID, req.Content, domain.SaveOptions{
		ChangeDescription: req.ChangeDescription,
		IsAutoSave:        isAutoSave,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "version": v})
}

func (h *Handler) list(c *gin.Context) {
	documentID, ok := docID(c)
	if !ok {
		return
	}

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)

	result, err := h.versions.GetVersions(c.Request.Context(), documentID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "result": result})
}

func (h *Handler) detail(c *gin.Context) {
	documentID, ok := docID(c)
	if !ok {
		return
	}

	detail, err := h.versions.GetVersionDetail(c.Request.Context(), documentID, c.Param("versionId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "version": detail})
}

func (h *Handler) restore(c *gin.Context) {
	documentID, ok := docID(c)
	if !ok {
		return
	}

	var req restoreReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	v, err := h.versions.RestoreVersion(c.Request.Context(), documentID, req.UserID, c.Param("versionId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "version": v})
}

func (h *Handler) cleanup(c *gin.Context) {
	documentID, ok := docID(c)
	if !ok {
		return
	}

	var req cleanupReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
			return
		}
	}
	keepDays := h.keepDays
	if req.KeepDays != nil {
		// An explicit value is passed through as-is; zero or negative gets
		// rejected by the service instead of silently becoming the default.
		keepDays = *req.KeepDays
	}

	deleted, err := h.versions.CleanOldVersions(c.Request.Context(), documentID, keepDays)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": deleted})
}

func (h *Handler) delete(c *gin.Context) {
	documentID, ok := docID(c)
	if !ok {
		return
	}

	if err := h.versions.DeleteVersion(c.Request.Context(), documentID, c.Param("versionId")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "version deleted"})
}

func (h *Handler) compareVersions(c *gin.Context) {
	documentID, ok := docID(c)
	if !ok {
		return
	}

	sourceID := c.Query("source")
	targetID := c.Query("target")
	if sourceID == "" || targetID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "source and target are required"})
		return
	}

	result, err := h.compare.CompareVersions(c.Request.Context(), documentID, sourceID, targetID)
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("format") == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(service.RenderCompareHTML(result)))
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "result": result})
}

func (h *Handler) detectConflict(c *gin.Context) {
	documentID, ok := docID(c)
	if !ok {
		return
	}

	clientVersion := queryInt(c, "client_version", 0)

	info, err := h.conflicts.DetectConflict(c.Request.Context(), documentID, clientVersion)
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("details") == "true" && info.HasConflict {
		details, err := h.conflicts.Details(c.Request.Context(), documentID, clientVersion)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "conflict": info, "details": details})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "conflict": info})
}

func (h *Handler) resolveConflict(c *gin.Context) {
	documentID, ok := docID(c)
	if !ok {
		return
	}

	var req resolveConflictReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	result, err := h.conflicts.ResolveLastWriteWins(c.Request.Context(), documentID, req.Content, req.ClientVersion)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "result": result})
}

func (h *Handler) triggerDaily(c *gin.Context) {
	report, err := h.retention.RunDailySnapshots(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "report": report})
}

func (h *Handler) triggerThinning(c *gin.Context) {
	report, err := h.retention.RunThinning(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "report": report})
}

func docID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid document id"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrDocNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, domain.ErrCorruptData):
		// Storage integrity problem, not a user mistake. Log loudly.
		log.Printf("[versions] CORRUPT DATA: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "stored version data is corrupt"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	}
}
