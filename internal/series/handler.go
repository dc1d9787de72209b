package series

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"mangacal/internal/orchestrator"
	synchub "mangacal/internal/sync"
)

type Handler struct {
	Repo     *Repo
	Importer *Importer
	Orc      *orchestrator.Orchestrator
	Hub      *synchub.Hub
}

func NewHandler(repo *Repo, importer *Importer, orc *orchestrator.Orchestrator, hub *synchub.Hub) *Handler {
	return &Handler{Repo: repo, Importer: importer, Orc: orc, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)
	rg.GET("/:id", h.getByID)
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/import", h.importSeries)
	rg.POST("/:id/sync", h.resync)
	rg.DELETE("/:id", h.remove)
}

// RegisterMetadataRoutes exposes raw resolution without persisting
// anything, for search-before-import UIs.
func (h *Handler) RegisterMetadataRoutes(rg *gin.RouterGroup) {
	rg.GET("/resolve", h.resolve)
	rg.GET("/backends", h.backends)
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Q:      c.Query("q"),
		Status: c.Query("status"),
		Limit:  parseInt(c.Query("limit"), 20),
		Offset: parseInt(c.Query("offset"), 0),
	}

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	s, err := h.Repo.GetByID(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	volumes, err := h.Repo.ListVolumes(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "volumes failed"})
		return
	}
	chapters, err := h.Repo.ListChapters(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "chapters failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"series":   s,
		"volumes":  volumes,
		"chapters": chapters,
	})
}

type importReq struct {
	Query string `json:"query"`
	Mode  string `json:"mode"` // "fallback" (default) or "race"
}

func (h *Handler) importSeries(c *gin.Context) {
	var req importReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query required"})
		return
	}
	if req.Mode == "" {
		req.Mode = "fallback"
	}
	if req.Mode != "fallback" && req.Mode != "race" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be fallback or race"})
		return
	}

	s, err := h.Importer.Import(c.Request.Context(), req.Query, req.Mode)
	if err != nil {
		if errors.Is(err, orchestrator.ErrNoResult) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no metadata found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}

	h.broadcast(synchub.EventSeriesImported, s.ID, s.Title)
	c.JSON(http.StatusCreated, s)
}

func (h *Handler) resync(c *gin.Context) {
	id := c.Param("id")

	s, err := h.Importer.Resync(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, orchestrator.ErrNoResult) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no metadata found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.broadcast(synchub.EventCalendarRefreshed, s.ID, s.Title)
	c.JSON(http.StatusOK, s)
}

func (h *Handler) remove(c *gin.Context) {
	id := c.Param("id")

	if err := h.Repo.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.broadcast(synchub.EventSeriesDeleted, id, "")
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) resolve(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q required"})
		return
	}

	mode := c.DefaultQuery("mode", "fallback")
	var (
		res any
		err error
	)
	switch mode {
	case "race":
		res, err = h.Orc.ResolveBestOf(c.Request.Context(), query)
	case "fallback":
		res, err = h.Orc.ResolveWithFallback(c.Request.Context(), query)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be fallback or race"})
		return
	}

	if err != nil {
		if errors.Is(err, orchestrator.ErrNoResult) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no metadata found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolve failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) backends(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"backends": h.Orc.Backends()})
}

func (h *Handler) broadcast(eventType, seriesID, title string) {
	if h.Hub == nil {
		return
	}
	h.Hub.BroadcastJSON(synchub.CalendarEvent{
		Type:     eventType,
		SeriesID: seriesID,
		Title:    title,
		At:       time.Now().UTC(),
	})
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
