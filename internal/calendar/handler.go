package calendar

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	synchub "mangacal/internal/sync"
)

// Notifier announces one dated release to subscribed clients. Satisfied by
// the notify UDP server; nil disables announcements.
type Notifier interface {
	BroadcastUpcomingRelease(seriesID, title, date string)
}

type Handler struct {
	Repo     *Repo
	Mat      *Materializer
	Hub      *synchub.Hub
	Notifier Notifier
}

func NewHandler(repo *Repo, mat *Materializer, hub *synchub.Hub, notifier Notifier) *Handler {
	return &Handler{Repo: repo, Mat: mat, Hub: hub, Notifier: notifier}
}

// RegisterRoutes mounts the read endpoints; RegisterProtectedRoutes mounts
// the rebuild trigger behind auth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/events", h.listEvents)
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/rebuild", h.rebuild)
}

func (h *Handler) listEvents(c *gin.Context) {
	start := strings.TrimSpace(c.Query("start"))
	end := strings.TrimSpace(c.Query("end"))
	seriesID := strings.TrimSpace(c.Query("series_id"))

	if start == "" || end == "" {
		defStart, defEnd, err := h.Mat.DefaultWindow(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "window failed"})
			return
		}
		if start == "" {
			start = defStart
		}
		if end == "" {
			end = defEnd
		}
	}

	for _, d := range []string{start, end} {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dates must be YYYY-MM-DD"})
			return
		}
	}

	events, err := h.Repo.ListEvents(c.Request.Context(), start, end, seriesID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"start":  start,
		"end":    end,
		"total":  len(events),
		"events": events,
	})
}

func (h *Handler) rebuild(c *gin.Context) {
	seriesID := strings.TrimSpace(c.Query("series_id"))

	if err := h.Mat.Rebuild(c.Request.Context(), seriesID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rebuild failed"})
		return
	}

	if h.Hub != nil {
		h.Hub.BroadcastJSON(synchub.CalendarEvent{
			Type:     synchub.EventCalendarRefreshed,
			SeriesID: seriesID,
			Events:   h.countWindowEvents(c, seriesID),
			At:       time.Now().UTC(),
		})
	}

	h.announceUpcoming(c, seriesID)

	c.JSON(http.StatusOK, gin.H{"status": "rebuilt", "series_id": seriesID})
}

// countWindowEvents sizes the refreshed event set for the sync broadcast.
// Best effort; a failed read just reports zero.
func (h *Handler) countWindowEvents(c *gin.Context, seriesID string) int {
	start, end, err := h.Mat.DefaultWindow(c.Request.Context())
	if err != nil {
		return 0
	}
	events, err := h.Repo.ListEvents(c.Request.Context(), start, end, seriesID)
	if err != nil {
		return 0
	}
	return len(events)
}

// announceUpcoming fires a UDP ping for every event landing within a week.
func (h *Handler) announceUpcoming(c *gin.Context, seriesID string) {
	if h.Notifier == nil {
		return
	}

	now := time.Now().UTC()
	start := now.Format("2006-01-02")
	end := now.AddDate(0, 0, 7).Format("2006-01-02")

	events, err := h.Repo.ListEvents(c.Request.Context(), start, end, seriesID)
	if err != nil {
		return
	}
	for _, e := range events {
		h.Notifier.BroadcastUpcomingRelease(e.SeriesID, e.Title, e.EventDate)
	}
}
