package sync

import "time"

const (
	EventCalendarRefreshed = "calendar.refreshed"
	EventSeriesImported    = "series.imported"
	EventSeriesDeleted     = "series.deleted"
)

// CalendarEvent is the wire payload pushed to sync clients after a
// calendar rebuild or a collection change.
type CalendarEvent struct {
	Type     string    `json:"type"`
	SeriesID string    `json:"series_id,omitempty"` // empty = whole catalog
	Title    string    `json:"title,omitempty"`
	Events   int       `json:"events,omitempty"`
	At       time.Time `json:"at"`
}
