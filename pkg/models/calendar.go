package models

const (
	EventVolumeRelease  = "VOLUME_RELEASE"
	EventChapterRelease = "CHAPTER_RELEASE"
)

// CalendarEvent is the denormalized projection of a dated volume or chapter.
// It is a cache: at most one event exists per (series, volume, date) and per
// (series, chapter, date), and the whole table can be regenerated from the
// volumes/chapters tables at any time. The back-references carry no
// ownership; deleting an event never touches the source row.
type CalendarEvent struct {
	ID        string `json:"id"`
	SeriesID  string `json:"series_id"`
	VolumeID  string `json:"volume_id,omitempty"`
	ChapterID string `json:"chapter_id,omitempty"`
	Title     string `json:"title"`
	EventType string `json:"event_type"` // VOLUME_RELEASE | CHAPTER_RELEASE
	EventDate string `json:"event_date"` // YYYY-MM-DD
}
