package calendar

import (
	"context"
	"database/sql"
	"fmt"

	"mangacal/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// ListEvents is a pure read over the materialized table, ordered by date.
// It never triggers synthesis or network calls.
func (r *Repo) ListEvents(ctx context.Context, start, end, seriesID string) ([]models.CalendarEvent, error) {
	query := `
		SELECT id, series_id, volume_id, chapter_id, title, event_type, event_date
		FROM calendar_events
		WHERE event_date >= ? AND event_date <= ?
	`
	args := []any{start, end}
	if seriesID != "" {
		query += " AND series_id = ?"
		args = append(args, seriesID)
	}
	query += " ORDER BY event_date ASC, title ASC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]models.CalendarEvent, 0, 16)
	for rows.Next() {
		var (
			e         models.CalendarEvent
			volumeID  sql.NullString
			chapterID sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.SeriesID, &volumeID, &chapterID, &e.Title, &e.EventType, &e.EventDate); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.VolumeID = volumeID.String
		e.ChapterID = chapterID.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
