package calendar

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"mangacal/internal/settings"
	"mangacal/pkg/models"
)

// lookBackDays is the listing default when a caller gives no start date.
const lookBackDays = 7

// Materializer projects persisted dated volumes/chapters into the
// calendar_events cache under the configured look-ahead window. Safe to run
// repeatedly: inserts are keyed on (series, item, date) and skipped when an
// identical event already exists.
type Materializer struct {
	DB       *sql.DB
	Settings *settings.Repo

	// HasReliableFutureBoundary reports whether a metadata source has a
	// real "upcoming" cutoff. Sources without one (their timelines are
	// synthesized end to end) are materialized in full, window or not.
	// nil treats every source as reliable.
	HasReliableFutureBoundary func(source string) bool

	// Now is test-overridable; defaults to time.Now.
	Now func() time.Time
}

func NewMaterializer(db *sql.DB, settingsRepo *settings.Repo, boundary func(string) bool) *Materializer {
	return &Materializer{
		DB:                        db,
		Settings:                  settingsRepo,
		HasReliableFutureBoundary: boundary,
	}
}

type seriesRef struct {
	ID     string
	Title  string
	Source string
}

// Rebuild reconciles calendar events for one series, or for the whole
// catalog when seriesID is empty. Single-series mode rebuilds that series
// from scratch so a resync can never leave stale events behind; a failing
// series in a catalog run is logged and skipped, never aborting the rest.
// Old events outside the window are left alone: history stays queryable.
func (m *Materializer) Rebuild(ctx context.Context, seriesID string) error {
	rangeDays, err := m.Settings.GetInt(ctx, settings.KeyCalendarRangeDays, settings.DefaultCalendarRangeDays)
	if err != nil {
		return fmt.Errorf("read calendar range: %w", err)
	}

	today := m.now().Format("2006-01-02")
	windowEnd := m.now().AddDate(0, 0, rangeDays).Format("2006-01-02")

	refs, err := m.loadSeries(ctx, seriesID)
	if err != nil {
		return err
	}

	single := seriesID != ""
	for _, ref := range refs {
		if err := m.rebuildSeries(ctx, ref, today, windowEnd, single); err != nil {
			if single {
				return err
			}
			log.Printf("[calendar] series %s rebuild failed: %v", ref.ID, err)
		}
	}
	return nil
}

// DefaultWindow returns the listing range used when the caller supplies no
// bounds: a short look-back plus the configured look-ahead.
func (m *Materializer) DefaultWindow(ctx context.Context) (start, end string, err error) {
	rangeDays, err := m.Settings.GetInt(ctx, settings.KeyCalendarRangeDays, settings.DefaultCalendarRangeDays)
	if err != nil {
		return "", "", fmt.Errorf("read calendar range: %w", err)
	}
	now := m.now()
	return now.AddDate(0, 0, -lookBackDays).Format("2006-01-02"),
		now.AddDate(0, 0, rangeDays).Format("2006-01-02"), nil
}

func (m *Materializer) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

func (m *Materializer) loadSeries(ctx context.Context, seriesID string) ([]seriesRef, error) {
	query := `SELECT id, title, COALESCE(metadata_source, '') FROM series`
	var args []any
	if seriesID != "" {
		query += ` WHERE id = ?`
		args = append(args, seriesID)
	}

	rows, err := m.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load series: %w", err)
	}
	defer rows.Close()

	var refs []seriesRef
	for rows.Next() {
		var ref seriesRef
		if err := rows.Scan(&ref.ID, &ref.Title, &ref.Source); err != nil {
			return nil, fmt.Errorf("scan series ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// rebuildSeries runs the delete-then-insert sequence for one series inside
// a single transaction, so a crash mid-run cannot leave the series with a
// half-built event set.
func (m *Materializer) rebuildSeries(ctx context.Context, ref seriesRef, windowStart, windowEnd string, fullRebuild bool) error {
	alwaysInclude := false
	if m.HasReliableFutureBoundary != nil {
		alwaysInclude = !m.HasReliableFutureBoundary(ref.Source)
	}

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if fullRebuild {
		if _, err := tx.ExecContext(ctx, `DELETE FROM calendar_events WHERE series_id = ?`, ref.ID); err != nil {
			return fmt.Errorf("clear events: %w", err)
		}
	}

	if err := m.materializeItems(ctx, tx, ref, "volumes", "volume_number", alwaysInclude, windowStart, windowEnd); err != nil {
		return err
	}
	if err := m.materializeItems(ctx, tx, ref, "chapters", "chapter_number", alwaysInclude, windowStart, windowEnd); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (m *Materializer) materializeItems(ctx context.Context, tx *sql.Tx, ref seriesRef, table, numberCol string, alwaysInclude bool, windowStart, windowEnd string) error {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, %s, release_date FROM %s
		WHERE series_id = ? AND release_date IS NOT NULL AND release_date != ''
	`, numberCol, table), ref.ID)
	if err != nil {
		return fmt.Errorf("load %s: %w", table, err)
	}

	type item struct {
		id     string
		number string
		date   string
	}
	var items []item
	for rows.Next() {
		var it item
		if err := rows.Scan(&it.id, &it.number, &it.date); err != nil {
			rows.Close()
			return fmt.Errorf("scan %s: %w", table, err)
		}
		items = append(items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%s rows: %w", table, err)
	}

	idCol, eventType, label := "volume_id", models.EventVolumeRelease, "Vol."
	if table == "chapters" {
		idCol, eventType, label = "chapter_id", models.EventChapterRelease, "Ch."
	}

	for _, it := range items {
		if !alwaysInclude && (it.date < windowStart || it.date > windowEnd) {
			continue
		}

		var exists int
		err := tx.QueryRowContext(ctx, fmt.Sprintf(`
			SELECT COUNT(*) FROM calendar_events
			WHERE series_id = ? AND %s = ? AND event_date = ?
		`, idCol), ref.ID, it.id, it.date).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check event: %w", err)
		}
		if exists > 0 {
			continue
		}

		title := fmt.Sprintf("%s %s %s", ref.Title, label, it.number)
		_, err = tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO calendar_events (id, series_id, %s, title, event_type, event_date)
			VALUES (?, ?, ?, ?, ?, ?)
		`, idCol), uuid.NewString(), ref.ID, it.id, title, eventType, it.date)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return nil
}
