package series

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"mangacal/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

type ListQuery struct {
	Q      string // keyword search in title
	Status string
	Limit  int
	Offset int
}

func (r *Repo) Upsert(ctx context.Context, s models.Series) error {
	genresJSON, err := json.Marshal(s.Genres)
	if err != nil {
		return fmt.Errorf("marshal genres for %s: %w", s.ID, err)
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO series (id, title, genres, status, metadata_source, metadata_id, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  title = excluded.title,
		  genres = excluded.genres,
		  status = excluded.status,
		  metadata_source = excluded.metadata_source,
		  metadata_id = excluded.metadata_id,
		  start_date = excluded.start_date,
		  end_date = excluded.end_date
	`, s.ID, s.Title, string(genresJSON), s.Status, s.MetadataSource, s.MetadataID, s.StartDate, s.EndDate)
	if err != nil {
		return fmt.Errorf("upsert series %s: %w", s.ID, err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Series, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, title, genres, status, metadata_source, metadata_id, start_date, end_date
		FROM series
		WHERE id = ?
	`, id)

	s, err := scanSeries(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan series: %w", err)
	}
	return s, nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	row := r.DB.QueryRowContext(ctx, sqlStr, args...)
	var total int
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Series, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Series, 0, q.Limit)
	for rows.Next() {
		s, err := scanSeries(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Delete removes a series; volumes, chapters and calendar events cascade.
func (r *Repo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM series WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete series %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete series rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpsertVolumes writes a batch of volumes in one transaction. A projected
// row never overwrites a provider-confirmed date; a confirmed incoming row
// always wins.
func (r *Repo) UpsertVolumes(ctx context.Context, volumes []models.Volume) error {
	return r.upsertBatch(ctx, `
		INSERT INTO volumes (id, series_id, volume_number, title, release_date, status, confirmed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(series_id, volume_number) DO UPDATE SET
		  title = CASE WHEN excluded.title != '' THEN excluded.title ELSE volumes.title END,
		  release_date = CASE WHEN excluded.confirmed = 1 OR volumes.confirmed = 0
		                      THEN excluded.release_date ELSE volumes.release_date END,
		  confirmed = CASE WHEN excluded.confirmed = 1 OR volumes.confirmed = 0
		                   THEN excluded.confirmed ELSE volumes.confirmed END,
		  status = excluded.status
	`, len(volumes), func(stmt *sql.Stmt, i int) error {
		v := volumes[i]
		_, err := stmt.ExecContext(ctx, v.ID, v.SeriesID, v.VolumeNumber, v.Title, v.ReleaseDate, v.Status, boolToInt(v.Confirmed))
		return err
	})
}

// UpsertChapters is the chapter counterpart of UpsertVolumes.
func (r *Repo) UpsertChapters(ctx context.Context, chapters []models.Chapter) error {
	return r.upsertBatch(ctx, `
		INSERT INTO chapters (id, series_id, chapter_number, title, release_date, status, confirmed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(series_id, chapter_number) DO UPDATE SET
		  title = CASE WHEN excluded.title != '' THEN excluded.title ELSE chapters.title END,
		  release_date = CASE WHEN excluded.confirmed = 1 OR chapters.confirmed = 0
		                      THEN excluded.release_date ELSE chapters.release_date END,
		  confirmed = CASE WHEN excluded.confirmed = 1 OR chapters.confirmed = 0
		                   THEN excluded.confirmed ELSE chapters.confirmed END,
		  status = excluded.status
	`, len(chapters), func(stmt *sql.Stmt, i int) error {
		c := chapters[i]
		_, err := stmt.ExecContext(ctx, c.ID, c.SeriesID, c.ChapterNumber, c.Title, c.ReleaseDate, c.Status, boolToInt(c.Confirmed))
		return err
	})
}

func (r *Repo) upsertBatch(ctx context.Context, query string, n int, exec func(*sql.Stmt, int) error) error {
	if n == 0 {
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if err := exec(stmt, i); err != nil {
			return fmt.Errorf("exec upsert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *Repo) ListVolumes(ctx context.Context, seriesID string) ([]models.Volume, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, series_id, volume_number, title, release_date, status, confirmed
		FROM volumes
		WHERE series_id = ?
		ORDER BY CAST(volume_number AS REAL) ASC
	`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("list volumes: %w", err)
	}
	defer rows.Close()

	var out []models.Volume
	for rows.Next() {
		var (
			v         models.Volume
			date      sql.NullString
			confirmed int
		)
		if err := rows.Scan(&v.ID, &v.SeriesID, &v.VolumeNumber, &v.Title, &date, &v.Status, &confirmed); err != nil {
			return nil, fmt.Errorf("scan volume: %w", err)
		}
		v.ReleaseDate = date.String
		v.Confirmed = confirmed == 1
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *Repo) ListChapters(ctx context.Context, seriesID string) ([]models.Chapter, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, series_id, chapter_number, title, release_date, status, confirmed
		FROM chapters
		WHERE series_id = ?
		ORDER BY CAST(chapter_number AS REAL) ASC
	`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var out []models.Chapter
	for rows.Next() {
		var (
			c         models.Chapter
			date      sql.NullString
			confirmed int
		)
		if err := rows.Scan(&c.ID, &c.SeriesID, &c.ChapterNumber, &c.Title, &date, &c.Status, &confirmed); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		c.ReleaseDate = date.String
		c.Confirmed = confirmed == 1
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanSeries(scan func(...any) error) (*models.Series, error) {
	var (
		s          models.Series
		genresJSON string
		source     sql.NullString
		sourceID   sql.NullString
		startDate  sql.NullString
		endDate    sql.NullString
	)
	if err := scan(&s.ID, &s.Title, &genresJSON, &s.Status, &source, &sourceID, &startDate, &endDate); err != nil {
		return nil, err
	}
	s.MetadataSource = source.String
	s.MetadataID = sourceID.String
	s.StartDate = startDate.String
	s.EndDate = endDate.String
	_ = json.Unmarshal([]byte(genresJSON), &s.Genres)
	return &s, nil
}

func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `
		SELECT id, title, genres, status, metadata_source, metadata_id, start_date, end_date
		FROM series
	`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM series`
	}

	var where []string
	var args []any

	if strings.TrimSpace(q.Q) != "" {
		where = append(where, "LOWER(title) LIKE ?")
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(q.Q))+"%")
	}

	if strings.TrimSpace(q.Status) != "" {
		where = append(where, "UPPER(status) = ?")
		args = append(args, strings.ToUpper(strings.TrimSpace(q.Status)))
	}

	sqlStr := baseSelect
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		sqlStr += " ORDER BY title ASC"
		sqlStr += " LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}

	return sqlStr, args
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
