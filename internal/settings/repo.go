package settings

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// Key for the calendar look-ahead window, in days.
const KeyCalendarRangeDays = "calendar_range_days"

const DefaultCalendarRangeDays = 30

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Get returns the stored value and whether the key exists.
func (r *Repo) Get(ctx context.Context, key string) (string, bool, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT value FROM settings WHERE key = ?
	`, key)

	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// GetInt returns the setting parsed as an integer, falling back to def when
// the key is absent or unparseable.
func (r *Repo) GetInt(ctx context.Context, key string, def int) (int, error) {
	value, ok, err := r.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return def, nil
	}
	return n, nil
}

func (r *Repo) Set(ctx context.Context, key, value string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
