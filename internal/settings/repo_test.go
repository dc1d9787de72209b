package settings

import (
	"context"
	"database/sql"
	"testing"

	"mangacal/pkg/database"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// a single connection keeps every query on the same in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := database.MigrateFrom(db, "../../docs/schema.sql"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestGetMissingKey(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	_, ok, err := repo.Get(ctx, "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("missing key reported as present")
	}
}

func TestSetOverwritesAndGetRoundTrips(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	if err := repo.Set(ctx, KeyCalendarRangeDays, "60"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.Set(ctx, KeyCalendarRangeDays, "90"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	v, ok, err := repo.Get(ctx, KeyCalendarRangeDays)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if v != "90" {
		t.Fatalf("value = %q, want 90", v)
	}
}

func TestGetIntFallsBackToDefault(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	n, err := repo.GetInt(ctx, KeyCalendarRangeDays, DefaultCalendarRangeDays)
	if err != nil {
		t.Fatalf("getint: %v", err)
	}
	if n != DefaultCalendarRangeDays {
		t.Fatalf("missing key: got %d, want default %d", n, DefaultCalendarRangeDays)
	}

	if err := repo.Set(ctx, KeyCalendarRangeDays, "not-a-number"); err != nil {
		t.Fatalf("set: %v", err)
	}
	n, err = repo.GetInt(ctx, KeyCalendarRangeDays, DefaultCalendarRangeDays)
	if err != nil {
		t.Fatalf("getint: %v", err)
	}
	if n != DefaultCalendarRangeDays {
		t.Fatalf("garbage value: got %d, want default %d", n, DefaultCalendarRangeDays)
	}

	if err := repo.Set(ctx, KeyCalendarRangeDays, "120"); err != nil {
		t.Fatalf("set: %v", err)
	}
	n, err = repo.GetInt(ctx, KeyCalendarRangeDays, DefaultCalendarRangeDays)
	if err != nil {
		t.Fatalf("getint: %v", err)
	}
	if n != 120 {
		t.Fatalf("got %d, want 120", n)
	}
}
