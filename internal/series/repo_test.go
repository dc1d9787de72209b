package series

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"mangacal/pkg/database"
	"mangacal/pkg/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := database.MigrateFrom(db, "../../docs/schema.sql"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedSeries(t *testing.T, repo *Repo, id, title string) {
	t.Helper()
	err := repo.Upsert(context.Background(), models.Series{
		ID:             id,
		Title:          title,
		Genres:         []string{"action"},
		Status:         models.StatusOngoing,
		MetadataSource: "anilist",
		MetadataID:     "42",
		StartDate:      "2020-01-01",
	})
	if err != nil {
		t.Fatalf("seed %s: %v", title, err)
	}
}

func TestUpsertRoundTrip(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	seedSeries(t, repo, "s1", "Test Manga")

	got, err := repo.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatalf("series not found after upsert")
	}
	if got.Title != "Test Manga" || got.MetadataSource != "anilist" || got.StartDate != "2020-01-01" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.Genres) != 1 || got.Genres[0] != "action" {
		t.Fatalf("genres = %v, want [action]", got.Genres)
	}

	// second upsert with the same id updates in place
	seedSeries(t, repo, "s1", "Renamed Manga")
	got, err = repo.GetByID(ctx, "s1")
	if err != nil || got == nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Title != "Renamed Manga" {
		t.Fatalf("title = %q, want Renamed Manga", got.Title)
	}

	n, err := repo.Count(ctx, ListQuery{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("count = %d, want 1 after double upsert", n)
	}
}

func TestGetByIDMissing(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	got, err := repo.GetByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("missing series should return nil, got %+v", got)
	}
}

func TestListFilters(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	seedSeries(t, repo, "s1", "Alpha Adventure")
	seedSeries(t, repo, "s2", "Beta Battle")

	out, err := repo.List(ctx, ListQuery{Q: "beta"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 1 || out[0].ID != "s2" {
		t.Fatalf("keyword filter: got %+v, want just s2", out)
	}

	out, err = repo.List(ctx, ListQuery{Status: "ongoing"})
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("status filter: got %d, want 2", len(out))
	}
	if out[0].Title != "Alpha Adventure" {
		t.Fatalf("list must be title-ordered, first = %q", out[0].Title)
	}
}

func TestDeleteCascades(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	seedSeries(t, repo, "s1", "Doomed")
	err := repo.UpsertChapters(ctx, []models.Chapter{
		{ID: "c1", SeriesID: "s1", ChapterNumber: "1", ReleaseDate: "2024-01-01", Confirmed: true},
	})
	if err != nil {
		t.Fatalf("upsert chapters: %v", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO calendar_events (id, series_id, chapter_id, title, event_type, event_date)
		VALUES ('e1', 's1', 'c1', 'Doomed Ch. 1', ?, '2024-01-01')
	`, models.EventChapterRelease)
	if err != nil {
		t.Fatalf("insert event: %v", err)
	}

	if err := repo.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	for _, table := range []string{"chapters", "calendar_events"} {
		var n int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 0 {
			t.Fatalf("%s not cascaded, %d rows remain", table, n)
		}
	}

	if err := repo.Delete(ctx, "s1"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("second delete err = %v, want sql.ErrNoRows", err)
	}
}

func TestUpsertChaptersKeepsFirmerDates(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	seedSeries(t, repo, "s1", "Firm")

	// provider-confirmed date lands first
	err := repo.UpsertChapters(ctx, []models.Chapter{
		{ID: "c1", SeriesID: "s1", ChapterNumber: "1", ReleaseDate: "2024-01-05", Confirmed: true},
	})
	if err != nil {
		t.Fatalf("confirmed upsert: %v", err)
	}

	// a later synthesis run projects a different date; it must lose
	err = repo.UpsertChapters(ctx, []models.Chapter{
		{ID: "c1-again", SeriesID: "s1", ChapterNumber: "1", ReleaseDate: "2024-02-01", Confirmed: false},
	})
	if err != nil {
		t.Fatalf("projected upsert: %v", err)
	}

	chapters, err := repo.ListChapters(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(chapters) != 1 {
		t.Fatalf("chapters = %d, want 1", len(chapters))
	}
	if chapters[0].ReleaseDate != "2024-01-05" || !chapters[0].Confirmed {
		t.Fatalf("projected row overwrote confirmed date: %+v", chapters[0])
	}

	// a newer confirmed date always wins
	err = repo.UpsertChapters(ctx, []models.Chapter{
		{ID: "c1-fix", SeriesID: "s1", ChapterNumber: "1", ReleaseDate: "2024-01-06", Confirmed: true},
	})
	if err != nil {
		t.Fatalf("correction upsert: %v", err)
	}
	chapters, err = repo.ListChapters(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if chapters[0].ReleaseDate != "2024-01-06" {
		t.Fatalf("confirmed correction lost: %+v", chapters[0])
	}
}

func TestListVolumesOrdersNumerically(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	seedSeries(t, repo, "s1", "Ordered")
	err := repo.UpsertVolumes(ctx, []models.Volume{
		{ID: "v10", SeriesID: "s1", VolumeNumber: "10", ReleaseDate: "2024-03-01"},
		{ID: "v2", SeriesID: "s1", VolumeNumber: "2", ReleaseDate: "2023-01-01"},
		{ID: "v25", SeriesID: "s1", VolumeNumber: "2.5", ReleaseDate: "2023-02-01"},
	})
	if err != nil {
		t.Fatalf("upsert volumes: %v", err)
	}

	volumes, err := repo.ListVolumes(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"2", "2.5", "10"}
	if len(volumes) != len(want) {
		t.Fatalf("volumes = %d, want %d", len(volumes), len(want))
	}
	for i, w := range want {
		if volumes[i].VolumeNumber != w {
			t.Fatalf("order[%d] = %s, want %s (numeric, not lexical)", i, volumes[i].VolumeNumber, w)
		}
	}
}
