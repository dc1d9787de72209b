package series

import (
	"context"
	"testing"
	"time"

	"mangacal/internal/calendar"
	"mangacal/internal/orchestrator"
	"mangacal/internal/providers"
	"mangacal/internal/settings"
	"mangacal/pkg/models"
)

// fakeCatalog is a scriptable provider backing the import pipeline tests.
type fakeCatalog struct {
	status string
	noFeed bool
}

func (f *fakeCatalog) Name() string                     { return "fakecatalog" }
func (f *fakeCatalog) IsAvailable(context.Context) bool { return true }
func (f *fakeCatalog) HasReliableFutureBoundary() bool  { return true }

func (f *fakeCatalog) Search(_ context.Context, query string) ([]providers.SearchResult, error) {
	return []providers.SearchResult{{ID: "77", Title: "Test Saga", Score: 1.0}}, nil
}

func (f *fakeCatalog) GetDetails(_ context.Context, id string) (*models.ExtractionResult, error) {
	return &models.ExtractionResult{
		Title:      "Test Saga",
		SourceID:   id,
		Genres:     []string{"mystery"},
		Status:     f.status,
		Chapters:   12,
		StartDate:  "2025-01-01",
		Confidence: 0.8,
		Source:     f.Name(),
	}, nil
}

func (f *fakeCatalog) GetChapterList(context.Context, string) ([]providers.ChapterInfo, error) {
	if f.noFeed {
		return nil, nil
	}
	return []providers.ChapterInfo{
		{Number: "1", Title: "First", ReleaseDate: "2025-01-10"},
		{Number: "10.5", Title: "Extra", ReleaseDate: "2025-12-01"},
	}, nil
}

// importTestNow is a Monday, matching the default cadence anchor.
var importTestNow = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func newTestImporter(t *testing.T) (*Importer, *fakeCatalog) {
	t.Helper()
	db := openTestDB(t)

	fake := &fakeCatalog{status: models.StatusOngoing}
	orc := orchestrator.New(context.Background(), fake)
	mat := calendar.NewMaterializer(db, settings.NewRepo(db), orc.HasReliableFutureBoundary)
	mat.Now = func() time.Time { return importTestNow }

	imp := NewImporter(NewRepo(db), orc, mat)
	imp.Now = mat.Now
	return imp, fake
}

func chaptersByNumber(t *testing.T, imp *Importer, seriesID string) map[string]models.Chapter {
	t.Helper()
	chapters, err := imp.Repo.ListChapters(context.Background(), seriesID)
	if err != nil {
		t.Fatalf("list chapters: %v", err)
	}
	out := make(map[string]models.Chapter, len(chapters))
	for _, c := range chapters {
		out[c.ChapterNumber] = c
	}
	return out
}

func TestImportMergesNativeChapterDates(t *testing.T) {
	imp, _ := newTestImporter(t)
	ctx := context.Background()

	s, err := imp.Import(ctx, "Test Saga", "fallback")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if s.MetadataSource != "fakecatalog" || s.MetadataID != "77" {
		t.Fatalf("metadata source = %s/%s", s.MetadataSource, s.MetadataID)
	}
	if s.StartDate != "2025-01-01" {
		t.Fatalf("start date = %s", s.StartDate)
	}

	byNumber := chaptersByNumber(t, imp, s.ID)
	// 12 synthesized plus the fractional provider-only chapter
	if len(byNumber) != 13 {
		t.Fatalf("chapters = %d, want 13", len(byNumber))
	}

	ch1 := byNumber["1"]
	if ch1.ReleaseDate != "2025-01-10" || !ch1.Confirmed || ch1.Status != itemStatusReleased {
		t.Fatalf("provider date must beat the synthesized one: %+v", ch1)
	}
	if ch1.Title != "First" {
		t.Fatalf("provider title lost: %+v", ch1)
	}

	half := byNumber["10.5"]
	if half.ReleaseDate != "2025-12-01" || !half.Confirmed {
		t.Fatalf("fractional provider chapter missing or unconfirmed: %+v", half)
	}

	last := byNumber["12"]
	if last.Confirmed || last.Status != itemStatusProjected {
		t.Fatalf("tail chapter should be a projection: %+v", last)
	}
	if last.ReleaseDate <= importTestNow.Format("2006-01-02") {
		t.Fatalf("projection not in the future: %+v", last)
	}

	// a chapter the provider never dated stays unconfirmed even when its
	// synthesized date is in the past
	mid := byNumber["5"]
	if mid.Confirmed {
		t.Fatalf("synthesized past chapter persisted as provider-firm: %+v", mid)
	}
	if mid.Status != itemStatusReleased {
		t.Fatalf("past chapter status = %s, want %s", mid.Status, itemStatusReleased)
	}
}

func TestImportMaterializesWindowedEvents(t *testing.T) {
	imp, _ := newTestImporter(t)
	ctx := context.Background()

	s, err := imp.Import(ctx, "Test Saga", "race")
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	start := importTestNow.Format("2006-01-02")
	end := importTestNow.AddDate(0, 0, 30).Format("2006-01-02")
	events, err := calendar.NewRepo(imp.Repo.DB).ListEvents(ctx, start, end, s.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}

	// chapters 10 and 11 project onto the next two Mondays, chapter 12 and
	// everything past fall outside the window; volume 1 projects inside it
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3: %+v", len(events), events)
	}
	for _, e := range events {
		if e.EventDate < start || e.EventDate > end {
			t.Fatalf("event outside window: %+v", e)
		}
	}
}

func TestResyncKeepsProviderFirmedDates(t *testing.T) {
	imp, fake := newTestImporter(t)
	ctx := context.Background()

	s, err := imp.Import(ctx, "Test Saga", "fallback")
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	// the provider's feed disappears and its status moves
	fake.status = models.StatusHiatus
	fake.noFeed = true

	resynced, err := imp.Resync(ctx, s.ID)
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if resynced.Status != models.StatusHiatus {
		t.Fatalf("status not refreshed: %s", resynced.Status)
	}

	byNumber := chaptersByNumber(t, imp, s.ID)
	ch1 := byNumber["1"]
	if ch1.ReleaseDate != "2025-01-10" || !ch1.Confirmed {
		t.Fatalf("resync regressed a provider-firmed date: %+v", ch1)
	}
	if _, ok := byNumber["10.5"]; !ok {
		t.Fatalf("fractional chapter lost on resync")
	}
}

func TestResyncMissingSeries(t *testing.T) {
	imp, _ := newTestImporter(t)

	s, err := imp.Resync(context.Background(), "nope")
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if s != nil {
		t.Fatalf("missing series should resync to nil, got %+v", s)
	}
}
