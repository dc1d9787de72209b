package series

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"mangacal/internal/calendar"
	"mangacal/internal/orchestrator"
	"mangacal/internal/schedule"
	"mangacal/internal/timeline"
	"mangacal/pkg/models"
)

// Item statuses derived from synthesis.
const (
	itemStatusReleased  = "RELEASED"
	itemStatusProjected = "PROJECTED"
)

// Importer turns a metadata query into a fully dated, calendar-visible
// series: resolve, synthesize, persist, materialize.
type Importer struct {
	Repo *Repo
	Orc  *orchestrator.Orchestrator
	Mat  *calendar.Materializer

	// Now is test-overridable; defaults to time.Now.
	Now func() time.Time
}

func NewImporter(repo *Repo, orc *orchestrator.Orchestrator, mat *calendar.Materializer) *Importer {
	return &Importer{Repo: repo, Orc: orc, Mat: mat}
}

// Import resolves query against the registered backends (mode "race" or
// "fallback") and persists the winning result as a new series with a
// synthesized timeline.
func (imp *Importer) Import(ctx context.Context, query, mode string) (*models.Series, error) {
	res, err := imp.resolve(ctx, query, mode)
	if err != nil {
		return nil, err
	}

	s := models.Series{
		ID:             uuid.NewString(),
		Title:          res.Title,
		Genres:         res.Genres,
		Status:         res.Status,
		MetadataSource: res.Source,
		MetadataID:     res.SourceID,
		StartDate:      res.StartDate,
		EndDate:        res.EndDate,
	}
	if err := imp.Repo.Upsert(ctx, s); err != nil {
		return nil, err
	}

	if err := imp.persistTimeline(ctx, s, res); err != nil {
		return nil, err
	}

	if err := imp.Mat.Rebuild(ctx, s.ID); err != nil {
		return nil, fmt.Errorf("materialize calendar: %w", err)
	}
	return &s, nil
}

// Resync re-resolves an existing series in race mode, refreshes its
// metadata and re-synthesizes its timeline. Provider-confirmed dates
// already on disk survive; only projected rows move.
func (imp *Importer) Resync(ctx context.Context, seriesID string) (*models.Series, error) {
	s, err := imp.Repo.GetByID(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}

	res, err := imp.Orc.ResolveBestOf(ctx, s.Title)
	if err != nil {
		return nil, err
	}

	s.Status = res.Status
	s.Genres = res.Genres
	s.MetadataSource = res.Source
	s.MetadataID = res.SourceID
	if res.StartDate != "" {
		s.StartDate = res.StartDate
	}
	if res.EndDate != "" {
		s.EndDate = res.EndDate
	}
	if err := imp.Repo.Upsert(ctx, *s); err != nil {
		return nil, err
	}

	if err := imp.persistTimeline(ctx, *s, res); err != nil {
		return nil, err
	}

	if err := imp.Mat.Rebuild(ctx, s.ID); err != nil {
		return nil, fmt.Errorf("materialize calendar: %w", err)
	}
	return s, nil
}

func (imp *Importer) resolve(ctx context.Context, query, mode string) (*models.ExtractionResult, error) {
	if mode == "race" {
		return imp.Orc.ResolveBestOf(ctx, query)
	}
	return imp.Orc.ResolveWithFallback(ctx, query)
}

// persistTimeline synthesizes dates for the series and writes the
// volume/chapter rows, folding in the provider's native chapter list when
// it has one: a real publication date always beats a synthesized one.
// Only provider dates are persisted as confirmed; synthesized rows stay
// unconfirmed so the next run may move them but never a provider date.
func (imp *Importer) persistTimeline(ctx context.Context, s models.Series, res *models.ExtractionResult) error {
	now := imp.now()

	facts := timeline.Facts{
		Title:        s.Title,
		Status:       s.Status,
		ChapterCount: res.Chapters,
		VolumeCount:  res.Volumes,
		StartDate:    parseDate(s.StartDate),
		EndDate:      parseDate(s.EndDate),
		NextRelease:  parseDate(res.NextReleaseDate),
	}
	hint := schedule.Infer(s.Title, s.Genres, s.Status)
	tl := timeline.Synthesize(facts, hint, now)

	native := imp.nativeChapters(ctx, res)

	volumes := make([]models.Volume, 0, len(tl.Volumes))
	for _, e := range tl.Volumes {
		volumes = append(volumes, models.Volume{
			ID:           uuid.NewString(),
			SeriesID:     s.ID,
			VolumeNumber: strconv.Itoa(e.Number),
			Title:        e.Title,
			ReleaseDate:  e.Date.Format("2006-01-02"),
			Status:       itemStatus(e.Confirmed),
		})
	}

	chapters := make([]models.Chapter, 0, len(tl.Chapters)+len(native))
	seen := make(map[string]struct{}, len(tl.Chapters))
	for _, e := range tl.Chapters {
		number := strconv.Itoa(e.Number)
		row := models.Chapter{
			ID:            uuid.NewString(),
			SeriesID:      s.ID,
			ChapterNumber: number,
			Title:         e.Title,
			ReleaseDate:   e.Date.Format("2006-01-02"),
			Status:        itemStatus(e.Confirmed),
		}
		if info, ok := native[number]; ok && info.ReleaseDate != "" {
			row.ReleaseDate = info.ReleaseDate
			row.Confirmed = true
			row.Status = itemStatusReleased
			if info.Title != "" {
				row.Title = info.Title
			}
		}
		seen[number] = struct{}{}
		chapters = append(chapters, row)
	}

	// Fractional numbers ("10.5") only ever come from a provider list.
	for number, info := range native {
		if _, ok := seen[number]; ok || info.ReleaseDate == "" {
			continue
		}
		chapters = append(chapters, models.Chapter{
			ID:            uuid.NewString(),
			SeriesID:      s.ID,
			ChapterNumber: number,
			Title:         info.Title,
			ReleaseDate:   info.ReleaseDate,
			Status:        itemStatusReleased,
			Confirmed:     true,
		})
	}

	if err := imp.Repo.UpsertVolumes(ctx, volumes); err != nil {
		return err
	}
	return imp.Repo.UpsertChapters(ctx, chapters)
}

// nativeChapters fetches the source provider's chapter list, keyed by
// chapter number. A failing or empty list just means everything stays
// synthesized.
func (imp *Importer) nativeChapters(ctx context.Context, res *models.ExtractionResult) map[string]chapterInfo {
	p := imp.Orc.Provider(res.Source)
	if p == nil {
		return nil
	}

	list, err := p.GetChapterList(ctx, res.SourceID)
	if err != nil {
		log.Printf("[import] chapter list from %s failed: %v", res.Source, err)
		return nil
	}
	if len(list) == 0 {
		return nil
	}

	out := make(map[string]chapterInfo, len(list))
	for _, c := range list {
		out[c.Number] = chapterInfo{Title: c.Title, ReleaseDate: c.ReleaseDate}
	}
	return out
}

type chapterInfo struct {
	Title       string
	ReleaseDate string
}

func (imp *Importer) now() time.Time {
	if imp.Now != nil {
		return imp.Now()
	}
	return time.Now().UTC()
}

func itemStatus(confirmed bool) string {
	if confirmed {
		return itemStatusReleased
	}
	return itemStatusProjected
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
