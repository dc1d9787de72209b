// Command refresh re-resolves every tracked series against the registered
// metadata backends, re-synthesizes timelines and rebuilds the calendar.
// Meant for cron; the API server does the same work on demand.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"mangacal/internal/calendar"
	"mangacal/internal/orchestrator"
	"mangacal/internal/providers"
	"mangacal/internal/series"
	"mangacal/internal/settings"
	"mangacal/pkg/database"
)

func main() {
	var (
		seriesID = flag.String("series", "", "refresh a single series by id")
		query    = flag.String("import", "", "import a new series by search query")
		timeout  = flag.Duration("timeout", 5*time.Minute, "overall run deadline")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	orc := orchestrator.New(ctx,
		providers.NewAniList(),
		providers.NewMangaDex(),
		providers.NewJikan(),
		providers.NewOpenLibrary(),
	)

	settingsRepo := settings.NewRepo(db)
	materializer := calendar.NewMaterializer(db, settingsRepo, orc.HasReliableFutureBoundary)
	repo := series.NewRepo(db)
	importer := series.NewImporter(repo, orc, materializer)

	if *query != "" {
		s, err := importer.Import(ctx, *query, "race")
		if err != nil {
			log.Fatalf("import %q failed: %v", *query, err)
		}
		log.Printf("imported %s (%s) from %s", s.Title, s.ID, s.MetadataSource)
		return
	}

	if *seriesID != "" {
		s, err := importer.Resync(ctx, *seriesID)
		if err != nil {
			log.Fatalf("resync %s failed: %v", *seriesID, err)
		}
		if s == nil {
			log.Fatalf("series %s not found", *seriesID)
		}
		log.Printf("resynced %s (%s)", s.Title, s.ID)
		return
	}

	all, err := repo.List(ctx, series.ListQuery{Limit: 100})
	if err != nil {
		log.Fatalf("list series failed: %v", err)
	}

	refreshed := 0
	for _, s := range all {
		if _, err := importer.Resync(ctx, s.ID); err != nil {
			// one stubborn series should not kill the whole run
			log.Printf("[refresh] %s (%s) failed: %v", s.Title, s.ID, err)
			continue
		}
		refreshed++
	}

	if err := materializer.Rebuild(ctx, ""); err != nil {
		log.Fatalf("calendar rebuild failed: %v", err)
	}

	log.Printf("refreshed %d/%d series, calendar rebuilt", refreshed, len(all))
}
