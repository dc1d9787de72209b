package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"mangacal/pkg/models"
	"mangacal/pkg/utils"
)

const anilistEndpoint = "https://graphql.anilist.co"

// AniList queries the AniList GraphQL API. AniList rarely carries
// per-chapter dates, so everything it feeds the engine ends up synthesized;
// its dated sets therefore have no reliable future boundary and the
// calendar always includes them in full.
type AniList struct {
	Endpoint string
	Client   *http.Client
}

func NewAniList() *AniList {
	return &AniList{
		Endpoint: anilistEndpoint,
		Client:   &http.Client{Timeout: 12 * time.Second},
	}
}

func (a *AniList) Name() string { return "anilist" }

func (a *AniList) IsAvailable(ctx context.Context) bool {
	return !utils.EnvDisabled("ANILIST")
}

func (a *AniList) HasReliableFutureBoundary() bool { return false }

type anilistDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

func (d anilistDate) iso() string {
	if d.Year == 0 {
		return ""
	}
	month, day := d.Month, d.Day
	if month == 0 {
		month = 1
	}
	if day == 0 {
		day = 1
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, month, day)
}

type anilistMedia struct {
	ID    int `json:"id"`
	Title struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
	} `json:"title"`
	Status    string      `json:"status"`
	Chapters  int         `json:"chapters"`
	Volumes   int         `json:"volumes"`
	Genres    []string    `json:"genres"`
	StartDate anilistDate `json:"startDate"`
	EndDate   anilistDate `json:"endDate"`
}

func (m anilistMedia) bestTitle() string {
	if m.Title.English != "" {
		return m.Title.English
	}
	return m.Title.Romaji
}

func (a *AniList) Search(ctx context.Context, query string) ([]SearchResult, error) {
	const q = `query ($search: String) {
		Page(page: 1, perPage: 5) {
			media(search: $search, type: MANGA) {
				id
				title { romaji english }
				startDate { year month day }
			}
		}
	}`

	var out struct {
		Data struct {
			Page struct {
				Media []anilistMedia `json:"media"`
			} `json:"Page"`
		} `json:"data"`
	}
	if err := a.post(ctx, q, map[string]any{"search": query}, &out); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(out.Data.Page.Media))
	for _, m := range out.Data.Page.Media {
		title := m.bestTitle()
		if title == "" {
			continue
		}
		results = append(results, SearchResult{
			ID:    strconv.Itoa(m.ID),
			Title: title,
			Year:  m.StartDate.Year,
			Score: titleScore(query, title),
		})
	}
	return results, nil
}

func (a *AniList) GetDetails(ctx context.Context, id string) (*models.ExtractionResult, error) {
	mediaID, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("anilist: bad id %q: %w", id, err)
	}

	const q = `query ($id: Int) {
		Media(id: $id, type: MANGA) {
			id
			title { romaji english }
			status
			chapters
			volumes
			genres
			startDate { year month day }
			endDate { year month day }
		}
	}`

	var out struct {
		Data struct {
			Media anilistMedia `json:"Media"`
		} `json:"data"`
	}
	if err := a.post(ctx, q, map[string]any{"id": mediaID}, &out); err != nil {
		return nil, err
	}

	m := out.Data.Media
	if m.ID == 0 {
		return nil, fmt.Errorf("anilist: media %s not found", id)
	}

	// Counts are the strongest signal AniList gives; dates come from the
	// synthesizer anyway.
	confidence := 0.7
	if m.Chapters > 0 {
		confidence = 0.9
	}

	return &models.ExtractionResult{
		Title:      m.bestTitle(),
		SourceID:   strconv.Itoa(m.ID),
		Genres:     m.Genres,
		Status:     normalizeStatus(m.Status),
		Volumes:    m.Volumes,
		Chapters:   m.Chapters,
		StartDate:  m.StartDate.iso(),
		EndDate:    m.EndDate.iso(),
		Confidence: confidence,
		Source:     a.Name(),
	}, nil
}

// GetChapterList returns nothing: AniList exposes no per-chapter dates, so
// the timeline synthesizer owns this series' dates end to end.
func (a *AniList) GetChapterList(ctx context.Context, id string) ([]ChapterInfo, error) {
	return nil, nil
}

func (a *AniList) post(ctx context.Context, query string, vars map[string]any, out any) error {
	payload, err := json.Marshal(map[string]any{"query": query, "variables": vars})
	if err != nil {
		return fmt.Errorf("anilist: marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("anilist: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.Client.Do(req)
	if err != nil {
		return fmt.Errorf("anilist: request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("anilist: status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("anilist: decode: %w", err)
	}
	return nil
}
