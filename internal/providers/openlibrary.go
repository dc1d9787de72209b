package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mangacal/pkg/models"
	"mangacal/pkg/utils"
)

const openLibraryBase = "https://openlibrary.org"

// OpenLibrary is a last-resort backend for light novels and other print
// series the manga catalogs miss. It knows titles and publish years, not
// publication cadence, so its confidence stays low.
type OpenLibrary struct {
	BaseURL string
	Client  *http.Client
}

func NewOpenLibrary() *OpenLibrary {
	return &OpenLibrary{
		BaseURL: openLibraryBase,
		Client:  &http.Client{Timeout: 12 * time.Second},
	}
}

func (o *OpenLibrary) Name() string { return "openlibrary" }

func (o *OpenLibrary) IsAvailable(ctx context.Context) bool {
	return !utils.EnvDisabled("OPENLIBRARY")
}

func (o *OpenLibrary) HasReliableFutureBoundary() bool { return true }

type olDoc struct {
	Key              string   `json:"key"` // "/works/OL123W"
	Title            string   `json:"title"`
	FirstPublishYear int      `json:"first_publish_year"`
	Subjects         []string `json:"subject"`
}

func (o *OpenLibrary) Search(ctx context.Context, query string) ([]SearchResult, error) {
	u, _ := url.Parse(o.BaseURL + "/search.json")
	q := u.Query()
	q.Set("q", query)
	q.Set("limit", "5")
	u.RawQuery = q.Encode()

	var out struct {
		Docs []olDoc `json:"docs"`
	}
	if err := o.get(ctx, u.String(), &out); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(out.Docs))
	for _, d := range out.Docs {
		if d.Key == "" || d.Title == "" {
			continue
		}
		results = append(results, SearchResult{
			ID:    strings.TrimPrefix(d.Key, "/works/"),
			Title: d.Title,
			Year:  d.FirstPublishYear,
			Score: titleScore(query, d.Title),
		})
	}
	return results, nil
}

func (o *OpenLibrary) GetDetails(ctx context.Context, id string) (*models.ExtractionResult, error) {
	u, _ := url.Parse(o.BaseURL + "/search.json")
	q := u.Query()
	q.Set("q", "key:/works/"+id)
	q.Set("limit", "1")
	u.RawQuery = q.Encode()

	var out struct {
		Docs []olDoc `json:"docs"`
	}
	if err := o.get(ctx, u.String(), &out); err != nil {
		return nil, err
	}
	if len(out.Docs) == 0 {
		return nil, fmt.Errorf("openlibrary: work %s not found", id)
	}

	d := out.Docs[0]
	genres := d.Subjects
	if len(genres) > 8 {
		genres = genres[:8]
	}

	res := &models.ExtractionResult{
		Title:      d.Title,
		SourceID:   id,
		Genres:     genres,
		Status:     models.StatusOngoing, // Open Library has no run status
		Confidence: 0.4,
		Source:     o.Name(),
	}
	if d.FirstPublishYear > 0 {
		res.StartDate = fmt.Sprintf("%04d-01-01", d.FirstPublishYear)
	}
	return res, nil
}

func (o *OpenLibrary) GetChapterList(ctx context.Context, id string) ([]ChapterInfo, error) {
	return nil, nil
}

func (o *OpenLibrary) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("openlibrary: build request: %w", err)
	}

	resp, err := o.Client.Do(req)
	if err != nil {
		return fmt.Errorf("openlibrary: request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openlibrary: status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("openlibrary: decode: %w", err)
	}
	return nil
}
