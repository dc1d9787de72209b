package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mangacal/pkg/models"
	"mangacal/pkg/utils"
)

const jikanBase = "https://api.jikan.moe/v4"

// Jikan is the unofficial MyAnimeList REST API.
type Jikan struct {
	BaseURL string
	Client  *http.Client
}

func NewJikan() *Jikan {
	return &Jikan{
		BaseURL: jikanBase,
		Client:  &http.Client{Timeout: 12 * time.Second},
	}
}

func (j *Jikan) Name() string { return "jikan" }

func (j *Jikan) IsAvailable(ctx context.Context) bool {
	return !utils.EnvDisabled("JIKAN")
}

func (j *Jikan) HasReliableFutureBoundary() bool { return true }

type jikanManga struct {
	MalID     int    `json:"mal_id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Chapters  int    `json:"chapters"`
	Volumes   int    `json:"volumes"`
	Published struct {
		From string `json:"from"` // RFC3339 or empty
		To   string `json:"to"`
	} `json:"published"`
	Genres []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

func (j *Jikan) Search(ctx context.Context, query string) ([]SearchResult, error) {
	u, _ := url.Parse(j.BaseURL + "/manga")
	q := u.Query()
	q.Set("q", query)
	q.Set("limit", "5")
	u.RawQuery = q.Encode()

	var out struct {
		Data []jikanManga `json:"data"`
	}
	if err := j.get(ctx, u.String(), &out); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(out.Data))
	for _, m := range out.Data {
		if m.MalID == 0 || m.Title == "" {
			continue
		}
		results = append(results, SearchResult{
			ID:    strconv.Itoa(m.MalID),
			Title: m.Title,
			Score: titleScore(query, m.Title),
		})
	}
	return results, nil
}

func (j *Jikan) GetDetails(ctx context.Context, id string) (*models.ExtractionResult, error) {
	var out struct {
		Data jikanManga `json:"data"`
	}
	if err := j.get(ctx, j.BaseURL+"/manga/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}

	m := out.Data
	if m.MalID == 0 {
		return nil, fmt.Errorf("jikan: manga %s not found", id)
	}

	genres := make([]string, 0, len(m.Genres))
	for _, g := range m.Genres {
		if g.Name != "" {
			genres = append(genres, g.Name)
		}
	}

	confidence := 0.6
	if m.Chapters > 0 {
		confidence = 0.8
	}

	return &models.ExtractionResult{
		Title:      m.Title,
		SourceID:   strconv.Itoa(m.MalID),
		Genres:     genres,
		Status:     normalizeStatus(m.Status),
		Volumes:    m.Volumes,
		Chapters:   m.Chapters,
		StartDate:  isoFromRFC3339(m.Published.From),
		EndDate:    isoFromRFC3339(m.Published.To),
		Confidence: confidence,
		Source:     j.Name(),
	}, nil
}

// GetChapterList returns nothing: MAL tracks totals, not per-chapter dates.
func (j *Jikan) GetChapterList(ctx context.Context, id string) ([]ChapterInfo, error) {
	return nil, nil
}

func (j *Jikan) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("jikan: build request: %w", err)
	}

	resp, err := j.Client.Do(req)
	if err != nil {
		return fmt.Errorf("jikan: request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jikan: status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("jikan: decode: %w", err)
	}
	return nil
}

// isoFromRFC3339 trims an RFC3339 timestamp down to YYYY-MM-DD.
func isoFromRFC3339(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}
