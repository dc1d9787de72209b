package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"mangacal/pkg/models"
	"mangacal/pkg/utils"
)

const mangadexBase = "https://api.mangadex.org"

// MangaDex is the only registered provider with a native per-chapter feed,
// so its chapter dates are real publication timestamps.
type MangaDex struct {
	BaseURL string
	Client  *http.Client
	Limit   int // feed page size
}

func NewMangaDex() *MangaDex {
	return &MangaDex{
		BaseURL: mangadexBase,
		Client:  &http.Client{Timeout: 12 * time.Second},
		Limit:   100,
	}
}

func (m *MangaDex) Name() string { return "mangadex" }

func (m *MangaDex) IsAvailable(ctx context.Context) bool {
	return !utils.EnvDisabled("MANGADEX")
}

func (m *MangaDex) HasReliableFutureBoundary() bool { return true }

type mdManga struct {
	ID         string `json:"id"`
	Attributes struct {
		Title  map[string]string `json:"title"`
		Status string            `json:"status"`
		Year   int               `json:"year"`
		Tags   []struct {
			Attributes struct {
				Name map[string]string `json:"name"`
			} `json:"attributes"`
		} `json:"tags"`
		LastChapter string `json:"lastChapter"`
		LastVolume  string `json:"lastVolume"`
	} `json:"attributes"`
}

func (d mdManga) bestTitle() string {
	if t := pickLang(d.Attributes.Title, "en"); t != "" {
		return t
	}
	for _, v := range d.Attributes.Title {
		return v
	}
	return ""
}

func (m *MangaDex) Search(ctx context.Context, query string) ([]SearchResult, error) {
	u, _ := url.Parse(m.BaseURL + "/manga")
	q := u.Query()
	q.Set("title", query)
	q.Set("limit", "5")
	q.Add("contentRating[]", "safe")
	q.Add("contentRating[]", "suggestive")
	u.RawQuery = q.Encode()

	var out struct {
		Data []mdManga `json:"data"`
	}
	if err := m.get(ctx, u.String(), &out); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(out.Data))
	for _, d := range out.Data {
		title := d.bestTitle()
		if d.ID == "" || title == "" {
			continue
		}
		results = append(results, SearchResult{
			ID:    d.ID,
			Title: title,
			Year:  d.Attributes.Year,
			Score: titleScore(query, title),
		})
	}
	return results, nil
}

func (m *MangaDex) GetDetails(ctx context.Context, id string) (*models.ExtractionResult, error) {
	var out struct {
		Data mdManga `json:"data"`
	}
	if err := m.get(ctx, m.BaseURL+"/manga/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}

	d := out.Data
	if d.ID == "" {
		return nil, fmt.Errorf("mangadex: manga %s not found", id)
	}

	genres := make([]string, 0, len(d.Attributes.Tags))
	for _, t := range d.Attributes.Tags {
		if name := pickLang(t.Attributes.Name, "en"); name != "" {
			genres = append(genres, name)
		}
	}

	// lastChapter/lastVolume are strings like "139" and often empty for
	// ongoing series.
	chapters := parseCountOrZero(d.Attributes.LastChapter)
	volumes := parseCountOrZero(d.Attributes.LastVolume)

	confidence := 0.65
	if chapters > 0 {
		confidence = 0.75
	}

	res := &models.ExtractionResult{
		Title:      d.bestTitle(),
		SourceID:   d.ID,
		Genres:     genres,
		Status:     normalizeStatus(d.Attributes.Status),
		Volumes:    volumes,
		Chapters:   chapters,
		Confidence: confidence,
		Source:     m.Name(),
	}
	if d.Attributes.Year > 0 {
		res.StartDate = fmt.Sprintf("%04d-01-01", d.Attributes.Year)
	}
	return res, nil
}

// GetChapterList pulls the English chapter feed in publication order.
func (m *MangaDex) GetChapterList(ctx context.Context, id string) ([]ChapterInfo, error) {
	u, _ := url.Parse(m.BaseURL + "/manga/" + url.PathEscape(id) + "/feed")
	q := u.Query()
	q.Set("limit", strconv.Itoa(m.Limit))
	q.Add("translatedLanguage[]", "en")
	q.Set("order[chapter]", "asc")
	u.RawQuery = q.Encode()

	var out struct {
		Data []struct {
			Attributes struct {
				Chapter   string `json:"chapter"`
				Title     string `json:"title"`
				PublishAt string `json:"publishAt"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := m.get(ctx, u.String(), &out); err != nil {
		return nil, err
	}

	list := make([]ChapterInfo, 0, len(out.Data))
	for _, c := range out.Data {
		if c.Attributes.Chapter == "" {
			continue
		}
		list = append(list, ChapterInfo{
			Number:      c.Attributes.Chapter,
			Title:       c.Attributes.Title,
			ReleaseDate: isoFromRFC3339(c.Attributes.PublishAt),
		})
	}
	return list, nil
}

func (m *MangaDex) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("mangadex: build request: %w", err)
	}

	resp, err := m.Client.Do(req)
	if err != nil {
		return fmt.Errorf("mangadex: request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mangadex: status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("mangadex: decode: %w", err)
	}
	return nil
}

func pickLang(m map[string]string, lang string) string {
	if m == nil {
		return ""
	}
	return m[lang]
}

// parseCountOrZero reads a whole-number count out of strings like "139" or
// "10.5"; anything unparseable is treated as unknown.
func parseCountOrZero(s string) int {
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return int(f)
	}
	return 0
}
