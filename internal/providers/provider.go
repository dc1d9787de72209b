package providers

import (
	"context"
	"strings"
	"unicode"

	"mangacal/pkg/models"
)

// Provider is implemented by each external metadata catalog (API / GraphQL /
// local mirror). The engine only sees this capability surface; how a
// provider talks to its backend is its own business.
type Provider interface {
	Name() string

	// IsAvailable is checked at registration time and again whenever the
	// orchestrator is reconfigured. An unavailable provider is simply not
	// registered; it is not an error at call time.
	IsAvailable(ctx context.Context) bool

	// HasReliableFutureBoundary reports whether the provider's dated data
	// has a real "upcoming" cutoff. Providers that only ever return
	// synthesized full-series timelines answer false, and the calendar
	// keeps their entire dated set regardless of the active window.
	HasReliableFutureBoundary() bool

	Search(ctx context.Context, query string) ([]SearchResult, error)
	GetDetails(ctx context.Context, id string) (*models.ExtractionResult, error)
	GetChapterList(ctx context.Context, id string) ([]ChapterInfo, error)
}

// SearchResult is one hit from a provider search.
type SearchResult struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Year  int     `json:"year,omitempty"`
	Score float64 `json:"score"` // title similarity vs the query, 0.0..1.0
}

// ChapterInfo is one entry of a provider's native chapter list.
type ChapterInfo struct {
	Number      string `json:"number"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date,omitempty"` // YYYY-MM-DD, "" = unknown
}

// titleScore rates how well a result title matches the query.
// Coarse on purpose: it only has to rank a handful of search hits.
func titleScore(query, title string) float64 {
	q := normalizeTitle(query)
	t := normalizeTitle(title)
	switch {
	case q == "" || t == "":
		return 0
	case q == t:
		return 1.0
	case strings.HasPrefix(t, q) || strings.HasPrefix(q, t):
		return 0.8
	case strings.Contains(t, q) || strings.Contains(q, t):
		return 0.6
	default:
		return 0.3
	}
}

// normalizeTitle converts a title to a canonical form: lowercase, strip
// non-letter/digit runs down to single spaces.
func normalizeTitle(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))

	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// normalizeStatus maps provider-native status strings onto the model set.
func normalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ongoing", "releasing", "publishing", "currently publishing", "running":
		return models.StatusOngoing
	case "completed", "finished", "end", "complete":
		return models.StatusCompleted
	case "hiatus", "on hiatus":
		return models.StatusHiatus
	case "cancelled", "canceled", "discontinued":
		return models.StatusCancelled
	case "not_yet_released", "not yet released", "not yet published", "upcoming", "announced":
		return models.StatusAnnounced
	default:
		return models.StatusOngoing
	}
}
