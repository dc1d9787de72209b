package models

// ExtractionResult is what one metadata backend produced for a query.
// It lives only for the duration of a resolution; the orchestrator ranks
// competing results by Confidence and the winner is mapped onto a Series.
type ExtractionResult struct {
	Title           string   `json:"title"`
	SourceID        string   `json:"source_id"` // backend-native id
	Genres          []string `json:"genres,omitempty"`
	Status          string   `json:"status"`
	Volumes         int      `json:"volumes"`  // 0 = unknown
	Chapters        int      `json:"chapters"` // 0 = unknown
	StartDate       string   `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate         string   `json:"end_date,omitempty"`
	NextReleaseDate string   `json:"next_release_date,omitempty"`
	Confidence      float64  `json:"confidence"` // 0.0..1.0
	Source          string   `json:"source"`     // backend name
}
