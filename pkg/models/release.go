package models

// Volume is one released (or projected) volume of a series.
type Volume struct {
	ID           string `json:"id"`
	SeriesID     string `json:"series_id"`
	VolumeNumber string `json:"volume_number"` // string: "10.5" is legal
	Title        string `json:"title"`
	ReleaseDate  string `json:"release_date,omitempty"` // YYYY-MM-DD, "" = unknown
	Status       string `json:"status,omitempty"`
	Confirmed    bool   `json:"confirmed"` // true = release date came from a provider
}

// Chapter is one released (or projected) chapter of a series.
type Chapter struct {
	ID            string `json:"id"`
	SeriesID      string `json:"series_id"`
	ChapterNumber string `json:"chapter_number"`
	Title         string `json:"title"`
	ReleaseDate   string `json:"release_date,omitempty"`
	Status        string `json:"status,omitempty"`
	Confirmed     bool   `json:"confirmed"`
}
