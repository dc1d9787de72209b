package models

// Series publication statuses. Provider-native values are normalized into
// this set before anything is persisted.
const (
	StatusAnnounced = "ANNOUNCED"
	StatusOngoing   = "ONGOING"
	StatusCompleted = "COMPLETED"
	StatusHiatus    = "HIATUS"
	StatusCancelled = "CANCELLED"
)

// Series is the tracked collection entry. It exclusively owns its volumes,
// chapters and calendar events (cascade delete in the schema).
type Series struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Genres         []string `json:"genres"`
	Status         string   `json:"status"`
	MetadataSource string   `json:"metadata_source,omitempty"` // provider name that supplied the metadata
	MetadataID     string   `json:"metadata_id,omitempty"`     // source-native id
	StartDate      string   `json:"start_date,omitempty"`      // YYYY-MM-DD, "" = unknown
	EndDate        string   `json:"end_date,omitempty"`
}

// IsOngoing reports whether a (possibly provider-native) status string means
// the series is still publishing.
func IsOngoing(status string) bool {
	switch status {
	case StatusOngoing, "ongoing", "releasing", "publishing", "RELEASING":
		return true
	}
	return false
}
