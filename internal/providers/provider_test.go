package providers

import (
	"testing"

	"mangacal/pkg/models"
)

func TestTitleScore(t *testing.T) {
	cases := []struct {
		query, title string
		want         float64
	}{
		{"One Piece", "ONE PIECE", 1.0},
		{"one piece", "One Piece: Episode A", 0.8},
		{"piece", "One Piece", 0.6},
		{"one piece", "Naruto", 0.3},
		{"", "Naruto", 0},
	}
	for _, c := range cases {
		if got := titleScore(c.query, c.title); got != c.want {
			t.Fatalf("titleScore(%q, %q) = %.1f, want %.1f", c.query, c.title, got, c.want)
		}
	}
}

func TestNormalizeTitleStripsPunctuation(t *testing.T) {
	if got := normalizeTitle("  Dr. STONE!! (2017) "); got != "dr stone 2017" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]string{
		"RELEASING":            models.StatusOngoing,
		"Currently Publishing": models.StatusOngoing,
		"FINISHED":             models.StatusCompleted,
		"on hiatus":            models.StatusHiatus,
		"CANCELLED":            models.StatusCancelled,
		"NOT_YET_RELEASED":     models.StatusAnnounced,
		"something weird":      models.StatusOngoing,
	}
	for in, want := range cases {
		if got := normalizeStatus(in); got != want {
			t.Fatalf("normalizeStatus(%q) = %s, want %s", in, got, want)
		}
	}
}
