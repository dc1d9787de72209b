package schedule

import (
	"testing"
	"time"

	"mangacal/pkg/models"
)

func TestInferWeeklyShonenTitle(t *testing.T) {
	h := Infer("One Piece", []string{"action", "adventure", "shounen"}, models.StatusOngoing)
	if h.Weekday != time.Monday {
		t.Fatalf("weekday = %v, want Monday", h.Weekday)
	}
	if h.Interval != 7*day {
		t.Fatalf("interval = %v, want %v", h.Interval, 7*day)
	}
}

func TestInferTitleRuleBeatsGenreRule(t *testing.T) {
	// "jujutsu kaisen" is in the weekly table; the seinen genre rule would
	// otherwise pick a monthly Thursday.
	h := Infer("Jujutsu Kaisen", []string{"seinen"}, models.StatusOngoing)
	if h.Weekday != time.Monday || h.Interval != 7*day {
		t.Fatalf("got %+v, want weekly Monday", h)
	}
}

func TestInferMonthlySeinen(t *testing.T) {
	for _, tc := range []struct {
		title  string
		genres []string
	}{
		{"Berserk", nil},
		{"Some Unknown Series", []string{"Seinen"}},
	} {
		h := Infer(tc.title, tc.genres, models.StatusHiatus)
		if h.Weekday != time.Thursday || h.Interval != 30*day {
			t.Fatalf("%s: got %+v, want monthly Thursday", tc.title, h)
		}
	}
}

func TestInferWeeklyManhwa(t *testing.T) {
	h := Infer("Solo Leveling", nil, models.StatusCompleted)
	if h.Weekday != time.Wednesday || h.Interval != 7*day {
		t.Fatalf("got %+v, want weekly Wednesday", h)
	}
}

func TestInferOngoingShounenGenre(t *testing.T) {
	h := Infer("Unknown Battle Manga", []string{"shounen"}, models.StatusOngoing)
	if h.Weekday != time.Sunday || h.Interval != 7*day {
		t.Fatalf("got %+v, want weekly Sunday", h)
	}

	// completed shounen falls through to the default
	h = Infer("Unknown Battle Manga", []string{"shounen"}, models.StatusCompleted)
	if h.Weekday != time.Monday || h.Interval != 14*day {
		t.Fatalf("completed shounen: got %+v, want biweekly Monday", h)
	}
}

func TestInferMonthlyKeywordInTitle(t *testing.T) {
	h := Infer("Monthly Girls' Nozaki-kun", nil, models.StatusOngoing)
	if h.Weekday != time.Friday || h.Interval != 30*day {
		t.Fatalf("got %+v, want monthly Friday", h)
	}
}

func TestInferDefault(t *testing.T) {
	h := Infer("Totally Unknown", []string{"mystery"}, models.StatusOngoing)
	if h.Weekday != time.Monday || h.Interval != 14*day {
		t.Fatalf("got %+v, want biweekly Monday default", h)
	}
}

func TestInferGenreMatchIsCaseInsensitive(t *testing.T) {
	h := Infer("Whatever", []string{" SEINEN "}, models.StatusOngoing)
	if h.Weekday != time.Thursday {
		t.Fatalf("got %+v, want Thursday from seinen genre", h)
	}
}
