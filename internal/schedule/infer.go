// Package schedule infers a publication cadence for a series when no
// provider supplies explicit per-chapter dates.
package schedule

import (
	"strings"
	"time"

	"mangacal/pkg/models"
)

// Hint is an inferred cadence: releases land on Weekday, Interval apart.
// Never persisted; recomputed on every synthesis run.
type Hint struct {
	Weekday  time.Weekday
	Interval time.Duration
}

const day = 24 * time.Hour

// Title patterns checked before any genre rule. Substring match on the
// lowercased title, first hit wins.
var (
	weeklyShonenTitles = []string{
		"one piece",
		"my hero academia",
		"jujutsu kaisen",
		"chainsaw man",
		"black clover",
		"dr. stone",
		"undead unluck",
		"sakamoto days",
	}
	monthlySeinenTitles = []string{
		"berserk",
		"vagabond",
		"vinland saga",
		"a bride's story",
		"historie",
		"dungeon meshi",
	}
	weeklyManhwaTitles = []string{
		"solo leveling",
		"tower of god",
		"the beginning after the end",
		"omniscient reader",
		"lookism",
	}
)

// Infer returns the cadence for a series from its title, genre tags and
// status. Pure and total: some rule always matches, the last one being the
// biweekly Monday default.
func Infer(title string, genres []string, status string) Hint {
	t := strings.ToLower(strings.TrimSpace(title))

	if matchesAny(t, weeklyShonenTitles) {
		return Hint{Weekday: time.Monday, Interval: 7 * day}
	}
	if matchesAny(t, monthlySeinenTitles) || hasGenre(genres, "seinen") {
		return Hint{Weekday: time.Thursday, Interval: 30 * day}
	}
	if matchesAny(t, weeklyManhwaTitles) {
		return Hint{Weekday: time.Wednesday, Interval: 7 * day}
	}
	if hasGenre(genres, "shounen") && models.IsOngoing(status) {
		return Hint{Weekday: time.Sunday, Interval: 7 * day}
	}
	if hasGenre(genres, "seinen") || hasGenre(genres, "josei") || strings.Contains(t, "monthly") {
		return Hint{Weekday: time.Friday, Interval: 30 * day}
	}

	return Hint{Weekday: time.Monday, Interval: 14 * day}
}

func matchesAny(title string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(title, p) {
			return true
		}
	}
	return false
}

func hasGenre(genres []string, want string) bool {
	for _, g := range genres {
		if strings.EqualFold(strings.TrimSpace(g), want) {
			return true
		}
	}
	return false
}
