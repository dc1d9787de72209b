// Package timeline fabricates plausible release dates for every volume and
// chapter of a series from sparse anchor facts. Pure and deterministic: the
// same facts, hint and clock always produce the same timeline.
package timeline

import (
	"fmt"
	"strings"
	"time"

	"mangacal/internal/schedule"
	"mangacal/pkg/models"
)

const (
	day = 24 * time.Hour

	// minVolumeInterval floors the spacing when interpolating volumes
	// between known bounds.
	minVolumeInterval = 30 * day

	// fallbackVolumeInterval spaces volumes when a series has no anchor
	// dates at all. An arbitrary heuristic; tune freely, nothing pins it
	// beyond ordering and bounds.
	fallbackVolumeInterval = 90 * day

	// fallbackChapterInterval is the past-segment spacing when the
	// interpolation span collapses to a single item.
	fallbackChapterInterval = 14 * day

	// chaptersPerVolume drives the volume-count estimate for completed
	// series with a known chapter count.
	chaptersPerVolume = 9
)

// Facts are the anchor inputs for one series.
type Facts struct {
	Title        string
	Status       string
	ChapterCount int
	VolumeCount  int // 0 = unknown, estimated from policy
	StartDate    *time.Time
	EndDate      *time.Time

	// NextRelease is a provider-announced date for the next chapter. When
	// set (and in the future), it anchors the projected segment instead of
	// the cadence guess.
	NextRelease *time.Time
}

// Entry is one dated item of a synthesized timeline. Confirmed entries sit
// in the interpolated past; unconfirmed ones are cadence-aligned
// projections.
type Entry struct {
	Number    int
	Title     string
	Date      time.Time
	Confirmed bool
}

// Timeline is the full synthesized release set for a series.
type Timeline struct {
	Volumes  []Entry
	Chapters []Entry
}

// Known-title volume counts, consulted before any estimate. Keyed by the
// lowercased title.
var volumeCountOverrides = map[string]int{
	"one piece":    110,
	"berserk":      42,
	"vagabond":     37,
	"vinland saga": 28,
	"naruto":       72,
	"bleach":       74,
}

// Synthesize produces the dated volume and chapter sets for a series.
// A zero count on either axis yields an empty list for that axis, not an
// error.
func Synthesize(facts Facts, hint schedule.Hint, now time.Time) Timeline {
	volumeCount := facts.VolumeCount
	if volumeCount == 0 {
		volumeCount = EstimateVolumeCount(facts.Title, facts.Status, facts.ChapterCount)
	}

	return Timeline{
		Volumes:  distribute(volumeCount, "Volume", facts, hint, now, true),
		Chapters: distribute(facts.ChapterCount, "Chapter", facts, hint, now, false),
	}
}

// EstimateVolumeCount applies the volume-count policy when the provider
// gave no native count: override table first, then the chapters-per-volume
// heuristic for completed runs, then a single volume for anything already
// publishing, else none.
func EstimateVolumeCount(title, status string, chapterCount int) int {
	if n, ok := volumeCountOverrides[normalizeLower(title)]; ok {
		return n
	}
	if status == models.StatusCompleted && chapterCount > 0 {
		n := chapterCount / chaptersPerVolume
		if n < 1 {
			n = 1
		}
		return n
	}
	if status != models.StatusAnnounced {
		return 1
	}
	return 0
}

// distribute assigns a date to each of count items.
//
// With both anchors known the run is finished: items interpolate evenly
// across [start, end]. Otherwise the series has a confirmed past and a
// probabilistic future, and the two segments are dated separately;
// collapsing them into one interpolation would misdate already-released
// items.
func distribute(count int, kind string, facts Facts, hint schedule.Hint, now time.Time, volumeAxis bool) []Entry {
	if count <= 0 {
		return nil
	}

	start, end := facts.StartDate, facts.EndDate
	if start != nil && end != nil && end.After(*start) && !models.IsOngoing(facts.Status) {
		return interpolate(count, kind, *start, *end, now)
	}

	// An announced next-release date is a chapter fact; volumes keep the
	// cadence projection.
	next := facts.NextRelease
	if volumeAxis {
		next = nil
	}
	return twoSegment(count, kind, start, next, hint, now, volumeAxis)
}

// interpolate spreads count items evenly between the anchors, flooring the
// spacing at minVolumeInterval and clamping overflow back to the end
// anchor so every date stays inside [start, end].
func interpolate(count int, kind string, start, end, now time.Time) []Entry {
	span := end.Sub(start)
	interval := span / time.Duration(count)
	if interval < minVolumeInterval {
		interval = minVolumeInterval
	}

	entries := make([]Entry, 0, count)
	for i := 1; i <= count; i++ {
		date := start.Add(time.Duration(i-1) * interval)
		if date.After(end) {
			date = end
		}
		entries = append(entries, Entry{
			Number:    i,
			Title:     fmt.Sprintf("%s %d", kind, i),
			Date:      date,
			Confirmed: !date.After(now),
		})
	}
	return entries
}

// twoSegment dates an unfinished run: the bulk interpolates from the start
// anchor up to now as confirmed releases, and the last ~10% projects
// forward on the inferred cadence, snapped to its anchor weekday. A
// provider-announced next date, when given, replaces the first projection
// and shifts the rest onto its grid. Without a start anchor, chapters
// assume the run began a year ago; volumes back off fallbackVolumeInterval
// per item instead.
func twoSegment(count int, kind string, start, next *time.Time, hint schedule.Hint, now time.Time, volumeAxis bool) []Entry {
	futureCount := count / 10
	if futureCount < 3 {
		futureCount = 3
	}
	if futureCount > count {
		futureCount = count
	}
	pastCount := count - futureCount

	var pastStart time.Time
	switch {
	case start != nil:
		pastStart = *start
	case volumeAxis && pastCount > 0:
		pastStart = now.Add(-time.Duration(pastCount) * fallbackVolumeInterval)
	default:
		pastStart = now.Add(-365 * day)
	}

	pastInterval := fallbackChapterInterval
	if pastCount > 1 {
		pastInterval = now.Sub(pastStart) / time.Duration(pastCount)
	}

	entries := make([]Entry, 0, count)
	for i := 1; i <= pastCount; i++ {
		date := pastStart.Add(time.Duration(i-1) * pastInterval)
		if date.After(now) {
			date = now
		}
		entries = append(entries, Entry{
			Number:    i,
			Title:     fmt.Sprintf("%s %d", kind, i),
			Date:      date,
			Confirmed: true,
		})
	}

	if next != nil && !next.After(now) {
		next = nil // stale announcement, fall back to the cadence
	}

	for j := 1; j <= futureCount; j++ {
		var date time.Time
		switch {
		case next != nil && j == 1:
			date = *next // a real date, not snapped
		case next != nil:
			date = snapToWeekday(next.Add(time.Duration(j-1)*hint.Interval), hint.Weekday)
		default:
			date = snapToWeekday(now.Add(time.Duration(j)*hint.Interval), hint.Weekday)
		}
		entries = append(entries, Entry{
			Number:    pastCount + j,
			Title:     fmt.Sprintf("%s %d", kind, pastCount+j),
			Date:      date,
			Confirmed: false,
		})
	}
	return entries
}

// snapToWeekday moves t forward (never backward) to the next occurrence of
// the anchor weekday, keeping t itself when it already lands there.
func snapToWeekday(t time.Time, anchor time.Weekday) time.Time {
	delta := (int(anchor) - int(t.Weekday()) + 7) % 7
	return t.Add(time.Duration(delta) * day)
}

func normalizeLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
