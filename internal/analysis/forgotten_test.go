package analysis

import (
	"testing"
	"time"

	"github.com/ademuri/spotify-report/internal/history"
)

func listens(artist string, count int, last time.Time) []history.Event {
	var out []history.Event
	for i := 0; i < count; i++ {
		out = append(out, play(last.Add(time.Duration(-i)*time.Minute), "Track "+artist, artist))
	}
	return out
}

func TestGetForgottenArtists(t *testing.T) {
	now := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	twoYearsAgo := now.AddDate(-2, 0, 0)

	var events []history.Event
	events = append(events, listens("Artist A", ThresholdObsession, twoYearsAgo)...) // Obsession
	events = append(events, listens("Artist B", ThresholdObsession, now)...)         // Recent
	events = append(events, listens("Artist C", ThresholdModerate, twoYearsAgo)...)  // Moderate
	events = append(events, listens("Artist D", 5, twoYearsAgo)...)                  // Ignore

	cfg := ForgottenConfig{
		LastListenBefore: now.AddDate(0, 0, -90),
		MinPlays:         ThresholdModerate,
		ResultsPerBand:   10,
		SortBy:           "dormancy",
	}
	results := GetForgottenArtists(events, cfg, now)

	if len(results) != 2 {
		t.Fatalf("expected 2 forgotten artists, got %d: %+v", len(results), results)
	}
	if results[0].Artist != "Artist A" || results[0].Band != BandObsession {
		t.Errorf("expected Artist A in obsession, got %s in %s", results[0].Artist, results[0].Band)
	}
	if results[1].Artist != "Artist C" || results[1].Band != BandModerate {
		t.Errorf("expected Artist C in moderate, got %s in %s", results[1].Artist, results[1].Band)
	}
	if results[0].DaysSinceLast != 730 {
		t.Errorf("days since last = %d, want 730", results[0].DaysSinceLast)
	}
	if results[0].Plays != ThresholdObsession {
		t.Errorf("plays = %d, want %d", results[0].Plays, ThresholdObsession)
	}
}

func TestGetForgottenArtistsSortAndLimit(t *testing.T) {
	now := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	var events []history.Event
	events = append(events, listens("Older", ThresholdStrong, now.AddDate(-3, 0, 0))...)
	events = append(events, listens("Newer", ThresholdStrong+10, now.AddDate(-1, 0, 0))...)
	events = append(events, listens("Newest", ThresholdStrong+5, now.AddDate(0, -6, 0))...)

	cfg := ForgottenConfig{
		LastListenBefore: now.AddDate(0, 0, -90),
		MinPlays:         ThresholdModerate,
		ResultsPerBand:   2,
		SortBy:           "dormancy",
	}
	byDormancy := GetForgottenArtists(events, cfg, now)
	if len(byDormancy) != 2 || byDormancy[0].Artist != "Older" || byDormancy[1].Artist != "Newer" {
		t.Errorf("by dormancy = %+v", byDormancy)
	}

	cfg.SortBy = "plays"
	byPlays := GetForgottenArtists(events, cfg, now)
	if len(byPlays) != 2 || byPlays[0].Artist != "Newer" || byPlays[1].Artist != "Newest" {
		t.Errorf("by plays = %+v", byPlays)
	}
}

func TestGetThreshold(t *testing.T) {
	cases := map[string]int{
		BandObsession: ThresholdObsession,
		BandStrong:    ThresholdStrong,
		BandModerate:  ThresholdModerate,
		"Unknown":     0,
	}
	for band, want := range cases {
		if got := GetThreshold(band); got != want {
			t.Errorf("GetThreshold(%s) = %d, want %d", band, got, want)
		}
	}
}
