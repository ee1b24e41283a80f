package aggregate

import (
	"strings"
	"time"

	"github.com/ademuri/spotify-report/internal/history"
)

// SplitArtists splits a credited artist string into at most max names. The
// last slot keeps any remainder so no credit is dropped. Names such as
// "Tyler, The Creator" are split too; the separator is not escaped in the
// source data.
func SplitArtists(artist, sep string, max int) []string {
	if sep == "" || max <= 1 {
		return []string{artist}
	}
	var out []string
	for _, part := range strings.SplitN(artist, sep, max) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{artist}
	}
	return out
}

// ExplodeArtists returns one copy of each event per credited artist. Grouped
// by artist, a track credited to two artists counts once for each, so the
// exploded total exceeds the event count whenever any event has more than
// one artist.
func ExplodeArtists(events []history.Event, sep string, max int) []history.Event {
	out := make([]history.Event, 0, len(events))
	for _, e := range events {
		for _, a := range SplitArtists(e.Artist, sep, max) {
			c := e
			c.Artist = a
			out = append(out, c)
		}
	}
	return out
}

// FilterEvents returns the events for which keep is true.
func FilterEvents(events []history.Event, keep func(history.Event) bool) []history.Event {
	var out []history.Event
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func Since(year int) func(history.Event) bool {
	return func(e history.Event) bool { return e.Year >= year }
}

func ExcludeArtist(name string) func(history.Event) bool {
	return func(e history.Event) bool { return name == "" || e.Artist != name }
}

func Music(e history.Event) bool {
	return e.Track != ""
}

// Between keeps events played in [start, end).
func Between(start, end time.Time) func(history.Event) bool {
	return func(e history.Event) bool {
		return !e.Timestamp.Before(start) && e.Timestamp.Before(end)
	}
}
