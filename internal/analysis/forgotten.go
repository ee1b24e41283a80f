package analysis

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/ademuri/spotify-report/internal/aggregate"
	"github.com/ademuri/spotify-report/internal/history"
)

type ForgottenConfig struct {
	// Artists last heard before LastListenBefore are dormant.
	LastListenBefore time.Time
	MinPlays         int
	ResultsPerBand   int
	SortBy           string // "dormancy" or "plays"
}

type ForgottenArtist struct {
	Artist        string    `yaml:"artist"`
	Plays         int64     `yaml:"plays"`
	FirstListen   time.Time `yaml:"first_listen"`
	LastListen    time.Time `yaml:"last_listen"`
	DaysSinceLast int       `yaml:"days_since_last"`
	Band          string    `yaml:"band"`
}

const (
	BandObsession = "Obsession"
	BandStrong    = "Strong"
	BandModerate  = "Moderate"

	ThresholdObsession = 120
	ThresholdStrong    = 50
	ThresholdModerate  = 15
)

var bands = []string{BandObsession, BandStrong, BandModerate}

// GetThreshold returns the minimum plays for a band.
func GetThreshold(band string) int {
	switch band {
	case BandObsession:
		return ThresholdObsession
	case BandStrong:
		return ThresholdStrong
	case BandModerate:
		return ThresholdModerate
	}
	return 0
}

func determineBand(plays int64) string {
	if plays >= ThresholdObsession {
		return BandObsession
	}
	if plays >= ThresholdStrong {
		return BandStrong
	}
	if plays >= ThresholdModerate {
		return BandModerate
	}
	return ""
}

// GetForgottenArtists finds artists that were played heavily but not since
// cfg.LastListenBefore. Results are grouped into bands by play count, most
// played band first, and trimmed to cfg.ResultsPerBand each.
func GetForgottenArtists(events []history.Event, cfg ForgottenConfig, now time.Time) []ForgottenArtist {
	stats := make(map[string]*ForgottenArtist)
	for _, e := range events {
		if e.Artist == "" {
			continue
		}
		s, ok := stats[e.Artist]
		if !ok {
			s = &ForgottenArtist{Artist: e.Artist, FirstListen: e.Timestamp, LastListen: e.Timestamp}
			stats[e.Artist] = s
		}
		s.Plays++
		if e.Timestamp.Before(s.FirstListen) {
			s.FirstListen = e.Timestamp
		}
		if e.Timestamp.After(s.LastListen) {
			s.LastListen = e.Timestamp
		}
	}

	byBand := make(map[string][]ForgottenArtist)
	for _, s := range stats {
		if s.Plays < int64(cfg.MinPlays) || !s.LastListen.Before(cfg.LastListenBefore) {
			continue
		}
		a := *s
		a.DaysSinceLast = int(now.Sub(a.LastListen).Hours() / 24)
		a.Band = determineBand(a.Plays)
		if a.Band == "" {
			continue
		}
		byBand[a.Band] = append(byBand[a.Band], a)
	}

	var out []ForgottenArtist
	for _, band := range bands {
		artists := byBand[band]
		sortArtists(artists, cfg.SortBy)
		if cfg.ResultsPerBand > 0 && len(artists) > cfg.ResultsPerBand {
			artists = artists[:cfg.ResultsPerBand]
		}
		out = append(out, artists...)
	}
	return out
}

func sortArtists(artists []ForgottenArtist, sortBy string) {
	sort.Slice(artists, func(i, j int) bool {
		a, b := artists[i], artists[j]
		if sortBy == "plays" && a.Plays != b.Plays {
			return a.Plays > b.Plays
		}
		// Default to dormancy (longest dormancy first)
		if sortBy != "plays" && a.DaysSinceLast != b.DaysSinceLast {
			return a.DaysSinceLast > b.DaysSinceLast
		}
		return a.Artist < b.Artist
	})
}

// LastPlay returns the timestamp of the latest event.
func LastPlay(events []history.Event) (time.Time, bool) {
	if len(events) == 0 {
		return time.Time{}, false
	}
	return lo.MaxBy(events, func(x, y history.Event) bool { return x.Timestamp.After(y.Timestamp) }).Timestamp, true
}

func ForgottenTable(artists []ForgottenArtist) aggregate.Table {
	t := aggregate.Table{
		Name:     "forgotten_artists",
		Keys:     []string{"band", "artist", "last_listen"},
		Measures: []string{"plays", "days_since_last"},
	}
	for _, a := range artists {
		t.Rows = append(t.Rows, aggregate.Row{
			Key:    []string{a.Band, a.Artist, a.LastListen.Format(history.DateLayout)},
			Values: []float64{float64(a.Plays), float64(a.DaysSinceLast)},
		})
	}
	return t
}
