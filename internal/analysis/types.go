package analysis

import (
	"time"

	"github.com/ademuri/spotify-report/internal/aggregate"
	"github.com/ademuri/spotify-report/internal/history"
)

// Input is everything a report is built from. Events and Playlists must
// already be normalized.
type Input struct {
	Events    []history.Event
	Playlists []history.PlaylistEntry
	Library   []history.LibraryEntry

	// PlayedHistory is what playlists are cross-referenced against. When nil,
	// Events is used.
	PlayedHistory []history.Event

	// Now stamps the report. Zero means time.Now().
	Now time.Time
}

// Report is the top-level structure for the listening report.
type Report struct {
	Metadata   ProfileMetadata   `yaml:"profile_metadata"`
	Patterns   ListeningPatterns `yaml:"listening_patterns"`
	TopArtists []ArtistStat      `yaml:"top_artists"`
	TopTracks  []TrackStat       `yaml:"top_tracks"`
	Forgotten  []ForgottenArtist `yaml:"forgotten_artists,omitempty"`

	Sections []Section `yaml:"-"`
}

type ProfileMetadata struct {
	RunID          string  `yaml:"run_id"`
	GeneratedDate  string  `yaml:"generated_date"`
	TotalEvents    int     `yaml:"total_events"`
	TotalArtists   int     `yaml:"total_artists"`
	TotalTracks    int     `yaml:"total_tracks"`
	TotalHours     float64 `yaml:"total_hours"`
	FirstDate      string  `yaml:"first_date"`
	LastDate       string  `yaml:"last_date"`
	ListeningStyle string  `yaml:"listening_style"`
	Playlists      int     `yaml:"playlists,omitempty"`
	LibraryTracks  int     `yaml:"library_tracks,omitempty"`
	TopTrackURI    string  `yaml:"top_track_uri,omitempty"`
}

type ArtistStat struct {
	Name      string   `yaml:"name"`
	Plays     int64    `yaml:"plays"`
	Hours     float64  `yaml:"hours"`
	PeakYears string   `yaml:"peak_years,omitempty"`
	TopAlbums []string `yaml:"top_albums,omitempty"`
}

type TrackStat struct {
	Track  string  `yaml:"track"`
	Artist string  `yaml:"artist"`
	Plays  int64   `yaml:"plays"`
	Hours  float64 `yaml:"hours"`
	URI    string  `yaml:"uri,omitempty"`
}

type ListeningPatterns struct {
	AlbumsPerArtistMedian    float64 `yaml:"albums_per_artist_median"`
	AlbumsPerArtistAverage   float64 `yaml:"albums_per_artist_average"`
	NewArtistsInLast12Months int     `yaml:"new_artists_in_last_12_months"`
	RepeatListeningRatio     float64 `yaml:"repeat_listening_ratio"`
}

type ChartKind string

const (
	ChartBar     ChartKind = "bar"
	ChartLine    ChartKind = "line"
	ChartHeatmap ChartKind = "heatmap"
)

// Chart says how a section's table is drawn. X and Row name key columns,
// Value names a measure.
type Chart struct {
	Kind  ChartKind
	Title string
	X     string
	Value string

	// Fill splits bars or lines into one series per value of a key column.
	Fill string
	// Facet draws one panel per value of a key column.
	Facet string
	// Row is the vertical key of a heatmap.
	Row string
	// Horizontal bars suit long names such as artists.
	Horizontal bool
}

// Section is one named aggregate of the report.
type Section struct {
	Name  string
	Title string
	Table aggregate.Table
	Chart *Chart
}

func (r *Report) Section(name string) (Section, bool) {
	for _, s := range r.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}
