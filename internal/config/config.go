// Package config holds the immutable settings of a report build. A Config is
// assembled once from flags and the config file and then passed by value to
// the loader, aggregator and reporter.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	InputDir        string `mapstructure:"input_dir" validate:"required"`
	HistoryPattern  string `mapstructure:"history_pattern" validate:"required"`
	PlaylistPattern string `mapstructure:"playlist_pattern"`
	LibraryPattern  string `mapstructure:"library_pattern"`
	AliasFile       string `mapstructure:"alias_file"`
	EventsCSV       string `mapstructure:"events_csv"`

	OutputDir   string `mapstructure:"output_dir" validate:"required"`
	WriteCSV    bool   `mapstructure:"write_csv"`
	WriteCharts bool   `mapstructure:"write_charts"`
	Database    string `mapstructure:"database"`

	// Views that focus on recent listening drop years before MinYear.
	MinYear int `mapstructure:"min_year" validate:"gte=0"`
	// PrimaryArtist is left out of the artist density analysis.
	PrimaryArtist string `mapstructure:"primary_artist"`

	TopN            int    `mapstructure:"top_n" validate:"gt=0"`
	WeekStart       string `mapstructure:"week_start" validate:"oneof=monday tuesday wednesday thursday friday saturday sunday"`
	Timezone        string `mapstructure:"timezone"`
	ArtistSeparator string `mapstructure:"artist_separator" validate:"required"`
	MaxArtists      int    `mapstructure:"max_artists" validate:"gt=0"`
}

func Default() Config {
	return Config{
		InputDir:        ".",
		HistoryPattern:  "Streaming_History_Audio_*.json",
		PlaylistPattern: "Playlist*.json",
		LibraryPattern:  "YourLibrary.json",
		OutputDir:       "report",
		WriteCSV:        true,
		WriteCharts:     true,
		TopN:            20,
		WeekStart:       "monday",
		Timezone:        "UTC",
		ArtistSeparator: ", ",
		MaxArtists:      4,
	}
}

var validate = validator.New()

// Validate checks c. Week start names are case insensitive.
func (c Config) Validate() error {
	c.WeekStart = strings.ToLower(c.WeekStart)
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// FirstWeekday defaults to Monday for unrecognized values.
func (c Config) FirstWeekday() time.Weekday {
	if d, ok := weekdays[strings.ToLower(c.WeekStart)]; ok {
		return d
	}
	return time.Monday
}
