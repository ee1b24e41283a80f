package export

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/ademuri/spotify-report/internal/history"
	"github.com/ademuri/spotify-report/internal/logging"
)

type PlaylistFile struct {
	Playlists []Playlist `json:"playlists" validate:"dive"`
}

type Playlist struct {
	Name              string         `json:"name" validate:"required"`
	LastModifiedDate  string         `json:"lastModifiedDate"`
	Description       *string        `json:"description"`
	NumberOfFollowers int            `json:"numberOfFollowers"`
	Collaborators     []string       `json:"collaborators"`
	Items             []PlaylistItem `json:"items" validate:"dive"`
}

// PlaylistItem wraps exactly one of a track, episode, local file or
// audiobook. AddedBy and ReleaseDate are only written by fetch-playlists.
type PlaylistItem struct {
	Track       *PlaylistTrack  `json:"track"`
	Episode     json.RawMessage `json:"episode,omitempty"`
	LocalTrack  json.RawMessage `json:"localTrack,omitempty"`
	Audiobook   json.RawMessage `json:"audiobook,omitempty"`
	AddedDate   string          `json:"addedDate"`
	AddedBy     string          `json:"addedBy,omitempty"`
	ReleaseDate string          `json:"releaseDate,omitempty"`
}

type PlaylistTrack struct {
	TrackName  string `json:"trackName" validate:"required"`
	ArtistName string `json:"artistName" validate:"required"`
	AlbumName  string `json:"albumName"`
	TrackURI   string `json:"trackUri"`
}

// parseAdded accepts the export's plain dates and the API's RFC 3339 times.
func parseAdded(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(history.DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (f PlaylistFile) Entries() ([]history.PlaylistEntry, error) {
	var out []history.PlaylistEntry
	for _, p := range f.Playlists {
		for i, item := range p.Items {
			// Episodes and local files have no track/artist to join on.
			if item.Track == nil {
				continue
			}
			added, err := parseAdded(item.AddedDate)
			if err != nil {
				return nil, fmt.Errorf("playlist %q item %d: %w", p.Name, i+1, err)
			}
			out = append(out, history.PlaylistEntry{
				Playlist:    p.Name,
				Track:       item.Track.TrackName,
				Artist:      item.Track.ArtistName,
				Album:       item.Track.AlbumName,
				TrackURI:    item.Track.TrackURI,
				AddedAt:     added,
				AddedBy:     item.AddedBy,
				ReleaseDate: item.ReleaseDate,
			})
		}
	}
	return out, nil
}

func LoadPlaylistFile(path string) ([]history.PlaylistEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var f PlaylistFile
	if err := decodeStrict(data, &f); err != nil {
		return nil, &MalformedRecordError{File: path, Err: err}
	}
	if err := validate.Struct(f); err != nil {
		return nil, &MalformedRecordError{File: path, Err: err}
	}
	entries, err := f.Entries()
	if err != nil {
		return nil, &MalformedRecordError{File: path, Err: err}
	}
	return entries, nil
}

func LoadPlaylists(dir, pattern string) ([]history.PlaylistEntry, error) {
	files, err := Discover(dir, pattern)
	if err != nil {
		return nil, err
	}
	var entries []history.PlaylistEntry
	for _, f := range files {
		e, err := LoadPlaylistFile(f)
		if err != nil {
			return nil, err
		}
		logging.Debug().Str("file", f).Int("entries", len(e)).Msg("loaded playlist file")
		entries = append(entries, e...)
	}
	return entries, nil
}

// WritePlaylistFile writes playlists in the export's shape.
func WritePlaylistFile(path string, f PlaylistFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding playlists: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
