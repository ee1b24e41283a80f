package export

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/ademuri/spotify-report/internal/history"
)

// libraryFile is YourLibrary.json. Only saved tracks are used; the other
// sections are accepted so that real exports decode under the strict schema.
type libraryFile struct {
	Tracks        []libraryTrack  `json:"tracks" validate:"dive"`
	Albums        json.RawMessage `json:"albums"`
	Shows         json.RawMessage `json:"shows"`
	Episodes      json.RawMessage `json:"episodes"`
	BannedTracks  json.RawMessage `json:"bannedTracks"`
	Artists       json.RawMessage `json:"artists"`
	BannedArtists json.RawMessage `json:"bannedArtists"`
	Other         json.RawMessage `json:"other"`
}

type libraryTrack struct {
	Artist string `json:"artist" validate:"required"`
	Album  string `json:"album"`
	Track  string `json:"track" validate:"required"`
	URI    string `json:"uri"`
}

func LoadLibraryFile(path string) ([]history.LibraryEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var f libraryFile
	if err := decodeStrict(data, &f); err != nil {
		return nil, &MalformedRecordError{File: path, Err: err}
	}
	for i, t := range f.Tracks {
		if err := validate.Struct(t); err != nil {
			return nil, &MalformedRecordError{File: path, Record: i + 1, Err: err}
		}
	}

	out := make([]history.LibraryEntry, len(f.Tracks))
	for i, t := range f.Tracks {
		out[i] = history.LibraryEntry{Track: t.Track, Artist: t.Artist, Album: t.Album, TrackURI: t.URI}
	}
	return out, nil
}

func LoadLibrary(dir, pattern string) ([]history.LibraryEntry, error) {
	files, err := Discover(dir, pattern)
	if err != nil {
		return nil, err
	}
	var entries []history.LibraryEntry
	for _, f := range files {
		e, err := LoadLibraryFile(f)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e...)
	}
	return entries, nil
}
