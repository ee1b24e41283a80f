package export

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/ademuri/spotify-report/internal/history"
	"github.com/ademuri/spotify-report/internal/logging"
)

var validate = validator.New()

// streamRecord is one entry of the extended streaming history export. Every
// column Spotify has shipped in that format is listed so that files from
// different export vintages merge into one schema.
type streamRecord struct {
	Ts                            string  `json:"ts" validate:"required"`
	Username                      *string `json:"username"`
	Platform                      *string `json:"platform" validate:"required"`
	MsPlayed                      *int64  `json:"ms_played" validate:"required"`
	ConnCountry                   *string `json:"conn_country"`
	IPAddr                        *string `json:"ip_addr"`
	IPAddrDecrypted               *string `json:"ip_addr_decrypted"`
	UserAgentDecrypted            *string `json:"user_agent_decrypted"`
	MasterMetadataTrackName       *string `json:"master_metadata_track_name"`
	MasterMetadataAlbumArtistName *string `json:"master_metadata_album_artist_name"`
	MasterMetadataAlbumAlbumName  *string `json:"master_metadata_album_album_name"`
	SpotifyTrackURI               *string `json:"spotify_track_uri"`
	EpisodeName                   *string `json:"episode_name"`
	EpisodeShowName               *string `json:"episode_show_name"`
	SpotifyEpisodeURI             *string `json:"spotify_episode_uri"`
	AudiobookTitle                *string `json:"audiobook_title"`
	AudiobookURI                  *string `json:"audiobook_uri"`
	AudiobookChapterURI           *string `json:"audiobook_chapter_uri"`
	AudiobookChapterTitle         *string `json:"audiobook_chapter_title"`
	ReasonStart                   *string `json:"reason_start"`
	ReasonEnd                     *string `json:"reason_end"`
	Shuffle                       *bool   `json:"shuffle"`
	Skipped                       *bool   `json:"skipped"`
	Offline                       *bool   `json:"offline"`
	OfflineTimestamp              *int64  `json:"offline_timestamp"`
	IncognitoMode                 *bool   `json:"incognito_mode"`
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r streamRecord) event() (history.Event, error) {
	ts, err := time.Parse(time.RFC3339, r.Ts)
	if err != nil {
		return history.Event{}, fmt.Errorf("parsing ts: %w", err)
	}
	if *r.MsPlayed < 0 {
		return history.Event{}, fmt.Errorf("negative ms_played %d", *r.MsPlayed)
	}
	return history.Event{
		Timestamp:   ts.UTC(),
		Track:       str(r.MasterMetadataTrackName),
		Artist:      str(r.MasterMetadataAlbumArtistName),
		Album:       str(r.MasterMetadataAlbumAlbumName),
		MsPlayed:    *r.MsPlayed,
		Platform:    str(r.Platform),
		Shuffle:     history.FlagOf(r.Shuffle),
		Incognito:   history.FlagOf(r.IncognitoMode),
		Offline:     history.FlagOf(r.Offline),
		Skipped:     history.FlagOf(r.Skipped),
		ReasonStart: str(r.ReasonStart),
		ReasonEnd:   str(r.ReasonEnd),
		Username:    str(r.Username),
		Country:     str(r.ConnCountry),
		TrackURI:    str(r.SpotifyTrackURI),
		EpisodeName: str(r.EpisodeName),
		EpisodeShow: str(r.EpisodeShowName),
	}, nil
}

// decodeStrict decodes one JSON value, rejecting fields outside the schema.
func decodeStrict(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// records splits a file into raw JSON records. The file may hold one JSON
// array or one object per line.
func records(path string) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &MalformedRecordError{File: path, Err: fmt.Errorf("empty file")}
	}

	if trimmed[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, &MalformedRecordError{File: path, Err: err}
		}
		out := make([][]byte, len(raw))
		for i, r := range raw {
			out[i] = r
		}
		return out, nil
	}

	var out [][]byte
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		out = append(out, append([]byte(nil), line...))
	}
	if err := scanner.Err(); err != nil {
		return nil, &MalformedRecordError{File: path, Err: err}
	}
	return out, nil
}

// LoadEventFile decodes a single streaming history file.
func LoadEventFile(path string) ([]history.Event, error) {
	raws, err := records(path)
	if err != nil {
		return nil, err
	}

	events := make([]history.Event, 0, len(raws))
	for i, raw := range raws {
		var rec streamRecord
		if err := decodeStrict(raw, &rec); err != nil {
			return nil, &MalformedRecordError{File: path, Record: i + 1, Err: err}
		}
		if err := validate.Struct(rec); err != nil {
			return nil, &MalformedRecordError{File: path, Record: i + 1, Err: err}
		}
		e, err := rec.event()
		if err != nil {
			return nil, &MalformedRecordError{File: path, Record: i + 1, Err: err}
		}
		events = append(events, e)
	}
	return events, nil
}

// LoadEvents discovers every history file matching pattern and concatenates
// their events in file order.
func LoadEvents(dir, pattern string) ([]history.Event, error) {
	files, err := Discover(dir, pattern)
	if err != nil {
		return nil, err
	}

	var events []history.Event
	for _, f := range files {
		fileEvents, err := LoadEventFile(f)
		if err != nil {
			return nil, err
		}
		logging.Debug().Str("file", f).Int("events", len(fileEvents)).Msg("loaded history file")
		events = append(events, fileEvents...)
	}
	return events, nil
}
