package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ademuri/spotify-report/internal/history"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func streamJSON(ts time.Time, track, artist string) string {
	return fmt.Sprintf(`{"ts":%q,"platform":"Android OS 12","ms_played":180000,`+
		`"master_metadata_track_name":%q,"master_metadata_album_artist_name":%q,`+
		`"master_metadata_album_album_name":"Album","reason_start":"trackdone","reason_end":"trackdone",`+
		`"shuffle":true,"skipped":null,"offline":false,"incognito_mode":false}`,
		ts.Format(time.RFC3339), track, artist)
}

func historyArray(start time.Time, n int) string {
	var parts []string
	for i := 0; i < n; i++ {
		parts = append(parts, streamJSON(start.Add(time.Duration(i)*time.Hour), fmt.Sprintf("Track %d", i), "Artist"))
	}
	return "[\n" + strings.Join(parts, ",\n") + "\n]"
}

func TestDiscoverSortsAndSkipsDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Streaming_History_Audio_2021_1.json", "[]")
	writeFile(t, dir, "Streaming_History_Audio_2020.json", "[]")
	if err := os.Mkdir(filepath.Join(dir, "Streaming_History_Audio_dir.json"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := Discover(dir, "Streaming_History_Audio_*.json")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %v", files)
	}
	if filepath.Base(files[0]) != "Streaming_History_Audio_2020.json" {
		t.Errorf("files not sorted: %v", files)
	}
}

func TestDiscoverMissing(t *testing.T) {
	_, err := Discover(t.TempDir(), "*.json")
	var missing *MissingInputError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingInputError, got %v", err)
	}
	if missing.Pattern != "*.json" {
		t.Errorf("unexpected pattern %q", missing.Pattern)
	}
}

func TestRequireAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "history_jan.json", "[]")
	writeFile(t, dir, "history_feb.json", "[]")

	if err := RequireAll(dir, "history_jan.json", "history_feb.json", ""); err != nil {
		t.Fatalf("RequireAll: %v", err)
	}
	err := RequireAll(dir, "history_jan.json", "history_feb.json", "history_mar.json")
	var missing *MissingInputError
	if !errors.As(err, &missing) || missing.Pattern != "history_mar.json" {
		t.Fatalf("expected MissingInputError for history_mar.json, got %v", err)
	}
}

func TestLoadEventsMergesFiles(t *testing.T) {
	dir := t.TempDir()
	jan := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	writeFile(t, dir, "history_1.json", historyArray(jan, 100))
	writeFile(t, dir, "history_2.json", historyArray(feb, 150))

	events, err := LoadEvents(dir, "history_*.json")
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	if len(events) != 250 {
		t.Fatalf("expected 250 events, got %d", len(events))
	}
	if !events[0].Timestamp.Equal(jan) || !events[100].Timestamp.Equal(feb) {
		t.Errorf("files not concatenated in order")
	}
	e := events[0]
	if e.Shuffle != history.FlagTrue || e.Offline != history.FlagFalse || e.Skipped != history.FlagAbsent {
		t.Errorf("unexpected flags: %+v", e)
	}
}

func TestLoadEventsNDJSON(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2022, 5, 1, 12, 0, 0, 0, time.UTC)
	content := streamJSON(ts, "A", "X") + "\n\n" + streamJSON(ts.Add(time.Minute), "B", "Y") + "\n"
	writeFile(t, dir, "endsong_0.json", content)

	events, err := LoadEvents(dir, "endsong_*.json")
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	if len(events) != 2 || events[1].Track != "B" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestLoadEventsAbsentColumns(t *testing.T) {
	dir := t.TempDir()
	// Older exports have no incognito or offline columns and null metadata
	// for podcast plays.
	writeFile(t, dir, "endsong_0.json", `[{"ts":"2019-03-01T10:00:00Z","platform":"iOS","ms_played":1000,`+
		`"master_metadata_track_name":null,"episode_name":"Ep 1","episode_show_name":"Show"}]`)

	events, err := LoadEvents(dir, "endsong_*.json")
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	e := events[0]
	if e.Incognito != history.FlagAbsent || e.Offline != history.FlagAbsent {
		t.Errorf("expected absent flags, got %+v", e)
	}
	if !e.IsEpisode() {
		t.Errorf("expected podcast event")
	}
}

func TestLoadEventsMalformed(t *testing.T) {
	cases := []struct {
		name    string
		content string
		record  int
	}{
		{"not json", "{{{", 1},
		{"truncated array", `[{"ts":"2020-01-01T00:00:00Z"`, 0},
		{"missing ms_played", `[{"ts":"2020-01-01T00:00:00Z","platform":"iOS"}]`, 1},
		{"unknown field", `[{"ts":"2020-01-01T00:00:00Z","platform":"iOS","ms_played":1,"mood":"happy"}]`, 1},
		{"bad timestamp", `[{"ts":"yesterday","platform":"iOS","ms_played":1}]`, 1},
		{"wrong type", `[{"ts":"2020-01-01T00:00:00Z","platform":"iOS","ms_played":"long"}]`, 1},
		{"second record bad", `[{"ts":"2020-01-01T00:00:00Z","platform":"iOS","ms_played":1},{"ts":""}]`, 2},
		{"empty", "  \n", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "endsong_0.json", tc.content)
			_, err := LoadEvents(dir, "endsong_*.json")
			var malformed *MalformedRecordError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedRecordError, got %v", err)
			}
			if malformed.Record != tc.record {
				t.Errorf("record = %d, want %d (%v)", malformed.Record, tc.record, err)
			}
		})
	}
}

func TestLoadPlaylists(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Playlist1.json", `{"playlists":[{"name":"Road trip","lastModifiedDate":"2023-01-02",
"description":null,"numberOfFollowers":0,"items":[
{"track":{"trackName":"Song A","artistName":"Band","albumName":"LP","trackUri":"spotify:track:1"},"episode":null,"localTrack":null,"audiobook":null,"addedDate":"2022-12-24"},
{"track":null,"episode":{"episodeName":"Pod","showName":"Show","episodeUri":"spotify:episode:2"},"localTrack":null,"audiobook":null,"addedDate":"2022-12-25"},
{"track":{"trackName":"Song B","artistName":"Band","albumName":"LP","trackUri":"spotify:track:3"},"episode":null,"localTrack":null,"audiobook":null,"addedDate":"2022-12-26T10:00:00Z","addedBy":"u1","releaseDate":"2001-02-03"}
]}]}`)

	entries, err := LoadPlaylists(dir, "Playlist*.json")
	if err != nil {
		t.Fatalf("LoadPlaylists: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 track entries, got %d", len(entries))
	}
	if entries[0].Playlist != "Road trip" || entries[0].AddedAt.Day() != 24 {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
	if entries[1].AddedBy != "u1" || entries[1].ReleaseDate != "2001-02-03" {
		t.Errorf("unexpected entry: %+v", entries[1])
	}
}

func TestLoadPlaylistsMissingTrackName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Playlist1.json", `{"playlists":[{"name":"p","items":[{"track":{"artistName":"Band"},"addedDate":""}]}]}`)
	_, err := LoadPlaylists(dir, "Playlist*.json")
	var malformed *MalformedRecordError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedRecordError, got %v", err)
	}
}

func TestLoadLibrary(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "YourLibrary.json", `{"tracks":[{"artist":"Band","album":"LP","track":"Song A","uri":"spotify:track:1"}],
"albums":[],"shows":[],"episodes":[],"bannedTracks":[],"artists":[],"bannedArtists":[],"other":[]}`)

	lib, err := LoadLibrary(dir, "YourLibrary.json")
	if err != nil {
		t.Fatalf("LoadLibrary: %v", err)
	}
	if len(lib) != 1 || lib[0].Key() != (history.TrackKey{Track: "Song A", Artist: "Band"}) {
		t.Errorf("unexpected library: %+v", lib)
	}
}

func TestLoadAliases(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeFile(t, dir, "aliases.csv", "id,name\nabc123, Alice\n# comment\nxyz,Bob\n")
	aliases, err := LoadAliases(csvPath)
	if err != nil {
		t.Fatalf("LoadAliases: %v", err)
	}
	if aliases["abc123"] != "Alice" || aliases["xyz"] != "Bob" || len(aliases) != 2 {
		t.Errorf("unexpected aliases: %v", aliases)
	}

	tsvPath := writeFile(t, dir, "aliases.tsv", "abc\tCarol\n")
	aliases, err = LoadAliases(tsvPath)
	if err != nil {
		t.Fatalf("LoadAliases(tsv): %v", err)
	}
	if aliases["abc"] != "Carol" {
		t.Errorf("unexpected aliases: %v", aliases)
	}

	badPath := writeFile(t, dir, "bad.csv", "a,b,c\n")
	var malformed *MalformedRecordError
	if _, err := LoadAliases(badPath); !errors.As(err, &malformed) {
		t.Errorf("expected MalformedRecordError, got %v", err)
	}

	var missing *MissingInputError
	if _, err := LoadAliases(filepath.Join(dir, "nope.csv")); !errors.As(err, &missing) {
		t.Errorf("expected MissingInputError, got %v", err)
	}
}

func TestEventCSVRoundTrip(t *testing.T) {
	events := []history.Event{
		{
			Timestamp: time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
			Track:     "Song, with comma",
			Artist:    "Band",
			MsPlayed:  1234,
			Platform:  "iOS",
			Shuffle:   history.FlagTrue,
			Incognito: history.FlagFalse,
			ReasonEnd: "fwdbtn",
		},
		{
			Timestamp:   time.Date(2020, 1, 3, 8, 0, 0, 0, time.UTC),
			MsPlayed:    600000,
			Platform:    "android",
			EpisodeName: "Episode 12",
			EpisodeShow: "A Podcast",
		},
	}
	var buf bytes.Buffer
	if err := WriteEventCSV(&buf, events); err != nil {
		t.Fatalf("WriteEventCSV: %v", err)
	}
	got, err := readEventCSV("buf", &buf)
	if err != nil {
		t.Fatalf("readEventCSV: %v", err)
	}
	if len(got) != len(events) {
		t.Fatalf("got %d events, want %d", len(got), len(events))
	}
	for i := range events {
		if got[i] != events[i] {
			t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got[i], events[i])
		}
	}
	if !got[1].IsEpisode() {
		t.Error("podcast play should stay an episode after the round trip")
	}
}

func TestReadEventCSVBadHeader(t *testing.T) {
	_, err := readEventCSV("x.csv", strings.NewReader("ts,track\n"))
	var malformed *MalformedRecordError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedRecordError, got %v", err)
	}
}
