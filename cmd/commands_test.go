/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ademuri/spotify-report/internal/config"
	"github.com/ademuri/spotify-report/internal/export"
)

func streamRecord(ts time.Time, track, artist string) string {
	return fmt.Sprintf(`{"ts":%q,"platform":"Android OS 11","ms_played":180000,`+
		`"master_metadata_track_name":%q,"master_metadata_album_artist_name":%q,`+
		`"master_metadata_album_album_name":"LP","spotify_track_uri":"spotify:track:%s",`+
		`"reason_start":"trackdone","reason_end":"trackdone","shuffle":false,"skipped":false,`+
		`"offline":false,"incognito_mode":false}`,
		ts.Format(time.RFC3339), track, artist, strings.ReplaceAll(track, " ", ""))
}

// writeExports lays out a small export: 20 old plays of one artist in 2019
// and 10 plays in early 2021.
func writeExports(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	var records []string
	old := time.Date(2019, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		records = append(records, streamRecord(old.Add(time.Duration(i)*time.Hour), "Classic", "Old Favourite"))
	}
	for i := 0; i < 5; i++ {
		records = append(records, streamRecord(time.Date(2021, 1, 1+i, 10, 0, 0, 0, time.UTC), "Song A", "Band"))
	}
	for i := 0; i < 3; i++ {
		records = append(records, streamRecord(time.Date(2021, 1, 10+i, 10, 0, 0, 0, time.UTC), "Song B", "Band, Guest"))
	}
	for i := 0; i < 2; i++ {
		records = append(records, streamRecord(time.Date(2021, 2, 1+i, 20, 0, 0, 0, time.UTC), "Song C", "Other"))
	}

	files := map[string]string{
		"Streaming_History_Audio_2019-2021.json": "[" + strings.Join(records, ",\n") + "]",
		"Playlist1.json": `{"playlists":[{"name":"Road trip","lastModifiedDate":"2021-02-01","items":[
			{"track":{"trackName":"Song A","artistName":"Band","albumName":"LP","trackUri":"spotify:track:SongA"},"addedDate":"2021-01-01"},
			{"track":{"trackName":"Unplayed","artistName":"Nobody","albumName":"EP","trackUri":"spotify:track:x"},"addedDate":"2021-01-02"}]}]}`,
		"YourLibrary.json": `{"tracks":[{"artist":"Band","album":"LP","track":"Song A","uri":"spotify:track:SongA"}]}`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func testConfig(t *testing.T, inputDir string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.InputDir = inputDir
	cfg.OutputDir = filepath.Join(t.TempDir(), "report")
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestRunBuild(t *testing.T) {
	cfg := testConfig(t, writeExports(t))
	var out bytes.Buffer
	result, err := runBuild(cfg, &out)
	if err != nil {
		t.Fatalf("runBuild: %v", err)
	}
	if result.Failed != 0 {
		t.Errorf("failed writes = %d, want 0", result.Failed)
	}
	if result.Report.Metadata.TotalEvents != 30 {
		t.Errorf("TotalEvents = %d, want 30", result.Report.Metadata.TotalEvents)
	}
	for _, name := range []string{"report.html", "report.yaml", "hours_per_year.csv", "hours_per_year.png", "daily_heatmap.csv", "playlist_plays.csv", "library_share_per_year.csv"} {
		if _, err := os.Stat(filepath.Join(cfg.OutputDir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
	if !strings.Contains(out.String(), "Wrote report for 30 plays") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRunBuildMissingInput(t *testing.T) {
	cfg := testConfig(t, writeExports(t))
	cfg.LibraryPattern = "Missing*.json"

	_, err := runBuild(cfg, &bytes.Buffer{})
	var missing *export.MissingInputError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingInputError, got %v", err)
	}
	if _, err := os.Stat(cfg.OutputDir); !os.IsNotExist(err) {
		t.Error("nothing should be written when an input is missing")
	}
}

func TestBuildSnapshotAndQuery(t *testing.T) {
	cfg := testConfig(t, writeExports(t))
	cfg.Database = filepath.Join(t.TempDir(), "history.db")
	if _, err := runBuild(cfg, &bytes.Buffer{}); err != nil {
		t.Fatalf("runBuild: %v", err)
	}
	// a second build must not duplicate plays
	if _, err := runBuild(cfg, &bytes.Buffer{}); err != nil {
		t.Fatalf("runBuild again: %v", err)
	}

	var out bytes.Buffer
	if err := queryDb(cfg, 5, nil, &out); err != nil {
		t.Fatalf("queryDb: %v", err)
	}
	for _, want := range []string{"30 listens", "Old Favourite", "Classic", "2019", "2021"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("query-db output missing %q:\n%s", want, out.String())
		}
	}
}

func TestQueryDbWithoutSnapshot(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.Database = filepath.Join(t.TempDir(), "missing.db")
	if err := queryDb(cfg, 5, nil, &bytes.Buffer{}); err == nil {
		t.Error("expected an error for a missing database")
	}
}

func TestTopArtistsAndTracks(t *testing.T) {
	cfg := testConfig(t, writeExports(t))

	out, err := topArtists(cfg, 2, []string{"2021"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Found 3 artists and 10 listens from 2021-01-01 to 2021-12-31") {
		t.Errorf("unexpected summary:\n%s", out)
	}
	if !strings.Contains(out, "Band") || strings.Contains(out, "Other") {
		t.Errorf("expected Band and Guest only:\n%s", out)
	}

	out, err = topTracks(cfg, 0, []string{"2021-01", "2021-01"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Found 2 tracks and 8 listens") {
		t.Errorf("unexpected summary:\n%s", out)
	}

	if _, err := topTracks(cfg, 0, []string{"last-year"}); err == nil {
		t.Error("expected an error for an invalid date")
	}
}

func TestPlaylistReportFromEventsCSV(t *testing.T) {
	cfg := testConfig(t, writeExports(t))
	cfg.EventsCSV = filepath.Join(t.TempDir(), "events.csv")
	if _, err := runBuild(cfg, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(cfg.EventsCSV); err != nil {
		t.Fatalf("events table not written: %v", err)
	}

	// the history is no longer needed once the events table exists
	cfg.HistoryPattern = "Missing*.json"
	var out bytes.Buffer
	if err := playlistReport(cfg, &out); err != nil {
		t.Fatalf("playlistReport: %v", err)
	}
	for _, want := range []string{"Plays of playlist tracks", "Road trip", "Unplayed"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("playlists output missing %q:\n%s", want, out.String())
		}
	}
}

func TestParseCutoff(t *testing.T) {
	ref := time.Date(2021, 2, 2, 20, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"365d", time.Date(2020, 2, 3, 20, 0, 0, 0, time.UTC), false},
		{"0d", ref, false},
		{"2020-06", time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC), false},
		{"xd", time.Time{}, true},
		{"-5d", time.Time{}, true},
		{"soon", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseCutoff(tt.in, ref, time.UTC)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseCutoff(%q) error = %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseCutoff(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPrintForgotten(t *testing.T) {
	cfg := testConfig(t, writeExports(t))
	var out bytes.Buffer
	if err := printForgotten(cfg, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Old Favourite") || !strings.Contains(out.String(), "Found 1 artists") {
		t.Errorf("unexpected forgotten output:\n%s", out.String())
	}
}

func TestSendEmailDryRun(t *testing.T) {
	cfg := testConfig(t, writeExports(t))
	if _, err := runBuild(cfg, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := sendEmail(SendEmailConfig{From: "me@example.com", To: "you@example.com", OutputDir: cfg.OutputDir, DryRun: true}, &out)
	if err != nil {
		t.Fatalf("sendEmail: %v", err)
	}
	for _, want := range []string{"you@example.com", "Listening report 2019-06-01 to 2021-02-02", "30 plays"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("dry run output missing %q:\n%s", want, out.String())
		}
	}

	err = sendEmail(SendEmailConfig{From: "me@example.com", To: "you@example.com", OutputDir: cfg.OutputDir}, &out)
	if err == nil || !strings.Contains(err.Error(), "sendgrid_api_key") {
		t.Errorf("expected a missing api key error, got %v", err)
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"build", "top-artists", "top-tracks", "query-db", "playlists", "fetch-playlists", "forgotten", "email"} {
		c, _, err := rootCmd.Find([]string{name})
		if err != nil || c.Name() != name {
			t.Errorf("command %q not registered: %v", name, err)
		}
	}
}
