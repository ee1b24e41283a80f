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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ademuri/spotify-report/internal/analysis"
	"github.com/ademuri/spotify-report/internal/config"
	"github.com/ademuri/spotify-report/internal/history"
	"github.com/ademuri/spotify-report/internal/report"
)

var playlistSections = []string{
	"playlist_additions",
	"playlist_plays",
	"playlist_track_plays",
	"playlist_release_years",
}

var playlistsCmd = &cobra.Command{
	Use:   "playlists",
	Short: "Cross-references playlists with the listening history",
	Long: `Prints who added tracks to each playlist, how often playlist tracks were
played and their release years. Plays are read from --events_csv when that
file exists, otherwise from the streaming history.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return playlistReport(cfg, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(playlistsCmd)
}

func playedHistory(cfg config.Config) ([]history.Event, error) {
	if cfg.EventsCSV != "" {
		if _, err := os.Stat(cfg.EventsCSV); err == nil {
			return loadEventCSV(cfg)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("checking events table: %w", err)
		}
	}
	return loadHistory(cfg)
}

func playlistReport(cfg config.Config, out io.Writer) error {
	if cfg.PlaylistPattern == "" {
		return fmt.Errorf("no --playlist_pattern given")
	}
	playlists, err := loadPlaylists(cfg)
	if err != nil {
		return describeLoadError(err)
	}
	played, err := playedHistory(cfg)
	if err != nil {
		return describeLoadError(err)
	}

	r, err := analysis.Build(analysis.Input{Playlists: playlists, PlayedHistory: played}, cfg)
	if err != nil {
		return err
	}
	for _, name := range playlistSections {
		s, ok := r.Section(name)
		if !ok {
			continue
		}
		fmt.Fprintf(out, "\n%s\n", s.Title)
		fmt.Fprint(out, report.FormatTable(s.Table, ""))
	}
	return nil
}
