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
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ademuri/spotify-report/internal/export"
	"github.com/ademuri/spotify-report/internal/logging"
	"github.com/ademuri/spotify-report/internal/spotifyapi"
)

var fetchPlaylistsOut string
var fetchPlaylistsEnvFile string
var fetchPlaylistsRate float64

var fetchPlaylistsCmd = &cobra.Command{
	Use:   "fetch-playlists <playlist...>",
	Short: "Downloads playlists from the Spotify Web API",
	Long: `Fetches each playlist (id, spotify:playlist: URI or open.spotify.com link)
and writes them in the playlist export format, with release dates and the id
of the user who added each track. Credentials come from SPOTIFY_CLIENT_ID and
SPOTIFY_CLIENT_SECRET, optionally set in the --env_file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := fetchPlaylistsOut
		if out == "" {
			out = filepath.Join(cfg.InputDir, "Playlist_fetched.json")
		}
		return fetchPlaylists(cmd.Context(), args, out)
	},
}

func init() {
	rootCmd.AddCommand(fetchPlaylistsCmd)

	fetchPlaylistsCmd.Flags().StringVar(&fetchPlaylistsOut, "out", "", "Output file (default <input_dir>/Playlist_fetched.json)")
	fetchPlaylistsCmd.Flags().StringVar(&fetchPlaylistsEnvFile, "env_file", ".env", "File with Spotify credentials")
	fetchPlaylistsCmd.Flags().Float64Var(&fetchPlaylistsRate, "rate", 2, "Maximum API requests per second")
}

func fetchPlaylists(ctx context.Context, ids []string, out string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for _, id := range ids {
		if _, err := spotifyapi.ParsePlaylistID(id); err != nil {
			return err
		}
	}

	apiCfg, err := spotifyapi.ConfigFromEnv(fetchPlaylistsEnvFile)
	if err != nil {
		return err
	}
	apiCfg.RequestsPerSecond = fetchPlaylistsRate

	fetcher, err := spotifyapi.New(ctx, apiCfg)
	if err != nil {
		return err
	}
	playlists, err := fetcher.FetchPlaylists(ctx, ids)
	if err != nil {
		return err
	}
	if err := export.WritePlaylistFile(out, playlists); err != nil {
		return err
	}
	logging.Info().Str("file", out).Int("playlists", len(playlists.Playlists)).Msg("wrote playlists")
	fmt.Printf("Wrote %d playlists to %s\n", len(playlists.Playlists), out)
	return nil
}
