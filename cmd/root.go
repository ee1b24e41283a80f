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
	"fmt"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ademuri/spotify-report/internal/config"
	"github.com/ademuri/spotify-report/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spotify-report",
	Short: "Builds a listening report from Spotify data exports",
	Long: `Reads the extended streaming history, playlist and library files from a
Spotify data export and writes tables, charts and an HTML report.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logging.Config{
			Level:  viper.GetString("log_level"),
			Format: viper.GetString("log_format"),
			Output: os.Stderr,
		})
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default is $HOME/.spotify-report.yaml)")

	defaults := config.Default()
	flags := rootCmd.PersistentFlags()
	flags.StringP("input_dir", "i", defaults.InputDir, "Directory holding the export files")
	flags.String("history_pattern", defaults.HistoryPattern, "Glob for streaming history files")
	flags.String("playlist_pattern", defaults.PlaylistPattern, "Glob for playlist files; empty to skip playlists")
	flags.String("library_pattern", defaults.LibraryPattern, "Glob for the library file; empty to skip the library")
	flags.String("alias_file", defaults.AliasFile, "CSV or TSV of user id to display name")
	flags.String("events_csv", defaults.EventsCSV, "Events table to write, or to read for playlist cross-reference")
	flags.StringP("output_dir", "o", defaults.OutputDir, "Directory for report files")
	flags.Bool("write_csv", defaults.WriteCSV, "Write a CSV file per table")
	flags.Bool("write_charts", defaults.WriteCharts, "Write a PNG file per chart")
	flags.StringP("database", "d", defaults.Database, "Path to a SQLite snapshot of the history")
	flags.Int("min_year", defaults.MinYear, "Ignore years before this in recent-listening views")
	flags.String("primary_artist", defaults.PrimaryArtist, "Artist left out of the artist density view")
	flags.Int("top_n", defaults.TopN, "Rows kept in top artist and track tables")
	flags.String("week_start", defaults.WeekStart, "First day of the week in heatmaps")
	flags.String("timezone", defaults.Timezone, "IANA timezone for calendar fields")
	flags.String("artist_separator", defaults.ArtistSeparator, "Separator between artists in one artist field")
	flags.Int("max_artists", defaults.MaxArtists, "Artists kept when splitting an artist field")
	flags.String("log_level", "info", "trace, debug, info, warn or error")
	flags.String("log_format", "console", "console or json")

	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		viper.BindPFlag(f.Name, f)
	})
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".spotify-report" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".spotify-report")
	}

	viper.SetEnvPrefix("spotify_report")
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig builds the run configuration once from flags, the config file
// and the environment.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if err := viper.Unmarshal(&cfg); err != nil {
		return config.Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
