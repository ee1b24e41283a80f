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
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ademuri/spotify-report/internal/aggregate"
	"github.com/ademuri/spotify-report/internal/config"
	"github.com/ademuri/spotify-report/internal/report"
	"github.com/ademuri/spotify-report/internal/store"
)

var queryDbNumber int
var queryDbCmd = &cobra.Command{
	Use:   "query-db [from] [to (optional)]",
	Short: "Prints plays per year and top artists and tracks from a snapshot database",
	Long: `Reads the SQLite snapshot written by 'build --database'. Without dates the
rankings cover the whole snapshot.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return queryDb(cfg, queryDbNumber, args, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(queryDbCmd)

	queryDbCmd.Flags().IntVarP(&queryDbNumber, "number", "n", 10, "number of results to return")
}

func queryDb(cfg config.Config, n int, args []string, out io.Writer) error {
	if cfg.Database == "" {
		return fmt.Errorf("no --database given")
	}
	if _, err := os.Stat(cfg.Database); err != nil {
		return fmt.Errorf("Database doesn't exist - run build with --database first: %w", err)
	}
	db, err := store.New(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	var start, end time.Time
	if len(args) > 0 {
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		if start, end, err = parseDateRangeFromArgs(args, loc); err != nil {
			return err
		}
	} else {
		first, last, ok, err := db.DateRange()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "No listens found.")
			return nil
		}
		start, end = first, last.Add(time.Second)
	}

	years, err := db.CountByYear()
	if err != nil {
		return err
	}
	yearTable := aggregate.Table{Name: "plays_per_year", Keys: []string{"year"}, Measures: []string{"plays", "hours"}}
	for _, y := range years {
		yearTable.Rows = append(yearTable.Rows, aggregate.Row{
			Key:    []string{strconv.Itoa(y.Year)},
			Values: []float64{float64(y.Plays), y.Hours},
		})
	}
	count, err := db.Count()
	if err != nil {
		return err
	}
	fmt.Fprint(out, report.FormatTable(yearTable, fmt.Sprintf("%d listens in %s", count, cfg.Database)))

	artists, err := db.TopArtists(start, end, n)
	if err != nil {
		return err
	}
	artistTable := aggregate.Table{Name: "top_artists", Keys: []string{"artist"}, Measures: []string{"plays"}}
	for _, a := range artists {
		artistTable.Rows = append(artistTable.Rows, aggregate.Row{Key: []string{a.Artist}, Values: []float64{float64(a.Count)}})
	}
	summary := fmt.Sprintf("Top artists from %s to %s", start.Format(dateFormat), end.Add(-time.Second).Format(dateFormat))
	fmt.Fprint(out, report.FormatTable(artistTable, summary))

	tracks, err := db.TopTracks(start, end, n)
	if err != nil {
		return err
	}
	trackTable := aggregate.Table{Name: "top_tracks", Keys: []string{"track", "artist"}, Measures: []string{"plays"}}
	for _, t := range tracks {
		trackTable.Rows = append(trackTable.Rows, aggregate.Row{Key: []string{t.Track, t.Artist}, Values: []float64{float64(t.Count)}})
	}
	fmt.Fprint(out, report.FormatTable(trackTable, ""))

	albums, err := db.TopAlbums(start, end, n)
	if err != nil {
		return err
	}
	albumTable := aggregate.Table{Name: "top_albums", Keys: []string{"album", "artist"}, Measures: []string{"plays"}}
	for _, a := range albums {
		albumTable.Rows = append(albumTable.Rows, aggregate.Row{Key: []string{a.Album, a.Artist}, Values: []float64{float64(a.Count)}})
	}
	fmt.Fprint(out, report.FormatTable(albumTable, ""))
	return nil
}
