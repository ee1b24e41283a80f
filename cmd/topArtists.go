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
	"time"

	"github.com/spf13/cobra"

	"github.com/ademuri/spotify-report/internal/aggregate"
	"github.com/ademuri/spotify-report/internal/config"
	"github.com/ademuri/spotify-report/internal/history"
	"github.com/ademuri/spotify-report/internal/report"
)

const dateFormat = "2006-01-02"

var topArtistsNumber int
var topArtistsCmd = &cobra.Command{
	Use:   "top-artists [from] [to (optional)]",
	Short: "Gets the top artists for a period",
	Long: `Uses the specified date or date range. Date strings look like 'yyyy', 'yyyy-mm', or 'yyyy-mm-dd'.
Plays credited to several artists count once for each of them.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out, err := topArtists(cfg, topArtistsNumber, args)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(topArtistsCmd)

	topArtistsCmd.Flags().IntVarP(&topArtistsNumber, "number", "n", 10, "number of results to return")
}

// eventsInRange loads the history and keeps the music plays inside the
// period named by the date arguments.
func eventsInRange(cfg config.Config, args []string) (events []history.Event, start, end time.Time, err error) {
	loc, err := cfg.Location()
	if err != nil {
		return
	}
	start, end, err = parseDateRangeFromArgs(args, loc)
	if err != nil {
		return
	}
	all, err := loadHistory(cfg)
	if err != nil {
		err = describeLoadError(err)
		return
	}
	events = aggregate.FilterEvents(all, aggregate.Between(start, end))
	events = aggregate.FilterEvents(events, aggregate.Music)
	return
}

// rankingSummary describes the period as inclusive dates.
func rankingSummary(what string, distinct, plays int, start, end time.Time) string {
	return fmt.Sprintf("Found %d %s and %d listens from %s to %s",
		distinct, what, plays, start.Format(dateFormat), end.AddDate(0, 0, -1).Format(dateFormat))
}

func topArtists(cfg config.Config, n int, args []string) (string, error) {
	events, start, end, err := eventsInRange(cfg, args)
	if err != nil {
		return "", err
	}
	exploded := aggregate.ExplodeArtists(events, cfg.ArtistSeparator, cfg.MaxArtists)
	t, err := aggregate.GroupBy("top_artists", exploded, []string{"artist"},
		aggregate.Count("plays"), aggregate.Sum("hours", "hours_played"))
	if err != nil {
		return "", err
	}
	distinct := t.Len()
	if t, err = aggregate.TopN(t, "plays", n); err != nil {
		return "", err
	}
	return report.FormatTable(t, rankingSummary("artists", distinct, len(events), start, end)), nil
}
