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

	"github.com/spf13/cobra"

	"github.com/ademuri/spotify-report/internal/aggregate"
	"github.com/ademuri/spotify-report/internal/config"
	"github.com/ademuri/spotify-report/internal/report"
)

var topTracksNumber int
var topTracksCmd = &cobra.Command{
	Use:   "top-tracks [from] [to (optional)]",
	Short: "Gets the top tracks for a period",
	Long:  `Uses the specified date or date range. Date strings look like 'yyyy', 'yyyy-mm', or 'yyyy-mm-dd'.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out, err := topTracks(cfg, topTracksNumber, args)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(topTracksCmd)

	topTracksCmd.Flags().IntVarP(&topTracksNumber, "number", "n", 10, "number of results to return")
}

func topTracks(cfg config.Config, n int, args []string) (string, error) {
	events, start, end, err := eventsInRange(cfg, args)
	if err != nil {
		return "", err
	}
	t, err := aggregate.GroupBy("top_tracks", events, []string{"track", "artist"},
		aggregate.Count("plays"), aggregate.Sum("hours", "hours_played"))
	if err != nil {
		return "", err
	}
	distinct := t.Len()
	if t, err = aggregate.TopN(t, "plays", n); err != nil {
		return "", err
	}
	return report.FormatTable(t, rankingSummary("tracks", distinct, len(events), start, end)), nil
}
