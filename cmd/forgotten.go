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
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ademuri/spotify-report/internal/aggregate"
	"github.com/ademuri/spotify-report/internal/analysis"
	"github.com/ademuri/spotify-report/internal/config"
	"github.com/ademuri/spotify-report/internal/report"
)

var (
	forgottenMinPlays   int
	resultsPerBand      int
	sortBy              string
	lastListenBeforeStr string
)

var forgottenCmd = &cobra.Command{
	Use:   "forgotten",
	Short: "Surfaces artists heavily listened to in the past but not recently",
	Long: `Identifies artists that have fallen out of rotation based on dormancy and
historical play counts. Dormancy is measured from the last play in the
history, so old exports give the same answer whenever they are analysed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return printForgotten(cfg, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(forgottenCmd)

	forgottenCmd.Flags().IntVar(&forgottenMinPlays, "min-plays", analysis.ThresholdModerate, "Minimum plays for an artist to be included")
	forgottenCmd.Flags().IntVar(&resultsPerBand, "results", 10, "Max results shown per interest band")
	forgottenCmd.Flags().StringVar(&sortBy, "sort", "dormancy", "Sort order: 'dormancy' or 'plays'")
	forgottenCmd.Flags().StringVar(&lastListenBeforeStr, "last_listen_before", "365d", "Only include artists last heard before this date (YYYY, YYYY-MM, YYYY-MM-DD or a duration like 90d)")
}

// parseCutoff accepts a date or a number of days before ref.
func parseCutoff(s string, ref time.Time, loc *time.Location) (time.Time, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return time.Time{}, fmt.Errorf("invalid duration %q", s)
		}
		return ref.AddDate(0, 0, -n), nil
	}
	pd, err := parseSingleDatestring(s, loc)
	if err != nil {
		return time.Time{}, err
	}
	return pd.Date, nil
}

func printForgotten(cfg config.Config, out io.Writer) error {
	events, err := loadHistory(cfg)
	if err != nil {
		return describeLoadError(err)
	}
	music := aggregate.FilterEvents(events, aggregate.Music)
	exploded := aggregate.ExplodeArtists(music, cfg.ArtistSeparator, cfg.MaxArtists)
	last, ok := analysis.LastPlay(exploded)
	if !ok {
		fmt.Fprintln(out, "No listens found.")
		return nil
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	cutoff, err := parseCutoff(lastListenBeforeStr, last, loc)
	if err != nil {
		return fmt.Errorf("invalid last_listen_before: %w", err)
	}
	if sortBy != "dormancy" && sortBy != "plays" {
		return fmt.Errorf("invalid sort %q: want 'dormancy' or 'plays'", sortBy)
	}

	forgotten := analysis.GetForgottenArtists(exploded, analysis.ForgottenConfig{
		LastListenBefore: cutoff,
		MinPlays:         forgottenMinPlays,
		ResultsPerBand:   resultsPerBand,
		SortBy:           sortBy,
	}, last)

	summary := fmt.Sprintf("Found %d artists last heard before %s", len(forgotten), cutoff.Format(dateFormat))
	fmt.Fprint(out, report.FormatTable(analysis.ForgottenTable(forgotten), summary))
	return nil
}
