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

	"github.com/spf13/cobra"

	"github.com/ademuri/spotify-report/internal/analysis"
	"github.com/ademuri/spotify-report/internal/config"
	"github.com/ademuri/spotify-report/internal/logging"
	"github.com/ademuri/spotify-report/internal/report"
)

var buildQuiet bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Builds the full listening report",
	Long: `Loads the exports, computes every report section and writes CSV tables,
PNG charts, report.html and report.yaml to the output directory. Failing to
write a single file is logged and does not stop the build.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if buildQuiet {
			out = io.Discard
		}
		_, err = runBuild(cfg, out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().BoolVarP(&buildQuiet, "quiet", "q", false, "Don't print tables to stdout")
}

type buildResult struct {
	Report *analysis.Report
	Failed int
}

func runBuild(cfg config.Config, out io.Writer) (buildResult, error) {
	in, err := loadInput(cfg)
	if err != nil {
		return buildResult{}, describeLoadError(err)
	}

	failed := 0
	if cfg.EventsCSV != "" {
		if err := saveEventCSV(cfg.EventsCSV, in.Events); err != nil {
			failed++
			logging.Warn().Err(err).Msg("could not write output, continuing")
		}
	}

	r, err := analysis.Build(in, cfg)
	if err != nil {
		return buildResult{}, err
	}

	doc, err := report.NewDocument(r)
	if err != nil {
		return buildResult{}, err
	}
	w := report.Writer{Dir: cfg.OutputDir, WriteCSV: cfg.WriteCSV, WriteCharts: cfg.WriteCharts}
	n, err := w.WriteDocument(doc)
	failed += n
	if err != nil {
		return buildResult{}, err
	}

	if cfg.Database != "" {
		if err := saveSnapshot(cfg.Database, in.Events); err != nil {
			return buildResult{}, err
		}
	}

	fmt.Fprint(out, doc.Text())
	fmt.Fprintf(out, "\nWrote report for %d plays (%s to %s) to %s",
		r.Metadata.TotalEvents, r.Metadata.FirstDate, r.Metadata.LastDate, cfg.OutputDir)
	if failed > 0 {
		fmt.Fprintf(out, "; %d files could not be written", failed)
	}
	fmt.Fprintln(out)
	return buildResult{Report: r, Failed: failed}, nil
}
