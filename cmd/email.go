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
	"path/filepath"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ademuri/spotify-report/internal/analysis"
)

type SendEmailConfig struct {
	From      string
	To        string
	OutputDir string
	APIKey    string
	DryRun    bool
}

var emailCmd = &cobra.Command{
	Use:   "email <address>",
	Short: "Emails the built report",
	Long: `Sends report.html from the output directory through SendGrid. Run build
first; the subject is taken from report.yaml.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetString("from") == "" {
			return fmt.Errorf("required flag(s) \"from\" not set")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		config := SendEmailConfig{
			From:      viper.GetString("from"),
			To:        args[0],
			OutputDir: cfg.OutputDir,
			APIKey:    viper.GetString("sendgrid_api_key"),
			DryRun:    viper.GetBool("dry_run"),
		}
		return sendEmail(config, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(emailCmd)

	emailCmd.Flags().String("from", "", "From email address")
	viper.BindPFlag("from", emailCmd.Flags().Lookup("from"))

	emailCmd.Flags().String("sendgrid_api_key", "", "SendGrid API key")
	viper.BindPFlag("sendgrid_api_key", emailCmd.Flags().Lookup("sendgrid_api_key"))

	emailCmd.Flags().BoolP("dry_run", "n", false, "When true, just print instead of emailing")
	viper.BindPFlag("dry_run", emailCmd.Flags().Lookup("dry_run"))
}

// readSummary loads the metadata block of a report.yaml.
func readSummary(dir string) (analysis.ProfileMetadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, "report.yaml"))
	if err != nil {
		return analysis.ProfileMetadata{}, fmt.Errorf("reading report summary: %w", err)
	}
	var summary struct {
		Metadata analysis.ProfileMetadata `yaml:"profile_metadata"`
	}
	if err := yaml.Unmarshal(data, &summary); err != nil {
		return analysis.ProfileMetadata{}, fmt.Errorf("parsing report summary: %w", err)
	}
	return summary.Metadata, nil
}

func emailSubject(meta analysis.ProfileMetadata) string {
	if meta.FirstDate == "" {
		return "Listening report"
	}
	return fmt.Sprintf("Listening report %s to %s", meta.FirstDate, meta.LastDate)
}

func emailText(meta analysis.ProfileMetadata) string {
	return fmt.Sprintf("%d plays, %.1f hours, %d artists and %d tracks from %s to %s.",
		meta.TotalEvents, meta.TotalHours, meta.TotalArtists, meta.TotalTracks, meta.FirstDate, meta.LastDate)
}

func newReportMessage(config SendEmailConfig, meta analysis.ProfileMetadata, html string) *mail.SGMailV3 {
	from := mail.NewEmail("spotify-report", config.From)
	to := mail.NewEmail(config.To, config.To)
	return mail.NewSingleEmail(from, emailSubject(meta), to, emailText(meta), html)
}

func sendEmail(config SendEmailConfig, out io.Writer) error {
	meta, err := readSummary(config.OutputDir)
	if err != nil {
		return err
	}
	html, err := os.ReadFile(filepath.Join(config.OutputDir, "report.html"))
	if err != nil {
		return fmt.Errorf("reading report: %w", err)
	}
	message := newReportMessage(config, meta, string(html))

	if config.DryRun {
		fmt.Fprintf(out, "Would have sent email to %s: \nsubject: %s\n%s\n", config.To, message.Subject, emailText(meta))
		return nil
	}
	if config.APIKey == "" {
		return fmt.Errorf("sendgrid_api_key must be set in order to send emails")
	}

	client := sendgrid.NewSendClient(config.APIKey)
	resp, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("sendEmail: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendEmail: status %d: %s", resp.StatusCode, resp.Body)
	}
	fmt.Fprintf(out, "Sent report to %s\n", config.To)
	return nil
}
