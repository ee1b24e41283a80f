package report

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ademuri/spotify-report/internal/aggregate"
	"github.com/ademuri/spotify-report/internal/analysis"
)

func yearsTable() aggregate.Table {
	return aggregate.Table{
		Name:     "hours_per_year",
		Keys:     []string{"year"},
		Measures: []string{"plays", "hours"},
		Rows: []aggregate.Row{
			{Key: []string{"2020"}, Values: []float64{10, 1.5}},
			{Key: []string{"2021"}, Values: []float64{20, 2.25}},
		},
	}
}

func deviceTable() aggregate.Table {
	return aggregate.Table{
		Name:     "device_per_year",
		Keys:     []string{"year", "device"},
		Measures: []string{"hours_share"},
		Rows: []aggregate.Row{
			{Key: []string{"2020", "Phone"}, Values: []float64{0.25}},
			{Key: []string{"2020", ""}, Values: []float64{0.75}},
			{Key: []string{"2021", "Phone"}, Values: []float64{1}},
		},
	}
}

func heatTable() aggregate.Table {
	t := aggregate.Table{Name: "hourly_heatmap", Keys: []string{"weekday", "hour"}, Measures: []string{"hours"}}
	for d := 1; d <= 7; d++ {
		for h := 0; h < 24; h++ {
			t.Rows = append(t.Rows, aggregate.Row{
				Key:    []string{string(rune('0' + d)), twoDigits(h)},
				Values: []float64{float64(d * h)},
			})
		}
	}
	return t
}

func twoDigits(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}

func sampleReport() *analysis.Report {
	return &analysis.Report{
		Metadata: analysis.ProfileMetadata{
			RunID:         "3f1c1d2e-1111-4222-8333-444455556666",
			GeneratedDate: "2021-03-01",
			TotalEvents:   30,
			TopTrackURI:   "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
		},
		Sections: []analysis.Section{
			{
				Name:  "hours_per_year",
				Title: "Hours listened per year",
				Table: yearsTable(),
				Chart: &analysis.Chart{Kind: analysis.ChartBar, Title: "Hours", X: "year", Value: "hours"},
			},
			{Name: "device_per_year", Title: "Listening by device", Table: deviceTable()},
		},
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"hours_per_year":     "hours_per_year",
		"Top Artists (2020)": "top_artists_2020",
		"a/b\\c":             "a_b_c",
		"???":                "unnamed",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSaveCSVOverwrites(t *testing.T) {
	w := Writer{Dir: filepath.Join(t.TempDir(), "out"), WriteCSV: true}
	table := yearsTable()
	if err := w.SaveCSV(table); err != nil {
		t.Fatalf("SaveCSV: %v", err)
	}
	table.Rows = table.Rows[:1]
	if err := w.SaveCSV(table); err != nil {
		t.Fatalf("SaveCSV: %v", err)
	}
	got, err := os.ReadFile(w.Path("hours_per_year", ".csv"))
	if err != nil {
		t.Fatal(err)
	}
	want := "year,plays,hours\n2020,10,1.5000\n"
	if string(got) != want {
		t.Errorf("csv = %q, want %q", got, want)
	}
}

func TestSaveDisabled(t *testing.T) {
	dir := t.TempDir()
	w := Writer{Dir: dir}
	if err := w.SaveCSV(yearsTable()); err != nil {
		t.Fatal(err)
	}
	if err := w.SaveChart("hours", []byte("png")); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no files, got %d", len(entries))
	}
}

func blockedDir(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSaveCSVWriteError(t *testing.T) {
	w := Writer{Dir: blockedDir(t), WriteCSV: true}
	err := w.SaveCSV(yearsTable())
	var writeErr *OutputWriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected OutputWriteError, got %v", err)
	}
	if !strings.HasSuffix(writeErr.Path, "hours_per_year.csv") {
		t.Errorf("error path = %s", writeErr.Path)
	}
}

func TestWriteDocumentContinuesOnFailure(t *testing.T) {
	doc, err := NewDocument(sampleReport())
	if err != nil {
		t.Fatal(err)
	}
	w := Writer{Dir: blockedDir(t), WriteCSV: true, WriteCharts: true}
	failed, err := w.WriteDocument(doc)
	if err != nil {
		t.Fatalf("write failures should not be fatal: %v", err)
	}
	// 2 CSVs, 1 chart, html, yaml, qr code
	if failed != 6 {
		t.Errorf("failed = %d, want 6", failed)
	}
}

func TestWriteDocument(t *testing.T) {
	doc, err := NewDocument(sampleReport())
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	w := Writer{Dir: dir, WriteCSV: true, WriteCharts: true}
	failed, err := w.WriteDocument(doc)
	if err != nil || failed != 0 {
		t.Fatalf("WriteDocument = %d, %v", failed, err)
	}
	for _, name := range []string{"hours_per_year.csv", "device_per_year.csv", "hours_per_year.png", "report.html", "report.yaml", "top_track_qr.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "device_per_year.png")); !os.IsNotExist(err) {
		t.Error("sections without a chart should not produce an image")
	}
}

func TestRenderChart(t *testing.T) {
	cases := []struct {
		name  string
		table aggregate.Table
		chart analysis.Chart
	}{
		{"bar", yearsTable(), analysis.Chart{Kind: analysis.ChartBar, Title: "Hours", X: "year", Value: "hours"}},
		{"dodged", deviceTable(), analysis.Chart{Kind: analysis.ChartBar, Title: "Device", X: "year", Value: "hours_share", Fill: "device"}},
		{"horizontal", deviceTable(), analysis.Chart{Kind: analysis.ChartBar, Title: "Device", X: "device", Value: "hours_share", Facet: "year", Horizontal: true}},
		{"line", yearsTable(), analysis.Chart{Kind: analysis.ChartLine, Title: "Plays", X: "year", Value: "plays"}},
		{"heatmap", heatTable(), analysis.Chart{Kind: analysis.ChartHeatmap, Title: "Heat", X: "hour", Row: "weekday", Value: "hours"}},
		{"empty", aggregate.Table{Name: "empty", Keys: []string{"year"}, Measures: []string{"plays"}},
			analysis.Chart{Kind: analysis.ChartBar, Title: "Nothing", X: "year", Value: "plays"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := RenderChart(tc.table, tc.chart)
			if err != nil {
				t.Fatalf("RenderChart: %v", err)
			}
			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("decoding png: %v", err)
			}
			if img.Bounds().Dx() != chartWidth {
				t.Errorf("width = %d, want %d", img.Bounds().Dx(), chartWidth)
			}
		})
	}
}

func TestRenderChartMissingColumn(t *testing.T) {
	if _, err := RenderChart(yearsTable(), analysis.Chart{Kind: analysis.ChartBar, X: "month", Value: "hours"}); err == nil {
		t.Error("expected an error for an unknown key column")
	}
	if _, err := RenderChart(yearsTable(), analysis.Chart{Kind: analysis.ChartBar, X: "year", Value: "minutes"}); err == nil {
		t.Error("expected an error for an unknown measure")
	}
}

func TestFormatTable(t *testing.T) {
	out := FormatTable(deviceTable(), "3 rows")
	for _, want := range []string{"YEAR", "DEVICE", "Phone", unknown, "0.2500", "3 rows"} {
		if !strings.Contains(strings.ToUpper(out), strings.ToUpper(want)) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestDocumentHTMLAndYAML(t *testing.T) {
	doc, err := NewDocument(sampleReport())
	if err != nil {
		t.Fatal(err)
	}
	if doc.QRCode == nil {
		t.Error("expected a qr code for the top track")
	}
	html, err := doc.HTML()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Hours listened per year", "Listening by device", "data:image/png;base64,", unknown, "2021-03-01"} {
		if !bytes.Contains(html, []byte(want)) {
			t.Errorf("html missing %q", want)
		}
	}

	summary, err := doc.YAML()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"run_id: 3f1c1d2e-1111-4222-8333-444455556666", "total_events: 30"} {
		if !bytes.Contains(summary, []byte(want)) {
			t.Errorf("yaml missing %q:\n%s", want, summary)
		}
	}
}

func TestHTMLTruncatesLongTables(t *testing.T) {
	r := &analysis.Report{Sections: []analysis.Section{{Name: "hourly_heatmap", Title: "Heat", Table: heatTable()}}}
	doc, err := NewDocument(r)
	if err != nil {
		t.Fatal(err)
	}
	html, err := doc.HTML()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(html, []byte("First 50 of 168 rows; see hourly_heatmap.csv.")) {
		t.Error("expected a truncation note")
	}
}

func TestTrackLink(t *testing.T) {
	cases := map[string]string{
		"spotify:track:abc":   "https://open.spotify.com/track/abc",
		"spotify:episode:abc": "",
		"spotify:track:":      "",
		"":                    "",
	}
	for in, want := range cases {
		if got := TrackLink(in); got != want {
			t.Errorf("TrackLink(%q) = %q, want %q", in, got, want)
		}
	}
}
