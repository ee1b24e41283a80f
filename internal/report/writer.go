// Package report renders an analysis.Report: terminal tables, CSV files,
// PNG charts and a self-contained HTML document.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ademuri/spotify-report/internal/aggregate"
	"github.com/ademuri/spotify-report/internal/logging"
)

// OutputWriteError reports a file under the output directory that could not
// be written. It is never fatal: the document still holds the content.
type OutputWriteError struct {
	Path string
	Err  error
}

func (e *OutputWriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *OutputWriteError) Unwrap() error { return e.Err }

var (
	invalidChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slug turns a table or chart name into a file name stem.
func Slug(name string) string {
	s := invalidChars.ReplaceAllString(strings.ToLower(name), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "unnamed"
	}
	return s
}

// Writer saves report artifacts under Dir, overwriting existing files.
type Writer struct {
	Dir         string
	WriteCSV    bool
	WriteCharts bool
}

func (w Writer) Path(name, ext string) string {
	return filepath.Join(w.Dir, Slug(name)+ext)
}

func (w Writer) SaveCSV(t aggregate.Table) error {
	if !w.WriteCSV {
		return nil
	}
	return writeFile(w.Path(t.Name, ".csv"), func(out io.Writer) error {
		cw := csv.NewWriter(out)
		return cw.WriteAll(t.Records())
	})
}

func (w Writer) SaveChart(name string, png []byte) error {
	if !w.WriteCharts || png == nil {
		return nil
	}
	return w.SaveFile(name+".png", png)
}

// SaveFile writes data to Dir/name as is.
func (w Writer) SaveFile(name string, data []byte) error {
	return writeFile(filepath.Join(w.Dir, name), func(out io.Writer) error {
		_, err := out.Write(data)
		return err
	})
}

func writeFile(path string, fill func(io.Writer) error) (err error) {
	wrap := func(err error) error { return &OutputWriteError{Path: path, Err: err} }

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return wrap(err)
	}
	f, err := os.Create(path)
	if err != nil {
		return wrap(err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = wrap(cerr)
		}
	}()
	if err := fill(f); err != nil {
		return wrap(err)
	}
	return nil
}

// WriteDocument saves every table, chart, the HTML document and the YAML
// summary. Write failures are logged and counted; only rendering failures
// are returned as errors.
func (w Writer) WriteDocument(doc *Document) (failed int, err error) {
	record := func(what string, werr error) {
		if werr != nil {
			failed++
			logging.Warn().Err(werr).Str("output", what).Msg("could not write output, continuing")
		}
	}

	for _, s := range doc.Sections {
		record(s.Name+".csv", w.SaveCSV(s.Table))
		record(s.Name+".png", w.SaveChart(Slug(s.Name), s.PNG))
	}

	html, err := doc.HTML()
	if err != nil {
		return failed, fmt.Errorf("rendering document: %w", err)
	}
	record("report.html", w.SaveFile("report.html", html))

	summary, err := doc.YAML()
	if err != nil {
		return failed, fmt.Errorf("rendering summary: %w", err)
	}
	record("report.yaml", w.SaveFile("report.yaml", summary))

	if doc.QRCode != nil {
		record("top_track_qr.png", w.SaveFile("top_track_qr.png", doc.QRCode))
	}

	logging.Info().Str("dir", w.Dir).Int("failed", failed).Msg("wrote report outputs")
	return failed, nil
}
