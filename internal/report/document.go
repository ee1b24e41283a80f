package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"strings"

	"github.com/skip2/go-qrcode"
	"gopkg.in/yaml.v3"

	"github.com/ademuri/spotify-report/internal/aggregate"
	"github.com/ademuri/spotify-report/internal/analysis"
)

// htmlRowLimit caps rows per table in the HTML document; the CSV files hold
// the rest.
const htmlRowLimit = 50

type RenderedSection struct {
	analysis.Section
	// PNG is nil for sections without a chart.
	PNG []byte
}

// Document is a report with every chart already rendered, so it can be
// written out even when saving individual files fails.
type Document struct {
	Report   *analysis.Report
	Sections []RenderedSection
	QRCode   []byte
}

func NewDocument(r *analysis.Report) (*Document, error) {
	doc := &Document{Report: r}
	for _, s := range r.Sections {
		rs := RenderedSection{Section: s}
		if s.Chart != nil {
			png, err := RenderChart(s.Table, *s.Chart)
			if err != nil {
				return nil, fmt.Errorf("rendering %s: %w", s.Name, err)
			}
			rs.PNG = png
		}
		doc.Sections = append(doc.Sections, rs)
	}

	if link := TrackLink(r.Metadata.TopTrackURI); link != "" {
		png, err := qrcode.Encode(link, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encoding qr code: %w", err)
		}
		doc.QRCode = png
	}
	return doc, nil
}

// TrackLink turns a spotify:track:<id> URI into an open.spotify.com link.
func TrackLink(uri string) string {
	const prefix = "spotify:track:"
	if !strings.HasPrefix(uri, prefix) || len(uri) == len(prefix) {
		return ""
	}
	return "https://open.spotify.com/track/" + strings.TrimPrefix(uri, prefix)
}

func (d *Document) YAML() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(d.Report); err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return buf.Bytes(), nil
}

func dataURI(png []byte) template.URL {
	if png == nil {
		return ""
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
}

type htmlTable struct {
	Header    []string
	Rows      [][]string
	Truncated int
	File      string
}

type htmlSection struct {
	Name  string
	Title string
	Chart template.URL
	Table htmlTable
}

func tableView(t aggregate.Table) htmlTable {
	records := displayRecords(t)
	v := htmlTable{Header: records[0], Rows: records[1:], File: Slug(t.Name) + ".csv"}
	if len(v.Rows) > htmlRowLimit {
		v.Truncated = len(v.Rows)
		v.Rows = v.Rows[:htmlRowLimit]
	}
	return v
}

var page = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Listening report {{.Meta.GeneratedDate}}</title>
<style>
body { font-family: sans-serif; max-width: 1040px; margin: 2em auto; color: #282828; }
table { border-collapse: collapse; margin: 1em 0; font-size: 13px; }
th, td { border: 1px solid #ddd; padding: 3px 8px; text-align: left; }
th { background: #f3f3f3; }
img { max-width: 100%; }
.meta td:first-child { font-weight: bold; }
.note { color: #777; font-size: 12px; }
</style>
</head>
<body>
<h1>Listening report</h1>
<table class="meta">
<tr><td>Generated</td><td>{{.Meta.GeneratedDate}}</td></tr>
<tr><td>Run</td><td>{{.Meta.RunID}}</td></tr>
<tr><td>Period</td><td>{{.Meta.FirstDate}} to {{.Meta.LastDate}}</td></tr>
<tr><td>Plays</td><td>{{.Meta.TotalEvents}}</td></tr>
<tr><td>Hours</td><td>{{.Meta.TotalHours}}</td></tr>
<tr><td>Artists</td><td>{{.Meta.TotalArtists}}</td></tr>
<tr><td>Tracks</td><td>{{.Meta.TotalTracks}}</td></tr>
<tr><td>Listening style</td><td>{{.Meta.ListeningStyle}}</td></tr>
</table>
{{if .QRCode}}<p><img src="{{.QRCode}}" alt="Most played track" width="160"><br><span class="note">Most played track</span></p>{{end}}
{{range .Sections}}
<h2 id="{{.Name}}">{{.Title}}</h2>
{{if .Chart}}<img src="{{.Chart}}" alt="{{.Title}}">{{end}}
<table>
<tr>{{range .Table.Header}}<th>{{.}}</th>{{end}}</tr>
{{range .Table.Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>
{{if .Table.Truncated}}<p class="note">First {{len .Table.Rows}} of {{.Table.Truncated}} rows; see {{.Table.File}}.</p>{{end}}
{{end}}
</body>
</html>
`))

// HTML renders the whole report as one file with charts embedded as data
// URIs.
func (d *Document) HTML() ([]byte, error) {
	view := struct {
		Meta     analysis.ProfileMetadata
		QRCode   template.URL
		Sections []htmlSection
	}{
		Meta:   d.Report.Metadata,
		QRCode: dataURI(d.QRCode),
	}
	for _, s := range d.Sections {
		view.Sections = append(view.Sections, htmlSection{
			Name:  s.Name,
			Title: s.Title,
			Chart: dataURI(s.PNG),
			Table: tableView(s.Table),
		})
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}
	return buf.Bytes(), nil
}

// Text renders every section as terminal tables.
func (d *Document) Text() string {
	var b strings.Builder
	for _, s := range d.Sections {
		fmt.Fprintf(&b, "\n%s\n", s.Title)
		b.WriteString(FormatTable(s.Table, ""))
	}
	return b.String()
}
