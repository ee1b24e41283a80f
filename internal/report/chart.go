package report

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"sort"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/ademuri/spotify-report/internal/aggregate"
	"github.com/ademuri/spotify-report/internal/analysis"
)

const (
	chartWidth   = 1000
	titleHeight  = 50
	panelHeight  = 320
	legendHeight = 40
	barRow       = 16
	heatmapCell  = 22

	titleFontSize = 20
	labelFontSize = 11
	maxLabelRunes = 32
	maxXLabels    = 26
)

var (
	background = color.RGBA{255, 255, 255, 255}
	ink        = color.RGBA{40, 40, 40, 255}
	gridColor  = color.RGBA{220, 220, 220, 255}
	heatLow    = color.RGBA{240, 248, 240, 255}
	heatHigh   = color.RGBA{20, 140, 70, 255}

	palette = []color.Color{
		color.RGBA{30, 185, 84, 255},
		color.RGBA{0, 0, 139, 255},
		color.RGBA{184, 134, 11, 255},
		color.RGBA{139, 0, 0, 255},
		color.RGBA{80, 0, 80, 255},
		color.RGBA{255, 105, 180, 255},
		color.RGBA{64, 64, 64, 255},
		color.RGBA{173, 216, 230, 255},
	}
)

var (
	fontOnce sync.Once
	regular  *truetype.Font
	fontErr  error
)

func face(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		regular, fontErr = truetype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fmt.Errorf("parsing font: %w", fontErr)
	}
	return truetype.NewFace(regular, &truetype.Options{Size: size}), nil
}

// panel is the slice of a table drawn in one facet.
type panel struct {
	title  string
	xs     []string
	series []string
	values map[[2]string]float64
}

func (p *panel) value(x, s string) float64 { return p.values[[2]string{x, s}] }

func mustKey(t aggregate.Table, name string) (int, error) {
	if name == "" {
		return -1, nil
	}
	i := t.KeyIndex(name)
	if i < 0 {
		return 0, fmt.Errorf("chart for %q: no key column %q", t.Name, name)
	}
	return i, nil
}

// panels splits t by facet, keeping x values and series in first-seen order.
// Heatmap axes are sorted instead.
func panels(t aggregate.Table, c analysis.Chart) ([]*panel, error) {
	xi, err := mustKey(t, c.X)
	if err != nil {
		return nil, err
	}
	if xi < 0 {
		return nil, fmt.Errorf("chart for %q: no x column", t.Name)
	}
	vi := t.MeasureIndex(c.Value)
	if vi < 0 {
		return nil, fmt.Errorf("chart for %q: no measure %q", t.Name, c.Value)
	}
	seriesCol := c.Fill
	if c.Kind == analysis.ChartHeatmap {
		seriesCol = c.Row
	}
	si, err := mustKey(t, seriesCol)
	if err != nil {
		return nil, err
	}
	fi, err := mustKey(t, c.Facet)
	if err != nil {
		return nil, err
	}

	var out []*panel
	byFacet := make(map[string]*panel)
	for _, r := range t.Rows {
		facet := ""
		if fi >= 0 {
			facet = r.Key[fi]
		}
		p, ok := byFacet[facet]
		if !ok {
			p = &panel{title: facet, values: make(map[[2]string]float64)}
			byFacet[facet] = p
			out = append(out, p)
		}
		x := r.Key[xi]
		s := ""
		if si >= 0 {
			s = r.Key[si]
		}
		k := [2]string{x, s}
		if _, ok := p.values[k]; !ok {
			if !contains(p.xs, x) {
				p.xs = append(p.xs, x)
			}
			if !contains(p.series, s) {
				p.series = append(p.series, s)
			}
		}
		p.values[k] += r.Values[vi]
	}

	if c.Kind == analysis.ChartHeatmap {
		for _, p := range out {
			sort.Strings(p.xs)
			sort.Strings(p.series)
		}
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// allSeries is the union of series across panels, for a shared legend and
// consistent colours.
func allSeries(ps []*panel) []string {
	var out []string
	for _, p := range ps {
		for _, s := range p.series {
			if !contains(out, s) {
				out = append(out, s)
			}
		}
	}
	return out
}

func maxValue(ps []*panel) float64 {
	m := 0.0
	for _, p := range ps {
		for _, v := range p.values {
			m = math.Max(m, v)
		}
	}
	if m == 0 {
		return 1
	}
	return m
}

func panelHeightFor(p *panel, c analysis.Chart, series int) float64 {
	switch {
	case c.Kind == analysis.ChartHeatmap:
		return float64(len(p.series)*heatmapCell + 70)
	case c.Kind == analysis.ChartBar && c.Horizontal:
		return math.Max(120, float64(len(p.xs)*(barRow*series+6)+50))
	}
	return panelHeight
}

// RenderChart draws a section table as a PNG.
func RenderChart(t aggregate.Table, c analysis.Chart) ([]byte, error) {
	ps, err := panels(t, c)
	if err != nil {
		return nil, err
	}
	series := allSeries(ps)
	colours := make(map[string]color.Color, len(series))
	for i, s := range series {
		colours[s] = palette[i%len(palette)]
	}
	barSeries := len(series)
	if barSeries == 0 {
		barSeries = 1
	}

	height := float64(titleHeight)
	for _, p := range ps {
		height += panelHeightFor(p, c, barSeries)
	}
	showLegend := c.Kind != analysis.ChartHeatmap && len(series) > 1
	if showLegend {
		height += legendHeight
	}
	if len(ps) == 0 {
		height += 60
	}

	dc := gg.NewContext(chartWidth, int(height))
	dc.SetColor(background)
	dc.Clear()

	titleFace, err := face(titleFontSize)
	if err != nil {
		return nil, err
	}
	labelFace, err := face(labelFontSize)
	if err != nil {
		return nil, err
	}

	dc.SetFontFace(titleFace)
	dc.SetColor(ink)
	dc.DrawStringAnchored(c.Title, chartWidth/2, titleHeight/2, 0.5, 0.5)
	dc.SetFontFace(labelFace)

	if len(ps) == 0 {
		dc.DrawStringAnchored("no data", chartWidth/2, titleHeight+30, 0.5, 0.5)
	}

	top := float64(titleHeight)
	maxV := maxValue(ps)
	for _, p := range ps {
		h := panelHeightFor(p, c, barSeries)
		area := rect{x: 0, y: top, w: chartWidth, h: h}
		switch {
		case c.Kind == analysis.ChartHeatmap:
			drawHeatmap(dc, p, area, maxV)
		case c.Kind == analysis.ChartLine:
			drawLines(dc, p, area, maxV, series, colours)
		case c.Horizontal:
			drawHorizontalBars(dc, p, area, maxV, series, colours)
		default:
			drawBars(dc, p, area, maxV, series, colours)
		}
		top += h
	}

	if showLegend {
		drawLegend(dc, top, series, colours)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encoding chart %q: %w", t.Name, err)
	}
	return buf.Bytes(), nil
}

type rect struct{ x, y, w, h float64 }

func label(s string) string {
	if s == "" {
		return unknown
	}
	r := []rune(s)
	if len(r) > maxLabelRunes {
		return string(r[:maxLabelRunes-1]) + "…"
	}
	return s
}

func drawPanelTitle(dc *gg.Context, p *panel, area rect) {
	if p.title == "" {
		return
	}
	dc.SetColor(ink)
	dc.DrawStringAnchored(p.title, area.x+20, area.y+12, 0, 0.5)
}

// xLabelStep thins out x labels so they do not overlap.
func xLabelStep(n int) int {
	if n <= maxXLabels {
		return 1
	}
	return (n + maxXLabels - 1) / maxXLabels
}

func drawAxes(dc *gg.Context, x0, y0, x1, y1, maxV float64) {
	dc.SetColor(gridColor)
	dc.SetLineWidth(1)
	for i := 1; i <= 4; i++ {
		y := y1 - (y1-y0)*float64(i)/4
		dc.DrawLine(x0, y, x1, y)
		dc.Stroke()
	}
	dc.SetColor(ink)
	dc.DrawLine(x0, y1, x1, y1)
	dc.Stroke()
	dc.DrawStringAnchored(aggregate.FormatValue(maxV), x0-6, y0, 1, 0.5)
	dc.DrawStringAnchored("0", x0-6, y1, 1, 0.5)
}

func drawBars(dc *gg.Context, p *panel, area rect, maxV float64, series []string, colours map[string]color.Color) {
	drawPanelTitle(dc, p, area)
	x0, x1 := area.x+70, area.x+area.w-20
	y0, y1 := area.y+30, area.y+area.h-40
	drawAxes(dc, x0, y0, x1, y1, maxV)
	if len(p.xs) == 0 {
		return
	}

	group := (x1 - x0) / float64(len(p.xs))
	bar := group * 0.8 / float64(len(series))
	step := xLabelStep(len(p.xs))
	for i, x := range p.xs {
		gx := x0 + float64(i)*group + group*0.1
		for j, s := range series {
			v := p.value(x, s)
			h := v / maxV * (y1 - y0)
			dc.SetColor(colours[s])
			dc.DrawRectangle(gx+float64(j)*bar, y1-h, bar, h)
			dc.Fill()
		}
		if i%step == 0 {
			dc.SetColor(ink)
			dc.DrawStringAnchored(label(x), x0+(float64(i)+0.5)*group, y1+14, 0.5, 0.5)
		}
	}
}

func drawHorizontalBars(dc *gg.Context, p *panel, area rect, maxV float64, series []string, colours map[string]color.Color) {
	drawPanelTitle(dc, p, area)
	x0, x1 := area.x+240, area.x+area.w-70
	y := area.y + 30
	row := float64(barRow*len(series) + 6)
	for _, x := range p.xs {
		dc.SetColor(ink)
		dc.DrawStringAnchored(label(x), x0-8, y+row/2, 1, 0.5)
		for j, s := range series {
			v := p.value(x, s)
			w := v / maxV * (x1 - x0)
			by := y + 3 + float64(j*barRow)
			dc.SetColor(colours[s])
			dc.DrawRectangle(x0, by, w, barRow-2)
			dc.Fill()
			if v > 0 {
				dc.SetColor(ink)
				dc.DrawStringAnchored(aggregate.FormatValue(v), x0+w+4, by+barRow/2, 0, 0.5)
			}
		}
		y += row
	}
}

func drawLines(dc *gg.Context, p *panel, area rect, maxV float64, series []string, colours map[string]color.Color) {
	drawPanelTitle(dc, p, area)
	x0, x1 := area.x+70, area.x+area.w-20
	y0, y1 := area.y+30, area.y+area.h-40
	drawAxes(dc, x0, y0, x1, y1, maxV)
	if len(p.xs) == 0 {
		return
	}

	xAt := func(i int) float64 {
		if len(p.xs) == 1 {
			return (x0 + x1) / 2
		}
		return x0 + float64(i)*(x1-x0)/float64(len(p.xs)-1)
	}
	yAt := func(v float64) float64 { return y1 - v/maxV*(y1-y0) }

	dc.SetLineWidth(2)
	for _, s := range series {
		dc.SetColor(colours[s])
		for i, x := range p.xs {
			if i == 0 {
				dc.MoveTo(xAt(i), yAt(p.value(x, s)))
			} else {
				dc.LineTo(xAt(i), yAt(p.value(x, s)))
			}
		}
		dc.Stroke()
		for i, x := range p.xs {
			dc.DrawCircle(xAt(i), yAt(p.value(x, s)), 3)
			dc.Fill()
		}
	}

	dc.SetColor(ink)
	step := xLabelStep(len(p.xs))
	for i, x := range p.xs {
		if i%step == 0 {
			dc.DrawStringAnchored(label(x), xAt(i), y1+14, 0.5, 0.5)
		}
	}
}

func lerp(a, b color.RGBA, t float64) color.Color {
	mix := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t) }
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 255}
}

func drawHeatmap(dc *gg.Context, p *panel, area rect, maxV float64) {
	drawPanelTitle(dc, p, area)
	x0 := area.x + 70
	y0 := area.y + 28
	if len(p.xs) == 0 {
		return
	}
	cell := math.Min(heatmapCell, (area.w-90)/float64(len(p.xs)))

	for j, s := range p.series {
		cy := y0 + float64(j)*heatmapCell
		dc.SetColor(ink)
		dc.DrawStringAnchored(label(s), x0-8, cy+heatmapCell/2, 1, 0.5)
		for i, x := range p.xs {
			dc.SetColor(lerp(heatLow, heatHigh, p.value(x, s)/maxV))
			dc.DrawRectangle(x0+float64(i)*cell, cy, cell-1, heatmapCell-1)
			dc.Fill()
		}
	}

	dc.SetColor(ink)
	labelY := y0 + float64(len(p.series))*heatmapCell + 12
	step := xLabelStep(len(p.xs))
	for i, x := range p.xs {
		if i%step == 0 {
			dc.DrawStringAnchored(x, x0+(float64(i)+0.5)*cell, labelY, 0.5, 0.5)
		}
	}
}

func drawLegend(dc *gg.Context, top float64, series []string, colours map[string]color.Color) {
	x := 70.0
	y := top + legendHeight/2
	for _, s := range series {
		dc.SetColor(colours[s])
		dc.DrawRectangle(x, y-6, 12, 12)
		dc.Fill()
		dc.SetColor(ink)
		text := label(s)
		dc.DrawStringAnchored(text, x+18, y, 0, 0.5)
		w, _ := dc.MeasureString(text)
		x += w + 40
	}
}
