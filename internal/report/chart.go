// Package report renders study artifacts: the aligned CSV table, the
// statistics JSON, the run manifest, and a self-contained HTML page
// with embedded SVG charts.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/avelek/newspulse/internal/analysis"
	"github.com/avelek/newspulse/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// SVG Chart Rendering: shared config and helpers
// ════════════════════════════════════════════════════════════════════

// ChartConfig holds rendering parameters for SVG charts.
type ChartConfig struct {
	Width        int    // SVG width in pixels (default: 860)
	Height       int    // SVG height in pixels (default: 360)
	MarginTop    int    // top margin (default: 40)
	MarginRight  int    // right margin (default: 70)
	MarginBottom int    // bottom margin (default: 50)
	MarginLeft   int    // left margin (default: 70)
	BgColor      string // background color (default: "#ffffff")
	GridColor    string // grid line color (default: "#e8e8e8")
	TextColor    string // axis label color (default: "#333333")
	FontSize     int    // axis label font size (default: 11)
	Title        string // chart title
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        860,
		Height:       360,
		MarginTop:    40,
		MarginRight:  70,
		MarginBottom: 50,
		MarginLeft:   70,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		TextColor:    "#333333",
		FontSize:     11,
	}
}

// plotArea returns the usable drawing area dimensions.
func (c ChartConfig) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

// ════════════════════════════════════════════════════════════════════
// Series Chart: sentiment and close on independent scales
// ════════════════════════════════════════════════════════════════════

const (
	closeColor     = "#2196f3"
	sentimentColor = "#ff9800"
)

// SeriesChart draws both daily series over the aligned axis. Close uses
// the left scale and sentiment the right one, since tone and price live
// on unrelated ranges. Absent days break the line instead of being
// bridged, so a gap in the data is visible as a gap in the chart.
func SeriesChart(rows []models.AlignedRow, cfg ChartConfig) string {
	if len(rows) == 0 {
		return emptySVG(cfg, "No aligned data")
	}

	if cfg.Width == 0 {
		cfg = DefaultChartConfig()
	}
	if cfg.Title == "" {
		cfg.Title = "Sentiment vs Close"
	}

	px, py, pw, ph := cfg.plotArea()

	closeScale, closeOK := scaleFor(rows, func(r models.AlignedRow) models.Sample { return r.Close })
	sentiScale, sentiOK := scaleFor(rows, func(r models.AlignedRow) models.Sample { return r.Sentiment })
	if !closeOK && !sentiOK {
		return emptySVG(cfg, "No data points")
	}

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title)))

	// Horizontal grid with left (close) and right (sentiment) labels.
	gridLines := 5
	for i := 0; i <= gridLines; i++ {
		y := py + ph - int(float64(ph)*float64(i)/float64(gridLines))
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-dasharray="3,3"/>`,
			px, y, px+pw, y, cfg.GridColor))
		if closeOK {
			val := closeScale.min + closeScale.span()*float64(i)/float64(gridLines)
			sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="%d" fill="%s" text-anchor="end">%.2f</text>`,
				px-5, y+4, cfg.FontSize, closeColor, val))
		}
		if sentiOK {
			val := sentiScale.min + sentiScale.span()*float64(i)/float64(gridLines)
			sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="%d" fill="%s" text-anchor="start">%.2f</text>`,
				px+pw+5, y+4, cfg.FontSize, sentimentColor, val))
		}
	}

	if closeOK {
		sb.WriteString(seriesPath(rows, px, py, pw, ph, closeScale, closeColor,
			func(r models.AlignedRow) models.Sample { return r.Close }))
	}
	if sentiOK {
		sb.WriteString(seriesPath(rows, px, py, pw, ph, sentiScale, sentimentColor,
			func(r models.AlignedRow) models.Sample { return r.Sentiment }))
	}

	// Legend
	legend := []struct {
		name  string
		color string
		ok    bool
	}{
		{"Close", closeColor, closeOK},
		{"Sentiment", sentimentColor, sentiOK},
	}
	li := 0
	for _, item := range legend {
		if !item.ok {
			continue
		}
		ly := py + 10 + li*16
		li++
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="2"/>`,
			px+10, ly, px+30, ly, item.color))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="10" fill="%s">%s</text>`,
			px+35, ly+4, cfg.TextColor, item.name))
	}

	// X-axis date labels.
	n := len(rows)
	labelInterval := n / 6
	if labelInterval < 1 {
		labelInterval = 1
	}
	for i := 0; i < n; i += labelInterval {
		cx := xAt(i, n, px, pw)
		label := rows[i].Date.String()
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle" transform="rotate(-45,%.1f,%d)">%s</text>`,
			cx, py+ph+15, cfg.FontSize-1, cfg.TextColor, cx, py+ph+15, label))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// axisScale maps a value range onto the plot height with 5% padding.
type axisScale struct {
	min, max float64
}

func (s axisScale) span() float64 { return s.max - s.min }

// scaleFor computes the padded scale of one optional series, reporting
// whether any value was present at all.
func scaleFor(rows []models.AlignedRow, pick func(models.AlignedRow) models.Sample) (axisScale, bool) {
	min, max := math.MaxFloat64, -math.MaxFloat64
	any := false
	for _, r := range rows {
		s := pick(r)
		if !s.Present {
			continue
		}
		any = true
		if s.Value < min {
			min = s.Value
		}
		if s.Value > max {
			max = s.Value
		}
	}
	if !any {
		return axisScale{}, false
	}
	span := max - min
	if span < 1e-9 {
		span = 1
	}
	return axisScale{min: min - span*0.05, max: max + span*0.05}, true
}

// seriesPath builds the polyline for one series. An absent day closes
// the current subpath, so the next present day starts a new one.
func seriesPath(rows []models.AlignedRow, px, py, pw, ph int, scale axisScale, color string, pick func(models.AlignedRow) models.Sample) string {
	var parts []string
	penDown := false
	for i, r := range rows {
		s := pick(r)
		if !s.Present {
			penDown = false
			continue
		}
		cx := xAt(i, len(rows), px, pw)
		ratio := (s.Value - scale.min) / scale.span()
		cy := float64(py+ph) - ratio*float64(ph)
		cmd := "L"
		if !penDown {
			cmd = "M"
			penDown = true
		}
		parts = append(parts, fmt.Sprintf("%s%.1f,%.1f", cmd, cx, cy))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf(`<path d="%s" fill="none" stroke="%s" stroke-width="2"/>`,
		strings.Join(parts, " "), color)
}

func xAt(i, n, px, pw int) float64 {
	if n <= 1 {
		return float64(px) + float64(pw)/2
	}
	return float64(px) + float64(i)*float64(pw)/float64(n-1)
}

// ════════════════════════════════════════════════════════════════════
// Lag Chart: correlation by lead, lag 0 first
// ════════════════════════════════════════════════════════════════════

// LagChart draws the Pearson coefficient at each sentiment lead as a
// vertical bar on a fixed -1..+1 scale. Lags with no computable value
// get no bar, only the axis label.
func LagChart(contemporaneous analysis.Correlation, leads []analysis.LagCorrelation, cfg ChartConfig) string {
	if cfg.Width == 0 {
		cfg = DefaultChartConfig()
	}
	if cfg.Title == "" {
		cfg.Title = "Correlation by Lead (days sentiment precedes price)"
	}

	bars := make([]analysis.LagCorrelation, 0, len(leads)+1)
	bars = append(bars, analysis.LagCorrelation{Lag: 0, Correlation: contemporaneous})
	bars = append(bars, leads...)

	px, py, pw, ph := cfg.plotArea()

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title)))

	// Fixed -1..+1 grid so runs are comparable across studies.
	for i := 0; i <= 4; i++ {
		val := -1 + 0.5*float64(i)
		y := py + ph - int(float64(ph)*float64(i)/4)
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-dasharray="3,3"/>`,
			px, y, px+pw, y, cfg.GridColor))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="%d" fill="%s" text-anchor="end">%.1f</text>`,
			px-5, y+4, cfg.FontSize, cfg.TextColor, val))
	}
	zeroY := py + ph/2
	sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#999" stroke-width="1"/>`,
		px, zeroY, px+pw, zeroY))

	n := len(bars)
	slot := float64(pw) / float64(n)
	barW := slot * 0.6
	if barW > 48 {
		barW = 48
	}

	for i, bar := range bars {
		cx := float64(px) + slot*float64(i) + slot/2

		if bar.Pearson.Present {
			r := bar.Pearson.Value
			h := math.Abs(r) / 2 * float64(ph)
			by := float64(zeroY) - h
			color := "#4caf50"
			if r < 0 {
				by = float64(zeroY)
				color = "#ef5350"
			}
			sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" rx="2"/>`,
				cx-barW/2, by, barW, h, color))
			vy := by - 4
			if r < 0 {
				vy = by + h + 12
			}
			sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" font-size="%d" fill="%s" text-anchor="middle">%.2f</text>`,
				cx, vy, cfg.FontSize-1, cfg.TextColor, r))
		}

		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%d</text>`,
			cx, py+ph+18, cfg.FontSize, cfg.TextColor, bar.Lag))
	}

	sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="%d" fill="%s" text-anchor="middle">lead (days)</text>`,
		px+pw/2, py+ph+35, cfg.FontSize, cfg.TextColor))

	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// SVG Helpers
// ════════════════════════════════════════════════════════════════════

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg ChartConfig, msg string) string {
	if cfg.Width == 0 {
		cfg.Width = 400
	}
	if cfg.Height == 0 {
		cfg.Height = 200
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}
