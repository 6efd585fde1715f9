package render

import (
	"fmt"
	"math"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/rotisserie/eris"

	"github.com/la-crime/crimetracts/internal/stats"
)

// ErrNoCrimeTypes is returned by TypesChart when the table has no crime-type
// columns.
var ErrNoCrimeTypes = eris.New("render: no crime type columns in statistics table")

const chartTypes = 10

type typeTotal struct {
	label string
	total int
}

// topTypes returns up to n column totals by descending count, ties by name.
func topTypes(table *stats.Table, n int) []typeTotal {
	var out []typeTotal
	for _, c := range table.TypeTotals() {
		out = append(out, typeTotal{label: stats.DisplayName(c.Name), total: c.Total})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].total != out[j].total {
			return out[i].total > out[j].total
		}
		return out[i].label < out[j].label
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// TypesChart draws a pie chart (left) and a horizontal bar chart (right) of
// the ten largest crime-type totals.
func TypesChart(table *stats.Table, path string, opts Options) error {
	top := topTypes(table, chartTypes)
	if len(top) == 0 {
		return ErrNoCrimeTypes
	}

	c, err := newCanvas(opts.Width, opts.Height)
	if err != nil {
		return err
	}

	c.drawPie(top, 0, c.w/2)
	c.drawBars(top, c.w/2, c.w)

	return c.save(path)
}

func (c *canvas) drawPie(top []typeTotal, x0, x1 float64) {
	dc := c.dc
	dc.SetFontFace(c.label)
	dc.SetColor(edgeColor)
	dc.DrawStringAnchored("Top 10 Most Common Crime Types in Los Angeles", (x0+x1)/2, c.h*0.06, 0.5, 0.5)

	var sum float64
	for _, s := range top {
		sum += float64(s.total)
	}

	width := x1 - x0
	r := math.Min(width*0.28, c.h*0.3)
	cx, cy := x0+width*0.33, c.h*0.45

	// Counter-clockwise from twelve o'clock.
	start := -math.Pi / 2
	dc.SetFontFace(c.small)
	for i, s := range top {
		frac := 0.0
		if sum > 0 {
			frac = float64(s.total) / sum
		}
		end := start - frac*2*math.Pi

		dc.MoveTo(cx, cy)
		dc.DrawArc(cx, cy, r, start, end)
		dc.ClosePath()
		dc.SetColor(tab20[i%len(tab20)])
		dc.FillPreserve()
		dc.SetColor(white)
		dc.SetLineWidth(1)
		dc.Stroke()

		mid := (start + end) / 2
		dc.SetColor(edgeColor)
		dc.DrawStringAnchored(fmt.Sprintf("%.1f%%", frac*100), cx+0.6*r*math.Cos(mid), cy+0.6*r*math.Sin(mid), 0.5, 0.5)
		start = end
	}

	// Legend to the right of the pie.
	lx := cx + r + width*0.04
	ly := cy - float64(len(top))*c.h*0.0175
	dc.SetFontFace(c.small)
	dc.DrawString("Crime Types", lx, ly-c.h*0.015)
	for i, s := range top {
		y := ly + float64(i)*c.h*0.035
		c.drawSwatch(lx, y, c.h*0.02, c.h*0.02, tab20[i%len(tab20)])
		dc.SetColor(edgeColor)
		dc.DrawStringAnchored(s.label, lx+c.h*0.03, y+c.h*0.01, 0, 0.35)
	}
}

func (c *canvas) drawBars(top []typeTotal, x0, x1 float64) {
	dc := c.dc
	dc.SetFontFace(c.label)
	dc.SetColor(edgeColor)
	dc.DrawStringAnchored("Top 10 Most Common Crime Types Count in Los Angeles", (x0+x1)/2, c.h*0.06, 0.5, 0.5)

	dc.SetFontFace(c.small)
	var labelW float64
	maxTotal := 0
	for _, s := range top {
		w, _ := dc.MeasureString(s.label)
		labelW = math.Max(labelW, w)
		maxTotal = max(maxTotal, s.total)
	}

	left := x0 + labelW + 12
	right := x1 - (x1-x0)*0.12
	top0, bottom := c.h*0.12, c.h*0.92
	rowH := (bottom - top0) / float64(len(top))

	dc.SetColor(edgeColor)
	dc.SetLineWidth(1)
	dc.DrawLine(left, top0, left, bottom)
	dc.Stroke()

	for i, s := range top {
		y := top0 + float64(i)*rowH
		barLen := 0.0
		if maxTotal > 0 {
			barLen = (right - left) * float64(s.total) / float64(maxTotal)
		}
		dc.DrawRectangle(left, y+rowH*0.1, barLen, rowH*0.8)
		dc.SetColor(tab20[i%len(tab20)])
		dc.Fill()

		dc.SetColor(edgeColor)
		dc.DrawStringAnchored(s.label, left-6, y+rowH/2, 1, 0.35)
		dc.DrawStringAnchored(humanize.Comma(int64(s.total)), left+barLen+4, y+rowH/2, 0, 0.35)
	}
}
