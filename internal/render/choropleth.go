package render

import (
	"image/color"
	"math"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Choropleth draws every tract shaded by total crimes on the OrRd ramp, with
// tracts lacking statistics in light grey and a colour bar on the right.
func Choropleth(m *Map, path string, opts Options) error {
	c, err := newCanvas(opts.Width, opts.Height)
	if err != nil {
		return err
	}
	c.drawTitle("Crime Heatmap by Census Tract in Los Angeles")

	n := newNorm(m.Totals())
	zap.L().Debug("render: heatmap range",
		zap.String("component", "render"),
		zap.Float64("min", n.min),
		zap.Float64("max", n.max),
		zap.Bool("log", n.log),
	)

	barW := c.w * 0.015
	barX := c.w*0.92 - barW
	f := fitFrame(m.Layer, c.w*0.03, c.h*0.08, barX-c.w*0.05, c.h*0.97)
	for _, ft := range m.Features {
		fill := color.Color(missingColor)
		if ft.Row != nil {
			fill = OrRd.At(n.apply(float64(ft.Row.Total)))
		}
		c.drawTract(f, ft.Tract.Geom, fill)
	}

	c.drawColorBar(n, barX, c.h*0.2, barW, c.h*0.6)

	return c.save(path)
}

// drawColorBar draws the ramp bottom (low) to top (high) with five ticks.
func (c *canvas) drawColorBar(n norm, x, y, w, h float64) {
	dc := c.dc
	steps := int(math.Max(1, h))
	for i := 0; i < steps; i++ {
		t := 1 - float64(i)/float64(steps)
		dc.DrawRectangle(x, y+float64(i)*h/float64(steps), w, h/float64(steps)+1)
		dc.SetColor(OrRd.At(t))
		dc.Fill()
	}
	dc.DrawRectangle(x, y, w, h)
	dc.SetColor(edgeColor)
	dc.SetLineWidth(1)
	dc.Stroke()

	dc.SetFontFace(c.small)
	for i := 0; i <= 4; i++ {
		t := float64(i) / 4
		ty := y + h - t*h
		dc.DrawLine(x+w, ty, x+w+5, ty)
		dc.Stroke()
		dc.DrawStringAnchored(humanize.Comma(int64(math.Round(n.inverse(t)))), x+w+8, ty, 0, 0.35)
	}

	dc.SetFontFace(c.label)
	dc.Push()
	dc.RotateAbout(-math.Pi/2, x+w+c.w*0.05, y+h/2)
	dc.DrawStringAnchored("Crime Count", x+w+c.w*0.05, y+h/2, 0.5, 0.5)
	dc.Pop()
}

// BasicMap draws every tract in light grey. It is the diagnostic output used
// when no statistics matched the layer.
func BasicMap(m *Map, path string, opts Options) error {
	c, err := newCanvas(opts.Width, opts.Height)
	if err != nil {
		return err
	}
	c.drawTitle("Los Angeles Census Tracts (No Crime Data Matched)")

	f := fitFrame(m.Layer, c.w*0.03, c.h*0.08, c.w*0.97, c.h*0.97)
	for _, ft := range m.Features {
		c.drawTract(f, ft.Tract.Geom, missingColor)
	}
	return c.save(path)
}
