package render

import (
	"fmt"
	"image/color"

	"github.com/dustin/go-humanize"

	"github.com/la-crime/crimetracts/internal/stats"
)

// tierColors are the fill colours of tiers 1..7.
var tierColors = YlOrRd.Discrete(stats.MaxTier)

// TierColor returns the fill colour of a hotspot tier.
func TierColor(tier int) color.Color {
	if tier <= stats.TierNoData || tier > stats.MaxTier {
		return missingColor
	}
	return tierColors[tier-1]
}

// TierLegend returns the legend entry of a tier: its name and, for tiers with
// data, the smallest total it holds.
func TierLegend(th stats.Thresholds, tier int) string {
	if tier == stats.TierNoData {
		return stats.TierNames[stats.TierNoData]
	}
	return fmt.Sprintf("%s (%s+ crimes)", stats.TierNames[tier], humanize.Comma(int64(th.LowerBound(tier))))
}

// Hotspots draws every tract coloured by hotspot tier with a legend in the
// lower right corner.
func Hotspots(m *Map, path string, opts Options) error {
	c, err := newCanvas(opts.Width, opts.Height)
	if err != nil {
		return err
	}
	c.drawTitle("Los Angeles Crime Hotspots Map")

	f := fitFrame(m.Layer, c.w*0.03, c.h*0.08, c.w*0.97, c.h*0.97)
	for _, ft := range m.Features {
		c.drawTract(f, ft.Tract.Geom, TierColor(ft.Tier))
	}

	c.drawTierLegend(m.Thresholds)

	return c.save(path)
}

func (c *canvas) drawTierLegend(th stats.Thresholds) {
	dc := c.dc
	dc.SetFontFace(c.small)

	var textW float64
	for tier := 0; tier <= stats.MaxTier; tier++ {
		w, _ := dc.MeasureString(TierLegend(th, tier))
		textW = max(textW, w)
	}

	sw := c.h * 0.02
	lineH := c.h * 0.03
	pad := c.h * 0.012
	boxW := pad*3 + sw + textW
	boxH := pad*2 + lineH*float64(stats.MaxTier+2)
	x := c.w - boxW - c.w*0.02
	y := c.h - boxH - c.h*0.02

	dc.DrawRectangle(x, y, boxW, boxH)
	dc.SetRGBA(1, 1, 1, 0.85)
	dc.FillPreserve()
	dc.SetColor(edgeColor)
	dc.SetLineWidth(1)
	dc.Stroke()

	dc.DrawStringAnchored("Crime Hotspot Level", x+boxW/2, y+pad+lineH/2, 0.5, 0.35)
	for tier := 0; tier <= stats.MaxTier; tier++ {
		ty := y + pad + lineH*float64(tier+1)
		c.drawSwatch(x+pad, ty+(lineH-sw)/2, sw, sw, TierColor(tier))
		dc.SetColor(edgeColor)
		dc.DrawStringAnchored(TierLegend(th, tier), x+pad*2+sw, ty+lineH/2, 0, 0.35)
	}
}
