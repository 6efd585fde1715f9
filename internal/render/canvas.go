package render

import (
	"image/color"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/la-crime/crimetracts/internal/tract"
)

var goRegular = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(goregular.TTF)
})

func face(size float64) (font.Face, error) {
	f, err := goRegular()
	if err != nil {
		return nil, eris.Wrap(err, "render: parse font")
	}
	return truetype.NewFace(f, &truetype.Options{Size: size}), nil
}

// canvas is a white drawing surface with three font sizes.
type canvas struct {
	dc                  *gg.Context
	w, h                float64
	title, label, small font.Face
}

func newCanvas(width, height int) (*canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, eris.Errorf("render: invalid canvas size %dx%d", width, height)
	}
	scale := float64(height) / 1000

	c := &canvas{dc: gg.NewContext(width, height), w: float64(width), h: float64(height)}
	var err error
	if c.title, err = face(math.Max(10, 28*scale)); err != nil {
		return nil, err
	}
	if c.label, err = face(math.Max(8, 18*scale)); err != nil {
		return nil, err
	}
	if c.small, err = face(math.Max(7, 14*scale)); err != nil {
		return nil, err
	}

	c.dc.SetColor(white)
	c.dc.Clear()
	return c, nil
}

// drawTitle centres s at the top of the canvas.
func (c *canvas) drawTitle(s string) {
	c.dc.SetFontFace(c.title)
	c.dc.SetColor(color.Black)
	c.dc.DrawStringAnchored(s, c.w/2, c.h*0.04, 0.5, 0.5)
}

func (c *canvas) save(path string) error {
	if err := c.dc.SavePNG(path); err != nil {
		return eris.Wrapf(err, "render: save %s", path)
	}
	return nil
}

// frame maps layer coordinates into a pixel rectangle, preserving aspect.
type frame struct {
	minX, maxY float64
	kx         float64 // horizontal stretch; cos(latitude) for degree layers
	scale      float64
	ox, oy     float64
}

// fitFrame fits the extent of layer into the box (x0, y0)-(x1, y1).
func fitFrame(layer *tract.Layer, x0, y0, x1, y1 float64) frame {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, t := range layer.Tracts {
		b := t.Geom.Bounds()
		minX, minY = math.Min(minX, b.Min(0)), math.Min(minY, b.Min(1))
		maxX, maxY = math.Max(maxX, b.Max(0)), math.Max(maxY, b.Max(1))
	}

	f := frame{minX: minX, maxY: maxY, kx: 1}
	if tract.IsGeographic(layer.CRS) {
		f.kx = math.Cos((minY + maxY) / 2 * math.Pi / 180)
	}

	spanX := (maxX - minX) * f.kx
	spanY := maxY - minY
	if spanX <= 0 || spanY <= 0 {
		f.scale = 1
		f.ox, f.oy = x0, y0
		return f
	}
	f.scale = math.Min((x1-x0)/spanX, (y1-y0)/spanY)
	f.ox = x0 + ((x1-x0)-spanX*f.scale)/2
	f.oy = y0 + ((y1-y0)-spanY*f.scale)/2
	return f
}

func (f frame) pt(x, y float64) (float64, float64) {
	return f.ox + (x-f.minX)*f.kx*f.scale, f.oy + (f.maxY-y)*f.scale
}

// drawTract fills every polygon of mp (holes cut out) and strokes its rings.
func (c *canvas) drawTract(f frame, mp *geom.MultiPolygon, fill color.Color) {
	dc := c.dc
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			flat := poly.LinearRing(j).FlatCoords()
			dc.NewSubPath()
			for k := 0; k+1 < len(flat); k += 2 {
				px, py := f.pt(flat[k], flat[k+1])
				if k == 0 {
					dc.MoveTo(px, py)
				} else {
					dc.LineTo(px, py)
				}
			}
			dc.ClosePath()
		}
	}
	dc.SetFillRuleEvenOdd()
	dc.SetColor(fill)
	dc.FillPreserve()
	dc.SetColor(edgeColor)
	dc.SetLineWidth(0.3)
	dc.Stroke()
}

// drawSwatch draws a legend box with a black outline.
func (c *canvas) drawSwatch(x, y, w, h float64, fill color.Color) {
	c.dc.DrawRectangle(x, y, w, h)
	c.dc.SetColor(fill)
	c.dc.FillPreserve()
	c.dc.SetColor(edgeColor)
	c.dc.SetLineWidth(1)
	c.dc.Stroke()
}
