// Package projection transforms WGS84 coordinates into a tract layer's
// native coordinate reference system using PROJ.
package projection

import (
	"sync"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-proj/v10"
	"go.uber.org/zap"

	"github.com/la-crime/crimetracts/internal/tract"
)

// SourceCRS is the reference system of incident coordinates.
const SourceCRS = "EPSG:4326"

// Transformer converts between WGS84 longitude/latitude and a target CRS.
// It satisfies tract.Projector.
type Transformer struct {
	mu sync.Mutex
	pj *proj.PJ
}

var _ tract.Projector = (*Transformer)(nil)

// New builds a transformer from WGS84 to the CRS described by targetWKT
// (typically the contents of a .prj file). Axis order is normalized to
// longitude/latitude, easting/northing.
func New(targetWKT string) (*Transformer, error) {
	raw, err := proj.NewCRSToCRS(SourceCRS, targetWKT, nil)
	if err != nil {
		return nil, eris.Wrap(err, "projection: create transformation")
	}
	pj, err := raw.NormalizeForVisualization()
	raw.Destroy()
	if err != nil {
		return nil, eris.Wrap(err, "projection: normalize axis order")
	}

	zap.L().Debug("projection: transformer ready",
		zap.String("component", "projection"),
		zap.String("source", SourceCRS),
	)
	return &Transformer{pj: pj}, nil
}

// NewProjector adapts New to tract.LoadOptions.NewProjector.
func NewProjector(targetWKT string) (tract.Projector, error) {
	return New(targetWKT)
}

// Forward projects a WGS84 longitude/latitude into the target CRS.
func (t *Transformer) Forward(lon, lat float64) (float64, float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, err := t.pj.Forward(proj.NewCoord(lon, lat, 0, 0))
	if err != nil {
		return 0, 0, eris.Wrapf(err, "projection: forward (%f, %f)", lon, lat)
	}
	return c.X(), c.Y(), nil
}

// Inverse converts target CRS coordinates back to WGS84 longitude/latitude.
func (t *Transformer) Inverse(x, y float64) (float64, float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, err := t.pj.Inverse(proj.NewCoord(x, y, 0, 0))
	if err != nil {
		return 0, 0, eris.Wrapf(err, "projection: inverse (%f, %f)", x, y)
	}
	return c.X(), c.Y(), nil
}

// Close releases the PROJ transformation.
func (t *Transformer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pj != nil {
		t.pj.Destroy()
		t.pj = nil
	}
}
