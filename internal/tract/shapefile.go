package tract

import (
	"errors"
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
	"go.uber.org/zap"
)

// readShapefile reads every polygon record of the shapefile with its
// attribute row.
func readShapefile(shpPath, idField, labelField string) (*Layer, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "tract: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	// Build field name list.
	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	idIdx := fieldIndex(names, idField)
	if idIdx < 0 {
		return nil, eris.Errorf("tract: required field %s not found in %s", idField, shpPath)
	}
	labelIdx := fieldIndex(names, labelField)
	if labelIdx < 0 {
		return nil, eris.Errorf("tract: required field %s not found in %s", labelField, shpPath)
	}

	layer := &Layer{Fields: names}
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		attrs := make(map[string]string, len(names))
		for i, name := range names {
			val := strings.TrimRight(reader.Attribute(i), "\x00")
			attrs[name] = strings.TrimSpace(val)
		}

		id := NormalizeID(attrs[names[idIdx]])
		if id == "" {
			skipped++
			continue
		}

		layer.Tracts = append(layer.Tracts, &Tract{
			Index: len(layer.Tracts),
			ID:    id,
			Label: attrs[names[labelIdx]],
			Attrs: attrs,
			Geom:  mp,
		})
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "tract: read shapefile %s", shpPath)
	}

	if skipped > 0 {
		zap.L().Debug("tract: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}

	if len(layer.Tracts) == 0 {
		return nil, eris.Errorf("tract: no polygon records in %s", shpPath)
	}

	return layer, nil
}

// readCRS returns the WKT in the .prj sidecar, or "" when there is none.
func readCRS(shpPath string) (string, error) {
	data, err := os.ReadFile(sidecar(shpPath, ".prj"))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "tract: read .prj")
	}
	return strings.TrimSpace(string(data)), nil
}

// fieldIndex returns the index of a named field, or -1 if not found.
func fieldIndex(names []string, name string) int {
	for i, n := range names {
		if strings.EqualFold(n, name) {
			return i
		}
	}
	return -1
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
// Clockwise rings start a new polygon; counter-clockwise rings are holes of
// the outer ring that contains them.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var rings [][]float64
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}
		if start < 0 || end > int32(len(p.Points)) || start >= end {
			continue
		}

		ring := make([]float64, 0, (end-start+1)*2)
		for j := start; j < end; j++ {
			ring = append(ring, p.Points[j].X, p.Points[j].Y)
		}
		ring = closeRing(ring)
		if len(ring) < 8 {
			zap.L().Debug("tract: skipping degenerate ring", zap.Int32("part", i))
			continue
		}
		rings = append(rings, ring)
	}
	if len(rings) == 0 {
		return nil
	}

	holes := make([]bool, len(rings))
	anyOuter := false
	for i, r := range rings {
		holes[i] = xy.IsRingCounterClockwise(geom.XY, r)
		anyOuter = anyOuter || !holes[i]
	}
	// Writers that ignore ring orientation produce all-CCW records.
	if !anyOuter {
		for i := range holes {
			holes[i] = false
		}
	}

	type part struct {
		outer []float64
		holes [][]float64
	}
	var parts []*part
	var orphans [][]float64
	for i, r := range rings {
		if !holes[i] {
			parts = append(parts, &part{outer: r})
			continue
		}
		orphans = append(orphans, r)
	}
	for _, h := range orphans {
		owner := parts[len(parts)-1]
		holePt := geom.Coord{h[0], h[1]}
		for _, pt := range parts {
			if xy.IsPointInRing(geom.XY, holePt, pt.outer) {
				owner = pt
				break
			}
		}
		owner.holes = append(owner.holes, h)
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i, pt := range parts {
		flat := append([]float64(nil), pt.outer...)
		ends := []int{len(flat)}
		for _, h := range pt.holes {
			flat = append(flat, h...)
			ends = append(ends, len(flat))
		}
		if err := mp.Push(geom.NewPolygonFlat(geom.XY, flat, ends)); err != nil {
			zap.L().Debug("tract: skipping malformed polygon part", zap.Int("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// closeRing appends the first coordinate when the ring is open.
func closeRing(ring []float64) []float64 {
	n := len(ring)
	if n < 4 {
		return ring
	}
	if ring[0] != ring[n-2] || ring[1] != ring[n-1] {
		ring = append(ring, ring[0], ring[1])
	}
	return ring
}

// contains reports whether (x, y) lies within mp. Points on an outer
// boundary count as inside; points strictly inside a hole do not.
func contains(mp *geom.MultiPolygon, x, y float64) bool {
	pt := geom.Coord{x, y}
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		if !xy.IsPointInRing(geom.XY, pt, poly.LinearRing(0).FlatCoords()) {
			continue
		}
		inHole := false
		for j := 1; j < poly.NumLinearRings(); j++ {
			if xy.LocatePointInRing(geom.XY, pt, poly.LinearRing(j).FlatCoords()) == location.Interior {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}
