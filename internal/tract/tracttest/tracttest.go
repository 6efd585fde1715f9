// Package tracttest writes small tract shapefiles for tests.
package tracttest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

// Feature is one polygon record of a fixture layer. Rings follow shapefile
// orientation: clockwise outer rings, counter-clockwise holes.
type Feature struct {
	ID    string
	Label string
	Rings [][]shp.Point
}

// Outer returns the clockwise ring of an axis-aligned box.
func Outer(minX, minY, maxX, maxY float64) []shp.Point {
	return []shp.Point{
		{X: minX, Y: minY},
		{X: minX, Y: maxY},
		{X: maxX, Y: maxY},
		{X: maxX, Y: minY},
		{X: minX, Y: minY},
	}
}

// Hole returns the counter-clockwise ring of an axis-aligned box.
func Hole(minX, minY, maxX, maxY float64) []shp.Point {
	return []shp.Point{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
		{X: minX, Y: minY},
	}
}

// LA is a 2x2 grid of tracts in downtown Los Angeles longitude/latitude.
// Tract 201300 has a hole over [-118.28,-118.22]x[34.12,34.18].
func LA() []Feature {
	return []Feature{
		{ID: "101110", Label: "1011.10", Rings: [][]shp.Point{Outer(-118.3, 34.0, -118.2, 34.1)}},
		{ID: "101122", Label: "1011.22", Rings: [][]shp.Point{Outer(-118.2, 34.0, -118.1, 34.1)}},
		{ID: "201300", Label: "2013", Rings: [][]shp.Point{
			Outer(-118.3, 34.1, -118.2, 34.2),
			Hole(-118.28, 34.12, -118.22, 34.18),
		}},
		{ID: "201400", Label: "2014", Rings: [][]shp.Point{Outer(-118.2, 34.1, -118.1, 34.2)}},
	}
}

// Write creates name.shp (with .shx and .dbf) in dir holding features with
// CT20 and LABEL attributes, and returns the .shp path.
func Write(t *testing.T, dir, name string, features []Feature) string {
	t.Helper()

	path := filepath.Join(dir, name+".shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("CT20", 12),
		shp.StringField("LABEL", 16),
	}))

	for _, f := range features {
		poly := shp.Polygon(*shp.NewPolyLine(f.Rings))
		row := int(w.Write(&poly))
		require.NoError(t, w.WriteAttribute(row, 0, f.ID))
		require.NoError(t, w.WriteAttribute(row, 1, f.Label))
	}
	w.Close()

	// go-shp names the attribute table "<name>dbf", without the dot.
	base := strings.TrimSuffix(path, "shp")
	require.NoError(t, os.Rename(base[:len(base)-1]+"dbf", base+"dbf"))

	return path
}

// WritePRJ writes a .prj sidecar next to shpPath.
func WritePRJ(t *testing.T, shpPath, wkt string) {
	t.Helper()
	prj := strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".prj"
	require.NoError(t, os.WriteFile(prj, []byte(wkt), 0o644))
}

// WGS84 is the .prj text ESRI tools write for EPSG:4326.
const WGS84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`
