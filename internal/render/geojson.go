package render

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/la-crime/crimetracts/internal/tract"
)

// FeatureCollection converts the merged layer into GeoJSON features in WGS84
// longitude/latitude.
func (m *Map) FeatureCollection() (*geojson.FeatureCollection, error) {
	proj := m.Layer.Projector()
	if proj == nil {
		proj = tract.Geographic{}
	}

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(m.Features))}
	for _, f := range m.Features {
		g, err := toWGS84(f.Tract.Geom, proj)
		if err != nil {
			return nil, eris.Wrapf(err, "render: reproject tract %s", f.Tract.ID)
		}

		props := map[string]any{
			"census_tract_id":    f.Tract.ID,
			"census_tract_label": f.Tract.Label,
			"total_crimes":       nil,
			"hotspot_level":      f.Tier,
		}
		if f.Row != nil {
			props["total_crimes"] = f.Row.Total
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         f.Tract.ID,
			Geometry:   g,
			Properties: props,
		})
	}
	return fc, nil
}

func toWGS84(mp *geom.MultiPolygon, proj tract.Projector) (*geom.MultiPolygon, error) {
	out := mp.Clone()
	flat := out.FlatCoords()
	stride := out.Stride()
	for i := 0; i+1 < len(flat); i += stride {
		lon, lat, err := proj.Inverse(flat[i], flat[i+1])
		if err != nil {
			return nil, err
		}
		flat[i], flat[i+1] = lon, lat
	}
	return out, nil
}

// WriteGeoJSON writes the merged layer as a GeoJSON FeatureCollection.
func WriteGeoJSON(m *Map, path string) error {
	fc, err := m.FeatureCollection()
	if err != nil {
		return err
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		return eris.Wrap(err, "render: encode geojson")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return eris.Wrapf(err, "render: write %s", path)
	}
	return nil
}
