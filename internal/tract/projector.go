package tract

import "strings"

// Projector converts between WGS84 longitude/latitude and a layer's native
// coordinates.
type Projector interface {
	Forward(lon, lat float64) (x, y float64, err error)
	Inverse(x, y float64) (lon, lat float64, err error)
}

// Geographic is the identity projector for layers stored in longitude and
// latitude (WGS84 or NAD83 degrees).
type Geographic struct{}

func (Geographic) Forward(lon, lat float64) (float64, float64, error) { return lon, lat, nil }

func (Geographic) Inverse(x, y float64) (float64, float64, error) { return x, y, nil }

// IsGeographic reports whether a .prj WKT describes a geographic CRS. A layer
// without a .prj is assumed to be in degrees.
func IsGeographic(wkt string) bool {
	w := strings.ToUpper(strings.TrimSpace(wkt))
	if w == "" {
		return true
	}
	return strings.HasPrefix(w, "GEOGCS") || strings.HasPrefix(w, "GEOGCRS") || strings.HasPrefix(w, "GEODCRS")
}
