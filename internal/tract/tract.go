// Package tract loads census tract polygons from a shapefile and answers
// point-in-polygon queries against them.
package tract

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Tract is one census tract polygon with its full attribute row.
type Tract struct {
	Index int               // position in the source shapefile
	ID    string            // normalized tract identifier (CT20)
	Label string            // human-readable label (LABEL)
	Attrs map[string]string // every DBF attribute, keyed by field name
	Geom  *geom.MultiPolygon
}

// Layer is an immutable, indexed set of tract polygons.
type Layer struct {
	Path   string
	CRS    string // WKT from the .prj sidecar; empty when absent
	Fields []string
	Tracts []*Tract

	projector Projector
	index     *index
}

// LoadOptions configures Load.
type LoadOptions struct {
	IDField    string // default "CT20"
	LabelField string // default "LABEL"

	// RestoreIndex regenerates a missing .shx file from the .shp record
	// headers instead of failing the load.
	RestoreIndex bool

	// NewProjector builds the WGS84 → layer CRS projector for projected
	// layers. Geographic layers never call it.
	NewProjector func(crsWKT string) (Projector, error)

	// TempDir receives extracted archives when the path is a .zip.
	TempDir string
}

// Load reads the tract layer at path (.shp or .zip) into memory.
func Load(path string, opts LoadOptions) (*Layer, error) {
	if opts.IDField == "" {
		opts.IDField = "CT20"
	}
	if opts.LabelField == "" {
		opts.LabelField = "LABEL"
	}

	log := zap.L().With(
		zap.String("component", "tract.loader"),
		zap.String("path", path),
	)

	shpPath := path
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		dir, err := os.MkdirTemp(opts.TempDir, "tracts-*")
		if err != nil {
			return nil, eris.Wrap(err, "tract: create extract dir")
		}
		defer func() { _ = os.RemoveAll(dir) }()

		shpPath, err = unpackShapefile(path, dir)
		if err != nil {
			return nil, err
		}
		log.Debug("extracted tract archive", zap.String("shp", shpPath))
	}

	if _, err := os.Stat(shpPath); err != nil {
		return nil, eris.Wrapf(err, "tract: open shapefile %s", shpPath)
	}
	if _, err := os.Stat(sidecar(shpPath, ".dbf")); err != nil {
		return nil, eris.Wrapf(err, "tract: open attribute table for %s", shpPath)
	}

	if err := ensureIndex(shpPath, opts.RestoreIndex); err != nil {
		return nil, err
	}

	crs, err := readCRS(shpPath)
	if err != nil {
		return nil, err
	}

	layer, err := readShapefile(shpPath, opts.IDField, opts.LabelField)
	if err != nil {
		return nil, err
	}
	layer.Path = path
	layer.CRS = crs

	if IsGeographic(crs) {
		layer.projector = Geographic{}
	} else {
		if opts.NewProjector == nil {
			return nil, eris.Errorf("tract: layer %s uses a projected CRS and no projector is configured", path)
		}
		p, err := opts.NewProjector(crs)
		if err != nil {
			return nil, eris.Wrap(err, "tract: build projector")
		}
		layer.projector = p
	}

	idx, err := newIndex(layer.Tracts)
	if err != nil {
		return nil, err
	}
	layer.index = idx

	log.Info("tract layer loaded",
		zap.Int("tracts", len(layer.Tracts)),
		zap.Bool("projected", !IsGeographic(crs)),
	)

	return layer, nil
}

// Len returns the number of tracts in the layer.
func (l *Layer) Len() int { return len(l.Tracts) }

// Projector returns the WGS84 → layer CRS projector.
func (l *Layer) Projector() Projector { return l.projector }

// Lookup returns the tract containing the WGS84 coordinate, or nil when no
// tract contains it. When tracts overlap the lowest layer index wins.
func (l *Layer) Lookup(lat, lon float64) (*Tract, error) {
	x, y, err := l.projector.Forward(lon, lat)
	if err != nil {
		return nil, eris.Wrapf(err, "tract: project point (%f, %f)", lat, lon)
	}
	return l.Locate(x, y), nil
}

// Locate returns the tract containing (x, y) in the layer's own CRS.
func (l *Layer) Locate(x, y float64) *Tract {
	candidates := l.index.candidates(x, y)
	sort.Ints(candidates)
	for _, i := range candidates {
		if contains(l.Tracts[i].Geom, x, y) {
			return l.Tracts[i]
		}
	}
	return nil
}

// ByID maps normalized tract identifiers to tracts. The first tract wins when
// the layer repeats an identifier.
func (l *Layer) ByID() map[string]*Tract {
	m := make(map[string]*Tract, len(l.Tracts))
	for _, t := range l.Tracts {
		if _, ok := m[t.ID]; !ok {
			m[t.ID] = t
		}
	}
	return m
}
