package render

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/la-crime/crimetracts/internal/stats"
	"github.com/la-crime/crimetracts/internal/tract"
)

// Options control the size of every PNG and how RenderAll behaves.
type Options struct {
	Width, Height int

	// BasicMapFallback draws a grey tract map in place of the heatmap when no
	// statistics row matches the layer, instead of failing.
	BasicMapFallback bool

	// Concurrency bounds the number of outputs drawn at once. Values below 1
	// mean sequential.
	Concurrency int
}

// Targets are the output paths. An empty path skips that output.
type Targets struct {
	Heatmap    string
	TypesChart string
	Hotspots   string
	GeoJSON    string
}

// Output records one written file.
type Output struct {
	Kind string `json:"kind" yaml:"kind"`
	Path string `json:"path" yaml:"path"`
}

// RenderAll merges table onto layer and writes every configured target.
//
// When nothing matches it returns ErrNoMatches, or with BasicMapFallback
// draws only the basic map at the heatmap path. A table without crime-type
// columns skips the types chart with a warning.
func RenderAll(ctx context.Context, layer *tract.Layer, table *stats.Table, targets Targets, opts Options) ([]Output, error) {
	log := zap.L().With(zap.String("component", "render"))

	m := Merge(layer, table)
	if err := m.Check(table); err != nil {
		if !opts.BasicMapFallback || targets.Heatmap == "" {
			return nil, err
		}
		log.Warn("render: no statistics matched, drawing basic map", zap.Error(err))
		if err := BasicMap(m, targets.Heatmap, opts); err != nil {
			return nil, err
		}
		return []Output{{Kind: "basic_map", Path: targets.Heatmap}}, nil
	}

	type job struct {
		kind, path string
		draw       func(path string) error
	}
	jobs := []job{
		{"heatmap", targets.Heatmap, func(p string) error { return Choropleth(m, p, opts) }},
		{"types_chart", targets.TypesChart, func(p string) error { return TypesChart(table, p, opts) }},
		{"hotspots", targets.Hotspots, func(p string) error { return Hotspots(m, p, opts) }},
		{"geojson", targets.GeoJSON, func(p string) error { return WriteGeoJSON(m, p) }},
	}

	var (
		mu  sync.Mutex
		out []Output
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, opts.Concurrency))

	for _, j := range jobs {
		if j.path == "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := j.draw(j.path)
			if eris.Is(err, ErrNoCrimeTypes) {
				log.Warn("render: skipping types chart", zap.Error(err))
				return nil
			}
			if err != nil {
				return eris.Wrapf(err, "render: %s", j.kind)
			}

			log.Info("render: wrote output", zap.String("kind", j.kind), zap.String("path", j.path))
			mu.Lock()
			out = append(out, Output{Kind: j.kind, Path: j.path})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}
