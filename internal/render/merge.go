// Package render draws the per-tract crime statistics as PNG maps and charts
// and exports the merged layer as GeoJSON.
package render

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/la-crime/crimetracts/internal/stats"
	"github.com/la-crime/crimetracts/internal/tract"
)

// ErrNoMatches is returned when no statistics row matches any tract of the
// layer, which usually means the id columns drifted apart in format.
var ErrNoMatches = eris.New("render: no statistics row matches a tract id")

// Feature is one tract with its statistics row, if any.
type Feature struct {
	Tract *tract.Tract
	Row   *stats.Row // nil when the tract has no statistics
	Tier  int        // hotspot tier, stats.TierNoData when Row is nil
}

// Map is the statistics table joined onto every tract of a layer.
type Map struct {
	Layer      *tract.Layer
	Features   []Feature
	Matched    int
	Thresholds stats.Thresholds
}

// Merge left-joins table onto layer by normalized tract id. Every tract of
// the layer is kept.
func Merge(layer *tract.Layer, table *stats.Table) *Map {
	byID := table.ByID()
	m := &Map{Layer: layer, Features: make([]Feature, len(layer.Tracts))}

	var totals []int
	for i, t := range layer.Tracts {
		m.Features[i] = Feature{Tract: t, Row: byID[tract.NormalizeID(t.ID)]}
		if m.Features[i].Row != nil {
			m.Matched++
			totals = append(totals, m.Features[i].Row.Total)
		}
	}

	if th, ok := stats.HotspotThresholds(totals); ok {
		m.Thresholds = th
		for i := range m.Features {
			if r := m.Features[i].Row; r != nil {
				m.Features[i].Tier = th.Tier(r.Total)
			}
		}
	}

	zap.L().Info("render: merged statistics onto tracts",
		zap.String("component", "render"),
		zap.Int("tracts", len(layer.Tracts)),
		zap.Int("rows", len(table.Rows)),
		zap.Int("matched", m.Matched),
	)

	return m
}

// Check returns ErrNoMatches, with sample ids from both sides, when nothing
// matched.
func (m *Map) Check(table *stats.Table) error {
	if m.Matched > 0 {
		return nil
	}
	return eris.Wrapf(ErrNoMatches, "layer ids [%s], table ids [%s]",
		strings.Join(sampleLayerIDs(m.Layer, 5), " "),
		strings.Join(sampleTableIDs(table, 5), " "),
	)
}

// Totals returns the totals of tracts with statistics.
func (m *Map) Totals() []int {
	out := make([]int, 0, m.Matched)
	for _, f := range m.Features {
		if f.Row != nil {
			out = append(out, f.Row.Total)
		}
	}
	return out
}

func sampleLayerIDs(layer *tract.Layer, n int) []string {
	var ids []string
	for _, t := range layer.Tracts {
		if len(ids) == n {
			break
		}
		ids = append(ids, t.ID)
	}
	return ids
}

func sampleTableIDs(table *stats.Table, n int) []string {
	var ids []string
	for _, r := range table.Rows {
		if len(ids) == n {
			break
		}
		ids = append(ids, r.TractID)
	}
	return ids
}
