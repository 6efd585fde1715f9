// Package assign attaches census tracts to every located incident of a crime
// CSV using chunked point-in-polygon joins.
package assign

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/la-crime/crimetracts/internal/incident"
	"github.com/la-crime/crimetracts/internal/tract"
)

const (
	defaultChunkSize   = 50_000
	defaultReportEvery = 10
)

// Locator finds the tract containing a WGS84 coordinate.
type Locator interface {
	Lookup(lat, lon float64) (*tract.Tract, error)
}

// Options configures a bulk assignment run.
type Options struct {
	Input       string    // incident CSV path
	Output      string    // enriched CSV path, truncated on start
	ChunkSize   int       // rows per join batch (default 50,000)
	ReportEvery int       // chunks between progress log lines (default 10)
	Progress    io.Writer // progress bar destination; nil disables the bar
}

// Stats holds the running totals of an assignment run.
type Stats struct {
	Read        int `json:"read" yaml:"read"`               // data rows read from the input
	Dropped     int `json:"dropped" yaml:"dropped"`         // rows without a usable location
	Processed   int `json:"processed" yaml:"processed"`     // rows joined and written
	Found       int `json:"found" yaml:"found"`             // rows inside some tract
	NotFound    int `json:"not_found" yaml:"not_found"`     // rows outside every tract, Unlocatable included
	Unlocatable int `json:"unlocatable" yaml:"unlocatable"` // rows the layer could not place, e.g. rejected by the projection
	Chunks      int `json:"chunks" yaml:"chunks"`
}

func (s *Stats) add(o Stats) {
	s.Read += o.Read
	s.Dropped += o.Dropped
	s.Processed += o.Processed
	s.Found += o.Found
	s.NotFound += o.NotFound
	s.Unlocatable += o.Unlocatable
	s.Chunks += o.Chunks
}

// FoundRate returns the share of processed rows that matched a tract, in percent.
func (s Stats) FoundRate() float64 { return percent(s.Found, s.Processed) }

// NotFoundRate returns the share of processed rows without a tract, in percent.
func (s Stats) NotFoundRate() float64 { return percent(s.NotFound, s.Processed) }

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// Summary renders the completion report.
func (s Stats) Summary() string {
	summary := fmt.Sprintf("Processed %s crime records (%s dropped without location)\nFound census tract: %s (%.1f%%)\nNo census tract:    %s (%.1f%%)",
		humanize.Comma(int64(s.Processed)),
		humanize.Comma(int64(s.Dropped)),
		humanize.Comma(int64(s.Found)), s.FoundRate(),
		humanize.Comma(int64(s.NotFound)), s.NotFoundRate(),
	)
	if s.Unlocatable > 0 {
		summary += fmt.Sprintf("\nUnlocatable:        %s (counted as no census tract)", humanize.Comma(int64(s.Unlocatable)))
	}
	return summary
}

// Run streams opts.Input in chunks, joins every located incident against the
// layer and appends the enriched rows to opts.Output.
func Run(ctx context.Context, layer Locator, opts Options) (Stats, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.ReportEvery <= 0 {
		opts.ReportEvery = defaultReportEvery
	}

	log := zap.L().With(
		zap.String("component", "assign"),
		zap.String("input", opts.Input),
		zap.Int("chunk_size", opts.ChunkSize),
	)

	var stats Stats

	total, err := incident.CountRows(opts.Input)
	if err != nil {
		return stats, err
	}
	log.Info("counted input rows", zap.Int("rows", total))

	in, err := os.Open(opts.Input)
	if err != nil {
		return stats, eris.Wrapf(err, "assign: open %s", opts.Input)
	}
	defer func() { _ = in.Close() }()

	out, err := incident.Create(opts.Output)
	if err != nil {
		return stats, err
	}

	bar := newProgress(opts.Progress, total)
	// Sometimes fires on its first call; spend it here so progress is logged
	// after chunk N, 2N, ...
	report := rate.Sometimes{Every: opts.ReportEvery}
	report.Do(func() {})

	for chunk, err := range incident.Chunk(incident.Scan(in), opts.ChunkSize) {
		if err != nil {
			_ = out.Close()
			return stats, eris.Wrapf(err, "assign: read chunk %d", stats.Chunks+1)
		}
		if err := ctx.Err(); err != nil {
			_ = out.Close()
			return stats, eris.Wrap(err, "assign: cancelled")
		}

		rows, chunkStats := Join(layer, chunk)
		if err := out.Write(rows); err != nil {
			_ = out.Close()
			return stats, err
		}
		stats.add(chunkStats)
		bar.add(len(chunk))

		report.Do(func() {
			log.Info("assignment progress",
				zap.Int("chunks", stats.Chunks),
				zap.Int("processed", stats.Processed),
				zap.Int("found", stats.Found),
				zap.Int("not_found", stats.NotFound),
				zap.Int("unlocatable", stats.Unlocatable),
			)
		})
	}
	bar.finish()

	if err := out.Close(); err != nil {
		return stats, err
	}

	log.Info("assignment complete",
		zap.String("output", opts.Output),
		zap.Int("read", stats.Read),
		zap.Int("dropped", stats.Dropped),
		zap.Int("processed", stats.Processed),
		zap.Int("found", stats.Found),
		zap.Int("not_found", stats.NotFound),
		zap.Int("unlocatable", stats.Unlocatable),
		zap.Float64("found_pct", stats.FoundRate()),
	)

	return stats, nil
}

// Join drops incidents without a usable location and assigns a tract to each
// remaining one. The result keeps input order and holds exactly one row per
// located incident; unmatched rows carry nil tract columns. A failed lookup
// marks only that row as unmatched.
func Join(layer Locator, chunk []incident.Incident) ([]incident.Enriched, Stats) {
	stats := Stats{Read: len(chunk), Chunks: 1}
	rows := make([]incident.Enriched, 0, len(chunk))

	for _, in := range chunk {
		if !in.HasLocation() {
			stats.Dropped++
			continue
		}
		row := incident.Enrich(in)
		t, err := layer.Lookup(row.Latitude, row.Longitude)
		switch {
		case err != nil:
			zap.L().Debug("assign: incident not locatable",
				zap.String("component", "assign"),
				zap.Int("row", in.Row),
				zap.String("crime_id", in.CrimeID),
				zap.Error(err),
			)
			stats.Unlocatable++
			stats.NotFound++
		case t != nil:
			id, label := t.ID, t.Label
			row.TractID, row.TractLabel = &id, &label
			stats.Found++
		default:
			stats.NotFound++
		}
		rows = append(rows, row)
	}
	stats.Processed = len(rows)

	return rows, stats
}
