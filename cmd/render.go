package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/la-crime/crimetracts/internal/config"
	"github.com/la-crime/crimetracts/internal/render"
	"github.com/la-crime/crimetracts/internal/stats"
	"github.com/la-crime/crimetracts/internal/tract"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Draw the crime heatmap, crime type charts and hotspot map",
	Long:  "Joins the per-tract statistics table onto the tract layer and writes the heatmap, crime type charts, hotspot map and optional GeoJSON.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyTractFlags(cmd)
		overrideString(cmd, "stats", &cfg.Aggregate.Output)
		applyRenderFlags(cmd)

		table, err := readTable(cfg.Aggregate.Output)
		if err != nil {
			return err
		}

		layer, err := loadLayer(cfg.Tracts)
		if err != nil {
			return err
		}

		return runRender(cmd.Context(), layer, table, cfg.Render, cmd.OutOrStdout())
	},
}

// readTable reads the statistics table from a CSV or XLSX file.
func readTable(path string) (*stats.Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return stats.ReadXLSX(path)
	}
	return stats.ReadCSVFile(path)
}

func runRender(ctx context.Context, layer *tract.Layer, table *stats.Table, c config.RenderConfig, out io.Writer) error {
	outputs, err := render.RenderAll(ctx, layer, table, render.Targets{
		Heatmap:    c.Heatmap,
		TypesChart: c.TypesChart,
		Hotspots:   c.Hotspots,
		GeoJSON:    c.GeoJSONOutput,
	}, render.Options{
		Width:            c.Width,
		Height:           c.Height,
		BasicMapFallback: c.BasicMapFallback,
		Concurrency:      c.Concurrency,
	})
	if err != nil {
		return err
	}

	for _, o := range outputs {
		fmt.Fprintf(out, "Saved %s to %s\n", o.Kind, o.Path)
	}
	fmt.Fprintln(out, "All visualization charts generated successfully!")
	return nil
}

func addRenderFlags(cmd *cobra.Command) {
	cmd.Flags().String("heatmap", "", "heatmap PNG; overrides render.heatmap")
	cmd.Flags().String("types-chart", "", "crime type chart PNG; overrides render.types_chart")
	cmd.Flags().String("hotspots", "", "hotspot map PNG; overrides render.hotspots")
	cmd.Flags().String("geojson", "", "merged layer GeoJSON; overrides render.geojson_output")
	cmd.Flags().Bool("basic-map-fallback", false, "draw a plain tract map when no statistics match; overrides render.basic_map_fallback")
	cmd.Flags().Int("concurrency", 0, "outputs drawn at once; overrides render.concurrency")
}

func applyRenderFlags(cmd *cobra.Command) {
	overrideString(cmd, "heatmap", &cfg.Render.Heatmap)
	overrideString(cmd, "types-chart", &cfg.Render.TypesChart)
	overrideString(cmd, "hotspots", &cfg.Render.Hotspots)
	overrideString(cmd, "geojson", &cfg.Render.GeoJSONOutput)
	overrideBool(cmd, "basic-map-fallback", &cfg.Render.BasicMapFallback)
	overrideInt(cmd, "concurrency", &cfg.Render.Concurrency)
}

func init() {
	addTractFlags(renderCmd.Flags())
	renderCmd.Flags().String("stats", "", "statistics CSV or XLSX; overrides aggregate.output")
	addRenderFlags(renderCmd)
	rootCmd.AddCommand(renderCmd)
}
