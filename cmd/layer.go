package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/la-crime/crimetracts/internal/config"
	"github.com/la-crime/crimetracts/internal/projection"
	"github.com/la-crime/crimetracts/internal/tract"
)

// loadLayer loads the configured tract layer, reprojecting through PROJ when
// the layer is not in degrees.
func loadLayer(c config.TractsConfig) (*tract.Layer, error) {
	layer, err := tract.Load(c.Shapefile, tract.LoadOptions{
		IDField:      c.IDField,
		LabelField:   c.LabelField,
		RestoreIndex: c.RestoreIndex,
		NewProjector: projection.NewProjector,
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("loaded tract layer",
		zap.String("path", c.Shapefile),
		zap.Int("tracts", layer.Len()),
		zap.Bool("geographic", tract.IsGeographic(layer.CRS)),
	)
	return layer, nil
}

// addTractFlags registers the layer flags shared by every command that loads
// tracts.
func addTractFlags(fs *pflag.FlagSet) {
	fs.String("shapefile", "", "census tract shapefile (.shp or .zip); overrides tracts.shapefile")
	fs.String("id-field", "", "tract id attribute; overrides tracts.id_field")
	fs.String("label-field", "", "tract label attribute; overrides tracts.label_field")
}

func applyTractFlags(cmd *cobra.Command) {
	overrideString(cmd, "shapefile", &cfg.Tracts.Shapefile)
	overrideString(cmd, "id-field", &cfg.Tracts.IDField)
	overrideString(cmd, "label-field", &cfg.Tracts.LabelField)
}

// overrideString copies a flag onto dst when it was set on the command line.
func overrideString(cmd *cobra.Command, name string, dst *string) {
	if cmd.Flags().Changed(name) {
		*dst, _ = cmd.Flags().GetString(name)
	}
}

func overrideInt(cmd *cobra.Command, name string, dst *int) {
	if cmd.Flags().Changed(name) {
		*dst, _ = cmd.Flags().GetInt(name)
	}
}

func overrideBool(cmd *cobra.Command, name string, dst *bool) {
	if cmd.Flags().Changed(name) {
		*dst, _ = cmd.Flags().GetBool(name)
	}
}
