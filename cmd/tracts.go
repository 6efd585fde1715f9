package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// layerInfo is the YAML document printed by tracts.
type layerInfo struct {
	Path        string            `yaml:"path"`
	CRS         string            `yaml:"crs"`
	Fields      []string          `yaml:"fields"`
	Count       int               `yaml:"count"`
	FirstRecord map[string]string `yaml:"first_record,omitempty"`
}

var tractsCmd = &cobra.Command{
	Use:   "tracts",
	Short: "Describe the census tract layer",
	Long:  "Prints the attribute fields, feature count, coordinate reference system and first record of the tract shapefile.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyTractFlags(cmd)

		layer, err := loadLayer(cfg.Tracts)
		if err != nil {
			return err
		}

		info := layerInfo{
			Path:   layer.Path,
			CRS:    layer.CRS,
			Fields: layer.Fields,
			Count:  layer.Len(),
		}
		if info.CRS == "" {
			info.CRS = "unknown (no .prj, assumed WGS84)"
		}
		if layer.Len() > 0 {
			info.FirstRecord = layer.Tracts[0].Attrs
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		defer enc.Close() //nolint:errcheck
		return eris.Wrap(enc.Encode(info), "tracts: write layer info")
	},
}

func init() {
	addTractFlags(tractsCmd.Flags())
	rootCmd.AddCommand(tractsCmd)
}
