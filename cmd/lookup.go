package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom/encoding/wkt"
	"gopkg.in/yaml.v3"
)

// lookupResult is the YAML document printed by lookup.
type lookupResult struct {
	Latitude   float64           `yaml:"latitude"`
	Longitude  float64           `yaml:"longitude"`
	Found      bool              `yaml:"found"`
	TractID    string            `yaml:"census_tract_id,omitempty"`
	TractLabel string            `yaml:"census_tract_label,omitempty"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
	WKT        string            `yaml:"wkt,omitempty"`
}

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Find the census tract containing a coordinate",
	Long:  "Loads the tract layer and prints the attribute row of the tract containing the WGS84 point, if any.",
	Example: `  crimetracts lookup --lat 34.0522 --lon -118.2437
  crimetracts lookup --lat 34.0522 --lon -118.2437 --wkt`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyTractFlags(cmd)

		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")
		withWKT, _ := cmd.Flags().GetBool("wkt")

		layer, err := loadLayer(cfg.Tracts)
		if err != nil {
			return err
		}

		t, err := layer.Lookup(lat, lon)
		if err != nil {
			return eris.Wrap(err, "lookup")
		}

		res := lookupResult{Latitude: lat, Longitude: lon}
		if t != nil {
			res.Found = true
			res.TractID = t.ID
			res.TractLabel = t.Label
			res.Attributes = t.Attrs
			if withWKT {
				if res.WKT, err = wkt.Marshal(t.Geom); err != nil {
					return eris.Wrap(err, "lookup: encode wkt")
				}
			}
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		defer enc.Close() //nolint:errcheck
		return eris.Wrap(enc.Encode(res), "lookup: write result")
	},
}

func init() {
	lookupCmd.Flags().Float64("lat", 0, "latitude in WGS84 degrees")
	lookupCmd.Flags().Float64("lon", 0, "longitude in WGS84 degrees")
	lookupCmd.Flags().Bool("wkt", false, "include the tract geometry as WKT (layer CRS)")
	_ = lookupCmd.MarkFlagRequired("lat")
	_ = lookupCmd.MarkFlagRequired("lon")
	addTractFlags(lookupCmd.Flags())

	rootCmd.AddCommand(lookupCmd)
}
