package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/la-crime/crimetracts/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "crimetracts",
	Short: "Los Angeles crime census tract analysis",
	Long:  "Looks up census tracts for coordinates, assigns tracts to crime incident CSVs, aggregates per-tract statistics and renders maps and charts.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
