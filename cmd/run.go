package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run assignment, aggregation and rendering end to end",
	Long:  "Assigns tracts to the crime incident CSV, aggregates the enriched rows into per-tract statistics and renders every chart and map.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyTractFlags(cmd)
		applyAssignFlags(cmd)
		applyAggregateFlags(cmd)
		applyRenderFlags(cmd)

		runID := uuid.New().String()
		restore := zap.ReplaceGlobals(zap.L().With(zap.String("run_id", runID)))
		defer restore()

		log := zap.L().With(zap.String("component", "run"))
		start := time.Now()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run %s\n", runID)

		layer, err := loadLayer(cfg.Tracts)
		if err != nil {
			return err
		}

		if _, err := runAssign(cmd.Context(), layer, cfg.Assign, out); err != nil {
			return err
		}
		table, err := runAggregate(cfg.Assign.Output, cfg.Aggregate, out)
		if err != nil {
			return err
		}
		if err := runRender(cmd.Context(), layer, table, cfg.Render, out); err != nil {
			return err
		}

		log.Info("run complete", zap.Duration("elapsed", time.Since(start)))
		return nil
	},
}

func init() {
	addTractFlags(runCmd.Flags())
	addAssignFlags(runCmd)
	addAggregateFlags(runCmd)
	addRenderFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}
