package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/la-crime/crimetracts/internal/assign"
	"github.com/la-crime/crimetracts/internal/config"
	"github.com/la-crime/crimetracts/internal/tract"
)

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Assign census tracts to every crime incident",
	Long:  "Streams the crime incident CSV in chunks, joins each located incident against the tract layer and writes the enriched CSV.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyTractFlags(cmd)
		applyAssignFlags(cmd)

		layer, err := loadLayer(cfg.Tracts)
		if err != nil {
			return err
		}

		_, err = runAssign(cmd.Context(), layer, cfg.Assign, cmd.OutOrStdout())
		return err
	},
}

func runAssign(ctx context.Context, layer *tract.Layer, c config.AssignConfig, out io.Writer) (assign.Stats, error) {
	stats, err := assign.Run(ctx, layer, assign.Options{
		Input:       c.Input,
		Output:      c.Output,
		ChunkSize:   c.ChunkSize,
		ReportEvery: c.ReportEvery,
		Progress:    assign.TerminalProgress(c.ProgressBar),
	})
	if err != nil {
		return stats, err
	}

	fmt.Fprintln(out, stats.Summary())
	fmt.Fprintf(out, "Results saved to %s\n", c.Output)
	return stats, nil
}

func addAssignFlags(cmd *cobra.Command) {
	cmd.Flags().String("input", "", "crime incident CSV; overrides assign.input")
	cmd.Flags().String("output", "", "enriched CSV; overrides assign.output")
	cmd.Flags().Int("chunk-size", 0, "rows per join batch; overrides assign.chunk_size")
	cmd.Flags().Bool("progress", true, "show a progress bar on a terminal; overrides assign.progress_bar")
}

func applyAssignFlags(cmd *cobra.Command) {
	overrideString(cmd, "input", &cfg.Assign.Input)
	overrideString(cmd, "output", &cfg.Assign.Output)
	overrideInt(cmd, "chunk-size", &cfg.Assign.ChunkSize)
	overrideBool(cmd, "progress", &cfg.Assign.ProgressBar)
}

func init() {
	addTractFlags(assignCmd.Flags())
	addAssignFlags(assignCmd)
	rootCmd.AddCommand(assignCmd)
}
