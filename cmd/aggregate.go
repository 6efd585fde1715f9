package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/la-crime/crimetracts/internal/config"
	"github.com/la-crime/crimetracts/internal/incident"
	"github.com/la-crime/crimetracts/internal/stats"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate enriched incidents into per-tract statistics",
	Long:  "Counts incidents per census tract and per top crime type, and writes the statistics table as CSV and optionally XLSX.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		overrideString(cmd, "input", &cfg.Assign.Output)
		applyAggregateFlags(cmd)

		_, err := runAggregate(cfg.Assign.Output, cfg.Aggregate, cmd.OutOrStdout())
		return err
	},
}

func runAggregate(input string, c config.AggregateConfig, out io.Writer) (*stats.Table, error) {
	f, err := os.Open(input)
	if err != nil {
		return nil, eris.Wrapf(err, "aggregate: open %s", input)
	}
	defer f.Close() //nolint:errcheck

	table, err := stats.Aggregate(incident.ScanEnriched(f), c.TopN)
	if err != nil {
		return nil, err
	}

	if err := table.WriteCSVFile(c.Output); err != nil {
		return nil, err
	}
	if c.XLSXOutput != "" {
		if err := table.WriteXLSX(c.XLSXOutput); err != nil {
			return nil, err
		}
	}

	fmt.Fprintf(out, "Aggregated %s crimes into %s census tracts and %d crime type columns\n",
		humanize.Comma(int64(table.Sum())), humanize.Comma(int64(len(table.Rows))), len(table.Columns))
	fmt.Fprintf(out, "Statistics saved to %s\n", c.Output)
	if c.XLSXOutput != "" {
		fmt.Fprintf(out, "Workbook saved to %s\n", c.XLSXOutput)
	}
	return table, nil
}

func addAggregateFlags(cmd *cobra.Command) {
	cmd.Flags().String("stats", "", "statistics CSV; overrides aggregate.output")
	cmd.Flags().String("xlsx", "", "statistics workbook; overrides aggregate.xlsx_output")
	cmd.Flags().Int("top", 0, "crime types pivoted into columns; overrides aggregate.top_n")
}

func applyAggregateFlags(cmd *cobra.Command) {
	overrideString(cmd, "stats", &cfg.Aggregate.Output)
	overrideString(cmd, "xlsx", &cfg.Aggregate.XLSXOutput)
	overrideInt(cmd, "top", &cfg.Aggregate.TopN)
}

func init() {
	aggregateCmd.Flags().String("input", "", "enriched incident CSV; overrides assign.output")
	addAggregateFlags(aggregateCmd)
	rootCmd.AddCommand(aggregateCmd)
}
