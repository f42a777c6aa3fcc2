package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mr1hm/quake-etl/internal/ingestion"
	"github.com/mr1hm/quake-etl/internal/pipeline"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a range of years into the raw snapshot without loading",
	Example: `  quake-etl fetch --start-year 2020 --end-year 2025 --snapshot ./data/raw.json
  quake-etl load --snapshot ./data/raw.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		fetcher := ingestion.NewFetcher(cfg.Feed)
		defer fetcher.Close()

		done := watchProgress(cmd.ErrOrStderr(), fetcher, monthsIn(cfg.Feed.StartYear, cfg.Feed.EndYear))
		sum, err := pipeline.New(fetcher, nil, cfg.Feed.SnapshotPath).Fetch(ctx, cfg.Feed.StartYear, cfg.Feed.EndYear)
		done()
		if err != nil {
			return err
		}

		printSummary(cmd.OutOrStdout(), sum, false)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	addRangeFlags(fetchCmd)
}
