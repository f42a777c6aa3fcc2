package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mr1hm/quake-etl/internal/output"
	"github.com/mr1hm/quake-etl/internal/pipeline"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Transform and append a raw snapshot without fetching",
	Long: `Read a snapshot written by run or fetch, then flatten, normalize and append
it. The table is append-only: loading the same snapshot twice stores every
row twice.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		sum, err := pipeline.New(nil, store, "").LoadSnapshot(ctx, cfg.Feed.SnapshotPath)
		if err != nil {
			return err
		}

		c, closeCache := openCache(ctx)
		defer closeCache()
		if err := c.Invalidate(ctx); err != nil {
			output.Warn(cmd.ErrOrStderr(), "could not invalidate query cache: %v", err)
		}

		printSummary(cmd.OutOrStdout(), sum, true)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().String("snapshot", "", "raw snapshot path (default $SNAPSHOT_PATH)")
}
