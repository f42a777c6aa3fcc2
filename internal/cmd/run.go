package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mr1hm/quake-etl/internal/ingestion"
	"github.com/mr1hm/quake-etl/internal/output"
	"github.com/mr1hm/quake-etl/internal/pipeline"
	"github.com/mr1hm/quake-etl/internal/progress"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, transform and load a range of years",
	Long: `Fetch every calendar month of the year range from the feed, write the raw
snapshot, then flatten, normalize and append the rows in one transaction.
Months that fail are reported and skipped; the run still loads the rest.`,
	Example: `  quake-etl run
  quake-etl run --start-year 2023 --end-year 2024 --concurrency 4
  DB_DRIVER=mysql DB_DSN='root:pw@tcp(localhost:3306)/earthquake_db' quake-etl run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		fetcher := ingestion.NewFetcher(cfg.Feed)
		defer fetcher.Close()

		done := watchProgress(cmd.ErrOrStderr(), fetcher, monthsIn(cfg.Feed.StartYear, cfg.Feed.EndYear))
		sum, err := pipeline.New(fetcher, store, cfg.Feed.SnapshotPath).Run(ctx, cfg.Feed.StartYear, cfg.Feed.EndYear)
		done()
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
	rootCmd.AddCommand(runCmd)
	addRangeFlags(runCmd)
}

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().Int("start-year", 0, "first year to fetch (default $FEED_START_YEAR or 2020)")
	cmd.Flags().Int("end-year", 0, "last year to fetch, inclusive (default $FEED_END_YEAR or 2025)")
	cmd.Flags().Int("concurrency", 0, "windows fetched in parallel (default $FEED_CONCURRENCY or 1)")
	cmd.Flags().String("snapshot", "", "raw snapshot path (default $SNAPSHOT_PATH)")
}

// watchProgress prints one line per finished window until the returned
// func is called. The subscription holds every window of the run, so a slow
// terminal never loses a line.
func watchProgress(w io.Writer, fetcher *ingestion.Fetcher, windows int) func() {
	b := progress.NewBroadcaster[ingestion.WindowResult]()
	fetcher.SetProgress(b)

	_, updates := b.Subscribe(max(windows, 1))

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for r := range updates {
			if r.OK() {
				output.Info(w, "%s  %d events (%s)", r.Window, len(r.Events), r.Duration.Round(time.Millisecond))
			} else {
				output.Warn(w, "%s  %v", r.Window, r.Err)
			}
		}
	}()

	return func() {
		b.Close()
		<-finished
		fetcher.SetProgress(nil)
	}
}

// monthsIn counts the fetch windows of an inclusive year range.
func monthsIn(startYear, endYear int) int {
	return (endYear - startYear + 1) * 12
}

func printSummary(w io.Writer, sum *pipeline.Summary, loaded bool) {
	output.Info(w, "run %s finished in %s", sum.RunID, sum.Duration.Round(time.Millisecond))
	if sum.Windows > 0 {
		output.Info(w, "windows: %d fetched, %d failed", sum.Windows-len(sum.FailedWindows), len(sum.FailedWindows))
	}
	if sum.SnapshotPath != "" {
		output.Info(w, "snapshot: %s (%d raw events)", sum.SnapshotPath, sum.RawEvents)
	}

	if len(sum.FailedWindows) > 0 {
		output.Warn(w, "%d windows contributed no records", len(sum.FailedWindows))
		table := output.NewTable([]string{"WINDOW", "ERROR"})
		for _, f := range sum.FailedWindows {
			table.AddRow([]string{f.Window.String(), fmt.Sprint(f.Err)})
		}
		table.Render(w)
	}

	if loaded {
		output.Success(w, "%d rows appended", sum.Loaded)
	}
}
