package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mr1hm/quake-etl/internal/output"
	"github.com/mr1hm/quake-etl/internal/repository"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List and run the analytical queries",
}

var queryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the query catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")
		catalog := repository.Insights()

		return output.Render(cmd.OutOrStdout(), format, catalog, func() *output.Table {
			table := output.NewTable([]string{"NAME", "CATEGORY", "TITLE", "STATUS"})
			for _, in := range catalog {
				status := "ok"
				if !in.Supported() {
					status = "missing " + strings.Join(in.Missing, ", ")
				}
				table.AddRow([]string{in.Name, in.Category, in.Title, status})
			}
			return table
		})
	},
}

var queryRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Run one query from the catalog",
	Example: `  quake-etl query run top-strongest
  quake-etl query run events-per-hour --output json
  quake-etl query run yoy-growth -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")

		in, err := repository.LookupInsight(args[0])
		if err != nil {
			return fmt.Errorf("%w (see 'quake-etl query list')", err)
		}
		if !in.Supported() {
			return fmt.Errorf("%w: %s needs %s", repository.ErrUnsupportedInsight, in.Name, strings.Join(in.Missing, ", "))
		}

		ctx, stop := signalContext()
		defer stop()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		res, err := store.RunInsight(ctx, in.Name)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if format == output.FormatTable || format == "" {
			output.Info(w, "%s", in.Title)
		}
		return output.Render(w, format, res, func() *output.Table {
			table := output.NewTable(res.Columns)
			for _, row := range res.Rows {
				table.AddValues(row)
			}
			return table
		})
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.AddCommand(queryListCmd, queryRunCmd)
	queryCmd.PersistentFlags().StringP("output", "o", output.FormatTable, "output format: table, json, yaml")
}
