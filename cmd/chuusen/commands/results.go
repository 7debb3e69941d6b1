package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	chuusen "github.com/hamproductions/chuusen-simulator"
)

var resultsJSON bool

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect archived runs",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if app.runArchive == nil {
			return chuusen.ErrResultNotFound.WithDetails("runs are only archived when Redis is used")
		}
		return nil
	},
}

var resultsLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the most recent run",
	RunE: func(cmd *cobra.Command, args []string) error {
		record, err := app.service.LatestRun(cmd.Context())
		if err != nil {
			return err
		}
		return printRecord(cmd.OutOrStdout(), record, resultsJSON)
	},
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived run ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := app.runArchive.ListRuns(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var resultsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete an archived run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.runArchive.DeleteRun(cmd.Context(), args[0])
	},
}

var resultsHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Print store circuit breaker health and run metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		report := map[string]any{
			"input_store":   chuusen.NewCircuitBreakerHealthCheck(app.inputBreaker).Check(),
			"result_store":  chuusen.NewCircuitBreakerMetrics(app.runArchive).CollectMetrics(),
			"store_metrics": app.monitor.GetMetrics(),
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	resultsLatestCmd.Flags().BoolVar(&resultsJSON, "json", false, "print the full result as JSON")
	resultsCmd.AddCommand(resultsLatestCmd, resultsListCmd, resultsDeleteCmd, resultsHealthCmd)
}
