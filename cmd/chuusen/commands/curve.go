package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	chuusen "github.com/hamproductions/chuusen-simulator"
)

var curvePoints int

var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Print the ballot-count density of the saved input",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := app.service.CurrentInput(cmd.Context())
		if err != nil {
			return err
		}

		points := chuusen.LogNormalCurve(input.AvgBallotsPerPerson, input.StdDev, curvePoints)
		fmt.Fprintln(cmd.OutOrStdout(), "ballots\tdensity")
		for _, p := range points {
			fmt.Fprintf(cmd.OutOrStdout(), "%.2f\t%.6f\n", p.Ballots, p.Density)
		}
		return nil
	},
}

func init() {
	curveCmd.Flags().IntVar(&curvePoints, "points", chuusen.DefaultCurvePoints, "number of samples")
}
