package commands

import (
	"github.com/spf13/cobra"

	chuusen "github.com/hamproductions/chuusen-simulator"
)

// inputFlags are the per-field overrides shared by run and inputs save
type inputFlags struct {
	totalBallots   int
	numWinners     int
	avgBallots     float64
	stdDev         float64
	numChannels    int
	numSimulations int
	yourBallots    int
}

func (f *inputFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar(&f.totalBallots, "total-ballots", 0, "ballots sold across all channels")
	fs.IntVar(&f.numWinners, "winners", 0, "winners across all channels")
	fs.Float64Var(&f.avgBallots, "avg-ballots", 0, "mean ballots per applicant")
	fs.Float64Var(&f.stdDev, "std-dev", 0, "standard deviation of ballots per applicant")
	fs.IntVar(&f.numChannels, "channels", 0, "number of independent channels")
	fs.IntVarP(&f.numSimulations, "simulations", "n", 0, "number of trials")
	fs.IntVar(&f.yourBallots, "your-ballots", 0, "ballots you hold")
}

// apply overrides the fields whose flags were set explicitly
func (f *inputFlags) apply(cmd *cobra.Command, in chuusen.SimulationInput) chuusen.SimulationInput {
	fs := cmd.Flags()
	if fs.Changed("total-ballots") {
		in.TotalBallots = f.totalBallots
	}
	if fs.Changed("winners") {
		in.NumWinners = f.numWinners
	}
	if fs.Changed("avg-ballots") {
		in.AvgBallotsPerPerson = f.avgBallots
	}
	if fs.Changed("std-dev") {
		in.StdDev = f.stdDev
	}
	if fs.Changed("channels") {
		in.NumChannels = f.numChannels
	}
	if fs.Changed("simulations") {
		in.NumSimulations = f.numSimulations
	}
	if fs.Changed("your-ballots") {
		in.YourBallots = f.yourBallots
	}
	return in
}
