package chuusen

import (
	"fmt"
	"math"
	"strconv"
)

// SimulationInput describes one lottery to simulate. It is read-only once a run starts.
type SimulationInput struct {
	TotalBallots        int     `json:"totalBallots" mapstructure:"total_ballots"`                 // Ballots sold across all channels
	NumWinners          int     `json:"numWinners" mapstructure:"num_winners"`                     // Winners across all channels
	AvgBallotsPerPerson float64 `json:"avgBallotsPerPerson" mapstructure:"avg_ballots_per_person"` // Mean of the log-normal ballot count
	StdDev              float64 `json:"stdDev" mapstructure:"std_dev"`                             // Standard deviation of the ballot count
	NumChannels         int     `json:"numChannels" mapstructure:"num_channels"`                   // Independent sub-lotteries
	NumSimulations      int     `json:"numSimulations" mapstructure:"num_simulations"`             // Trials to run
	YourBallots         int     `json:"yourBallots" mapstructure:"your_ballots"`                   // Ballots held by the distinguished participant
}

// DefaultInput returns the input a fresh user starts from
func DefaultInput() SimulationInput {
	return SimulationInput{
		TotalBallots:        DefaultTotalBallots,
		NumWinners:          DefaultNumWinners,
		AvgBallotsPerPerson: DefaultAvgBallotsPerPerson,
		StdDev:              DefaultStdDev,
		NumChannels:         DefaultNumChannels,
		NumSimulations:      DefaultNumSimulations,
		YourBallots:         DefaultYourBallots,
	}
}

// Validate checks the structural invariants of the input
func (in SimulationInput) Validate() error {
	if in.TotalBallots < 0 || in.NumWinners < 0 || in.YourBallots < 0 {
		return ErrNegativeCount.WithDetails(fmt.Sprintf(
			"totalBallots=%d numWinners=%d yourBallots=%d", in.TotalBallots, in.NumWinners, in.YourBallots))
	}
	if in.NumChannels < 1 {
		return ErrInvalidChannels.WithDetails(fmt.Sprintf("numChannels=%d", in.NumChannels))
	}
	if in.NumSimulations < 1 {
		return ErrInvalidSimulations.WithDetails(fmt.Sprintf("numSimulations=%d", in.NumSimulations))
	}
	if math.IsNaN(in.AvgBallotsPerPerson) || math.IsInf(in.AvgBallotsPerPerson, 0) || in.AvgBallotsPerPerson <= 0 {
		return ErrInvalidAverage.WithDetails(fmt.Sprintf("avgBallotsPerPerson=%v", in.AvgBallotsPerPerson))
	}
	if math.IsNaN(in.StdDev) || math.IsInf(in.StdDev, 0) || in.StdDev < 0 {
		return ErrInvalidStdDev.WithDetails(fmt.Sprintf("stdDev=%v", in.StdDev))
	}
	return nil
}

// Participant is one applicant in a single (trial, channel) roster
type Participant struct {
	ID          int `json:"id"`
	BallotCount int `json:"ballotCount"`
}

// IsDistinguished reports whether the participant is "you"
func (p Participant) IsDistinguished() bool { return p.ID == DistinguishedID }

// ChannelOutcome accumulates one channel's results across all trials
type ChannelOutcome struct {
	YouWonCount  int `json:"youWonCount"`
	TotalWinners int `json:"totalWinners"`
}

// Bin is one half-open integer range [Lower, Upper+1) of a distribution
type Bin struct {
	Label      string  `json:"label"`
	Lower      int     `json:"lower"`
	Upper      int     `json:"upper"`
	Percentage float64 `json:"percentage"`
}

// Distribution is an ordered set of bins whose percentages sum to about 100
type Distribution []Bin

// AsMap returns the label to percentage mapping
func (d Distribution) AsMap() map[string]float64 {
	m := make(map[string]float64, len(d))
	for _, b := range d {
		m[b.Label] += b.Percentage
	}
	return m
}

// Total returns the sum of all bin percentages
func (d Distribution) Total() float64 {
	var total float64
	for _, b := range d {
		total += b.Percentage
	}
	return total
}

// AggregateResult is the sole object a completed run returns
type AggregateResult struct {
	ProbabilityOfWinning    map[int]float64        `json:"probabilityOfWinning"`
	ProbabilityRateOfChange map[int]float64        `json:"probabilityRateOfChange"`
	WinnerProfile           Distribution           `json:"winnerProfile"`
	ApplicantDistribution   Distribution           `json:"applicantDistribution"`
	AvgBallotsPerWinner     float64                `json:"avgBallotsPerWinner"`
	MedianBallotsPerWinner  float64                `json:"medianBallotsPerWinner"`
	ModeBallotsPerWinner    int                    `json:"modeBallotsPerWinner"`
	ChannelAnalysis         map[int]ChannelOutcome `json:"channelAnalysis"`
	YouWinCount             int                    `json:"youWinCount"`
	TotalPeopleInPool       int                    `json:"totalPeopleInPool"`
}

// TotalWinners sums winners across all channels
func (r *AggregateResult) TotalWinners() int {
	total := 0
	for _, c := range r.ChannelAnalysis {
		total += c.TotalWinners
	}
	return total
}

// RunRecord is an archived run: its id, input, outcome and timing
type RunRecord struct {
	RunID      string           `json:"run_id"`
	Input      SimulationInput  `json:"input"`
	Result     *AggregateResult `json:"result,omitempty"`
	State      RunState         `json:"state"`
	Error      string           `json:"error,omitempty"`
	StartTime  int64            `json:"start_time"`
	FinishTime int64            `json:"finish_time"`
}

// Validate validates the record before it is stored or after it is loaded
func (r *RunRecord) Validate() error {
	if r.RunID == "" {
		return ErrStateCorrupted.WithDetails("empty run id")
	}
	if r.StartTime <= 0 || r.FinishTime < r.StartTime {
		return ErrStateCorrupted.WithDetails("invalid timestamps")
	}
	if r.State == StateCompleted && r.Result == nil {
		return ErrStateCorrupted.WithDetails("completed run without result")
	}
	return nil
}

// rangeLabel formats a bin label such as "10-14"
func rangeLabel(lower, upper int) string {
	return strconv.Itoa(lower) + "-" + strconv.Itoa(upper)
}
