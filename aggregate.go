package chuusen

import "math"

// accumulator owns the running tallies of one run. It is discarded once the
// result has been aggregated, or when the run is cancelled or fails.
type accumulator struct {
	applicants    Frequencies // ballot count -> other applicants generated
	winTally      Frequencies // ballot count -> winners
	winnerBallots []int
	mode          modeTracker
	channels      map[int]ChannelOutcome
	youWinCount   int
}

func newAccumulator(numChannels int) *accumulator {
	return &accumulator{
		applicants: make(Frequencies),
		winTally:   make(Frequencies),
		channels:   make(map[int]ChannelOutcome, numChannels),
	}
}

// recordWinners tallies one (trial, channel) draw
func (a *accumulator) recordWinners(channel int, roster *Roster, winners []int) {
	outcome := a.channels[channel]
	for _, id := range winners {
		count := roster.BallotCount(id)
		a.winnerBallots = append(a.winnerBallots, count)
		a.winTally.Add(count)
		a.mode.observe(count, a.winTally[count])

		if id == DistinguishedID {
			outcome.YouWonCount++
			a.youWinCount++
		}
	}
	outcome.TotalWinners += len(winners)
	a.channels[channel] = outcome
}

// aggregate turns the accumulated tallies into the final result. Probabilities
// are taken over the applicant sample only, so a count held by you alone has
// no entry and your own wins can push a probability above 1.
func (a *accumulator) aggregate(input SimulationInput, cfg BinningConfig) *AggregateResult {
	probability := make(map[int]float64, len(a.winTally))
	for count, wins := range a.winTally {
		if denom := a.applicants[count]; denom > 0 {
			probability[count] = float64(wins) / float64(denom)
		}
	}

	rateOfChange := make(map[int]float64, max(0, len(probability)-1))
	counts := sortedKeys(probability)
	for i := 1; i < len(counts); i++ {
		rateOfChange[counts[i]] = probability[counts[i]] - probability[counts[i-1]]
	}

	winners := DescribeFrequencies(a.winTally)

	channels := make(map[int]ChannelOutcome, input.NumChannels)
	for i := range input.NumChannels {
		channels[i] = a.channels[i]
	}

	totalPeople := int(math.Floor(float64(input.TotalBallots) / input.AvgBallotsPerPerson))
	if input.YourBallots > 0 {
		totalPeople++
	}

	return &AggregateResult{
		ProbabilityOfWinning:    probability,
		ProbabilityRateOfChange: rateOfChange,
		WinnerProfile:           BinDistribution(a.winTally, cfg),
		ApplicantDistribution:   BinDistribution(a.applicants, cfg),
		AvgBallotsPerWinner:     winners.Mean,
		MedianBallotsPerWinner:  Median(a.winnerBallots),
		ModeBallotsPerWinner:    a.mode.value,
		ChannelAnalysis:         channels,
		YouWinCount:             a.youWinCount,
		TotalPeopleInPool:       totalPeople,
	}
}
