package chuusen

// ChannelShare is one channel's slice of the input totals
type ChannelShare struct {
	TotalBallots int `json:"totalBallots"`
	NumWinners   int `json:"numWinners"`
	YourBallots  int `json:"yourBallots"`
}

// PartitionChannel splits the input totals for the channel at index.
//
// Ballot and winner totals are floor-divided and their remainders dropped.
// Your ballots are split evenly with the remainder going to the lowest
// indices, and a positive holding is never reduced to zero in any channel.
func PartitionChannel(input SimulationInput, index int) ChannelShare {
	n := input.NumChannels
	if n < 1 {
		n = 1
	}

	yours := input.YourBallots / n
	if index < input.YourBallots%n {
		yours++
	}
	if input.YourBallots > 0 && yours < 1 {
		yours = 1
	}

	return ChannelShare{
		TotalBallots: input.TotalBallots / n,
		NumWinners:   input.NumWinners / n,
		YourBallots:  yours,
	}
}

// PartitionAll returns the shares of every channel in index order
func PartitionAll(input SimulationInput) []ChannelShare {
	shares := make([]ChannelShare, input.NumChannels)
	for i := range shares {
		shares[i] = PartitionChannel(input, i)
	}
	return shares
}
