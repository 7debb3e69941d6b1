package chuusen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionChannel(t *testing.T) {
	tests := []struct {
		name  string
		input SimulationInput
		want  []ChannelShare
	}{
		{
			name:  "single channel keeps totals",
			input: SimulationInput{TotalBallots: 1000, NumWinners: 10, NumChannels: 1, YourBallots: 3},
			want:  []ChannelShare{{TotalBallots: 1000, NumWinners: 10, YourBallots: 3}},
		},
		{
			name:  "remainders of totals are dropped",
			input: SimulationInput{TotalBallots: 10, NumWinners: 5, NumChannels: 3, YourBallots: 4},
			want: []ChannelShare{
				{TotalBallots: 3, NumWinners: 1, YourBallots: 2},
				{TotalBallots: 3, NumWinners: 1, YourBallots: 1},
				{TotalBallots: 3, NumWinners: 1, YourBallots: 1},
			},
		},
		{
			name:  "your remainder goes to the lowest indices",
			input: SimulationInput{TotalBallots: 400, NumWinners: 40, NumChannels: 4, YourBallots: 10},
			want: []ChannelShare{
				{TotalBallots: 100, NumWinners: 10, YourBallots: 3},
				{TotalBallots: 100, NumWinners: 10, YourBallots: 3},
				{TotalBallots: 100, NumWinners: 10, YourBallots: 2},
				{TotalBallots: 100, NumWinners: 10, YourBallots: 2},
			},
		},
		{
			name:  "a single ballot is present in every channel",
			input: SimulationInput{TotalBallots: 300, NumWinners: 3, NumChannels: 3, YourBallots: 1},
			want: []ChannelShare{
				{TotalBallots: 100, NumWinners: 1, YourBallots: 1},
				{TotalBallots: 100, NumWinners: 1, YourBallots: 1},
				{TotalBallots: 100, NumWinners: 1, YourBallots: 1},
			},
		},
		{
			name:  "no ballots of yours",
			input: SimulationInput{TotalBallots: 20, NumWinners: 2, NumChannels: 2},
			want: []ChannelShare{
				{TotalBallots: 10, NumWinners: 1},
				{TotalBallots: 10, NumWinners: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PartitionAll(tt.input))
			for i, want := range tt.want {
				assert.Equal(t, want, PartitionChannel(tt.input, i))
			}
		})
	}
}

func TestPartitionChannel_YourBallotsSum(t *testing.T) {
	for channels := 1; channels <= 7; channels++ {
		for yours := channels; yours <= 30; yours++ {
			input := SimulationInput{TotalBallots: 1000, NumWinners: 10, NumChannels: channels, YourBallots: yours}
			sum := 0
			for _, s := range PartitionAll(input) {
				sum += s.YourBallots
			}
			assert.Equal(t, yours, sum, "channels=%d yours=%d", channels, yours)
		}
	}
}
