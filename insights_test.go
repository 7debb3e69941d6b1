package chuusen

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsights(t *testing.T) {
	input := SimulationInput{
		TotalBallots:        1000,
		NumWinners:          10,
		AvgBallotsPerPerson: 10,
		StdDev:              1.5,
		NumChannels:         2,
		NumSimulations:      200,
		YourBallots:         5,
	}
	result := &AggregateResult{
		YouWinCount:       12,
		TotalPeopleInPool: 101,
		ChannelAnalysis: map[int]ChannelOutcome{
			0: {YouWonCount: 7, TotalWinners: 1000},
			1: {YouWonCount: 5, TotalWinners: 998},
		},
	}

	ins := Insights(input, result)
	assert.Equal(t, 6.0, ins.YourWinPercentage)
	assert.InDelta(t, 10.0, ins.ExpectedWins, 1e-9)
	assert.InDelta(t, 1.0, ins.ChancePerBallotPercent, 1e-9)
	assert.Equal(t, 101, ins.TotalPeopleInPool)
	assert.Equal(t, 1998, ins.TotalWinners)

	t.Run("nil result", func(t *testing.T) {
		assert.Equal(t, RunInsights{}, Insights(input, nil))
	})

	t.Run("zero ballots", func(t *testing.T) {
		in := input
		in.TotalBallots = 0
		got := Insights(in, result)
		assert.Zero(t, got.ExpectedWins)
		assert.Zero(t, got.ChancePerBallotPercent)
	})
}

func TestLogNormalCurve(t *testing.T) {
	t.Run("shape", func(t *testing.T) {
		curve := LogNormalCurve(10, 1.5, 100)
		require.NotEmpty(t, curve)

		// max(10, 3*10) / 100
		assert.Equal(t, 0.1, curve[0].Ballots)
		assert.InDelta(t, 0.4, curve[1].Ballots, 1e-9)
		assert.LessOrEqual(t, curve[len(curve)-1].Ballots, 30.0)
		assert.Len(t, curve, 100)

		peak := curve[0]
		for _, p := range curve {
			assert.GreaterOrEqual(t, p.Density, 0.0)
			if p.Density > peak.Density {
				peak = p
			}
		}
		assert.InDelta(t, 10.0, peak.Ballots, 1.0)
	})

	t.Run("density integrates to about one", func(t *testing.T) {
		curve := LogNormalCurve(10, 1.5, 1000)
		step := curve[1].Ballots - curve[0].Ballots
		var area float64
		for _, p := range curve {
			area += p.Density * step
		}
		assert.InDelta(t, 1.0, area, 0.02)
	})

	t.Run("small means use a floor of ten", func(t *testing.T) {
		curve := LogNormalCurve(1, 0.5, 10)
		require.NotEmpty(t, curve)
		assert.InDelta(t, 1.1, curve[1].Ballots, 1e-9)
	})

	t.Run("zero deviation has no density", func(t *testing.T) {
		for _, p := range LogNormalCurve(10, 0, 10) {
			assert.Zero(t, p.Density)
		}
	})

	t.Run("invalid parameters", func(t *testing.T) {
		assert.Nil(t, LogNormalCurve(0, 1, 10))
		assert.Nil(t, LogNormalCurve(10, -1, 10))
		assert.Nil(t, LogNormalCurve(math.NaN(), 1, 10))
	})

	t.Run("default point count", func(t *testing.T) {
		assert.Len(t, LogNormalCurve(10, 1.5, 0), DefaultCurvePoints)
	})
}
