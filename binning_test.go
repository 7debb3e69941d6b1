package chuusen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeFrequencies(t *testing.T) {
	t.Run("population statistics", func(t *testing.T) {
		st := DescribeFrequencies(Frequencies{2: 1, 4: 1})

		assert.Equal(t, 2, st.Count)
		assert.InDelta(t, 3.0, st.Mean, 1e-12)
		assert.InDelta(t, 1.0, st.StdDev, 1e-12)
	})

	t.Run("weights are counts", func(t *testing.T) {
		st := DescribeFrequencies(Frequencies{1: 3, 5: 1})

		assert.Equal(t, 4, st.Count)
		assert.InDelta(t, 2.0, st.Mean, 1e-12)
		assert.InDelta(t, 1.7320508, st.StdDev, 1e-6)
	})

	t.Run("empty sample", func(t *testing.T) {
		assert.Equal(t, SampleStats{}, DescribeFrequencies(Frequencies{}))
	})

	t.Run("single value has no spread", func(t *testing.T) {
		st := DescribeFrequencies(Frequencies{9: 4})
		assert.Equal(t, 9.0, st.Mean)
		assert.Equal(t, 0.0, st.StdDev)
	})
}

func TestBinDistribution(t *testing.T) {
	t.Run("values outside the range are clamped", func(t *testing.T) {
		cfg := BinningConfig{BinCount: 3, LowerSpread: 1, UpperSpread: 1}
		// mean 5.5, sd 4.5: range [1, 10], bin size 3
		bins := BinDistribution(Frequencies{1: 1, 10: 1}, cfg)

		require.Len(t, bins, 3)
		assert.Equal(t, []string{"1-3", "4-6", "7-9"}, []string{bins[0].Label, bins[1].Label, bins[2].Label})
		assert.Equal(t, 50.0, bins[0].Percentage)
		assert.Equal(t, 0.0, bins[1].Percentage)
		assert.Equal(t, 50.0, bins[2].Percentage)
		assert.Equal(t, map[string]float64{"1-3": 50, "4-6": 0, "7-9": 50}, bins.AsMap())
	})

	t.Run("zero spread puts everything in the first bin", func(t *testing.T) {
		bins := BinDistribution(Frequencies{5: 10}, DefaultBinningConfig())

		require.Len(t, bins, DefaultBinCount)
		assert.Equal(t, Bin{Label: "5-5", Lower: 5, Upper: 5, Percentage: 100}, bins[0])
		assert.Equal(t, "6-6", bins[1].Label)
	})

	t.Run("lower bound never drops below one", func(t *testing.T) {
		bins := BinDistribution(Frequencies{1: 50, 2: 30, 30: 1}, DefaultBinningConfig())

		require.NotEmpty(t, bins)
		assert.Equal(t, 1, bins[0].Lower)
	})

	t.Run("percentages sum to one hundred", func(t *testing.T) {
		src := NewSeededSource(41, 42)
		freq := make(Frequencies)
		for range 5000 {
			freq.Add(ballotCount(LogNormal(src, 10, 3)))
		}

		bins := BinDistribution(freq, DefaultBinningConfig())
		require.Len(t, bins, DefaultBinCount)
		assert.InDelta(t, 100.0, bins.Total(), 1e-9)
		for i := 1; i < len(bins); i++ {
			assert.Equal(t, bins[i-1].Upper+1, bins[i].Lower)
		}
	})

	t.Run("empty sample has no bins", func(t *testing.T) {
		assert.Empty(t, BinDistribution(Frequencies{}, DefaultBinningConfig()))
		assert.Empty(t, BinDistribution(nil, DefaultBinningConfig()))
	})
}

func TestBinningConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     BinningConfig
		wantErr bool
	}{
		{"default", DefaultBinningConfig(), false},
		{"zero bins", BinningConfig{BinCount: 0, LowerSpread: 3, UpperSpread: 2}, true},
		{"negative spread", BinningConfig{BinCount: 10, LowerSpread: -1, UpperSpread: 2}, true},
		{"zero spreads", BinningConfig{BinCount: 10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidBinning)
				assert.True(t, IsValidationError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []int{1, 4, 9}, sortedKeys(map[int]float64{9: 0.1, 1: 0.2, 4: 0.3}))
	assert.Empty(t, sortedKeys(map[int]int{}))
}
