package chuusen

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// BinningConfig shapes the adaptive histogram of a ballot-count sample
type BinningConfig struct {
	BinCount    int     `mapstructure:"bin_count"`    // Number of equal-width bins
	LowerSpread float64 `mapstructure:"lower_spread"` // Standard deviations below the mean where the first bin starts
	UpperSpread float64 `mapstructure:"upper_spread"` // Standard deviations above the mean where the last bin ends
}

// DefaultBinningConfig returns the 50 bin, -3sd..+2sd layout
func DefaultBinningConfig() BinningConfig {
	return BinningConfig{
		BinCount:    DefaultBinCount,
		LowerSpread: DefaultLowerSpread,
		UpperSpread: DefaultUpperSpread,
	}
}

// Validate validates the binning configuration
func (c BinningConfig) Validate() error {
	if c.BinCount < 1 {
		return ErrInvalidBinning.WithDetails(fmt.Sprintf("bin_count=%d", c.BinCount))
	}
	if c.LowerSpread < 0 || c.UpperSpread < 0 || math.IsNaN(c.LowerSpread) || math.IsNaN(c.UpperSpread) {
		return ErrInvalidBinning.WithDetails(fmt.Sprintf("lower_spread=%v upper_spread=%v", c.LowerSpread, c.UpperSpread))
	}
	return nil
}

// SampleStats holds the population mean and standard deviation of a sample
type SampleStats struct {
	Count  int
	Mean   float64
	StdDev float64
}

// DescribeFrequencies computes population statistics of a frequency sample
func DescribeFrequencies(freq Frequencies) SampleStats {
	if len(freq) == 0 {
		return SampleStats{}
	}

	keys := sortedKeys(freq)
	x := make([]float64, len(keys))
	weights := make([]float64, len(keys))
	total := 0
	for i, k := range keys {
		x[i] = float64(k)
		weights[i] = float64(freq[k])
		total += freq[k]
	}

	mean, std := stat.PopMeanStdDev(x, weights)
	if math.IsNaN(std) {
		std = 0
	}
	return SampleStats{Count: total, Mean: mean, StdDev: std}
}

// BinDistribution buckets a frequency sample into cfg.BinCount equal-width
// integer bins spanning [max(1, floor(mean-lower*sd)), ceil(mean+upper*sd)].
// Values outside the range fall into the first or last bin. Percentages are
// relative to the whole sample; an empty sample yields no bins.
func BinDistribution(freq Frequencies, cfg BinningConfig) Distribution {
	st := DescribeFrequencies(freq)
	if st.Count == 0 || cfg.BinCount < 1 {
		return Distribution{}
	}

	minValue := max(1, int(math.Floor(st.Mean-cfg.LowerSpread*st.StdDev)))
	maxValue := int(math.Ceil(st.Mean + cfg.UpperSpread*st.StdDev))
	binSize := max(1, int(math.Round(float64(maxValue-minValue)/float64(cfg.BinCount))))

	bins := make(Distribution, cfg.BinCount)
	for i := range bins {
		lower := minValue + i*binSize
		upper := lower + binSize - 1
		bins[i] = Bin{Label: rangeLabel(lower, upper), Lower: lower, Upper: upper}
	}

	counts := make([]int, cfg.BinCount)
	for value, n := range freq {
		idx := 0
		if value > minValue {
			idx = min((value-minValue)/binSize, cfg.BinCount-1)
		}
		counts[idx] += n
	}

	for i := range bins {
		bins[i].Percentage = percentOf(counts[i], st.Count)
	}
	return bins
}

// sortedKeys returns the ballot counts of freq in ascending order
func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
