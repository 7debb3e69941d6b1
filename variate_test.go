package chuusen

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNormal(t *testing.T) {
	t.Run("zero deviation returns the mean", func(t *testing.T) {
		src := NewSeededSource(1, 2)
		for _, mean := range []float64{10, 3, 2.5, 0.1, 1e6} {
			assert.Equal(t, mean, LogNormal(src, mean, 0))
		}

		scripted := &scriptedSource{floats: []float64{0.3, 0.7}}
		assert.Equal(t, 2.5, LogNormal(scripted, 2.5, 0))
		assert.Equal(t, 2, scripted.floatCalls, "draws are consumed even without spread")
		assert.Equal(t, 3, ballotCount(LogNormal(src, 2.5, 0)))
	})

	t.Run("consumes two uniform draws", func(t *testing.T) {
		src := &scriptedSource{floats: []float64{0.3, 0.7}}
		LogNormal(src, 10, 1.5)
		assert.Equal(t, 2, src.floatCalls)
		assert.Equal(t, 0, src.intCalls)
	})

	t.Run("a zero uniform draw stays finite", func(t *testing.T) {
		src := &scriptedSource{floats: []float64{0, 0.25}}
		v := LogNormal(src, 10, 1.5)
		assert.False(t, math.IsInf(v, 0))
		assert.Greater(t, v, 0.0)
	})

	t.Run("样本均值和标准差接近参数", func(t *testing.T) {
		src := NewSeededSource(42, 7)
		const n = 200000
		var sum, sumSq float64
		for range n {
			v := LogNormal(src, 10, 1.5)
			require.Greater(t, v, 0.0)
			sum += v
			sumSq += v * v
		}
		mean := sum / n
		std := math.Sqrt(sumSq/n - mean*mean)
		assert.InDelta(t, 10.0, mean, 0.05)
		assert.InDelta(t, 1.5, std, 0.05)
	})
}

func TestLognormalParams(t *testing.T) {
	mu, sigma := lognormalParams(10, 1.5)
	assert.InDelta(t, 10.0, math.Exp(mu+sigma*sigma/2), 1e-9)
	assert.InDelta(t, 1.5*1.5, (math.Exp(sigma*sigma)-1)*math.Exp(2*mu+sigma*sigma), 1e-9)
}
