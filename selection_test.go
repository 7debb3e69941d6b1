package chuusen

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuickselect(t *testing.T) {
	src := NewSeededSource(21, 22)
	for n := 1; n <= 40; n++ {
		values := make([]int, n)
		for i := range values {
			values[i] = src.IntN(8)
		}
		sorted := slices.Clone(values)
		slices.Sort(sorted)

		for k := range n {
			assert.Equal(t, sorted[k], quickselect(slices.Clone(values), k), "n=%d k=%d", n, k)
		}
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []int{7}, 7},
		{"odd length", []int{3, 1, 2}, 2},
		{"even length averages the middle pair", []int{4, 1, 3, 2}, 2.5},
		{"all equal", []int{5, 5, 5, 5}, 5},
		{"duplicates around the middle", []int{9, 1, 9, 1, 9, 1}, 5},
		{"already sorted", []int{1, 2, 3, 4, 5, 6, 7, 8}, 4.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Median(tt.values))
		})
	}
}

func TestMedian_MatchesSortedMedian(t *testing.T) {
	src := NewSeededSource(31, 32)
	for range 200 {
		values := make([]int, 1+src.IntN(60))
		for i := range values {
			values[i] = 1 + src.IntN(25)
		}
		sorted := slices.Clone(values)
		slices.Sort(sorted)

		n := len(sorted)
		want := float64(sorted[n/2])
		if n%2 == 0 {
			want = float64(sorted[n/2-1]+sorted[n/2]) / 2
		}
		assert.Equal(t, want, Median(values))
	}
}

func TestModeTracker(t *testing.T) {
	t.Run("first value to reach the top count wins ties", func(t *testing.T) {
		var m modeTracker
		m.observe(3, 1)
		m.observe(5, 1)
		m.observe(5, 2)
		m.observe(3, 2)

		assert.Equal(t, 5, m.value)
		assert.Equal(t, 2, m.count)
	})

	t.Run("a strictly higher count takes over", func(t *testing.T) {
		var m modeTracker
		m.observe(3, 1)
		m.observe(3, 2)
		m.observe(8, 1)
		m.observe(8, 2)
		m.observe(8, 3)

		assert.Equal(t, 8, m.value)
	})

	t.Run("nothing observed", func(t *testing.T) {
		var m modeTracker
		assert.Equal(t, 0, m.value)
	})
}
