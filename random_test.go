package chuusen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomSources(t *testing.T) {
	sources := map[string]RandomSource{
		"fast":   NewFastSource(),
		"seeded": NewSeededSource(1, 2),
		"secure": NewSecureRandomGenerator(16),
	}

	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			for range 1000 {
				f := src.Float64()
				assert.GreaterOrEqual(t, f, 0.0)
				assert.Less(t, f, 1.0)

				n := src.IntN(7)
				assert.GreaterOrEqual(t, n, 0)
				assert.Less(t, n, 7)
			}
		})
	}
}

func TestNewSeededSource_Deterministic(t *testing.T) {
	a := NewSeededSource(7, 8)
	b := NewSeededSource(7, 8)
	for range 100 {
		assert.Equal(t, a.Float64(), b.Float64())
		assert.Equal(t, a.IntN(1000), b.IntN(1000))
	}
}

func TestSecureRandomGenerator(t *testing.T) {
	t.Run("cache refills", func(t *testing.T) {
		g := NewSecureRandomGenerator(4)
		for range 10 {
			g.Float64()
		}
		assert.Equal(t, 2, g.cacheIndex)
	})

	t.Run("default cache size", func(t *testing.T) {
		assert.Equal(t, DefaultFastRandomGeneratorCacheSize, NewSecureRandomGenerator().cacheSize)
		assert.Equal(t, DefaultFastRandomGeneratorCacheSize, NewSecureRandomGenerator(0).cacheSize)
	})

	t.Run("degenerate ranges", func(t *testing.T) {
		g := NewSecureRandomGenerator(4)
		assert.Equal(t, 0, g.IntN(1))
		assert.Equal(t, 0, g.IntN(0))
	})
}

func TestNewRandomSource(t *testing.T) {
	assert.IsType(t, &SecureRandomGenerator{}, NewRandomSource(RandomSourceSecure))
	assert.IsType(t, &FastSource{}, NewRandomSource(RandomSourceFast))
	assert.IsType(t, &FastSource{}, NewRandomSource(""))
}
