package chuusen

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/big"
	"math/rand/v2"
	"sync"
	"time"
)

// FastSource is the default RandomSource backed by a PCG generator.
// It is not safe for concurrent use; each run owns its own instance.
type FastSource struct {
	rng *rand.Rand
}

// NewFastSource creates a PCG source seeded from crypto/rand
func NewFastSource() *FastSource {
	return NewSeededSource(newSeed(), newSeed())
}

// NewSeededSource creates a PCG source with a fixed seed, mostly for tests
func NewSeededSource(seed1, seed2 uint64) *FastSource {
	return &FastSource{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// Float64 returns a uniform value in [0, 1)
func (s *FastSource) Float64() float64 { return s.rng.Float64() }

// IntN returns a uniform value in [0, n)
func (s *FastSource) IntN(n int) int { return s.rng.IntN(n) }

// newSeed reads 8 bytes from crypto/rand, falling back to the clock
func newSeed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// SecureRandomGenerator implements RandomSource using crypto/rand with a float cache
type SecureRandomGenerator struct {
	cache      []float64
	cacheSize  int
	cacheIndex int
	cacheMtx   sync.Mutex
}

// NewSecureRandomGenerator creates a secure random generator with the given cache size.
//
// If no cache size is provided, the default cache size will be used.
func NewSecureRandomGenerator(cacheSize ...int) *SecureRandomGenerator {
	size := DefaultFastRandomGeneratorCacheSize
	if len(cacheSize) > 0 && cacheSize[0] > 0 {
		size = cacheSize[0]
	}

	generator := &SecureRandomGenerator{
		cache:     make([]float64, size),
		cacheSize: size,
	}

	// 预填充缓存
	generator.refillCache()
	return generator
}

// refillCache refills the random number cache
func (g *SecureRandomGenerator) refillCache() {
	for i := range g.cacheSize {
		val, err := generateFloat()
		if err != nil {
			// 如果生成失败，使用备用方法
			val = float64(i) / float64(g.cacheSize)
		}
		g.cache[i] = val
	}
	g.cacheIndex = 0
}

// Float64 returns a secure random float in [0, 1)
func (g *SecureRandomGenerator) Float64() float64 {
	g.cacheMtx.Lock()
	defer g.cacheMtx.Unlock()

	if g.cacheIndex >= g.cacheSize {
		g.refillCache()
	}

	result := g.cache[g.cacheIndex]
	g.cacheIndex++
	return result
}

// IntN returns a secure random int in [0, n)
func (g *SecureRandomGenerator) IntN(n int) int {
	if n <= 1 {
		return 0
	}

	result := int(g.Float64() * float64(n))
	// floating point precision
	if result >= n {
		result = n - 1
	}
	return result
}

// generateFloat generates a secure random float between 0 and 1 (exclusive of 1)
func generateFloat() (float64, error) {
	randomBig, err := crand.Int(crand.Reader, big.NewInt(1<<53))
	if err != nil {
		return 0, err
	}
	return float64(randomBig.Int64()) / float64(1<<53), nil
}

// NewRandomSource returns the source selected by name, defaulting to FastSource
func NewRandomSource(kind string) RandomSource {
	if kind == RandomSourceSecure {
		return NewSecureRandomGenerator()
	}
	return NewFastSource()
}
