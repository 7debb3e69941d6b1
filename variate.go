package chuusen

import "math"

// lognormalParams converts the desired mean and standard deviation of the
// variate into the mu and sigma of the underlying normal distribution.
func lognormalParams(mean, stdDev float64) (mu, sigma float64) {
	mu = math.Log(mean * mean / math.Sqrt(stdDev*stdDev+mean*mean))
	sigma = math.Sqrt(math.Log(stdDev*stdDev/(mean*mean) + 1))
	return mu, sigma
}

// LogNormal draws one log-normal variate whose mean and standard deviation
// approximate the given parameters. It consumes exactly two uniform draws
// (Box-Muller) and always returns a positive value. mean must be > 0 and
// stdDev >= 0; a zero stdDev returns mean.
func LogNormal(src RandomSource, mean, stdDev float64) float64 {
	mu, sigma := lognormalParams(mean, stdDev)

	// 1-u keeps the first draw in (0, 1] so the log stays finite
	u1 := 1 - src.Float64()
	u2 := src.Float64()
	if sigma == 0 {
		// exp(mu) can land an ulp away from mean
		return mean
	}
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

	return math.Exp(mu + sigma*z)
}
