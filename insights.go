package chuusen

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// RunInsights are the headline numbers shown next to a result
type RunInsights struct {
	YourWinPercentage      float64 `json:"yourWinPercentage"`      // Share of trials you won, in percent
	ExpectedWins           float64 `json:"expectedWins"`           // Wins a uniform per-ballot draw would give you over all trials
	ChancePerBallotPercent float64 `json:"chancePerBallotPercent"` // Winners per ballot, in percent
	TotalPeopleInPool      int     `json:"totalPeopleInPool"`
	TotalWinners           int     `json:"totalWinners"`
}

// Insights derives the headline numbers of a completed run
func Insights(input SimulationInput, result *AggregateResult) RunInsights {
	var ins RunInsights
	if result == nil {
		return ins
	}

	ins.TotalPeopleInPool = result.TotalPeopleInPool
	ins.TotalWinners = result.TotalWinners()
	ins.YourWinPercentage = percentOf(result.YouWinCount, input.NumSimulations)
	if input.TotalBallots > 0 {
		ins.ExpectedWins = float64(input.YourBallots) / float64(input.TotalBallots) *
			float64(input.NumWinners) * float64(input.NumSimulations)
		ins.ChancePerBallotPercent = float64(input.NumWinners) / float64(input.TotalBallots) * 100
	}
	return ins
}

// CurvePoint is one sample of the ballot-count density
type CurvePoint struct {
	Ballots float64 `json:"ballots"`
	Density float64 `json:"density"`
}

// LogNormalCurve samples the density of the ballot-count model from 0.1 up to
// max(10, 3*mean) in steps of that maximum divided by points.
func LogNormalCurve(mean, stdDev float64, points int) []CurvePoint {
	if mean <= 0 || stdDev < 0 || math.IsNaN(mean) || math.IsNaN(stdDev) {
		return nil
	}
	if points <= 0 {
		points = DefaultCurvePoints
	}

	mu, sigma := lognormalParams(mean, stdDev)
	maxValue := math.Max(10, 3*math.Exp(mu+sigma*sigma/2))
	step := maxValue / float64(points)

	dist := distuv.LogNormal{Mu: mu, Sigma: sigma}
	curve := make([]CurvePoint, 0, points+1)
	for i := 0; ; i++ {
		x := 0.1 + float64(i)*step
		if x > maxValue {
			break
		}
		density := 0.0
		if sigma > 0 {
			density = dist.Prob(x)
		}
		curve = append(curve, CurvePoint{Ballots: math.Round(x*100) / 100, Density: density})
	}
	return curve
}
