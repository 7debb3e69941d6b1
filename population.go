package chuusen

import "math"

// Frequencies counts how many times each ballot count was observed
type Frequencies map[int]int

// Add records one observation of count
func (f Frequencies) Add(count int) { f[count]++ }

// Total returns the number of observations
func (f Frequencies) Total() int {
	total := 0
	for _, n := range f {
		total += n
	}
	return total
}

// Roster is the participant list of one (trial, channel). When present, the
// distinguished participant is always first, followed by ids 0..n-1 in order.
type Roster struct {
	Participants []Participant
	hasYou       bool
}

// Len returns the number of participants
func (r *Roster) Len() int { return len(r.Participants) }

// HasYou reports whether the distinguished participant takes part
func (r *Roster) HasYou() bool { return r.hasYou }

// BallotCount returns the ballot count of the participant with id
func (r *Roster) BallotCount(id int) int {
	if id == DistinguishedID {
		if !r.hasYou {
			return 0
		}
		return r.Participants[0].BallotCount
	}
	if r.hasYou {
		return r.Participants[id+1].BallotCount
	}
	return r.Participants[id].BallotCount
}

// reset empties the roster while keeping its backing array
func (r *Roster) reset() {
	r.Participants = r.Participants[:0]
	r.hasYou = false
}

// GeneratePopulation fills roster with the synthetic applicants of one channel.
//
// The others' ballots are shared among floor(others/avg) people, each drawing
// a log-normal ballot count rounded to at least 1. Every generated count is
// recorded into applicants; the distinguished participant is not. applicants
// may be nil.
func GeneratePopulation(src RandomSource, roster *Roster, share ChannelShare, avg, stdDev float64, applicants Frequencies) {
	roster.reset()

	if share.YourBallots > 0 {
		roster.Participants = append(roster.Participants, Participant{ID: DistinguishedID, BallotCount: share.YourBallots})
		roster.hasYou = true
	}

	others := share.TotalBallots - share.YourBallots
	if others < 0 {
		others = 0
	}
	numPeople := int(math.Floor(float64(others) / avg))

	for id := range numPeople {
		count := ballotCount(LogNormal(src, avg, stdDev))
		roster.Participants = append(roster.Participants, Participant{ID: id, BallotCount: count})
		if applicants != nil {
			applicants.Add(count)
		}
	}
}

// ballotCount rounds a variate into a ballot count in [1, MaxInt32]
func ballotCount(v float64) int {
	r := math.Round(v)
	switch {
	case math.IsNaN(r) || r < 1:
		return 1
	case r > math.MaxInt32:
		return math.MaxInt32
	}
	return int(r)
}
