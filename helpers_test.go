package chuusen

// scriptedSource replays fixed draws. Float64 values and IntN values are
// consumed from separate queues; an exhausted queue starts over.
type scriptedSource struct {
	floats []float64
	ints   []int

	floatCalls int
	intCalls   int
}

func (s *scriptedSource) Float64() float64 {
	if len(s.floats) == 0 {
		s.floatCalls++
		return 0.5
	}
	v := s.floats[s.floatCalls%len(s.floats)]
	s.floatCalls++
	return v
}

func (s *scriptedSource) IntN(n int) int {
	if len(s.ints) == 0 {
		s.intCalls++
		return 0
	}
	v := s.ints[s.intCalls%len(s.ints)]
	s.intCalls++
	return v % n
}

// panicSource fails on the first draw
type panicSource struct{}

func (panicSource) Float64() float64 { panic("random source exhausted") }
func (panicSource) IntN(int) int     { panic("random source exhausted") }

// newTestRoster builds a roster; a positive yours puts the distinguished
// participant first, followed by the given counts as ids 0..n-1
func newTestRoster(yours int, counts ...int) *Roster {
	r := &Roster{}
	if yours > 0 {
		r.Participants = append(r.Participants, Participant{ID: DistinguishedID, BallotCount: yours})
		r.hasYou = true
	}
	for id, c := range counts {
		r.Participants = append(r.Participants, Participant{ID: id, BallotCount: c})
	}
	return r
}

// smallInput is a quick run that still exercises every stage
func smallInput() SimulationInput {
	return SimulationInput{
		TotalBallots:        2000,
		NumWinners:          20,
		AvgBallotsPerPerson: 10,
		StdDev:              1.5,
		NumChannels:         2,
		NumSimulations:      50,
		YourBallots:         5,
	}
}
