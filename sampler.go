package chuusen

// WinnerSampler draws distinct winners from ballot pools. Its buffers are
// reused across draws so one sampler serves a whole run.
type WinnerSampler struct {
	src     RandomSource
	seen    map[int]struct{}
	winners []int
}

// NewWinnerSampler creates a sampler drawing from src
func NewWinnerSampler(src RandomSource) *WinnerSampler {
	return &WinnerSampler{
		src:  src,
		seen: make(map[int]struct{}),
	}
}

// DrawWinners picks uniformly random ballots from pool until numWinners
// distinct ids are admitted or AttemptCapFactor*len(pool) attempts are spent.
// The returned ids are in admission order and are only valid until the next call.
func (s *WinnerSampler) DrawWinners(pool []int, numWinners int) []int {
	clear(s.seen)
	s.winners = s.winners[:0]

	if len(pool) == 0 || numWinners <= 0 {
		return s.winners
	}

	maxAttempts := AttemptCapFactor * len(pool)
	for attempts := 0; len(s.winners) < numWinners && attempts < maxAttempts; attempts++ {
		id := pool[s.src.IntN(len(pool))]
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.winners = append(s.winners, id)
	}

	return s.winners
}
