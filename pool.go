package chuusen

// BuildBallotPool expands the roster into exactly target ballots, reusing buf.
//
// An oversized pool keeps a uniform random subset of its ballots; an
// undersized one is topped up with uniform picks from the ballots already in
// it, including earlier top-ups.
// An empty roster yields an empty pool.
func BuildBallotPool(src RandomSource, roster *Roster, target int, buf []int) []int {
	pool := buf[:0]
	if target <= 0 {
		return pool
	}

	for _, p := range roster.Participants {
		for range p.BallotCount {
			pool = append(pool, p.ID)
		}
	}

	n := len(pool)
	switch {
	case n == 0:
		return pool
	case n > target:
		// partial Fisher-Yates: the first target slots hold a uniform subset
		for i := range target {
			j := i + src.IntN(n-i)
			pool[i], pool[j] = pool[j], pool[i]
		}
		pool = pool[:target]
	case n < target:
		for len(pool) < target {
			pool = append(pool, pool[src.IntN(len(pool))])
		}
	}

	return pool
}
