package chuusen

// quickselect returns the k-th smallest value of values (0-based), reordering
// values in place. It uses a three-way partition so long runs of equal ballot
// counts stay linear.
func quickselect(values []int, k int) int {
	lo, hi := 0, len(values)-1
	for lo < hi {
		pivot := values[lo+(hi-lo)/2]

		// values[lo:lt] < pivot, values[lt:i] == pivot, values[gt+1:hi+1] > pivot
		lt, i, gt := lo, lo, hi
		for i <= gt {
			switch {
			case values[i] < pivot:
				values[lt], values[i] = values[i], values[lt]
				lt++
				i++
			case values[i] > pivot:
				values[i], values[gt] = values[gt], values[i]
				gt--
			default:
				i++
			}
		}

		switch {
		case k < lt:
			hi = lt - 1
		case k > gt:
			lo = gt + 1
		default:
			return pivot
		}
	}
	return values[lo]
}

// Median returns the median of values, averaging the two middle values for
// an even length and 0 for an empty slice. values is reordered.
func Median(values []int) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	mid := n / 2
	upper := quickselect(values, mid)
	if n%2 == 1 {
		return float64(upper)
	}

	// after selecting mid, everything left of it is <= upper
	lower := values[0]
	for _, v := range values[1:mid] {
		lower = max(lower, v)
	}
	return float64(lower+upper) / 2
}

// modeTracker follows the mode of a stream. On ties the value that reached
// the top count first wins.
type modeTracker struct {
	value int
	count int
}

// observe notes that value has now been seen count times
func (m *modeTracker) observe(value, count int) {
	if count > m.count {
		m.value = value
		m.count = count
	}
}
