package indicator

import "math"

type Kind int

const (
	Peak Kind = iota + 1
	Valley
)

func (k Kind) String() string {
	switch k {
	case Peak:
		return "peak"
	case Valley:
		return "valley"
	default:
		return "unknown"
	}
}

// Extremum is a local peak or valley; Index is relative to the analysed slice.
type Extremum struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
	Kind  Kind    `json:"kind"`
}

// FindExtrema returns the peaks and valleys of values, both in ascending
// index order. A point qualifies only when it is strictly above (or below)
// every one of its window neighbours on each side; NaN neighbours disqualify.
func FindExtrema(values []float64, window int) (peaks, valleys []Extremum) {
	if window < 1 || len(values) < 2*window+1 {
		return nil, nil
	}
	for i := window; i < len(values)-window; i++ {
		switch {
		case isStrictExtremum(values, i, window, true):
			peaks = append(peaks, Extremum{Index: i, Value: values[i], Kind: Peak})
		case isStrictExtremum(values, i, window, false):
			valleys = append(valleys, Extremum{Index: i, Value: values[i], Kind: Valley})
		}
	}
	return peaks, valleys
}

func isStrictExtremum(values []float64, idx, window int, high bool) bool {
	center := values[idx]
	if math.IsNaN(center) {
		return false
	}
	for i := idx - window; i <= idx+window; i++ {
		if i == idx {
			continue
		}
		v := values[i]
		if math.IsNaN(v) {
			return false
		}
		if high && v >= center {
			return false
		}
		if !high && v <= center {
			return false
		}
	}
	return true
}
