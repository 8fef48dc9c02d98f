package crosstf

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Duration parses interval labels such as 15m, 1h, 4h, 1d, 1w and 1M.
// A month counts as 30 days.
func Duration(label string) (time.Duration, bool) {
	s := strings.TrimSpace(label)
	if len(s) < 2 {
		return 0, false
	}
	unit := s[len(s)-1]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, false
	}
	var base time.Duration
	switch unit {
	case 's':
		base = time.Second
	case 'm':
		base = time.Minute
	case 'h', 'H':
		base = time.Hour
	case 'd', 'D':
		base = 24 * time.Hour
	case 'w', 'W':
		base = 7 * 24 * time.Hour
	case 'M':
		base = 30 * 24 * time.Hour
	default:
		return 0, false
	}
	return time.Duration(n) * base, true
}

// OrderLabels sorts labels shortest to longest. Labels that do not parse go
// last in lexical order.
func OrderLabels(labels []string) []string {
	out := append([]string(nil), labels...)
	sort.SliceStable(out, func(i, j int) bool {
		di, okI := Duration(out[i])
		dj, okJ := Duration(out[j])
		switch {
		case okI && okJ:
			if di != dj {
				return di < dj
			}
			return out[i] < out[j]
		case okI != okJ:
			return okI
		default:
			return out[i] < out[j]
		}
	})
	return out
}
