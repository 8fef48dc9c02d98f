package levels

import "taengine/internal/market"

const (
	DefaultRecentWindow = 30
	lastClosesCount     = 5
)

// Summary is a compact view of where price sits within the series.
type Summary struct {
	LastCloses   []float64 `json:"last_closes"`
	Current      *float64  `json:"current"`
	PeriodHigh   *float64  `json:"period_high"`
	PeriodLow    *float64  `json:"period_low"`
	RecentHigh   *float64  `json:"recent_high"`
	RecentLow    *float64  `json:"recent_low"`
	RecentWindow int       `json:"recent_window"`
}

// Summarize reports the last closes, the whole-series range and the range of
// the last recentWindow candles (or fewer when the series is shorter).
func Summarize(series market.Series, recentWindow int) Summary {
	if recentWindow <= 0 {
		recentWindow = DefaultRecentWindow
	}
	out := Summary{RecentWindow: recentWindow, LastCloses: series.Tail(lastClosesCount).Closes()}
	last, ok := series.Last()
	if !ok {
		return out
	}
	out.Current = &last.Close
	if high, low, ok := series.HighLow(); ok {
		out.PeriodHigh, out.PeriodLow = &high, &low
	}
	if high, low, ok := series.Tail(recentWindow).HighLow(); ok {
		out.RecentHigh, out.RecentLow = &high, &low
	}
	return out
}
