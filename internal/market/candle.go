package market

import (
	"math"
	"sort"
)

// Candle is one OHLCV sample. Times are epoch milliseconds.
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	CloseTime int64   `json:"close_time"`
}

// Series is an ordered, read-only candle sequence. Consumers take views with
// Tail instead of mutating it.
type Series struct {
	candles []Candle
}

// NewSeries copies candles and stable-sorts them by OpenTime.
func NewSeries(candles []Candle) Series {
	if len(candles) == 0 {
		return Series{}
	}
	out := make([]Candle, len(candles))
	copy(out, candles)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OpenTime < out[j].OpenTime
	})
	return Series{candles: out}
}

func (s Series) Len() int { return len(s.candles) }

func (s Series) At(i int) Candle { return s.candles[i] }

// Candles returns a copy of the underlying candles.
func (s Series) Candles() []Candle {
	out := make([]Candle, len(s.candles))
	copy(out, s.candles)
	return out
}

func (s Series) Last() (Candle, bool) {
	if len(s.candles) == 0 {
		return Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

// Tail returns the most recent n candles (all of them when n exceeds Len).
// The returned series shares storage; neither side mutates it.
func (s Series) Tail(n int) Series {
	if n <= 0 {
		return Series{}
	}
	if n >= len(s.candles) {
		return s
	}
	return Series{candles: s.candles[len(s.candles)-n:]}
}

func (s Series) Opens() []float64   { return s.column(func(c Candle) float64 { return c.Open }) }
func (s Series) Highs() []float64   { return s.column(func(c Candle) float64 { return c.High }) }
func (s Series) Lows() []float64    { return s.column(func(c Candle) float64 { return c.Low }) }
func (s Series) Closes() []float64  { return s.column(func(c Candle) float64 { return c.Close }) }
func (s Series) Volumes() []float64 { return s.column(func(c Candle) float64 { return c.Volume }) }

func (s Series) column(pick func(Candle) float64) []float64 {
	out := make([]float64, len(s.candles))
	for i, c := range s.candles {
		out[i] = pick(c)
	}
	return out
}

// HighLow returns max(High) and min(Low) over the series. ok is false for an
// empty series.
func (s Series) HighLow() (high, low float64, ok bool) {
	if len(s.candles) == 0 {
		return 0, 0, false
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, c := range s.candles {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low, true
}
