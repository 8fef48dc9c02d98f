package levels

import (
	"math"

	"github.com/shopspring/decimal"

	"taengine/internal/logger"
	"taengine/internal/market"
)

const DefaultFibLookback = 60

// FibRatio pairs a level label with its retracement fraction.
type FibRatio struct {
	Label string
	Ratio decimal.Decimal
}

// FibRatios are ordered from the top of the range to the bottom.
var FibRatios = []FibRatio{
	{Label: "0.0%", Ratio: decimal.Zero},
	{Label: "23.6%", Ratio: decimal.RequireFromString("0.236")},
	{Label: "38.2%", Ratio: decimal.RequireFromString("0.382")},
	{Label: "50.0%", Ratio: decimal.RequireFromString("0.5")},
	{Label: "61.8%", Ratio: decimal.RequireFromString("0.618")},
	{Label: "78.6%", Ratio: decimal.RequireFromString("0.786")},
	{Label: "100.0%", Ratio: decimal.NewFromInt(1)},
}

type FibonacciLevels struct {
	High     *float64           `json:"high"`
	Low      *float64           `json:"low"`
	Lookback int                `json:"lookback"`
	Levels   map[string]float64 `json:"levels"`
}

// Available reports whether Levels were computed.
func (f FibonacciLevels) Available() bool { return f.Levels != nil }

// Fibonacci computes retracement levels over the trailing lookback candles.
// With too little history or a flat range, Levels is nil while High and Low
// are still reported over whatever candles exist.
func Fibonacci(series market.Series, lookback int) FibonacciLevels {
	if lookback <= 0 {
		lookback = DefaultFibLookback
	}
	out := FibonacciLevels{Lookback: lookback}
	high, low, ok := series.Tail(lookback).HighLow()
	if !ok {
		return out
	}
	if !finite(high) || !finite(low) {
		return out
	}
	out.High, out.Low = &high, &low
	if series.Len() < lookback {
		logger.Debugf("fibonacci: have %d candles, lookback %d", series.Len(), lookback)
		return out
	}
	if high == low {
		logger.Debugf("fibonacci: flat range at %.6f", high)
		return out
	}

	h := decimal.NewFromFloat(high)
	diff := h.Sub(decimal.NewFromFloat(low))
	out.Levels = make(map[string]float64, len(FibRatios))
	for _, r := range FibRatios {
		out.Levels[r.Label] = h.Sub(diff.Mul(r.Ratio)).InexactFloat64()
	}
	// exact endpoints
	out.Levels["0.0%"] = high
	out.Levels["100.0%"] = low
	return out
}

type PivotPoints struct {
	P  *float64 `json:"p"`
	S1 *float64 `json:"s1"`
	S2 *float64 `json:"s2"`
	S3 *float64 `json:"s3"`
	R1 *float64 `json:"r1"`
	R2 *float64 `json:"r2"`
	R3 *float64 `json:"r3"`
}

var (
	pivotThree = decimal.NewFromInt(3)
	pivotNear  = decimal.RequireFromString("0.382")
	pivotMid   = decimal.RequireFromString("0.618")
)

// Pivots returns Fibonacci-weighted pivot points from one high/low/close.
// Any non-finite input yields all-nil output.
func Pivots(high, low, close float64) PivotPoints {
	if !finite(high) || !finite(low) || !finite(close) {
		return PivotPoints{}
	}
	h := decimal.NewFromFloat(high)
	l := decimal.NewFromFloat(low)
	c := decimal.NewFromFloat(close)
	p := h.Add(l).Add(c).Div(pivotThree)
	rng := h.Sub(l)
	return PivotPoints{
		P:  ptr(p),
		R1: ptr(p.Add(rng.Mul(pivotNear))),
		S1: ptr(p.Sub(rng.Mul(pivotNear))),
		R2: ptr(p.Add(rng.Mul(pivotMid))),
		S2: ptr(p.Sub(rng.Mul(pivotMid))),
		R3: ptr(p.Add(rng)),
		S3: ptr(p.Sub(rng)),
	}
}

// PivotsFromLast uses the most recent candle of the series.
func PivotsFromLast(series market.Series) PivotPoints {
	last, ok := series.Last()
	if !ok {
		return PivotPoints{}
	}
	return Pivots(last.High, last.Low, last.Close)
}

func ptr(d decimal.Decimal) *float64 {
	v := d.InexactFloat64()
	return &v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
