package indicator

import (
	"math"

	"taengine/internal/logger"
)

type Label string

const (
	LabelPositive      Label = "Positive"
	LabelNegative      Label = "Negative"
	LabelNone          Label = "None"
	LabelDataMissing   Label = "DataMissing"
	LabelNotEnoughData Label = "NotEnoughData"
	LabelSeriesInvalid Label = "SeriesInvalid"
)

// Failed reports whether the label is one of the precondition failures rather
// than an analysis outcome.
func (l Label) Failed() bool {
	switch l {
	case LabelDataMissing, LabelNotEnoughData, LabelSeriesInvalid:
		return true
	}
	return false
}

type DivergenceParams struct {
	PeakValleyWindow int     `json:"peak_valley_window" toml:"peak_valley_window" yaml:"peak_valley_window"`
	LookbackPivots   int     `json:"lookback_pivots" toml:"lookback_pivots" yaml:"lookback_pivots"`
	DivergenceWindow int     `json:"divergence_window" toml:"divergence_window" yaml:"divergence_window"`
	Tolerance        float64 `json:"tolerance" toml:"tolerance" yaml:"tolerance"`
}

const (
	defaultPeakValleyWindow = 3
	defaultLookbackPivots   = 2
	defaultDivergenceWindow = 30
	defaultTolerance        = 0.005
	sliceBuffer             = 20
)

func DefaultDivergenceParams() DivergenceParams {
	return DivergenceParams{
		PeakValleyWindow: defaultPeakValleyWindow,
		LookbackPivots:   defaultLookbackPivots,
		DivergenceWindow: defaultDivergenceWindow,
		Tolerance:        defaultTolerance,
	}
}

func (p DivergenceParams) normalize() DivergenceParams {
	d := DefaultDivergenceParams()
	if p.PeakValleyWindow <= 0 {
		p.PeakValleyWindow = d.PeakValleyWindow
	}
	if p.LookbackPivots <= 0 {
		p.LookbackPivots = d.LookbackPivots
	}
	if p.LookbackPivots < 2 {
		p.LookbackPivots = 2
	}
	if p.DivergenceWindow <= 0 {
		p.DivergenceWindow = d.DivergenceWindow
	}
	if p.Tolerance < 0 || math.IsNaN(p.Tolerance) {
		p.Tolerance = d.Tolerance
	}
	return p
}

// MinCandles is the shortest series the analyzer will look at.
func (p DivergenceParams) MinCandles() int {
	p = p.normalize()
	return p.DivergenceWindow + 2*p.PeakValleyWindow*p.LookbackPivots
}

// PivotPair is the evidence for a detected divergence. Indices are relative
// to Divergence.Offset within the caller's series.
type PivotPair struct {
	PriceFirst  Extremum `json:"price_first"`
	PriceSecond Extremum `json:"price_second"`
	RSIFirst    Extremum `json:"rsi_first"`
	RSISecond   Extremum `json:"rsi_second"`
}

type Divergence struct {
	Label  Label      `json:"label"`
	Offset int        `json:"offset"`
	Pivots *PivotPair `json:"pivots,omitempty"`
}

// DetectRSIDivergence classifies the most recent price/RSI divergence.
func DetectRSIDivergence(price, rsi []float64, p DivergenceParams) Label {
	return AnalyzeRSIDivergence(price, rsi, p).Label
}

// AnalyzeRSIDivergence works on a trailing slice of the two parallel series.
// Bearish pairs are examined before bullish ones and the most recent
// qualifying pair wins. RSI pivots are matched to the nearest pivot at or
// before the price pivot, never after it.
func AnalyzeRSIDivergence(price, rsi []float64, p DivergenceParams) Divergence {
	if price == nil || rsi == nil {
		return Divergence{Label: LabelDataMissing}
	}
	p = p.normalize()
	if len(price) != len(rsi) {
		logger.Debugf("rsi divergence: price/rsi length mismatch %d vs %d", len(price), len(rsi))
		return Divergence{Label: LabelSeriesInvalid}
	}
	need := p.MinCandles()
	if len(price) < need {
		logger.Debugf("rsi divergence: have %d candles, need %d", len(price), need)
		return Divergence{Label: LabelNotEnoughData}
	}

	offset := len(price) - (need + sliceBuffer)
	if offset < 0 {
		offset = 0
	}
	px := price[offset:]
	rx := rsi[offset:]
	if allNaN(px) || allNaN(rx) {
		return Divergence{Label: LabelSeriesInvalid, Offset: offset}
	}

	pricePeaks, priceValleys := FindExtrema(px, p.PeakValleyWindow)
	rsiPeaks, rsiValleys := FindExtrema(rx, p.PeakValleyWindow)

	if pair, ok := findPair(pricePeaks, rsiPeaks, len(px), p, bearish); ok {
		logger.Debugf("negative rsi divergence: price %d:%.4f -> %d:%.4f, rsi %d:%.2f -> %d:%.2f",
			pair.PriceFirst.Index+offset, pair.PriceFirst.Value, pair.PriceSecond.Index+offset, pair.PriceSecond.Value,
			pair.RSIFirst.Index+offset, pair.RSIFirst.Value, pair.RSISecond.Index+offset, pair.RSISecond.Value)
		return Divergence{Label: LabelNegative, Offset: offset, Pivots: &pair}
	}
	if pair, ok := findPair(priceValleys, rsiValleys, len(px), p, bullish); ok {
		logger.Debugf("positive rsi divergence: price %d:%.4f -> %d:%.4f, rsi %d:%.2f -> %d:%.2f",
			pair.PriceFirst.Index+offset, pair.PriceFirst.Value, pair.PriceSecond.Index+offset, pair.PriceSecond.Value,
			pair.RSIFirst.Index+offset, pair.RSIFirst.Value, pair.RSISecond.Index+offset, pair.RSISecond.Value)
		return Divergence{Label: LabelPositive, Offset: offset, Pivots: &pair}
	}
	return Divergence{Label: LabelNone, Offset: offset}
}

type direction int

const (
	bearish direction = iota
	bullish
)

func findPair(pricePivots, rsiPivots []Extremum, n int, p DivergenceParams, dir direction) (PivotPair, bool) {
	lb := p.LookbackPivots
	if len(pricePivots) < lb || len(rsiPivots) < lb {
		return PivotPair{}, false
	}
	for i := len(pricePivots) - 1; i >= lb-1; i-- {
		second := pricePivots[i]
		first := pricePivots[i-(lb-1)]
		if (n-1)-second.Index > p.DivergenceWindow {
			continue
		}
		r2 := lastAtOrBefore(rsiPivots, second.Index, math.MaxInt)
		if r2 < 0 {
			continue
		}
		r1 := lastAtOrBefore(rsiPivots, first.Index, rsiPivots[r2].Index)
		if r1 < 0 {
			continue
		}
		rsiFirst, rsiSecond := rsiPivots[r1], rsiPivots[r2]
		if first.Index >= second.Index || rsiFirst.Index >= rsiSecond.Index {
			continue
		}
		if diverges(first.Value, second.Value, rsiFirst.Value, rsiSecond.Value, p.Tolerance, dir) {
			return PivotPair{
				PriceFirst:  first,
				PriceSecond: second,
				RSIFirst:    rsiFirst,
				RSISecond:   rsiSecond,
			}, true
		}
	}
	return PivotPair{}, false
}

// lastAtOrBefore returns the position of the last pivot with index <= at and
// index < before, or -1.
func lastAtOrBefore(pivots []Extremum, at, before int) int {
	for j := len(pivots) - 1; j >= 0; j-- {
		idx := pivots[j].Index
		if idx <= at && idx < before {
			return j
		}
	}
	return -1
}

// diverges applies the tolerance pre-filter, then the strict comparison.
func diverges(price1, price2, rsi1, rsi2, tol float64, dir direction) bool {
	switch dir {
	case bearish:
		if !(price2 > price1*(1-tol) && rsi2 < rsi1*(1+tol)) {
			return false
		}
		return price2 > price1 && rsi2 < rsi1
	default:
		if !(price2 < price1*(1+tol) && rsi2 > rsi1*(1-tol)) {
			return false
		}
		return price2 < price1 && rsi2 > rsi1
	}
}

func allNaN(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}
