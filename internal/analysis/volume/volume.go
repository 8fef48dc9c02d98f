package volume

import (
	"math"
	"sort"

	"github.com/markcheno/go-talib"

	"taengine/internal/logger"
	"taengine/internal/market"
)

// epsilon replaces zero or negative volume before any division.
const epsilon = 1e-6

type Params struct {
	TrendPeriod      int     `json:"trend_period" toml:"trend_period" yaml:"trend_period"`
	MAPeriods        []int   `json:"ma_periods" toml:"ma_periods" yaml:"ma_periods"`
	PVLookback       int     `json:"pv_lookback" toml:"pv_lookback" yaml:"pv_lookback"`
	AnomalyLookback  int     `json:"anomaly_lookback" toml:"anomaly_lookback" yaml:"anomaly_lookback"`
	AnomalyThreshold float64 `json:"anomaly_threshold" toml:"anomaly_threshold" yaml:"anomaly_threshold"`
}

func DefaultParams() Params {
	return Params{
		TrendPeriod:      10,
		MAPeriods:        []int{20, 50, 100},
		PVLookback:       20,
		AnomalyLookback:  30,
		AnomalyThreshold: 2.0,
	}
}

func (p Params) normalize() Params {
	d := DefaultParams()
	if p.TrendPeriod <= 0 {
		p.TrendPeriod = d.TrendPeriod
	}
	if len(p.MAPeriods) == 0 {
		p.MAPeriods = d.MAPeriods
	}
	if p.PVLookback <= 0 {
		p.PVLookback = d.PVLookback
	}
	if p.AnomalyLookback <= 0 {
		p.AnomalyLookback = d.AnomalyLookback
	}
	if p.AnomalyThreshold <= 0 {
		p.AnomalyThreshold = d.AnomalyThreshold
	}
	return p
}

type Direction string

const (
	Increasing       Direction = "increasing"
	Decreasing       Direction = "decreasing"
	Flat             Direction = "flat"
	InsufficientData Direction = "insufficient_data"
)

// Defined reports whether the direction came from enough history.
func (d Direction) Defined() bool {
	return d == Increasing || d == Decreasing || d == Flat
}

type Trend struct {
	Direction Direction `json:"direction"`
	PctChange float64   `json:"pct_change"`
	Slope     float64   `json:"slope"`
}

const flatThresholdPct = 5.0

// TrendOf labels the trailing period volumes by their start-to-end change.
// The least-squares slope is reported alongside but does not drive the label.
func TrendOf(series market.Series, period int) Trend {
	if period <= 0 {
		period = DefaultParams().TrendPeriod
	}
	if series.Len() < period {
		logger.Debugf("volume trend: have %d candles, need %d", series.Len(), period)
		return Trend{Direction: InsufficientData}
	}
	vols := clampPositive(series.Tail(period).Volumes())

	var slope float64
	if period >= 2 {
		slope = last(talib.LinearRegSlope(vols, period))
	}
	start, end := vols[0], vols[len(vols)-1]
	pct := (end - start) / start * 100

	var dir Direction
	switch {
	case math.Abs(pct) < flatThresholdPct:
		dir = Flat
	case pct > 0:
		dir = Increasing
	default:
		dir = Decreasing
	}
	return Trend{Direction: dir, PctChange: pct, Slope: slope}
}

type MovingAverage struct {
	MA          *float64 `json:"ma"`
	CurrentVsMA *float64 `json:"current_vs_ma"`
}

// MovingAverages maps each period to its simple volume average and the
// current volume as a percentage of it. Periods longer than the series are
// reported with nil values.
func MovingAverages(series market.Series, periods []int) map[int]MovingAverage {
	out := make(map[int]MovingAverage, len(periods))
	vols := series.Volumes()
	cur, ok := series.Last()
	for _, period := range periods {
		if period <= 0 || !ok || len(vols) < period {
			out[period] = MovingAverage{}
			continue
		}
		ma := last(talib.Sma(vols, period))
		entry := MovingAverage{MA: &ma}
		if ma > 0 {
			pct := cur.Volume / ma * 100
			entry.CurrentVsMA = &pct
		}
		out[period] = entry
	}
	return out
}

// SortedPeriods returns the keys of a MovingAverages result in ascending order.
func SortedPeriods(mas map[int]MovingAverage) []int {
	keys := make([]int, 0, len(mas))
	for k := range mas {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

type Profile struct {
	Trend          Trend                 `json:"trend"`
	MovingAverages map[int]MovingAverage `json:"moving_averages"`
	PriceVolume    Relationship          `json:"price_volume"`
	Anomaly        Anomaly               `json:"anomaly"`
}

// BuildProfile runs every volume analysis over one series.
func BuildProfile(series market.Series, p Params) Profile {
	p = p.normalize()
	return Profile{
		Trend:          TrendOf(series, p.TrendPeriod),
		MovingAverages: MovingAverages(series, p.MAPeriods),
		PriceVolume:    PriceVolumeRelationship(series, p.PVLookback),
		Anomaly:        DetectAnomaly(series, p.AnomalyLookback, p.AnomalyThreshold),
	}
}

func clampPositive(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if v <= 0 || math.IsNaN(v) {
			v = epsilon
		}
		out[i] = v
	}
	return out
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}
