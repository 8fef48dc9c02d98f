package volume

import (
	"math"

	"github.com/markcheno/go-talib"

	"taengine/internal/market"
)

type AnomalyKind string

const (
	Spike       AnomalyKind = "spike"
	Drop        AnomalyKind = "drop"
	AnomalyNone AnomalyKind = "none"
)

type Anomaly struct {
	Available       bool        `json:"available"`
	Detected        bool        `json:"detected"`
	Kind            AnomalyKind `json:"kind"`
	ZScore          float64     `json:"z_score"`
	DeviationPct    float64     `json:"deviation_pct"`
	CurrentVolume   float64     `json:"current_volume"`
	BaselineMean    float64     `json:"baseline_mean"`
	BaselineStd     float64     `json:"baseline_std"`
	RecentAnomalies int         `json:"recent_anomalies"`
}

const recentAnomalyCandles = 5

// DetectAnomaly z-scores the latest volume against the lookback candles
// before it. The current candle never contributes to its own baseline; the
// baseline deviation is the sample standard deviation floored at epsilon.
func DetectAnomaly(series market.Series, lookback int, threshold float64) Anomaly {
	if lookback <= 0 {
		lookback = DefaultParams().AnomalyLookback
	}
	if threshold <= 0 {
		threshold = DefaultParams().AnomalyThreshold
	}
	if series.Len() < lookback+1 {
		return Anomaly{Kind: AnomalyNone}
	}
	vols := series.Tail(lookback + 1).Volumes()
	baseline := vols[:lookback]
	current := vols[lookback]

	mean := last(talib.Sma(baseline, lookback))
	std := sampleStd(baseline)
	if std < epsilon {
		std = epsilon
	}
	z := (current - mean) / std

	out := Anomaly{
		Available:     true,
		Kind:          AnomalyNone,
		ZScore:        z,
		CurrentVolume: current,
		BaselineMean:  mean,
		BaselineStd:   std,
		DeviationPct:  (current/math.Max(mean, epsilon) - 1) * 100,
	}
	if math.Abs(z) > threshold {
		out.Detected = true
		out.Kind = Drop
		if z > 0 {
			out.Kind = Spike
		}
	}
	for _, v := range series.Tail(recentAnomalyCandles).Volumes() {
		if math.Abs((v-mean)/std) > threshold {
			out.RecentAnomalies++
		}
	}
	return out
}

// sampleStd rescales talib's population deviation to n-1 degrees of freedom.
func sampleStd(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	pop := last(talib.StdDev(values, n, 1))
	if math.IsNaN(pop) || pop < 0 {
		return 0
	}
	return pop * math.Sqrt(float64(n)/float64(n-1))
}
