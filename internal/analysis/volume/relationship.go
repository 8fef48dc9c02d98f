package volume

import (
	"math"

	"github.com/markcheno/go-talib"

	"taengine/internal/market"
)

type Strength string

const (
	StrengthWeak     Strength = "weak"
	StrengthModerate Strength = "moderate"
	StrengthStrong   Strength = "strong"
	StrengthUnknown  Strength = "unknown"
)

type Interpretation string

const (
	HealthyTrend             Interpretation = "healthy_trend"
	PotentialReversal        Interpretation = "potential_reversal"
	InconsistentConfirmation Interpretation = "inconsistent_confirmation"
	IndecisiveMarket         Interpretation = "indecisive_market"
	InterpretationUnknown    Interpretation = "unknown"
	InterpretationNoData     Interpretation = "insufficient_data"
)

type Relationship struct {
	Correlation    *float64       `json:"correlation"`
	Strength       Strength       `json:"strength"`
	Interpretation Interpretation `json:"interpretation"`
	IsConfirming   *bool          `json:"is_confirming"`
	UpVolumeAvg    float64        `json:"up_volume_avg"`
	DownVolumeAvg  float64        `json:"down_volume_avg"`
	Samples        int            `json:"samples"`
}

const minVariance = 1e-12

// PriceVolumeRelationship correlates absolute close-to-close percentage moves
// with volume over the trailing lookback candles, and checks whether up moves
// carry more volume than down moves.
func PriceVolumeRelationship(series market.Series, lookback int) Relationship {
	if lookback <= 0 {
		lookback = DefaultParams().PVLookback
	}
	if series.Len() < lookback || lookback < 2 {
		return Relationship{Strength: StrengthUnknown, Interpretation: InterpretationNoData}
	}
	window := series.Tail(lookback)
	closes := window.Closes()
	vols := clampPositive(window.Volumes())

	moves := make([]float64, 0, lookback-1)
	paired := make([]float64, 0, lookback-1)
	var upSum, downSum float64
	var upN, downN int
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev == 0 || math.IsNaN(prev) || math.IsNaN(closes[i]) {
			continue
		}
		change := (closes[i] - prev) / prev
		moves = append(moves, math.Abs(change))
		paired = append(paired, vols[i])
		switch {
		case change > 0:
			upSum += vols[i]
			upN++
		case change < 0:
			downSum += vols[i]
			downN++
		}
	}

	out := Relationship{Samples: len(moves)}
	if upN > 0 {
		out.UpVolumeAvg = upSum / float64(upN)
	}
	if downN > 0 {
		out.DownVolumeAvg = downSum / float64(downN)
	}
	confirming := out.UpVolumeAvg > out.DownVolumeAvg
	out.IsConfirming = &confirming

	corr, ok := pearson(moves, paired)
	if !ok {
		out.Strength = StrengthUnknown
		out.Interpretation = InterpretationUnknown
		return out
	}
	out.Correlation = &corr
	out.Strength = strengthOf(corr)
	out.Interpretation = interpret(corr, confirming)
	return out
}

// pearson is undefined with fewer than two pairs or a constant series.
func pearson(x, y []float64) (float64, bool) {
	n := len(x)
	if n < 2 || len(y) != n {
		return 0, false
	}
	if last(talib.StdDev(x, n, 1)) <= minVariance || last(talib.StdDev(y, n, 1)) <= minVariance {
		return 0, false
	}
	c := last(talib.Correl(x, y, n))
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return 0, false
	}
	return math.Max(-1, math.Min(1, c)), true
}

func strengthOf(corr float64) Strength {
	switch a := math.Abs(corr); {
	case a < 0.3:
		return StrengthWeak
	case a < 0.7:
		return StrengthModerate
	default:
		return StrengthStrong
	}
}

func interpret(corr float64, confirming bool) Interpretation {
	switch {
	case corr > 0.5 && confirming:
		return HealthyTrend
	case corr > 0.5:
		return PotentialReversal
	case confirming:
		return InconsistentConfirmation
	default:
		return IndecisiveMarket
	}
}
