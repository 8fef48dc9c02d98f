package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flat(n int, v float64, marks map[int]float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	for i, m := range marks {
		out[i] = m
	}
	return out
}

func TestFindExtremaBoundary(t *testing.T) {
	peaks, valleys := FindExtrema([]float64{1, 2, 2, 1}, 2)
	assert.Empty(t, peaks)
	assert.Empty(t, valleys)

	peaks, valleys = FindExtrema([]float64{1, 2, 3, 2, 1}, 2)
	require.Len(t, peaks, 1)
	assert.Equal(t, Extremum{Index: 2, Value: 3, Kind: Peak}, peaks[0])
	assert.Empty(t, valleys)

	_, valleys = FindExtrema([]float64{5, 4, 1, 4, 5}, 2)
	require.Len(t, valleys, 1)
	assert.Equal(t, 2, valleys[0].Index)
}

func TestFindExtremaStrict(t *testing.T) {
	peaks, valleys := FindExtrema([]float64{1, 3, 3, 1, 0, 2, 0}, 1)
	require.Len(t, peaks, 1, "ties never qualify")
	assert.Equal(t, 5, peaks[0].Index)
	require.Len(t, valleys, 1)
	assert.Equal(t, 4, valleys[0].Index)

	peaks, _ = FindExtrema([]float64{1, math.NaN(), 5, 1, 0}, 1)
	assert.Empty(t, peaks)

	peaks, valleys = FindExtrema([]float64{1, 2, 1}, 0)
	assert.Nil(t, peaks)
	assert.Nil(t, valleys)
}

func TestDivergence(t *testing.T) {
	p := DefaultDivergenceParams()
	tests := []struct {
		name  string
		price []float64
		rsi   []float64
		want  Label
	}{
		{
			name:  "higher high with lower rsi high",
			price: flat(45, 90, map[int]float64{5: 100, 25: 110}),
			rsi:   flat(45, 50, map[int]float64{4: 70, 24: 60}),
			want:  LabelNegative,
		},
		{
			name:  "lower low with higher rsi low",
			price: flat(45, 110, map[int]float64{5: 100, 25: 90}),
			rsi:   flat(45, 50, map[int]float64{4: 30, 24: 40}),
			want:  LabelPositive,
		},
		{
			name:  "single peak",
			price: flat(45, 90, map[int]float64{25: 110}),
			rsi:   flat(45, 50, map[int]float64{24: 60}),
			want:  LabelNone,
		},
		{
			name:  "rsi confirms price",
			price: flat(45, 90, map[int]float64{5: 100, 25: 110}),
			rsi:   flat(45, 50, map[int]float64{4: 60, 24: 70}),
			want:  LabelNone,
		},
		{
			name:  "rsi peaks after price peaks",
			price: flat(45, 90, map[int]float64{5: 100, 25: 110}),
			rsi:   flat(45, 50, map[int]float64{6: 70, 26: 60}),
			want:  LabelNone,
		},
		{
			name:  "stale pivots",
			price: flat(45, 90, map[int]float64{4: 100, 10: 110}),
			rsi:   flat(45, 50, map[int]float64{3: 70, 9: 60}),
			want:  LabelNone,
		},
		{
			name:  "short series",
			price: flat(41, 90, map[int]float64{5: 100, 25: 110}),
			rsi:   flat(41, 50, map[int]float64{4: 70, 24: 60}),
			want:  LabelNotEnoughData,
		},
		{
			name:  "missing rsi",
			price: flat(45, 90, nil),
			rsi:   nil,
			want:  LabelDataMissing,
		},
		{
			name:  "all nan rsi",
			price: flat(45, 90, nil),
			rsi:   flat(45, math.NaN(), nil),
			want:  LabelSeriesInvalid,
		},
		{
			name:  "length mismatch",
			price: flat(45, 90, nil),
			rsi:   flat(44, 50, nil),
			want:  LabelSeriesInvalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectRSIDivergence(tt.price, tt.rsi, p))
		})
	}
}

func TestAnalyzeRSIDivergenceEvidence(t *testing.T) {
	price := flat(100, 90, map[int]float64{70: 100, 90: 110})
	rsi := flat(100, 50, map[int]float64{68: 70, 89: 60})
	got := AnalyzeRSIDivergence(price, rsi, DivergenceParams{})
	require.Equal(t, LabelNegative, got.Label)
	require.NotNil(t, got.Pivots)
	assert.Equal(t, 38, got.Offset)
	assert.Equal(t, 90, got.Pivots.PriceSecond.Index+got.Offset)
	assert.Equal(t, 68, got.Pivots.RSIFirst.Index+got.Offset)
	assert.Equal(t, 110.0, got.Pivots.PriceSecond.Value)
}

func TestDivergenceWalksBackToQualifyingPair(t *testing.T) {
	// 20 -> 30 is bearish, 30 -> 40 is not, so the older pair is reported.
	price := flat(50, 90, map[int]float64{20: 100, 30: 110, 40: 120})
	rsi := flat(50, 50, map[int]float64{19: 70, 29: 60, 39: 65})
	got := AnalyzeRSIDivergence(price, rsi, DefaultDivergenceParams())
	require.Equal(t, LabelNegative, got.Label)
	assert.Equal(t, 30, got.Pivots.PriceSecond.Index)
}

func TestDivergenceNearEqualPivots(t *testing.T) {
	price := flat(45, 90, map[int]float64{5: 100, 25: 100.1})
	rsi := flat(45, 50, map[int]float64{4: 60, 24: 60.1})
	assert.Equal(t, LabelNone, DetectRSIDivergence(price, rsi, DefaultDivergenceParams()))
}

func TestLabelFailed(t *testing.T) {
	assert.True(t, LabelNotEnoughData.Failed())
	assert.False(t, LabelNone.Failed())
	assert.False(t, LabelPositive.Failed())
}

func TestMinCandles(t *testing.T) {
	assert.Equal(t, 42, DefaultDivergenceParams().MinCandles())
	assert.Equal(t, 30+2*3*2, DivergenceParams{LookbackPivots: 1}.MinCandles())
}
