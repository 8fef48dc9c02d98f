package crosstf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taengine/internal/analysis/volume"
	"taengine/internal/market"
)

func volumeSeries(vols []float64) market.Series {
	candles := make([]market.Candle, len(vols))
	for i, v := range vols {
		candles[i] = market.Candle{OpenTime: int64(i), Open: 100, High: 101, Low: 99, Close: 100, Volume: v}
	}
	return market.NewSeries(candles)
}

// ramp holds base volume and then moves linearly to base*(1+pct/100) over
// the last ten candles.
func ramp(n int, base, pct float64) market.Series {
	vols := make([]float64, n)
	for i := range vols {
		vols[i] = base
	}
	for k := 0; k < 10; k++ {
		vols[n-10+k] = base * (1 + pct/100*float64(k)/9)
	}
	return volumeSeries(vols)
}

func TestOrderLabels(t *testing.T) {
	got := OrderLabels([]string{"1d", "weird", "15m", "1w", "4h", "1h", "abc"})
	assert.Equal(t, []string{"15m", "1h", "4h", "1d", "1w", "abc", "weird"}, got)

	d, ok := Duration("1M")
	require.True(t, ok)
	assert.Equal(t, 30*24, int(d.Hours()))
	_, ok = Duration("0h")
	assert.False(t, ok)
}

func TestCompareIdenticalProfilesNormalizeToOne(t *testing.T) {
	s := ramp(60, 500, 40)
	cmp, err := Compare(context.Background(), map[string]market.Series{"1h": s, "15m": s, "4h": s, "1d": s}, DefaultParams())
	require.NoError(t, err)
	require.Len(t, cmp.Frames, 4)
	assert.Equal(t, "1d", cmp.Baseline)
	for _, f := range cmp.Frames {
		require.NotNil(t, f.NormalizedVolume, f.Timeframe)
		assert.InDelta(t, 1.0, *f.NormalizedVolume, 1e-12, f.Timeframe)
	}
	assert.True(t, cmp.AllIncreasing)
	assert.Equal(t, AllIncreasing, cmp.Consistency)
	assert.False(t, cmp.ShortVsLongDivergence)
	assert.Equal(t, 4, cmp.AboveMACount)
	assert.True(t, cmp.MajorityAboveMA)
}

func TestCompareExcludesShortFrames(t *testing.T) {
	cmp, err := Compare(context.Background(), map[string]market.Series{
		"15m": ramp(60, 100, 40),
		"1h":  ramp(60, 200, -40),
		"1d":  ramp(15, 900, 40),
	}, DefaultParams())
	require.NoError(t, err)
	require.Len(t, cmp.Frames, 3)

	daily, ok := cmp.Frame("1d")
	require.True(t, ok)
	assert.False(t, daily.Sufficient)
	assert.Equal(t, volume.InsufficientData, daily.Trend)
	assert.Nil(t, daily.NormalizedVolume)
	assert.Nil(t, daily.Profile)

	// the longest frame is short, so there is no baseline
	assert.Empty(t, cmp.Baseline)
	for _, f := range cmp.Frames {
		assert.Nil(t, f.NormalizedVolume, f.Timeframe)
	}

	assert.Equal(t, Mixed, cmp.Consistency)
	assert.True(t, cmp.ShortVsLongDivergence)
	assert.Equal(t, 1, cmp.AboveMACount)
	assert.Equal(t, 1, cmp.BelowMACount)
	assert.False(t, cmp.MajorityAboveMA)
	assert.False(t, cmp.MajorityBelowMA)
}

func TestCompareNoBaselineWhenLongestFrameShort(t *testing.T) {
	flat := func(n int, v float64) market.Series {
		vols := make([]float64, n)
		for i := range vols {
			vols[i] = v
		}
		return volumeSeries(vols)
	}
	cmp, err := Compare(context.Background(), map[string]market.Series{
		"1h": flat(40, 100),
		"4h": flat(40, 400),
		"1d": flat(5, 1000),
	}, DefaultParams())
	require.NoError(t, err)
	require.Len(t, cmp.Frames, 3)
	assert.Empty(t, cmp.Baseline)
	for _, f := range cmp.Frames {
		assert.Nil(t, f.NormalizedVolume, f.Timeframe)
	}

	hourly, _ := cmp.Frame("1h")
	require.NotNil(t, hourly.VolumeMA)
	assert.Equal(t, 100.0, *hourly.VolumeMA)
}

func TestCompareBaselineIsLongestFrame(t *testing.T) {
	cmp, err := Compare(context.Background(), map[string]market.Series{
		"1h": ramp(40, 100, 0),
		"4h": ramp(40, 400, 0),
	}, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, "4h", cmp.Baseline)
	hourly, _ := cmp.Frame("1h")
	require.NotNil(t, hourly.NormalizedVolume)
	assert.InDelta(t, 0.25, *hourly.NormalizedVolume, 1e-12)
}

func TestCompareSingleFrame(t *testing.T) {
	cmp, err := Compare(context.Background(), map[string]market.Series{"4h": ramp(30, 100, -30)}, Params{})
	require.NoError(t, err)
	f := cmp.Frames[0]
	require.NotNil(t, f.NormalizedVolume)
	assert.Equal(t, 1.0, *f.NormalizedVolume)
	assert.True(t, cmp.AllDecreasing)
	assert.False(t, cmp.ShortVsLongDivergence)
	require.NotNil(t, f.TrendPctChange)
	assert.InDelta(t, -30, *f.TrendPctChange, 1e-9)
}

func TestCompareNoData(t *testing.T) {
	cmp, err := Compare(context.Background(), map[string]market.Series{"1h": ramp(12, 1, 0)}, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, NoData, cmp.Consistency)
	assert.Empty(t, cmp.Baseline)
	assert.False(t, cmp.AllIncreasing)

	empty, err := Compare(context.Background(), nil, DefaultParams())
	require.NoError(t, err)
	assert.Empty(t, empty.Frames)
	assert.Equal(t, NoData, empty.Consistency)
}

func TestCompareCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Compare(ctx, map[string]market.Series{"1h": ramp(30, 1, 10)}, DefaultParams())
	assert.ErrorIs(t, err, context.Canceled)
}
