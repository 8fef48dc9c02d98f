package crosstf

import (
	"context"

	"golang.org/x/sync/errgroup"

	"taengine/internal/analysis/volume"
	"taengine/internal/logger"
	"taengine/internal/market"
)

type Params struct {
	MinCandles  int           `json:"min_candles" toml:"min_candles" yaml:"min_candles"`
	MAPeriod    int           `json:"ma_period" toml:"ma_period" yaml:"ma_period"`
	TrendPeriod int           `json:"trend_period" toml:"trend_period" yaml:"trend_period"`
	Volume      volume.Params `json:"-" toml:"-" yaml:"-"`
}

func DefaultParams() Params {
	return Params{
		MinCandles:  20,
		MAPeriod:    20,
		TrendPeriod: 10,
		Volume:      volume.DefaultParams(),
	}
}

func (p Params) normalize() Params {
	d := DefaultParams()
	if p.MinCandles <= 0 {
		p.MinCandles = d.MinCandles
	}
	if p.MAPeriod <= 0 {
		p.MAPeriod = d.MAPeriod
	}
	if p.TrendPeriod <= 0 {
		p.TrendPeriod = d.TrendPeriod
	}
	return p
}

type Frame struct {
	Timeframe        string           `json:"timeframe"`
	Candles          int              `json:"candles"`
	Sufficient       bool             `json:"sufficient"`
	Trend            volume.Direction `json:"trend"`
	TrendPctChange   *float64         `json:"trend_pct_change"`
	CurrentVolume    *float64         `json:"current_volume"`
	VolumeMA         *float64         `json:"volume_ma"`
	CurrentVsMA      *float64         `json:"current_vs_ma"`
	NormalizedVolume *float64         `json:"normalized_volume"`
	Profile          *volume.Profile  `json:"profile,omitempty"`
}

type Consistency string

const (
	AllIncreasing Consistency = "all_increasing"
	AllDecreasing Consistency = "all_decreasing"
	Mixed         Consistency = "mixed"
	NoData        Consistency = "no_data"
)

type Comparison struct {
	Frames                []Frame     `json:"frames"`
	Baseline              string      `json:"baseline,omitempty"`
	Consistency           Consistency `json:"consistency"`
	AllIncreasing         bool        `json:"all_increasing"`
	AllDecreasing         bool        `json:"all_decreasing"`
	ShortVsLongDivergence bool        `json:"short_vs_long_divergence"`
	AboveMACount          int         `json:"above_ma_count"`
	BelowMACount          int         `json:"below_ma_count"`
	MajorityAboveMA       bool        `json:"majority_above_ma"`
	MajorityBelowMA       bool        `json:"majority_below_ma"`
}

// Frame returns the entry for a timeframe label.
func (c Comparison) Frame(label string) (Frame, bool) {
	for _, f := range c.Frames {
		if f.Timeframe == label {
			return f, true
		}
	}
	return Frame{}, false
}

// Compare builds one volume view per timeframe and reconciles them. Frames
// with too little history stay in the result but are left out of every
// cross-timeframe flag. Per-frame work runs concurrently.
func Compare(ctx context.Context, series map[string]market.Series, p Params) (Comparison, error) {
	p = p.normalize()
	labels := make([]string, 0, len(series))
	for label := range series {
		labels = append(labels, label)
	}
	labels = OrderLabels(labels)

	frames := make([]Frame, len(labels))
	g, gctx := errgroup.WithContext(ctx)
	for i, label := range labels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			frames[i] = buildFrame(label, series[label], p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Comparison{}, err
	}

	out := Comparison{Frames: frames}
	normalize(&out)
	synthesize(&out)
	return out, nil
}

func buildFrame(label string, s market.Series, p Params) Frame {
	f := Frame{Timeframe: label, Candles: s.Len(), Trend: volume.InsufficientData}
	if s.Len() < p.MinCandles || s.Len() < p.MAPeriod {
		logger.Debugf("crosstf: %s has %d candles, need %d", label, s.Len(), p.MinCandles)
		return f
	}
	f.Sufficient = true
	cur, _ := s.Last()
	f.CurrentVolume = &cur.Volume

	ma := volume.MovingAverages(s, []int{p.MAPeriod})[p.MAPeriod]
	f.VolumeMA = ma.MA
	f.CurrentVsMA = ma.CurrentVsMA

	trend := volume.TrendOf(s, p.TrendPeriod)
	f.Trend = trend.Direction
	if trend.Direction.Defined() {
		pct := trend.PctChange
		f.TrendPctChange = &pct
	}
	profile := volume.BuildProfile(s, p.Volume)
	f.Profile = &profile
	return f
}

// normalize divides each frame's MA by the MA of the longest frame. When the
// longest frame has no usable MA nothing is normalized.
func normalize(c *Comparison) {
	if len(c.Frames) == 0 {
		return
	}
	last := c.Frames[len(c.Frames)-1]
	if !last.Sufficient || last.VolumeMA == nil || *last.VolumeMA <= 0 {
		logger.Debugf("crosstf: no baseline, %s has %d candles", last.Timeframe, last.Candles)
		return
	}
	base := *last.VolumeMA
	c.Baseline = last.Timeframe
	for j := range c.Frames {
		ma := c.Frames[j].VolumeMA
		if !c.Frames[j].Sufficient || ma == nil {
			continue
		}
		v := *ma / base
		c.Frames[j].NormalizedVolume = &v
	}
}

func synthesize(c *Comparison) {
	defined := make([]Frame, 0, len(c.Frames))
	for _, f := range c.Frames {
		if f.Sufficient && f.Trend.Defined() {
			defined = append(defined, f)
		}
		if f.CurrentVsMA != nil {
			switch {
			case *f.CurrentVsMA > 100:
				c.AboveMACount++
			case *f.CurrentVsMA < 100:
				c.BelowMACount++
			}
		}
	}
	c.MajorityAboveMA = c.AboveMACount > c.BelowMACount
	c.MajorityBelowMA = c.BelowMACount > c.AboveMACount

	if len(defined) == 0 {
		c.Consistency = NoData
		return
	}
	c.AllIncreasing = allTrend(defined, volume.Increasing)
	c.AllDecreasing = allTrend(defined, volume.Decreasing)
	switch {
	case c.AllIncreasing:
		c.Consistency = AllIncreasing
	case c.AllDecreasing:
		c.Consistency = AllDecreasing
	default:
		c.Consistency = Mixed
	}

	half := len(defined) / 2
	if half == 0 {
		return
	}
	shorter, longer := defined[:half], defined[half:]
	shortUp := false
	for _, f := range shorter {
		if f.Trend == volume.Increasing {
			shortUp = true
			break
		}
	}
	longQuiet := true
	for _, f := range longer {
		if f.Trend != volume.Flat && f.Trend != volume.Decreasing {
			longQuiet = false
			break
		}
	}
	c.ShortVsLongDivergence = shortUp && longQuiet
}

func allTrend(frames []Frame, want volume.Direction) bool {
	for _, f := range frames {
		if f.Trend != want {
			return false
		}
	}
	return true
}
