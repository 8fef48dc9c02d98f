package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"taengine/internal/market"
)

type Params struct {
	RSIPeriod    int     `json:"rsi_period" toml:"rsi_period" yaml:"rsi_period"`
	MACDFast     int     `json:"macd_fast" toml:"macd_fast" yaml:"macd_fast"`
	MACDSlow     int     `json:"macd_slow" toml:"macd_slow" yaml:"macd_slow"`
	MACDSignal   int     `json:"macd_signal" toml:"macd_signal" yaml:"macd_signal"`
	SMAShort     int     `json:"sma_short" toml:"sma_short" yaml:"sma_short"`
	SMALong      int     `json:"sma_long" toml:"sma_long" yaml:"sma_long"`
	EMAShort     int     `json:"ema_short" toml:"ema_short" yaml:"ema_short"`
	EMALong      int     `json:"ema_long" toml:"ema_long" yaml:"ema_long"`
	ATRPeriod    int     `json:"atr_period" toml:"atr_period" yaml:"atr_period"`
	BBandsLength int     `json:"bbands_length" toml:"bbands_length" yaml:"bbands_length"`
	BBandsStd    float64 `json:"bbands_std" toml:"bbands_std" yaml:"bbands_std"`
}

const (
	defaultRSIPeriod    = 14
	defaultMACDFast     = 21
	defaultMACDSlow     = 50
	defaultMACDSignal   = 9
	defaultSMAShort     = 100
	defaultSMALong      = 200
	defaultEMAShort     = 13
	defaultEMALong      = 50
	defaultATRPeriod    = 14
	defaultBBandsLength = 20
	defaultBBandsStd    = 2.0
)

func DefaultParams() Params {
	return Params{
		RSIPeriod:    defaultRSIPeriod,
		MACDFast:     defaultMACDFast,
		MACDSlow:     defaultMACDSlow,
		MACDSignal:   defaultMACDSignal,
		SMAShort:     defaultSMAShort,
		SMALong:      defaultSMALong,
		EMAShort:     defaultEMAShort,
		EMALong:      defaultEMALong,
		ATRPeriod:    defaultATRPeriod,
		BBandsLength: defaultBBandsLength,
		BBandsStd:    defaultBBandsStd,
	}
}

// Normalize fills zero or negative fields with defaults.
func (p Params) Normalize() Params {
	d := DefaultParams()
	out := p
	if out.RSIPeriod <= 0 {
		out.RSIPeriod = d.RSIPeriod
	}
	if out.MACDFast <= 0 {
		out.MACDFast = d.MACDFast
	}
	if out.MACDSlow <= 0 {
		out.MACDSlow = d.MACDSlow
	}
	if out.MACDSignal <= 0 {
		out.MACDSignal = d.MACDSignal
	}
	if out.SMAShort <= 0 {
		out.SMAShort = d.SMAShort
	}
	if out.SMALong <= 0 {
		out.SMALong = d.SMALong
	}
	if out.EMAShort <= 0 {
		out.EMAShort = d.EMAShort
	}
	if out.EMALong <= 0 {
		out.EMALong = d.EMALong
	}
	if out.ATRPeriod <= 0 {
		out.ATRPeriod = d.ATRPeriod
	}
	if out.BBandsLength <= 0 {
		out.BBandsLength = d.BBandsLength
	}
	if out.BBandsStd <= 0 {
		out.BBandsStd = d.BBandsStd
	}
	return out
}

const (
	KeyMACD       = "macd"
	KeyMACDSignal = "macd_signal"
	KeyMACDHist   = "macd_hist"
	KeyBBLower    = "bb_lower"
	KeyBBMiddle   = "bb_middle"
	KeyBBUpper    = "bb_upper"
)

func (p Params) RSIKey() string      { return fmt.Sprintf("rsi_%d", p.RSIPeriod) }
func (p Params) SMAShortKey() string { return fmt.Sprintf("sma_%d", p.SMAShort) }
func (p Params) SMALongKey() string  { return fmt.Sprintf("sma_%d", p.SMALong) }
func (p Params) EMAShortKey() string { return fmt.Sprintf("ema_%d", p.EMAShort) }
func (p Params) EMALongKey() string  { return fmt.Sprintf("ema_%d", p.EMALong) }
func (p Params) ATRKey() string      { return fmt.Sprintf("atr_%d", p.ATRPeriod) }

// Requirements maps every indicator key to the minimum number of candles
// needed for its latest value to exist.
func (p Params) Requirements() map[string]int {
	p = p.Normalize()
	fast, slow := p.MACDFast, p.MACDSlow
	if slow < fast {
		slow = fast
	}
	macdNeed := slow + p.MACDSignal - 1
	return map[string]int{
		p.RSIKey():      p.RSIPeriod + 1,
		KeyMACD:         macdNeed,
		KeyMACDSignal:   macdNeed,
		KeyMACDHist:     macdNeed,
		p.SMAShortKey(): p.SMAShort,
		p.SMALongKey():  p.SMALong,
		p.EMAShortKey(): p.EMAShort,
		p.EMALongKey():  p.EMALong,
		p.ATRKey():      p.ATRPeriod + 1,
		KeyBBLower:      p.BBandsLength,
		KeyBBMiddle:     p.BBandsLength,
		KeyBBUpper:      p.BBandsLength,
	}
}

// PerCandle holds one value per candle for each indicator key. NaN marks
// candles where the indicator is not computable.
type PerCandle struct {
	Len    int
	Values map[string][]float64
}

func (pc PerCandle) Series(key string) ([]float64, bool) {
	s, ok := pc.Values[key]
	return s, ok
}

// Snapshot is the last row of PerCandle. A nil value means "not computable".
type Snapshot map[string]*float64

func (s Snapshot) Get(key string) (float64, bool) {
	v, ok := s[key]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// Compute runs every indicator independently over the series. An indicator
// whose history requirement is not met is NaN for every candle; the others
// are unaffected.
func Compute(series market.Series, p Params) (PerCandle, Snapshot) {
	p = p.Normalize()
	n := series.Len()
	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()
	need := p.Requirements()

	pc := PerCandle{Len: n, Values: make(map[string][]float64, len(need))}
	for key := range need {
		pc.Values[key] = nanSeries(n)
	}

	if n >= need[p.RSIKey()] {
		pc.Values[p.RSIKey()] = maskLookback(talib.Rsi(closes, p.RSIPeriod), p.RSIPeriod)
	}
	if n >= need[KeyMACD] {
		macd, signal, hist := talib.Macd(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
		lookback := need[KeyMACD] - 1
		pc.Values[KeyMACD] = maskLookback(macd, lookback)
		pc.Values[KeyMACDSignal] = maskLookback(signal, lookback)
		pc.Values[KeyMACDHist] = maskLookback(hist, lookback)
	}
	for _, ma := range []struct {
		key    string
		period int
		ema    bool
	}{
		{key: p.SMAShortKey(), period: p.SMAShort},
		{key: p.SMALongKey(), period: p.SMALong},
		{key: p.EMAShortKey(), period: p.EMAShort, ema: true},
		{key: p.EMALongKey(), period: p.EMALong, ema: true},
	} {
		if n < ma.period {
			continue
		}
		var out []float64
		if ma.ema {
			out = talib.Ema(closes, ma.period)
		} else {
			out = talib.Sma(closes, ma.period)
		}
		pc.Values[ma.key] = maskLookback(out, ma.period-1)
	}
	if n >= need[p.ATRKey()] {
		pc.Values[p.ATRKey()] = maskLookback(talib.Atr(highs, lows, closes, p.ATRPeriod), p.ATRPeriod)
	}
	if n >= need[KeyBBMiddle] {
		upper, middle, lower := talib.BBands(closes, p.BBandsLength, p.BBandsStd, p.BBandsStd, talib.SMA)
		lookback := p.BBandsLength - 1
		pc.Values[KeyBBUpper] = maskLookback(upper, lookback)
		pc.Values[KeyBBMiddle] = maskLookback(middle, lookback)
		pc.Values[KeyBBLower] = maskLookback(lower, lookback)
	}

	return pc, pc.Snapshot()
}

// Snapshot extracts the last row.
func (pc PerCandle) Snapshot() Snapshot {
	snap := make(Snapshot, len(pc.Values))
	for key, series := range pc.Values {
		if len(series) == 0 {
			snap[key] = nil
			continue
		}
		snap[key] = finitePtr(series[len(series)-1])
	}
	return snap
}

// maskLookback replaces talib's zero-filled warmup prefix with NaN and maps
// any non-finite output to NaN.
func maskLookback(src []float64, lookback int) []float64 {
	out := make([]float64, len(src))
	for i, v := range src {
		if i < lookback || !isFinite(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = v
	}
	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func finitePtr(v float64) *float64 {
	if !isFinite(v) {
		return nil
	}
	return &v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
