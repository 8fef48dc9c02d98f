package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"taengine/internal/analysis/crosstf"
	"taengine/internal/analysis/indicator"
	"taengine/internal/analysis/levels"
	"taengine/internal/analysis/volume"
	"taengine/internal/logger"
	"taengine/internal/market"
	"taengine/internal/metrics"
)

type Params struct {
	Indicator    indicator.Params
	Divergence   indicator.DivergenceParams
	FibLookback  int
	RecentWindow int
	Volume       volume.Params
	CrossTF      crosstf.Params
}

func DefaultParams() Params {
	return Params{
		Indicator:    indicator.DefaultParams(),
		Divergence:   indicator.DefaultDivergenceParams(),
		FibLookback:  levels.DefaultFibLookback,
		RecentWindow: levels.DefaultRecentWindow,
		Volume:       volume.DefaultParams(),
		CrossTF:      crosstf.DefaultParams(),
	}
}

// Bundle is everything derived from one timeframe's candles.
type Bundle struct {
	Timeframe  string                 `json:"timeframe"`
	Candles    int                    `json:"candles"`
	Dropped    int                    `json:"dropped,omitempty"`
	Snapshot   indicator.Snapshot     `json:"snapshot"`
	Divergence indicator.Divergence   `json:"divergence"`
	Fibonacci  levels.FibonacciLevels `json:"fibonacci"`
	Pivots     levels.PivotPoints     `json:"pivots"`
	Summary    levels.Summary         `json:"summary"`
	Volume     volume.Profile         `json:"volume"`

	// Integrity is nil when the label has no fixed candle length.
	Integrity *market.IntegrityReport `json:"integrity,omitempty"`
}

type Report struct {
	ID             string             `json:"id"`
	Symbol         string             `json:"symbol"`
	GeneratedAt    time.Time          `json:"generated_at"`
	Timeframes     []Bundle           `json:"timeframes"`
	CrossTimeframe crosstf.Comparison `json:"cross_timeframe"`
}

// Bundle returns the entry for a timeframe label.
func (r Report) Bundle(timeframe string) (Bundle, bool) {
	for _, b := range r.Timeframes {
		if b.Timeframe == timeframe {
			return b, true
		}
	}
	return Bundle{}, false
}

type Options struct {
	Params  Params
	Metrics *metrics.Registry
	Now     func() time.Time
}

// Engine holds only configuration; each call works on its own inputs.
type Engine struct {
	params  Params
	metrics *metrics.Registry
	now     func() time.Time
}

func New(opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{params: opts.Params, metrics: opts.Metrics, now: now}
}

func (e *Engine) Params() Params { return e.params }

// AnalyzeSeries derives the bundle for one timeframe.
func (e *Engine) AnalyzeSeries(timeframe string, series market.Series) Bundle {
	start := time.Now()
	defer e.metrics.ObserveStage("bundle", start)

	p := e.params
	perCandle, snap := indicator.Compute(series, p.Indicator)
	rsi, _ := perCandle.Series(p.Indicator.Normalize().RSIKey())
	div := indicator.AnalyzeRSIDivergence(series.Closes(), rsi, p.Divergence)
	e.metrics.CountDivergence(timeframe, string(div.Label))

	b := Bundle{
		Timeframe:  timeframe,
		Candles:    series.Len(),
		Snapshot:   snap,
		Divergence: div,
		Fibonacci:  levels.Fibonacci(series, p.FibLookback),
		Pivots:     levels.PivotsFromLast(series),
		Summary:    levels.Summarize(series, p.RecentWindow),
		Volume:     volume.BuildProfile(series, p.Volume),
	}
	// calendar months vary in length
	if d, ok := crosstf.Duration(timeframe); ok && !strings.HasSuffix(timeframe, "M") {
		rep := market.CheckIntegrity(series, d.Milliseconds())
		if !rep.Complete() {
			logger.Debugf("engine: %s has %d gaps, %d duplicate and %d irregular candles", timeframe, len(rep.Gaps), rep.Duplicates, rep.Irregular)
		}
		b.Integrity = &rep
	}
	return b
}

// AnalyzeRaw converts rows first; dropped rows are counted on the bundle.
func (e *Engine) AnalyzeRaw(timeframe string, rows []market.RawRow) Bundle {
	series, rep := e.fromRaw(timeframe, rows)
	b := e.AnalyzeSeries(timeframe, series)
	b.Dropped = rep.Dropped
	return b
}

// Analyze builds every timeframe bundle concurrently and then the
// cross-timeframe comparison.
func (e *Engine) Analyze(ctx context.Context, symbol string, frames map[string]market.Series) (Report, error) {
	return e.analyze(ctx, symbol, frames, nil)
}

// AnalyzeRawFrames is Analyze over unconverted rows.
func (e *Engine) AnalyzeRawFrames(ctx context.Context, symbol string, raw map[string][]market.RawRow) (Report, error) {
	frames := make(map[string]market.Series, len(raw))
	dropped := make(map[string]int, len(raw))
	for tf, rows := range raw {
		series, rep := e.fromRaw(tf, rows)
		frames[tf] = series
		dropped[tf] = rep.Dropped
	}
	return e.analyze(ctx, symbol, frames, dropped)
}

func (e *Engine) analyze(ctx context.Context, symbol string, frames map[string]market.Series, dropped map[string]int) (Report, error) {
	start := time.Now()
	defer e.metrics.ObserveStage("report", start)

	labels := make([]string, 0, len(frames))
	for tf := range frames {
		labels = append(labels, tf)
	}
	labels = crosstf.OrderLabels(labels)

	bundles := make([]Bundle, len(labels))
	g, gctx := errgroup.WithContext(ctx)
	for i, tf := range labels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b := e.AnalyzeSeries(tf, frames[tf])
			b.Dropped = dropped[tf]
			bundles[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	cp := e.params.CrossTF
	cp.Volume = e.params.Volume
	cmp, err := crosstf.Compare(ctx, frames, cp)
	if err != nil {
		return Report{}, err
	}
	for _, f := range cmp.Frames {
		if !f.Sufficient {
			logger.Warnf("engine: %s %s excluded from cross-timeframe comparison (%d candles)", symbol, f.Timeframe, f.Candles)
			e.metrics.CountSkipped(f.Timeframe)
		}
	}

	return Report{
		ID:             uuid.NewString(),
		Symbol:         strings.ToUpper(strings.TrimSpace(symbol)),
		GeneratedAt:    e.now().UTC(),
		Timeframes:     bundles,
		CrossTimeframe: cmp,
	}, nil
}

func (e *Engine) fromRaw(timeframe string, rows []market.RawRow) (market.Series, market.ParseReport) {
	series, rep := market.FromRaw(rows)
	if rep.Dropped > 0 {
		logger.Warnf("engine: %s dropped %d/%d malformed rows: %v", timeframe, rep.Dropped, rep.Total, rep.Errors[0])
		e.metrics.AddDropped(rep.Dropped)
	}
	return series, rep
}
