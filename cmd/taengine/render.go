package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"taengine/internal/analysis/engine"
	"taengine/internal/analysis/indicator"
	"taengine/internal/analysis/levels"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	// indicator keys are lower case
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	t.SetTitle(title)
	return t
}

func fmtPtr(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}

func fmtSnap(s indicator.Snapshot, key string) string {
	v, ok := s.Get(key)
	if !ok {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func renderReport(w io.Writer, r engine.Report, p indicator.Params) {
	p = p.Normalize()
	fmt.Fprintf(w, "%s  report %s  generated %s\n\n", r.Symbol, r.ID, r.GeneratedAt.Format("2006-01-02 15:04:05Z07:00"))

	ind := newTable(w, "Indicators")
	ind.AppendHeader(table.Row{"TF", "Candles", "Dropped", "Close", p.RSIKey(), indicator.KeyMACDHist, p.SMAShortKey(), p.SMALongKey(), p.ATRKey(), "Divergence"})
	for _, b := range r.Timeframes {
		ind.AppendRow(table.Row{
			b.Timeframe, b.Candles, b.Dropped, fmtPtr(b.Summary.Current),
			fmtSnap(b.Snapshot, p.RSIKey()), fmtSnap(b.Snapshot, indicator.KeyMACDHist),
			fmtSnap(b.Snapshot, p.SMAShortKey()), fmtSnap(b.Snapshot, p.SMALongKey()),
			fmtSnap(b.Snapshot, p.ATRKey()), b.Divergence.Label,
		})
	}
	ind.Render()
	fmt.Fprintln(w)

	lv := newTable(w, "Levels")
	header := table.Row{"TF", "Pivot", "S1", "R1"}
	for _, fr := range levels.FibRatios {
		header = append(header, "Fib "+fr.Label)
	}
	lv.AppendHeader(header)
	for _, b := range r.Timeframes {
		row := table.Row{b.Timeframe, fmtPtr(b.Pivots.P), fmtPtr(b.Pivots.S1), fmtPtr(b.Pivots.R1)}
		for _, fr := range levels.FibRatios {
			v, ok := b.Fibonacci.Levels[fr.Label]
			if !ok {
				row = append(row, "-")
				continue
			}
			row = append(row, strconv.FormatFloat(v, 'f', 4, 64))
		}
		lv.AppendRow(row)
	}
	lv.Render()
	fmt.Fprintln(w)

	vol := newTable(w, "Volume")
	vol.AppendHeader(table.Row{"TF", "Trend", "Change %", "PV corr", "Interpretation", "Anomaly", "Z"})
	for _, b := range r.Timeframes {
		v := b.Volume
		anomaly := string(v.Anomaly.Kind)
		if !v.Anomaly.Available {
			anomaly = "-"
		}
		vol.AppendRow(table.Row{
			b.Timeframe, v.Trend.Direction, fmt.Sprintf("%.2f", v.Trend.PctChange),
			fmtPtr(v.PriceVolume.Correlation), v.PriceVolume.Interpretation,
			anomaly, fmt.Sprintf("%.2f", v.Anomaly.ZScore),
		})
	}
	vol.Render()
	fmt.Fprintln(w)

	cmp := r.CrossTimeframe
	cross := newTable(w, "Cross-timeframe volume")
	cross.AppendHeader(table.Row{"TF", "Sufficient", "Trend", "Vs MA", "Normalized"})
	for _, f := range cmp.Frames {
		cross.AppendRow(table.Row{f.Timeframe, f.Sufficient, f.Trend, fmtPtr(f.CurrentVsMA), fmtPtr(f.NormalizedVolume)})
	}
	cross.AppendFooter(table.Row{"", "", cmp.Consistency, fmt.Sprintf("%d above / %d below", cmp.AboveMACount, cmp.BelowMACount), "baseline " + cmp.Baseline})
	cross.Render()
	if cmp.ShortVsLongDivergence {
		fmt.Fprintln(w, "short timeframes rising while long timeframes are not")
	}
}
