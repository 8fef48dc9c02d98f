package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"taengine/internal/analysis/engine"
	"taengine/internal/gateway/binance"
	"taengine/internal/market"
	"taengine/internal/metrics"
)

type analyzeOptions struct {
	symbol string
	frames []string
	asJSON bool
}

func newAnalyzeCmd(ro *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze kline files for one symbol",
		Long: `Analyze reads one kline file per timeframe and prints the report.

Files ending in .json hold a Binance /klines response body; anything else is
read as CSV in the same column order.

Example:
  taengine analyze --symbol BTCUSDT --tf 1h=btc_1h.csv --tf 4h=btc_4h.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ro.load(cmd)
			if err != nil {
				return err
			}
			raw, err := loadFrames(opts.frames)
			if err != nil {
				return err
			}
			eng := engine.New(engine.Options{Params: cfg.EngineParams(), Metrics: metrics.New()})
			report, err := eng.AnalyzeRawFrames(cmd.Context(), opts.symbol, raw)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			renderReport(out, report, cfg.Indicator)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.symbol, "symbol", "", "Symbol label for the report")
	cmd.Flags().StringArrayVar(&opts.frames, "tf", nil, "Timeframe file as label=path, repeatable")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the report as JSON")
	_ = cmd.MarkFlagRequired("symbol")
	_ = cmd.MarkFlagRequired("tf")
	return cmd
}

func parseFrameFlag(v string) (label, path string, err error) {
	label, path, ok := strings.Cut(v, "=")
	label, path = strings.TrimSpace(label), strings.TrimSpace(path)
	if !ok || label == "" || path == "" {
		return "", "", fmt.Errorf("invalid --tf %q, want label=path", v)
	}
	return label, path, nil
}

func loadFrames(flags []string) (map[string][]market.RawRow, error) {
	out := make(map[string][]market.RawRow, len(flags))
	for _, f := range flags {
		label, path, err := parseFrameFlag(f)
		if err != nil {
			return nil, err
		}
		if _, dup := out[label]; dup {
			return nil, fmt.Errorf("timeframe %s given twice", label)
		}
		rows, err := readRows(path)
		if err != nil {
			return nil, err
		}
		out[label] = rows
	}
	return out, nil
}

func readRows(path string) ([]market.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		rows, err := binance.DecodeREST(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return rows, nil
	}
	rows, err := market.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
