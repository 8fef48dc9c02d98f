package market

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedCandle marks a raw row that could not be converted. FromRaw
// drops such rows and keeps going.
var ErrMalformedCandle = errors.New("malformed candle")

// RawRow is a row as handed over by an exchange collaborator. Supported shapes:
//   - []any / []string in Binance kline order:
//     [open_time, open, high, low, close, volume, close_time, ...]
//   - KlineRow / *KlineRow
//   - Candle / *Candle
type RawRow = any

// KlineRow is the struct form of a kline where prices arrive as strings.
type KlineRow struct {
	OpenTime  int64
	Open      string
	High      string
	Low       string
	Close     string
	Volume    string
	CloseTime int64
}

// ParseReport lists the rows FromRaw dropped.
type ParseReport struct {
	Total   int
	Dropped int
	Errors  []error
}

const minKlineColumns = 7

// FromRaw converts rows into a Series sorted by open time. Malformed rows are
// dropped and reported; they never abort the series.
func FromRaw(rows []RawRow) (Series, ParseReport) {
	rep := ParseReport{Total: len(rows)}
	candles := make([]Candle, 0, len(rows))
	for i, row := range rows {
		c, err := parseRow(row)
		if err != nil {
			rep.Dropped++
			rep.Errors = append(rep.Errors, fmt.Errorf("row %d: %w", i, err))
			continue
		}
		candles = append(candles, c)
	}
	return NewSeries(candles), rep
}

func parseRow(row RawRow) (Candle, error) {
	switch r := row.(type) {
	case Candle:
		return r, nil
	case *Candle:
		if r == nil {
			return Candle{}, fmt.Errorf("%w: nil row", ErrMalformedCandle)
		}
		return *r, nil
	case KlineRow:
		return parseKlineRow(r)
	case *KlineRow:
		if r == nil {
			return Candle{}, fmt.Errorf("%w: nil row", ErrMalformedCandle)
		}
		return parseKlineRow(*r)
	case []any:
		return parseColumns(r)
	case []string:
		cols := make([]any, len(r))
		for i, v := range r {
			cols[i] = v
		}
		return parseColumns(cols)
	default:
		return Candle{}, fmt.Errorf("%w: unsupported row type %T", ErrMalformedCandle, row)
	}
}

func parseKlineRow(r KlineRow) (Candle, error) {
	return parseColumns([]any{r.OpenTime, r.Open, r.High, r.Low, r.Close, r.Volume, r.CloseTime})
}

func parseColumns(cols []any) (Candle, error) {
	if len(cols) < minKlineColumns {
		return Candle{}, fmt.Errorf("%w: want %d columns, got %d", ErrMalformedCandle, minKlineColumns, len(cols))
	}
	openTime, err := toInt64(cols[0])
	if err != nil {
		return Candle{}, fmt.Errorf("%w: open_time: %v", ErrMalformedCandle, err)
	}
	closeTime, err := toInt64(cols[6])
	if err != nil {
		return Candle{}, fmt.Errorf("%w: close_time: %v", ErrMalformedCandle, err)
	}
	names := [...]string{"open", "high", "low", "close", "volume"}
	var vals [5]float64
	for i := range vals {
		v, err := toFloat(cols[i+1])
		if err != nil {
			return Candle{}, fmt.Errorf("%w: %s: %v", ErrMalformedCandle, names[i], err)
		}
		vals[i] = v
	}
	return Candle{
		OpenTime:  openTime,
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
		CloseTime: closeTime,
	}, nil
}

// toFloat rejects NaN and infinities.
func toFloat(v any) (float64, error) {
	f, err := parseFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %v", f)
	}
	return f, nil
}

func parseFloat(v any) (float64, error) {
	switch t := v.(type) {
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	default:
		return 0, fmt.Errorf("unsupported value %T", v)
	}
}

func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, fmt.Errorf("non-finite value %v", t)
		}
		return int64(t), nil
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		return toFloatTime(s)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
		return toFloatTime(t.String())
	default:
		return 0, fmt.Errorf("unsupported value %T", v)
	}
}

func toFloatTime(s string) (int64, error) {
	f, err := toFloat(s)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
