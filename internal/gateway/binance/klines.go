// Package binance adapts Binance kline payloads to market rows. Fetching is
// left to the caller; this package only converts what the client returns.
package binance

import (
	"encoding/json"
	"fmt"
	"io"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"

	"taengine/internal/market"
)

// FromKlines converts spot klines from the REST client.
func FromKlines(ks []*gobinance.Kline) []market.RawRow {
	out := make([]market.RawRow, 0, len(ks))
	for _, k := range ks {
		if k == nil {
			out = append(out, (*market.KlineRow)(nil))
			continue
		}
		out = append(out, market.KlineRow{
			OpenTime:  k.OpenTime,
			Open:      k.Open,
			High:      k.High,
			Low:       k.Low,
			Close:     k.Close,
			Volume:    k.Volume,
			CloseTime: k.CloseTime,
		})
	}
	return out
}

// FromFuturesKlines converts USDⓈ-M futures klines.
func FromFuturesKlines(ks []*futures.Kline) []market.RawRow {
	out := make([]market.RawRow, 0, len(ks))
	for _, k := range ks {
		if k == nil {
			out = append(out, (*market.KlineRow)(nil))
			continue
		}
		out = append(out, market.KlineRow{
			OpenTime:  k.OpenTime,
			Open:      k.Open,
			High:      k.High,
			Low:       k.Low,
			Close:     k.Close,
			Volume:    k.Volume,
			CloseTime: k.CloseTime,
		})
	}
	return out
}

// FromWsKline converts a streamed kline. final is false while the candle is
// still forming.
func FromWsKline(k gobinance.WsKline) (row market.RawRow, final bool) {
	return market.KlineRow{
		OpenTime:  k.StartTime,
		Open:      k.Open,
		High:      k.High,
		Low:       k.Low,
		Close:     k.Close,
		Volume:    k.Volume,
		CloseTime: k.EndTime,
	}, k.IsFinal
}

// DecodeREST reads the raw /klines response body: an array of arrays with
// numbers as JSON numbers and prices as strings.
func DecodeREST(r io.Reader) ([]market.RawRow, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw [][]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	out := make([]market.RawRow, len(raw))
	for i, row := range raw {
		out[i] = row
	}
	return out, nil
}
