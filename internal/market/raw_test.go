package market

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRawArrayRows(t *testing.T) {
	rows := []RawRow{
		[]any{float64(2000), "101", "105", "99", "104", "12.5", float64(2999), "0", float64(8)},
		[]any{float64(1000), "100", "102", "98", "101", "10", float64(1999)},
	}
	s, rep := FromRaw(rows)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, 0, rep.Dropped)
	assert.Equal(t, int64(1000), s.At(0).OpenTime, "rows are sorted ascending")
	assert.Equal(t, 104.0, s.At(1).Close)
	assert.Equal(t, 12.5, s.At(1).Volume)
	assert.Equal(t, int64(2999), s.At(1).CloseTime)
}

func TestFromRawDropsMalformedRows(t *testing.T) {
	rows := []RawRow{
		[]any{float64(1000), "100", "102", "98", "101", "10", float64(1999)},
		[]any{float64(2000), "oops", "102", "98", "101", "10", float64(2999)},
		[]any{float64(3000), "100"},
		42,
		KlineRow{OpenTime: 4000, Open: "1", High: "2", Low: "0.5", Close: "1.5", Volume: "7", CloseTime: 4999},
	}
	s, rep := FromRaw(rows)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 5, rep.Total)
	assert.Equal(t, 3, rep.Dropped)
	require.Len(t, rep.Errors, 3)
	for _, err := range rep.Errors {
		assert.True(t, errors.Is(err, ErrMalformedCandle))
	}
	assert.Contains(t, rep.Errors[0].Error(), "row 1")
}

func TestFromRawDropsNonFiniteValues(t *testing.T) {
	rows := []RawRow{
		[]any{float64(1000), "100", "102", "98", "101", "10", float64(1999)},
		[]any{float64(2000), "100", "102", "98", "101", "NaN", float64(2999)},
		[]any{float64(3000), "100", "+Inf", "98", "101", "10", float64(3999)},
		[]any{"NaN", "100", "102", "98", "101", "10", float64(4999)},
		KlineRow{OpenTime: 5000, Open: "1", High: "2", Low: "0.5", Close: "-inf", Volume: "7", CloseTime: 5999},
	}
	s, rep := FromRaw(rows)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, int64(1000), s.At(0).OpenTime)
	assert.Equal(t, 4, rep.Dropped)
	for _, err := range rep.Errors {
		assert.ErrorIs(t, err, ErrMalformedCandle)
	}
	assert.Contains(t, rep.Errors[0].Error(), "volume")
}

func TestFromRawJSONNumbers(t *testing.T) {
	dec := json.NewDecoder(strings.NewReader(`[[1000,"1.5","2","1","1.8","3",1999]]`))
	dec.UseNumber()
	var raw [][]any
	require.NoError(t, dec.Decode(&raw))
	rows := make([]RawRow, len(raw))
	for i, r := range raw {
		rows[i] = r
	}
	s, rep := FromRaw(rows)
	require.Equal(t, 1, s.Len())
	assert.Zero(t, rep.Dropped)
	assert.Equal(t, int64(1000), s.At(0).OpenTime)
	assert.Equal(t, 1.8, s.At(0).Close)
}

func TestFromRawEmpty(t *testing.T) {
	s, rep := FromRaw(nil)
	assert.Zero(t, s.Len())
	assert.Zero(t, rep.Dropped)
	_, ok := s.Last()
	assert.False(t, ok)
}

func TestNewSeriesStableSort(t *testing.T) {
	s := NewSeries([]Candle{
		{OpenTime: 2, Close: 1},
		{OpenTime: 1, Close: 2},
		{OpenTime: 2, Close: 3},
	})
	assert.Equal(t, []float64{2, 1, 3}, s.Closes())
}

func TestSeriesTail(t *testing.T) {
	s := NewSeries([]Candle{{OpenTime: 1, Volume: 1}, {OpenTime: 2, Volume: 2}, {OpenTime: 3, Volume: 3}})
	assert.Equal(t, []float64{2, 3}, s.Tail(2).Volumes())
	assert.Equal(t, 3, s.Tail(10).Len())
	assert.Zero(t, s.Tail(0).Len())
	high, low, ok := NewSeries([]Candle{{High: 5, Low: 1}, {High: 7, Low: 2}}).HighLow()
	assert.True(t, ok)
	assert.Equal(t, 7.0, high)
	assert.Equal(t, 1.0, low)
}

func TestReadCSV(t *testing.T) {
	in := "open_time,open,high,low,close,volume,close_time\n" +
		"1000,1,2,0.5,1.5,10,1999\n" +
		"2000,1.5,2.5,1,2,x,2999\n"
	rows, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	s, rep := FromRaw(rows)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, rep.Dropped)
}

func TestCheckIntegrity(t *testing.T) {
	const step = 60_000
	s := NewSeries([]Candle{
		{OpenTime: 0}, {OpenTime: step}, {OpenTime: step},
		{OpenTime: 4 * step}, {OpenTime: 5*step + 10},
	})
	rep := CheckIntegrity(s, step)
	assert.False(t, rep.Complete())
	assert.Equal(t, int64(0), rep.Start)
	assert.Equal(t, int64(5*step+10), rep.End)
	assert.Equal(t, int64(6), rep.Expected)
	assert.Equal(t, int64(4), rep.Present)
	assert.Equal(t, 1, rep.Duplicates)
	assert.Equal(t, 1, rep.Irregular)
	require.Len(t, rep.Gaps, 1)
	assert.Equal(t, Gap{From: 2 * step, To: 3 * step, Count: 2}, rep.Gaps[0])

	clean := CheckIntegrity(NewSeries([]Candle{{OpenTime: 0}, {OpenTime: step}}), step)
	assert.True(t, clean.Complete())
	assert.True(t, CheckIntegrity(Series{}, step).Complete())
}
