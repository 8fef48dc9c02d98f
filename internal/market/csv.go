package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadCSV reads kline rows in Binance column order
// (open_time,open,high,low,close,volume,close_time,...). A leading header line
// is skipped. Field-level validation is left to FromRaw.
func ReadCSV(r io.Reader) ([]RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows := make([]RawRow, 0, 512)
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if first {
			first = false
			if len(rec) > 0 && isHeader(rec[0]) {
				continue
			}
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func isHeader(field string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	return err != nil
}
