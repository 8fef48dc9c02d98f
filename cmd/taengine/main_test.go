package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taengine/internal/analysis/engine"
)

func writeCSV(t *testing.T, dir, name string, n int, step int64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("open_time,open,high,low,close,volume,close_time\n")
	for i := 0; i < n; i++ {
		c := 50 + 5*math.Sin(float64(i)/4)
		ot := int64(i) * step
		fmt.Fprintf(&b, "%d,%.4f,%.4f,%.4f,%.4f,%.2f,%d\n", ot, c-0.1, c+0.5, c-0.5, c, 300+20*math.Cos(float64(i)/3), ot+step-1)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseFrameFlag(t *testing.T) {
	label, path, err := parseFrameFlag("1h=data/btc.csv")
	require.NoError(t, err)
	assert.Equal(t, "1h", label)
	assert.Equal(t, "data/btc.csv", path)

	for _, bad := range []string{"1h", "=x.csv", "1h=", ""} {
		_, _, err := parseFrameFlag(bad)
		assert.Error(t, err, bad)
	}
}

func TestAnalyzeJSON(t *testing.T) {
	dir := t.TempDir()
	h1 := writeCSV(t, dir, "h1.csv", 120, 3_600_000)
	h4 := writeCSV(t, dir, "h4.csv", 40, 4*3_600_000)

	out, err := run(t, "analyze", "--symbol", "solusdt", "--tf", "4h="+h4, "--tf", "1h="+h1, "--json", "--log-level", "error")
	require.NoError(t, err)

	var report engine.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "SOLUSDT", report.Symbol)
	require.Len(t, report.Timeframes, 2)
	assert.Equal(t, "1h", report.Timeframes[0].Timeframe)
	assert.Equal(t, 120, report.Timeframes[0].Candles)
	assert.Equal(t, 40, report.Timeframes[1].Candles)
}

func TestAnalyzeTable(t *testing.T) {
	dir := t.TempDir()
	h1 := writeCSV(t, dir, "h1.csv", 80, 3_600_000)

	out, err := run(t, "analyze", "--symbol", "BTCUSDT", "--tf", "1h="+h1, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "Indicators")
	assert.Contains(t, out, "rsi_14")
	assert.Contains(t, out, "Cross-timeframe volume")
}

func TestAnalyzeErrors(t *testing.T) {
	_, err := run(t, "analyze", "--symbol", "BTCUSDT", "--tf", "1h=/does/not/exist.csv")
	assert.Error(t, err)

	dir := t.TempDir()
	h1 := writeCSV(t, dir, "h1.csv", 10, 3_600_000)
	_, err = run(t, "analyze", "--symbol", "BTCUSDT", "--tf", "1h="+h1, "--tf", "1h="+h1)
	assert.ErrorContains(t, err, "twice")
}

func TestConfigInitAndCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taengine.toml")

	out, err := run(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")

	_, err = run(t, "config", "init", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, "config", "init", path, "--force")
	require.NoError(t, err)

	out, err = run(t, "--config", path, "config", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "config ok")
}
