package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure("warn", false, &buf))
	t.Cleanup(func() { _ = Configure("info", true, nil) })

	Infof("dropped %d", 1)
	assert.Zero(t, buf.Len())

	Warnf("skipped timeframe %s", "4h")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "skipped timeframe 4h", entry["message"])
}

func TestSetLevelKeepsWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure("error", false, &buf))
	t.Cleanup(func() { _ = Configure("info", true, nil) })

	require.NoError(t, SetLevel("debug"))
	Debugf("visible")
	assert.Contains(t, buf.String(), "visible")

	child := With(map[string]any{"symbol": "BTCUSDT"})
	child.Info().Msg("tagged")
	assert.Contains(t, buf.String(), `"symbol":"BTCUSDT"`)
}

func TestParseLevel(t *testing.T) {
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
	lvl, err := ParseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, "warn", lvl.String())
}
