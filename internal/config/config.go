package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"taengine/internal/analysis/crosstf"
	"taengine/internal/analysis/engine"
	"taengine/internal/analysis/indicator"
	"taengine/internal/analysis/levels"
	"taengine/internal/analysis/volume"
	"taengine/internal/logger"
)

// Config holds every numeric knob of the analysis plus the log and http
// settings of the binary.
type Config struct {
	Indicator  indicator.Params           `toml:"indicator" yaml:"indicator"`
	Divergence indicator.DivergenceParams `toml:"divergence" yaml:"divergence"`
	Levels     LevelsConfig               `toml:"levels" yaml:"levels"`
	Volume     volume.Params              `toml:"volume" yaml:"volume"`
	CrossTF    crosstf.Params             `toml:"crosstf" yaml:"crosstf"`
	Log        LogConfig                  `toml:"log" yaml:"log"`
	HTTP       HTTPConfig                 `toml:"http" yaml:"http"`
}

type LevelsConfig struct {
	FibLookback  int `toml:"fib_lookback" yaml:"fib_lookback"`
	RecentWindow int `toml:"recent_window" yaml:"recent_window"`
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Pretty bool   `toml:"pretty" yaml:"pretty"`
}

type HTTPConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
	// MaxCandles caps the per-series cache of the http adapter.
	MaxCandles int `toml:"max_candles" yaml:"max_candles"`
}

func Default() Config {
	return Config{
		Indicator:  indicator.DefaultParams(),
		Divergence: indicator.DefaultDivergenceParams(),
		Levels: LevelsConfig{
			FibLookback:  levels.DefaultFibLookback,
			RecentWindow: levels.DefaultRecentWindow,
		},
		Volume:  volume.DefaultParams(),
		CrossTF: crosstf.DefaultParams(),
		Log:     LogConfig{Level: "info", Pretty: true},
		HTTP:    HTTPConfig{Addr: ":9992", MaxCandles: 1000},
	}
}

// Load reads path over the defaults, applies TAENGINE_* environment
// overrides and validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decode(path, data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".toml", "":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	default:
		return fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("TAENGINE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TAENGINE_LOG_PRETTY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TAENGINE_LOG_PRETTY: %w", err)
		}
		cfg.Log.Pretty = b
	}
	if v := os.Getenv("TAENGINE_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	return nil
}

// Validate returns the first violated constraint.
func (c *Config) Validate() error {
	positive := []struct {
		name  string
		value int
	}{
		{"indicator.rsi_period", c.Indicator.RSIPeriod},
		{"indicator.macd_fast", c.Indicator.MACDFast},
		{"indicator.macd_slow", c.Indicator.MACDSlow},
		{"indicator.macd_signal", c.Indicator.MACDSignal},
		{"indicator.sma_short", c.Indicator.SMAShort},
		{"indicator.sma_long", c.Indicator.SMALong},
		{"indicator.ema_short", c.Indicator.EMAShort},
		{"indicator.ema_long", c.Indicator.EMALong},
		{"indicator.atr_period", c.Indicator.ATRPeriod},
		{"indicator.bbands_length", c.Indicator.BBandsLength},
		{"divergence.peak_valley_window", c.Divergence.PeakValleyWindow},
		{"divergence.divergence_window", c.Divergence.DivergenceWindow},
		{"levels.fib_lookback", c.Levels.FibLookback},
		{"levels.recent_window", c.Levels.RecentWindow},
		{"volume.trend_period", c.Volume.TrendPeriod},
		{"volume.pv_lookback", c.Volume.PVLookback},
		{"volume.anomaly_lookback", c.Volume.AnomalyLookback},
		{"crosstf.min_candles", c.CrossTF.MinCandles},
		{"crosstf.ma_period", c.CrossTF.MAPeriod},
		{"crosstf.trend_period", c.CrossTF.TrendPeriod},
	}
	for _, f := range positive {
		if f.value <= 0 {
			return fmt.Errorf("%s must be positive", f.name)
		}
	}
	if c.Indicator.MACDFast >= c.Indicator.MACDSlow {
		return errors.New("indicator.macd_fast must be below indicator.macd_slow")
	}
	if c.Indicator.BBandsStd <= 0 {
		return errors.New("indicator.bbands_std must be positive")
	}
	if c.Divergence.LookbackPivots < 2 {
		return errors.New("divergence.lookback_pivots must be at least 2")
	}
	if c.Divergence.Tolerance < 0 || c.Divergence.Tolerance >= 1 {
		return errors.New("divergence.tolerance must be in [0, 1)")
	}
	if c.Volume.PVLookback < 3 {
		return errors.New("volume.pv_lookback must be at least 3")
	}
	if c.Volume.AnomalyThreshold <= 0 {
		return errors.New("volume.anomaly_threshold must be positive")
	}
	if len(c.Volume.MAPeriods) == 0 {
		return errors.New("volume.ma_periods must not be empty")
	}
	for _, p := range c.Volume.MAPeriods {
		if p <= 0 {
			return fmt.Errorf("volume.ma_periods contains non-positive period %d", p)
		}
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return errors.New("http.addr is required")
	}
	if c.HTTP.MaxCandles <= 0 {
		return errors.New("http.max_candles must be positive")
	}
	return nil
}

// EngineParams maps the analysis sections onto engine parameters.
func (c *Config) EngineParams() engine.Params {
	return engine.Params{
		Indicator:    c.Indicator,
		Divergence:   c.Divergence,
		FibLookback:  c.Levels.FibLookback,
		RecentWindow: c.Levels.RecentWindow,
		Volume:       c.Volume,
		CrossTF:      c.CrossTF,
	}
}
