package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"taengine/internal/market"
)

var ErrEmptyKey = errors.New("symbol and interval are required")

// KlineStore 按 symbol+interval 保存一段 K 线序列。
type KlineStore interface {
	Put(ctx context.Context, symbol, interval string, candles []market.Candle, max int) error
	Get(ctx context.Context, symbol, interval string) ([]market.Candle, error)
}

// SeriesReader 以 market.Series 形式导出已缓存的序列。
type SeriesReader interface {
	Export(ctx context.Context, symbol, interval string, limit int) (market.Series, error)
	Intervals(ctx context.Context, symbol string) ([]string, error)
}

// MemoryKlineStore 内存实现，序列按 OpenTime 升序，最多保留 max 根。
type MemoryKlineStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]market.Candle
}

var (
	_ KlineStore   = (*MemoryKlineStore)(nil)
	_ SeriesReader = (*MemoryKlineStore)(nil)
)

func NewMemoryKlineStore() *MemoryKlineStore {
	return &MemoryKlineStore{data: make(map[string]map[string][]market.Candle)}
}

func normalizeKey(symbol, interval string) (string, string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	interval = strings.TrimSpace(interval)
	if symbol == "" || interval == "" {
		return "", "", ErrEmptyKey
	}
	return symbol, interval, nil
}

// Put 追加并裁剪：OpenTime 相同的 K 线直接覆盖（未收盘 K 线的重复推送不会重复），
// 超出 max 时丢弃最旧的部分。
func (s *MemoryKlineStore) Put(ctx context.Context, symbol, interval string, candles []market.Candle, max int) error {
	symbol, interval, err := normalizeKey(symbol, interval)
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		return nil
	}
	if max <= 0 {
		max = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bySymbol := s.data[symbol]
	if bySymbol == nil {
		bySymbol = make(map[string][]market.Candle)
		s.data[symbol] = bySymbol
	}
	merged := merge(bySymbol[interval], candles)
	if len(merged) > max {
		merged = merged[len(merged)-max:]
	}
	bySymbol[interval] = merged
	return nil
}

func merge(cur, incoming []market.Candle) []market.Candle {
	pos := make(map[int64]int, len(cur)+len(incoming))
	out := make([]market.Candle, 0, len(cur)+len(incoming))
	for _, c := range cur {
		pos[c.OpenTime] = len(out)
		out = append(out, c)
	}
	sorted := true
	for _, c := range incoming {
		if i, ok := pos[c.OpenTime]; ok {
			out[i] = c
			continue
		}
		if n := len(out); n > 0 && out[n-1].OpenTime > c.OpenTime {
			sorted = false
		}
		pos[c.OpenTime] = len(out)
		out = append(out, c)
	}
	if !sorted {
		sort.SliceStable(out, func(i, j int) bool { return out[i].OpenTime < out[j].OpenTime })
	}
	return out
}

// Set 整体替换序列。
func (s *MemoryKlineStore) Set(ctx context.Context, symbol, interval string, candles []market.Candle) error {
	symbol, interval, err := normalizeKey(symbol, interval)
	if err != nil {
		return err
	}
	series := market.NewSeries(candles)
	s.mu.Lock()
	defer s.mu.Unlock()
	bySymbol := s.data[symbol]
	if bySymbol == nil {
		bySymbol = make(map[string][]market.Candle)
		s.data[symbol] = bySymbol
	}
	bySymbol[interval] = series.Candles()
	return nil
}

// Get 返回序列副本。
func (s *MemoryKlineStore) Get(ctx context.Context, symbol, interval string) ([]market.Candle, error) {
	symbol, interval, err := normalizeKey(symbol, interval)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur := s.data[symbol][interval]
	out := make([]market.Candle, len(cur))
	copy(out, cur)
	return out, nil
}

// Export 返回最近 limit 根；limit <= 0 表示全部。
func (s *MemoryKlineStore) Export(ctx context.Context, symbol, interval string, limit int) (market.Series, error) {
	candles, err := s.Get(ctx, symbol, interval)
	if err != nil {
		return market.Series{}, err
	}
	series := market.NewSeries(candles)
	if limit > 0 {
		series = series.Tail(limit)
	}
	return series, nil
}

// Intervals 按字典序列出 symbol 下非空的周期。
func (s *MemoryKlineStore) Intervals(ctx context.Context, symbol string) ([]string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrEmptyKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data[symbol]))
	for iv, candles := range s.data[symbol] {
		if len(candles) > 0 {
			out = append(out, iv)
		}
	}
	sort.Strings(out)
	return out, nil
}
