package analysis

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"taengine/internal/analysis/engine"
	"taengine/internal/gateway/binance"
	"taengine/internal/logger"
	"taengine/internal/market"
	"taengine/internal/store"
)

// Store is what the router needs from the series cache.
type Store interface {
	store.KlineStore
	store.SeriesReader
}

type Router struct {
	engine     *engine.Engine
	store      Store
	maxCandles int
}

type RouterParams struct {
	Engine     *engine.Engine
	Store      Store
	MaxCandles int
}

func NewRouter(p RouterParams) *Router {
	st := p.Store
	if st == nil {
		st = store.NewMemoryKlineStore()
	}
	maxCandles := p.MaxCandles
	if maxCandles <= 0 {
		maxCandles = 1000
	}
	return &Router{engine: p.Engine, store: st, maxCandles: maxCandles}
}

// Register mounts the analysis API on group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/analysis", r.handleAnalyze)
	group.PUT("/series/:symbol/:interval", r.handlePutSeries)
	group.GET("/series/:symbol/:interval", r.handleBundle)
	group.GET("/series/:symbol", r.handleReport)
}

// AnalyzeRequest carries raw kline rows per timeframe, each row in Binance
// REST order.
type AnalyzeRequest struct {
	Symbol     string                     `json:"symbol"`
	Timeframes map[string][]market.RawRow `json:"timeframes"`
}

func (r *Router) handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := decodeJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Symbol = strings.TrimSpace(req.Symbol)
	if req.Symbol == "" || len(req.Timeframes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol and timeframes are required"})
		return
	}
	report, err := r.engine.AnalyzeRawFrames(c.Request.Context(), req.Symbol, req.Timeframes)
	if err != nil {
		logger.Errorf("[analysis-api] analyze %s failed: %v", req.Symbol, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func (r *Router) handlePutSeries(c *gin.Context) {
	symbol, interval := c.Param("symbol"), c.Param("interval")
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rows, err := binance.DecodeREST(bytes.NewReader(body))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	series, rep := market.FromRaw(rows)
	if err := r.store.Put(c.Request.Context(), symbol, interval, series.Candles(), r.maxCandles); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrEmptyKey) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	stored, _ := r.store.Get(c.Request.Context(), symbol, interval)
	if rep.Dropped > 0 {
		logger.Warnf("[analysis-api] %s@%s dropped %d malformed rows", symbol, interval, rep.Dropped)
	}
	c.JSON(http.StatusOK, gin.H{
		"accepted": series.Len(),
		"dropped":  rep.Dropped,
		"stored":   len(stored),
	})
}

func (r *Router) handleBundle(c *gin.Context) {
	symbol, interval := c.Param("symbol"), c.Param("interval")
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	series, err := r.store.Export(c.Request.Context(), symbol, interval, limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if series.Len() == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no candles stored for " + symbol + "@" + interval})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bundle": r.engine.AnalyzeSeries(interval, series)})
}

func (r *Router) handleReport(c *gin.Context) {
	symbol := c.Param("symbol")
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	intervals, err := r.store.Intervals(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(intervals) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no series stored for " + symbol})
		return
	}
	frames := make(map[string]market.Series, len(intervals))
	for _, iv := range intervals {
		series, err := r.store.Export(ctx, symbol, iv, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		frames[iv] = series
	}
	report, err := r.engine.Analyze(ctx, symbol, frames)
	if err != nil {
		logger.Errorf("[analysis-api] report %s failed: %v", symbol, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return 0, false
	}
	return n, true
}
