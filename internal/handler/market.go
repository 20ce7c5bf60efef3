package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradegate/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultCandleLimit = 100
	maxCandleLimit     = 1000
)

// Health reports liveness and, when the exchange answers in time, clock
// drift between this host and the exchange.
func (h *Handler) Health(c *gin.Context) {
	if h.market == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	serverTime, err := h.market.ServerTime(ctx)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "degraded", "exchange": "unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"exchange_time":  serverTime,
		"clock_drift_ms": time.Since(serverTime).Milliseconds(),
	})
}

func (h *Handler) GetAccount(c *gin.Context) {
	if h.market == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "market service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-account")
	defer span.End()

	account, err := h.market.AccountInfo(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}

func (h *Handler) GetPositions(c *gin.Context) {
	if h.market == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "market service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-positions")
	defer span.End()

	symbol := strings.TrimSpace(c.Query("symbol"))
	if symbol != "" {
		normalized, ok := domain.NormalizeSymbol(symbol)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":             "unsupported symbol: " + symbol,
				"supported_symbols": domain.SupportedSymbols,
			})
			return
		}
		symbol = normalized
		span.SetAttributes(attribute.String("symbol", symbol))
	}

	positions, err := h.market.Positions(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func (h *Handler) GetPrice(c *gin.Context) {
	if h.market == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "market service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-price")
	defer span.End()

	symbol, ok := domain.NormalizeSymbol(c.Param("symbol"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported symbol: " + c.Param("symbol"),
			"supported_symbols": domain.SupportedSymbols,
		})
		return
	}
	span.SetAttributes(attribute.String("symbol", symbol))

	snapshot, err := h.market.Price(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *Handler) GetCandles(c *gin.Context) {
	if h.market == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "market service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-candles")
	defer span.End()

	symbol, ok := domain.NormalizeSymbol(c.Param("symbol"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported symbol: " + c.Param("symbol"),
			"supported_symbols": domain.SupportedSymbols,
		})
		return
	}
	span.SetAttributes(attribute.String("symbol", symbol))

	interval := strings.TrimSpace(c.DefaultQuery("interval", "1h"))
	if !domain.IsSupportedInterval(interval) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":               "unsupported interval: " + interval,
			"supported_intervals": domain.SupportedIntervals,
		})
		return
	}

	limit := defaultCandleLimit
	if rawLimit := strings.TrimSpace(c.Query("limit")); rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n <= 0 || n > maxCandleLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
			return
		}
		limit = n
	}

	candles, err := h.market.Candles(ctx, symbol, interval, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "interval": interval, "candles": candles})
}

func (h *Handler) GetOpenOrders(c *gin.Context) {
	if h.market == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "market service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-open-orders")
	defer span.End()

	symbol := strings.TrimSpace(c.Query("symbol"))
	if symbol != "" {
		normalized, ok := domain.NormalizeSymbol(symbol)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported symbol: " + symbol})
			return
		}
		symbol = normalized
	}

	orders, err := h.market.OpenOrders(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
