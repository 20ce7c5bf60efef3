package handler

import (
	"context"
	"time"

	"tradegate/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// MarketReader is the read-only slice of the market service the REST
// surface needs. Trading endpoints are deliberately absent: mutations go
// through the authenticated tool transport only.
type MarketReader interface {
	AccountInfo(ctx context.Context) (domain.AccountInfo, error)
	Positions(ctx context.Context, symbol string) ([]domain.Position, error)
	Price(ctx context.Context, symbol string) (domain.PriceSnapshot, error)
	Candles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error)
	OpenOrders(ctx context.Context, symbol string) ([]domain.Order, error)
	ServerTime(ctx context.Context) (time.Time, error)
}

type Handler struct {
	tracer trace.Tracer
	market MarketReader
}

func New(tracer trace.Tracer, market MarketReader) *Handler {
	return &Handler{
		tracer: tracer,
		market: market,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/account", h.GetAccount)
	r.GET("/api/positions", h.GetPositions)
	r.GET("/api/prices/:symbol", h.GetPrice)
	r.GET("/api/candles/:symbol", h.GetCandles)
	r.GET("/api/orders/open", h.GetOpenOrders)
}
