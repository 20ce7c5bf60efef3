package mcp

import (
	"context"
	"time"

	"tradegate/internal/analysis"
	"tradegate/internal/domain"
	"tradegate/internal/news"
	"tradegate/internal/service"
)

// MarketReader exposes the read-only exchange operations.
type MarketReader interface {
	AccountInfo(ctx context.Context) (domain.AccountInfo, error)
	Positions(ctx context.Context, symbol string) ([]domain.Position, error)
	Price(ctx context.Context, symbol string) (domain.PriceSnapshot, error)
	Candles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error)
	OpenOrders(ctx context.Context, symbol string) ([]domain.Order, error)
	OrderHistory(ctx context.Context, symbol string, limit int) ([]domain.Order, error)
	ServerTime(ctx context.Context) (time.Time, error)
}

// OrderManager exposes order placement and cancellation.
type OrderManager interface {
	PlaceOrder(ctx context.Context, params service.PlaceOrderParams) (domain.Order, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
}

// PositionCloser exposes the position-flattening operations.
type PositionCloser interface {
	ClosePosition(ctx context.Context, symbol string) (domain.CloseReport, error)
	CloseAllPositions(ctx context.Context) (domain.CloseAllReport, error)
}

// LeverageManager exposes leverage and margin-mode configuration.
type LeverageManager interface {
	LeverageInfo(ctx context.Context, symbol string) (domain.LeverageInfo, error)
	SetLeverage(ctx context.Context, symbol string, leverage int, marginMode string) (domain.LeverageInfo, error)
	SetMarginMode(ctx context.Context, symbol, marginMode string) error
}

// Analyzer computes technical-indicator reports over candle windows.
type Analyzer interface {
	RSI(candles []domain.Candle, period int) (analysis.RSIReport, error)
	MovingAverages(candles []domain.Candle, shortPeriod, longPeriod int) (analysis.MAReport, error)
	Bollinger(candles []domain.Candle, period int, stdDev float64) (analysis.BollingerReport, error)
	Comprehensive(candles []domain.Candle) (analysis.ComprehensiveReport, error)
	VolumeAnomalies(candles []domain.Candle) (analysis.VolumeAnomalyReport, error)
}

// NewsReader exposes the news and trending-coin feeds.
type NewsReader interface {
	LatestNews(ctx context.Context, sources []string, limitPerSource int) (news.Report, error)
	TrendingCoins(ctx context.Context) (news.TrendingReport, error)
}
