// Package service holds the trading business logic between the MCP tool
// surface and the exchange client. Services own validation, retry policy
// for derived actions, and the shape of every result the tools report.
package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"tradegate/internal/bitget"
	"tradegate/internal/cache"
	"tradegate/internal/domain"
)

const (
	defaultCandleLimit  = 100
	maxCandleLimit      = 1000
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

// ExchangeReader is the read-only slice of the exchange client the market
// service depends on.
type ExchangeReader interface {
	ServerTime(ctx context.Context) (time.Time, error)
	AccountInfo(ctx context.Context) (domain.AccountInfo, error)
	Positions(ctx context.Context) ([]domain.Position, error)
	SymbolPrice(ctx context.Context, symbol string) (domain.PriceSnapshot, error)
	Candles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error)
	OpenOrders(ctx context.Context, symbol string) ([]domain.Order, error)
	OrderHistory(ctx context.Context, symbol string, limit int) ([]domain.Order, error)
	Contract(ctx context.Context, symbol string) (domain.ContractSpec, error)
}

// MarketService serves every read-only query. Positions, orders and
// balances are always fetched fresh; only candles and prices may be
// served from the short-TTL cache.
type MarketService struct {
	tracer   trace.Tracer
	exchange ExchangeReader
	cache    *cache.MarketCache
}

func NewMarketService(tracer trace.Tracer, exchange ExchangeReader, marketCache *cache.MarketCache) *MarketService {
	return &MarketService{tracer: tracer, exchange: exchange, cache: marketCache}
}

func normalizeSymbol(symbol string) (string, error) {
	normalized, ok := domain.NormalizeSymbol(symbol)
	if !ok {
		return "", &bitget.ValidationError{Field: "symbol", Reason: "unsupported symbol " + strings.ToUpper(strings.TrimSpace(symbol))}
	}
	return normalized, nil
}

func (s *MarketService) AccountInfo(ctx context.Context) (domain.AccountInfo, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.account-info")
	defer span.End()

	return s.exchange.AccountInfo(ctx)
}

// Positions returns open positions, optionally filtered to one symbol.
// Zero-size rows the exchange lists informationally are dropped: only
// size > 0 counts as an open position.
func (s *MarketService) Positions(ctx context.Context, symbol string) ([]domain.Position, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.positions")
	defer span.End()

	filter := ""
	if strings.TrimSpace(symbol) != "" {
		normalized, err := normalizeSymbol(symbol)
		if err != nil {
			return nil, err
		}
		filter = normalized
	}

	all, err := s.exchange.Positions(ctx)
	if err != nil {
		return nil, err
	}
	positions := make([]domain.Position, 0, len(all))
	for _, p := range all {
		if p.Size <= 0 {
			continue
		}
		if filter != "" && p.Symbol != filter {
			continue
		}
		positions = append(positions, p)
	}
	return positions, nil
}

func (s *MarketService) Price(ctx context.Context, symbol string) (domain.PriceSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.price")
	defer span.End()

	normalized, err := normalizeSymbol(symbol)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}
	if snap, ok := s.cache.GetPrice(ctx, normalized); ok {
		return snap, nil
	}
	snap, err := s.exchange.SymbolPrice(ctx, normalized)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}
	s.cache.SetPrice(ctx, snap)
	return snap, nil
}

func (s *MarketService) Candles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.candles")
	defer span.End()

	normalized, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if !domain.IsSupportedInterval(interval) {
		return nil, &bitget.ValidationError{Field: "interval", Reason: "unsupported interval " + interval}
	}
	if limit <= 0 {
		limit = defaultCandleLimit
	}
	if limit > maxCandleLimit {
		return nil, &bitget.ValidationError{Field: "limit", Reason: "limit exceeds maximum"}
	}

	if candles, ok := s.cache.GetCandles(ctx, normalized, interval, limit); ok {
		return candles, nil
	}
	candles, err := s.exchange.Candles(ctx, normalized, interval, limit)
	if err != nil {
		return nil, err
	}
	s.cache.SetCandles(ctx, normalized, interval, limit, candles)
	return candles, nil
}

func (s *MarketService) OpenOrders(ctx context.Context, symbol string) ([]domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.open-orders")
	defer span.End()

	filter := ""
	if strings.TrimSpace(symbol) != "" {
		normalized, err := normalizeSymbol(symbol)
		if err != nil {
			return nil, err
		}
		filter = normalized
	}
	return s.exchange.OpenOrders(ctx, filter)
}

func (s *MarketService) OrderHistory(ctx context.Context, symbol string, limit int) ([]domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.order-history")
	defer span.End()

	normalized, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.exchange.OrderHistory(ctx, normalized, limit)
}

func (s *MarketService) ServerTime(ctx context.Context) (time.Time, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.server-time")
	defer span.End()

	return s.exchange.ServerTime(ctx)
}
