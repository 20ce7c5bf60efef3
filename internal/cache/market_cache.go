package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tradegate/internal/domain"
)

// Market data is the only thing that ever goes through Redis. Account
// state, positions, orders and leverage settings are always fetched fresh
// because other actors mutate them between calls.
const (
	candleTTL = 30 * time.Second
	priceTTL  = 3 * time.Second
)

// MarketCache is a short-TTL read-through cache for candles and price
// snapshots. A nil MarketCache (or one built over a nil client) is valid
// and always misses.
type MarketCache struct {
	rdb *redis.Client
}

func NewMarketCache(rdb *redis.Client) *MarketCache {
	if rdb == nil {
		return nil
	}
	return &MarketCache{rdb: rdb}
}

func candleKey(symbol, interval string, limit int) string {
	return fmt.Sprintf("candles:%s:%s:%d", symbol, interval, limit)
}

func priceKey(symbol string) string {
	return "price:" + symbol
}

// GetCandles returns a cached candle window, or ok=false on any miss or
// cache error. Cache failures never surface to callers.
func (c *MarketCache) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, candleKey(symbol, interval, limit)).Bytes()
	if err != nil {
		return nil, false
	}
	var candles []domain.Candle
	if err := json.Unmarshal(raw, &candles); err != nil {
		return nil, false
	}
	return candles, true
}

func (c *MarketCache) SetCandles(ctx context.Context, symbol, interval string, limit int, candles []domain.Candle) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(candles)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, candleKey(symbol, interval, limit), raw, candleTTL)
}

func (c *MarketCache) GetPrice(ctx context.Context, symbol string) (domain.PriceSnapshot, bool) {
	if c == nil {
		return domain.PriceSnapshot{}, false
	}
	raw, err := c.rdb.Get(ctx, priceKey(symbol)).Bytes()
	if err != nil {
		return domain.PriceSnapshot{}, false
	}
	var snap domain.PriceSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.PriceSnapshot{}, false
	}
	return snap, true
}

func (c *MarketCache) SetPrice(ctx context.Context, snap domain.PriceSnapshot) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, priceKey(snap.Symbol), raw, priceTTL)
}
