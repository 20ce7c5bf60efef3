package domain

import (
	"strings"
	"time"
)

// SupportedSymbols is the set of USDT-margined perpetual contracts the
// gateway will sign requests for. Anything else is rejected before a
// request is built.
var SupportedSymbols = []string{
	"BTCUSDT", "ETHUSDT", "XRPUSDT", "SOLUSDT", "ADAUSDT", "ATOMUSDT",
	"AVAXUSDT", "BNBUSDT", "DOGEUSDT", "DOTUSDT", "LINKUSDT", "LTCUSDT",
	"MATICUSDT", "1000SHIBUSDT", "STXUSDT", "TRXUSDT", "UNIUSDT", "TONUSDT",
}

var supportedSymbolSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(SupportedSymbols))
	for _, s := range SupportedSymbols {
		set[s] = struct{}{}
	}
	return set
}()

// NormalizeSymbol upper-cases and trims a symbol and reports whether it is
// a supported contract.
func NormalizeSymbol(symbol string) (string, bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	_, ok := supportedSymbolSet[symbol]
	return symbol, ok
}

// SupportedIntervals are the candle granularities accepted by the reader.
var SupportedIntervals = []string{
	"1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "12h", "1d",
}

func IsSupportedInterval(interval string) bool {
	for _, supported := range SupportedIntervals {
		if interval == supported {
			return true
		}
	}
	return false
}

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

func (t OrderType) IsValid() bool {
	return t == OrderTypeMarket || t == OrderTypeLimit
}

type MarginMode string

const (
	MarginModeIsolated MarginMode = "isolated"
	MarginModeCrossed  MarginMode = "crossed"
)

func (m MarginMode) IsValid() bool {
	return m == MarginModeIsolated || m == MarginModeCrossed
}

type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

// FlattenSide is the order side that reduces this position to zero.
func (p PositionSide) FlattenSide() Side {
	if p == PositionLong {
		return SideSell
	}
	return SideBuy
}

// Order is a snapshot of an exchange order. Once submitted it is only
// mutated by exchange-side state transitions, never locally.
type Order struct {
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Type       OrderType `json:"type"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price,omitempty"`
	FilledQty  float64   `json:"filled_quantity,omitempty"`
	AvgPrice   float64   `json:"avg_price,omitempty"`
	OrderID    string    `json:"order_id"`
	ClientOID  string    `json:"client_oid,omitempty"`
	Status     string    `json:"status,omitempty"`
	ReduceOnly bool      `json:"reduce_only,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// Position is a point-in-time snapshot fetched from the exchange. It is
// never cached across calls: intervening trades by other actors can change
// it at any moment.
type Position struct {
	Symbol        string       `json:"symbol"`
	Side          PositionSide `json:"side"`
	Size          float64      `json:"size"`
	EntryPrice    float64      `json:"entry_price"`
	MarkPrice     float64      `json:"mark_price,omitempty"`
	UnrealizedPnL float64      `json:"unrealized_pnl"`
	Leverage      int          `json:"leverage"`
	MarginMode    MarginMode   `json:"margin_mode"`
}

type AccountInfo struct {
	MarginCoin    string  `json:"margin_coin"`
	Available     float64 `json:"available"`
	Equity        float64 `json:"equity"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	Locked        float64 `json:"locked"`
}

type PriceSnapshot struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	IndexPrice float64   `json:"index_price,omitempty"`
	MarkPrice  float64   `json:"mark_price,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type Candle struct {
	Symbol   string    `json:"symbol"`
	Interval string    `json:"interval"`
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

type LeverageInfo struct {
	Symbol      string     `json:"symbol"`
	Leverage    int        `json:"leverage"`
	MarginMode  MarginMode `json:"margin_mode"`
	MaxLeverage int        `json:"max_leverage"`
}

// ContractSpec carries the exchange-owned limits for a contract. MaxLeverage
// is fetched, never hard-coded.
type ContractSpec struct {
	Symbol      string  `json:"symbol"`
	MaxLeverage int     `json:"max_leverage"`
	MinTradeNum float64 `json:"min_trade_num"`
	PricePlace  int     `json:"price_place"`
	VolumePlace int     `json:"volume_place"`
}

// CloseReport describes the outcome of flattening one symbol. Success is
// defined by AfterSize reaching zero, not by order acceptance alone.
type CloseReport struct {
	Symbol     string  `json:"symbol"`
	BeforeSize float64 `json:"before_size"`
	AfterSize  float64 `json:"after_size"`
	Order      *Order  `json:"order,omitempty"`
}

// CloseOutcome is a per-symbol entry in a close-all result.
type CloseOutcome struct {
	Success bool         `json:"success"`
	Report  *CloseReport `json:"report,omitempty"`
	Error   *CloseError  `json:"error,omitempty"`
}

type CloseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CloseAllReport aggregates independent per-symbol closes. AllClosed is
// true only if every symbol flattened; partial failure is never collapsed.
type CloseAllReport struct {
	Results   map[string]CloseOutcome `json:"results"`
	AllClosed bool                    `json:"all_closed"`
}
