package mcp

import (
	"errors"
	"fmt"
	"strings"

	"tradegate/internal/analysis"
	"tradegate/internal/bitget"
	"tradegate/internal/domain"
	"tradegate/internal/news"
	"tradegate/internal/service"
)

const (
	defaultCandleLimit  = 100
	maxCandleLimit      = 1000
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100

	// Candle window fetched for indicator tools. Wide enough for the
	// longest default lookback (50-period MA plus warmup).
	analysisCandleLimit = 200

	defaultAnalysisInterval = "1h"
)

// ToolError is the uniform error detail carried by failed tool results.
// For exchange rejections Code and Message are the exchange's own, verbatim.
type ToolError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Ambiguous bool   `json:"ambiguous,omitempty"`
}

// toolResult is the envelope every tool returns: a success flag, a short
// human-readable summary, the typed payload, and error detail when failed.
type toolResult[T any] struct {
	Success bool       `json:"success"`
	Summary string     `json:"summary"`
	Data    *T         `json:"data,omitempty"`
	Error   *ToolError `json:"error,omitempty"`
}

func okResult[T any](summary string, data T) toolResult[T] {
	return toolResult[T]{Success: true, Summary: summary, Data: &data}
}

func failResult[T any](err error) toolResult[T] {
	detail := translateError(err)
	return toolResult[T]{Success: false, Summary: detail.Message, Error: detail}
}

// translateError maps the service-layer error taxonomy onto the uniform
// ToolError shape. Exchange codes pass through unchanged; everything local
// gets a stable machine-readable code.
func translateError(err error) *ToolError {
	var validation *bitget.ValidationError
	if errors.As(err, &validation) {
		return &ToolError{Code: "validation", Message: validation.Error()}
	}
	var format *bitget.DataFormatError
	if errors.As(err, &format) {
		return &ToolError{Code: "data_format", Message: format.Error()}
	}
	var final *bitget.AlreadyFinalOrderError
	if errors.As(err, &final) {
		return &ToolError{Code: "order_already_final", Message: final.Error()}
	}
	var leverage *bitget.InvalidLeverageError
	if errors.As(err, &leverage) {
		return &ToolError{Code: "invalid_leverage", Message: leverage.Error()}
	}
	var incomplete *service.CloseIncompleteError
	if errors.As(err, &incomplete) {
		return &ToolError{Code: "close_incomplete", Message: incomplete.Error()}
	}
	var exchange *bitget.ExchangeError
	if errors.As(err, &exchange) {
		return &ToolError{Code: exchange.Code, Message: exchange.Message}
	}
	var transport *bitget.TransportError
	if errors.As(err, &transport) {
		code := "transport"
		if transport.Ambiguous {
			code = "transport_ambiguous"
		}
		return &ToolError{Code: code, Message: transport.Error(), Ambiguous: transport.Ambiguous}
	}
	var short *analysis.ErrNotEnoughCandles
	if errors.As(err, &short) {
		return &ToolError{Code: "not_enough_data", Message: short.Error()}
	}
	return &ToolError{Code: "internal", Message: err.Error()}
}

type emptyInput struct{}

type accountInfoData struct {
	Account domain.AccountInfo `json:"account"`
}

type positionsInput struct {
	Symbol string `json:"symbol,omitempty" jsonschema:"optional contract symbol (e.g. BTCUSDT); empty returns all open positions"`
}

type positionsData struct {
	Positions []domain.Position `json:"positions"`
}

type priceInput struct {
	Symbol string `json:"symbol" jsonschema:"contract symbol (e.g. BTCUSDT)"`
}

type priceData struct {
	Price domain.PriceSnapshot `json:"price"`
}

type candlesInput struct {
	Symbol   string `json:"symbol" jsonschema:"contract symbol (e.g. BTCUSDT)"`
	Interval string `json:"interval" jsonschema:"candle interval: 1m, 3m, 5m, 15m, 30m, 1h, 2h, 4h, 6h, 12h, 1d"`
	Limit    int    `json:"limit,omitempty" jsonschema:"number of candles to return, max 1000"`
}

type candlesData struct {
	Symbol   string          `json:"symbol"`
	Interval string          `json:"interval"`
	Candles  []domain.Candle `json:"candles"`
}

type openOrdersInput struct {
	Symbol string `json:"symbol,omitempty" jsonschema:"optional contract symbol; empty returns open orders for all symbols"`
}

type ordersData struct {
	Orders []domain.Order `json:"orders"`
}

type orderHistoryInput struct {
	Symbol string `json:"symbol" jsonschema:"contract symbol (e.g. BTCUSDT)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"number of orders to return, max 100"`
}

type placeOrderInput struct {
	Symbol   string  `json:"symbol" jsonschema:"contract symbol (e.g. BTCUSDT)"`
	Side     string  `json:"side" jsonschema:"order side: buy or sell"`
	Type     string  `json:"type" jsonschema:"order type: market or limit"`
	Quantity float64 `json:"quantity" jsonschema:"order quantity in base coin, must be positive"`
	Price    float64 `json:"price,omitempty" jsonschema:"limit price; required for limit orders, ignored for market orders"`
}

type orderData struct {
	Order domain.Order `json:"order"`
}

type cancelOrderInput struct {
	Symbol  string `json:"symbol" jsonschema:"contract symbol (e.g. BTCUSDT)"`
	OrderID string `json:"order_id" jsonschema:"exchange order id to cancel"`
}

type cancelOrderData struct {
	Symbol  string `json:"symbol"`
	OrderID string `json:"order_id"`
}

type closePositionInput struct {
	Symbol string `json:"symbol" jsonschema:"contract symbol whose position should be flattened"`
}

type closePositionData struct {
	Report domain.CloseReport `json:"report"`
}

type closeAllData struct {
	Results   map[string]domain.CloseOutcome `json:"results"`
	AllClosed bool                           `json:"all_closed"`
}

type setLeverageInput struct {
	Symbol     string `json:"symbol" jsonschema:"contract symbol (e.g. BTCUSDT)"`
	Leverage   int    `json:"leverage" jsonschema:"target leverage, positive integer within the contract maximum"`
	MarginMode string `json:"margin_mode,omitempty" jsonschema:"optional margin mode to set first: isolated or crossed"`
}

type leverageData struct {
	Leverage domain.LeverageInfo `json:"leverage"`
}

type leverageInfoInput struct {
	Symbol string `json:"symbol" jsonschema:"contract symbol (e.g. BTCUSDT)"`
}

type setMarginModeInput struct {
	Symbol     string `json:"symbol" jsonschema:"contract symbol (e.g. BTCUSDT)"`
	MarginMode string `json:"margin_mode" jsonschema:"margin mode: isolated or crossed"`
}

type marginModeData struct {
	Symbol     string `json:"symbol"`
	MarginMode string `json:"margin_mode"`
}

type analysisInput struct {
	Symbol   string `json:"symbol" jsonschema:"contract symbol (e.g. BTCUSDT)"`
	Interval string `json:"interval,omitempty" jsonschema:"candle interval, default 1h"`
}

type rsiInput struct {
	Symbol   string `json:"symbol" jsonschema:"contract symbol (e.g. BTCUSDT)"`
	Interval string `json:"interval,omitempty" jsonschema:"candle interval, default 1h"`
	Period   int    `json:"period,omitempty" jsonschema:"RSI lookback period, default 14"`
}

type rsiData struct {
	Report analysis.RSIReport `json:"report"`
}

type movingAveragesInput struct {
	Symbol      string `json:"symbol" jsonschema:"contract symbol (e.g. BTCUSDT)"`
	Interval    string `json:"interval,omitempty" jsonschema:"candle interval, default 1h"`
	ShortPeriod int    `json:"short_period,omitempty" jsonschema:"short MA period, default 20"`
	LongPeriod  int    `json:"long_period,omitempty" jsonschema:"long MA period, default 50"`
}

type movingAveragesData struct {
	Report analysis.MAReport `json:"report"`
}

type bollingerInput struct {
	Symbol   string  `json:"symbol" jsonschema:"contract symbol (e.g. BTCUSDT)"`
	Interval string  `json:"interval,omitempty" jsonschema:"candle interval, default 1h"`
	Period   int     `json:"period,omitempty" jsonschema:"band period, default 20"`
	StdDev   float64 `json:"std_dev,omitempty" jsonschema:"band width in standard deviations, default 2"`
}

type bollingerData struct {
	Report analysis.BollingerReport `json:"report"`
}

type comprehensiveData struct {
	Report analysis.ComprehensiveReport `json:"report"`
}

type volumeAnomalyData struct {
	Report analysis.VolumeAnomalyReport `json:"report"`
}

type newsInput struct {
	Sources []string `json:"sources,omitempty" jsonschema:"optional source list: cryptocompare, coindesk, bitcoinist, decrypt, cryptoslate, cryptopotato, cryptonews, newsbtc"`
	Limit   int      `json:"limit,omitempty" jsonschema:"articles per source, default 5, max 10"`
}

type newsData struct {
	Report news.Report `json:"report"`
}

type trendingData struct {
	Report news.TrendingReport `json:"report"`
}

func normalizeSymbol(symbol string) (string, error) {
	if strings.TrimSpace(symbol) == "" {
		return "", &bitget.ValidationError{Field: "symbol", Reason: "is required"}
	}
	normalized, ok := domain.NormalizeSymbol(symbol)
	if !ok {
		return "", &bitget.ValidationError{Field: "symbol", Reason: fmt.Sprintf("unsupported contract %q", symbol)}
	}
	return normalized, nil
}

func normalizeInterval(interval string) (string, error) {
	interval = strings.TrimSpace(interval)
	if interval == "" {
		return defaultAnalysisInterval, nil
	}
	if !domain.IsSupportedInterval(interval) {
		return "", &bitget.ValidationError{Field: "interval", Reason: fmt.Sprintf("unsupported interval %q", interval)}
	}
	return interval, nil
}

func normalizeCandleLimit(limit int) int {
	if limit <= 0 {
		return defaultCandleLimit
	}
	if limit > maxCandleLimit {
		return maxCandleLimit
	}
	return limit
}

func normalizeHistoryLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}
