// Package bitget implements a signed REST client for the Bitget V2
// USDT-margined futures API. All responses are normalized into domain
// entities at this boundary; raw exchange payloads never leak upward.
package bitget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"tradegate/internal/domain"
)

const (
	defaultBaseURL = "https://api.bitget.com"
	productType    = "USDT-FUTURES"
	marginCoin     = "USDT"
	localeHeader   = "en-US"
)

// Credentials hold the API key triple. They are only ever written into
// request headers, never logged and never echoed back in errors.
type Credentials struct {
	APIKey     string
	Secret     string
	Passphrase string
}

// Client is a thin signed transport over the exchange REST API.
// Read requests are retried on throttling and server errors; mutating
// requests are submitted exactly once, and a timeout on a mutation is
// surfaced as an ambiguous transport failure.
type Client struct {
	http       *resty.Client
	creds      Credentials
	tracer     trace.Tracer
	maxRetries int
	nowMillis  func() int64
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the exchange endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.http.SetBaseURL(u) }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithTracer attaches a tracer for per-request spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithRetries sets the retry budget for read requests.
func WithRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// NewClient builds a Client with production defaults.
func NewClient(creds Credentials, opts ...Option) *Client {
	c := &Client{
		http:       resty.New().SetBaseURL(defaultBaseURL).SetTimeout(10 * time.Second),
		creds:      creds,
		tracer:     trace.NewNoopTracerProvider().Tracer("bitget"),
		maxRetries: 3,
		nowMillis:  func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do executes one signed request. GET requests may be retried; any other
// method is sent at most once, except for timestamp-drift rejections,
// which the exchange raises before the request executes.
func (c *Client) do(ctx context.Context, method, path string, params map[string]string, body any) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "bitget."+method+" "+path)
	defer span.End()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
	}

	isRead := method == http.MethodGet
	attempts := 1
	if isRead {
		attempts = c.maxRetries + 1
	}

	var lastErr error
	driftRetried := false
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &TransportError{Op: path, Err: ctx.Err()}
			case <-time.After(backoff(attempt)):
			}
		}

		raw, code, retriable, err := c.attempt(ctx, method, path, params, payload)
		if err == nil {
			return raw, nil
		}
		if _, drift := timestampDriftCodes[code]; drift && !driftRetried {
			driftRetried = true
			attempt--
			continue
		}
		if !isRead || !retriable {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// attempt performs a single signed round trip. The returned bool reports
// whether the failure is worth retrying for a read request.
func (c *Client) attempt(ctx context.Context, method, path string, params map[string]string, payload []byte) (json.RawMessage, string, bool, error) {
	timestamp := strconv.FormatInt(c.nowMillis(), 10)
	signature := sign(c.creds.Secret, timestamp, method, path, canonicalQuery(params), string(payload))

	req := c.http.R().SetContext(ctx).
		SetHeader("ACCESS-KEY", c.creds.APIKey).
		SetHeader("ACCESS-SIGN", signature).
		SetHeader("ACCESS-PASSPHRASE", c.creds.Passphrase).
		SetHeader("ACCESS-TIMESTAMP", timestamp).
		SetHeader("Content-Type", "application/json").
		SetHeader("locale", localeHeader)
	if len(params) > 0 {
		req.SetQueryParams(params)
	}
	if payload != nil {
		req.SetBody(payload)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		ambiguous := method != http.MethodGet && isTimeout(err)
		return nil, "", true, &TransportError{Op: path, Ambiguous: ambiguous, Err: err}
	}

	if resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500 {
		return nil, "", true, &TransportError{
			Op:  path,
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode()),
		}
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, "", false, &DataFormatError{Field: "response", Value: truncate(string(resp.Body()), 120)}
	}
	if env.Code != codeOK {
		return nil, env.Code, false, &ExchangeError{Code: env.Code, Message: env.Msg}
	}
	return env.Data, "", false, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

func backoff(attempt int) time.Duration {
	d := 200 * time.Millisecond << uint(attempt-1)
	if d > 2*time.Second {
		d = 2 * time.Second
	}
	return d
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// ServerTime returns the exchange clock.
func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/v2/public/time", nil, nil)
	if err != nil {
		return time.Time{}, err
	}
	var st rawServerTime
	if err := json.Unmarshal(raw, &st); err != nil {
		return time.Time{}, &DataFormatError{Field: "serverTime", Value: string(raw)}
	}
	return parseMillis("serverTime", st.ServerTime)
}

// AccountInfo returns the USDT futures account balance snapshot.
func (c *Client) AccountInfo(ctx context.Context) (domain.AccountInfo, error) {
	params := map[string]string{"productType": productType}
	raw, err := c.do(ctx, http.MethodGet, "/api/v2/mix/account/accounts", params, nil)
	if err != nil {
		return domain.AccountInfo{}, err
	}
	var accounts []rawAccount
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return domain.AccountInfo{}, &DataFormatError{Field: "accounts", Value: truncate(string(raw), 120)}
	}
	for _, a := range accounts {
		if a.MarginCoin != marginCoin {
			continue
		}
		return normalizeAccount(a)
	}
	return domain.AccountInfo{}, &DataFormatError{Field: "accounts", Value: "no " + marginCoin + " account in response"}
}

func normalizeAccount(a rawAccount) (domain.AccountInfo, error) {
	available, err := parseFloat("available", a.Available)
	if err != nil {
		return domain.AccountInfo{}, err
	}
	equity, err := parseFloat("accountEquity", a.Equity)
	if err != nil {
		return domain.AccountInfo{}, err
	}
	upl, err := parseOptFloat("unrealizedPL", a.UnrealizedPL)
	if err != nil {
		return domain.AccountInfo{}, err
	}
	locked, err := parseOptFloat("locked", a.Locked)
	if err != nil {
		return domain.AccountInfo{}, err
	}
	return domain.AccountInfo{
		MarginCoin:    a.MarginCoin,
		Available:     available,
		Equity:        equity,
		UnrealizedPnL: upl,
		Locked:        locked,
	}, nil
}

// Positions returns every position the exchange reports, including
// zero-size stubs; filtering is the caller's concern.
func (c *Client) Positions(ctx context.Context) ([]domain.Position, error) {
	params := map[string]string{"productType": productType, "marginCoin": marginCoin}
	raw, err := c.do(ctx, http.MethodGet, "/api/v2/mix/position/all-position", params, nil)
	if err != nil {
		return nil, err
	}
	var rows []rawPosition
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &DataFormatError{Field: "positions", Value: truncate(string(raw), 120)}
	}
	positions := make([]domain.Position, 0, len(rows))
	for _, r := range rows {
		p, err := normalizePosition(r)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, nil
}

func normalizePosition(r rawPosition) (domain.Position, error) {
	side, err := parseHoldSide("holdSide", r.HoldSide)
	if err != nil {
		return domain.Position{}, err
	}
	size, err := parseFloat("total", r.Total)
	if err != nil {
		return domain.Position{}, err
	}
	entry, err := parseOptFloat("openPriceAvg", r.OpenPriceAvg)
	if err != nil {
		return domain.Position{}, err
	}
	mark, err := parseOptFloat("markPrice", r.MarkPrice)
	if err != nil {
		return domain.Position{}, err
	}
	upl, err := parseOptFloat("unrealizedPL", r.UnrealizedPL)
	if err != nil {
		return domain.Position{}, err
	}
	leverage := 0
	if r.Leverage != "" {
		leverage, err = parseInt("leverage", r.Leverage)
		if err != nil {
			return domain.Position{}, err
		}
	}
	return domain.Position{
		Symbol:        r.Symbol,
		Side:          side,
		Size:          size,
		EntryPrice:    entry,
		MarkPrice:     mark,
		UnrealizedPnL: upl,
		Leverage:      leverage,
		MarginMode:    parseMarginMode(r.MarginMode),
	}, nil
}

// SymbolPrice returns the latest price snapshot for one contract.
func (c *Client) SymbolPrice(ctx context.Context, symbol string) (domain.PriceSnapshot, error) {
	params := map[string]string{"symbol": symbol, "productType": productType}
	raw, err := c.do(ctx, http.MethodGet, "/api/v2/mix/market/symbol-price", params, nil)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}
	var rows []rawTicker
	if err := json.Unmarshal(raw, &rows); err != nil {
		return domain.PriceSnapshot{}, &DataFormatError{Field: "symbol-price", Value: truncate(string(raw), 120)}
	}
	if len(rows) == 0 {
		return domain.PriceSnapshot{}, &DataFormatError{Field: "symbol-price", Value: "empty response"}
	}
	r := rows[0]
	price, err := parseFloat("price", r.Price)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}
	index, err := parseOptFloat("indexPrice", r.IndexPrice)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}
	mark, err := parseOptFloat("markPrice", r.MarkPrice)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}
	ts, err := parseMillis("ts", r.Timestamp)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}
	return domain.PriceSnapshot{
		Symbol:     r.Symbol,
		Price:      price,
		IndexPrice: index,
		MarkPrice:  mark,
		Timestamp:  ts,
	}, nil
}

// Candles returns up to limit OHLCV rows for the symbol at the given
// interval, in the order the exchange delivers them.
func (c *Client) Candles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	params := map[string]string{
		"symbol":      symbol,
		"productType": productType,
		"granularity": intervalGranularity(interval),
		"limit":       strconv.Itoa(limit),
	}
	raw, err := c.do(ctx, http.MethodGet, "/api/v2/mix/market/candles", params, nil)
	if err != nil {
		return nil, err
	}
	var rows [][]string
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &DataFormatError{Field: "candles", Value: truncate(string(raw), 120)}
	}
	candles := make([]domain.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			return nil, &DataFormatError{Field: "candle", Value: fmt.Sprintf("expected 6 columns, got %d", len(row))}
		}
		ts, err := parseMillis("candle.ts", row[0])
		if err != nil {
			return nil, err
		}
		open, err := parseFloat("candle.open", row[1])
		if err != nil {
			return nil, err
		}
		high, err := parseFloat("candle.high", row[2])
		if err != nil {
			return nil, err
		}
		low, err := parseFloat("candle.low", row[3])
		if err != nil {
			return nil, err
		}
		closePx, err := parseFloat("candle.close", row[4])
		if err != nil {
			return nil, err
		}
		volume, err := parseFloat("candle.volume", row[5])
		if err != nil {
			return nil, err
		}
		candles = append(candles, domain.Candle{
			Symbol:   symbol,
			Interval: interval,
			OpenTime: ts,
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePx,
			Volume:   volume,
		})
	}
	return candles, nil
}

// OpenOrders lists pending orders, optionally scoped to one symbol.
func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]domain.Order, error) {
	params := map[string]string{"productType": productType}
	if symbol != "" {
		params["symbol"] = symbol
	}
	raw, err := c.do(ctx, http.MethodGet, "/api/v2/mix/order/orders-pending", params, nil)
	if err != nil {
		return nil, err
	}
	return decodeOrderList(raw)
}

// OrderHistory lists recent finalized orders, newest first, optionally
// scoped to one symbol.
func (c *Client) OrderHistory(ctx context.Context, symbol string, limit int) ([]domain.Order, error) {
	params := map[string]string{"productType": productType, "limit": strconv.Itoa(limit)}
	if symbol != "" {
		params["symbol"] = symbol
	}
	raw, err := c.do(ctx, http.MethodGet, "/api/v2/mix/order/orders-history", params, nil)
	if err != nil {
		return nil, err
	}
	return decodeOrderList(raw)
}

func decodeOrderList(raw json.RawMessage) ([]domain.Order, error) {
	var list rawOrderList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, &DataFormatError{Field: "orders", Value: truncate(string(raw), 120)}
	}
	orders := make([]domain.Order, 0, len(list.EntrustedList))
	for _, r := range list.EntrustedList {
		o, err := normalizeOrder(r)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func normalizeOrder(r rawOrder) (domain.Order, error) {
	side, err := parseSide("side", r.Side)
	if err != nil {
		return domain.Order{}, err
	}
	qty, err := parseFloat("size", r.Size)
	if err != nil {
		return domain.Order{}, err
	}
	price, err := parseOptFloat("price", r.Price)
	if err != nil {
		return domain.Order{}, err
	}
	filled, err := parseOptFloat("baseVolume", r.BaseVolume)
	if err != nil {
		return domain.Order{}, err
	}
	avg, err := parseOptFloat("priceAvg", r.PriceAvg)
	if err != nil {
		return domain.Order{}, err
	}
	created, err := parseMillis("cTime", r.CTime)
	if err != nil {
		return domain.Order{}, err
	}
	return domain.Order{
		Symbol:     r.Symbol,
		Side:       side,
		Type:       domain.OrderType(r.OrderType),
		Quantity:   qty,
		Price:      price,
		FilledQty:  filled,
		AvgPrice:   avg,
		OrderID:    r.OrderID,
		ClientOID:  r.ClientOID,
		Status:     r.Status,
		ReduceOnly: r.ReduceOnly == "YES",
		CreatedAt:  created,
	}, nil
}

// PlaceOrderRequest carries the already-validated parameters for a new
// order. Price is ignored for market orders.
type PlaceOrderRequest struct {
	Symbol     string
	Side       domain.Side
	Type       domain.OrderType
	Quantity   float64
	Price      float64
	ReduceOnly bool
	MarginMode domain.MarginMode
	ClientOID  string
}

// PlaceOrder submits one order. The request is sent exactly once; a
// timeout here comes back as an ambiguous TransportError and the caller
// must reconcile via order history before assuming failure.
func (c *Client) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (domain.Order, error) {
	clientOID := req.ClientOID
	if clientOID == "" {
		clientOID = uuid.NewString()
	}
	mode := req.MarginMode
	if mode == "" {
		mode = domain.MarginModeCrossed
	}
	body := map[string]string{
		"symbol":      req.Symbol,
		"productType": productType,
		"marginCoin":  marginCoin,
		"marginMode":  string(mode),
		"side":        string(req.Side),
		"orderType":   string(req.Type),
		"size":        formatQuantity(req.Quantity),
		"clientOid":   clientOID,
	}
	if req.Type == domain.OrderTypeLimit {
		body["price"] = formatPrice(req.Price)
		body["force"] = "gtc"
	}
	if req.ReduceOnly {
		body["reduceOnly"] = "YES"
	}
	raw, err := c.do(ctx, http.MethodPost, "/api/v2/mix/order/place-order", nil, body)
	if err != nil {
		return domain.Order{}, err
	}
	var ack rawOrderAck
	if err := json.Unmarshal(raw, &ack); err != nil {
		return domain.Order{}, &DataFormatError{Field: "place-order", Value: truncate(string(raw), 120)}
	}
	return domain.Order{
		Symbol:     req.Symbol,
		Side:       req.Side,
		Type:       req.Type,
		Quantity:   req.Quantity,
		Price:      req.Price,
		OrderID:    ack.OrderID,
		ClientOID:  ack.ClientOID,
		Status:     "live",
		ReduceOnly: req.ReduceOnly,
		CreatedAt:  time.UnixMilli(c.nowMillis()).UTC(),
	}, nil
}

// CancelOrder cancels one pending order by exchange order id. When the
// order already reached a terminal state the rejection is surfaced as an
// AlreadyFinalOrderError so callers can treat it as a distinct outcome.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	body := map[string]string{
		"symbol":      symbol,
		"productType": productType,
		"orderId":     orderID,
	}
	_, err := c.do(ctx, http.MethodPost, "/api/v2/mix/order/cancel-order", nil, body)
	var exErr *ExchangeError
	if errors.As(err, &exErr) && IsOrderFinalCode(exErr.Code) {
		return &AlreadyFinalOrderError{OrderID: orderID, Code: exErr.Code, Message: exErr.Message}
	}
	return err
}

// Contract returns the trading rules for one symbol.
func (c *Client) Contract(ctx context.Context, symbol string) (domain.ContractSpec, error) {
	params := map[string]string{"productType": productType, "symbol": symbol}
	raw, err := c.do(ctx, http.MethodGet, "/api/v2/mix/market/contracts", params, nil)
	if err != nil {
		return domain.ContractSpec{}, err
	}
	var rows []rawContract
	if err := json.Unmarshal(raw, &rows); err != nil {
		return domain.ContractSpec{}, &DataFormatError{Field: "contracts", Value: truncate(string(raw), 120)}
	}
	if len(rows) == 0 {
		return domain.ContractSpec{}, &DataFormatError{Field: "contracts", Value: "empty response"}
	}
	r := rows[0]
	maxLever, err := parseInt("maxLever", r.MaxLever)
	if err != nil {
		return domain.ContractSpec{}, err
	}
	minTrade, err := parseOptFloat("minTradeNum", r.MinTradeNum)
	if err != nil {
		return domain.ContractSpec{}, err
	}
	pricePlace, err := parseInt("pricePlace", r.PricePlace)
	if err != nil {
		return domain.ContractSpec{}, err
	}
	volumePlace, err := parseInt("volumePlace", r.VolumePlace)
	if err != nil {
		return domain.ContractSpec{}, err
	}
	return domain.ContractSpec{
		Symbol:      r.Symbol,
		MaxLeverage: maxLever,
		MinTradeNum: minTrade,
		PricePlace:  pricePlace,
		VolumePlace: volumePlace,
	}, nil
}

// LeverageInfo reports the currently configured leverage and margin mode
// for one symbol alongside the contract's maximum. The maximum comes from
// the contract spec on every call; it is never assumed.
func (c *Client) LeverageInfo(ctx context.Context, symbol string) (domain.LeverageInfo, error) {
	spec, err := c.Contract(ctx, symbol)
	if err != nil {
		return domain.LeverageInfo{}, err
	}
	params := map[string]string{
		"symbol":      symbol,
		"productType": productType,
		"marginCoin":  marginCoin,
	}
	raw, err := c.do(ctx, http.MethodGet, "/api/v2/mix/account/account", params, nil)
	if err != nil {
		return domain.LeverageInfo{}, err
	}
	var acct rawSingleAccount
	if err := json.Unmarshal(raw, &acct); err != nil {
		return domain.LeverageInfo{}, &DataFormatError{Field: "account", Value: truncate(string(raw), 120)}
	}
	mode := parseMarginMode(acct.MarginMode)
	leverSource := acct.CrossedMarginLeverage
	if mode == domain.MarginModeIsolated {
		leverSource = acct.IsolatedLongLever
	}
	leverage := 0
	if leverSource != "" {
		leverage, err = parseInt("leverage", leverSource)
		if err != nil {
			return domain.LeverageInfo{}, err
		}
	}
	return domain.LeverageInfo{
		Symbol:      symbol,
		Leverage:    leverage,
		MarginMode:  mode,
		MaxLeverage: spec.MaxLeverage,
	}, nil
}

// SetLeverage applies a new leverage value for the symbol.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	body := map[string]string{
		"symbol":      symbol,
		"productType": productType,
		"marginCoin":  marginCoin,
		"leverage":    strconv.Itoa(leverage),
	}
	_, err := c.do(ctx, http.MethodPost, "/api/v2/mix/account/set-leverage", nil, body)
	return err
}

// SetMarginMode switches the symbol between crossed and isolated margin.
func (c *Client) SetMarginMode(ctx context.Context, symbol string, mode domain.MarginMode) error {
	body := map[string]string{
		"symbol":      symbol,
		"productType": productType,
		"marginCoin":  marginCoin,
		"marginMode":  string(mode),
	}
	_, err := c.do(ctx, http.MethodPost, "/api/v2/mix/account/set-margin-mode", nil, body)
	return err
}
