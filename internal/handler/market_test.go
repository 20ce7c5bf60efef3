package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tradegate/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var errFetch = errors.New("exchange unreachable")

type stubMarket struct {
	account   domain.AccountInfo
	positions []domain.Position
	prices    map[string]domain.PriceSnapshot
	candles   []domain.Candle
	orders    []domain.Order
	err       error

	lastCandleSymbol   string
	lastCandleInterval string
	lastCandleLimit    int
	lastPositionSymbol string
}

func (s *stubMarket) AccountInfo(context.Context) (domain.AccountInfo, error) {
	return s.account, s.err
}

func (s *stubMarket) Positions(_ context.Context, symbol string) ([]domain.Position, error) {
	s.lastPositionSymbol = symbol
	return s.positions, s.err
}

func (s *stubMarket) Price(_ context.Context, symbol string) (domain.PriceSnapshot, error) {
	if s.err != nil {
		return domain.PriceSnapshot{}, s.err
	}
	return s.prices[symbol], nil
}

func (s *stubMarket) Candles(_ context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	s.lastCandleSymbol = symbol
	s.lastCandleInterval = interval
	s.lastCandleLimit = limit
	return s.candles, s.err
}

func (s *stubMarket) OpenOrders(context.Context, string) ([]domain.Order, error) {
	return s.orders, s.err
}

func (s *stubMarket) ServerTime(context.Context) (time.Time, error) {
	if s.err != nil {
		return time.Time{}, s.err
	}
	return time.Now().UTC(), nil
}

func newTestRouter(market *stubMarket) *gin.Engine {
	h := New(trace.NewNoopTracerProvider().Tracer("test"), market)
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func TestGetPriceSuccess(t *testing.T) {
	router := newTestRouter(&stubMarket{
		prices: map[string]domain.PriceSnapshot{
			"BTCUSDT": {Symbol: "BTCUSDT", Price: 51000},
		},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/prices/btcusdt", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var snapshot domain.PriceSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if snapshot.Symbol != "BTCUSDT" || snapshot.Price != 51000 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestGetPriceUnsupportedSymbol(t *testing.T) {
	router := newTestRouter(&stubMarket{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/prices/FAKEUSDT", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetPriceProviderError(t *testing.T) {
	router := newTestRouter(&stubMarket{err: errFetch})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/prices/BTCUSDT", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestGetAccount(t *testing.T) {
	router := newTestRouter(&stubMarket{
		account: domain.AccountInfo{MarginCoin: "USDT", Available: 1234.5, Equity: 1500},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/account", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Account domain.AccountInfo `json:"account"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if resp.Account.Available != 1234.5 {
		t.Fatalf("unexpected account: %+v", resp.Account)
	}
}

func TestGetPositionsSymbolFilter(t *testing.T) {
	market := &stubMarket{
		positions: []domain.Position{{Symbol: "ETHUSDT", Side: domain.PositionShort, Size: 0.5}},
	}
	router := newTestRouter(market)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/positions?symbol=ethusdt", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if market.lastPositionSymbol != "ETHUSDT" {
		t.Fatalf("expected symbol normalized to ETHUSDT, got %q", market.lastPositionSymbol)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/positions?symbol=NOPE", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported symbol, got %d", w.Code)
	}
}

func TestGetCandlesValidation(t *testing.T) {
	market := &stubMarket{
		candles: []domain.Candle{{Symbol: "BTCUSDT", Interval: "4h", Close: 50000}},
	}
	router := newTestRouter(market)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/candles/BTCUSDT?interval=7m", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad interval, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/candles/BTCUSDT?interval=4h&limit=5000", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized limit, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/candles/BTCUSDT?interval=4h&limit=50", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if market.lastCandleInterval != "4h" || market.lastCandleLimit != 50 {
		t.Fatalf("unexpected candle query: %s %d", market.lastCandleInterval, market.lastCandleLimit)
	}
}

func TestHealthDegradedWhenExchangeUnreachable(t *testing.T) {
	router := newTestRouter(&stubMarket{err: errFetch})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if resp["status"] != "degraded" {
		t.Fatalf("expected degraded status, got %v", resp["status"])
	}
}
