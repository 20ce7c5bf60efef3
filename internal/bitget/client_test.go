package bitget

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tradegate/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(
		Credentials{APIKey: "key", Secret: "secret", Passphrase: "phrase"},
		WithBaseURL(srv.URL),
		WithRetries(2),
		WithTimeout(2*time.Second),
	)
	c.nowMillis = func() int64 { return 1700000000000 }
	return c, srv
}

func writeEnvelope(w http.ResponseWriter, data string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"code":"00000","msg":"success","data":` + data + `}`))
}

func writeError(w http.ResponseWriter, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"code":"` + code + `","msg":"` + msg + `","data":null}`))
}

func TestClientSignedHeaders(t *testing.T) {
	var gotKey, gotSign, gotPhrase, gotTS string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("ACCESS-KEY")
		gotSign = r.Header.Get("ACCESS-SIGN")
		gotPhrase = r.Header.Get("ACCESS-PASSPHRASE")
		gotTS = r.Header.Get("ACCESS-TIMESTAMP")
		writeEnvelope(w, `{"serverTime":"1700000000123"}`)
	}))

	if _, err := c.ServerTime(context.Background()); err != nil {
		t.Fatalf("ServerTime() error = %v", err)
	}
	if gotKey != "key" || gotPhrase != "phrase" {
		t.Errorf("credentials headers = (%q, %q)", gotKey, gotPhrase)
	}
	if gotTS != "1700000000000" {
		t.Errorf("ACCESS-TIMESTAMP = %q", gotTS)
	}
	want := sign("secret", "1700000000000", "GET", "/api/v2/public/time", "", "")
	if gotSign != want {
		t.Errorf("ACCESS-SIGN = %q, want %q", gotSign, want)
	}
}

func TestClientAccountInfo(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, `[
			{"marginCoin":"BTC","available":"0.5","accountEquity":"0.5","unrealizedPL":"0","locked":"0"},
			{"marginCoin":"USDT","available":"1250.75","accountEquity":"1300.25","unrealizedPL":"49.5","locked":"100"}
		]`)
	}))

	info, err := c.AccountInfo(context.Background())
	if err != nil {
		t.Fatalf("AccountInfo() error = %v", err)
	}
	if info.MarginCoin != "USDT" {
		t.Errorf("MarginCoin = %q, want USDT", info.MarginCoin)
	}
	if info.Available != 1250.75 || info.Equity != 1300.25 || info.UnrealizedPnL != 49.5 || info.Locked != 100 {
		t.Errorf("unexpected balances: %+v", info)
	}
}

func TestClientPositions(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, `[
			{"symbol":"BTCUSDT","holdSide":"long","total":"0.5","openPriceAvg":"60000","markPrice":"61000","unrealizedPL":"500","leverage":"10","marginMode":"crossed"},
			{"symbol":"ETHUSDT","holdSide":"short","total":"0","openPriceAvg":"","markPrice":"","unrealizedPL":"","leverage":"","marginMode":"isolated"}
		]`)
	}))

	positions, err := c.Positions(context.Background())
	if err != nil {
		t.Fatalf("Positions() error = %v", err)
	}
	if len(positions) != 2 {
		t.Fatalf("got %d positions, want 2 (zero-size rows are not filtered here)", len(positions))
	}
	p := positions[0]
	if p.Symbol != "BTCUSDT" || p.Side != domain.PositionLong || p.Size != 0.5 {
		t.Errorf("unexpected position: %+v", p)
	}
	if p.EntryPrice != 60000 || p.Leverage != 10 || p.MarginMode != domain.MarginModeCrossed {
		t.Errorf("unexpected position detail: %+v", p)
	}
	if positions[1].Size != 0 || positions[1].Side != domain.PositionShort {
		t.Errorf("unexpected zero position: %+v", positions[1])
	}
}

func TestClientPositionsBadNumber(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, `[{"symbol":"BTCUSDT","holdSide":"long","total":"not-a-number","marginMode":"crossed"}]`)
	}))

	_, err := c.Positions(context.Background())
	var dfErr *DataFormatError
	if !errors.As(err, &dfErr) {
		t.Fatalf("Positions() error = %v, want DataFormatError", err)
	}
	if dfErr.Field != "total" {
		t.Errorf("Field = %q, want total", dfErr.Field)
	}
}

func TestClientCandles(t *testing.T) {
	var gotGranularity string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotGranularity = r.URL.Query().Get("granularity")
		writeEnvelope(w, `[
			["1700000000000","60000","60500","59800","60200","120.5","7260100"],
			["1700000060000","60200","60400","60100","60300","80.2","4836060"]
		]`)
	}))

	candles, err := c.Candles(context.Background(), "BTCUSDT", "1h", 100)
	if err != nil {
		t.Fatalf("Candles() error = %v", err)
	}
	if gotGranularity != "1H" {
		t.Errorf("granularity = %q, want 1H", gotGranularity)
	}
	if len(candles) != 2 {
		t.Fatalf("got %d candles, want 2", len(candles))
	}
	first := candles[0]
	if first.Symbol != "BTCUSDT" || first.Interval != "1h" {
		t.Errorf("candle identity = (%q, %q)", first.Symbol, first.Interval)
	}
	if first.Open != 60000 || first.High != 60500 || first.Low != 59800 || first.Close != 60200 || first.Volume != 120.5 {
		t.Errorf("unexpected candle: %+v", first)
	}
	if !first.OpenTime.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("OpenTime = %v", first.OpenTime)
	}
}

func TestClientPlaceOrder(t *testing.T) {
	tests := []struct {
		name     string
		req      PlaceOrderRequest
		wantBody map[string]string
		absent   []string
	}{
		{
			name: "market order omits price and carries generated clientOid",
			req: PlaceOrderRequest{
				Symbol:   "BTCUSDT",
				Side:     domain.SideBuy,
				Type:     domain.OrderTypeMarket,
				Quantity: 0.25,
			},
			wantBody: map[string]string{
				"symbol":     "BTCUSDT",
				"side":       "buy",
				"orderType":  "market",
				"size":       "0.25",
				"marginMode": "crossed",
			},
			absent: []string{"price", "force", "reduceOnly"},
		},
		{
			name: "limit order carries price and force",
			req: PlaceOrderRequest{
				Symbol:   "ETHUSDT",
				Side:     domain.SideSell,
				Type:     domain.OrderTypeLimit,
				Quantity: 1.5,
				Price:    3200.5,
			},
			wantBody: map[string]string{
				"orderType": "limit",
				"price":     "3200.5",
				"force":     "gtc",
			},
		},
		{
			name: "reduce-only close order",
			req: PlaceOrderRequest{
				Symbol:     "BTCUSDT",
				Side:       domain.SideSell,
				Type:       domain.OrderTypeMarket,
				Quantity:   0.5,
				ReduceOnly: true,
			},
			wantBody: map[string]string{"reduceOnly": "YES"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]string
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := jsonDecode(r, &got); err != nil {
					t.Errorf("decoding body: %v", err)
				}
				writeEnvelope(w, `{"orderId":"123456","clientOid":"abc"}`)
			}))

			order, err := c.PlaceOrder(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("PlaceOrder() error = %v", err)
			}
			if order.OrderID != "123456" {
				t.Errorf("OrderID = %q", order.OrderID)
			}
			for k, want := range tt.wantBody {
				if got[k] != want {
					t.Errorf("body[%q] = %q, want %q", k, got[k], want)
				}
			}
			for _, k := range tt.absent {
				if _, ok := got[k]; ok {
					t.Errorf("body contains %q, should be absent", k)
				}
			}
			if got["clientOid"] == "" {
				t.Error("clientOid should always be set")
			}
		})
	}
}

func TestClientCancelOrderAlreadyFinal(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "43025", "Order has been filled")
	}))

	err := c.CancelOrder(context.Background(), "BTCUSDT", "123456")
	var finalErr *AlreadyFinalOrderError
	if !errors.As(err, &finalErr) {
		t.Fatalf("CancelOrder() error = %v, want AlreadyFinalOrderError", err)
	}
	if finalErr.OrderID != "123456" || finalErr.Code != "43025" {
		t.Errorf("unexpected error detail: %+v", finalErr)
	}
}

func TestClientExchangeErrorPassthrough(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "40762", "The order amount exceeds the balance")
	}))

	_, err := c.PlaceOrder(context.Background(), PlaceOrderRequest{
		Symbol: "BTCUSDT", Side: domain.SideBuy, Type: domain.OrderTypeMarket, Quantity: 100,
	})
	var exErr *ExchangeError
	if !errors.As(err, &exErr) {
		t.Fatalf("PlaceOrder() error = %v, want ExchangeError", err)
	}
	if exErr.Code != "40762" || exErr.Message != "The order amount exceeds the balance" {
		t.Errorf("exchange error not passed through verbatim: %+v", exErr)
	}
}

func TestClientReadRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeEnvelope(w, `{"serverTime":"1700000000123"}`)
	}))

	if _, err := c.ServerTime(context.Background()); err != nil {
		t.Fatalf("ServerTime() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("got %d calls, want 3", calls.Load())
	}
}

func TestClientMutationNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.PlaceOrder(context.Background(), PlaceOrderRequest{
		Symbol: "BTCUSDT", Side: domain.SideBuy, Type: domain.OrderTypeMarket, Quantity: 0.1,
	})
	var trErr *TransportError
	if !errors.As(err, &trErr) {
		t.Fatalf("PlaceOrder() error = %v, want TransportError", err)
	}
	if trErr.Ambiguous {
		t.Error("HTTP 502 is a definite failure, not ambiguous")
	}
	if calls.Load() != 1 {
		t.Errorf("got %d calls, want exactly 1 for a mutation", calls.Load())
	}
}

func TestClientMutationTimeoutIsAmbiguous(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		writeEnvelope(w, `{"orderId":"1","clientOid":"a"}`)
	}))
	WithTimeout(50 * time.Millisecond)(c)

	_, err := c.PlaceOrder(context.Background(), PlaceOrderRequest{
		Symbol: "BTCUSDT", Side: domain.SideBuy, Type: domain.OrderTypeMarket, Quantity: 0.1,
	})
	var trErr *TransportError
	if !errors.As(err, &trErr) {
		t.Fatalf("PlaceOrder() error = %v, want TransportError", err)
	}
	if !trErr.Ambiguous {
		t.Error("a timed-out mutation must be reported as ambiguous")
	}
}

func TestClientTimestampDriftResign(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeError(w, "40005", "Invalid ACCESS-TIMESTAMP")
			return
		}
		writeEnvelope(w, `{"orderId":"123","clientOid":"abc"}`)
	}))

	order, err := c.PlaceOrder(context.Background(), PlaceOrderRequest{
		Symbol: "BTCUSDT", Side: domain.SideBuy, Type: domain.OrderTypeMarket, Quantity: 0.1,
	})
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}
	if order.OrderID != "123" {
		t.Errorf("OrderID = %q", order.OrderID)
	}
	if calls.Load() != 2 {
		t.Errorf("got %d calls, want 2 (one re-sign)", calls.Load())
	}
}

func TestClientLeverageInfo(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/mix/market/contracts":
			writeEnvelope(w, `[{"symbol":"BTCUSDT","maxLever":"125","minTradeNum":"0.001","pricePlace":"1","volumePlace":"3"}]`)
		case "/api/v2/mix/account/account":
			writeEnvelope(w, `{"marginMode":"crossed","crossedMarginLeverage":"20","isolatedLongLever":"10","isolatedShortLever":"10"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	info, err := c.LeverageInfo(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("LeverageInfo() error = %v", err)
	}
	if info.Leverage != 20 || info.MaxLeverage != 125 || info.MarginMode != domain.MarginModeCrossed {
		t.Errorf("unexpected leverage info: %+v", info)
	}
}

func TestClientOpenOrders(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, `{"entrustedList":[
			{"symbol":"BTCUSDT","size":"0.5","price":"59000","side":"buy","orderType":"limit","status":"live","orderId":"111","clientOid":"c1","baseVolume":"0","priceAvg":"","reduceOnly":"NO","cTime":"1700000000000"}
		]}`)
	}))

	orders, err := c.OpenOrders(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("OpenOrders() error = %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(orders))
	}
	o := orders[0]
	if o.OrderID != "111" || o.Side != domain.SideBuy || o.Type != domain.OrderTypeLimit || o.Price != 59000 {
		t.Errorf("unexpected order: %+v", o)
	}
	if o.ReduceOnly {
		t.Error("ReduceOnly should be false for NO")
	}
}

func jsonDecode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
