package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"tradegate/internal/analysis"
	"tradegate/internal/bitget"
	"tradegate/internal/domain"
	"tradegate/internal/news"
	"tradegate/internal/service"
)

type stubMarket struct {
	account   domain.AccountInfo
	positions []domain.Position
	prices    map[string]domain.PriceSnapshot
	open      []domain.Order
	history   []domain.Order

	candleCount int

	lastCandleSymbol   string
	lastCandleInterval string
	lastCandleLimit    int
	lastHistoryLimit   int
}

func (s *stubMarket) AccountInfo(context.Context) (domain.AccountInfo, error) {
	return s.account, nil
}

func (s *stubMarket) Positions(_ context.Context, symbol string) ([]domain.Position, error) {
	if symbol == "" {
		return append([]domain.Position(nil), s.positions...), nil
	}
	normalized, ok := domain.NormalizeSymbol(symbol)
	if !ok {
		return nil, &bitget.ValidationError{Field: "symbol", Reason: fmt.Sprintf("unsupported contract %q", symbol)}
	}
	var out []domain.Position
	for _, p := range s.positions {
		if p.Symbol == normalized {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubMarket) Price(_ context.Context, symbol string) (domain.PriceSnapshot, error) {
	normalized, ok := domain.NormalizeSymbol(symbol)
	if !ok {
		return domain.PriceSnapshot{}, &bitget.ValidationError{Field: "symbol", Reason: fmt.Sprintf("unsupported contract %q", symbol)}
	}
	snap, found := s.prices[normalized]
	if !found {
		return domain.PriceSnapshot{}, &bitget.TransportError{Op: "ticker", Err: fmt.Errorf("no data")}
	}
	return snap, nil
}

func (s *stubMarket) Candles(_ context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	normalized, ok := domain.NormalizeSymbol(symbol)
	if !ok {
		return nil, &bitget.ValidationError{Field: "symbol", Reason: fmt.Sprintf("unsupported contract %q", symbol)}
	}
	s.lastCandleSymbol = normalized
	s.lastCandleInterval = interval
	s.lastCandleLimit = limit

	count := s.candleCount
	if count == 0 {
		count = 60
	}
	if count > limit {
		count = limit
	}
	candles := make([]domain.Candle, count)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := range candles {
		price += 0.5
		candles[i] = domain.Candle{
			Symbol:   normalized,
			Interval: interval,
			OpenTime: base.Add(time.Duration(i) * time.Hour),
			Open:     price - 0.3,
			High:     price + 0.4,
			Low:      price - 0.6,
			Close:    price,
			Volume:   1000 + float64(i),
		}
	}
	return candles, nil
}

func (s *stubMarket) OpenOrders(context.Context, string) ([]domain.Order, error) {
	return append([]domain.Order(nil), s.open...), nil
}

func (s *stubMarket) OrderHistory(_ context.Context, _ string, limit int) ([]domain.Order, error) {
	s.lastHistoryLimit = limit
	return append([]domain.Order(nil), s.history...), nil
}

func (s *stubMarket) ServerTime(context.Context) (time.Time, error) {
	return time.Unix(1700000000, 0).UTC(), nil
}

type stubOrders struct {
	placed    []service.PlaceOrderParams
	placeErr  error
	cancelErr error

	cancelled []string
}

func (s *stubOrders) PlaceOrder(_ context.Context, params service.PlaceOrderParams) (domain.Order, error) {
	if params.Quantity <= 0 {
		return domain.Order{}, &bitget.ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if s.placeErr != nil {
		return domain.Order{}, s.placeErr
	}
	s.placed = append(s.placed, params)
	return domain.Order{
		Symbol:   params.Symbol,
		Side:     domain.Side(params.Side),
		Type:     domain.OrderType(params.Type),
		Quantity: params.Quantity,
		Price:    params.Price,
		OrderID:  "ord-1",
		Status:   "live",
	}, nil
}

func (s *stubOrders) CancelOrder(_ context.Context, _, orderID string) error {
	if s.cancelErr != nil {
		return s.cancelErr
	}
	s.cancelled = append(s.cancelled, orderID)
	return nil
}

type stubCloser struct {
	report    domain.CloseReport
	allReport domain.CloseAllReport
	closeErr  error
}

func (s *stubCloser) ClosePosition(_ context.Context, symbol string) (domain.CloseReport, error) {
	if s.closeErr != nil {
		return domain.CloseReport{}, s.closeErr
	}
	report := s.report
	if report.Symbol == "" {
		report.Symbol = symbol
	}
	return report, nil
}

func (s *stubCloser) CloseAllPositions(context.Context) (domain.CloseAllReport, error) {
	return s.allReport, nil
}

type stubLeverage struct {
	info   domain.LeverageInfo
	setErr error

	lastLeverage   int
	lastMarginMode string
}

func (s *stubLeverage) LeverageInfo(context.Context, string) (domain.LeverageInfo, error) {
	return s.info, nil
}

func (s *stubLeverage) SetLeverage(_ context.Context, _ string, leverage int, marginMode string) (domain.LeverageInfo, error) {
	if s.setErr != nil {
		return domain.LeverageInfo{}, s.setErr
	}
	s.lastLeverage = leverage
	s.lastMarginMode = marginMode
	info := s.info
	info.Leverage = leverage
	return info, nil
}

func (s *stubLeverage) SetMarginMode(_ context.Context, _, marginMode string) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.lastMarginMode = marginMode
	return nil
}

type stubNews struct {
	report   news.Report
	trending news.TrendingReport
}

func (s *stubNews) LatestNews(context.Context, []string, int) (news.Report, error) {
	return s.report, nil
}

func (s *stubNews) TrendingCoins(context.Context) (news.TrendingReport, error) {
	return s.trending, nil
}

type testFixture struct {
	market   *stubMarket
	orders   *stubOrders
	closer   *stubCloser
	leverage *stubLeverage
	news     *stubNews
}

func testServer() (*sdkmcp.Server, *testFixture) {
	fx := &testFixture{
		market: &stubMarket{
			account: domain.AccountInfo{MarginCoin: "USDT", Available: 1234.5, Equity: 1500},
			positions: []domain.Position{
				{Symbol: "BTCUSDT", Side: domain.PositionLong, Size: 0.01, EntryPrice: 50000, Leverage: 10, MarginMode: domain.MarginModeCrossed},
			},
			prices: map[string]domain.PriceSnapshot{
				"BTCUSDT": {Symbol: "BTCUSDT", Price: 51000, Timestamp: time.Unix(1700000000, 0).UTC()},
			},
		},
		orders: &stubOrders{},
		closer: &stubCloser{
			report: domain.CloseReport{Symbol: "BTCUSDT", BeforeSize: 0.01, AfterSize: 0},
			allReport: domain.CloseAllReport{
				Results:   map[string]domain.CloseOutcome{"BTCUSDT": {Success: true}},
				AllClosed: true,
			},
		},
		leverage: &stubLeverage{
			info: domain.LeverageInfo{Symbol: "BTCUSDT", Leverage: 10, MarginMode: domain.MarginModeCrossed, MaxLeverage: 125},
		},
		news: &stubNews{
			report: news.Report{
				Articles:         []news.Article{{Source: "coindesk", Title: "Bitcoin climbs"}},
				SentimentSummary: map[string]int{"positive": 1, "negative": 0, "neutral": 0},
			},
			trending: news.TrendingReport{Coins: []news.TrendingCoin{{Name: "Bitcoin", Symbol: "BTC"}}},
		},
	}

	srv := NewServer(nil, Deps{
		Market:   fx.market,
		Orders:   fx.orders,
		Closer:   fx.closer,
		Leverage: fx.leverage,
		Analyzer: analysis.NewEngine(),
		News:     fx.news,
	}, ServerConfig{RequestTimeout: 2 * time.Second})
	return srv, fx
}

func connectInMemory(ctx context.Context, srv *sdkmcp.Server) (*sdkmcp.ClientSession, context.CancelFunc, error) {
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = srv.Run(runCtx, serverTransport) }()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "mcp-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return session, cancel, nil
}

func callTool(ctx context.Context, t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any) *sdkmcp.CallToolResult {
	t.Helper()
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("call %s failed: %v", name, err)
	}
	return res
}

func decodeToolResult[T any](t *testing.T, res *sdkmcp.CallToolResult) toolResult[T] {
	t.Helper()
	raw, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	var out toolResult[T]
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode tool result: %v", err)
	}
	return out
}

func decodeResourceJSON(result *sdkmcp.ReadResourceResult, out any) error {
	if len(result.Contents) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(result.Contents[0].Text), out)
}
