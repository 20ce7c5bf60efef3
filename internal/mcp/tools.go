package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"tradegate/internal/domain"
	"tradegate/internal/service"
)

type toolDeps struct {
	market   MarketReader
	orders   OrderManager
	closer   PositionCloser
	leverage LeverageManager
	analyzer Analyzer
	news     NewsReader
}

func registerTools(server *mcp.Server, deps toolDeps) {
	registerMarketTools(server, deps.market)
	registerTradingTools(server, deps.orders, deps.closer, deps.leverage)
	registerAnalysisTools(server, deps.market, deps.analyzer)
	registerNewsTools(server, deps.news)
}

func registerMarketTools(server *mcp.Server, market MarketReader) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_account_info",
		Description: "Get USDT futures account balance, equity, and unrealized PnL",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, toolResult[accountInfoData], error) {
		if market == nil {
			return nil, toolResult[accountInfoData]{}, fmt.Errorf("market service unavailable")
		}
		account, err := market.AccountInfo(ctx)
		if err != nil {
			return nil, failResult[accountInfoData](err), nil
		}
		summary := fmt.Sprintf("account %s: available %.4f, equity %.4f", account.MarginCoin, account.Available, account.Equity)
		return nil, okResult(summary, accountInfoData{Account: account}), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_positions",
		Description: "Get open positions, optionally filtered by symbol; zero-size entries are excluded",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in positionsInput) (*mcp.CallToolResult, toolResult[positionsData], error) {
		if market == nil {
			return nil, toolResult[positionsData]{}, fmt.Errorf("market service unavailable")
		}
		positions, err := market.Positions(ctx, in.Symbol)
		if err != nil {
			return nil, failResult[positionsData](err), nil
		}
		return nil, okResult(fmt.Sprintf("%d open position(s)", len(positions)), positionsData{Positions: positions}), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_price",
		Description: "Get the latest last/index/mark price for a contract",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in priceInput) (*mcp.CallToolResult, toolResult[priceData], error) {
		if market == nil {
			return nil, toolResult[priceData]{}, fmt.Errorf("market service unavailable")
		}
		snapshot, err := market.Price(ctx, in.Symbol)
		if err != nil {
			return nil, failResult[priceData](err), nil
		}
		summary := fmt.Sprintf("%s last price %.4f", snapshot.Symbol, snapshot.Price)
		return nil, okResult(summary, priceData{Price: snapshot}), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_candles",
		Description: "Get OHLCV candles for a contract by interval and limit",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in candlesInput) (*mcp.CallToolResult, toolResult[candlesData], error) {
		if market == nil {
			return nil, toolResult[candlesData]{}, fmt.Errorf("market service unavailable")
		}
		limit := normalizeCandleLimit(in.Limit)
		candles, err := market.Candles(ctx, in.Symbol, in.Interval, limit)
		if err != nil {
			return nil, failResult[candlesData](err), nil
		}
		out := candlesData{Symbol: in.Symbol, Interval: in.Interval, Candles: candles}
		if len(candles) > 0 {
			out.Symbol = candles[0].Symbol
			out.Interval = candles[0].Interval
		}
		return nil, okResult(fmt.Sprintf("%d candle(s)", len(candles)), out), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_open_orders",
		Description: "Get unfilled orders, optionally filtered by symbol",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in openOrdersInput) (*mcp.CallToolResult, toolResult[ordersData], error) {
		if market == nil {
			return nil, toolResult[ordersData]{}, fmt.Errorf("market service unavailable")
		}
		orders, err := market.OpenOrders(ctx, in.Symbol)
		if err != nil {
			return nil, failResult[ordersData](err), nil
		}
		return nil, okResult(fmt.Sprintf("%d open order(s)", len(orders)), ordersData{Orders: orders}), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_order_history",
		Description: "Get recent filled or cancelled orders for a contract",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in orderHistoryInput) (*mcp.CallToolResult, toolResult[ordersData], error) {
		if market == nil {
			return nil, toolResult[ordersData]{}, fmt.Errorf("market service unavailable")
		}
		orders, err := market.OrderHistory(ctx, in.Symbol, normalizeHistoryLimit(in.Limit))
		if err != nil {
			return nil, failResult[ordersData](err), nil
		}
		return nil, okResult(fmt.Sprintf("%d historical order(s)", len(orders)), ordersData{Orders: orders}), nil
	})
}

func registerTradingTools(server *mcp.Server, orders OrderManager, closer PositionCloser, leverage LeverageManager) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "place_order",
		Description: "Place a market or limit order on a USDT perpetual contract",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in placeOrderInput) (*mcp.CallToolResult, toolResult[orderData], error) {
		if orders == nil {
			return nil, toolResult[orderData]{}, fmt.Errorf("order service unavailable")
		}
		order, err := orders.PlaceOrder(ctx, service.PlaceOrderParams{
			Symbol:   in.Symbol,
			Side:     in.Side,
			Type:     in.Type,
			Quantity: in.Quantity,
			Price:    in.Price,
		})
		if err != nil {
			return nil, failResult[orderData](err), nil
		}
		summary := fmt.Sprintf("placed %s %s order for %v %s (id %s)", order.Side, order.Type, order.Quantity, order.Symbol, order.OrderID)
		return nil, okResult(summary, orderData{Order: order}), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cancel_order",
		Description: "Cancel an open order; reports a distinct error if the order already filled or was cancelled",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in cancelOrderInput) (*mcp.CallToolResult, toolResult[cancelOrderData], error) {
		if orders == nil {
			return nil, toolResult[cancelOrderData]{}, fmt.Errorf("order service unavailable")
		}
		if err := orders.CancelOrder(ctx, in.Symbol, in.OrderID); err != nil {
			return nil, failResult[cancelOrderData](err), nil
		}
		summary := fmt.Sprintf("cancelled order %s on %s", in.OrderID, in.Symbol)
		return nil, okResult(summary, cancelOrderData{Symbol: in.Symbol, OrderID: in.OrderID}), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "close_position",
		Description: "Flatten the open position on one contract with a reduce-only market order and verify size reached zero",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in closePositionInput) (*mcp.CallToolResult, toolResult[closePositionData], error) {
		if closer == nil {
			return nil, toolResult[closePositionData]{}, fmt.Errorf("position service unavailable")
		}
		report, err := closer.ClosePosition(ctx, in.Symbol)
		if err != nil {
			return nil, failResult[closePositionData](err), nil
		}
		summary := fmt.Sprintf("%s flattened: size %v -> %v", report.Symbol, report.BeforeSize, report.AfterSize)
		if report.BeforeSize == 0 {
			summary = fmt.Sprintf("%s had no open position", report.Symbol)
		}
		return nil, okResult(summary, closePositionData{Report: report}), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "close_all_positions",
		Description: "Flatten every open position; per-symbol outcomes are reported independently and one failure never aborts the rest",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, toolResult[closeAllData], error) {
		if closer == nil {
			return nil, toolResult[closeAllData]{}, fmt.Errorf("position service unavailable")
		}
		report, err := closer.CloseAllPositions(ctx)
		if err != nil {
			return nil, failResult[closeAllData](err), nil
		}
		data := closeAllData{Results: report.Results, AllClosed: report.AllClosed}
		result := toolResult[closeAllData]{Success: report.AllClosed, Data: &data}
		closed := 0
		for _, outcome := range report.Results {
			if outcome.Success {
				closed++
			}
		}
		if report.AllClosed {
			result.Summary = fmt.Sprintf("closed %d position(s)", closed)
		} else {
			result.Summary = fmt.Sprintf("closed %d of %d position(s); inspect per-symbol results", closed, len(report.Results))
			result.Error = &ToolError{Code: "partial_failure", Message: result.Summary}
		}
		return nil, result, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_leverage",
		Description: "Set leverage for a contract, optionally switching margin mode first; validated against the contract maximum",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in setLeverageInput) (*mcp.CallToolResult, toolResult[leverageData], error) {
		if leverage == nil {
			return nil, toolResult[leverageData]{}, fmt.Errorf("leverage service unavailable")
		}
		info, err := leverage.SetLeverage(ctx, in.Symbol, in.Leverage, in.MarginMode)
		if err != nil {
			return nil, failResult[leverageData](err), nil
		}
		summary := fmt.Sprintf("%s leverage set to %dx (%s)", info.Symbol, info.Leverage, info.MarginMode)
		return nil, okResult(summary, leverageData{Leverage: info}), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_leverage_info",
		Description: "Get current leverage, margin mode, and the contract's maximum leverage",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in leverageInfoInput) (*mcp.CallToolResult, toolResult[leverageData], error) {
		if leverage == nil {
			return nil, toolResult[leverageData]{}, fmt.Errorf("leverage service unavailable")
		}
		info, err := leverage.LeverageInfo(ctx, in.Symbol)
		if err != nil {
			return nil, failResult[leverageData](err), nil
		}
		summary := fmt.Sprintf("%s is %dx %s (max %dx)", info.Symbol, info.Leverage, info.MarginMode, info.MaxLeverage)
		return nil, okResult(summary, leverageData{Leverage: info}), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_margin_mode",
		Description: "Switch a contract between isolated and crossed margin",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in setMarginModeInput) (*mcp.CallToolResult, toolResult[marginModeData], error) {
		if leverage == nil {
			return nil, toolResult[marginModeData]{}, fmt.Errorf("leverage service unavailable")
		}
		if err := leverage.SetMarginMode(ctx, in.Symbol, in.MarginMode); err != nil {
			return nil, failResult[marginModeData](err), nil
		}
		symbol, _ := domain.NormalizeSymbol(in.Symbol)
		summary := fmt.Sprintf("%s margin mode set to %s", symbol, in.MarginMode)
		return nil, okResult(summary, marginModeData{Symbol: symbol, MarginMode: in.MarginMode}), nil
	})
}

func registerAnalysisTools(server *mcp.Server, market MarketReader, analyzer Analyzer) {
	fetch := func(ctx context.Context, symbol, interval string) ([]domain.Candle, error) {
		if market == nil {
			return nil, fmt.Errorf("market service unavailable")
		}
		normalized, err := normalizeInterval(interval)
		if err != nil {
			return nil, err
		}
		return market.Candles(ctx, symbol, normalized, analysisCandleLimit)
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_rsi",
		Description: "Compute the Wilder RSI for a contract and flag overbought/oversold levels",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in rsiInput) (*mcp.CallToolResult, toolResult[rsiData], error) {
		if analyzer == nil {
			return nil, toolResult[rsiData]{}, fmt.Errorf("analysis engine unavailable")
		}
		candles, err := fetch(ctx, in.Symbol, in.Interval)
		if err != nil {
			return nil, failResult[rsiData](err), nil
		}
		report, err := analyzer.RSI(candles, in.Period)
		if err != nil {
			return nil, failResult[rsiData](err), nil
		}
		summary := fmt.Sprintf("%s RSI(%d) = %.2f, %s", report.Symbol, report.Period, report.RSI, report.Signal)
		return nil, okResult(summary, rsiData{Report: report}), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_moving_averages",
		Description: "Compare short and long simple moving averages and flag golden/dead crosses",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in movingAveragesInput) (*mcp.CallToolResult, toolResult[movingAveragesData], error) {
		if analyzer == nil {
			return nil, toolResult[movingAveragesData]{}, fmt.Errorf("analysis engine unavailable")
		}
		candles, err := fetch(ctx, in.Symbol, in.Interval)
		if err != nil {
			return nil, failResult[movingAveragesData](err), nil
		}
		report, err := analyzer.MovingAverages(candles, in.ShortPeriod, in.LongPeriod)
		if err != nil {
			return nil, failResult[movingAveragesData](err), nil
		}
		summary := fmt.Sprintf("%s MA(%d/%d): %s, trend %s", report.Symbol, report.ShortPeriod, report.LongPeriod, report.Cross, report.Trend)
		return nil, okResult(summary, movingAveragesData{Report: report}), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_bollinger_bands",
		Description: "Compute Bollinger Bands and report where price sits relative to the bands",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in bollingerInput) (*mcp.CallToolResult, toolResult[bollingerData], error) {
		if analyzer == nil {
			return nil, toolResult[bollingerData]{}, fmt.Errorf("analysis engine unavailable")
		}
		candles, err := fetch(ctx, in.Symbol, in.Interval)
		if err != nil {
			return nil, failResult[bollingerData](err), nil
		}
		report, err := analyzer.Bollinger(candles, in.Period, in.StdDev)
		if err != nil {
			return nil, failResult[bollingerData](err), nil
		}
		summary := fmt.Sprintf("%s Bollinger(%d): %s", report.Symbol, report.Period, report.Signal)
		return nil, okResult(summary, bollingerData{Report: report}), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "comprehensive_technical_analysis",
		Description: "Run RSI, moving averages, and Bollinger Bands together and vote on an overall signal",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in analysisInput) (*mcp.CallToolResult, toolResult[comprehensiveData], error) {
		if analyzer == nil {
			return nil, toolResult[comprehensiveData]{}, fmt.Errorf("analysis engine unavailable")
		}
		candles, err := fetch(ctx, in.Symbol, in.Interval)
		if err != nil {
			return nil, failResult[comprehensiveData](err), nil
		}
		report, err := analyzer.Comprehensive(candles)
		if err != nil {
			return nil, failResult[comprehensiveData](err), nil
		}
		summary := fmt.Sprintf("%s overall: %s", report.Symbol, report.Overall)
		return nil, okResult(summary, comprehensiveData{Report: report}), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_volume_anomaly",
		Description: "Score recent candles with an isolation forest and flag abnormal volume spikes",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in analysisInput) (*mcp.CallToolResult, toolResult[volumeAnomalyData], error) {
		if analyzer == nil {
			return nil, toolResult[volumeAnomalyData]{}, fmt.Errorf("analysis engine unavailable")
		}
		candles, err := fetch(ctx, in.Symbol, in.Interval)
		if err != nil {
			return nil, failResult[volumeAnomalyData](err), nil
		}
		report, err := analyzer.VolumeAnomalies(candles)
		if err != nil {
			return nil, failResult[volumeAnomalyData](err), nil
		}
		summary := fmt.Sprintf("%s: %d anomalous candle(s) in window", report.Symbol, len(report.Anomalies))
		if report.LatestIsSpike {
			summary += "; latest candle is a volume spike"
		}
		return nil, okResult(summary, volumeAnomalyData{Report: report}), nil
	})
}

func registerNewsTools(server *mcp.Server, reader NewsReader) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_crypto_news",
		Description: "Fetch recent crypto headlines with keyword sentiment and mentioned coins",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in newsInput) (*mcp.CallToolResult, toolResult[newsData], error) {
		if reader == nil {
			return nil, toolResult[newsData]{}, fmt.Errorf("news service unavailable")
		}
		report, err := reader.LatestNews(ctx, in.Sources, in.Limit)
		if err != nil {
			return nil, failResult[newsData](err), nil
		}
		return nil, okResult(fmt.Sprintf("%d article(s)", len(report.Articles)), newsData{Report: report}), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_trending_coins",
		Description: "Fetch the coins currently trending on CoinGecko",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, toolResult[trendingData], error) {
		if reader == nil {
			return nil, toolResult[trendingData]{}, fmt.Errorf("news service unavailable")
		}
		report, err := reader.TrendingCoins(ctx)
		if err != nil {
			return nil, failResult[trendingData](err), nil
		}
		return nil, okResult(fmt.Sprintf("%d trending coin(s)", len(report.Coins)), trendingData{Report: report}), nil
	})
}
