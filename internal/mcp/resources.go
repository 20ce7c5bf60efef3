package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"tradegate/internal/domain"
)

func registerResources(server *mcp.Server, market MarketReader) {
	server.AddResource(&mcp.Resource{
		URI:         "market://supported-symbols",
		Name:        "supported-symbols",
		Description: "USDT perpetual contracts this gateway accepts",
		MIMEType:    "application/json",
	}, func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return jsonResource(req.Params.URI, map[string][]string{"symbols": domain.SupportedSymbols})
	})

	server.AddResource(&mcp.Resource{
		URI:         "market://supported-intervals",
		Name:        "supported-intervals",
		Description: "Candle intervals accepted by get_candles and the analysis tools",
		MIMEType:    "application/json",
	}, func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return jsonResource(req.Params.URI, map[string][]string{"intervals": domain.SupportedIntervals})
	})

	server.AddResource(&mcp.Resource{
		URI:         "account://info",
		Name:        "account-info",
		Description: "Current USDT futures account balance and equity",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if market == nil {
			return nil, fmt.Errorf("market service unavailable")
		}
		account, err := market.AccountInfo(ctx)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, accountInfoData{Account: account})
	})

	server.AddResource(&mcp.Resource{
		URI:         "positions://open",
		Name:        "open-positions",
		Description: "All open positions with nonzero size",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if market == nil {
			return nil, fmt.Errorf("market service unavailable")
		}
		positions, err := market.Positions(ctx, "")
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, positionsData{Positions: positions})
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "candles://{symbol}/{interval}{?limit}",
		Name:        "candles",
		Description: "OHLCV candles for one contract, e.g. candles://BTCUSDT/1h?limit=100",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if market == nil {
			return nil, fmt.Errorf("market service unavailable")
		}

		parsed, err := url.Parse(req.Params.URI)
		if err != nil {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		if parsed.Scheme != "candles" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}

		symbol, err := normalizeSymbol(parsed.Host)
		if err != nil {
			return nil, err
		}
		interval, err := normalizeInterval(strings.Trim(strings.TrimSpace(parsed.Path), "/"))
		if err != nil {
			return nil, err
		}

		limit := defaultCandleLimit
		if rawLimit := strings.TrimSpace(parsed.Query().Get("limit")); rawLimit != "" {
			n, err := strconv.Atoi(rawLimit)
			if err != nil {
				return nil, fmt.Errorf("invalid limit: %s", rawLimit)
			}
			limit = normalizeCandleLimit(n)
		}

		candles, err := market.Candles(ctx, symbol, interval, limit)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, candlesData{Symbol: symbol, Interval: interval, Candles: candles})
	})
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
