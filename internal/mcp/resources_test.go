package mcp

import (
	"context"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"tradegate/internal/domain"
)

func TestResourcesStaticAndTemplated(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv, _ := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	list, err := session.ListResources(ctx, &sdkmcp.ListResourcesParams{})
	if err != nil {
		t.Fatalf("list resources failed: %v", err)
	}
	if len(list.Resources) < 4 {
		t.Fatalf("expected at least 4 static resources, got %d", len(list.Resources))
	}

	templates, err := session.ListResourceTemplates(ctx, &sdkmcp.ListResourceTemplatesParams{})
	if err != nil {
		t.Fatalf("list templates failed: %v", err)
	}
	if len(templates.ResourceTemplates) < 1 {
		t.Fatalf("expected at least 1 resource template, got %d", len(templates.ResourceTemplates))
	}

	readRes, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "market://supported-symbols"})
	if err != nil {
		t.Fatalf("read symbols resource failed: %v", err)
	}
	var symbols map[string][]string
	if err := decodeResourceJSON(readRes, &symbols); err != nil {
		t.Fatalf("decode symbols failed: %v", err)
	}
	if len(symbols["symbols"]) != len(domain.SupportedSymbols) {
		t.Fatalf("expected %d symbols, got %d", len(domain.SupportedSymbols), len(symbols["symbols"]))
	}

	readRes, err = session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "positions://open"})
	if err != nil {
		t.Fatalf("read positions resource failed: %v", err)
	}
	var positions positionsData
	if err := decodeResourceJSON(readRes, &positions); err != nil {
		t.Fatalf("decode positions failed: %v", err)
	}
	if len(positions.Positions) != 1 || positions.Positions[0].Symbol != "BTCUSDT" {
		t.Fatalf("unexpected positions payload: %+v", positions.Positions)
	}
}

func TestCandlesResourceTemplate(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv, fx := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	readRes, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "candles://BTCUSDT/1h?limit=10"})
	if err != nil {
		t.Fatalf("read candles resource failed: %v", err)
	}
	var out candlesData
	if err := decodeResourceJSON(readRes, &out); err != nil {
		t.Fatalf("decode candles failed: %v", err)
	}
	if out.Symbol != "BTCUSDT" || out.Interval != "1h" {
		t.Fatalf("unexpected candle metadata: %+v", out)
	}
	if fx.market.lastCandleLimit != 10 {
		t.Fatalf("expected limit 10 forwarded, got %d", fx.market.lastCandleLimit)
	}

	if _, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "candles://FAKEUSDT/1h"}); err == nil {
		t.Fatal("expected error for unsupported symbol")
	}
}
