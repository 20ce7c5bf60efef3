package tui

import (
	"context"

	"tradegate/internal/domain"
)

// MarketQuerier provides the exchange reads the monitor needs. The TUI is
// strictly read-only; it never places or cancels orders.
type MarketQuerier interface {
	AccountInfo(ctx context.Context) (domain.AccountInfo, error)
	Positions(ctx context.Context, symbol string) ([]domain.Position, error)
	OpenOrders(ctx context.Context, symbol string) ([]domain.Order, error)
}

// Services bundles the dependencies injected into the TUI.
type Services struct {
	Market MarketQuerier
}
