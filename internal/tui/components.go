package tui

import (
	"fmt"

	"tradegate/internal/domain"

	"github.com/charmbracelet/lipgloss"
)

// FormatPosition renders one position row for the dashboard table.
func FormatPosition(p domain.Position) string {
	side := SideLongStyle.Render("LONG ")
	if p.Side == domain.PositionShort {
		side = SideShortStyle.Render("SHORT")
	}
	pnl := pnlStyle(p.UnrealizedPnL).Render(fmt.Sprintf("%+9.2f", p.UnrealizedPnL))
	return fmt.Sprintf("%-12s  %s  %-10s  %-10s  %s  %dx",
		p.Symbol, side, trimFloat(p.Size), trimFloat(p.EntryPrice), pnl, p.Leverage)
}

// FormatOrder renders one order row for the orders table.
func FormatOrder(o domain.Order) string {
	side := SideLongStyle.Render("BUY ")
	if o.Side == domain.SideSell {
		side = SideShortStyle.Render("SELL")
	}
	price := "market"
	if o.Type == domain.OrderTypeLimit {
		price = trimFloat(o.Price)
	}
	return fmt.Sprintf("%-12s  %s  %-7s  %-10s  %-10s  %s",
		o.Symbol, side, o.Type, trimFloat(o.Quantity), price, o.Status)
}

func pnlStyle(v float64) lipgloss.Style {
	switch {
	case v > 0:
		return PnLUpStyle
	case v < 0:
		return PnLDownStyle
	default:
		return PnLFlatStyle
	}
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.8f", v)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
