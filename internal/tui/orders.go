package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tradegate/internal/domain"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type ordersMsg []domain.Order
type ordersErrMsg struct{ err error }
type ordersTickMsg time.Time

// OrdersModel shows unfilled orders across all contracts.
type OrdersModel struct {
	services Services
	orders   []domain.Order
	spinner  spinner.Model
	loading  bool
	err      error
	width    int
	height   int
}

func NewOrdersModel(svc Services) OrdersModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(SpinnerColor)
	return OrdersModel{
		services: svc,
		spinner:  sp,
		loading:  true,
	}
}

func (m OrdersModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchOrdersCmd(), m.tickCmd())
}

func (m OrdersModel) Update(msg tea.Msg) (OrdersModel, tea.Cmd) {
	switch msg := msg.(type) {
	case ordersMsg:
		m.orders = []domain.Order(msg)
		m.loading = false
		m.err = nil
		return m, nil

	case ordersErrMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case ordersTickMsg:
		return m, tea.Batch(m.fetchOrdersCmd(), m.tickCmd())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m OrdersModel) View() string {
	if m.loading && len(m.orders) == 0 {
		return m.spinner.View() + SubtextStyle.Render(" Loading orders...")
	}
	if m.err != nil && len(m.orders) == 0 {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	header := HeaderStyle.Render("  Open Orders")
	var lines []string
	lines = append(lines, header)
	lines = append(lines, SubtextStyle.Render("  Symbol        Side  Type     Qty         Price       Status"))
	lines = append(lines, SubtextStyle.Render(strings.Repeat("-", 66)))

	for _, o := range m.orders {
		lines = append(lines, "  "+FormatOrder(o))
	}
	if len(m.orders) == 0 {
		lines = append(lines, SubtextStyle.Render("  No open orders"))
	}

	return BorderStyle.Width(max(m.width-2, 40)).Render(strings.Join(lines, "\n"))
}

func (m *OrdersModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Orders returns the current orders (for testing).
func (m OrdersModel) Orders() []domain.Order { return m.orders }

func (m OrdersModel) fetchOrdersCmd() tea.Cmd {
	return func() tea.Msg {
		if m.services.Market == nil {
			return ordersErrMsg{err: fmt.Errorf("market service not available")}
		}
		orders, err := m.services.Market.OpenOrders(context.Background(), "")
		if err != nil {
			return ordersErrMsg{err: err}
		}
		return ordersMsg(orders)
	}
}

func (m OrdersModel) tickCmd() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg {
		return ordersTickMsg(t)
	})
}
