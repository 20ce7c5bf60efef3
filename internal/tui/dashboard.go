package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tradegate/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const refreshEvery = 5 * time.Second

// Dashboard message types.
type accountMsg domain.AccountInfo
type positionsMsg []domain.Position
type dashboardErrMsg struct{ err error }
type dashTickMsg time.Time

// DashboardModel shows the account summary and open positions.
type DashboardModel struct {
	services  Services
	account   domain.AccountInfo
	positions []domain.Position
	loading   bool
	err       error
	width     int
	height    int
}

func NewDashboardModel(svc Services) DashboardModel {
	return DashboardModel{
		services: svc,
		loading:  true,
	}
}

func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(
		m.fetchAccountCmd(),
		m.fetchPositionsCmd(),
		m.tickCmd(),
	)
}

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case accountMsg:
		m.account = domain.AccountInfo(msg)
		m.loading = false
		m.err = nil
		return m, nil

	case positionsMsg:
		m.positions = []domain.Position(msg)
		m.loading = false
		return m, nil

	case dashboardErrMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case dashTickMsg:
		return m, tea.Batch(
			m.fetchAccountCmd(),
			m.fetchPositionsCmd(),
			m.tickCmd(),
		)
	}

	return m, nil
}

func (m DashboardModel) View() string {
	if m.loading && m.account.MarginCoin == "" {
		return SubtextStyle.Render("Loading account...")
	}
	if m.err != nil && m.account.MarginCoin == "" {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	accountBox := BorderStyle.Width(max(m.width-2, 40)).Render(m.renderAccount())
	positionsBox := BorderStyle.Width(max(m.width-2, 40)).Render(m.renderPositions())

	return lipgloss.JoinVertical(lipgloss.Left, accountBox, positionsBox)
}

func (m *DashboardModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Positions returns the current positions (for testing).
func (m DashboardModel) Positions() []domain.Position { return m.positions }

// Account returns the current account snapshot (for testing).
func (m DashboardModel) Account() domain.AccountInfo { return m.account }

func (m DashboardModel) renderAccount() string {
	header := HeaderStyle.Render("  Account")
	pnl := pnlStyle(m.account.UnrealizedPnL).Render(fmt.Sprintf("%+.2f", m.account.UnrealizedPnL))
	body := fmt.Sprintf("  %s  available %.2f  equity %.2f  locked %.2f  uPnL %s",
		m.account.MarginCoin, m.account.Available, m.account.Equity, m.account.Locked, pnl)
	return header + "\n" + body
}

func (m DashboardModel) renderPositions() string {
	header := HeaderStyle.Render("  Open Positions")
	var lines []string
	lines = append(lines, header)
	lines = append(lines, SubtextStyle.Render("  Symbol        Side    Size        Entry       uPnL      Lev"))
	lines = append(lines, SubtextStyle.Render(strings.Repeat("-", 64)))

	for _, p := range m.positions {
		lines = append(lines, "  "+FormatPosition(p))
	}

	if len(m.positions) == 0 {
		lines = append(lines, SubtextStyle.Render("  No open positions"))
	}

	return strings.Join(lines, "\n")
}

func (m DashboardModel) fetchAccountCmd() tea.Cmd {
	return func() tea.Msg {
		if m.services.Market == nil {
			return dashboardErrMsg{err: fmt.Errorf("market service not available")}
		}
		account, err := m.services.Market.AccountInfo(context.Background())
		if err != nil {
			return dashboardErrMsg{err: err}
		}
		return accountMsg(account)
	}
}

func (m DashboardModel) fetchPositionsCmd() tea.Cmd {
	return func() tea.Msg {
		if m.services.Market == nil {
			return dashboardErrMsg{err: fmt.Errorf("market service not available")}
		}
		positions, err := m.services.Market.Positions(context.Background(), "")
		if err != nil {
			return dashboardErrMsg{err: err}
		}
		return positionsMsg(positions)
	}
}

func (m DashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg {
		return dashTickMsg(t)
	})
}
