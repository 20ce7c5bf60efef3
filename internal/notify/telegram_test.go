package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	tele "gopkg.in/telebot.v3"

	"tradegate/internal/domain"
)

type stubSender struct {
	sent []string
	err  error
}

func (s *stubSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if text, ok := what.(string); ok {
		s.sent = append(s.sent, text)
	}
	return nil, s.err
}

func TestOrderPlacedMessage(t *testing.T) {
	sender := &stubSender{}
	n := NewTelegramNotifier(sender, 42)

	n.OrderPlaced(context.Background(), domain.Order{
		Symbol: "BTCUSDT", Side: domain.SideBuy, Type: domain.OrderTypeLimit,
		Quantity: 0.25, Price: 60000, OrderID: "123",
	})

	if len(sender.sent) != 1 {
		t.Fatalf("got %d messages, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	for _, want := range []string{"BTCUSDT", "buy", "limit", "0.25", "60000", "123"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q: %s", want, msg)
		}
	}
}

func TestOrderPlacedMarketOmitsPrice(t *testing.T) {
	sender := &stubSender{}
	n := NewTelegramNotifier(sender, 42)

	n.OrderPlaced(context.Background(), domain.Order{
		Symbol: "ETHUSDT", Side: domain.SideSell, Type: domain.OrderTypeMarket,
		Quantity: 1.5, OrderID: "456",
	})

	if strings.Contains(sender.sent[0], "@") {
		t.Errorf("market order message should not carry a price: %s", sender.sent[0])
	}
}

func TestPositionClosedMessage(t *testing.T) {
	sender := &stubSender{}
	n := NewTelegramNotifier(sender, 42)

	n.PositionClosed(context.Background(), domain.CloseReport{
		Symbol: "BTCUSDT", BeforeSize: 0.01, AfterSize: 0,
	})

	msg := sender.sent[0]
	if !strings.Contains(msg, "0.01") || !strings.Contains(msg, "-> 0") {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestSendFailureIsSwallowed(t *testing.T) {
	sender := &stubSender{err: errors.New("blocked")}
	n := NewTelegramNotifier(sender, 42)

	// Must not panic or propagate.
	n.OrderPlaced(context.Background(), domain.Order{Symbol: "BTCUSDT"})
	n.PositionClosed(context.Background(), domain.CloseReport{Symbol: "BTCUSDT"})
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *TelegramNotifier

	n.OrderPlaced(context.Background(), domain.Order{})
	n.PositionClosed(context.Background(), domain.CloseReport{})

	if NewTelegramNotifier(nil, 42) != nil {
		t.Error("nil sender should yield nil notifier")
	}
	if NewTelegramNotifier(&stubSender{}, 0) != nil {
		t.Error("zero chat id should yield nil notifier")
	}
}

func TestFromEnvUnset(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	if FromEnv() != nil {
		t.Error("unset env should disable notifications")
	}
}
