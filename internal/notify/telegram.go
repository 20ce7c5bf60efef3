// Package notify pushes trade events to Telegram. Notification is
// fire-and-forget: a send failure is logged, never propagated into the
// trading path.
package notify

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v3"

	"tradegate/internal/domain"
)

type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramNotifier sends order and close notifications to one chat. A
// nil notifier is valid and drops every event.
type TelegramNotifier struct {
	sender messageSender
	chatID int64
}

func NewTelegramNotifier(sender messageSender, chatID int64) *TelegramNotifier {
	if sender == nil || chatID == 0 {
		return nil
	}
	return &TelegramNotifier{sender: sender, chatID: chatID}
}

// FromEnv builds a notifier from TELEGRAM_BOT_TOKEN and
// TELEGRAM_CHAT_ID. Either being unset disables notifications.
func FromEnv() *TelegramNotifier {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatRaw := os.Getenv("TELEGRAM_CHAT_ID")
	if token == "" || chatRaw == "" {
		log.Println("TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set, trade notifications disabled")
		return nil
	}
	chatID, err := strconv.ParseInt(chatRaw, 10, 64)
	if err != nil {
		log.Printf("invalid TELEGRAM_CHAT_ID %q, trade notifications disabled", chatRaw)
		return nil
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		log.Printf("failed to create Telegram bot: %v", err)
		return nil
	}
	return NewTelegramNotifier(bot, chatID)
}

func (n *TelegramNotifier) send(text string) {
	if n == nil {
		return
	}
	if _, err := n.sender.Send(tele.ChatID(n.chatID), text, tele.ModeMarkdown); err != nil {
		log.Printf("telegram send failed: %v", err)
	}
}

func (n *TelegramNotifier) OrderPlaced(ctx context.Context, order domain.Order) {
	_ = ctx
	if n == nil {
		return
	}
	text := fmt.Sprintf("*Order placed* %s\n%s %s qty %s",
		order.Symbol, order.Side, order.Type, trimFloat(order.Quantity))
	if order.Type == domain.OrderTypeLimit {
		text += fmt.Sprintf(" @ %s", trimFloat(order.Price))
	}
	text += fmt.Sprintf("\nid `%s`", order.OrderID)
	n.send(text)
}

func (n *TelegramNotifier) PositionClosed(ctx context.Context, report domain.CloseReport) {
	_ = ctx
	if n == nil {
		return
	}
	n.send(fmt.Sprintf("*Position closed* %s\nsize %s -> %s",
		report.Symbol, trimFloat(report.BeforeSize), trimFloat(report.AfterSize)))
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
