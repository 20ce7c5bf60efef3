package service

import (
	"context"
	"log"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"tradegate/internal/bitget"
	"tradegate/internal/domain"
)

// ExchangeTrader is the mutating slice of the exchange client.
type ExchangeTrader interface {
	PlaceOrder(ctx context.Context, req bitget.PlaceOrderRequest) (domain.Order, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
}

// TradeJournal records submitted orders and close reports for audit.
// Journal failures are logged and never fail the trade itself.
type TradeJournal interface {
	RecordOrder(ctx context.Context, order domain.Order) error
	RecordClose(ctx context.Context, report domain.CloseReport) error
}

// TradeNotifier pushes trade events to an external channel.
type TradeNotifier interface {
	OrderPlaced(ctx context.Context, order domain.Order)
	PositionClosed(ctx context.Context, report domain.CloseReport)
}

// PlaceOrderParams is the caller-supplied order intent before validation.
type PlaceOrderParams struct {
	Symbol   string
	Side     string
	Type     string
	Quantity float64
	Price    float64
}

// OrderService validates and submits orders. All validation happens
// before any network call; the exchange's own rejections pass through
// verbatim.
type OrderService struct {
	tracer   trace.Tracer
	exchange ExchangeTrader
	journal  TradeJournal
	notifier TradeNotifier
}

func NewOrderService(tracer trace.Tracer, exchange ExchangeTrader, journal TradeJournal, notifier TradeNotifier) *OrderService {
	return &OrderService{tracer: tracer, exchange: exchange, journal: journal, notifier: notifier}
}

func (s *OrderService) validate(params PlaceOrderParams) (bitget.PlaceOrderRequest, error) {
	symbol, err := normalizeSymbol(params.Symbol)
	if err != nil {
		return bitget.PlaceOrderRequest{}, err
	}
	side := domain.Side(strings.ToLower(strings.TrimSpace(params.Side)))
	if !side.IsValid() {
		return bitget.PlaceOrderRequest{}, &bitget.ValidationError{Field: "side", Reason: "side must be buy or sell"}
	}
	orderType := domain.OrderType(strings.ToLower(strings.TrimSpace(params.Type)))
	if !orderType.IsValid() {
		return bitget.PlaceOrderRequest{}, &bitget.ValidationError{Field: "type", Reason: "type must be market or limit"}
	}
	if params.Quantity <= 0 {
		return bitget.PlaceOrderRequest{}, &bitget.ValidationError{Field: "quantity", Reason: "quantity must be positive"}
	}

	req := bitget.PlaceOrderRequest{
		Symbol:   symbol,
		Side:     side,
		Type:     orderType,
		Quantity: params.Quantity,
	}
	switch orderType {
	case domain.OrderTypeLimit:
		if params.Price <= 0 {
			return bitget.PlaceOrderRequest{}, &bitget.ValidationError{Field: "price", Reason: "limit orders require a positive price"}
		}
		req.Price = params.Price
	case domain.OrderTypeMarket:
		// A price supplied with a market order is inconsistent intent;
		// drop it rather than forward it.
		req.Price = 0
	}
	return req, nil
}

func (s *OrderService) PlaceOrder(ctx context.Context, params PlaceOrderParams) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order-service.place-order")
	defer span.End()

	req, err := s.validate(params)
	if err != nil {
		return domain.Order{}, err
	}

	order, err := s.exchange.PlaceOrder(ctx, req)
	if err != nil {
		return domain.Order{}, err
	}

	if s.journal != nil {
		if err := s.journal.RecordOrder(ctx, order); err != nil {
			log.Printf("order journal write failed for %s: %v", order.OrderID, err)
		}
	}
	if s.notifier != nil {
		s.notifier.OrderPlaced(ctx, order)
	}
	return order, nil
}

// CancelOrder cancels one pending order. An AlreadyFinalOrderError from
// the exchange is passed through so callers can tell a cancel race from
// a true failure.
func (s *OrderService) CancelOrder(ctx context.Context, symbol, orderID string) error {
	ctx, span := s.tracer.Start(ctx, "order-service.cancel-order")
	defer span.End()

	normalized, err := normalizeSymbol(symbol)
	if err != nil {
		return err
	}
	if strings.TrimSpace(orderID) == "" {
		return &bitget.ValidationError{Field: "order_id", Reason: "order_id must not be empty"}
	}
	return s.exchange.CancelOrder(ctx, normalized, orderID)
}
