package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"tradegate/internal/bitget"
	"tradegate/internal/domain"
)

// fakeExchange is a behavioral stand-in for the signed client. Reduce-only
// fills shrink the held position so close flows can verify against a
// re-fetch, the way they do against the real exchange.
type fakeExchange struct {
	mu sync.Mutex

	positions      map[string]domain.Position
	positionsErr   error
	positionsCalls int

	placed    []bitget.PlaceOrderRequest
	placeErr  map[string]error   // symbol -> permanent rejection
	raceOnce  map[string]float64 // symbol -> size after a one-shot position-changed rejection
	nextOrder int

	cancelSymbol string
	cancelID     string
	cancelErr    error
}

func newFakeExchange(positions ...domain.Position) *fakeExchange {
	f := &fakeExchange{
		positions: make(map[string]domain.Position),
		placeErr:  make(map[string]error),
		raceOnce:  make(map[string]float64),
	}
	for _, p := range positions {
		f.positions[p.Symbol] = p
	}
	return f
}

func (f *fakeExchange) Positions(ctx context.Context) ([]domain.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positionsCalls++
	if f.positionsErr != nil {
		return nil, f.positionsErr
	}
	out := make([]domain.Position, 0, len(f.positions))
	for _, p := range f.positions {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeExchange) PlaceOrder(ctx context.Context, req bitget.PlaceOrderRequest) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, req)

	if err := f.placeErr[req.Symbol]; err != nil {
		return domain.Order{}, err
	}
	if newSize, ok := f.raceOnce[req.Symbol]; ok {
		delete(f.raceOnce, req.Symbol)
		p := f.positions[req.Symbol]
		p.Size = newSize
		f.positions[req.Symbol] = p
		return domain.Order{}, &bitget.ExchangeError{Code: "40757", Message: "position has changed"}
	}
	if req.ReduceOnly {
		p := f.positions[req.Symbol]
		p.Size -= req.Quantity
		if p.Size < 1e-12 {
			p.Size = 0
		}
		f.positions[req.Symbol] = p
	}
	f.nextOrder++
	return domain.Order{
		Symbol:     req.Symbol,
		Side:       req.Side,
		Type:       req.Type,
		Quantity:   req.Quantity,
		Price:      req.Price,
		OrderID:    "ord-" + strconv.Itoa(f.nextOrder),
		Status:     "live",
		ReduceOnly: req.ReduceOnly,
		CreatedAt:  time.Unix(0, 0).UTC(),
	}, nil
}

func (f *fakeExchange) CancelOrder(ctx context.Context, symbol, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelSymbol = symbol
	f.cancelID = orderID
	return f.cancelErr
}

func (f *fakeExchange) placedOrders() []bitget.PlaceOrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bitget.PlaceOrderRequest, len(f.placed))
	copy(out, f.placed)
	return out
}

type stubJournal struct {
	mu     sync.Mutex
	orders []domain.Order
	closes []domain.CloseReport
	err    error
}

func (j *stubJournal) RecordOrder(ctx context.Context, order domain.Order) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.orders = append(j.orders, order)
	return j.err
}

func (j *stubJournal) RecordClose(ctx context.Context, report domain.CloseReport) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closes = append(j.closes, report)
	return j.err
}

type stubNotifier struct {
	mu     sync.Mutex
	orders []domain.Order
	closes []domain.CloseReport
}

func (n *stubNotifier) OrderPlaced(ctx context.Context, order domain.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order)
}

func (n *stubNotifier) PositionClosed(ctx context.Context, report domain.CloseReport) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closes = append(n.closes, report)
}
