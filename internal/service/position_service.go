package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"tradegate/internal/bitget"
	"tradegate/internal/domain"
)

// PositionReader is the slice of the exchange client the position
// service reads from. Every read is a fresh fetch; positions are never
// served from a cache because other actors mutate them between calls.
type PositionReader interface {
	Positions(ctx context.Context) ([]domain.Position, error)
}

// CloseIncompleteError reports that the close order was accepted but the
// position did not reach zero size.
type CloseIncompleteError struct {
	Symbol    string
	Remaining float64
}

func (e *CloseIncompleteError) Error() string {
	return fmt.Sprintf("position %s not flattened, %v remaining", e.Symbol, e.Remaining)
}

// PositionService owns the derived close action: flattening a position
// is a read, a computed opposite-side reduce-only order, and a verifying
// re-read, not a single exchange call.
type PositionService struct {
	tracer   trace.Tracer
	reader   PositionReader
	exchange ExchangeTrader
	journal  TradeJournal
	notifier TradeNotifier
}

func NewPositionService(tracer trace.Tracer, reader PositionReader, exchange ExchangeTrader, journal TradeJournal, notifier TradeNotifier) *PositionService {
	return &PositionService{tracer: tracer, reader: reader, exchange: exchange, journal: journal, notifier: notifier}
}

// fetchPosition returns the current position for symbol, or a zero-size
// placeholder when the exchange lists none.
func (s *PositionService) fetchPosition(ctx context.Context, symbol string) (domain.Position, error) {
	positions, err := s.reader.Positions(ctx)
	if err != nil {
		return domain.Position{}, err
	}
	for _, p := range positions {
		if p.Symbol == symbol && p.Size > 0 {
			return p, nil
		}
	}
	return domain.Position{Symbol: symbol}, nil
}

// ClosePosition flattens one symbol. Success means the position reached
// size zero, not merely that the order was accepted; the report carries
// before and after sizes so the caller can see what actually happened.
func (s *PositionService) ClosePosition(ctx context.Context, symbol string) (domain.CloseReport, error) {
	ctx, span := s.tracer.Start(ctx, "position-service.close-position")
	defer span.End()

	normalized, err := normalizeSymbol(symbol)
	if err != nil {
		return domain.CloseReport{}, err
	}
	return s.closeSymbol(ctx, normalized)
}

func (s *PositionService) closeSymbol(ctx context.Context, symbol string) (domain.CloseReport, error) {
	position, err := s.fetchPosition(ctx, symbol)
	if err != nil {
		return domain.CloseReport{}, err
	}
	if position.Size == 0 {
		// Nothing to close is a success, not an error.
		return domain.CloseReport{Symbol: symbol}, nil
	}

	beforeSize := position.Size
	order, err := s.submitFlatten(ctx, position)
	if err != nil {
		var exErr *bitget.ExchangeError
		if errors.As(err, &exErr) && bitget.IsPositionChangedCode(exErr.Code) {
			// Another actor shrank the position between read and submit.
			// Re-fetch and retry the computation once.
			position, err = s.fetchPosition(ctx, symbol)
			if err != nil {
				return domain.CloseReport{}, err
			}
			if position.Size == 0 {
				return domain.CloseReport{Symbol: symbol, BeforeSize: beforeSize}, nil
			}
			order, err = s.submitFlatten(ctx, position)
		}
		if err != nil {
			return domain.CloseReport{Symbol: symbol, BeforeSize: beforeSize}, err
		}
	}

	after, err := s.fetchPosition(ctx, symbol)
	if err != nil {
		return domain.CloseReport{}, err
	}

	report := domain.CloseReport{
		Symbol:     symbol,
		BeforeSize: beforeSize,
		AfterSize:  after.Size,
		Order:      &order,
	}
	if after.Size > 0 {
		return report, &CloseIncompleteError{Symbol: symbol, Remaining: after.Size}
	}

	if s.journal != nil {
		if err := s.journal.RecordClose(ctx, report); err != nil {
			log.Printf("close journal write failed for %s: %v", symbol, err)
		}
	}
	if s.notifier != nil {
		s.notifier.PositionClosed(ctx, report)
	}
	return report, nil
}

// submitFlatten places the market reduce-only order that takes the
// position to zero: opposite side, exactly the current size.
func (s *PositionService) submitFlatten(ctx context.Context, position domain.Position) (domain.Order, error) {
	return s.exchange.PlaceOrder(ctx, bitget.PlaceOrderRequest{
		Symbol:     position.Symbol,
		Side:       position.Side.FlattenSide(),
		Type:       domain.OrderTypeMarket,
		Quantity:   position.Size,
		ReduceOnly: true,
		MarginMode: position.MarginMode,
	})
}

// CloseAllPositions flattens every open position. Symbols close
// concurrently and independently: one failure never aborts the others,
// and the aggregate reports each symbol's outcome plus an AllClosed flag
// that is true only when everything flattened.
func (s *PositionService) CloseAllPositions(ctx context.Context) (domain.CloseAllReport, error) {
	ctx, span := s.tracer.Start(ctx, "position-service.close-all-positions")
	defer span.End()

	positions, err := s.reader.Positions(ctx)
	if err != nil {
		return domain.CloseAllReport{}, err
	}

	report := domain.CloseAllReport{
		Results:   make(map[string]domain.CloseOutcome),
		AllClosed: true,
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, p := range positions {
		if p.Size <= 0 {
			continue
		}
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			closeReport, err := s.closeSymbol(ctx, symbol)
			outcome := domain.CloseOutcome{Success: err == nil}
			if err != nil {
				outcome.Error = closeErrorFrom(err)
				if closeReport.Symbol != "" {
					outcome.Report = &closeReport
				}
			} else {
				outcome.Report = &closeReport
			}

			mu.Lock()
			report.Results[symbol] = outcome
			if !outcome.Success {
				report.AllClosed = false
			}
			mu.Unlock()
		}(p.Symbol)
	}
	wg.Wait()

	return report, nil
}

// closeErrorFrom maps a close failure into the per-symbol error shape.
// Exchange rejections keep their code and message verbatim.
func closeErrorFrom(err error) *domain.CloseError {
	var exErr *bitget.ExchangeError
	if errors.As(err, &exErr) {
		return &domain.CloseError{Code: exErr.Code, Message: exErr.Message}
	}
	var trErr *bitget.TransportError
	if errors.As(err, &trErr) {
		code := "transport"
		if trErr.Ambiguous {
			code = "transport_ambiguous"
		}
		return &domain.CloseError{Code: code, Message: trErr.Error()}
	}
	var incomplete *CloseIncompleteError
	if errors.As(err, &incomplete) {
		return &domain.CloseError{Code: "close_incomplete", Message: incomplete.Error()}
	}
	return &domain.CloseError{Code: "internal", Message: err.Error()}
}
