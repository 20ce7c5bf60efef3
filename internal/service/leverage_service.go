package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"tradegate/internal/bitget"
	"tradegate/internal/domain"
)

// LeverageConfigurer is the slice of the exchange client that reads and
// writes leverage settings.
type LeverageConfigurer interface {
	Contract(ctx context.Context, symbol string) (domain.ContractSpec, error)
	LeverageInfo(ctx context.Context, symbol string) (domain.LeverageInfo, error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	SetMarginMode(ctx context.Context, symbol string, mode domain.MarginMode) error
}

// LeverageService validates leverage changes against the contract's
// fetched maximum before any write reaches the exchange.
type LeverageService struct {
	tracer   trace.Tracer
	exchange LeverageConfigurer
}

func NewLeverageService(tracer trace.Tracer, exchange LeverageConfigurer) *LeverageService {
	return &LeverageService{tracer: tracer, exchange: exchange}
}

func (s *LeverageService) LeverageInfo(ctx context.Context, symbol string) (domain.LeverageInfo, error) {
	ctx, span := s.tracer.Start(ctx, "leverage-service.leverage-info")
	defer span.End()

	normalized, err := normalizeSymbol(symbol)
	if err != nil {
		return domain.LeverageInfo{}, err
	}
	return s.exchange.LeverageInfo(ctx, normalized)
}

// SetLeverage applies a new leverage, optionally switching margin mode
// first. The contract maximum is fetched on every call, never assumed;
// an out-of-range request fails locally with InvalidLeverageError and no
// write call is issued.
func (s *LeverageService) SetLeverage(ctx context.Context, symbol string, leverage int, marginMode string) (domain.LeverageInfo, error) {
	ctx, span := s.tracer.Start(ctx, "leverage-service.set-leverage")
	defer span.End()

	normalized, err := normalizeSymbol(symbol)
	if err != nil {
		return domain.LeverageInfo{}, err
	}
	if leverage <= 0 {
		return domain.LeverageInfo{}, &bitget.ValidationError{Field: "leverage", Reason: "leverage must be a positive integer"}
	}

	var mode domain.MarginMode
	if strings.TrimSpace(marginMode) != "" {
		mode = domain.MarginMode(strings.ToLower(strings.TrimSpace(marginMode)))
		if !mode.IsValid() {
			return domain.LeverageInfo{}, &bitget.ValidationError{Field: "margin_mode", Reason: "margin_mode must be isolated or crossed"}
		}
	}

	spec, err := s.exchange.Contract(ctx, normalized)
	if err != nil {
		return domain.LeverageInfo{}, err
	}
	if leverage > spec.MaxLeverage {
		return domain.LeverageInfo{}, &bitget.InvalidLeverageError{Symbol: normalized, Requested: leverage, Max: spec.MaxLeverage}
	}

	if mode != "" {
		if err := s.exchange.SetMarginMode(ctx, normalized, mode); err != nil {
			return domain.LeverageInfo{}, err
		}
	}
	if err := s.exchange.SetLeverage(ctx, normalized, leverage); err != nil {
		return domain.LeverageInfo{}, err
	}

	info := domain.LeverageInfo{
		Symbol:      normalized,
		Leverage:    leverage,
		MarginMode:  mode,
		MaxLeverage: spec.MaxLeverage,
	}
	if mode == "" {
		// Mode unchanged; report what the exchange currently has.
		current, err := s.exchange.LeverageInfo(ctx, normalized)
		if err == nil {
			info.MarginMode = current.MarginMode
		}
	}
	return info, nil
}

// SetMarginMode switches the symbol's margin mode without touching
// leverage.
func (s *LeverageService) SetMarginMode(ctx context.Context, symbol, marginMode string) error {
	ctx, span := s.tracer.Start(ctx, "leverage-service.set-margin-mode")
	defer span.End()

	normalized, err := normalizeSymbol(symbol)
	if err != nil {
		return err
	}
	mode := domain.MarginMode(strings.ToLower(strings.TrimSpace(marginMode)))
	if !mode.IsValid() {
		return &bitget.ValidationError{Field: "margin_mode", Reason: "margin_mode must be isolated or crossed"}
	}
	return s.exchange.SetMarginMode(ctx, normalized, mode)
}
