package bitget

import "fmt"

// TransportError covers network-level failures before a usable exchange
// envelope was read. Ambiguous marks timeouts on mutating calls: the
// exchange may have received the request, so the caller must re-query state
// before retrying.
type TransportError struct {
	Op        string
	Ambiguous bool
	Err       error
}

func (e *TransportError) Error() string {
	if e.Ambiguous {
		return fmt.Sprintf("%s: transport failure with ambiguous outcome: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ExchangeError carries the exchange's own rejection verbatim. Code and
// message are never reinterpreted on the way up.
type ExchangeError struct {
	Code    string
	Message string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("exchange error %s: %s", e.Code, e.Message)
}

// ValidationError is raised locally, before any network call. Always safe
// to fix the input and retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// DataFormatError marks a field the exchange returned missing or
// non-numeric where a number was expected. It fails the whole response at
// the normalization boundary so nothing downstream sees raw payloads.
type DataFormatError struct {
	Field string
	Value string
}

func (e *DataFormatError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("malformed exchange response: missing field %q", e.Field)
	}
	return fmt.Sprintf("malformed exchange response: field %q has non-numeric value %q", e.Field, e.Value)
}

// AlreadyFinalOrderError distinguishes the common cancel race (the order
// filled or was cancelled between query and cancel) from a true failure.
type AlreadyFinalOrderError struct {
	OrderID string
	Code    string
	Message string
}

func (e *AlreadyFinalOrderError) Error() string {
	return fmt.Sprintf("order %s already final: %s (%s)", e.OrderID, e.Message, e.Code)
}

// InvalidLeverageError is raised locally when a requested leverage falls
// outside the contract's fetched bounds; no write reaches the exchange.
type InvalidLeverageError struct {
	Symbol    string
	Requested int
	Max       int
}

func (e *InvalidLeverageError) Error() string {
	return fmt.Sprintf("invalid leverage %d for %s: must be between 1 and %d", e.Requested, e.Symbol, e.Max)
}
