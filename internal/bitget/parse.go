package bitget

import (
	"strconv"
	"strings"
	"time"

	"tradegate/internal/domain"
)

// The exchange encodes every number as a string. These helpers form the
// single normalization boundary: they either produce typed values or fail
// with DataFormatError, so nothing downstream handles raw payloads.

func parseFloat(field, value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, &DataFormatError{Field: field}
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &DataFormatError{Field: field, Value: value}
	}
	return f, nil
}

// parseOptFloat treats an absent field as zero; a present but non-numeric
// value is still an error.
func parseOptFloat(field, value string) (float64, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	return parseFloat(field, value)
}

func parseInt(field, value string) (int, error) {
	f, err := parseFloat(field, value)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func parseMillis(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, &DataFormatError{Field: field, Value: value}
	}
	return time.UnixMilli(ms).UTC(), nil
}

func parseSide(field, value string) (domain.Side, error) {
	side := domain.Side(strings.ToLower(strings.TrimSpace(value)))
	if !side.IsValid() {
		return "", &DataFormatError{Field: field, Value: value}
	}
	return side, nil
}

func parseHoldSide(field, value string) (domain.PositionSide, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "long":
		return domain.PositionLong, nil
	case "short":
		return domain.PositionShort, nil
	default:
		return "", &DataFormatError{Field: field, Value: value}
	}
}

func parseMarginMode(value string) domain.MarginMode {
	if strings.ToLower(strings.TrimSpace(value)) == "crossed" {
		return domain.MarginModeCrossed
	}
	return domain.MarginModeIsolated
}

// intervalGranularity maps reader intervals to the exchange's granularity
// tokens (hours and above are upper-cased on the wire).
func intervalGranularity(interval string) string {
	switch interval {
	case "1h", "2h", "4h", "6h", "12h", "1d":
		return strings.ToUpper(interval)
	default:
		return interval
	}
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
