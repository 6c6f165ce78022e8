package domain

import "strings"

// Severity classifies a restock alert.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
)

// StockHealth classifies a single forecast against the operator's stock limits.
type StockHealth string

const (
	StockUnderstock StockHealth = "UNDERSTOCK"
	StockHealthy    StockHealth = "HEALTHY"
	StockOverstock  StockHealth = "OVERSTOCK"
)

// Trend compares a forecast with the quantity sold seven entries earlier.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
)

var severityLabels = map[Severity]string{
	SeverityCritical: "Critical: restock now",
	SeverityWarning:  "Warning: below alert level",
}

var severityCodes = map[string]Severity{
	"critical": SeverityCritical,
	"warning":  SeverityWarning,
}

// Label returns a human-readable label for a severity.
func (s Severity) Label() string {
	if label, ok := severityLabels[s]; ok {
		return label
	}

	return "Unknown"
}

// ParseSeverity returns the severity for a given label (case-insensitive).
func ParseSeverity(label string) (Severity, bool) {
	s, ok := severityCodes[strings.ToLower(strings.TrimSpace(label))]

	return s, ok
}

// ClassifySeverity returns CRITICAL below the critical threshold and WARNING otherwise.
// Callers only classify rows already below the alert threshold.
func ClassifySeverity(predicted, criticalBelow float64) Severity {
	if predicted < criticalBelow {
		return SeverityCritical
	}
	return SeverityWarning
}

// ClassifyStock compares a forecast with safety stock and the overstock limit.
func ClassifyStock(predicted, safetyStock, overstockLimit float64) StockHealth {
	switch {
	case predicted < safetyStock:
		return StockUnderstock
	case predicted > overstockLimit:
		return StockOverstock
	default:
		return StockHealthy
	}
}

// ClassifyTrend reports whether the forecast is above the lagged quantity.
func ClassifyTrend(predicted, lag float64) Trend {
	if predicted > lag {
		return TrendIncreasing
	}
	return TrendDecreasing
}
