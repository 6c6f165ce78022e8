package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoundDemand(t *testing.T) {
	assert.Equal(t, 13.43, RoundDemand(94.0/7.0))
	assert.Equal(t, 2.68, RoundDemand(2.675))
	assert.Equal(t, "8.00", FormatDemand(8))
	assert.Equal(t, "13.43", FormatDemand(94.0/7.0))
}

func TestCalendarFeatures(t *testing.T) {
	tests := []struct {
		date    time.Time
		dow     int
		month   int
		weekend bool
	}{
		{time.Date(2011, time.December, 5, 0, 0, 0, 0, time.UTC), 0, 12, false},
		{time.Date(2011, time.December, 9, 0, 0, 0, 0, time.UTC), 4, 12, false},
		{time.Date(2011, time.December, 10, 0, 0, 0, 0, time.UTC), 5, 12, true},
		{time.Date(2011, time.December, 11, 23, 59, 0, 0, time.UTC), 6, 12, true},
	}
	for _, tt := range tests {
		dow, month, weekend := CalendarFeatures(tt.date)
		assert.Equal(t, tt.dow, dow, tt.date.String())
		assert.Equal(t, tt.month, month)
		assert.Equal(t, tt.weekend, weekend)
	}
}

func TestClassifiers(t *testing.T) {
	assert.Equal(t, SeverityCritical, ClassifySeverity(8, 10))
	assert.Equal(t, SeverityWarning, ClassifySeverity(10, 10))

	assert.Equal(t, StockUnderstock, ClassifyStock(19.9, 20, 100))
	assert.Equal(t, StockHealthy, ClassifyStock(100, 20, 100))
	assert.Equal(t, StockOverstock, ClassifyStock(100.5, 20, 100))

	assert.Equal(t, TrendIncreasing, ClassifyTrend(12, 10))
	assert.Equal(t, TrendDecreasing, ClassifyTrend(10, 10))

	s, ok := ParseSeverity(" Critical ")
	assert.True(t, ok)
	assert.Equal(t, SeverityCritical, s)
	assert.Equal(t, "Unknown", Severity("x").Label())
}
