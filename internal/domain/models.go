// internal/domain/models.go
package domain

import "time"

// Transaction is a single cleaned sales line handed over by preprocessing.
type Transaction struct {
	InvoiceDate time.Time `json:"invoice_date" db:"invoice_date"`
	ProductKey  string    `json:"product_key" db:"product_key"`
	Quantity    int       `json:"quantity" db:"quantity"`
	UnitPrice   float64   `json:"unit_price" db:"unit_price"`
}

// DailyEntry is one (date, product) point of a product's daily series.
// Quantity is the day's summed quantity, UnitPrice the mean price of the day's lines.
type DailyEntry struct {
	Date       time.Time `json:"date" db:"date"`
	ProductKey string    `json:"product_key" db:"product_key"`
	Quantity   int       `json:"quantity" db:"quantity"`
	UnitPrice  float64   `json:"unit_price" db:"unit_price"`
}

// FeatureRow is one model input row.
// Date, ProductKey and Quantity are provenance and label; they are never fed to the model.
type FeatureRow struct {
	Date         time.Time `json:"date"`
	ProductKey   string    `json:"product_key"`
	DayOfWeek    int       `json:"day_of_week"`
	Month        int       `json:"month"`
	IsWeekend    bool      `json:"is_weekend"`
	UnitPrice    float64   `json:"unit_price"`
	QuantityLag7 float64   `json:"quantity_lag_7"`
	RollingMean7 float64   `json:"rolling_mean_7"`
	Quantity     int       `json:"quantity"`
}

// CalendarFeatures derives day_of_week (Monday=0), month and is_weekend from a date.
func CalendarFeatures(date time.Time) (dayOfWeek, month int, weekend bool) {
	dayOfWeek = (int(date.Weekday()) + 6) % 7
	month = int(date.Month())
	weekend = dayOfWeek >= 5
	return dayOfWeek, month, weekend
}

// Day truncates t to its calendar date in UTC, keeping the wall-clock date of t.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Product summarises a product's history for listings.
type Product struct {
	ProductKey   string    `json:"product_key"`
	SeriesLength int       `json:"series_length"`
	FirstDate    time.Time `json:"first_date"`
	LastDate     time.Time `json:"last_date"`
	Covered      bool      `json:"covered"`
}
