package domain

import "time"

// ReportItem is one product flagged by the threshold report.
type ReportItem struct {
	ProductKey      string    `json:"product_key"`
	Date            time.Time `json:"date"`
	CurrentQuantity int       `json:"current_quantity"`
	PredictedDemand float64   `json:"predicted_demand"`
	Severity        Severity  `json:"severity"`
}

// Report is the ranked restock report for the whole catalog.
// Uncovered products could not be forecast at all; they are not healthy.
type Report struct {
	GeneratedAt       time.Time    `json:"generated_at"`
	ModelVersion      string       `json:"model_version"`
	AlertThreshold    float64      `json:"alert_threshold"`
	CriticalThreshold float64      `json:"critical_threshold"`
	ProductsEvaluated int          `json:"products_evaluated"`
	Uncovered         int          `json:"uncovered"`
	UncoveredKeys     []string     `json:"uncovered_keys"`
	Critical          int          `json:"critical"`
	Warning           int          `json:"warning"`
	Items             []ReportItem `json:"items"`
}

// ProductForecast is the single-item forecast shown to an operator.
type ProductForecast struct {
	ProductKey      string      `json:"product_key"`
	TargetDate      time.Time   `json:"target_date"`
	Features        FeatureRow  `json:"features"`
	PredictedDemand float64     `json:"predicted_demand"`
	Trend           Trend       `json:"trend"`
	Health          StockHealth `json:"health"`
	SafetyStock     float64     `json:"safety_stock"`
	OverstockLimit  float64     `json:"overstock_limit"`
}

// ModelInfo describes the model currently being served.
type ModelInfo struct {
	Version     string    `json:"version"`
	TrainedAt   time.Time `json:"trained_at"`
	Fingerprint string    `json:"fingerprint"`
	Columns     []string  `json:"columns"`
	Label       string    `json:"label"`
	WindowMode  string    `json:"window_mode"`
	MAE         float64   `json:"mae"`
	TrainRows   int       `json:"train_rows"`
	TestRows    int       `json:"test_rows"`
}
