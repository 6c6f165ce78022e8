package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
)

// CSVFilename is the download name of the exported report.
const CSVFilename = "inventory_report.csv"

// RenderCSV renders the flagged products in report order.
func RenderCSV(r *domain.Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"product_key", "current_quantity", "predicted_demand", "severity"}); err != nil {
		return nil, fmt.Errorf("failed to write report header: %w", err)
	}
	for _, item := range r.Items {
		record := []string{
			item.ProductKey,
			strconv.Itoa(item.CurrentQuantity),
			domain.FormatDemand(item.PredictedDemand),
			string(item.Severity),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write report row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
