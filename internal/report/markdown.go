package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
)

// RenderMarkdown renders a report summary as Markdown.
func RenderMarkdown(r *domain.Report) string {
	var sb strings.Builder

	sb.WriteString("# Inventory Restock Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.ModelVersion != "" {
		sb.WriteString(fmt.Sprintf("Model: `%s`\n\n", r.ModelVersion))
	}

	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Alert threshold | %s |\n", domain.FormatDemand(r.AlertThreshold)))
	sb.WriteString(fmt.Sprintf("| Critical below | %s |\n", domain.FormatDemand(r.CriticalThreshold)))
	sb.WriteString(fmt.Sprintf("| Products evaluated | %d |\n", r.ProductsEvaluated))
	sb.WriteString(fmt.Sprintf("| Critical | %d |\n", r.Critical))
	sb.WriteString(fmt.Sprintf("| Warning | %d |\n", r.Warning))
	sb.WriteString(fmt.Sprintf("| Not forecastable | %d |\n", r.Uncovered))
	sb.WriteString("\n")

	if len(r.Items) == 0 {
		sb.WriteString("No products below the alert threshold.\n\n")
	} else {
		sb.WriteString("## Flagged Products\n\n")
		sb.WriteString("| Product | Last Date | Current Qty | Predicted | Severity |\n")
		sb.WriteString("|---------|-----------|-------------|-----------|----------|\n")
		for _, item := range r.Items {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s |\n",
				item.ProductKey,
				item.Date.Format("2006-01-02"),
				item.CurrentQuantity,
				domain.FormatDemand(item.PredictedDemand),
				item.Severity.Label(),
			))
		}
		sb.WriteString("\n")
	}

	if r.Uncovered > 0 {
		sb.WriteString(fmt.Sprintf("%d products have too little sales history for a forecast and were not evaluated.\n", r.Uncovered))
	}
	return sb.String()
}
