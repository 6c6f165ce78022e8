package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/report"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/service"
)

type ReportHandler struct {
	service *service.ForecastService
}

func NewReportHandler(service *service.ForecastService) *ReportHandler {
	return &ReportHandler{service: service}
}

// GetReport serves GET /api/v1/report?threshold=&severity=&format=json|csv|markdown
func (h *ReportHandler) GetReport(c *gin.Context) {
	threshold := h.service.DefaultThreshold()
	if raw := strings.TrimSpace(c.Query("threshold")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			badRequest(c, "threshold must be a number")
			return
		}
		if err := report.CheckThreshold(v); err != nil {
			badRequest(c, err.Error())
			return
		}
		threshold = v
	}

	var severity domain.Severity
	if raw := strings.TrimSpace(c.Query("severity")); raw != "" {
		s, ok := domain.ParseSeverity(raw)
		if !ok {
			badRequest(c, "severity must be critical or warning")
			return
		}
		severity = s
	}

	r, err := h.service.Report(c.Request.Context(), threshold)
	if err != nil {
		respondError(c, err)
		return
	}
	if severity != "" {
		r = report.FilterSeverity(r, severity)
	}

	switch strings.ToLower(c.DefaultQuery("format", "json")) {
	case "json":
		c.JSON(http.StatusOK, r)
	case "csv":
		body, err := report.RenderCSV(r)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.CSVFilename))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", body)
	case "markdown", "md":
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(report.RenderMarkdown(r)))
	default:
		badRequest(c, "format must be json, csv or markdown")
	}
}
