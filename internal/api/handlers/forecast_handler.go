package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/features"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/service"
)

const dateLayout = "2006-01-02"

type ForecastHandler struct {
	service *service.ForecastService
}

func NewForecastHandler(service *service.ForecastService) *ForecastHandler {
	return &ForecastHandler{service: service}
}

type batchRequest struct {
	Columns []string    `json:"columns" binding:"required"`
	Rows    [][]float64 `json:"rows" binding:"required"`
}

// Predict serves GET /predict?day=&month=&weekend=&price=&lag=&rolling=
func (h *ForecastHandler) Predict(c *gin.Context) {
	row, err := parsePredictQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	predicted, err := h.service.Predict(row)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"predicted_inventory_needed": domain.RoundDemand(predicted),
		"status":                     "success",
	})
}

// PredictBatch serves POST /api/v1/predict/batch
func (h *ForecastHandler) PredictBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	predicted, err := h.service.PredictBatch(req.Columns, req.Rows)
	if err != nil {
		respondError(c, err)
		return
	}
	for i, v := range predicted {
		predicted[i] = domain.RoundDemand(v)
	}

	c.JSON(http.StatusOK, gin.H{"predictions": predicted})
}

func (h *ForecastHandler) GetProducts(c *gin.Context) {
	products := h.service.Products()
	if covered := strings.TrimSpace(c.Query("covered")); covered != "" {
		want, err := strconv.ParseBool(covered)
		if err != nil {
			badRequest(c, "covered must be true or false")
			return
		}
		filtered := make([]domain.Product, 0, len(products))
		for _, p := range products {
			if p.Covered == want {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

// ForecastProduct serves GET /api/v1/products/:key/forecast?date=&price=&lag=&rolling=
func (h *ForecastHandler) ForecastProduct(c *gin.Context) {
	req := service.ForecastRequest{ProductKey: c.Param("key")}

	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		date, err := time.Parse(dateLayout, raw)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD")
			return
		}
		req.Date = date
	}

	var err error
	if req.UnitPrice, err = optionalFloat(c, "price", features.ColUnitPrice); err != nil {
		respondError(c, err)
		return
	}
	if req.QuantityLag7, err = optionalFloat(c, "lag", features.ColQuantityLag7); err != nil {
		respondError(c, err)
		return
	}
	if req.RollingMean7, err = optionalFloat(c, "rolling", features.ColRollingMean7); err != nil {
		respondError(c, err)
		return
	}

	forecast, err := h.service.ForecastProduct(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, forecast)
}

func (h *ForecastHandler) GetModel(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ModelInfo())
}

// parsePredictQuery maps the query parameters onto a feature row. A missing or
// malformed parameter is a schema mismatch.
func parsePredictQuery(c *gin.Context) (domain.FeatureRow, error) {
	var row domain.FeatureRow
	var missing []string

	ints := []struct {
		param, column string
		dst           *int
	}{
		{"day", features.ColDayOfWeek, &row.DayOfWeek},
		{"month", features.ColMonth, &row.Month},
	}
	for _, p := range ints {
		raw, ok := c.GetQuery(p.param)
		if !ok || strings.TrimSpace(raw) == "" {
			missing = append(missing, p.column)
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return row, &features.SchemaMismatchError{Reason: fmt.Sprintf("%s must be an integer, got %q", p.column, raw)}
		}
		*p.dst = v
	}

	if raw, ok := c.GetQuery("weekend"); !ok || strings.TrimSpace(raw) == "" {
		missing = append(missing, features.ColIsWeekend)
	} else {
		weekend, err := parseFlag(raw)
		if err != nil {
			return row, &features.SchemaMismatchError{Reason: fmt.Sprintf("%s must be 0 or 1, got %q", features.ColIsWeekend, raw)}
		}
		row.IsWeekend = weekend
	}

	floats := []struct {
		param, column string
		dst           *float64
	}{
		{"price", features.ColUnitPrice, &row.UnitPrice},
		{"lag", features.ColQuantityLag7, &row.QuantityLag7},
		{"rolling", features.ColRollingMean7, &row.RollingMean7},
	}
	for _, p := range floats {
		v, err := optionalFloat(c, p.param, p.column)
		if err != nil {
			return row, err
		}
		if v == nil {
			missing = append(missing, p.column)
			continue
		}
		*p.dst = *v
	}

	if len(missing) > 0 {
		return row, &features.SchemaMismatchError{Reason: "missing " + strings.Join(missing, ", ")}
	}
	return row, nil
}

func optionalFloat(c *gin.Context, param, column string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(param))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &features.SchemaMismatchError{Reason: fmt.Sprintf("%s must be a number, got %q", column, raw)}
	}
	return &v, nil
}

func parseFlag(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid flag %q", raw)
}
