package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/features"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/report"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/service"
)

// respondError maps typed errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, features.ErrSchemaMismatch):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "schema mismatch", "details": err.Error()})
	case errors.Is(err, service.ErrInsufficientHistory):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "insufficient sales history", "details": err.Error()})
	case errors.Is(err, report.ErrInvalidThreshold):
		badRequest(c, err.Error())
	case errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found", "details": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "details": err.Error()})
	}
}

func badRequest(c *gin.Context, details string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "bad request", "details": details})
}
