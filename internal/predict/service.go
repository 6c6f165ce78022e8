// Package predict serves predictions from a trained model.
package predict

import (
	"fmt"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/features"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/forecast"
)

// Service predicts demand for feature rows. It holds only the immutable model
// and is safe for concurrent use without locking.
type Service struct {
	model  *forecast.Model
	schema features.Schema
}

// NewService binds a model to the schema the caller builds features with.
// It fails with a SchemaMismatchError when the two differ.
func NewService(model *forecast.Model, serving features.Schema) (*Service, error) {
	if model == nil || model.Regressor == nil {
		return nil, fmt.Errorf("prediction service needs a trained model")
	}
	if err := model.Schema.Check(serving); err != nil {
		return nil, err
	}
	return &Service{model: model, schema: model.Schema}, nil
}

// Schema returns the schema requests must conform to.
func (s *Service) Schema() features.Schema {
	return s.schema
}

// Model returns the served model.
func (s *Service) Model() *forecast.Model {
	return s.model
}

// Predict returns one prediction per row, in input order.
// A single row and a batch go through the same path.
func (s *Service) Predict(rows ...domain.FeatureRow) ([]float64, error) {
	if len(rows) == 0 {
		return []float64{}, nil
	}
	for i, row := range rows {
		if err := s.schema.Validate(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	out, err := s.model.Regressor.Predict(s.schema.Matrix(rows))
	if err != nil {
		return nil, fmt.Errorf("failed to predict: %w", err)
	}
	return out, nil
}

// PredictOne is Predict for a single row.
func (s *Service) PredictOne(row domain.FeatureRow) (float64, error) {
	out, err := s.Predict(row)
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// PredictColumns predicts for tabular input. columns must equal the schema's
// names in order; values are never reordered or coerced.
func (s *Service) PredictColumns(columns []string, values [][]float64) ([]float64, error) {
	if err := s.schema.ValidateColumns(columns); err != nil {
		return nil, err
	}
	rows := make([]domain.FeatureRow, len(values))
	for i, v := range values {
		row, err := s.schema.FromVector(v)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows[i] = row
	}
	return s.Predict(rows...)
}
