// Package featurestore persists built feature tables.
package featurestore

import (
	"context"
	"errors"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/features"
)

// ErrNotFound is returned when no feature table has been saved yet.
var ErrNotFound = errors.New("feature table not found")

// Store saves and loads a whole feature table. Save replaces any previous table.
type Store interface {
	Save(ctx context.Context, t *features.Table) error
	Load(ctx context.Context, schema features.Schema) (*features.Table, error)
}
