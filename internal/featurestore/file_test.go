package featurestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/features"
)

func sampleTable() *features.Table {
	start := time.Date(2011, time.June, 1, 0, 0, 0, 0, time.UTC)
	var daily []domain.DailyEntry
	for i := 0; i < 12; i++ {
		daily = append(daily, domain.DailyEntry{Date: start.AddDate(0, 0, i), ProductKey: "20725", Quantity: 3 + i%4, UnitPrice: 1.65})
	}
	return features.NewBuilder(features.WithLogger(zerolog.Nop())).BuildFromDaily(daily)
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "Data", "features_retail.csv"))
	table := sampleTable()

	require.NoError(t, store.Save(ctx, table))
	loaded, err := store.Load(ctx, features.DefaultSchema())
	require.NoError(t, err)
	assert.Equal(t, table.Rows, loaded.Rows)
	assert.Equal(t, 1, loaded.Products)
}

func TestFileStore_Missing(t *testing.T) {
	_, err := NewFileStore(filepath.Join(t.TempDir(), "none.csv")).Load(context.Background(), features.DefaultSchema())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_LoadRejectsOtherWindowMode(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2011, time.June, 1, 0, 0, 0, 0, time.UTC)
	var daily []domain.DailyEntry
	for i := 0; i < 12; i++ {
		daily = append(daily, domain.DailyEntry{Date: start.AddDate(0, 0, 2*i), ProductKey: "22423", Quantity: 2 + i%3, UnitPrice: 12.75})
	}
	builder := features.NewBuilder(features.WithWindowMode(features.WindowCalendar), features.WithLogger(zerolog.Nop()))
	table := builder.BuildFromDaily(daily)
	require.NotZero(t, table.Len())

	store := NewFileStore(filepath.Join(t.TempDir(), "features.csv"))
	require.NoError(t, store.Save(ctx, table))

	_, err := store.Load(ctx, features.DefaultSchema())
	require.Error(t, err)
	assert.ErrorIs(t, err, features.ErrSchemaMismatch)

	loaded, err := store.Load(ctx, builder.Schema())
	require.NoError(t, err)
	assert.Equal(t, table.Rows, loaded.Rows)
	assert.Equal(t, features.WindowCalendar, loaded.Schema.Mode())
}
