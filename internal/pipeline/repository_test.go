package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/repository/postgres"
)

func setupRunRepository(t *testing.T) *Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("forecaster"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := postgres.Open(dsn, 2)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))

	return NewRepository(db.DB)
}

func TestRepository_RunLifecycle(t *testing.T) {
	repo := setupRunRepository(t)
	ctx := context.Background()

	run := &TrainingRun{
		ID:         uuid.New(),
		Status:     StatusPending,
		WindowMode: "rows",
		StartedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.CreateRun(ctx, run))

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Nil(t, got.MAE)
	assert.Empty(t, got.ErrorMessage)

	mae := 3.25
	done := run.StartedAt.Add(time.Minute)
	run.Status = StatusCompleted
	run.FeatureRows = 120
	run.MAE = &mae
	run.ModelVersion = "v-test"
	run.CompletedAt = &done
	require.NoError(t, repo.UpdateRun(ctx, run))

	got, err = repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 120, got.FeatureRows)
	require.NotNil(t, got.MAE)
	assert.InDelta(t, 3.25, *got.MAE, 1e-9)
	assert.Equal(t, time.Minute, got.Duration())

	runs, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	_, err = repo.GetRun(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRunNotFound)
}
