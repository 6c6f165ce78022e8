package forecast

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/features"
)

// syntheticTable builds a table whose quantity follows the weekday pattern,
// so a forest can learn it from day_of_week and the lag.
func syntheticTable(t *testing.T, products, days int) *features.Table {
	t.Helper()
	start := time.Date(2011, time.January, 3, 0, 0, 0, 0, time.UTC)
	var daily []domain.DailyEntry
	for p := 0; p < products; p++ {
		key := string(rune('A' + p))
		for d := 0; d < days; d++ {
			date := start.AddDate(0, 0, d)
			dow, _, _ := domain.CalendarFeatures(date)
			daily = append(daily, domain.DailyEntry{
				Date:       date,
				ProductKey: key,
				Quantity:   10 + 5*dow + p,
				UnitPrice:  1.5 + float64(p),
			})
		}
	}
	return features.NewBuilder(features.WithLogger(zerolog.Nop())).BuildFromDaily(daily)
}

func smallForest() RandomForest {
	return RandomForest{Trees: 12, Seed: DefaultSeed, Workers: 4}
}

func TestTrainTestSplit_Reproducible(t *testing.T) {
	a, err := TrainTestSplit(101, 0.2, 42)
	require.NoError(t, err)
	b, err := TrainTestSplit(101, 0.2, 42)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a.Test, 21)
	assert.Len(t, a.Train, 80)

	seen := make(map[int]bool)
	for _, i := range append(append([]int{}, a.Train...), a.Test...) {
		assert.False(t, seen[i], "index %d appears twice", i)
		seen[i] = true
	}
	assert.Len(t, seen, 101)
}

func TestTrainTestSplit_Errors(t *testing.T) {
	_, err := TrainTestSplit(0, 0.2, 42)
	assert.ErrorIs(t, err, ErrEmptyTrainingSet)

	_, err = TrainTestSplit(1, 0.2, 42)
	assert.ErrorIs(t, err, ErrEmptyTrainingSet)

	_, err = TrainTestSplit(10, 1.5, 42)
	assert.Error(t, err)
}

func TestRandomForest_DeterministicAcrossWorkerCounts(t *testing.T) {
	table := syntheticTable(t, 2, 40)
	schema := features.DefaultSchema()
	x, y := schema.Matrix(table.Rows), schema.Labels(table.Rows)

	serial := smallForest()
	serial.Workers = 1
	parallel := smallForest()
	parallel.Workers = 8

	a, err := serial.Fit(context.Background(), x, y)
	require.NoError(t, err)
	b, err := parallel.Fit(context.Background(), x, y)
	require.NoError(t, err)

	pa, err := a.Predict(x)
	require.NoError(t, err)
	pb, err := b.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
}

func TestRandomForest_LearnsConstant(t *testing.T) {
	x := [][]float64{{1, 2}, {3, 4}, {5, 6}, {7, 8}}
	y := []float64{7, 7, 7, 7}

	reg, err := smallForest().Fit(context.Background(), x, y)
	require.NoError(t, err)

	out, err := reg.Predict([][]float64{{100, -3}})
	require.NoError(t, err)
	assert.InDelta(t, 7.0, out[0], 1e-9)

	_, err = reg.Predict([][]float64{{1}})
	assert.Error(t, err)
}

func TestRandomForest_ReportsProgress(t *testing.T) {
	var last, calls int
	rf := smallForest()
	rf.Progress = func(stage string, done, total int) {
		calls++
		last = done
		assert.Equal(t, "fit", stage)
		assert.Equal(t, 12, total)
	}
	_, err := rf.Fit(context.Background(), [][]float64{{1}, {2}, {3}}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 12, calls)
	assert.Equal(t, 12, last)
}

func TestRandomForest_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := smallForest().Fit(ctx, [][]float64{{1}, {2}}, []float64{1, 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrainer_TrainsAndEvaluates(t *testing.T) {
	table := syntheticTable(t, 3, 60)
	var stages []string
	trainer := NewTrainer(features.DefaultSchema(),
		WithFitter(smallForest()),
		WithTrainerLogger(zerolog.Nop()),
		WithProgress(func(stage string, done, total int) {
			if done == total {
				stages = append(stages, stage)
			}
		}),
	)

	model, eval, err := trainer.Train(context.Background(), table)
	require.NoError(t, err)

	n := table.Len()
	assert.Equal(t, n, eval.TrainRows+eval.TestRows)
	assert.Equal(t, eval, model.Evaluation)
	assert.NotEmpty(t, model.Version)
	assert.Less(t, eval.MAE, 5.0)
	assert.Equal(t, []string{"split", "evaluate"}, stages)
	assert.Equal(t, features.DefaultSchema().Fingerprint(), model.Fingerprint())
}

func TestTrainer_SameInputSameMAE(t *testing.T) {
	table := syntheticTable(t, 2, 50)
	train := func() Evaluation {
		_, eval, err := NewTrainer(features.DefaultSchema(),
			WithFitter(smallForest()),
			WithTrainerLogger(zerolog.Nop()),
		).Train(context.Background(), table)
		require.NoError(t, err)
		return eval
	}
	assert.Equal(t, train(), train())
}

func TestTrainer_Failures(t *testing.T) {
	trainer := NewTrainer(features.DefaultSchema(), WithFitter(smallForest()), WithTrainerLogger(zerolog.Nop()))

	_, _, err := trainer.Train(context.Background(), &features.Table{Schema: features.DefaultSchema()})
	assert.ErrorIs(t, err, ErrEmptyTrainingSet)

	calendar := syntheticTable(t, 1, 30)
	calendar.Schema = features.NewSchema(features.WindowCalendar)
	_, _, err = trainer.Train(context.Background(), calendar)
	assert.ErrorIs(t, err, features.ErrSchemaMismatch)
}

func TestMeanAbsoluteError(t *testing.T) {
	assert.InDelta(t, 2.0, MeanAbsoluteError([]float64{1, 5, 10}, []float64{2, 3, 13}), 1e-9)
	assert.Zero(t, MeanAbsoluteError(nil, nil))
}

func trainedModel(t *testing.T) *Model {
	t.Helper()
	model, _, err := NewTrainer(features.DefaultSchema(),
		WithFitter(smallForest()),
		WithTrainerLogger(zerolog.Nop()),
	).Train(context.Background(), syntheticTable(t, 2, 30))
	require.NoError(t, err)
	return model
}

func TestArtifact_SaveAndLoad(t *testing.T) {
	model := trainedModel(t)
	path := filepath.Join(t.TempDir(), "models", "forecaster.bin")

	require.NoError(t, SaveArtifact(path, model))
	loaded, err := LoadArtifact(path, features.DefaultSchema())
	require.NoError(t, err)

	assert.Equal(t, model.Version, loaded.Version)
	assert.True(t, model.TrainedAt.Equal(loaded.TrainedAt))
	assert.Equal(t, model.Evaluation, loaded.Evaluation)
	assert.Equal(t, model.Fingerprint(), loaded.Fingerprint())

	probe := [][]float64{{0, 1, 0, 1.5, 10, 12}, {6, 1, 1, 2.5, 40, 30}}
	want, err := model.Regressor.Predict(probe)
	require.NoError(t, err)
	got, err := loaded.Regressor.Predict(probe)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestArtifact_Unavailable(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadArtifact(filepath.Join(dir, "missing.bin"), features.DefaultSchema())
	require.ErrorIs(t, err, ErrArtifactUnavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)
	var artifactErr *ArtifactError
	require.True(t, errors.As(err, &artifactErr))
	assert.Equal(t, filepath.Join(dir, "missing.bin"), artifactErr.Path)

	corrupt := filepath.Join(dir, "corrupt.bin")
	require.NoError(t, os.WriteFile(corrupt, []byte("definitely not a model"), 0o644))
	_, err = LoadArtifact(corrupt, features.DefaultSchema())
	assert.ErrorIs(t, err, ErrArtifactUnavailable)

	var buf bytes.Buffer
	require.NoError(t, WriteArtifact(&buf, trainedModel(t)))
	truncated := buf.Bytes()[:buf.Len()/2]
	_, err = ReadArtifact(bytes.NewReader(truncated), "truncated", features.DefaultSchema())
	assert.ErrorIs(t, err, ErrArtifactUnavailable)
}

func TestArtifact_RejectsMalformedForest(t *testing.T) {
	leaf := Node{Leaf: true, Value: 4}
	cases := map[string]*Forest{
		"feature out of range": {Features: 6, Trees: []Tree{{Nodes: []Node{{Feature: 99, Left: 1, Right: 2}, leaf, leaf}}}},
		"empty tree":           {Features: 6, Trees: []Tree{{}}},
		"no trees":             {Features: 6},
		"child cycle":          {Features: 6, Trees: []Tree{{Nodes: []Node{{Feature: 1, Left: 0, Right: 1}, leaf}}}},
		"child out of range":   {Features: 6, Trees: []Tree{{Nodes: []Node{{Feature: 1, Left: 1, Right: 5}, leaf}}}},
	}
	for name, forest := range cases {
		t.Run(name, func(t *testing.T) {
			model := &Model{Version: "broken", Schema: features.DefaultSchema(), Regressor: forest}
			var buf bytes.Buffer
			require.NoError(t, WriteArtifact(&buf, model))

			_, err := ReadArtifact(&buf, "broken.bin", features.DefaultSchema())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrArtifactUnavailable)
		})
	}
}

func TestForest_ValidateAcceptsTrainedForest(t *testing.T) {
	forest, ok := trainedModel(t).Regressor.(*Forest)
	require.True(t, ok)
	assert.NoError(t, forest.Validate())
}

func TestArtifact_SchemaMismatchIsDistinct(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteArtifact(&buf, trainedModel(t)))

	_, err := ReadArtifact(&buf, "memory", features.NewSchema(features.WindowCalendar))
	require.ErrorIs(t, err, features.ErrSchemaMismatch)
	assert.False(t, errors.Is(err, ErrArtifactUnavailable))
}
