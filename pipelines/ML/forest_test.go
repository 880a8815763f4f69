package ml

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForestRegressorFitPredict(t *testing.T) {
	X, y, names := houseData()

	rf := NewForestRegressor(ForestConfig{NumTrees: 30, Seed: 7})
	require.NoError(t, rf.Fit(X, y, names))
	require.Len(t, rf.Trees, 30)

	pred, err := rf.Predict([]float64{2000, 4})
	require.NoError(t, err)
	assert.InDelta(t, 200, pred, 60)

	assert.Greater(t, rf.TrainingR2, 0.5, "forest should explain most of the training variance")
}

func TestForestRegressorReproducible(t *testing.T) {
	X, y, names := houseData()

	a := NewForestRegressor(ForestConfig{NumTrees: 20, Seed: 99})
	require.NoError(t, a.Fit(X, y, names))
	b := NewForestRegressor(ForestConfig{NumTrees: 20, Seed: 99})
	require.NoError(t, b.Fit(X, y, names))

	for i := range X {
		pa, err := a.Predict(X[i])
		require.NoError(t, err)
		pb, err := b.Predict(X[i])
		require.NoError(t, err)
		assert.Equal(t, pa, pb, "same seed must give identical forests")
	}
}

func TestForestRegressorMtryClamped(t *testing.T) {
	X, y, names := houseData()

	rf := NewForestRegressor(ForestConfig{NumTrees: 5, Mtry: 10, Seed: 1})
	require.NoError(t, rf.Fit(X, y, names))

	for _, features := range rf.TreeFeatures {
		assert.LessOrEqual(t, len(features), len(names))
	}
}

func TestForestRegressorPredictWithInterval(t *testing.T) {
	X, y, names := houseData()

	rf := NewForestRegressor(ForestConfig{NumTrees: 30, Seed: 7})
	require.NoError(t, rf.Fit(X, y, names))

	value, lower, upper, err := rf.PredictWithInterval([]float64{1500, 3})
	require.NoError(t, err)
	assert.LessOrEqual(t, lower, value)
	assert.GreaterOrEqual(t, upper, value)
}

func TestForestRegressorImportance(t *testing.T) {
	X, y, names := houseData()

	rf := NewForestRegressor(ForestConfig{NumTrees: 30, Seed: 7})
	require.NoError(t, rf.Fit(X, y, names))

	importance := rf.FeatureImportance()
	total := 0.0
	for _, v := range importance {
		total += v
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestForestRegressorSaveLoad(t *testing.T) {
	X, y, names := houseData()

	rf := NewForestRegressor(ForestConfig{NumTrees: 10, Seed: 3})
	require.NoError(t, rf.Fit(X, y, names))

	path := filepath.Join(t.TempDir(), "forest.json")
	require.NoError(t, rf.Save(path))

	loaded := &ForestRegressor{}
	require.NoError(t, loaded.Load(path))

	want, err := rf.Predict(X[0])
	require.NoError(t, err)
	got, err := loaded.Predict(X[0])
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
