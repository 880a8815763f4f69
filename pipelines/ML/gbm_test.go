package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGBMRegressorFitPredict(t *testing.T) {
	X, y, names := houseData()

	gbm := NewGBMRegressor(GBMConfig{NumTrees: 100, Shrinkage: 0.1, InteractionDepth: 3, MinObsInNode: 1})
	require.NoError(t, gbm.Fit(X, y, names))

	assert.InDelta(t, calculateMean(y), gbm.InitialValue, 1e-9,
		"boosting should start from the target mean")

	for i := range X {
		pred, err := gbm.Predict(X[i])
		require.NoError(t, err)
		assert.InDelta(t, y[i], pred, 20, "sample %d", i)
	}
}

func TestGBMRegressorMoreRoundsFitTighter(t *testing.T) {
	X, y, names := houseData()

	few := NewGBMRegressor(GBMConfig{NumTrees: 5, Shrinkage: 0.1, InteractionDepth: 3, MinObsInNode: 1})
	require.NoError(t, few.Fit(X, y, names))
	many := NewGBMRegressor(GBMConfig{NumTrees: 200, Shrinkage: 0.1, InteractionDepth: 3, MinObsInNode: 1})
	require.NoError(t, many.Fit(X, y, names))

	fewMetrics, err := EvaluateRegressor(few, X, y)
	require.NoError(t, err)
	manyMetrics, err := EvaluateRegressor(many, X, y)
	require.NoError(t, err)

	assert.Less(t, manyMetrics.RMSE, fewMetrics.RMSE,
		"more boosting rounds should reduce training error")
}

func TestGBMRegressorValidation(t *testing.T) {
	gbm := NewGBMRegressor(DefaultGBMConfig())

	assert.ErrorIs(t, gbm.Fit(nil, nil, nil), errEmptyTrainingData)

	_, err := gbm.Predict([]float64{1, 2})
	assert.Error(t, err, "predict before fit must fail")
}

func TestGBMRegressorImportance(t *testing.T) {
	X, y, names := houseData()

	gbm := NewGBMRegressor(GBMConfig{NumTrees: 50, Shrinkage: 0.1, InteractionDepth: 3, MinObsInNode: 1})
	require.NoError(t, gbm.Fit(X, y, names))

	importance := gbm.FeatureImportance()
	total := 0.0
	for _, v := range importance {
		total += v
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}
