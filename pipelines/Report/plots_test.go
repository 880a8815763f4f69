package report

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlotterRendersFigures(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "figures")
	pl, err := NewPlotter(dir)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	observed := make([]float64, 200)
	imputed := make([]float64, 40)
	for i := range observed {
		observed[i] = 800 + rng.Float64()*2000
	}
	for i := range imputed {
		imputed[i] = 900 + rng.Float64()*1800
	}

	t.Run("area histogram", func(t *testing.T) {
		path, err := pl.AreaHistogram(observed, imputed)
		require.NoError(t, err)
		assert.FileExists(t, path)
	})

	t.Run("histogram without imputed values", func(t *testing.T) {
		path, err := pl.AreaHistogram(observed, nil)
		require.NoError(t, err)
		assert.FileExists(t, path)
	})

	t.Run("predicted vs actual", func(t *testing.T) {
		actual := make([]float64, 100)
		predicted := make([]float64, 100)
		for i := range actual {
			actual[i] = 500000 + rng.Float64()*700000
			predicted[i] = actual[i] + rng.NormFloat64()*50000
		}
		path, err := pl.PredictedVsActual(actual, predicted)
		require.NoError(t, err)
		assert.FileExists(t, path)
	})

	t.Run("list price scatter", func(t *testing.T) {
		final := []float64{510000, 615000, 725000, 830000}
		list := []float64{500000, 600000, 700000, 800000}
		fit, err := FitListPrice(final, list)
		require.NoError(t, err)

		path, err := pl.ListPriceScatter(final, list, fit)
		require.NoError(t, err)
		assert.FileExists(t, path)
	})
}

func TestPredictedVsActualLengthMismatch(t *testing.T) {
	pl, err := NewPlotter(t.TempDir())
	require.NoError(t, err)

	_, err = pl.PredictedVsActual([]float64{1, 2}, []float64{1})
	assert.Error(t, err)
}
