package report

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitListPriceExactLine(t *testing.T) {
	// Points on a known line: list = -36525.78 + 1.032594 * final
	const slope = 1.032594
	const intercept = -36525.78

	finalPrices := []float64{400000, 550000, 700000, 850000, 1000000, 1250000}
	listPrices := make([]float64, len(finalPrices))
	for i, fp := range finalPrices {
		listPrices[i] = intercept + slope*fp
	}

	fit, err := FitListPrice(finalPrices, listPrices)
	require.NoError(t, err)

	assert.InDelta(t, slope, fit.Slope, 1e-6)
	assert.InDelta(t, intercept, fit.Intercept, 1e-3)
	assert.InDelta(t, 1.0, fit.R2, 1e-9)
	assert.Equal(t, len(finalPrices), fit.N)

	// A sale predicted at 700k corresponds to an expected list price of ~686k
	assert.InDelta(t, 686290.02, fit.Predict(700000), 0.5)
}

func TestFitListPriceNoisy(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n := 300
	finalPrices := make([]float64, n)
	listPrices := make([]float64, n)
	for i := 0; i < n; i++ {
		finalPrices[i] = 400000 + rng.Float64()*900000
		listPrices[i] = 20000 + 0.97*finalPrices[i] + rng.NormFloat64()*30000
	}

	fit, err := FitListPrice(finalPrices, listPrices)
	require.NoError(t, err)

	assert.InDelta(t, 0.97, fit.Slope, 0.02)
	assert.Greater(t, fit.R2, 0.95, "final price strongly predicts list price")
}

func TestFitListPriceValidation(t *testing.T) {
	_, err := FitListPrice([]float64{1}, []float64{1, 2})
	assert.Error(t, err)

	_, err = FitListPrice([]float64{1}, []float64{1})
	assert.Error(t, err)
}
