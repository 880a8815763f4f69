package missing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dataset "github.com/pricecast-to/pricecast-go/pipelines/Dataset"
)

type failingImputer struct{}

func (f *failingImputer) Name() string { return "broken" }
func (f *failingImputer) Impute(d *dataset.Dataset) ([]float64, error) {
	return nil, fmt.Errorf("always fails")
}

func TestKolmogorovSmirnov(t *testing.T) {
	t.Run("identical samples", func(t *testing.T) {
		a := []float64{1, 2, 3, 4, 5}
		assert.InDelta(t, 0.0, KolmogorovSmirnov(a, a), 1e-9)
	})

	t.Run("disjoint samples", func(t *testing.T) {
		a := []float64{1, 2, 3}
		b := []float64{10, 20, 30}
		assert.InDelta(t, 1.0, KolmogorovSmirnov(a, b), 1e-9)
	})

	t.Run("half shifted", func(t *testing.T) {
		a := []float64{1, 2, 3, 4}
		b := []float64{3, 4, 5, 6}
		ks := KolmogorovSmirnov(a, b)
		assert.Greater(t, ks, 0.0)
		assert.Less(t, ks, 1.0)
	})

	t.Run("empty sample", func(t *testing.T) {
		assert.Equal(t, 1.0, KolmogorovSmirnov(nil, []float64{1}))
	})
}

func TestSelectImputationPrefersDistributionMatch(t *testing.T) {
	// Many gaps over a spread-out area distribution: drawing from the
	// observed values tracks the distribution, a constant mean cannot.
	missingRows := map[int]bool{}
	for i := 0; i < 60; i += 3 {
		missingRows[i] = true
	}
	ds := areaDataset(60, missingRows)

	result, err := SelectImputation(ds, []Imputer{
		&MeanImputer{},
		&RandomDrawImputer{Seed: 3},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "random_draw", result.Strategy)
	require.Len(t, result.Scores, 2)

	byName := map[string]float64{}
	for _, s := range result.Scores {
		byName[s.Strategy] = s.KS
	}
	assert.Less(t, byName["random_draw"], byName["mean"])

	// Winning vector is complete
	completed, err := ds.WithImputedArea(result.Areas)
	require.NoError(t, err)
	assert.Equal(t, 0, completed.MissingAreaCount())
}

func TestSelectImputationNoGaps(t *testing.T) {
	ds := areaDataset(15, nil)

	result, err := SelectImputation(ds, allImputers(), nil)
	require.NoError(t, err)
	assert.Equal(t, "none", result.Strategy)
	assert.Equal(t, ds.Areas(), result.Areas)
	assert.Empty(t, result.Scores)
}

func TestSelectImputationSkipsFailures(t *testing.T) {
	ds := areaDataset(30, map[int]bool{4: true})

	result, err := SelectImputation(ds, []Imputer{
		&failingImputer{},
		&MeanImputer{},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "mean", result.Strategy)
}

func TestSelectImputationAllFail(t *testing.T) {
	ds := areaDataset(30, map[int]bool{4: true})

	_, err := SelectImputation(ds, []Imputer{&failingImputer{}}, nil)
	assert.Error(t, err)
}

func TestSelectImputationNoStrategies(t *testing.T) {
	ds := areaDataset(10, nil)
	_, err := SelectImputation(ds, nil, nil)
	assert.Error(t, err)
}
