package missing

import (
	"fmt"
	"math/rand"

	dataset "github.com/pricecast-to/pricecast-go/pipelines/Dataset"
	ml "github.com/pricecast-to/pricecast-go/pipelines/ML"
)

// Imputer fills the missing entries of the area column and returns the
// completed vector, one value per dataset row. Observed values pass through
// unchanged; a dataset with no gaps comes back identical.
type Imputer interface {
	Name() string
	Impute(d *dataset.Dataset) ([]float64, error)
}

// RandomDrawImputer replaces each gap with a uniform draw from the observed
// area values.
type RandomDrawImputer struct {
	Seed int64
}

// Name identifies the strategy
func (r *RandomDrawImputer) Name() string {
	return "random_draw"
}

// Impute fills gaps with draws from the observed values
func (r *RandomDrawImputer) Impute(d *dataset.Dataset) ([]float64, error) {
	observed := d.ObservedAreas()
	if len(observed) == 0 {
		return nil, fmt.Errorf("no observed area values to draw from")
	}

	rng := rand.New(rand.NewSource(r.Seed))
	areas := d.Areas()
	for i, l := range d.Listings {
		if l.AreaMissing() {
			areas[i] = observed[rng.Intn(len(observed))]
		}
	}
	return areas, nil
}

// MeanImputer replaces every gap with the mean of the observed values
type MeanImputer struct{}

// Name identifies the strategy
func (m *MeanImputer) Name() string {
	return "mean"
}

// Impute fills gaps with the observed mean
func (m *MeanImputer) Impute(d *dataset.Dataset) ([]float64, error) {
	observed := d.ObservedAreas()
	if len(observed) == 0 {
		return nil, fmt.Errorf("no observed area values to average")
	}

	sum := 0.0
	for _, v := range observed {
		sum += v
	}
	mean := sum / float64(len(observed))

	areas := d.Areas()
	for i, l := range d.Listings {
		if l.AreaMissing() {
			areas[i] = mean
		}
	}
	return areas, nil
}

// ForestImputer predicts missing areas with a random forest trained on the
// rows where area is observed, using every other feature as a predictor.
type ForestImputer struct {
	Config ml.ForestConfig
}

// Name identifies the strategy
func (f *ForestImputer) Name() string {
	return "random_forest"
}

// Impute fills gaps with forest predictions
func (f *ForestImputer) Impute(d *dataset.Dataset) ([]float64, error) {
	return imputeWithModel(d, ml.NewForestRegressor(f.Config))
}

// CARTImputer predicts missing areas with a single regression tree
type CARTImputer struct {
	Config ml.TreeConfig
}

// Name identifies the strategy
func (c *CARTImputer) Name() string {
	return "cart"
}

// Impute fills gaps with tree predictions
func (c *CARTImputer) Impute(d *dataset.Dataset) ([]float64, error) {
	return imputeWithModel(d, ml.NewTreeRegressor(c.Config))
}

// imputeWithModel trains the model on the observed rows (area as target,
// other features as predictors) and predicts the missing rows.
func imputeWithModel(d *dataset.Dataset, model ml.Regressor) ([]float64, error) {
	X, names := d.FeatureMatrixExcludingArea()

	trainX := make([][]float64, 0, d.Rows())
	trainY := make([]float64, 0, d.Rows())
	missingRows := make([]int, 0)

	for i, l := range d.Listings {
		if l.AreaMissing() {
			missingRows = append(missingRows, i)
		} else {
			trainX = append(trainX, X[i])
			trainY = append(trainY, l.Area)
		}
	}

	if len(trainX) == 0 {
		return nil, fmt.Errorf("no observed area values to train on")
	}

	areas := d.Areas()
	if len(missingRows) == 0 {
		return areas, nil
	}

	if err := model.Fit(trainX, trainY, names); err != nil {
		return nil, fmt.Errorf("imputation model training failed: %w", err)
	}

	for _, i := range missingRows {
		predicted, err := model.Predict(X[i])
		if err != nil {
			return nil, fmt.Errorf("imputation prediction failed at row %d: %w", i, err)
		}
		areas[i] = predicted
	}

	return areas, nil
}
