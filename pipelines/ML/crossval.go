package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// CrossValidationResults holds k-fold cross-validation results
type CrossValidationResults struct {
	K         int       `json:"k"`
	FoldRMSEs []float64 `json:"fold_rmses"`
	FoldR2s   []float64 `json:"fold_r2s"`
	FoldMAEs  []float64 `json:"fold_maes"`
	MeanRMSE  float64   `json:"mean_rmse"`
	StdRMSE   float64   `json:"std_rmse"`
	MeanR2    float64   `json:"mean_r2"`
	StdR2     float64   `json:"std_r2"`
	MeanMAE   float64   `json:"mean_mae"`
	StdMAE    float64   `json:"std_mae"`
}

// RegressorFactory builds a fresh untrained model for each fold
type RegressorFactory func() Regressor

// CrossValidate performs k-fold cross-validation. Rows are shuffled once
// with the given seed before folding so contiguous folds are not biased by
// the input ordering.
func CrossValidate(X [][]float64, y []float64, featureNames []string, k int, seed int64, factory RegressorFactory) (*CrossValidationResults, error) {
	if k <= 1 {
		return nil, fmt.Errorf("k must be greater than 1")
	}
	if len(X) < k {
		return nil, fmt.Errorf("not enough samples for %d-fold cross-validation", k)
	}
	if len(X) != len(y) {
		return nil, errSampleMismatch
	}

	// Shuffle a copy of the rows; the caller's slices stay untouched
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(X))
	shufX := make([][]float64, len(X))
	shufY := make([]float64, len(y))
	for i, p := range perm {
		shufX[i] = X[p]
		shufY[i] = y[p]
	}

	results := &CrossValidationResults{
		K:         k,
		FoldRMSEs: make([]float64, k),
		FoldR2s:   make([]float64, k),
		FoldMAEs:  make([]float64, k),
	}

	for fold := 0; fold < k; fold++ {
		trainX, trainY, valX, valY := kFoldSplit(shufX, shufY, fold, k)

		model := factory()
		if err := model.Fit(trainX, trainY, featureNames); err != nil {
			return nil, fmt.Errorf("training failed at fold %d: %w", fold, err)
		}

		metrics, err := EvaluateRegressor(model, valX, valY)
		if err != nil {
			return nil, fmt.Errorf("evaluation failed at fold %d: %w", fold, err)
		}

		results.FoldRMSEs[fold] = metrics.RMSE
		results.FoldR2s[fold] = metrics.R2Score
		results.FoldMAEs[fold] = metrics.MAE
	}

	results.MeanRMSE, results.StdRMSE = meanStd(results.FoldRMSEs)
	results.MeanR2, results.StdR2 = meanStd(results.FoldR2s)
	results.MeanMAE, results.StdMAE = meanStd(results.FoldMAEs)

	return results, nil
}

// kFoldSplit splits data into train and validation sets for k-fold cross-validation
func kFoldSplit(X [][]float64, y []float64, fold int, k int) ([][]float64, []float64, [][]float64, []float64) {
	n := len(X)
	foldSize := n / k
	valStart := fold * foldSize
	valEnd := valStart + foldSize
	if fold == k-1 {
		valEnd = n // Last fold gets remainder
	}

	valX := X[valStart:valEnd]
	valY := y[valStart:valEnd]

	trainX := append([][]float64{}, X[:valStart]...)
	trainX = append(trainX, X[valEnd:]...)
	trainY := append([]float64{}, y[:valStart]...)
	trainY = append(trainY, y[valEnd:]...)

	return trainX, trainY, valX, valY
}

// meanStd calculates mean and standard deviation
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0.0, 0.0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	sumSq := 0.0
	for _, v := range values {
		sumSq += (v - mean) * (v - mean)
	}

	return mean, math.Sqrt(sumSq / float64(len(values)))
}
