package ml

import (
	"errors"
	"math"
	"sort"
)

var (
	errEmptyTrainingData   = errors.New("empty training data")
	errSampleMismatch      = errors.New("X and y must have same number of samples")
	errFeatureNameMismatch = errors.New("feature names must match number of features")
	errNaNFeature          = errors.New("feature matrix contains NaN")
)

// Regressor is the capability interface shared by the four model families.
// Implementations are JSON-serializable artifacts once fitted.
type Regressor interface {
	// Name identifies the model family ("decision_tree", "random_forest", ...)
	Name() string
	// Fit trains the model on the feature matrix and numeric target
	Fit(X [][]float64, y []float64, featureNames []string) error
	// Predict returns the predicted target for a single sample
	Predict(x []float64) (float64, error)
	// FeatureImportance returns normalized per-feature importance scores
	FeatureImportance() map[string]float64
}

// ModelEvaluation is the cross-validated score card for one model family
// after grid search.
type ModelEvaluation struct {
	Model      string                  `json:"model"`
	Params     map[string]float64      `json:"params"`
	RMSE       float64                 `json:"rmse"`
	R2         float64                 `json:"r2"`
	MAE        float64                 `json:"mae"`
	CV         *CrossValidationResults `json:"cv,omitempty"`
	Importance map[string]float64      `json:"importance,omitempty"`
}

// Helper functions shared across the tree-based models

func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func calculateVariance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	return variance / float64(len(values))
}

// getThresholds returns candidate split thresholds as midpoints between
// consecutive unique values.
func getThresholds(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	uniqueVals := make([]float64, 0, len(values))
	seen := make(map[float64]bool)
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			uniqueVals = append(uniqueVals, v)
		}
	}

	if len(uniqueVals) == 1 {
		return nil
	}

	sort.Float64s(uniqueVals)

	thresholds := make([]float64, len(uniqueVals)-1)
	for i := 0; i < len(uniqueVals)-1; i++ {
		thresholds[i] = (uniqueVals[i] + uniqueVals[i+1]) / 2.0
	}

	return thresholds
}

// normalizeImportance scales raw importance scores to sum to one
func normalizeImportance(importance map[string]float64) map[string]float64 {
	total := 0.0
	for _, v := range importance {
		total += v
	}
	if total <= 0 {
		return importance
	}
	for name := range importance {
		importance[name] /= total
	}
	return importance
}

// ImportanceRanking orders features by descending importance
type ImportanceRanking []ImportanceEntry

// ImportanceEntry is one feature's importance score
type ImportanceEntry struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// RankImportance converts an importance map into a sorted ranking
func RankImportance(importance map[string]float64) ImportanceRanking {
	ranking := make(ImportanceRanking, 0, len(importance))
	for feature, score := range importance {
		ranking = append(ranking, ImportanceEntry{Feature: feature, Importance: score})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Importance == ranking[j].Importance {
			return ranking[i].Feature < ranking[j].Feature
		}
		return ranking[i].Importance > ranking[j].Importance
	})
	return ranking
}

// validateTrainingData checks the common Fit preconditions
func validateTrainingData(X [][]float64, y []float64, featureNames []string) error {
	if len(X) == 0 || len(y) == 0 {
		return errEmptyTrainingData
	}
	if len(X) != len(y) {
		return errSampleMismatch
	}
	if len(featureNames) != len(X[0]) {
		return errFeatureNameMismatch
	}
	for _, row := range X {
		for _, v := range row {
			if math.IsNaN(v) {
				return errNaNFeature
			}
		}
	}
	return nil
}
