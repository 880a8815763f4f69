package ml

import (
	"fmt"
	"math"
)

// RegressionMetrics holds various regression metrics
type RegressionMetrics struct {
	MAE        float64 `json:"mae"`         // Mean Absolute Error
	MSE        float64 `json:"mse"`         // Mean Squared Error
	RMSE       float64 `json:"rmse"`        // Root Mean Squared Error
	R2Score    float64 `json:"r2_score"`    // R² (coefficient of determination)
	MAPE       float64 `json:"mape"`        // Mean Absolute Percentage Error
	MaxError   float64 `json:"max_error"`   // Maximum absolute error
	NumSamples int     `json:"num_samples"` // Number of samples
	MeanActual float64 `json:"mean_actual"` // Mean of actual values
	MeanPred   float64 `json:"mean_pred"`   // Mean of predicted values
	StdActual  float64 `json:"std_actual"`  // Std dev of actual values
	StdPred    float64 `json:"std_pred"`    // Std dev of predicted values
}

// EvaluateRegressor evaluates a trained regressor on test data
func EvaluateRegressor(model Regressor, X [][]float64, yTrue []float64) (*RegressionMetrics, error) {
	if len(X) == 0 || len(yTrue) == 0 {
		return nil, fmt.Errorf("empty test data")
	}
	if len(X) != len(yTrue) {
		return nil, fmt.Errorf("X and yTrue must have same length")
	}

	yPred := make([]float64, len(X))
	for i, x := range X {
		pred, err := model.Predict(x)
		if err != nil {
			return nil, fmt.Errorf("prediction failed at index %d: %w", i, err)
		}
		yPred[i] = pred
	}

	return CalculateRegressionMetrics(yTrue, yPred)
}

// CalculateRegressionMetrics calculates all regression evaluation metrics
func CalculateRegressionMetrics(yTrue, yPred []float64) (*RegressionMetrics, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("yTrue and yPred must have same length")
	}
	if len(yTrue) == 0 {
		return nil, fmt.Errorf("empty arrays")
	}

	n := len(yTrue)
	metrics := &RegressionMetrics{
		NumSamples: n,
	}

	sumTrue := 0.0
	sumPred := 0.0
	for i := 0; i < n; i++ {
		sumTrue += yTrue[i]
		sumPred += yPred[i]
	}
	metrics.MeanActual = sumTrue / float64(n)
	metrics.MeanPred = sumPred / float64(n)

	sumAbsError := 0.0
	sumSqError := 0.0
	sumAbsPercError := 0.0
	maxError := 0.0
	sumSqDiffTrue := 0.0
	sumSqDiffPred := 0.0
	validMAPECount := 0

	for i := 0; i < n; i++ {
		diff := yTrue[i] - yPred[i]
		absDiff := math.Abs(diff)

		sumAbsError += absDiff
		sumSqError += diff * diff

		if absDiff > maxError {
			maxError = absDiff
		}

		// MAPE (skip zero values to avoid division by zero)
		if math.Abs(yTrue[i]) > 1e-10 {
			sumAbsPercError += (absDiff / math.Abs(yTrue[i])) * 100
			validMAPECount++
		}

		sumSqDiffTrue += (yTrue[i] - metrics.MeanActual) * (yTrue[i] - metrics.MeanActual)
		sumSqDiffPred += (yPred[i] - metrics.MeanPred) * (yPred[i] - metrics.MeanPred)
	}

	metrics.MAE = sumAbsError / float64(n)
	metrics.MSE = sumSqError / float64(n)
	metrics.RMSE = math.Sqrt(metrics.MSE)
	metrics.MaxError = maxError

	if validMAPECount > 0 {
		metrics.MAPE = sumAbsPercError / float64(validMAPECount)
	}

	// R² = 1 - (SS_res / SS_tot). Not clamped: a model worse than the mean
	// predictor scores below zero.
	if sumSqDiffTrue > 0 {
		metrics.R2Score = 1 - (sumSqError / sumSqDiffTrue)
	} else {
		// If all actual values are the same, R² is undefined
		metrics.R2Score = 0.0
	}

	metrics.StdActual = math.Sqrt(sumSqDiffTrue / float64(n))
	metrics.StdPred = math.Sqrt(sumSqDiffPred / float64(n))

	return metrics, nil
}

// FormatRegressionMetrics returns a human-readable string representation of regression metrics
func (m *RegressionMetrics) FormatRegressionMetrics() string {
	output := "Regression Metrics:\n"
	output += fmt.Sprintf("  Samples:               %d\n", m.NumSamples)
	output += fmt.Sprintf("  R² Score:              %.4f\n", m.R2Score)
	output += fmt.Sprintf("  Mean Absolute Error:   %.4f\n", m.MAE)
	output += fmt.Sprintf("  Mean Squared Error:    %.4f\n", m.MSE)
	output += fmt.Sprintf("  Root Mean Squared Err: %.4f\n", m.RMSE)
	output += fmt.Sprintf("  Mean Abs. Percent Err: %.2f%%\n", m.MAPE)
	output += fmt.Sprintf("  Max Error:             %.4f\n", m.MaxError)
	return output
}
