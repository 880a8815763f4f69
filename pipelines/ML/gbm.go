package ml

import (
	"fmt"
)

// GBMConfig holds the gradient-boosting hyperparameters. InteractionDepth is
// the maximum depth of each residual tree and MinObsInNode the smallest leaf.
type GBMConfig struct {
	NumTrees         int     `json:"num_trees"`
	Shrinkage        float64 `json:"shrinkage"`
	InteractionDepth int     `json:"interaction_depth"`
	MinObsInNode     int     `json:"min_obs_in_node"`
}

// DefaultGBMConfig returns the boosting defaults used outside grid search
func DefaultGBMConfig() GBMConfig {
	return GBMConfig{
		NumTrees:         150,
		Shrinkage:        0.1,
		InteractionDepth: 3,
		MinObsInNode:     10,
	}
}

// GBMRegressor implements gradient boosting for squared-error loss: an
// initial constant prediction followed by shallow trees fit to residuals,
// each damped by the shrinkage rate.
type GBMRegressor struct {
	InitialValue float64          `json:"initial_value"`
	Trees        []*TreeRegressor `json:"trees"`
	Config       GBMConfig        `json:"config"`
	FeatureNames []string         `json:"feature_names"`
	NumFeatures  int              `json:"num_features"`
}

// NewGBMRegressor creates a boosted ensemble with the given hyperparameters,
// falling back to defaults for unset values.
func NewGBMRegressor(config GBMConfig) *GBMRegressor {
	if config.NumTrees <= 0 {
		config.NumTrees = 100
	}
	if config.Shrinkage <= 0 {
		config.Shrinkage = 0.1
	}
	if config.InteractionDepth <= 0 {
		config.InteractionDepth = 3
	}
	if config.MinObsInNode <= 0 {
		config.MinObsInNode = 10
	}
	return &GBMRegressor{Config: config}
}

// Name identifies the model family
func (g *GBMRegressor) Name() string {
	return "gbm"
}

// Fit trains the boosted ensemble. The initial prediction is the target
// mean; each subsequent tree fits the current residuals.
func (g *GBMRegressor) Fit(X [][]float64, y []float64, featureNames []string) error {
	if err := validateTrainingData(X, y, featureNames); err != nil {
		return err
	}

	g.FeatureNames = featureNames
	g.NumFeatures = len(X[0])
	g.InitialValue = calculateMean(y)
	g.Trees = make([]*TreeRegressor, 0, g.Config.NumTrees)

	residuals := make([]float64, len(y))
	for i := range y {
		residuals[i] = y[i] - g.InitialValue
	}

	for t := 0; t < g.Config.NumTrees; t++ {
		tree := NewTreeRegressor(TreeConfig{
			MaxDepth:       g.Config.InteractionDepth,
			MinSamplesLeaf: g.Config.MinObsInNode,
		})
		if err := tree.Fit(X, residuals, featureNames); err != nil {
			return fmt.Errorf("boosting round %d failed: %w", t, err)
		}
		g.Trees = append(g.Trees, tree)

		// Update residuals with the shrunken tree contribution
		for i := range X {
			predicted, err := tree.Predict(X[i])
			if err != nil {
				return fmt.Errorf("boosting round %d prediction failed: %w", t, err)
			}
			residuals[i] -= g.Config.Shrinkage * predicted
		}
	}

	return nil
}

// Predict sums the initial value and the shrunken contribution of each tree
func (g *GBMRegressor) Predict(x []float64) (float64, error) {
	if len(g.Trees) == 0 {
		return 0.0, fmt.Errorf("model not trained")
	}
	if len(x) != g.NumFeatures {
		return 0.0, fmt.Errorf("expected %d features, got %d", g.NumFeatures, len(x))
	}

	prediction := g.InitialValue
	for _, tree := range g.Trees {
		treePred, err := tree.Predict(x)
		if err != nil {
			return 0.0, err
		}
		prediction += g.Config.Shrinkage * treePred
	}

	return prediction, nil
}

// FeatureImportance averages importance across the boosting rounds
func (g *GBMRegressor) FeatureImportance() map[string]float64 {
	importance := make(map[string]float64)
	for _, name := range g.FeatureNames {
		importance[name] = 0.0
	}

	for _, tree := range g.Trees {
		for name, val := range tree.FeatureImportance() {
			importance[name] += val
		}
	}

	return normalizeImportance(importance)
}
