package ml

import (
	"fmt"
)

// TreeConfig holds the decision-tree hyperparameters. Cp is the complexity
// parameter: a split is kept only when its variance reduction exceeds
// Cp times the root-node variance.
type TreeConfig struct {
	Cp              float64 `json:"cp"`
	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	MinSamplesLeaf  int     `json:"min_samples_leaf"`
}

// DefaultTreeConfig returns the tree defaults used outside grid search
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		Cp:              0.01,
		MaxDepth:        12,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
}

// TreeNode represents a node in the regression tree
type TreeNode struct {
	IsLeaf       bool      `json:"is_leaf"`
	Value        float64   `json:"value"`                   // Mean target at this node
	Feature      string    `json:"feature,omitempty"`       // Feature to split on
	FeatureIndex int       `json:"feature_index,omitempty"` // Index of feature
	Threshold    float64   `json:"threshold,omitempty"`     // Split threshold
	Left         *TreeNode `json:"left,omitempty"`          // Left child (<=)
	Right        *TreeNode `json:"right,omitempty"`         // Right child (>)
	SamplesCount int       `json:"samples_count"`
	Depth        int       `json:"depth"`
	Gain         float64   `json:"gain,omitempty"` // Variance reduction of the split
}

// TreeRegressor implements a CART regression tree
type TreeRegressor struct {
	Root         *TreeNode  `json:"root"`
	Config       TreeConfig `json:"config"`
	FeatureNames []string   `json:"feature_names"`
	NumFeatures  int        `json:"num_features"`
	RootVariance float64    `json:"root_variance"`
}

// NewTreeRegressor creates a regression tree with the given hyperparameters,
// falling back to defaults for unset values.
func NewTreeRegressor(config TreeConfig) *TreeRegressor {
	if config.MaxDepth <= 0 {
		config.MaxDepth = 12
	}
	if config.MinSamplesSplit <= 0 {
		config.MinSamplesSplit = 2
	}
	if config.MinSamplesLeaf <= 0 {
		config.MinSamplesLeaf = 1
	}
	if config.Cp < 0 {
		config.Cp = 0
	}
	return &TreeRegressor{Config: config}
}

// Name identifies the model family
func (t *TreeRegressor) Name() string {
	return "decision_tree"
}

// Fit builds the regression tree from training data
func (t *TreeRegressor) Fit(X [][]float64, y []float64, featureNames []string) error {
	if err := validateTrainingData(X, y, featureNames); err != nil {
		return err
	}

	t.FeatureNames = featureNames
	t.NumFeatures = len(X[0])
	t.RootVariance = calculateVariance(y, calculateMean(y))

	indices := make([]int, len(X))
	for i := range indices {
		indices[i] = i
	}

	t.Root = t.buildTree(X, y, indices, 0)
	return nil
}

// buildTree recursively builds the regression tree
func (t *TreeRegressor) buildTree(X [][]float64, y []float64, indices []int, depth int) *TreeNode {
	node := &TreeNode{
		SamplesCount: len(indices),
		Depth:        depth,
	}

	currentValues := make([]float64, len(indices))
	for i, idx := range indices {
		currentValues[i] = y[idx]
	}

	mean := calculateMean(currentValues)
	variance := calculateVariance(currentValues, mean)
	node.Value = mean

	if depth >= t.Config.MaxDepth || len(indices) < t.Config.MinSamplesSplit || variance < 1e-12 {
		node.IsLeaf = true
		return node
	}

	bestFeature, bestThreshold, bestGain := t.findBestSplit(X, y, indices)

	// The complexity parameter prices a split against the root-node variance.
	minGain := t.Config.Cp * t.RootVariance
	if bestFeature < 0 || bestGain <= minGain {
		node.IsLeaf = true
		return node
	}

	leftIndices, rightIndices := splitIndices(X, indices, bestFeature, bestThreshold)

	if len(leftIndices) < t.Config.MinSamplesLeaf || len(rightIndices) < t.Config.MinSamplesLeaf {
		node.IsLeaf = true
		return node
	}

	node.IsLeaf = false
	node.Feature = t.FeatureNames[bestFeature]
	node.FeatureIndex = bestFeature
	node.Threshold = bestThreshold
	node.Gain = bestGain

	node.Left = t.buildTree(X, y, leftIndices, depth+1)
	node.Right = t.buildTree(X, y, rightIndices, depth+1)

	return node
}

// findBestSplit finds the feature and threshold with the largest weighted
// variance reduction.
func (t *TreeRegressor) findBestSplit(X [][]float64, y []float64, indices []int) (int, float64, float64) {
	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	currentValues := make([]float64, len(indices))
	for i, idx := range indices {
		currentValues[i] = y[idx]
	}
	parentVariance := calculateVariance(currentValues, calculateMean(currentValues))

	for feature := 0; feature < t.NumFeatures; feature++ {
		values := make([]float64, len(indices))
		for i, idx := range indices {
			values[i] = X[idx][feature]
		}

		thresholds := getThresholds(values)

		for _, threshold := range thresholds {
			leftIndices, rightIndices := splitIndices(X, indices, feature, threshold)

			if len(leftIndices) == 0 || len(rightIndices) == 0 {
				continue
			}

			leftValues := make([]float64, len(leftIndices))
			for i, idx := range leftIndices {
				leftValues[i] = y[idx]
			}
			rightValues := make([]float64, len(rightIndices))
			for i, idx := range rightIndices {
				rightValues[i] = y[idx]
			}

			leftVariance := calculateVariance(leftValues, calculateMean(leftValues))
			rightVariance := calculateVariance(rightValues, calculateMean(rightValues))

			n := float64(len(indices))
			nLeft := float64(len(leftIndices))
			nRight := float64(len(rightIndices))

			weightedVariance := (nLeft/n)*leftVariance + (nRight/n)*rightVariance
			gain := parentVariance - weightedVariance

			if gain > bestGain {
				bestGain = gain
				bestFeature = feature
				bestThreshold = threshold
			}
		}
	}

	return bestFeature, bestThreshold, bestGain
}

// splitIndices splits indices based on feature and threshold
func splitIndices(X [][]float64, indices []int, feature int, threshold float64) ([]int, []int) {
	var leftIndices, rightIndices []int

	for _, idx := range indices {
		if X[idx][feature] <= threshold {
			leftIndices = append(leftIndices, idx)
		} else {
			rightIndices = append(rightIndices, idx)
		}
	}

	return leftIndices, rightIndices
}

// Predict returns the predicted target for a single sample
func (t *TreeRegressor) Predict(x []float64) (float64, error) {
	if t.Root == nil {
		return 0.0, fmt.Errorf("model not trained")
	}
	if len(x) != t.NumFeatures {
		return 0.0, fmt.Errorf("expected %d features, got %d", t.NumFeatures, len(x))
	}

	node := t.Root
	for !node.IsLeaf {
		if x[node.FeatureIndex] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value, nil
}

// FeatureImportance accumulates the sample-weighted variance reduction of
// every split, normalized to sum to one.
func (t *TreeRegressor) FeatureImportance() map[string]float64 {
	importance := make(map[string]float64)
	for _, name := range t.FeatureNames {
		importance[name] = 0.0
	}

	if t.Root != nil {
		t.accumulateImportance(t.Root, importance)
	}

	return normalizeImportance(importance)
}

func (t *TreeRegressor) accumulateImportance(node *TreeNode, importance map[string]float64) {
	if node.IsLeaf {
		return
	}

	importance[node.Feature] += node.Gain * float64(node.SamplesCount)

	if node.Left != nil {
		t.accumulateImportance(node.Left, importance)
	}
	if node.Right != nil {
		t.accumulateImportance(node.Right, importance)
	}
}

// Depth returns the maximum depth of the fitted tree
func (t *TreeRegressor) Depth() int {
	if t.Root == nil {
		return 0
	}
	return nodeDepth(t.Root)
}

func nodeDepth(node *TreeNode) int {
	if node.IsLeaf {
		return node.Depth
	}
	leftDepth := nodeDepth(node.Left)
	rightDepth := nodeDepth(node.Right)
	if leftDepth > rightDepth {
		return leftDepth
	}
	return rightDepth
}

// NumNodes returns the total number of nodes
func (t *TreeRegressor) NumNodes() int {
	return countNodes(t.Root)
}

func countNodes(node *TreeNode) int {
	if node == nil {
		return 0
	}
	return 1 + countNodes(node.Left) + countNodes(node.Right)
}
