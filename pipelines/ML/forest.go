package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
)

// ForestConfig holds the random-forest hyperparameters. Mtry is the number of
// features sampled per tree; zero means sqrt of the feature count.
type ForestConfig struct {
	NumTrees       int   `json:"num_trees"`
	Mtry           int   `json:"mtry"`
	MaxDepth       int   `json:"max_depth"`
	MinSamplesLeaf int   `json:"min_samples_leaf"`
	Seed           int64 `json:"seed"`
}

// DefaultForestConfig returns the forest defaults used outside grid search
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		NumTrees:       100,
		MaxDepth:       12,
		MinSamplesLeaf: 2,
		Seed:           1,
	}
}

// ForestRegressor implements a random-forest regression ensemble: bootstrap
// samples and per-tree feature subsets, averaged at prediction time.
type ForestRegressor struct {
	Trees        []*TreeRegressor `json:"trees"`
	TreeFeatures [][]int          `json:"tree_features"` // Feature indices used by each tree
	Config       ForestConfig     `json:"config"`
	FeatureNames []string         `json:"feature_names"`
	NumFeatures  int              `json:"num_features"`
	TrainingR2   float64          `json:"training_r2"` // R2 on training data after fit
}

// NewForestRegressor creates a random forest with the given hyperparameters,
// falling back to defaults for unset values.
func NewForestRegressor(config ForestConfig) *ForestRegressor {
	if config.NumTrees <= 0 {
		config.NumTrees = 100
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = 12
	}
	if config.MinSamplesLeaf <= 0 {
		config.MinSamplesLeaf = 1
	}
	return &ForestRegressor{Config: config}
}

// Name identifies the model family
func (rf *ForestRegressor) Name() string {
	return "random_forest"
}

// Fit trains the forest. Trees are independent and train in parallel; each
// tree gets its own seeded generator so results are reproducible.
func (rf *ForestRegressor) Fit(X [][]float64, y []float64, featureNames []string) error {
	if err := validateTrainingData(X, y, featureNames); err != nil {
		return err
	}

	rf.FeatureNames = featureNames
	rf.NumFeatures = len(X[0])

	mtry := rf.Config.Mtry
	if mtry <= 0 {
		mtry = int(math.Sqrt(float64(rf.NumFeatures)))
		if mtry < 1 {
			mtry = 1
		}
	}
	if mtry > rf.NumFeatures {
		mtry = rf.NumFeatures
	}

	rf.Trees = make([]*TreeRegressor, rf.Config.NumTrees)
	rf.TreeFeatures = make([][]int, rf.Config.NumTrees)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := 0; i < rf.Config.NumTrees; i++ {
		wg.Add(1)
		go func(treeIdx int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(rf.Config.Seed + int64(treeIdx)))

			bootX, bootY := bootstrapSample(X, y, rng)
			selectedFeatures := sampleFeatures(rf.NumFeatures, mtry, rng)
			subX, subNames := projectFeatures(bootX, selectedFeatures, rf.FeatureNames)

			tree := NewTreeRegressor(TreeConfig{
				MaxDepth:       rf.Config.MaxDepth,
				MinSamplesLeaf: rf.Config.MinSamplesLeaf,
			})
			if err := tree.Fit(subX, bootY, subNames); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("tree %d training failed: %w", treeIdx, err)
				}
				mu.Unlock()
				return
			}

			mu.Lock()
			rf.Trees[treeIdx] = tree
			rf.TreeFeatures[treeIdx] = selectedFeatures
			mu.Unlock()
		}(i)
	}

	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	rf.TrainingR2 = rf.trainingR2(X, y)
	return nil
}

// bootstrapSample creates a sample with replacement
func bootstrapSample(X [][]float64, y []float64, rng *rand.Rand) ([][]float64, []float64) {
	n := len(X)
	bootX := make([][]float64, n)
	bootY := make([]float64, n)

	for i := 0; i < n; i++ {
		idx := rng.Intn(n)
		bootX[i] = X[idx]
		bootY[i] = y[idx]
	}

	return bootX, bootY
}

// sampleFeatures randomly selects mtry feature indices
func sampleFeatures(numFeatures, mtry int, rng *rand.Rand) []int {
	features := make([]int, numFeatures)
	for i := range features {
		features[i] = i
	}
	rng.Shuffle(len(features), func(i, j int) {
		features[i], features[j] = features[j], features[i]
	})
	return features[:mtry]
}

// projectFeatures extracts the selected feature columns
func projectFeatures(X [][]float64, features []int, names []string) ([][]float64, []string) {
	subX := make([][]float64, len(X))
	for i := range X {
		subX[i] = make([]float64, len(features))
		for j, fIdx := range features {
			subX[i][j] = X[i][fIdx]
		}
	}

	subNames := make([]string, len(features))
	for i, fIdx := range features {
		subNames[i] = names[fIdx]
	}

	return subX, subNames
}

// Predict averages the predictions of every tree
func (rf *ForestRegressor) Predict(x []float64) (float64, error) {
	if len(rf.Trees) == 0 {
		return 0.0, fmt.Errorf("model not trained")
	}
	if len(x) != rf.NumFeatures {
		return 0.0, fmt.Errorf("expected %d features, got %d", rf.NumFeatures, len(x))
	}

	sum := 0.0
	validTrees := 0

	for i, tree := range rf.Trees {
		if tree == nil {
			continue
		}

		treeFeatures := make([]float64, len(rf.TreeFeatures[i]))
		for j, fIdx := range rf.TreeFeatures[i] {
			treeFeatures[j] = x[fIdx]
		}

		predicted, err := tree.Predict(treeFeatures)
		if err != nil {
			continue
		}
		sum += predicted
		validTrees++
	}

	if validTrees == 0 {
		return 0.0, fmt.Errorf("no valid predictions from trees")
	}

	return sum / float64(validTrees), nil
}

// PredictWithInterval returns the ensemble mean with a 95% interval from the
// spread of per-tree predictions.
func (rf *ForestRegressor) PredictWithInterval(x []float64) (value, lower, upper float64, err error) {
	if len(rf.Trees) == 0 {
		return 0, 0, 0, fmt.Errorf("model not trained")
	}
	if len(x) != rf.NumFeatures {
		return 0, 0, 0, fmt.Errorf("expected %d features, got %d", rf.NumFeatures, len(x))
	}

	predictions := make([]float64, 0, len(rf.Trees))
	for i, tree := range rf.Trees {
		if tree == nil {
			continue
		}

		treeFeatures := make([]float64, len(rf.TreeFeatures[i]))
		for j, fIdx := range rf.TreeFeatures[i] {
			treeFeatures[j] = x[fIdx]
		}

		predicted, err := tree.Predict(treeFeatures)
		if err != nil {
			continue
		}
		predictions = append(predictions, predicted)
	}

	if len(predictions) == 0 {
		return 0, 0, 0, fmt.Errorf("no valid predictions from trees")
	}

	mean := calculateMean(predictions)
	stdDev := math.Sqrt(calculateVariance(predictions, mean))

	return mean, mean - 1.96*stdDev, mean + 1.96*stdDev, nil
}

// trainingR2 computes R2 on the training data as a cheap fit sanity check
func (rf *ForestRegressor) trainingR2(X [][]float64, y []float64) float64 {
	sumSquaredError := 0.0
	mean := calculateMean(y)
	sumSquaredTotal := 0.0

	for i := range X {
		predicted, err := rf.Predict(X[i])
		if err != nil {
			continue
		}
		sumSquaredError += (y[i] - predicted) * (y[i] - predicted)
		sumSquaredTotal += (y[i] - mean) * (y[i] - mean)
	}

	if sumSquaredTotal == 0 {
		return 0.0
	}

	return 1.0 - (sumSquaredError / sumSquaredTotal)
}

// FeatureImportance averages importance across trees, mapped back to the
// full feature set.
func (rf *ForestRegressor) FeatureImportance() map[string]float64 {
	importance := make(map[string]float64)
	for _, name := range rf.FeatureNames {
		importance[name] = 0.0
	}

	for _, tree := range rf.Trees {
		if tree == nil {
			continue
		}
		for name, val := range tree.FeatureImportance() {
			importance[name] += val
		}
	}

	return normalizeImportance(importance)
}
