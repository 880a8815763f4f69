package ml

import (
	"fmt"
	"math/rand"
	"sort"
)

// XGBConfig holds the regularized-boosting hyperparameters. Lambda is the
// L2 penalty on leaf weights and Gamma the minimum gain required to split.
type XGBConfig struct {
	Rounds          int     `json:"rounds"`
	MaxDepth        int     `json:"max_depth"`
	Eta             float64 `json:"eta"`
	Gamma           float64 `json:"gamma"`
	Lambda          float64 `json:"lambda"`
	Subsample       float64 `json:"subsample"`
	ColsampleBytree float64 `json:"colsample_bytree"`
	MinChildWeight  float64 `json:"min_child_weight"`
	Seed            int64   `json:"seed"`
}

// DefaultXGBConfig returns the regularized-boosting defaults used outside
// grid search.
func DefaultXGBConfig() XGBConfig {
	return XGBConfig{
		Rounds:          200,
		MaxDepth:        6,
		Eta:             0.1,
		Gamma:           0.0,
		Lambda:          1.0,
		Subsample:       1.0,
		ColsampleBytree: 1.0,
		MinChildWeight:  1.0,
		Seed:            1,
	}
}

// xgbNode is a single node of a regularized boosted tree. Leaf weights come
// from the second-order leaf formula -G/(H+lambda).
type xgbNode struct {
	Feature   int      `json:"feature"`
	Threshold float64  `json:"threshold"`
	Weight    float64  `json:"weight"`
	IsLeaf    bool     `json:"is_leaf"`
	Gain      float64  `json:"gain"`
	Left      *xgbNode `json:"left,omitempty"`
	Right     *xgbNode `json:"right,omitempty"`
}

// XGBRegressor implements regularized gradient boosting with second-order
// split scoring, row subsampling and per-tree column subsampling.
type XGBRegressor struct {
	Trees        []*xgbNode `json:"trees"`
	BaseScore    float64    `json:"base_score"`
	Config       XGBConfig  `json:"config"`
	FeatureNames []string   `json:"feature_names"`
	NumFeatures  int        `json:"num_features"`

	featureGains map[int]float64
}

// NewXGBRegressor creates a regularized boosted ensemble with the given
// hyperparameters, falling back to defaults for unset values.
func NewXGBRegressor(config XGBConfig) *XGBRegressor {
	if config.Rounds <= 0 {
		config.Rounds = 100
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = 6
	}
	if config.Eta <= 0 {
		config.Eta = 0.1
	}
	if config.Lambda <= 0 {
		config.Lambda = 1.0
	}
	if config.Subsample <= 0 || config.Subsample > 1 {
		config.Subsample = 1.0
	}
	if config.ColsampleBytree <= 0 || config.ColsampleBytree > 1 {
		config.ColsampleBytree = 1.0
	}
	if config.MinChildWeight <= 0 {
		config.MinChildWeight = 1.0
	}
	return &XGBRegressor{Config: config}
}

// Name identifies the model family
func (x *XGBRegressor) Name() string {
	return "xgboost"
}

// Fit trains the ensemble. For squared-error loss the gradient of each
// sample is prediction minus target and the hessian is one.
func (x *XGBRegressor) Fit(X [][]float64, y []float64, featureNames []string) error {
	if err := validateTrainingData(X, y, featureNames); err != nil {
		return err
	}

	x.FeatureNames = featureNames
	x.NumFeatures = len(X[0])
	x.BaseScore = calculateMean(y)
	x.Trees = make([]*xgbNode, 0, x.Config.Rounds)
	x.featureGains = make(map[int]float64)

	rng := rand.New(rand.NewSource(x.Config.Seed))

	predictions := make([]float64, len(y))
	for i := range predictions {
		predictions[i] = x.BaseScore
	}

	grad := make([]float64, len(y))
	hess := make([]float64, len(y))

	for round := 0; round < x.Config.Rounds; round++ {
		for i := range y {
			grad[i] = predictions[i] - y[i]
			hess[i] = 1.0
		}

		rows := x.sampleRows(len(y), rng)
		cols := x.sampleColumns(rng)

		tree := x.buildTree(X, grad, hess, rows, cols, 0)
		x.Trees = append(x.Trees, tree)

		for i := range X {
			predictions[i] += x.Config.Eta * x.predictTree(tree, X[i])
		}
	}

	return nil
}

// sampleRows draws a subsample of row indices without replacement
func (x *XGBRegressor) sampleRows(n int, rng *rand.Rand) []int {
	if x.Config.Subsample >= 1.0 {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}

	k := int(x.Config.Subsample * float64(n))
	if k < 1 {
		k = 1
	}
	perm := rng.Perm(n)
	rows := perm[:k]
	sort.Ints(rows)
	return rows
}

// sampleColumns draws the feature subset for one tree
func (x *XGBRegressor) sampleColumns(rng *rand.Rand) []int {
	if x.Config.ColsampleBytree >= 1.0 {
		cols := make([]int, x.NumFeatures)
		for i := range cols {
			cols[i] = i
		}
		return cols
	}

	k := int(x.Config.ColsampleBytree * float64(x.NumFeatures))
	if k < 1 {
		k = 1
	}
	perm := rng.Perm(x.NumFeatures)
	cols := perm[:k]
	sort.Ints(cols)
	return cols
}

// buildTree grows one tree greedily on the gradient statistics of the
// active rows, restricted to the sampled columns.
func (x *XGBRegressor) buildTree(X [][]float64, grad, hess []float64, rows, cols []int, depth int) *xgbNode {
	sumG, sumH := 0.0, 0.0
	for _, i := range rows {
		sumG += grad[i]
		sumH += hess[i]
	}

	leaf := &xgbNode{
		IsLeaf: true,
		Weight: -sumG / (sumH + x.Config.Lambda),
	}

	if depth >= x.Config.MaxDepth || len(rows) < 2 {
		return leaf
	}

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0
	parentScore := sumG * sumG / (sumH + x.Config.Lambda)

	for _, f := range cols {
		values := make([]float64, len(rows))
		for j, i := range rows {
			values[j] = X[i][f]
		}

		for _, threshold := range getThresholds(values) {
			leftG, leftH := 0.0, 0.0
			for _, i := range rows {
				if X[i][f] <= threshold {
					leftG += grad[i]
					leftH += hess[i]
				}
			}
			rightG := sumG - leftG
			rightH := sumH - leftH

			if leftH < x.Config.MinChildWeight || rightH < x.Config.MinChildWeight {
				continue
			}

			gain := 0.5*(leftG*leftG/(leftH+x.Config.Lambda)+
				rightG*rightG/(rightH+x.Config.Lambda)-
				parentScore) - x.Config.Gamma

			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = threshold
			}
		}
	}

	if bestFeature < 0 {
		return leaf
	}

	x.featureGains[bestFeature] += bestGain

	leftRows := make([]int, 0, len(rows))
	rightRows := make([]int, 0, len(rows))
	for _, i := range rows {
		if X[i][bestFeature] <= bestThreshold {
			leftRows = append(leftRows, i)
		} else {
			rightRows = append(rightRows, i)
		}
	}

	return &xgbNode{
		Feature:   bestFeature,
		Threshold: bestThreshold,
		Gain:      bestGain,
		Left:      x.buildTree(X, grad, hess, leftRows, cols, depth+1),
		Right:     x.buildTree(X, grad, hess, rightRows, cols, depth+1),
	}
}

// predictTree walks one tree down to a leaf weight
func (x *XGBRegressor) predictTree(node *xgbNode, sample []float64) float64 {
	for !node.IsLeaf {
		if sample[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Weight
}

// Predict sums the base score and the shrunken leaf weight of each tree
func (x *XGBRegressor) Predict(sample []float64) (float64, error) {
	if len(x.Trees) == 0 {
		return 0.0, fmt.Errorf("model not trained")
	}
	if len(sample) != x.NumFeatures {
		return 0.0, fmt.Errorf("expected %d features, got %d", x.NumFeatures, len(sample))
	}

	prediction := x.BaseScore
	for _, tree := range x.Trees {
		prediction += x.Config.Eta * x.predictTree(tree, sample)
	}

	return prediction, nil
}

// FeatureImportance returns the normalized total gain per feature across
// all boosting rounds.
func (x *XGBRegressor) FeatureImportance() map[string]float64 {
	importance := make(map[string]float64)
	for _, name := range x.FeatureNames {
		importance[name] = 0.0
	}
	for f, gain := range x.featureGains {
		if f < len(x.FeatureNames) {
			importance[x.FeatureNames[f]] += gain
		}
	}
	return normalizeImportance(importance)
}
