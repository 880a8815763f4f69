package missing

import (
	"fmt"
	"sort"

	"github.com/pricecast-to/pricecast-go/utils"

	dataset "github.com/pricecast-to/pricecast-go/pipelines/Dataset"
)

// StrategyScore records how closely one strategy's imputed values track the
// observed area distribution. Lower is better.
type StrategyScore struct {
	Strategy string  `json:"strategy"`
	KS       float64 `json:"ks"`
}

// SelectionResult holds the winning imputation and the per-strategy scores
type SelectionResult struct {
	Strategy string          `json:"strategy"`
	Areas    []float64       `json:"areas"`
	Scores   []StrategyScore `json:"scores"`
}

// SelectImputation runs every strategy and keeps the one whose imputed
// values are closest to the observed area distribution, measured by the
// two-sample Kolmogorov-Smirnov statistic. Strategies that fail are logged
// and skipped; the selection errors only if none succeed.
func SelectImputation(d *dataset.Dataset, imputers []Imputer, logger *utils.Logger) (*SelectionResult, error) {
	if len(imputers) == 0 {
		return nil, fmt.Errorf("no imputation strategies given")
	}

	if d.MissingAreaCount() == 0 {
		return &SelectionResult{Strategy: "none", Areas: d.Areas()}, nil
	}

	observed := d.ObservedAreas()

	result := &SelectionResult{}
	bestKS := -1.0

	for _, imp := range imputers {
		areas, err := imp.Impute(d)
		if err != nil {
			if logger != nil {
				logger.Warn("imputation strategy failed",
					utils.String("strategy", imp.Name()),
					utils.Error(err))
			}
			continue
		}

		imputed := make([]float64, 0, d.MissingAreaCount())
		for i, l := range d.Listings {
			if l.AreaMissing() {
				imputed = append(imputed, areas[i])
			}
		}

		ks := KolmogorovSmirnov(imputed, observed)
		result.Scores = append(result.Scores, StrategyScore{Strategy: imp.Name(), KS: ks})

		if bestKS < 0 || ks < bestKS {
			bestKS = ks
			result.Strategy = imp.Name()
			result.Areas = areas
		}
	}

	if result.Strategy == "" {
		return nil, fmt.Errorf("all imputation strategies failed")
	}

	if logger != nil {
		logger.Info("imputation strategy selected",
			utils.String("strategy", result.Strategy),
			utils.Float("ks", bestKS))
	}

	return result, nil
}

// KolmogorovSmirnov returns the two-sample KS statistic: the largest gap
// between the empirical CDFs of the two samples.
func KolmogorovSmirnov(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 1.0
	}

	sa := append([]float64{}, a...)
	sb := append([]float64{}, b...)
	sort.Float64s(sa)
	sort.Float64s(sb)

	maxGap := 0.0
	i, j := 0, 0
	for i < len(sa) && j < len(sb) {
		// Step both CDFs past the smaller value, consuming ties together
		v := sa[i]
		if sb[j] < v {
			v = sb[j]
		}
		for i < len(sa) && sa[i] == v {
			i++
		}
		for j < len(sb) && sb[j] == v {
			j++
		}
		gap := float64(i)/float64(len(sa)) - float64(j)/float64(len(sb))
		if gap < 0 {
			gap = -gap
		}
		if gap > maxGap {
			maxGap = gap
		}
	}

	return maxGap
}
