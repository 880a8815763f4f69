// Package missing diagnoses the living-area missingness mechanism and fills
// the gaps with competing imputation strategies.
package missing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	dataset "github.com/pricecast-to/pricecast-go/pipelines/Dataset"
)

// TestResult holds one association test between the area-missing indicator
// and a candidate feature.
type TestResult struct {
	Feature   string  `json:"feature"`
	Test      string  `json:"test"`
	Statistic float64 `json:"statistic"`
	DF        float64 `json:"df"`
	PValue    float64 `json:"p_value"`
	Dependent bool    `json:"dependent"` // p < alpha
}

// DiagnosisResult summarizes the missingness diagnosis for the area column
type DiagnosisResult struct {
	MissingCount int          `json:"missing_count"`
	MissingRate  float64      `json:"missing_rate"`
	Alpha        float64      `json:"alpha"`
	Tests        []TestResult `json:"tests"`
	Mechanism    string       `json:"mechanism"` // "MCAR" or "MAR"
}

// numeric features tested against the missingness indicator
var kruskalFeatures = []string{"bedrooms", "bathrooms", "parking", "district_income", "final_price", "list_price"}

// Diagnose tests whether area missingness depends on the other columns.
// Property type is tested with a chi-squared contingency test; each numeric
// feature with a two-group Kruskal-Wallis test. If no test rejects at alpha
// the mechanism is reported as MCAR, otherwise MAR.
func Diagnose(d *dataset.Dataset, alpha float64) (*DiagnosisResult, error) {
	if d.Rows() == 0 {
		return nil, fmt.Errorf("empty dataset")
	}
	if alpha <= 0 || alpha >= 1 {
		return nil, fmt.Errorf("alpha must be in (0, 1), got %v", alpha)
	}

	missing := make([]bool, d.Rows())
	missingCount := 0
	for i, l := range d.Listings {
		missing[i] = l.AreaMissing()
		if missing[i] {
			missingCount++
		}
	}

	result := &DiagnosisResult{
		MissingCount: missingCount,
		MissingRate:  float64(missingCount) / float64(d.Rows()),
		Alpha:        alpha,
	}

	if missingCount == 0 || missingCount == d.Rows() {
		// No contrast between groups, nothing to test
		result.Mechanism = "MCAR"
		return result, nil
	}

	types := make([]string, d.Rows())
	for i, l := range d.Listings {
		types[i] = l.PropertyType
	}
	chi, err := chiSquaredIndependence(missing, types)
	if err == nil {
		chi.Feature = "property_type"
		chi.Dependent = chi.PValue < alpha
		result.Tests = append(result.Tests, *chi)
	}

	for _, feature := range kruskalFeatures {
		values := featureColumn(d, feature)
		kw, err := kruskalWallis(missing, values)
		if err != nil {
			continue
		}
		kw.Feature = feature
		kw.Dependent = kw.PValue < alpha
		result.Tests = append(result.Tests, *kw)
	}

	result.Mechanism = "MCAR"
	for _, t := range result.Tests {
		if t.Dependent {
			result.Mechanism = "MAR"
			break
		}
	}

	return result, nil
}

func featureColumn(d *dataset.Dataset, feature string) []float64 {
	values := make([]float64, d.Rows())
	for i, l := range d.Listings {
		switch feature {
		case "bedrooms":
			values[i] = l.Bedrooms
		case "bathrooms":
			values[i] = l.Bathrooms
		case "parking":
			values[i] = l.Parking
		case "district_income":
			values[i] = l.DistrictIncome
		case "final_price":
			values[i] = l.FinalPrice
		case "list_price":
			values[i] = l.ListPrice
		}
	}
	return values
}

// chiSquaredIndependence runs a chi-squared test of independence between the
// missingness indicator and a categorical column.
func chiSquaredIndependence(missing []bool, categories []string) (*TestResult, error) {
	if len(missing) != len(categories) {
		return nil, fmt.Errorf("indicator and category vectors differ in length")
	}

	counts := make(map[string][2]float64)
	for i, cat := range categories {
		c := counts[cat]
		if missing[i] {
			c[1]++
		} else {
			c[0]++
		}
		counts[cat] = c
	}

	cats := make([]string, 0, len(counts))
	for cat := range counts {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	if len(cats) < 2 {
		return nil, fmt.Errorf("need at least two categories")
	}

	n := float64(len(missing))
	rowTotals := [2]float64{}
	colTotals := make([]float64, len(cats))
	for j, cat := range cats {
		c := counts[cat]
		rowTotals[0] += c[0]
		rowTotals[1] += c[1]
		colTotals[j] = c[0] + c[1]
	}

	statistic := 0.0
	for j, cat := range cats {
		c := counts[cat]
		for r := 0; r < 2; r++ {
			expected := rowTotals[r] * colTotals[j] / n
			if expected == 0 {
				continue
			}
			diff := c[r] - expected
			statistic += diff * diff / expected
		}
	}

	df := float64(len(cats) - 1)
	dist := distuv.ChiSquared{K: df}

	return &TestResult{
		Test:      "chi_squared",
		Statistic: statistic,
		DF:        df,
		PValue:    dist.Survival(statistic),
	}, nil
}

// kruskalWallis runs a two-group Kruskal-Wallis rank test of the values
// split by the missingness indicator, with the standard tie correction.
func kruskalWallis(missing []bool, values []float64) (*TestResult, error) {
	if len(missing) != len(values) {
		return nil, fmt.Errorf("indicator and value vectors differ in length")
	}

	n := len(values)
	ranks, tieCorrection := averageRanks(values)

	var sumRanks [2]float64
	var groupSizes [2]float64
	for i := range values {
		g := 0
		if missing[i] {
			g = 1
		}
		sumRanks[g] += ranks[i]
		groupSizes[g]++
	}

	if groupSizes[0] == 0 || groupSizes[1] == 0 {
		return nil, fmt.Errorf("both groups must be non-empty")
	}

	nf := float64(n)
	h := 0.0
	for g := 0; g < 2; g++ {
		h += sumRanks[g] * sumRanks[g] / groupSizes[g]
	}
	h = 12.0/(nf*(nf+1))*h - 3*(nf+1)

	if tieCorrection > 0 && tieCorrection < 1 {
		h /= tieCorrection
	}

	dist := distuv.ChiSquared{K: 1}

	return &TestResult{
		Test:      "kruskal_wallis",
		Statistic: h,
		DF:        1,
		PValue:    dist.Survival(h),
	}, nil
}

// averageRanks assigns mid-ranks to tied values and returns the Kruskal-
// Wallis tie correction factor 1 - sum(t^3-t)/(n^3-n).
func averageRanks(values []float64) ([]float64, float64) {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	ranks := make([]float64, n)
	tieSum := 0.0

	i := 0
	for i < n {
		j := i
		for j < n && values[order[j]] == values[order[i]] {
			j++
		}
		// Members of a tie block share the average of their positions
		avgRank := float64(i+j+1) / 2.0
		for k := i; k < j; k++ {
			ranks[order[k]] = avgRank
		}
		t := float64(j - i)
		tieSum += t*t*t - t
		i = j
	}

	nf := float64(n)
	correction := 1.0 - tieSum/(nf*nf*nf-nf)
	return ranks, correction
}
