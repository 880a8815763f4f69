package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dataset "github.com/pricecast-to/pricecast-go/pipelines/Dataset"
	ml "github.com/pricecast-to/pricecast-go/pipelines/ML"
	missing "github.com/pricecast-to/pricecast-go/pipelines/Missing"
)

func sampleReport() *RunReport {
	return &RunReport{
		RunID:       "run-42",
		GeneratedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		DataPath:    "data/toronto_listings.csv",
		Rows:        1200,
		Summary: []dataset.ColumnSummary{
			{Name: "area", Count: 1115, Missing: 85, Min: 400, Max: 4200, Mean: 1480, Median: 1390, StdDev: 520},
		},
		TypeCounts: map[string]int{dataset.Condo: 600, dataset.Detached: 400},
		Diagnosis: &missing.DiagnosisResult{
			MissingCount: 85,
			MissingRate:  85.0 / 1200.0,
			Alpha:        0.05,
			Mechanism:    "MAR",
			Tests: []missing.TestResult{
				{Feature: "property_type", Test: "chi_squared", Statistic: 42.1, DF: 4, PValue: 0.0001, Dependent: true},
			},
		},
		Selection: &missing.SelectionResult{
			Strategy: "random_forest",
			Scores: []missing.StrategyScore{
				{Strategy: "mean", KS: 0.41},
				{Strategy: "random_forest", KS: 0.12},
			},
		},
		Leaderboard: &Leaderboard{Entries: []*ml.ModelEvaluation{
			{Model: "xgboost", RMSE: 220850.4, R2: 0.618, MAE: 149577.3,
				Params:     map[string]float64{"eta": 0.1, "max_depth": 6},
				Importance: map[string]float64{"area": 0.55, "district_income": 0.25}},
			{Model: "random_forest", RMSE: 233734.1, R2: 0.571, MAE: 158902.6},
		}},
		ListPrice: &ListPriceFit{Intercept: -36525.78, Slope: 1.032594, R2: 0.93, N: 1200},
		Figures:   &FigureSet{AreaHistogram: "figures/area.png"},
	}
}

func TestRenderSections(t *testing.T) {
	out := sampleReport().Render()

	assert.Contains(t, out, "# Toronto House Price Report")
	assert.Contains(t, out, "run-42")
	assert.Contains(t, out, "## Dataset")
	assert.Contains(t, out, "## Missing Living Area")
	assert.Contains(t, out, "**MAR**")
	assert.Contains(t, out, "random_forest (selected)")
	assert.Contains(t, out, "## Model Leaderboard")
	assert.Contains(t, out, "| 1 | xgboost |")
	assert.Contains(t, out, "eta=0.1")
	assert.Contains(t, out, "## Feature Importance (xgboost)")
	assert.Contains(t, out, "## List Price Regression")
	assert.Contains(t, out, "1.032594")
	assert.Contains(t, out, "figures/area.png")
}

func TestRenderLeaderboardOrder(t *testing.T) {
	out := sampleReport().Render()
	first := strings.Index(out, "| 1 | xgboost |")
	second := strings.Index(out, "| 2 | random_forest |")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second)
}

func TestWriteCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "report.md")
	require.NoError(t, sampleReport().Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Toronto House Price Report")
}

func TestRenderWithoutLeaderboard(t *testing.T) {
	r := &RunReport{
		RunID:       "no-models",
		GeneratedAt: time.Now(),
		ListPrice:   &ListPriceFit{Intercept: -36525.78, Slope: 1.032594, R2: 0.93, N: 10},
	}

	var out string
	require.NotPanics(t, func() { out = r.Render() })
	assert.Contains(t, out, "no-models")
	assert.NotContains(t, out, "## Model Leaderboard")
	assert.NotContains(t, out, "## Feature Importance")
}

func TestRenderMinimalReport(t *testing.T) {
	r := &RunReport{
		RunID:       "bare",
		GeneratedAt: time.Now(),
		Leaderboard: &Leaderboard{Entries: []*ml.ModelEvaluation{{Model: "gbm", RMSE: 1}}},
	}
	out := r.Render()
	assert.Contains(t, out, "bare")
	assert.NotContains(t, out, "## Missing Living Area")
}
