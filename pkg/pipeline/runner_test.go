package pipeline

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricecast-to/pricecast-go/pkg/config"
	"github.com/pricecast-to/pricecast-go/utils"
)

const listingsHeader = "mls_id,title,description,full_address,url,district_code,district_name,region,latitude,longitude,sold_date,days_on_market,mean_district_income,area_sqft,bedrooms_ag,bedrooms_bg,bathrooms,parking_spaces,property_type,final_price,list_price"

// writeListingsCSV generates a synthetic listings file where price follows
// area and bedrooms, every sixth row lacks its living area, and property
// types rotate through the raw source labels. Returns the file path and the
// mean of the observed (non-missing) areas.
func writeListingsCSV(t *testing.T, dir string, n int) (string, float64) {
	t.Helper()

	rawTypes := []string{"Detached", "Condo Apt", "Semi-Detached", "Condo Townhouse", "Duplex"}
	rng := rand.New(rand.NewSource(7))

	var b strings.Builder
	b.WriteString(listingsHeader + "\n")

	observedSum := 0.0
	observedCount := 0
	for i := 0; i < n; i++ {
		bedsAG := 1 + i%4
		bedsBG := i % 2
		beds := float64(bedsAG + bedsBG)
		baths := 1 + i%3
		parking := i % 3
		income := 70000 + float64(i%10)*3000

		area := 550 + 320*beds + rng.NormFloat64()*60
		final := 420*area + 65000*beds + 35000*float64(baths) + rng.NormFloat64()*20000
		list := 0.97 * final

		areaCell := fmt.Sprintf("%.0f", area)
		if i%6 == 0 {
			areaCell = ""
		} else {
			observedSum += area
			observedCount++
		}

		fmt.Fprintf(&b, "M%03d,t,d,addr,u,E01,x,Toronto,43.6,-79.3,2024-04-01,%d,%.0f,%s,%d,%d,%d,%d,%s,%.0f,%.0f\n",
			i, 1+i%30, income, areaCell, bedsAG, bedsBG, baths, parking, rawTypes[i%5], final, list)
	}

	path := filepath.Join(dir, "listings.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path, observedSum / float64(observedCount)
}

func testRunConfig(t *testing.T, dir, dataPath string) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Data.Path = dataPath
	cfg.Pipeline.Seed = 42
	cfg.Pipeline.Folds = 3
	cfg.Pipeline.Workers = 2
	cfg.Grids = config.GridsConfig{
		Tree: config.TreeGrid{ComplexityParams: []float64{0.01}},
		Forest: config.ForestGrid{
			NumTrees: []int{15},
			Mtry:     []int{3},
		},
		GBM: config.GBMGrid{
			NumTrees:         []int{25},
			Shrinkage:        []float64{0.1},
			InteractionDepth: []int{3},
			MinObsInNode:     []int{5},
		},
		XGBoost: config.XGBoostGrid{
			Rounds:          []int{25},
			MaxDepth:        []int{3},
			Eta:             []float64{0.3},
			Gamma:           []float64{0.0},
			ColsampleBytree: []float64{1.0},
			MinChildWeight:  []float64{1.0},
			Subsample:       []float64{1.0},
		},
	}
	cfg.Output.ArtifactsDir = filepath.Join(dir, "artifacts")
	cfg.Output.ReportPath = filepath.Join(dir, "artifacts", "report.md")
	cfg.Output.FiguresDir = filepath.Join(dir, "artifacts", "figures")
	cfg.Output.MetadataDB = filepath.Join(dir, "pricecast.db")
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunnerEndToEnd(t *testing.T) {
	dir := t.TempDir()
	dataPath, observedMean := writeListingsCSV(t, dir, 90)
	cfg := testRunConfig(t, dir, dataPath)

	logger := utils.NewLogger()
	logger.SetOutput(io.Discard)

	runner, err := NewRunner(cfg, logger)
	require.NoError(t, err)
	defer runner.Close()

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)

	// The completed dataset has no missing areas and its area mean stays
	// close to the observed distribution.
	assert.Equal(t, 0, result.Dataset.MissingAreaCount())
	areas := result.Dataset.Areas()
	sum := 0.0
	for _, a := range areas {
		sum += a
	}
	completedMean := sum / float64(len(areas))
	assert.InEpsilon(t, observedMean, completedMean, 0.15,
		"imputed areas should not shift the mean area materially")

	require.NotNil(t, result.Selection)
	assert.NotEmpty(t, result.Selection.Strategy)

	// All four families evaluated, ranked by RMSE ascending
	require.NotNil(t, result.Leaderboard)
	require.Len(t, result.Leaderboard.Entries, 4)
	for i := 1; i < len(result.Leaderboard.Entries); i++ {
		assert.LessOrEqual(t,
			result.Leaderboard.Entries[i-1].RMSE,
			result.Leaderboard.Entries[i].RMSE)
	}
	champion := result.Leaderboard.Champion()
	require.NotNil(t, champion)

	// The auxiliary regression recovers the generating list/final ratio
	require.NotNil(t, result.ListPrice)
	assert.InDelta(t, 0.97, result.ListPrice.Slope, 0.02)

	// Artifacts and report on disk
	runDir := filepath.Join(cfg.Output.ArtifactsDir, result.RunID)
	assert.FileExists(t, filepath.Join(runDir, "dataset.json"))
	assert.FileExists(t, filepath.Join(runDir, "manifest.json"))
	assert.FileExists(t, filepath.Join(runDir, champion.Model+".json"))
	assert.FileExists(t, result.ReportPath)

	// Run recorded as completed with the champion
	runs, err := runner.ListRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, result.RunID, runs[0].ID)
	assert.Equal(t, "completed", runs[0].Status)
	assert.Equal(t, champion.Model, runs[0].ChampionModel)
	assert.Equal(t, result.Selection.Strategy, runs[0].ImputationStrategy)
}

func TestRunnerCancelledContext(t *testing.T) {
	dir := t.TempDir()
	dataPath, _ := writeListingsCSV(t, dir, 90)
	cfg := testRunConfig(t, dir, dataPath)

	logger := utils.NewLogger()
	logger.SetOutput(io.Discard)

	runner, err := NewRunner(cfg, logger)
	require.NoError(t, err)
	defer runner.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = runner.Run(ctx)
	require.Error(t, err)

	runs, err := runner.ListRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "failed", runs[0].Status)
}