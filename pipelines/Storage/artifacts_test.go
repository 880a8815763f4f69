package storage

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dataset "github.com/pricecast-to/pricecast-go/pipelines/Dataset"
	ml "github.com/pricecast-to/pricecast-go/pipelines/ML"
)

func trainedTree(t *testing.T) *ml.TreeRegressor {
	t.Helper()
	X := [][]float64{{1000, 2}, {1500, 3}, {2000, 4}, {1200, 2}, {1800, 3}, {2500, 5}}
	y := []float64{100, 150, 200, 120, 180, 250}
	tree := ml.NewTreeRegressor(ml.TreeConfig{Cp: 0.0})
	require.NoError(t, tree.Fit(X, y, []string{"area", "bedrooms"}))
	return tree
}

func TestArtifactRoundTrip(t *testing.T) {
	store := NewArtifactStore(t.TempDir())
	const runID = "run-artifacts"

	ds := &dataset.Dataset{Listings: []dataset.Listing{
		{Area: 1000, Bedrooms: 2, PropertyType: dataset.Condo, FinalPrice: 600000, ListPrice: 590000},
	}}
	datasetPath, err := store.SaveDataset(runID, ds)
	require.NoError(t, err)
	assert.FileExists(t, datasetPath)

	tree := trainedTree(t)
	modelPath, err := store.SaveModel(runID, tree)
	require.NoError(t, err)
	assert.FileExists(t, modelPath)

	manifest := &Manifest{
		RunID:              runID,
		CreatedAt:          time.Now().UTC(),
		DataPath:           "data/listings.csv",
		Rows:               1,
		ImputationStrategy: "mean",
		DatasetPath:        datasetPath,
		Models: []ManifestModel{{
			Model:    "decision_tree",
			Params:   map[string]float64{"cp": 0.0},
			RMSE:     1000,
			Champion: true,
			Path:     modelPath,
		}},
	}
	manifestPath, err := store.SaveManifest(manifest)
	require.NoError(t, err)
	assert.FileExists(t, manifestPath)

	loaded, err := store.LoadManifest(runID)
	require.NoError(t, err)
	assert.Equal(t, runID, loaded.RunID)
	require.Len(t, loaded.Models, 1)
	assert.True(t, loaded.Models[0].Champion)
}

func TestLoadChampion(t *testing.T) {
	store := NewArtifactStore(t.TempDir())
	const runID = "run-champion"

	tree := trainedTree(t)
	modelPath, err := store.SaveModel(runID, tree)
	require.NoError(t, err)

	_, err = store.SaveManifest(&Manifest{
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
		Models: []ManifestModel{{
			Model:    "decision_tree",
			Champion: true,
			Path:     modelPath,
		}},
	})
	require.NoError(t, err)

	model, entry, err := store.LoadChampion(runID)
	require.NoError(t, err)
	assert.Equal(t, "decision_tree", entry.Model)

	want, err := tree.Predict([]float64{1500, 3})
	require.NoError(t, err)
	got, err := model.Predict([]float64{1500, 3})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadChampionNoManifest(t *testing.T) {
	store := NewArtifactStore(t.TempDir())
	_, _, err := store.LoadChampion("nothing-here")
	assert.Error(t, err)
}

func TestLoadChampionNoChampionFlag(t *testing.T) {
	store := NewArtifactStore(t.TempDir())
	_, err := store.SaveManifest(&Manifest{
		RunID:  "run-flat",
		Models: []ManifestModel{{Model: "gbm", Path: "x"}},
	})
	require.NoError(t, err)

	_, _, err = store.LoadChampion("run-flat")
	assert.Error(t, err)
}

func TestRunDirCreated(t *testing.T) {
	base := t.TempDir()
	store := NewArtifactStore(base)

	dir, err := store.RunDir("abc")
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
