package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *MetadataStore {
	t.Helper()
	store, err := NewMetadataStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := setupStore(t)

	run := &RunRecord{
		ID:               "run-1",
		StartedAt:        time.Now().UTC().Truncate(time.Second),
		DataPath:         "data/listings.csv",
		Rows:             1200,
		MissingAreaCount: 85,
		ConfigJSON:       `{"seed":42}`,
	}
	require.NoError(t, store.RecordRunStart(run))

	loaded, err := store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "running", loaded.Status)
	assert.Equal(t, 1200, loaded.Rows)
	assert.Equal(t, 85, loaded.MissingAreaCount)
	assert.Nil(t, loaded.FinishedAt)

	require.NoError(t, store.RecordRunFinish("run-1", "completed", "random_forest", "xgboost"))

	loaded, err = store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", loaded.Status)
	assert.Equal(t, "random_forest", loaded.ImputationStrategy)
	assert.Equal(t, "xgboost", loaded.ChampionModel)
	assert.NotNil(t, loaded.FinishedAt)
}

func TestRecordRunFinishUnknownRun(t *testing.T) {
	store := setupStore(t)
	err := store.RecordRunFinish("nope", "completed", "", "")
	assert.Error(t, err)
}

func TestGetRunNotFound(t *testing.T) {
	store := setupStore(t)
	_, err := store.GetRun("missing")
	assert.Error(t, err)
}

func TestModelMetrics(t *testing.T) {
	store := setupStore(t)

	run := &RunRecord{ID: "run-2", StartedAt: time.Now().UTC(), DataPath: "x.csv", ConfigJSON: "{}"}
	require.NoError(t, store.RecordRunStart(run))

	metrics := []*ModelRecord{
		{RunID: "run-2", Model: "decision_tree", Params: map[string]float64{"cp": 0.01}, RMSE: 274957.8, R2: 0.41, MAE: 180000},
		{RunID: "run-2", Model: "xgboost", Params: map[string]float64{"eta": 0.1}, RMSE: 220850.4, R2: 0.62, MAE: 150000, Champion: true, ArtifactPath: "artifacts/run-2/xgboost.json"},
		{RunID: "run-2", Model: "random_forest", Params: map[string]float64{"mtry": 3}, RMSE: 233734.1, R2: 0.58, MAE: 160000},
	}
	for _, m := range metrics {
		require.NoError(t, store.RecordModelMetrics(m))
	}

	records, err := store.ListModelMetrics("run-2")
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Ordered by RMSE ascending, champion first
	assert.Equal(t, "xgboost", records[0].Model)
	assert.True(t, records[0].Champion)
	assert.Equal(t, 0.1, records[0].Params["eta"])
	assert.Equal(t, "decision_tree", records[2].Model)
}

func TestModelMetricsUpsert(t *testing.T) {
	store := setupStore(t)
	require.NoError(t, store.RecordRunStart(&RunRecord{ID: "run-3", StartedAt: time.Now().UTC(), DataPath: "x.csv", ConfigJSON: "{}"}))

	rec := &ModelRecord{RunID: "run-3", Model: "gbm", Params: map[string]float64{}, RMSE: 100}
	require.NoError(t, store.RecordModelMetrics(rec))
	rec.RMSE = 90
	require.NoError(t, store.RecordModelMetrics(rec))

	records, err := store.ListModelMetrics("run-3")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 90.0, records[0].RMSE)
}

func TestListRuns(t *testing.T) {
	store := setupStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordRunStart(&RunRecord{
			ID:         []string{"a", "b", "c"}[i],
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			DataPath:   "x.csv",
			ConfigJSON: "{}",
		}))
	}

	runs, err := store.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID, "newest run first")
	assert.Equal(t, "b", runs[1].ID)
}
