// Package storage persists pipeline runs: model artifacts on disk and run
// metadata in SQLite.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// MetadataStore provides SQLite-based persistence for run and model metadata
type MetadataStore struct {
	db *sql.DB
}

// RunRecord describes one pipeline execution
type RunRecord struct {
	ID                 string     `json:"id"`
	StartedAt          time.Time  `json:"started_at"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
	Status             string     `json:"status"`
	DataPath           string     `json:"data_path"`
	Rows               int        `json:"rows"`
	MissingAreaCount   int        `json:"missing_area_count"`
	ImputationStrategy string     `json:"imputation_strategy"`
	ChampionModel      string     `json:"champion_model"`
	ConfigJSON         string     `json:"config_json"`
}

// ModelRecord describes one trained model within a run
type ModelRecord struct {
	RunID        string             `json:"run_id"`
	Model        string             `json:"model"`
	Params       map[string]float64 `json:"params"`
	RMSE         float64            `json:"rmse"`
	R2           float64            `json:"r2"`
	MAE          float64            `json:"mae"`
	Champion     bool               `json:"champion"`
	ArtifactPath string             `json:"artifact_path"`
}

// NewMetadataStore opens (or creates) the run-metadata database
func NewMetadataStore(dbPath string) (*MetadataStore, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Writes are serialized in SQLite anyway, keep the pool small
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &MetadataStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *MetadataStore) Close() error {
	return s.db.Close()
}

// initSchema creates the database schema if it doesn't exist
func (s *MetadataStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		status TEXT NOT NULL,
		data_path TEXT NOT NULL,
		rows INTEGER NOT NULL DEFAULT 0,
		missing_area_count INTEGER NOT NULL DEFAULT 0,
		imputation_strategy TEXT,
		champion_model TEXT,
		config TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	CREATE TABLE IF NOT EXISTS model_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		model TEXT NOT NULL,
		params TEXT NOT NULL,
		rmse REAL NOT NULL,
		r2 REAL NOT NULL,
		mae REAL NOT NULL,
		champion INTEGER NOT NULL DEFAULT 0,
		artifact_path TEXT,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE,
		UNIQUE(run_id, model)
	);

	CREATE INDEX IF NOT EXISTS idx_model_metrics_run_id ON model_metrics(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordRunStart inserts a new run in "running" state
func (s *MetadataStore) RecordRunStart(run *RunRecord) error {
	query := `
		INSERT INTO runs (id, started_at, status, data_path, rows, missing_area_count, config)
		VALUES (?, ?, 'running', ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		run.ID,
		run.StartedAt,
		run.DataPath,
		run.Rows,
		run.MissingAreaCount,
		run.ConfigJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// RecordRunFinish marks a run as completed or failed and stores the outcome
func (s *MetadataStore) RecordRunFinish(runID, status, imputationStrategy, championModel string) error {
	query := `
		UPDATE runs
		SET finished_at = ?, status = ?, imputation_strategy = ?, champion_model = ?
		WHERE id = ?
	`
	result, err := s.db.Exec(query, time.Now().UTC(), status, imputationStrategy, championModel, runID)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// RecordModelMetrics stores the cross-validated metrics of one model
func (s *MetadataStore) RecordModelMetrics(rec *ModelRecord) error {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	champion := 0
	if rec.Champion {
		champion = 1
	}

	query := `
		INSERT OR REPLACE INTO model_metrics (run_id, model, params, rmse, r2, mae, champion, artifact_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.Exec(query,
		rec.RunID,
		rec.Model,
		string(params),
		rec.RMSE,
		rec.R2,
		rec.MAE,
		champion,
		rec.ArtifactPath,
	)
	if err != nil {
		return fmt.Errorf("failed to record model metrics: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (s *MetadataStore) GetRun(id string) (*RunRecord, error) {
	query := `
		SELECT id, started_at, finished_at, status, data_path, rows, missing_area_count,
		       COALESCE(imputation_strategy, ''), COALESCE(champion_model, ''), config
		FROM runs WHERE id = ?
	`

	run := &RunRecord{}
	var finishedAt sql.NullTime
	err := s.db.QueryRow(query, id).Scan(
		&run.ID,
		&run.StartedAt,
		&finishedAt,
		&run.Status,
		&run.DataPath,
		&run.Rows,
		&run.MissingAreaCount,
		&run.ImputationStrategy,
		&run.ChampionModel,
		&run.ConfigJSON,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}

	return run, nil
}

// ListRuns lists runs newest-first
func (s *MetadataStore) ListRuns(limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, started_at, finished_at, status, data_path, rows, missing_area_count,
		       COALESCE(imputation_strategy, ''), COALESCE(champion_model, ''), config
		FROM runs ORDER BY started_at DESC LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*RunRecord, 0)
	for rows.Next() {
		run := &RunRecord{}
		var finishedAt sql.NullTime
		if err := rows.Scan(
			&run.ID,
			&run.StartedAt,
			&finishedAt,
			&run.Status,
			&run.DataPath,
			&run.Rows,
			&run.MissingAreaCount,
			&run.ImputationStrategy,
			&run.ChampionModel,
			&run.ConfigJSON,
		); err != nil {
			continue
		}
		if finishedAt.Valid {
			run.FinishedAt = &finishedAt.Time
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// ListModelMetrics returns the per-model metrics of one run
func (s *MetadataStore) ListModelMetrics(runID string) ([]*ModelRecord, error) {
	query := `
		SELECT run_id, model, params, rmse, r2, mae, champion, COALESCE(artifact_path, '')
		FROM model_metrics WHERE run_id = ? ORDER BY rmse ASC
	`

	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list model metrics: %w", err)
	}
	defer rows.Close()

	records := make([]*ModelRecord, 0)
	for rows.Next() {
		rec := &ModelRecord{}
		var params string
		var champion int
		if err := rows.Scan(&rec.RunID, &rec.Model, &params, &rec.RMSE, &rec.R2, &rec.MAE, &champion, &rec.ArtifactPath); err != nil {
			continue
		}
		if err := json.Unmarshal([]byte(params), &rec.Params); err != nil {
			rec.Params = map[string]float64{}
		}
		rec.Champion = champion == 1
		records = append(records, rec)
	}

	return records, rows.Err()
}
