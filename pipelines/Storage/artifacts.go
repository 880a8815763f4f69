package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	dataset "github.com/pricecast-to/pricecast-go/pipelines/Dataset"
	ml "github.com/pricecast-to/pricecast-go/pipelines/ML"
)

// ArtifactStore writes run artifacts under a per-run directory:
// the completed dataset, each trained model and a manifest.
type ArtifactStore struct {
	BaseDir string
}

// ManifestModel is one model entry of the run manifest
type ManifestModel struct {
	Model    string             `json:"model"`
	Params   map[string]float64 `json:"params"`
	RMSE     float64            `json:"rmse"`
	R2       float64            `json:"r2"`
	MAE      float64            `json:"mae"`
	Champion bool               `json:"champion"`
	Path     string             `json:"path"`
}

// Manifest describes everything a run wrote to disk
type Manifest struct {
	RunID              string          `json:"run_id"`
	CreatedAt          time.Time       `json:"created_at"`
	DataPath           string          `json:"data_path"`
	Rows               int             `json:"rows"`
	MissingAreaCount   int             `json:"missing_area_count"`
	ImputationStrategy string          `json:"imputation_strategy"`
	DatasetPath        string          `json:"dataset_path"`
	Models             []ManifestModel `json:"models"`
}

// NewArtifactStore creates the artifact store rooted at baseDir
func NewArtifactStore(baseDir string) *ArtifactStore {
	return &ArtifactStore{BaseDir: baseDir}
}

// RunDir returns (and creates) the directory for one run
func (a *ArtifactStore) RunDir(runID string) (string, error) {
	dir := filepath.Join(a.BaseDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return dir, nil
}

// SaveDataset writes the completed dataset as JSON and returns its path
func (a *ArtifactStore) SaveDataset(runID string, d *dataset.Dataset) (string, error) {
	dir, err := a.RunDir(runID)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, "dataset.json")
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal dataset: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write dataset: %w", err)
	}
	return path, nil
}

// modelSaver is satisfied by every trained regressor
type modelSaver interface {
	Name() string
	Save(path string) error
}

// SaveModel persists one trained model as JSON and returns its path
func (a *ArtifactStore) SaveModel(runID string, model modelSaver) (string, error) {
	dir, err := a.RunDir(runID)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, model.Name()+".json")
	if err := model.Save(path); err != nil {
		return "", err
	}
	return path, nil
}

// SaveManifest writes the run manifest
func (a *ArtifactStore) SaveManifest(m *Manifest) (string, error) {
	dir, err := a.RunDir(m.RunID)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, "manifest.json")
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

// LoadManifest reads a run manifest back
func (a *ArtifactStore) LoadManifest(runID string) (*Manifest, error) {
	path := filepath.Join(a.BaseDir, runID, "manifest.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &m, nil
}

// LoadChampion loads the champion model named in a run's manifest
func (a *ArtifactStore) LoadChampion(runID string) (ml.Regressor, *ManifestModel, error) {
	manifest, err := a.LoadManifest(runID)
	if err != nil {
		return nil, nil, err
	}

	for i := range manifest.Models {
		entry := &manifest.Models[i]
		if !entry.Champion {
			continue
		}

		var model ml.Regressor
		switch entry.Model {
		case "decision_tree":
			m := &ml.TreeRegressor{}
			if err := m.Load(entry.Path); err != nil {
				return nil, nil, err
			}
			model = m
		case "random_forest":
			m := &ml.ForestRegressor{}
			if err := m.Load(entry.Path); err != nil {
				return nil, nil, err
			}
			model = m
		case "gbm":
			m := &ml.GBMRegressor{}
			if err := m.Load(entry.Path); err != nil {
				return nil, nil, err
			}
			model = m
		case "xgboost":
			m := &ml.XGBRegressor{}
			if err := m.Load(entry.Path); err != nil {
				return nil, nil, err
			}
			model = m
		default:
			return nil, nil, fmt.Errorf("unknown model type in manifest: %s", entry.Model)
		}

		return model, entry, nil
	}

	return nil, nil, fmt.Errorf("manifest for run %s has no champion model", runID)
}
