package ml

import (
	"encoding/json"
	"fmt"
	"os"
)

// Save saves the model to a JSON file
func (t *TreeRegressor) Save(path string) error {
	return saveModel(t, path)
}

// Load loads a model from a JSON file
func (t *TreeRegressor) Load(path string) error {
	return loadModel(t, path)
}

// Save saves the model to a JSON file
func (rf *ForestRegressor) Save(path string) error {
	return saveModel(rf, path)
}

// Load loads a model from a JSON file
func (rf *ForestRegressor) Load(path string) error {
	return loadModel(rf, path)
}

// Save saves the model to a JSON file
func (g *GBMRegressor) Save(path string) error {
	return saveModel(g, path)
}

// Load loads a model from a JSON file
func (g *GBMRegressor) Load(path string) error {
	return loadModel(g, path)
}

// Save saves the model to a JSON file
func (x *XGBRegressor) Save(path string) error {
	return saveModel(x, path)
}

// Load loads a model from a JSON file. Per-feature gains are not part of
// the artifact; a loaded model predicts but reports no importance.
func (x *XGBRegressor) Load(path string) error {
	if err := loadModel(x, path); err != nil {
		return err
	}
	x.featureGains = make(map[int]float64)
	return nil
}

func saveModel(model interface{}, path string) error {
	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}

	return nil
}

func loadModel(model interface{}, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read model file: %w", err)
	}

	if err := json.Unmarshal(data, model); err != nil {
		return fmt.Errorf("failed to unmarshal model: %w", err)
	}

	return nil
}
