package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the full pipeline configuration
type Config struct {
	Data     DataConfig     `yaml:"data" json:"data"`
	Pipeline PipelineConfig `yaml:"pipeline" json:"pipeline"`
	Grids    GridsConfig    `yaml:"grids" json:"grids"`
	Output   OutputConfig   `yaml:"output" json:"output"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Schedule ScheduleConfig `yaml:"schedule" json:"schedule"`
}

// DataConfig describes the input listings file
type DataConfig struct {
	Path      string `yaml:"path" json:"path"`
	Delimiter string `yaml:"delimiter" json:"delimiter"`
}

// PipelineConfig holds sampling and testing parameters shared by every stage
type PipelineConfig struct {
	Seed    int64   `yaml:"seed" json:"seed"`
	Folds   int     `yaml:"folds" json:"folds"`
	Alpha   float64 `yaml:"alpha" json:"alpha"`     // significance level for missingness tests
	Workers int     `yaml:"workers" json:"workers"` // parallel grid-search workers
}

// GridsConfig holds the hyperparameter search space per model
type GridsConfig struct {
	Tree    TreeGrid    `yaml:"tree" json:"tree"`
	Forest  ForestGrid  `yaml:"forest" json:"forest"`
	GBM     GBMGrid     `yaml:"gbm" json:"gbm"`
	XGBoost XGBoostGrid `yaml:"xgboost" json:"xgboost"`
}

// TreeGrid is the decision-tree search space
type TreeGrid struct {
	ComplexityParams []float64 `yaml:"complexity_params" json:"complexity_params"`
}

// ForestGrid is the random-forest search space
type ForestGrid struct {
	NumTrees []int `yaml:"num_trees" json:"num_trees"`
	Mtry     []int `yaml:"mtry" json:"mtry"`
}

// GBMGrid is the gradient-boosting search space
type GBMGrid struct {
	NumTrees         []int     `yaml:"num_trees" json:"num_trees"`
	Shrinkage        []float64 `yaml:"shrinkage" json:"shrinkage"`
	InteractionDepth []int     `yaml:"interaction_depth" json:"interaction_depth"`
	MinObsInNode     []int     `yaml:"min_obs_in_node" json:"min_obs_in_node"`
}

// XGBoostGrid is the regularized-boosting search space
type XGBoostGrid struct {
	Rounds          []int     `yaml:"rounds" json:"rounds"`
	MaxDepth        []int     `yaml:"max_depth" json:"max_depth"`
	Eta             []float64 `yaml:"eta" json:"eta"`
	Gamma           []float64 `yaml:"gamma" json:"gamma"`
	ColsampleBytree []float64 `yaml:"colsample_bytree" json:"colsample_bytree"`
	MinChildWeight  []float64 `yaml:"min_child_weight" json:"min_child_weight"`
	Subsample       []float64 `yaml:"subsample" json:"subsample"`
}

// OutputConfig describes where run outputs land
type OutputConfig struct {
	ArtifactsDir string `yaml:"artifacts_dir" json:"artifacts_dir"`
	ReportPath   string `yaml:"report_path" json:"report_path"`
	FiguresDir   string `yaml:"figures_dir" json:"figures_dir"`
	MetadataDB   string `yaml:"metadata_db" json:"metadata_db"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format   string `yaml:"format" json:"format"` // json, text
	Output   string `yaml:"output" json:"output"` // stdout, file, both
	FilePath string `yaml:"file_path" json:"file_path"`
}

// ScheduleConfig holds the optional retraining schedule
type ScheduleConfig struct {
	Cron string `yaml:"cron" json:"cron"`
}

// DefaultConfig returns the configuration used when a field is absent
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Path:      "data/toronto_listings.csv",
			Delimiter: ",",
		},
		Pipeline: PipelineConfig{
			Seed:    42,
			Folds:   10,
			Alpha:   0.05,
			Workers: 4,
		},
		Grids: GridsConfig{
			Tree: TreeGrid{
				ComplexityParams: []float64{0.0, 0.001, 0.01, 0.05},
			},
			Forest: ForestGrid{
				NumTrees: []int{100, 300},
				Mtry:     []int{2, 3, 4},
			},
			GBM: GBMGrid{
				NumTrees:         []int{100, 300},
				Shrinkage:        []float64{0.01, 0.1},
				InteractionDepth: []int{2, 4},
				MinObsInNode:     []int{5, 10},
			},
			XGBoost: XGBoostGrid{
				Rounds:          []int{100, 300},
				MaxDepth:        []int{3, 6},
				Eta:             []float64{0.05, 0.3},
				Gamma:           []float64{0.0},
				ColsampleBytree: []float64{0.8, 1.0},
				MinChildWeight:  []float64{1.0},
				Subsample:       []float64{0.8, 1.0},
			},
		},
		Output: OutputConfig{
			ArtifactsDir: "artifacts",
			ReportPath:   "artifacts/report.md",
			FiguresDir:   "artifacts/figures",
			MetadataDB:   "artifacts/pricecast.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// LoadConfig loads configuration from a YAML file merged with defaults and
// environment overrides. An empty path returns defaults plus env overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides overrides config values from environment variables
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PRICECAST_DATA_PATH"); v != "" {
		cfg.Data.Path = v
	}
	if v := os.Getenv("PRICECAST_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Pipeline.Seed = seed
		}
	}
	if v := os.Getenv("PRICECAST_FOLDS"); v != "" {
		if folds, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.Folds = folds
		}
	}
	if v := os.Getenv("PRICECAST_WORKERS"); v != "" {
		if workers, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.Workers = workers
		}
	}
	if v := os.Getenv("PRICECAST_ARTIFACTS_DIR"); v != "" {
		cfg.Output.ArtifactsDir = v
	}
	if v := os.Getenv("PRICECAST_METADATA_DB"); v != "" {
		cfg.Output.MetadataDB = v
	}
	if v := os.Getenv("PRICECAST_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Data.Path == "" {
		return fmt.Errorf("data.path is required")
	}
	if len(c.Data.Delimiter) != 1 {
		return fmt.Errorf("data.delimiter must be a single character, got %q", c.Data.Delimiter)
	}
	if c.Pipeline.Folds < 2 {
		return fmt.Errorf("pipeline.folds must be at least 2, got %d", c.Pipeline.Folds)
	}
	if c.Pipeline.Alpha <= 0 || c.Pipeline.Alpha >= 1 {
		return fmt.Errorf("pipeline.alpha must be in (0, 1), got %g", c.Pipeline.Alpha)
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1, got %d", c.Pipeline.Workers)
	}
	if len(c.Grids.Tree.ComplexityParams) == 0 {
		return fmt.Errorf("grids.tree.complexity_params must not be empty")
	}
	if len(c.Grids.Forest.NumTrees) == 0 || len(c.Grids.Forest.Mtry) == 0 {
		return fmt.Errorf("grids.forest search space must not be empty")
	}
	if len(c.Grids.GBM.NumTrees) == 0 || len(c.Grids.GBM.Shrinkage) == 0 ||
		len(c.Grids.GBM.InteractionDepth) == 0 || len(c.Grids.GBM.MinObsInNode) == 0 {
		return fmt.Errorf("grids.gbm search space must not be empty")
	}
	if len(c.Grids.XGBoost.Rounds) == 0 || len(c.Grids.XGBoost.MaxDepth) == 0 ||
		len(c.Grids.XGBoost.Eta) == 0 || len(c.Grids.XGBoost.Gamma) == 0 ||
		len(c.Grids.XGBoost.ColsampleBytree) == 0 || len(c.Grids.XGBoost.MinChildWeight) == 0 ||
		len(c.Grids.XGBoost.Subsample) == 0 {
		return fmt.Errorf("grids.xgboost search space must not be empty")
	}
	if c.Output.ArtifactsDir == "" {
		return fmt.Errorf("output.artifacts_dir is required")
	}
	return nil
}
