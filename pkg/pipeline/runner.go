// Package pipeline orchestrates a full study run: load, diagnose, impute,
// tune the four model families, pick a champion and persist everything.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pricecast-to/pricecast-go/pkg/config"
	dataset "github.com/pricecast-to/pricecast-go/pipelines/Dataset"
	ml "github.com/pricecast-to/pricecast-go/pipelines/ML"
	missing "github.com/pricecast-to/pricecast-go/pipelines/Missing"
	report "github.com/pricecast-to/pricecast-go/pipelines/Report"
	storage "github.com/pricecast-to/pricecast-go/pipelines/Storage"
	"github.com/pricecast-to/pricecast-go/utils"
)

// modelFamilies in training order
var modelFamilies = []string{"decision_tree", "random_forest", "gbm", "xgboost"}

// Runner executes the study pipeline end to end
type Runner struct {
	cfg       *config.Config
	logger    *utils.Logger
	artifacts *storage.ArtifactStore
	metadata  *storage.MetadataStore
}

// RunResult is what a completed run hands back to the caller
type RunResult struct {
	RunID       string
	Dataset     *dataset.Dataset
	Diagnosis   *missing.DiagnosisResult
	Selection   *missing.SelectionResult
	Leaderboard *report.Leaderboard
	ListPrice   *report.ListPriceFit
	ReportPath  string
}

// NewRunner wires a runner from configuration
func NewRunner(cfg *config.Config, logger *utils.Logger) (*Runner, error) {
	metadata, err := storage.NewMetadataStore(cfg.Output.MetadataDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}

	return &Runner{
		cfg:       cfg,
		logger:    logger,
		artifacts: storage.NewArtifactStore(cfg.Output.ArtifactsDir),
		metadata:  metadata,
	}, nil
}

// Close releases the metadata store
func (r *Runner) Close() error {
	return r.metadata.Close()
}

// ListRuns returns the most recent recorded runs
func (r *Runner) ListRuns(limit int) ([]*storage.RunRecord, error) {
	return r.metadata.ListRuns(limit)
}

// Run executes one full pipeline pass. The context is checked between
// stages; a cancelled run is recorded as failed.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	runID := uuid.New().String()
	log := r.logger.WithFields(utils.RunID(runID))
	started := time.Now().UTC()

	log.Info("pipeline run starting", utils.String("data", r.cfg.Data.Path))

	// Stage 1: load
	ds, err := dataset.Load(r.cfg.Data.Path, dataset.LoaderOptions{
		Delimiter: rune(r.cfg.Data.Delimiter[0]),
	})
	if err != nil {
		return nil, fmt.Errorf("load stage failed: %w", err)
	}
	log.Info("dataset loaded",
		utils.Stage("load"),
		utils.Int("rows", ds.Rows()),
		utils.Int("missing_area", ds.MissingAreaCount()))

	configJSON, err := json.Marshal(r.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run config: %w", err)
	}
	if err := r.metadata.RecordRunStart(&storage.RunRecord{
		ID:               runID,
		StartedAt:        started,
		DataPath:         r.cfg.Data.Path,
		Rows:             ds.Rows(),
		MissingAreaCount: ds.MissingAreaCount(),
		ConfigJSON:       string(configJSON),
	}); err != nil {
		return nil, err
	}

	result, err := r.execute(ctx, runID, log, ds)
	if err != nil {
		if finishErr := r.metadata.RecordRunFinish(runID, "failed", "", ""); finishErr != nil {
			log.Warn("failed to record run failure", utils.Error(finishErr))
		}
		return nil, err
	}

	champion := result.Leaderboard.Champion()
	if err := r.metadata.RecordRunFinish(runID, "completed", result.Selection.Strategy, champion.Model); err != nil {
		return nil, err
	}

	log.Info("pipeline run complete",
		utils.String("champion", champion.Model),
		utils.Float("rmse", champion.RMSE),
		utils.Float("duration_s", time.Since(started).Seconds()))

	return result, nil
}

func (r *Runner) execute(ctx context.Context, runID string, log *utils.FieldLogger, ds *dataset.Dataset) (*RunResult, error) {
	// Stage 2: diagnose missingness
	diagnosis, err := missing.Diagnose(ds, r.cfg.Pipeline.Alpha)
	if err != nil {
		return nil, fmt.Errorf("diagnosis stage failed: %w", err)
	}
	log.Info("missingness diagnosed",
		utils.Stage("diagnose"),
		utils.String("mechanism", diagnosis.Mechanism),
		utils.Float("missing_rate", diagnosis.MissingRate))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 3: impute
	seed := r.cfg.Pipeline.Seed
	imputers := []missing.Imputer{
		&missing.RandomDrawImputer{Seed: seed},
		&missing.MeanImputer{},
		&missing.ForestImputer{Config: ml.ForestConfig{NumTrees: 100, Seed: seed}},
		&missing.CARTImputer{Config: ml.DefaultTreeConfig()},
	}
	selection, err := missing.SelectImputation(ds, imputers, r.logger)
	if err != nil {
		return nil, fmt.Errorf("imputation stage failed: %w", err)
	}
	completed, err := ds.WithImputedArea(selection.Areas)
	if err != nil {
		return nil, fmt.Errorf("imputation stage failed: %w", err)
	}
	log.Info("area imputed",
		utils.Stage("impute"),
		utils.String("strategy", selection.Strategy))

	// Stage 4: tune and train the four families
	X, names := completed.FeatureMatrix()
	y := completed.FinalPrices()

	evaluations := make([]*ml.ModelEvaluation, 0, len(modelFamilies))
	fitted := make(map[string]ml.Regressor, len(modelFamilies))

	for _, family := range modelFamilies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidates := r.candidatesFor(family, seed)
		search := &ml.GridSearch{
			ModelName: family,
			Folds:     r.cfg.Pipeline.Folds,
			Seed:      seed,
			Workers:   r.cfg.Pipeline.Workers,
			Logger:    r.logger,
		}

		best, err := search.Search(X, y, names, candidates)
		if err != nil {
			return nil, fmt.Errorf("grid search failed for %s: %w", family, err)
		}

		model := rebuildModel(family, best.BestParams, seed)
		if err := model.Fit(X, y, names); err != nil {
			return nil, fmt.Errorf("final fit failed for %s: %w", family, err)
		}
		fitted[family] = model

		evaluations = append(evaluations, &ml.ModelEvaluation{
			Model:      family,
			Params:     best.BestParams,
			RMSE:       best.BestCV.MeanRMSE,
			R2:         best.BestCV.MeanR2,
			MAE:        best.BestCV.MeanMAE,
			CV:         best.BestCV,
			Importance: model.FeatureImportance(),
		})

		log.Info("model tuned",
			utils.Stage("train"),
			utils.String("model", family),
			utils.Float("cv_rmse", best.BestCV.MeanRMSE))
	}

	// Stage 5: rank
	leaderboard, err := report.Rank(evaluations)
	if err != nil {
		return nil, err
	}
	champion := leaderboard.Champion()

	// Stage 6: auxiliary list-price regression
	listFit, err := report.FitListPrice(completed.FinalPrices(), completed.ListPrices())
	if err != nil {
		return nil, fmt.Errorf("list-price regression failed: %w", err)
	}

	// Stage 7: persist artifacts and metrics
	datasetPath, err := r.artifacts.SaveDataset(runID, completed)
	if err != nil {
		return nil, err
	}

	manifest := &storage.Manifest{
		RunID:              runID,
		CreatedAt:          time.Now().UTC(),
		DataPath:           r.cfg.Data.Path,
		Rows:               ds.Rows(),
		MissingAreaCount:   ds.MissingAreaCount(),
		ImputationStrategy: selection.Strategy,
		DatasetPath:        datasetPath,
	}

	for _, eval := range evaluations {
		saver, ok := fitted[eval.Model].(interface {
			Name() string
			Save(string) error
		})
		if !ok {
			return nil, fmt.Errorf("model %s is not persistable", eval.Model)
		}
		path, err := r.artifacts.SaveModel(runID, saver)
		if err != nil {
			return nil, err
		}

		isChampion := eval.Model == champion.Model
		manifest.Models = append(manifest.Models, storage.ManifestModel{
			Model:    eval.Model,
			Params:   eval.Params,
			RMSE:     eval.RMSE,
			R2:       eval.R2,
			MAE:      eval.MAE,
			Champion: isChampion,
			Path:     path,
		})

		if err := r.metadata.RecordModelMetrics(&storage.ModelRecord{
			RunID:        runID,
			Model:        eval.Model,
			Params:       eval.Params,
			RMSE:         eval.RMSE,
			R2:           eval.R2,
			MAE:          eval.MAE,
			Champion:     isChampion,
			ArtifactPath: path,
		}); err != nil {
			return nil, err
		}
	}

	if _, err := r.artifacts.SaveManifest(manifest); err != nil {
		return nil, err
	}

	// Stage 8: figures and report
	figures, err := r.renderFigures(completed, ds, selection, fitted[champion.Model], listFit, log)
	if err != nil {
		log.Warn("figure rendering failed", utils.Error(err))
	}

	runReport := &report.RunReport{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		DataPath:    r.cfg.Data.Path,
		Summary:     dataset.Summarize(completed),
		TypeCounts:  dataset.TypeCounts(completed),
		Rows:        completed.Rows(),
		Diagnosis:   diagnosis,
		Selection:   selection,
		Leaderboard: leaderboard,
		ListPrice:   listFit,
		Figures:     figures,
	}
	if err := runReport.Write(r.cfg.Output.ReportPath); err != nil {
		return nil, err
	}
	log.Info("report written",
		utils.Stage("report"),
		utils.String("path", r.cfg.Output.ReportPath))

	return &RunResult{
		RunID:       runID,
		Dataset:     completed,
		Diagnosis:   diagnosis,
		Selection:   selection,
		Leaderboard: leaderboard,
		ListPrice:   listFit,
		ReportPath:  r.cfg.Output.ReportPath,
	}, nil
}

func (r *Runner) candidatesFor(family string, seed int64) []ml.Candidate {
	switch family {
	case "decision_tree":
		return treeCandidates(r.cfg.Grids.Tree)
	case "random_forest":
		return forestCandidates(r.cfg.Grids.Forest, seed)
	case "gbm":
		return gbmCandidates(r.cfg.Grids.GBM)
	case "xgboost":
		return xgboostCandidates(r.cfg.Grids.XGBoost, seed)
	}
	return nil
}

// renderFigures draws the run figures; failures here degrade the report but
// do not fail the run.
func (r *Runner) renderFigures(completed, original *dataset.Dataset, selection *missing.SelectionResult, champion ml.Regressor, listFit *report.ListPriceFit, log *utils.FieldLogger) (*report.FigureSet, error) {
	plotter, err := report.NewPlotter(r.cfg.Output.FiguresDir)
	if err != nil {
		return nil, err
	}

	figures := &report.FigureSet{}

	imputed := make([]float64, 0, original.MissingAreaCount())
	for i, l := range original.Listings {
		if l.AreaMissing() {
			imputed = append(imputed, selection.Areas[i])
		}
	}
	if path, err := plotter.AreaHistogram(original.ObservedAreas(), imputed); err == nil {
		figures.AreaHistogram = path
	} else {
		log.Warn("area histogram failed", utils.Error(err))
	}

	X, _ := completed.FeatureMatrix()
	actual := completed.FinalPrices()
	predicted := make([]float64, len(X))
	for i := range X {
		p, err := champion.Predict(X[i])
		if err != nil {
			return figures, err
		}
		predicted[i] = p
	}
	if path, err := plotter.PredictedVsActual(actual, predicted); err == nil {
		figures.PredictedVsActual = path
	} else {
		log.Warn("prediction scatter failed", utils.Error(err))
	}

	if path, err := plotter.ListPriceScatter(actual, completed.ListPrices(), listFit); err == nil {
		figures.ListPriceFitScatter = path
	} else {
		log.Warn("list price scatter failed", utils.Error(err))
	}

	return figures, nil
}
