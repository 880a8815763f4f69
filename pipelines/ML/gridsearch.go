package ml

import (
	"fmt"
	"sync"

	"github.com/pricecast-to/pricecast-go/utils"
)

// Candidate is one point of a hyperparameter grid: the parameter values for
// the record and a factory that builds a model configured with them.
type Candidate struct {
	Params  map[string]float64
	Factory RegressorFactory
}

// GridSearch tunes hyperparameters by cross-validating every candidate and
// keeping the one with the lowest mean RMSE.
type GridSearch struct {
	ModelName string
	Folds     int
	Seed      int64
	Workers   int
	Logger    *utils.Logger
}

// GridResult holds grid search results
type GridResult struct {
	BestParams map[string]float64 `json:"best_params"`
	BestCV     *CrossValidationResults
	AllResults []GridResultEntry `json:"all_results"`
}

// GridResultEntry holds a single hyperparameter combination result
type GridResultEntry struct {
	Params   map[string]float64 `json:"params"`
	MeanRMSE float64            `json:"mean_rmse"`
	MeanR2   float64            `json:"mean_r2"`
	MeanMAE  float64            `json:"mean_mae"`
}

// Search cross-validates every candidate and returns the best. Candidates
// run concurrently on a small worker pool; combinations that fail to train
// are logged and skipped rather than aborting the search.
func (gs *GridSearch) Search(X [][]float64, y []float64, featureNames []string, candidates []Candidate) (*GridResult, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates to search")
	}

	workers := gs.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(candidates) {
		workers = len(candidates)
	}

	type searchOutcome struct {
		idx int
		cv  *CrossValidationResults
		err error
	}

	jobs := make(chan int)
	outcomes := make(chan searchOutcome, len(candidates))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				cv, err := CrossValidate(X, y, featureNames, gs.Folds, gs.Seed, candidates[idx].Factory)
				outcomes <- searchOutcome{idx: idx, cv: cv, err: err}
			}
		}()
	}

	go func() {
		for i := range candidates {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
		close(outcomes)
	}()

	cvByIdx := make([]*CrossValidationResults, len(candidates))
	for outcome := range outcomes {
		if outcome.err != nil {
			if gs.Logger != nil {
				gs.Logger.Warn("grid search candidate failed",
					utils.String("model", gs.ModelName),
					utils.Error(outcome.err))
			}
			continue
		}
		cvByIdx[outcome.idx] = outcome.cv
	}

	result := &GridResult{}
	for i, cv := range cvByIdx {
		if cv == nil {
			continue
		}
		result.AllResults = append(result.AllResults, GridResultEntry{
			Params:   candidates[i].Params,
			MeanRMSE: cv.MeanRMSE,
			MeanR2:   cv.MeanR2,
			MeanMAE:  cv.MeanMAE,
		})
		if result.BestCV == nil || cv.MeanRMSE < result.BestCV.MeanRMSE {
			result.BestCV = cv
			result.BestParams = candidates[i].Params
		}
	}

	if result.BestCV == nil {
		return nil, fmt.Errorf("no valid hyperparameter combination found")
	}

	if gs.Logger != nil {
		gs.Logger.Info("grid search complete",
			utils.String("model", gs.ModelName),
			utils.Int("candidates", len(candidates)),
			utils.Float("best_rmse", result.BestCV.MeanRMSE))
	}

	return result, nil
}
