package pipeline

import (
	"github.com/pricecast-to/pricecast-go/pkg/config"
	ml "github.com/pricecast-to/pricecast-go/pipelines/ML"
)

// treeCandidates expands the decision-tree search space
func treeCandidates(grid config.TreeGrid) []ml.Candidate {
	candidates := make([]ml.Candidate, 0, len(grid.ComplexityParams))
	for _, cp := range grid.ComplexityParams {
		cp := cp
		candidates = append(candidates, ml.Candidate{
			Params: map[string]float64{"cp": cp},
			Factory: func() ml.Regressor {
				return ml.NewTreeRegressor(ml.TreeConfig{Cp: cp})
			},
		})
	}
	return candidates
}

// forestCandidates expands the random-forest search space
func forestCandidates(grid config.ForestGrid, seed int64) []ml.Candidate {
	candidates := make([]ml.Candidate, 0, len(grid.NumTrees)*len(grid.Mtry))
	for _, numTrees := range grid.NumTrees {
		for _, mtry := range grid.Mtry {
			numTrees, mtry := numTrees, mtry
			candidates = append(candidates, ml.Candidate{
				Params: map[string]float64{
					"num_trees": float64(numTrees),
					"mtry":      float64(mtry),
				},
				Factory: func() ml.Regressor {
					return ml.NewForestRegressor(ml.ForestConfig{
						NumTrees: numTrees,
						Mtry:     mtry,
						Seed:     seed,
					})
				},
			})
		}
	}
	return candidates
}

// gbmCandidates expands the gradient-boosting search space
func gbmCandidates(grid config.GBMGrid) []ml.Candidate {
	var candidates []ml.Candidate
	for _, numTrees := range grid.NumTrees {
		for _, shrinkage := range grid.Shrinkage {
			for _, depth := range grid.InteractionDepth {
				for _, minObs := range grid.MinObsInNode {
					numTrees, shrinkage, depth, minObs := numTrees, shrinkage, depth, minObs
					candidates = append(candidates, ml.Candidate{
						Params: map[string]float64{
							"num_trees":         float64(numTrees),
							"shrinkage":         shrinkage,
							"interaction_depth": float64(depth),
							"min_obs_in_node":   float64(minObs),
						},
						Factory: func() ml.Regressor {
							return ml.NewGBMRegressor(ml.GBMConfig{
								NumTrees:         numTrees,
								Shrinkage:        shrinkage,
								InteractionDepth: depth,
								MinObsInNode:     minObs,
							})
						},
					})
				}
			}
		}
	}
	return candidates
}

// xgboostCandidates expands the regularized-boosting search space
func xgboostCandidates(grid config.XGBoostGrid, seed int64) []ml.Candidate {
	var candidates []ml.Candidate
	for _, rounds := range grid.Rounds {
		for _, maxDepth := range grid.MaxDepth {
			for _, eta := range grid.Eta {
				for _, gamma := range grid.Gamma {
					for _, colsample := range grid.ColsampleBytree {
						for _, minChild := range grid.MinChildWeight {
							for _, subsample := range grid.Subsample {
								rounds, maxDepth := rounds, maxDepth
								eta, gamma := eta, gamma
								colsample, minChild, subsample := colsample, minChild, subsample
								candidates = append(candidates, ml.Candidate{
									Params: map[string]float64{
										"rounds":           float64(rounds),
										"max_depth":        float64(maxDepth),
										"eta":              eta,
										"gamma":            gamma,
										"colsample_bytree": colsample,
										"min_child_weight": minChild,
										"subsample":        subsample,
									},
									Factory: func() ml.Regressor {
										return ml.NewXGBRegressor(ml.XGBConfig{
											Rounds:          rounds,
											MaxDepth:        maxDepth,
											Eta:             eta,
											Gamma:           gamma,
											ColsampleBytree: colsample,
											MinChildWeight:  minChild,
											Subsample:       subsample,
											Seed:            seed,
										})
									},
								})
							}
						}
					}
				}
			}
		}
	}
	return candidates
}

// rebuildModel constructs a fresh model configured with tuned parameters,
// ready for the final fit on the full dataset.
func rebuildModel(family string, params map[string]float64, seed int64) ml.Regressor {
	switch family {
	case "decision_tree":
		return ml.NewTreeRegressor(ml.TreeConfig{Cp: params["cp"]})
	case "random_forest":
		return ml.NewForestRegressor(ml.ForestConfig{
			NumTrees: int(params["num_trees"]),
			Mtry:     int(params["mtry"]),
			Seed:     seed,
		})
	case "gbm":
		return ml.NewGBMRegressor(ml.GBMConfig{
			NumTrees:         int(params["num_trees"]),
			Shrinkage:        params["shrinkage"],
			InteractionDepth: int(params["interaction_depth"]),
			MinObsInNode:     int(params["min_obs_in_node"]),
		})
	case "xgboost":
		return ml.NewXGBRegressor(ml.XGBConfig{
			Rounds:          int(params["rounds"]),
			MaxDepth:        int(params["max_depth"]),
			Eta:             params["eta"],
			Gamma:           params["gamma"],
			ColsampleBytree: params["colsample_bytree"],
			MinChildWeight:  params["min_child_weight"],
			Subsample:       params["subsample"],
			Seed:            seed,
		})
	}
	return nil
}
