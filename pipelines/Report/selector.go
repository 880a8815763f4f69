// Package report ranks the trained models, fits the auxiliary list-price
// regression and renders the run report with its figures.
package report

import (
	"fmt"
	"sort"

	ml "github.com/pricecast-to/pricecast-go/pipelines/ML"
)

// Leaderboard is the RMSE-ordered ranking of the trained models. The first
// entry is the champion.
type Leaderboard struct {
	Entries []*ml.ModelEvaluation `json:"entries"`
}

// Rank orders evaluations by cross-validated RMSE, lowest first, and
// returns the leaderboard. Ties break toward the earlier candidate.
func Rank(evaluations []*ml.ModelEvaluation) (*Leaderboard, error) {
	if len(evaluations) == 0 {
		return nil, fmt.Errorf("no model evaluations to rank")
	}

	entries := make([]*ml.ModelEvaluation, len(evaluations))
	copy(entries, evaluations)
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].RMSE < entries[b].RMSE
	})

	return &Leaderboard{Entries: entries}, nil
}

// Champion returns the lowest-RMSE model of the leaderboard
func (lb *Leaderboard) Champion() *ml.ModelEvaluation {
	if len(lb.Entries) == 0 {
		return nil
	}
	return lb.Entries[0]
}
