package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	dataset "github.com/pricecast-to/pricecast-go/pipelines/Dataset"
	ml "github.com/pricecast-to/pricecast-go/pipelines/ML"
	missing "github.com/pricecast-to/pricecast-go/pipelines/Missing"
)

// RunReport collects everything one pipeline run produced, ready to render
type RunReport struct {
	RunID       string
	GeneratedAt time.Time
	DataPath    string

	Summary    []dataset.ColumnSummary
	TypeCounts map[string]int
	Rows       int

	Diagnosis *missing.DiagnosisResult
	Selection *missing.SelectionResult

	Leaderboard *Leaderboard
	ListPrice   *ListPriceFit
	Figures     *FigureSet
}

// Render produces the markdown report
func (r *RunReport) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Toronto House Price Report\n\n")
	fmt.Fprintf(&b, "Run `%s`, generated %s.\n\n", r.RunID, r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Source: `%s` (%d listings).\n\n", r.DataPath, r.Rows)

	r.renderSummary(&b)
	r.renderMissingness(&b)
	r.renderLeaderboard(&b)
	r.renderImportance(&b)
	r.renderListPrice(&b)
	r.renderFigures(&b)

	return b.String()
}

// Write renders the report and writes it to path
func (r *RunReport) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(r.Render()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func (r *RunReport) renderSummary(b *strings.Builder) {
	if len(r.Summary) == 0 {
		return
	}

	fmt.Fprintf(b, "## Dataset\n\n")
	fmt.Fprintf(b, "| Column | Count | Missing | Min | Max | Mean | Median | Std |\n")
	fmt.Fprintf(b, "|---|---|---|---|---|---|---|---|\n")
	for _, col := range r.Summary {
		fmt.Fprintf(b, "| %s | %d | %d | %.1f | %.1f | %.1f | %.1f | %.1f |\n",
			col.Name, col.Count, col.Missing, col.Min, col.Max, col.Mean, col.Median, col.StdDev)
	}
	fmt.Fprintf(b, "\n")

	if len(r.TypeCounts) > 0 {
		fmt.Fprintf(b, "Property types: ")
		parts := make([]string, 0, len(r.TypeCounts))
		for _, t := range dataset.CanonicalTypes {
			if n, ok := r.TypeCounts[t]; ok {
				parts = append(parts, fmt.Sprintf("%s %d", t, n))
			}
		}
		fmt.Fprintf(b, "%s.\n\n", strings.Join(parts, ", "))
	}
}

func (r *RunReport) renderMissingness(b *strings.Builder) {
	if r.Diagnosis == nil {
		return
	}

	fmt.Fprintf(b, "## Missing Living Area\n\n")
	fmt.Fprintf(b, "%d of %d listings (%.1f%%) lack a living-area value. ",
		r.Diagnosis.MissingCount, r.Rows, r.Diagnosis.MissingRate*100)
	fmt.Fprintf(b, "Association tests at alpha %.2f classify the mechanism as **%s**.\n\n",
		r.Diagnosis.Alpha, r.Diagnosis.Mechanism)

	if len(r.Diagnosis.Tests) > 0 {
		fmt.Fprintf(b, "| Feature | Test | Statistic | df | p-value | Dependent |\n")
		fmt.Fprintf(b, "|---|---|---|---|---|---|\n")
		for _, t := range r.Diagnosis.Tests {
			dep := "no"
			if t.Dependent {
				dep = "yes"
			}
			fmt.Fprintf(b, "| %s | %s | %.3f | %.0f | %.4f | %s |\n",
				t.Feature, t.Test, t.Statistic, t.DF, t.PValue, dep)
		}
		fmt.Fprintf(b, "\n")
	}

	if r.Selection != nil && r.Selection.Strategy != "none" {
		fmt.Fprintf(b, "Imputation strategies compared by two-sample KS distance to the observed distribution:\n\n")
		fmt.Fprintf(b, "| Strategy | KS |\n|---|---|\n")
		for _, s := range r.Selection.Scores {
			marker := ""
			if s.Strategy == r.Selection.Strategy {
				marker = " (selected)"
			}
			fmt.Fprintf(b, "| %s%s | %.4f |\n", s.Strategy, marker, s.KS)
		}
		fmt.Fprintf(b, "\n")
	}
}

func (r *RunReport) renderLeaderboard(b *strings.Builder) {
	if r.Leaderboard == nil || len(r.Leaderboard.Entries) == 0 {
		return
	}

	fmt.Fprintf(b, "## Model Leaderboard\n\n")
	fmt.Fprintf(b, "Models ranked by 10-fold cross-validated RMSE; the first row is the champion.\n\n")
	fmt.Fprintf(b, "| Rank | Model | RMSE | R² | MAE |\n|---|---|---|---|---|\n")
	for i, e := range r.Leaderboard.Entries {
		fmt.Fprintf(b, "| %d | %s | %.1f | %.4f | %.1f |\n", i+1, e.Model, e.RMSE, e.R2, e.MAE)
	}
	fmt.Fprintf(b, "\n")

	champion := r.Leaderboard.Champion()
	if champion != nil && len(champion.Params) > 0 {
		names := make([]string, 0, len(champion.Params))
		for name := range champion.Params {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%g", name, champion.Params[name]))
		}
		fmt.Fprintf(b, "Champion hyperparameters: %s.\n\n", strings.Join(parts, ", "))
	}
}

func (r *RunReport) renderImportance(b *strings.Builder) {
	if r.Leaderboard == nil {
		return
	}
	champion := r.Leaderboard.Champion()
	if champion == nil || len(champion.Importance) == 0 {
		return
	}

	fmt.Fprintf(b, "## Feature Importance (%s)\n\n", champion.Model)
	fmt.Fprintf(b, "| Feature | Importance |\n|---|---|\n")
	for _, entry := range ml.RankImportance(champion.Importance) {
		fmt.Fprintf(b, "| %s | %.4f |\n", entry.Feature, entry.Importance)
	}
	fmt.Fprintf(b, "\n")
}

func (r *RunReport) renderListPrice(b *strings.Builder) {
	if r.ListPrice == nil {
		return
	}

	fmt.Fprintf(b, "## List Price Regression\n\n")
	fmt.Fprintf(b, "OLS fit over %d listings: list = %.2f + %.6f × final (R² %.4f).\n\n",
		r.ListPrice.N, r.ListPrice.Intercept, r.ListPrice.Slope, r.ListPrice.R2)
}

func (r *RunReport) renderFigures(b *strings.Builder) {
	if r.Figures == nil {
		return
	}

	fmt.Fprintf(b, "## Figures\n\n")
	if r.Figures.AreaHistogram != "" {
		fmt.Fprintf(b, "![Area distributions](%s)\n\n", r.Figures.AreaHistogram)
	}
	if r.Figures.PredictedVsActual != "" {
		fmt.Fprintf(b, "![Predicted vs actual](%s)\n\n", r.Figures.PredictedVsActual)
	}
	if r.Figures.ListPriceFitScatter != "" {
		fmt.Fprintf(b, "![List price fit](%s)\n\n", r.Figures.ListPriceFitScatter)
	}
}
