package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// FigureSet holds the paths of the rendered figures, relative to nothing in
// particular; callers get back exactly what they can embed in the report.
type FigureSet struct {
	AreaHistogram       string `json:"area_histogram"`
	PredictedVsActual   string `json:"predicted_vs_actual"`
	ListPriceFitScatter string `json:"list_price_fit_scatter"`
}

// Plotter renders run figures as PNG files under Dir
type Plotter struct {
	Dir string
}

// NewPlotter creates the figure directory if needed
func NewPlotter(dir string) (*Plotter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create figures directory: %w", err)
	}
	return &Plotter{Dir: dir}, nil
}

// AreaHistogram overlays the observed and imputed area distributions so the
// chosen imputation can be judged by eye.
func (pl *Plotter) AreaHistogram(observed, imputed []float64) (string, error) {
	p := plot.New()
	p.Title.Text = "Living Area: Observed vs Imputed"
	p.X.Label.Text = "Area (sqft)"
	p.Y.Label.Text = "Density"

	obsHist, err := plotter.NewHist(plotter.Values(observed), 30)
	if err != nil {
		return "", fmt.Errorf("failed to build observed histogram: %w", err)
	}
	obsHist.Normalize(1)
	obsHist.FillColor = color.RGBA{R: 70, G: 130, B: 180, A: 160}
	p.Add(obsHist)
	p.Legend.Add("observed", obsHist)

	if len(imputed) > 0 {
		impHist, err := plotter.NewHist(plotter.Values(imputed), 30)
		if err != nil {
			return "", fmt.Errorf("failed to build imputed histogram: %w", err)
		}
		impHist.Normalize(1)
		impHist.FillColor = color.RGBA{R: 220, G: 20, B: 60, A: 120}
		p.Add(impHist)
		p.Legend.Add("imputed", impHist)
	}

	path := filepath.Join(pl.Dir, "area_histogram.png")
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return "", fmt.Errorf("failed to save histogram: %w", err)
	}
	return path, nil
}

// PredictedVsActual plots champion predictions against actual sale prices
// with the identity line for reference.
func (pl *Plotter) PredictedVsActual(actual, predicted []float64) (string, error) {
	if len(actual) != len(predicted) {
		return "", fmt.Errorf("actual and predicted vectors differ in length")
	}

	p := plot.New()
	p.Title.Text = "Champion Model: Predicted vs Actual Sale Price"
	p.X.Label.Text = "Actual ($)"
	p.Y.Label.Text = "Predicted ($)"

	points := make(plotter.XYs, len(actual))
	for i := range actual {
		points[i].X = actual[i]
		points[i].Y = predicted[i]
	}

	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return "", fmt.Errorf("failed to build scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(2)
	scatter.GlyphStyle.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	p.Add(scatter)

	identity := plotter.NewFunction(func(x float64) float64 { return x })
	identity.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
	identity.Color = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	p.Add(identity)
	p.Add(plotter.NewGrid())

	path := filepath.Join(pl.Dir, "predicted_vs_actual.png")
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return "", fmt.Errorf("failed to save scatter: %w", err)
	}
	return path, nil
}

// ListPriceScatter plots list price against final price with the fitted line
func (pl *Plotter) ListPriceScatter(finalPrices, listPrices []float64, fit *ListPriceFit) (string, error) {
	if len(finalPrices) != len(listPrices) {
		return "", fmt.Errorf("final and list price vectors differ in length")
	}

	p := plot.New()
	p.Title.Text = "List Price vs Final Price"
	p.X.Label.Text = "Final price ($)"
	p.Y.Label.Text = "List price ($)"

	points := make(plotter.XYs, len(finalPrices))
	for i := range finalPrices {
		points[i].X = finalPrices[i]
		points[i].Y = listPrices[i]
	}

	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return "", fmt.Errorf("failed to build scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(2)
	scatter.GlyphStyle.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	p.Add(scatter)

	if fit != nil {
		line := plotter.NewFunction(fit.Predict)
		line.Color = color.RGBA{R: 220, G: 20, B: 60, A: 255}
		p.Add(line)
	}
	p.Add(plotter.NewGrid())

	path := filepath.Join(pl.Dir, "list_price_fit.png")
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return "", fmt.Errorf("failed to save scatter: %w", err)
	}
	return path, nil
}
