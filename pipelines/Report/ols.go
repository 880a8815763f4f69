package report

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// ListPriceFit is the auxiliary ordinary-least-squares regression of list
// price on final sale price: ListPrice = Intercept + Slope * FinalPrice.
// Given a predicted final price it yields the expected list price.
type ListPriceFit struct {
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
	R2        float64 `json:"r2"`
	N         int     `json:"n"`
}

// FitListPrice regresses list prices on final prices
func FitListPrice(finalPrices, listPrices []float64) (*ListPriceFit, error) {
	if len(finalPrices) != len(listPrices) {
		return nil, fmt.Errorf("final and list price vectors differ in length")
	}
	if len(finalPrices) < 2 {
		return nil, fmt.Errorf("need at least two observations, got %d", len(finalPrices))
	}

	intercept, slope := stat.LinearRegression(finalPrices, listPrices, nil, false)
	r := stat.Correlation(finalPrices, listPrices, nil)

	return &ListPriceFit{
		Intercept: intercept,
		Slope:     slope,
		R2:        r * r,
		N:         len(finalPrices),
	}, nil
}

// Predict derives the expected list price from a final sale price
func (f *ListPriceFit) Predict(finalPrice float64) float64 {
	return f.Intercept + f.Slope*finalPrice
}
