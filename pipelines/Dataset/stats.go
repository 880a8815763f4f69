package dataset

import (
	"math"

	"github.com/montanaflynn/stats"
)

// ColumnSummary holds descriptive statistics for one numeric column
type ColumnSummary struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Missing int     `json:"missing"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	StdDev  float64 `json:"std_dev"`
}

// Summarize computes descriptive statistics for every numeric column,
// skipping missing values.
func Summarize(d *Dataset) []ColumnSummary {
	columns := []struct {
		name   string
		values func(Listing) float64
	}{
		{"area", func(l Listing) float64 { return l.Area }},
		{"bedrooms", func(l Listing) float64 { return l.Bedrooms }},
		{"bathrooms", func(l Listing) float64 { return l.Bathrooms }},
		{"parking", func(l Listing) float64 { return l.Parking }},
		{"district_income", func(l Listing) float64 { return l.DistrictIncome }},
		{"final_price", func(l Listing) float64 { return l.FinalPrice }},
		{"list_price", func(l Listing) float64 { return l.ListPrice }},
	}

	summaries := make([]ColumnSummary, 0, len(columns))
	for _, col := range columns {
		observed := make([]float64, 0, d.Rows())
		missing := 0
		for _, l := range d.Listings {
			v := col.values(l)
			if math.IsNaN(v) {
				missing++
				continue
			}
			observed = append(observed, v)
		}

		summary := ColumnSummary{
			Name:    col.name,
			Count:   len(observed),
			Missing: missing,
		}
		if len(observed) > 0 {
			summary.Min, _ = stats.Min(observed)
			summary.Max, _ = stats.Max(observed)
			summary.Mean, _ = stats.Mean(observed)
			summary.Median, _ = stats.Median(observed)
			summary.StdDev, _ = stats.StandardDeviation(observed)
		}
		summaries = append(summaries, summary)
	}

	return summaries
}

// TypeCounts returns listing counts per canonical property category
func TypeCounts(d *Dataset) map[string]int {
	counts := make(map[string]int, len(CanonicalTypes))
	for _, t := range CanonicalTypes {
		counts[t] = 0
	}
	for _, l := range d.Listings {
		counts[l.PropertyType]++
	}
	return counts
}
