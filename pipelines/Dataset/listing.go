package dataset

import (
	"fmt"
	"math"
)

// Canonical property categories. Raw source labels map many-to-one onto these.
const (
	Townhouse    = "Townhouse"
	Condo        = "Condo"
	Detached     = "Detached"
	SemiDetached = "Semi-Detached"
	Plex         = "Plex"
)

// CanonicalTypes lists the five property categories in report order
var CanonicalTypes = []string{Townhouse, Condo, Detached, SemiDetached, Plex}

// propertyTypeLookup maps raw TREB-style listing labels to canonical categories.
// Labels not present here are a load-time validation error.
var propertyTypeLookup = map[string]string{
	"Detached":           Detached,
	"Det Condo":          Detached,
	"Link":               Detached,
	"Rural Resid":        Detached,
	"Semi-Detached":      SemiDetached,
	"Semi-Det Condo":     SemiDetached,
	"Att/Row/Twnhouse":   Townhouse,
	"Condo Townhouse":    Townhouse,
	"Townhouse":          Townhouse,
	"Condo Apt":          Condo,
	"Co-Op Apt":          Condo,
	"Co-Ownership Apt":   Condo,
	"Comm Element Condo": Condo,
	"Leasehold Condo":    Condo,
	"Condo":              Condo,
	"Duplex":             Plex,
	"Triplex":            Plex,
	"Fourplex":           Plex,
	"Multiplex":          Plex,
	"Plex":               Plex,
}

// NormalizePropertyType maps a raw property-type label to its canonical category
func NormalizePropertyType(raw string) (string, error) {
	if canonical, ok := propertyTypeLookup[raw]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("unknown property type label %q", raw)
}

// Listing is one sold property after load-time normalization.
// Area is math.NaN when the source cell was empty.
type Listing struct {
	Area           float64 `json:"area"`
	Bedrooms       float64 `json:"bedrooms"`
	Bathrooms      float64 `json:"bathrooms"`
	Parking        float64 `json:"parking"`
	DistrictIncome float64 `json:"district_income"`
	PropertyType   string  `json:"property_type"`
	FinalPrice     float64 `json:"final_price"`
	ListPrice      float64 `json:"list_price"`
}

// AreaMissing reports whether the living area was absent in the source
func (l Listing) AreaMissing() bool {
	return math.IsNaN(l.Area)
}

// Dataset holds the reduced listing table: six predictors plus two targets
type Dataset struct {
	Listings   []Listing         `json:"listings"`
	Columns    []ColumnSummary   `json:"columns"`
	SourceInfo map[string]string `json:"source_info,omitempty"`
}

// Rows returns the number of listings
func (d *Dataset) Rows() int {
	return len(d.Listings)
}

// MissingAreaCount returns how many listings lack an area value
func (d *Dataset) MissingAreaCount() int {
	count := 0
	for _, l := range d.Listings {
		if l.AreaMissing() {
			count++
		}
	}
	return count
}

// ObservedAreas returns the area values present in the source
func (d *Dataset) ObservedAreas() []float64 {
	observed := make([]float64, 0, len(d.Listings))
	for _, l := range d.Listings {
		if !l.AreaMissing() {
			observed = append(observed, l.Area)
		}
	}
	return observed
}

// Areas returns the full area vector, NaN at missing positions
func (d *Dataset) Areas() []float64 {
	areas := make([]float64, len(d.Listings))
	for i, l := range d.Listings {
		areas[i] = l.Area
	}
	return areas
}

// FinalPrices returns the sale-price target vector
func (d *Dataset) FinalPrices() []float64 {
	prices := make([]float64, len(d.Listings))
	for i, l := range d.Listings {
		prices[i] = l.FinalPrice
	}
	return prices
}

// ListPrices returns the auxiliary list-price vector
func (d *Dataset) ListPrices() []float64 {
	prices := make([]float64, len(d.Listings))
	for i, l := range d.Listings {
		prices[i] = l.ListPrice
	}
	return prices
}

// featureNamesWithArea is the model feature layout: numeric predictors first,
// then one indicator column per canonical property category.
func featureNames(includeArea bool) []string {
	names := []string{}
	if includeArea {
		names = append(names, "area")
	}
	names = append(names, "bedrooms", "bathrooms", "parking", "district_income")
	for _, t := range CanonicalTypes {
		names = append(names, "type_"+t)
	}
	return names
}

// FeatureMatrix returns the model feature matrix including area, with one-hot
// encoded property type, plus the column names.
func (d *Dataset) FeatureMatrix() ([][]float64, []string) {
	return d.buildMatrix(true)
}

// FeatureMatrixExcludingArea returns the feature matrix without the area
// column, used when area itself is the imputation target.
func (d *Dataset) FeatureMatrixExcludingArea() ([][]float64, []string) {
	return d.buildMatrix(false)
}

func (d *Dataset) buildMatrix(includeArea bool) ([][]float64, []string) {
	names := featureNames(includeArea)
	X := make([][]float64, len(d.Listings))
	for i, l := range d.Listings {
		row := make([]float64, 0, len(names))
		if includeArea {
			row = append(row, l.Area)
		}
		row = append(row, l.Bedrooms, l.Bathrooms, l.Parking, l.DistrictIncome)
		for _, t := range CanonicalTypes {
			if l.PropertyType == t {
				row = append(row, 1.0)
			} else {
				row = append(row, 0.0)
			}
		}
		X[i] = row
	}
	return X, names
}

// WithImputedArea returns a copy of the dataset with the area column replaced
// by the completed vector. The vector must cover every row and contain no NaN.
func (d *Dataset) WithImputedArea(areas []float64) (*Dataset, error) {
	if len(areas) != len(d.Listings) {
		return nil, fmt.Errorf("imputed vector has %d values, dataset has %d rows", len(areas), len(d.Listings))
	}
	for i, v := range areas {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("imputed vector still missing at row %d", i)
		}
	}

	completed := &Dataset{
		Listings:   make([]Listing, len(d.Listings)),
		SourceInfo: d.SourceInfo,
	}
	copy(completed.Listings, d.Listings)
	for i := range completed.Listings {
		completed.Listings[i].Area = areas[i]
	}
	completed.Columns = Summarize(completed)
	return completed, nil
}
