package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// The raw scrape carries 21 columns. Free-text and identifier columns, the
// high-cardinality district identifiers, and scrape bookkeeping are dropped at
// load; only the predictor and target columns below survive.
var rawColumns = []string{
	"mls_id", "title", "description", "full_address", "url",
	"district_code", "district_name", "region", "latitude", "longitude",
	"sold_date", "days_on_market",
	"mean_district_income", "area_sqft",
	"bedrooms_ag", "bedrooms_bg", "bathrooms", "parking_spaces",
	"property_type", "final_price", "list_price",
}

// keptColumns are the raw columns the loader actually reads
var keptColumns = []string{
	"mean_district_income", "area_sqft", "bedrooms_ag", "bedrooms_bg",
	"bathrooms", "parking_spaces", "property_type", "final_price", "list_price",
}

// ValidationError describes a single rejected cell
type ValidationError struct {
	Row    int    // 1-based data row number (header excluded)
	Column string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("row %d, column %q: %s", e.Row, e.Column, e.Reason)
}

// ValidationErrors aggregates every rejected cell from a load
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	const maxShown = 10
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation failure(s)", len(e))
	for i, ve := range e {
		if i >= maxShown {
			fmt.Fprintf(&b, "; and %d more", len(e)-maxShown)
			break
		}
		b.WriteString("; ")
		b.WriteString(ve.Error())
	}
	return b.String()
}

// LoaderOptions configures the CSV loader
type LoaderOptions struct {
	Delimiter rune
}

// Load reads the raw listings CSV, drops the non-predictor columns, derives
// bedrooms from the above/below-ground counts, normalizes property-type labels
// and validates every cell. Any validation failure rejects the load.
func Load(path string, opts LoaderOptions) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open listings file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse listings file: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("listings file must contain a header and at least one row")
	}

	header := records[0]
	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[strings.TrimSpace(name)] = i
	}
	for _, name := range keptColumns {
		if _, ok := colIdx[name]; !ok {
			return nil, fmt.Errorf("listings file missing required column %q", name)
		}
	}

	ds := &Dataset{
		Listings: make([]Listing, 0, len(records)-1),
		SourceInfo: map[string]string{
			"file_path": path,
		},
	}

	var failures ValidationErrors
	for rowNum, record := range records[1:] {
		row := rowNum + 1
		if len(record) != len(header) {
			failures = append(failures, ValidationError{
				Row:    row,
				Column: "",
				Reason: fmt.Sprintf("expected %d fields, got %d", len(header), len(record)),
			})
			continue
		}

		cell := func(name string) string {
			return strings.TrimSpace(record[colIdx[name]])
		}

		listing := Listing{}
		rowFailures := 0
		fail := func(column, reason string) {
			failures = append(failures, ValidationError{Row: row, Column: column, Reason: reason})
			rowFailures++
		}

		// Area may be absent; every other numeric cell is required.
		if raw := cell("area_sqft"); raw == "" {
			listing.Area = math.NaN()
		} else if v, err := strconv.ParseFloat(raw, 64); err != nil {
			fail("area_sqft", fmt.Sprintf("not numeric: %q", raw))
		} else if v <= 0 {
			fail("area_sqft", fmt.Sprintf("must be positive, got %g", v))
		} else {
			listing.Area = v
		}

		bedroomsAG := parseNonNegative(cell("bedrooms_ag"), "bedrooms_ag", fail)
		bedroomsBG := parseNonNegative(cell("bedrooms_bg"), "bedrooms_bg", fail)
		listing.Bedrooms = bedroomsAG + bedroomsBG
		listing.Bathrooms = parseNonNegative(cell("bathrooms"), "bathrooms", fail)
		listing.Parking = parseNonNegative(cell("parking_spaces"), "parking_spaces", fail)
		listing.DistrictIncome = parseNonNegative(cell("mean_district_income"), "mean_district_income", fail)

		if canonical, err := NormalizePropertyType(cell("property_type")); err != nil {
			fail("property_type", err.Error())
		} else {
			listing.PropertyType = canonical
		}

		listing.FinalPrice = parsePositive(cell("final_price"), "final_price", fail)
		listing.ListPrice = parsePositive(cell("list_price"), "list_price", fail)

		if rowFailures == 0 {
			ds.Listings = append(ds.Listings, listing)
		}
	}

	if len(failures) > 0 {
		return nil, failures
	}
	if len(ds.Listings) == 0 {
		return nil, fmt.Errorf("listings file contained no valid rows")
	}

	ds.Columns = Summarize(ds)
	return ds, nil
}

// parseNonNegative parses a required numeric cell that may be zero
func parseNonNegative(raw, column string, fail func(column, reason string)) float64 {
	if raw == "" {
		fail(column, "value is required")
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		fail(column, fmt.Sprintf("not numeric: %q", raw))
		return 0
	}
	if v < 0 {
		fail(column, fmt.Sprintf("must not be negative, got %g", v))
		return 0
	}
	return v
}

// parsePositive parses a required numeric cell that must be strictly positive
func parsePositive(raw, column string, fail func(column, reason string)) float64 {
	if raw == "" {
		fail(column, "value is required")
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		fail(column, fmt.Sprintf("not numeric: %q", raw))
		return 0
	}
	if v <= 0 {
		fail(column, fmt.Sprintf("must be positive, got %g", v))
		return 0
	}
	return v
}
