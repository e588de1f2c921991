// Package series provides the immutable per-region time-series store.
//
// A Store holds, for every catalog item, the weight, calorie and protein supply
// per capita per day for each year of the catalog's year range, together with a
// baseline annual emissions trajectory derived once at construction:
//
//	emissions[item][year] = weight * daysPerYear * emissionFactor * population / normalization
//
// Construction fails with a DataLoadError if any item, nutrient or year is
// missing; conservation arithmetic needs every item present in every year.
package series

import (
	"context"
	"fmt"
	"math"

	"github.com/fairdiet/fairdiet/internal/catalog"
	"github.com/fairdiet/fairdiet/internal/logging"
)

// Row is one observation supplied by a data source. Population rows leave
// ElementCode as zero.
type Row struct {
	ElementCode int
	AreaCode    int
	Year        int
	Value       float64
}

// Source supplies raw observations for items and population. Implementations
// live outside the core (see package ingest).
type Source interface {
	ItemRows(ctx context.Context, item catalog.FoodItem) ([]Row, error)
	PopulationRows(ctx context.Context) ([]Row, error)
}

const populationSeries = "population"

// Store is read-only after construction. Accessors return copies.
type Store struct {
	cat        *catalog.Catalog
	region     catalog.Region
	nutrients  [3][][]float64 // indexed by catalog.Basis, then item, then year
	population []float64
	emissions  [][]float64
}

type storeOptions struct {
	fallbackArea    int
	hasFallbackArea bool
}

// Option configures NewStore.
type Option func(*storeOptions)

// WithPopulationFallback uses the population of areaCode when the region has
// no population rows of its own.
func WithPopulationFallback(areaCode int) Option {
	return func(o *storeOptions) {
		o.fallbackArea = areaCode
		o.hasFallbackArea = true
	}
}

// NewStore reads every item's rows from src, keeps the ones for region and the
// catalog's nutrient codes, and derives baseline emissions.
func NewStore(
	ctx context.Context,
	cat *catalog.Catalog,
	src Source,
	region catalog.Region,
	opts ...Option,
) (*Store, error) {
	log := logging.FromContext(ctx)
	o := storeOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	years := cat.Years()
	codes := cat.Nutrients()
	n := cat.Len()

	var nutrients [3][][]float64
	for _, b := range catalog.AllBases {
		nutrients[b] = make([][]float64, n)
	}

	for _, item := range cat.Items() {
		rows, err := src.ItemRows(ctx, item)
		if err != nil {
			return nil, &DataLoadError{Region: region.Name, Item: item.Code, Reason: "reading rows", Err: err}
		}
		for _, b := range catalog.AllBases {
			code, _ := codes.Code(b)
			values, err := extract(rows, code, region.Code, years)
			if err != nil {
				err.Region = region.Name
				err.Item = item.Code
				err.Series = b.String()
				return nil, err
			}
			nutrients[b][item.Index] = values
		}
	}

	popRows, err := src.PopulationRows(ctx)
	if err != nil {
		return nil, &DataLoadError{Region: region.Name, Series: populationSeries, Reason: "reading rows", Err: err}
	}
	area := region.Code
	if o.hasFallbackArea && !hasArea(popRows, area) {
		log.Warn().Ctx(ctx).
			Str("component", "series").
			Str("region", region.Name).
			Int("fallback_area", o.fallbackArea).
			Msg("no population rows for region, using fallback area")
		area = o.fallbackArea
	}
	population, perr := extract(popRows, 0, area, years)
	if perr != nil {
		perr.Region = region.Name
		perr.Series = populationSeries
		return nil, perr
	}

	s := newStore(cat, region, nutrients, population)

	log.Debug().Ctx(ctx).
		Str("component", "series").
		Str("region", region.Name).
		Int("items", n).
		Int("years", years.Len()).
		Msg("time-series store built")

	return s, nil
}

// NewStoreFromArrays builds a store from in-memory matrices shaped [item][year].
// It applies the same validation as NewStore.
func NewStoreFromArrays(
	cat *catalog.Catalog,
	region catalog.Region,
	weight, calories, protein [][]float64,
	population []float64,
) (*Store, error) {
	years := cat.Years().Len()
	var nutrients [3][][]float64
	inputs := map[catalog.Basis][][]float64{
		catalog.BasisWeight:   weight,
		catalog.BasisCalories: calories,
		catalog.BasisProtein:  protein,
	}
	for _, b := range catalog.AllBases {
		m := inputs[b]
		if len(m) != cat.Len() {
			return nil, &DataLoadError{
				Region: region.Name, Series: b.String(),
				Reason: fmt.Sprintf("have %d items, catalog has %d", len(m), cat.Len()),
			}
		}
		nutrients[b] = make([][]float64, len(m))
		for i, row := range m {
			item := cat.Item(i).Code
			if len(row) != years {
				return nil, &DataLoadError{
					Region: region.Name, Item: item, Series: b.String(),
					Reason: fmt.Sprintf("have %d years, want %d", len(row), years),
				}
			}
			for y, v := range row {
				if !validValue(v) {
					return nil, &DataLoadError{
						Region: region.Name, Item: item, Series: b.String(),
						Year: cat.Years().First + y, Reason: fmt.Sprintf("invalid value %v", v),
					}
				}
			}
			nutrients[b][i] = append([]float64(nil), row...)
		}
	}
	if len(population) != years {
		return nil, &DataLoadError{
			Region: region.Name, Series: populationSeries,
			Reason: fmt.Sprintf("have %d years, want %d", len(population), years),
		}
	}
	for y, v := range population {
		if !validValue(v) {
			return nil, &DataLoadError{
				Region: region.Name, Series: populationSeries,
				Year: cat.Years().First + y, Reason: fmt.Sprintf("invalid value %v", v),
			}
		}
	}
	return newStore(cat, region, nutrients, append([]float64(nil), population...)), nil
}

func newStore(cat *catalog.Catalog, region catalog.Region, nutrients [3][][]float64, population []float64) *Store {
	s := &Store{
		cat:        cat,
		region:     region,
		nutrients:  nutrients,
		population: population,
		emissions:  make([][]float64, cat.Len()),
	}
	scale := cat.DaysPerYear() / cat.Normalization()
	for _, item := range cat.Items() {
		weight := nutrients[catalog.BasisWeight][item.Index]
		e := make([]float64, len(weight))
		for y, w := range weight {
			e[y] = w * item.EmissionFactor * population[y] * scale
		}
		s.emissions[item.Index] = e
	}
	return s
}

// extract collects one value per year for (element, area). Rows outside the
// year range are ignored; duplicates, gaps and invalid values are errors.
func extract(rows []Row, element, area int, years catalog.YearRange) ([]float64, *DataLoadError) {
	values := make([]float64, years.Len())
	filled := make([]bool, years.Len())
	for _, r := range rows {
		if r.ElementCode != element || r.AreaCode != area {
			continue
		}
		idx, ok := years.Index(r.Year)
		if !ok {
			continue
		}
		if filled[idx] {
			return nil, &DataLoadError{Year: r.Year, Reason: "duplicate observation"}
		}
		if !validValue(r.Value) {
			return nil, &DataLoadError{Year: r.Year, Reason: fmt.Sprintf("invalid value %v", r.Value)}
		}
		values[idx] = r.Value
		filled[idx] = true
	}
	for i, ok := range filled {
		if !ok {
			return nil, &DataLoadError{Year: years.First + i, Reason: "missing observation"}
		}
	}
	return values, nil
}

func hasArea(rows []Row, area int) bool {
	for _, r := range rows {
		if r.AreaCode == area {
			return true
		}
	}
	return false
}

func validValue(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// Catalog returns the catalog the store was built against.
func (s *Store) Catalog() *catalog.Catalog { return s.cat }

// Region returns the region the store holds data for.
func (s *Store) Region() catalog.Region { return s.region }

// Years returns the year range of every series.
func (s *Store) Years() catalog.YearRange { return s.cat.Years() }

// Nutrient returns a copy of the [item][year] matrix for basis b.
func (s *Store) Nutrient(b catalog.Basis) ([][]float64, error) {
	if !b.Valid() {
		return nil, &catalog.UnknownBasisError{Name: b.String()}
	}
	return copyMatrix(s.nutrients[b]), nil
}

// Series returns a copy of one item's series for basis b.
func (s *Store) Series(b catalog.Basis, item int) ([]float64, error) {
	if !b.Valid() {
		return nil, &catalog.UnknownBasisError{Name: b.String()}
	}
	return append([]float64(nil), s.nutrients[b][item]...), nil
}

// Emissions returns a copy of the baseline [item][year] emissions in
// gigatons CO2e per year.
func (s *Store) Emissions() [][]float64 {
	return copyMatrix(s.emissions)
}

// Population returns a copy of the population series.
func (s *Store) Population() []float64 {
	return append([]float64(nil), s.population...)
}

func copyMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
