// Package aggregate applies scale vectors to baseline series and derives the
// per-group, stacked and total trajectories. Every function is pure: inputs are
// never modified and results are freshly allocated.
package aggregate

import (
	"fmt"

	"github.com/fairdiet/fairdiet/internal/catalog"
	"github.com/fairdiet/fairdiet/internal/scaling"
	"github.com/fairdiet/fairdiet/internal/series"
)

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// ErrShapeMismatch is returned when a scale vector and baseline disagree on
// item or year counts.
const ErrShapeMismatch = constError("shape mismatch")

// Baseline holds the unscaled [item][year] matrices that ApplyScale scales.
type Baseline struct {
	Emissions [][]float64
	Calories  [][]float64
	Protein   [][]float64
}

// BaselineFrom copies the matrices ApplyScale needs out of store.
func BaselineFrom(store *series.Store) Baseline {
	calories, _ := store.Nutrient(catalog.BasisCalories)
	protein, _ := store.Nutrient(catalog.BasisProtein)
	return Baseline{
		Emissions: store.Emissions(),
		Calories:  calories,
		Protein:   protein,
	}
}

// Scaled holds the per-item trajectories after an intervention.
type Scaled struct {
	Emissions [][]float64
	Calories  [][]float64
	Protein   [][]float64
}

// ApplyScale multiplies each baseline entry by the matching scale factor.
func ApplyScale(b Baseline, v scaling.Vector) (Scaled, error) {
	var out Scaled
	var err error
	if out.Emissions, err = multiply("emissions", b.Emissions, v.Factors); err != nil {
		return Scaled{}, err
	}
	if out.Calories, err = multiply("calories", b.Calories, v.Factors); err != nil {
		return Scaled{}, err
	}
	if out.Protein, err = multiply("protein", b.Protein, v.Factors); err != nil {
		return Scaled{}, err
	}
	return out, nil
}

func multiply(name string, values, factors [][]float64) ([][]float64, error) {
	if len(values) != len(factors) {
		return nil, fmt.Errorf("%w: %s has %d items, scale vector has %d",
			ErrShapeMismatch, name, len(values), len(factors))
	}
	out := make([][]float64, len(values))
	for i, row := range values {
		if len(row) != len(factors[i]) {
			return nil, fmt.Errorf("%w: %s item %d has %d years, scale vector has %d",
				ErrShapeMismatch, name, i, len(row), len(factors[i]))
		}
		scaled := make([]float64, len(row))
		for y, val := range row {
			scaled[y] = val * factors[i][y]
		}
		out[i] = scaled
	}
	return out, nil
}

// SumByGroup sums item rows into one row per catalog group, in the catalog's
// first-seen group order.
func SumByGroup(cat *catalog.Catalog, perItem [][]float64) [][]float64 {
	groups := cat.Groups()
	out := make([][]float64, len(groups))
	years := 0
	if len(perItem) > 0 {
		years = len(perItem[0])
	}
	for g := range out {
		out[g] = make([]float64, years)
	}
	for i, row := range perItem {
		acc := out[cat.GroupIndex(i)]
		for y, v := range row {
			acc[y] += v
		}
	}
	return out
}

// CumulativeStack returns running sums over groups: row g is the sum of rows
// 0..g. With non-negative inputs each row is >= the previous one.
func CumulativeStack(perGroup [][]float64) [][]float64 {
	out := make([][]float64, len(perGroup))
	for g, row := range perGroup {
		acc := make([]float64, len(row))
		copy(acc, row)
		if g > 0 {
			for y := range acc {
				acc[y] += out[g-1][y]
			}
		}
		out[g] = acc
	}
	return out
}

// TotalEmissions sums every item per year. It is the climate model input.
func TotalEmissions(perItem [][]float64) []float64 {
	return Sum(perItem)
}

// Sum adds the rows of m per year.
func Sum(m [][]float64) []float64 {
	if len(m) == 0 {
		return nil
	}
	out := make([]float64, len(m[0]))
	for _, row := range m {
		for y, v := range row {
			out[y] += v
		}
	}
	return out
}

// Select returns copies of the rows at indices, in order.
func Select(m [][]float64, indices []int) [][]float64 {
	out := make([][]float64, len(indices))
	for k, i := range indices {
		out[k] = append([]float64(nil), m[i]...)
	}
	return out
}
