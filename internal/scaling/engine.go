// Package scaling computes the per-item scale vector for a substitution
// intervention.
//
// Reducing ruminant consumption removes part of the chosen nutrient basis. The
// removed share is restored by inflating every non-ruminant item by a common
// compensation factor so that, for every year,
//
//	sum(basis[item][year] * scale[item][year]) == sum(basis[item][year])
//
// With f the retained ruminant fraction, R the ruminant basis and T the basis
// total, ruminant items get f and all other items get (T - R*f) / (T - R).
package scaling

import (
	"math"

	"github.com/fairdiet/fairdiet/internal/catalog"
	"github.com/fairdiet/fairdiet/internal/series"
)

// MaxLevel is the highest reduction level; it removes the targeted items entirely.
const MaxLevel = 4

// Default guard settings.
const (
	// DefaultTolerance is the share of the basis total below which the
	// compensable remainder is treated as zero.
	DefaultTolerance = 1e-9

	// DefaultMaxCompensation caps the compensation factor under PolicyClamp.
	DefaultMaxCompensation = 1e3
)

// Pass names reported in DegenerateScalingError.
const (
	PassRuminant = "ruminant"
	PassMeat     = "meat"
)

// Policy decides what happens when compensation is degenerate.
type Policy int

const (
	// PolicyReject returns a DegenerateScalingError.
	PolicyReject Policy = iota

	// PolicyClamp caps the factor at the configured maximum and records the year.
	PolicyClamp
)

// String returns the configuration spelling of the policy.
func (p Policy) String() string {
	if p == PolicyClamp {
		return "clamp"
	}
	return "reject"
}

// ParsePolicy converts "reject" or "clamp" to a Policy. Empty means reject.
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "", "reject":
		return PolicyReject, true
	case "clamp":
		return PolicyClamp, true
	default:
		return PolicyReject, false
	}
}

// Vector is the result of ComputeScale. Factors is indexed [item][year].
type Vector struct {
	Basis            catalog.Basis
	RuminantFraction float64
	MeatFraction     float64
	Factors          [][]float64

	// ClampedYears lists years whose compensation was capped under PolicyClamp.
	ClampedYears []int
}

// Factor returns the scale of item in year index y.
func (v Vector) Factor(item, y int) float64 {
	return v.Factors[item][y]
}

// Identity reports whether every factor is exactly 1.
func (v Vector) Identity() bool {
	for _, row := range v.Factors {
		for _, f := range row {
			if f != 1 {
				return false
			}
		}
	}
	return true
}

// Engine computes scale vectors against one store. It holds copies of the
// store's nutrient matrices and is safe for concurrent use.
type Engine struct {
	years     catalog.YearRange
	roles     []catalog.Role
	nutrients map[catalog.Basis][][]float64

	policy          Policy
	maxCompensation float64
	tolerance       float64
	meatReduction   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy sets the degenerate-compensation policy and the clamp ceiling.
// A non-positive ceiling keeps DefaultMaxCompensation.
func WithPolicy(p Policy, maxCompensation float64) Option {
	return func(e *Engine) {
		e.policy = p
		if maxCompensation > 0 {
			e.maxCompensation = maxCompensation
		}
	}
}

// WithTolerance sets the relative tolerance of the degenerate guard.
func WithTolerance(tol float64) Option {
	return func(e *Engine) {
		if tol > 0 {
			e.tolerance = tol
		}
	}
}

// WithMeatReduction enables the second conservation pass driven by the total
// meat reduction level.
func WithMeatReduction(enabled bool) Option {
	return func(e *Engine) { e.meatReduction = enabled }
}

// New builds an engine over store.
func New(store *series.Store, opts ...Option) *Engine {
	cat := store.Catalog()
	e := &Engine{
		years:           store.Years(),
		roles:           make([]catalog.Role, cat.Len()),
		nutrients:       make(map[catalog.Basis][][]float64, len(catalog.AllBases)),
		policy:          PolicyReject,
		maxCompensation: DefaultMaxCompensation,
		tolerance:       DefaultTolerance,
	}
	for _, item := range cat.Items() {
		e.roles[item.Index] = item.Role
	}
	for _, b := range catalog.AllBases {
		// Valid bases never fail.
		m, _ := store.Nutrient(b)
		e.nutrients[b] = m
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MeatReductionEnabled reports whether the total meat level is applied.
func (e *Engine) MeatReductionEnabled() bool { return e.meatReduction }

// RetainedFraction converts a reduction level to the share of consumption kept.
func RetainedFraction(level int) float64 {
	return float64(MaxLevel-level) / MaxLevel
}

// ComputeScale returns the scale vector conserving basis for the given levels.
//
// Unless the engine was built WithMeatReduction, meatLevel is validated but
// does not change the factors. The total-meat slider has always been read and
// then ignored; applying it is opt-in.
func (e *Engine) ComputeScale(basis catalog.Basis, ruminantLevel, meatLevel int) (Vector, error) {
	if !basis.Valid() {
		return Vector{}, &catalog.UnknownBasisError{Name: basis.String()}
	}
	if ruminantLevel < 0 || ruminantLevel > MaxLevel {
		return Vector{}, invalidLevel("ruminant", ruminantLevel)
	}
	if meatLevel < 0 || meatLevel > MaxLevel {
		return Vector{}, invalidLevel("meat", meatLevel)
	}

	values := e.nutrients[basis]
	n := len(e.roles)
	nYears := e.years.Len()

	v := Vector{
		Basis:            basis,
		RuminantFraction: RetainedFraction(ruminantLevel),
		MeatFraction:     1,
		Factors:          make([][]float64, n),
	}
	for i := range v.Factors {
		row := make([]float64, nYears)
		for y := range row {
			row[y] = 1
		}
		v.Factors[i] = row
	}

	clamped := make(map[int]bool)

	if ruminantLevel > 0 {
		reduced := func(i int) bool { return e.roles[i] == catalog.RoleRuminant }
		if err := e.pass(PassRuminant, values, v.Factors, reduced, v.RuminantFraction, clamped); err != nil {
			return Vector{}, err
		}
	}

	if e.meatReduction && meatLevel > 0 {
		v.MeatFraction = RetainedFraction(meatLevel)
		reduced := func(i int) bool { return e.roles[i].IsMeat() }
		if err := e.pass(PassMeat, values, v.Factors, reduced, v.MeatFraction, clamped); err != nil {
			return Vector{}, err
		}
	}

	for y := range nYears {
		if clamped[y] {
			v.ClampedYears = append(v.ClampedYears, e.years.First+y)
		}
	}
	return v, nil
}

// pass multiplies reduced items by fraction and every other item by the
// compensation factor that restores the basis total of the already-scaled
// values. factors is updated in place.
func (e *Engine) pass(
	name string,
	values, factors [][]float64,
	reduced func(int) bool,
	fraction float64,
	clamped map[int]bool,
) error {
	nYears := e.years.Len()
	comp := make([]float64, nYears)

	for y := range nYears {
		var total, target, rest float64
		for i, row := range values {
			scaled := row[y] * factors[i][y]
			total += scaled
			if reduced(i) {
				target += scaled
			} else {
				rest += scaled
			}
		}

		if target == 0 || fraction == 1 {
			comp[y] = 1
			continue
		}

		adjusted := total - target*(1-fraction)
		if rest <= e.tolerance*total {
			if e.policy == PolicyReject {
				return &DegenerateScalingError{
					Year:          e.years.First + y,
					Pass:          name,
					BasisTotal:    total,
					AdjustedTotal: adjusted,
					Compensable:   rest,
				}
			}
			comp[y] = e.maxCompensation
			clamped[y] = true
			continue
		}

		c := (total - target*fraction) / rest
		switch {
		case math.IsNaN(c) || math.IsInf(c, 0):
			if e.policy == PolicyReject {
				return &DegenerateScalingError{
					Year:          e.years.First + y,
					Pass:          name,
					BasisTotal:    total,
					AdjustedTotal: adjusted,
					Compensable:   rest,
				}
			}
			c = e.maxCompensation
			clamped[y] = true
		case e.policy == PolicyClamp && c > e.maxCompensation:
			c = e.maxCompensation
			clamped[y] = true
		}
		comp[y] = c
	}

	for i, row := range factors {
		for y := range row {
			if reduced(i) {
				row[y] *= fraction
			} else {
				row[y] *= comp[y]
			}
		}
	}
	return nil
}
