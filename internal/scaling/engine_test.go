package scaling

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairdiet/fairdiet/internal/catalog"
	"github.com/fairdiet/fairdiet/internal/series"
)

const relTol = 1e-9

var testYears = catalog.YearRange{First: 2000, Last: 2004}

func newCatalog(t testing.TB, roles ...catalog.Role) *catalog.Catalog {
	t.Helper()
	items := make([]catalog.FoodItem, len(roles))
	for i, r := range roles {
		code := string(rune('a' + i))
		items[i] = catalog.FoodItem{Code: code, Name: code, GroupID: r.String(), Role: r, EmissionFactor: 1}
	}
	c, err := catalog.New(testYears, catalog.NutrientCodes{Weight: 1, Calories: 2, Protein: 3}, items, nil)
	require.NoError(t, err)
	return c
}

// constantRows repeats each per-item value across every year.
func constantRows(values ...float64) [][]float64 {
	out := make([][]float64, len(values))
	for i, v := range values {
		row := make([]float64, testYears.Len())
		for y := range row {
			row[y] = v
		}
		out[i] = row
	}
	return out
}

// variedRows produces distinct positive values per item, year and basis.
func variedRows(items int, seed float64) [][]float64 {
	out := make([][]float64, items)
	for i := range out {
		row := make([]float64, testYears.Len())
		for y := range row {
			row[y] = seed*float64(i+1) + math.Sin(float64(i*7+y))*0.5 + 1
		}
		out[i] = row
	}
	return out
}

func newStore(t testing.TB, cat *catalog.Catalog, weight, calories, protein [][]float64) *series.Store {
	t.Helper()
	pop := make([]float64, testYears.Len())
	for y := range pop {
		pop[y] = 1e6
	}
	s, err := series.NewStoreFromArrays(cat, catalog.Region{Name: "test"}, weight, calories, protein, pop)
	require.NoError(t, err)
	return s
}

func defaultRoles() []catalog.Role {
	return []catalog.Role{
		catalog.RoleRuminant, catalog.RoleOtherMeat, catalog.RoleOtherMeat, catalog.RoleOtherMeat,
		catalog.RoleNonMeat, catalog.RoleNonMeat, catalog.RoleNonMeat, catalog.RoleNonMeat,
	}
}

func assertConserved(t *testing.T, values [][]float64, v Vector) {
	t.Helper()
	for y := range testYears.Len() {
		var before, after float64
		for i, row := range values {
			before += row[y]
			after += row[y] * v.Factor(i, y)
		}
		assert.InDelta(t, before, after, relTol*before, "year index %d", y)
	}
}

func TestComputeScale_RegressionExample(t *testing.T) {
	cat := newCatalog(t, catalog.RoleRuminant, catalog.RoleOtherMeat, catalog.RoleOtherMeat, catalog.RoleNonMeat)
	weight := constantRows(10, 5, 3, 2)
	e := New(newStore(t, cat, weight, weight, weight))

	v, err := e.ComputeScale(catalog.BasisWeight, 2, 0)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, v.RuminantFraction, 0)
	assert.InDelta(t, 0.5, v.Factor(0, 0), 1e-12)
	// Every non-ruminant item gets the same factor, including non-meat.
	for i := 1; i < 4; i++ {
		assert.InDelta(t, 1.5, v.Factor(i, 0), 1e-12, "item %d", i)
	}

	var total float64
	for i, row := range weight {
		total += row[0] * v.Factor(i, 0)
	}
	assert.InDelta(t, 20.0, total, 1e-12)
}

func TestComputeScale_Conservation(t *testing.T) {
	cat := newCatalog(t, defaultRoles()...)
	n := cat.Len()
	store := newStore(t, cat, variedRows(n, 0.1), variedRows(n, 300), variedRows(n, 9))

	for _, meat := range []bool{false, true} {
		e := New(store, WithMeatReduction(meat))
		for _, basis := range catalog.AllBases {
			values, err := store.Nutrient(basis)
			require.NoError(t, err)
			for level := 0; level <= MaxLevel; level++ {
				for meatLevel := 0; meatLevel <= MaxLevel; meatLevel++ {
					v, err := e.ComputeScale(basis, level, meatLevel)
					require.NoError(t, err)
					assertConserved(t, values, v)
				}
			}
		}
	}
}

func TestComputeScale_IdentityAtZero(t *testing.T) {
	cat := newCatalog(t, defaultRoles()...)
	n := cat.Len()
	e := New(newStore(t, cat, variedRows(n, 1), variedRows(n, 2), variedRows(n, 3)))

	for _, basis := range catalog.AllBases {
		// Without the opt-in pass the meat level never changes the vector.
		for meatLevel := 0; meatLevel <= MaxLevel; meatLevel++ {
			v, err := e.ComputeScale(basis, 0, meatLevel)
			require.NoError(t, err)
			assert.True(t, v.Identity(), "basis %s meat level %d", basis, meatLevel)
		}
	}
}

func TestComputeScale_MonotonicRuminant(t *testing.T) {
	cat := newCatalog(t, defaultRoles()...)
	n := cat.Len()
	e := New(newStore(t, cat, variedRows(n, 1), variedRows(n, 2), variedRows(n, 3)))

	prev := math.Inf(1)
	for level := 0; level <= MaxLevel; level++ {
		v, err := e.ComputeScale(catalog.BasisCalories, level, 0)
		require.NoError(t, err)
		got := v.Factor(0, 0)
		assert.Less(t, got, prev, "level %d", level)
		assert.InDelta(t, RetainedFraction(level), got, 1e-15)
		prev = got
	}
}

func TestComputeScale_Degenerate(t *testing.T) {
	cat := newCatalog(t, catalog.RoleRuminant, catalog.RoleNonMeat)
	weight := constantRows(10, 0)
	store := newStore(t, cat, weight, weight, weight)

	t.Run("reject", func(t *testing.T) {
		e := New(store)
		_, err := e.ComputeScale(catalog.BasisWeight, MaxLevel, 0)
		require.ErrorIs(t, err, ErrDegenerateScaling)

		var de *DegenerateScalingError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, 2000, de.Year)
		assert.Equal(t, PassRuminant, de.Pass)
		assert.InDelta(t, 10.0, de.BasisTotal, 0)
		assert.InDelta(t, 0.0, de.AdjustedTotal, 0)
	})

	t.Run("level zero is never degenerate", func(t *testing.T) {
		e := New(store)
		v, err := e.ComputeScale(catalog.BasisWeight, 0, 0)
		require.NoError(t, err)
		assert.True(t, v.Identity())
	})

	t.Run("clamp", func(t *testing.T) {
		e := New(store, WithPolicy(PolicyClamp, 50))
		v, err := e.ComputeScale(catalog.BasisWeight, MaxLevel, 0)
		require.NoError(t, err)
		assert.Equal(t, testYears.Years(), v.ClampedYears)
		assert.InDelta(t, 0.0, v.Factor(0, 0), 0)
		assert.InDelta(t, 50.0, v.Factor(1, 0), 0)
		for _, row := range v.Factors {
			for _, f := range row {
				assert.False(t, math.IsNaN(f) || math.IsInf(f, 0))
			}
		}
	})
}

func TestComputeScale_MeatReduction(t *testing.T) {
	cat := newCatalog(t, catalog.RoleRuminant, catalog.RoleOtherMeat, catalog.RoleNonMeat)
	weight := constantRows(4, 4, 8)
	e := New(newStore(t, cat, weight, weight, weight), WithMeatReduction(true))

	v, err := e.ComputeScale(catalog.BasisWeight, 0, 2)
	require.NoError(t, err)

	// Meat halves (8 -> 4); non-meat absorbs the removed 4: (16 - 4) / 8.
	assert.InDelta(t, 0.5, v.MeatFraction, 0)
	assert.InDelta(t, 0.5, v.Factor(0, 0), 1e-12)
	assert.InDelta(t, 0.5, v.Factor(1, 0), 1e-12)
	assert.InDelta(t, 1.5, v.Factor(2, 0), 1e-12)

	t.Run("all meat removed with nothing left", func(t *testing.T) {
		meatOnly := constantRows(4, 4, 0)
		e := New(newStore(t, cat, meatOnly, meatOnly, meatOnly), WithMeatReduction(true))
		_, err := e.ComputeScale(catalog.BasisWeight, 0, MaxLevel)
		var de *DegenerateScalingError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, PassMeat, de.Pass)
	})
}

func TestComputeScale_InvalidInput(t *testing.T) {
	cat := newCatalog(t, catalog.RoleRuminant, catalog.RoleNonMeat)
	w := constantRows(1, 1)
	e := New(newStore(t, cat, w, w, w))

	tests := []struct {
		name     string
		basis    catalog.Basis
		ruminant int
		meat     int
		target   error
	}{
		{name: "negative ruminant", basis: catalog.BasisWeight, ruminant: -1, target: ErrInvalidLevel},
		{name: "ruminant too high", basis: catalog.BasisWeight, ruminant: 5, target: ErrInvalidLevel},
		{name: "meat too high", basis: catalog.BasisWeight, meat: 9, target: ErrInvalidLevel},
		{name: "unknown basis", basis: catalog.Basis(42), target: catalog.ErrUnknownBasis},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.ComputeScale(tt.basis, tt.ruminant, tt.meat)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestParsePolicy(t *testing.T) {
	p, ok := ParsePolicy("clamp")
	assert.True(t, ok)
	assert.Equal(t, PolicyClamp, p)
	assert.Equal(t, "clamp", p.String())

	p, ok = ParsePolicy("")
	assert.True(t, ok)
	assert.Equal(t, PolicyReject, p)

	_, ok = ParsePolicy("ignore")
	assert.False(t, ok)
}

func BenchmarkComputeScale(b *testing.B) {
	cat := newCatalog(b, defaultRoles()...)
	n := cat.Len()
	e := New(newStore(b, cat, variedRows(n, 1), variedRows(n, 2), variedRows(n, 3)), WithMeatReduction(true))

	for b.Loop() {
		_, _ = e.ComputeScale(catalog.BasisProtein, 3, 2)
	}
}
