package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairdiet/fairdiet/internal/catalog"
	"github.com/fairdiet/fairdiet/internal/climate"
	"github.com/fairdiet/fairdiet/internal/scaling"
	"github.com/fairdiet/fairdiet/internal/series"
)

// syntheticMatrix fills [item][year] with positive values that differ per
// item and year.
func syntheticMatrix(items, years int, base float64) [][]float64 {
	out := make([][]float64, items)
	for i := range out {
		row := make([]float64, years)
		for y := range row {
			row[y] = base * (1 + float64(i%3)) * (1 + 0.01*float64(y))
		}
		out[i] = row
	}
	return out
}

func newTestStore(t *testing.T, cat *catalog.Catalog, regionName string) *series.Store {
	t.Helper()
	region, ok := cat.Region(regionName)
	require.True(t, ok)
	n, years := cat.Len(), cat.Years().Len()
	pop := make([]float64, years)
	for y := range pop {
		pop[y] = 6e7
	}
	s, err := series.NewStoreFromArrays(cat, region,
		syntheticMatrix(n, years, 0.02),
		syntheticMatrix(n, years, 150),
		syntheticMatrix(n, years, 6),
		pop)
	require.NoError(t, err)
	return s
}

// cumulativeModel is a deterministic stand-in for the climate model.
func cumulativeModel() climate.Model {
	return climate.Func{Label: "cumulative", Fn: func(_ context.Context, e []float64) (climate.Projection, error) {
		p := climate.Projection{
			Concentration: make([]float64, len(e)),
			Forcing:       make([]float64, len(e)),
			Temperature:   make([]float64, len(e)),
		}
		var acc float64
		for i, v := range e {
			acc += v
			p.Concentration[i] = 280 + acc
			p.Forcing[i] = acc / 10
			p.Temperature[i] = acc / 100
		}
		return p, nil
	}}
}

func newTestPipeline(t *testing.T, model climate.Model, opts ...Option) *Pipeline {
	t.Helper()
	cat := catalog.Default()
	p, err := New(cat, []*series.Store{newTestStore(t, cat, "uk"), newTestStore(t, cat, "chile")}, model, opts...)
	require.NoError(t, err)
	return p
}

func TestRecompute(t *testing.T) {
	p := newTestPipeline(t, cumulativeModel())
	ctx := context.Background()

	b, err := p.Recompute(ctx, "UK", InterventionState{RuminantLevel: 2, Basis: catalog.BasisCalories})
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, OutcomeOK, Classify(b, err))

	years := p.Catalog().Years().Len()
	assert.Len(t, b.Years, years)
	assert.Len(t, b.PerItemEmissions, 8)
	assert.Len(t, b.PerGroupEmissions, 5)
	assert.Len(t, b.CumulativeGroupStack, 5)
	assert.Len(t, b.TotalEmissions, years)
	assert.Len(t, b.Temperature, years)
	assert.True(t, b.Status.ClimateAvailable)
	assert.Equal(t, "cumulative", b.Status.ClimateModel)
	assert.NotEmpty(t, b.ID)

	baseline, err := p.Recompute(ctx, "uk", InterventionState{Basis: catalog.BasisCalories})
	require.NoError(t, err)

	for y := range years {
		// Calories are conserved under a calorie basis.
		assert.InDelta(t, baseline.TotalCalories[y], b.TotalCalories[y], 1e-9*baseline.TotalCalories[y])

		// Groups and the stack agree with the item total.
		var groupSum float64
		for _, g := range b.PerGroupEmissions {
			groupSum += g.Values[y]
		}
		assert.InDelta(t, b.TotalEmissions[y], groupSum, 1e-12)
		assert.InDelta(t, b.TotalEmissions[y], b.CumulativeGroupStack[4].Values[y], 1e-12)
		for g := 1; g < len(b.CumulativeGroupStack); g++ {
			assert.GreaterOrEqual(t, b.CumulativeGroupStack[g].Values[y], b.CumulativeGroupStack[g-1].Values[y])
		}
	}

	// Zero intervention reproduces the baseline; halving beef avoids emissions.
	assert.InDeltaSlice(t, baseline.BaselineEmissions, baseline.TotalEmissions, 1e-12)
	assert.InDelta(t, 0, baseline.AvoidedEmissions(), 1e-12)
	assert.Greater(t, b.AvoidedEmissions(), 0.0)
	assert.Less(t, Last(b.Temperature), Last(baseline.Temperature))
}

func TestRecompute_GroupFilter(t *testing.T) {
	p := newTestPipeline(t, cumulativeModel())
	ctx := context.Background()

	all, err := p.Recompute(ctx, "uk", InterventionState{RuminantLevel: 1, Basis: catalog.BasisWeight})
	require.NoError(t, err)
	legumes, err := p.Recompute(ctx, "uk", InterventionState{RuminantLevel: 1, Basis: catalog.BasisWeight, GroupFilter: "legumes"})
	require.NoError(t, err)

	require.Len(t, legumes.PerItemEmissions, 4)
	assert.Equal(t, "beans", legumes.PerItemEmissions[0].ID)
	require.Len(t, legumes.PerGroupEmissions, 1)
	assert.Equal(t, "legumes", legumes.PerGroupEmissions[0].ID)
	assert.Equal(t, legumes.PerGroupEmissions[0].Values, legumes.CumulativeGroupStack[0].Values)

	// The climate input still covers every item.
	assert.Equal(t, all.TotalEmissions, legumes.TotalEmissions)
	assert.Equal(t, all.Temperature, legumes.Temperature)
}

func TestRecompute_SelectionErrors(t *testing.T) {
	p := newTestPipeline(t, cumulativeModel())

	tests := []struct {
		name   string
		region string
		state  InterventionState
		target error
	}{
		{name: "unknown region", region: "atlantis", state: InterventionState{}, target: ErrUnknownRegion},
		{name: "unknown basis", region: "uk", state: InterventionState{Basis: catalog.Basis(9)}, target: catalog.ErrUnknownBasis},
		{name: "unknown group", region: "uk", state: InterventionState{GroupFilter: "fish"}, target: catalog.ErrUnknownGroup},
		{name: "level out of range", region: "uk", state: InterventionState{RuminantLevel: 5}, target: scaling.ErrInvalidLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := p.Recompute(context.Background(), tt.region, tt.state)
			require.ErrorIs(t, err, tt.target)
			assert.Nil(t, b)
			assert.Equal(t, OutcomeInvalidSelection, Classify(b, err))
			assert.True(t, Classify(b, err).Recoverable())
		})
	}

	var ure *UnknownRegionError
	_, err := p.Recompute(context.Background(), "atlantis", InterventionState{})
	require.ErrorAs(t, err, &ure)
	assert.Equal(t, []string{"chile", "uk"}, ure.Known)
}

func TestRecompute_ClimateFailureKeepsEmissions(t *testing.T) {
	failing := climate.Func{Label: "fair", Fn: func(context.Context, []float64) (climate.Projection, error) {
		return climate.Projection{}, errors.New("numerical divergence")
	}}
	p := newTestPipeline(t, failing)

	b, err := p.Recompute(context.Background(), "chile", InterventionState{RuminantLevel: 3, Basis: catalog.BasisProtein})
	require.NoError(t, err)
	require.NotNil(t, b)

	assert.False(t, b.Status.ClimateAvailable)
	assert.ErrorIs(t, b.Status.ClimateErr, climate.ErrClimateModel)
	assert.Contains(t, b.Status.ClimateError, "numerical divergence")
	assert.Empty(t, b.Temperature)
	assert.Len(t, b.TotalEmissions, p.Catalog().Years().Len())
	for _, v := range b.TotalEmissions {
		assert.False(t, math.IsNaN(v))
	}
	assert.Equal(t, OutcomeClimateUnavailable, Classify(b, err))
}

func TestRecompute_Degenerate(t *testing.T) {
	cat, err := catalog.New(
		catalog.YearRange{First: 2000, Last: 2001},
		catalog.NutrientCodes{Weight: 1, Calories: 2, Protein: 3},
		[]catalog.FoodItem{
			{Code: "beef", GroupID: "meat", Role: catalog.RoleRuminant, EmissionFactor: 70},
			{Code: "beans", GroupID: "plants", Role: catalog.RoleNonMeat, EmissionFactor: 2},
		},
		nil,
		catalog.Region{Name: "solo", Code: 1},
	)
	require.NoError(t, err)
	m := [][]float64{{1, 1}, {0, 0}}
	store, err := series.NewStoreFromArrays(cat, catalog.Region{Name: "solo", Code: 1}, m, m, m, []float64{1, 1})
	require.NoError(t, err)

	t.Run("reject", func(t *testing.T) {
		p, err := New(cat, []*series.Store{store}, cumulativeModel())
		require.NoError(t, err)
		b, err := p.Recompute(context.Background(), "solo", InterventionState{RuminantLevel: 4})
		require.ErrorIs(t, err, scaling.ErrDegenerateScaling)
		assert.Nil(t, b)
		assert.Equal(t, OutcomeDegenerate, Classify(b, err))
	})

	t.Run("clamp", func(t *testing.T) {
		p, err := New(cat, []*series.Store{store}, cumulativeModel(),
			WithScalingOptions(scaling.WithPolicy(scaling.PolicyClamp, 10)))
		require.NoError(t, err)
		b, err := p.Recompute(context.Background(), "solo", InterventionState{RuminantLevel: 4})
		require.NoError(t, err)
		assert.Equal(t, []int{2000, 2001}, b.Status.ClampedYears)
		for _, v := range b.TotalEmissions {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
	})
}

func TestRecompute_Canceled(t *testing.T) {
	p := newTestPipeline(t, cumulativeModel())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b, err := p.Recompute(ctx, "uk", InterventionState{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, b)
	assert.Equal(t, OutcomeCanceled, Classify(b, err))
}

func TestNew_Errors(t *testing.T) {
	cat := catalog.Default()
	_, err := New(cat, nil, nil)
	require.ErrorIs(t, err, series.ErrDataLoad)

	uk := newTestStore(t, cat, "uk")
	_, err = New(cat, []*series.Store{uk, uk}, nil)
	require.ErrorIs(t, err, series.ErrDataLoad)

	other := catalog.Default()
	_, err = New(other, []*series.Store{uk}, nil)
	require.ErrorIs(t, err, series.ErrDataLoad)
}

func TestInterventionState_String(t *testing.T) {
	s := InterventionState{RuminantLevel: 2, MeatLevel: 1, Basis: catalog.BasisProtein, GroupFilter: "pig"}
	assert.Equal(t, "ruminant=2 meat=1 basis=protein group=pig", s.String())
}

func BenchmarkRecompute(b *testing.B) {
	cat := catalog.Default()
	n, years := cat.Len(), cat.Years().Len()
	region, _ := cat.Region("usa")
	pop := make([]float64, years)
	for y := range pop {
		pop[y] = 3e8
	}
	store, err := series.NewStoreFromArrays(cat, region,
		syntheticMatrix(n, years, 0.02), syntheticMatrix(n, years, 150), syntheticMatrix(n, years, 6), pop)
	require.NoError(b, err)
	p, err := New(cat, []*series.Store{store}, cumulativeModel())
	require.NoError(b, err)
	ctx := context.Background()

	for b.Loop() {
		_, _ = p.Recompute(ctx, "usa", InterventionState{RuminantLevel: 3, Basis: catalog.BasisCalories})
	}
}
