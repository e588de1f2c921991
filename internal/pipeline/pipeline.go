// Package pipeline orchestrates scaling, aggregation and the climate model for
// one intervention state, and schedules recomputes so only the newest request
// per session is ever delivered.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fairdiet/fairdiet/internal/aggregate"
	"github.com/fairdiet/fairdiet/internal/catalog"
	"github.com/fairdiet/fairdiet/internal/climate"
	"github.com/fairdiet/fairdiet/internal/logging"
	"github.com/fairdiet/fairdiet/internal/scaling"
	"github.com/fairdiet/fairdiet/internal/series"
)

// Recomputer is implemented by Pipeline and by test doubles of it.
type Recomputer interface {
	Recompute(ctx context.Context, region string, state InterventionState) (*ResultBundle, error)
}

// regionData is everything precomputed for one region at construction.
type regionData struct {
	region        catalog.Region
	engine        *scaling.Engine
	baseline      aggregate.Baseline
	baselineTotal []float64
}

// Pipeline is immutable after New and safe for concurrent use.
type Pipeline struct {
	cat         *catalog.Catalog
	regions     map[string]*regionData
	regionNames []string
	model       climate.Model
	scalingOpts []scaling.Option
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithScalingOptions passes options to every region's scaling engine.
func WithScalingOptions(opts ...scaling.Option) Option {
	return func(p *Pipeline) {
		p.scalingOpts = append(p.scalingOpts, opts...)
	}
}

// New builds a pipeline over one store per region. All stores must share cat.
// A nil model behaves as climate.Unavailable.
func New(cat *catalog.Catalog, stores []*series.Store, model climate.Model, opts ...Option) (*Pipeline, error) {
	if len(stores) == 0 {
		return nil, fmt.Errorf("%w: no regions loaded", series.ErrDataLoad)
	}
	if model == nil {
		model = climate.Unavailable{}
	}
	p := &Pipeline{
		cat:     cat,
		regions: make(map[string]*regionData, len(stores)),
		model:   model,
	}
	for _, opt := range opts {
		opt(p)
	}

	for _, s := range stores {
		if s.Catalog() != cat {
			return nil, fmt.Errorf("%w: store for %q was built against a different catalog",
				series.ErrDataLoad, s.Region().Name)
		}
		key := strings.ToLower(s.Region().Name)
		if _, dup := p.regions[key]; dup {
			return nil, fmt.Errorf("%w: duplicate store for region %q", series.ErrDataLoad, s.Region().Name)
		}
		baseline := aggregate.BaselineFrom(s)
		p.regions[key] = &regionData{
			region:        s.Region(),
			engine:        scaling.New(s, p.scalingOpts...),
			baseline:      baseline,
			baselineTotal: aggregate.TotalEmissions(baseline.Emissions),
		}
		p.regionNames = append(p.regionNames, s.Region().Name)
	}
	sort.Strings(p.regionNames)
	return p, nil
}

// Catalog returns the read-only catalog for populating selection controls.
func (p *Pipeline) Catalog() *catalog.Catalog { return p.cat }

// Regions returns the names of the loaded regions, sorted.
func (p *Pipeline) Regions() []string {
	return append([]string(nil), p.regionNames...)
}

// ModelName returns the climate model's name.
func (p *Pipeline) ModelName() string { return p.model.Name() }

// Recompute runs the full pipeline for state in region.
//
// Selection errors (*UnknownRegionError, unknown basis or group, invalid
// level) and *scaling.DegenerateScalingError return a nil bundle. A climate
// model failure does not: the bundle carries the emissions series and
// Status.ClimateAvailable is false.
func (p *Pipeline) Recompute(ctx context.Context, region string, state InterventionState) (*ResultBundle, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	rd, ok := p.regions[strings.ToLower(strings.TrimSpace(region))]
	if !ok {
		return nil, &UnknownRegionError{Name: region, Known: p.Regions()}
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	var filter *catalog.FoodGroup
	if state.GroupFilter != "" {
		g, err := p.cat.Group(state.GroupFilter)
		if err != nil {
			return nil, err
		}
		filter = &g
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "pipeline").
		Str("operation", "recompute").
		Str("region", rd.region.Name).
		Int("ruminant_level", state.RuminantLevel).
		Int("meat_level", state.MeatLevel).
		Str("basis", state.Basis.String()).
		Str("group_filter", state.GroupFilter).
		Msg("recompute started")

	vec, err := rd.engine.ComputeScale(state.Basis, state.RuminantLevel, state.MeatLevel)
	if err != nil {
		return nil, fmt.Errorf("computing scale for %s: %w", rd.region.Name, err)
	}
	if len(vec.ClampedYears) > 0 {
		log.Warn().
			Ctx(ctx).
			Str("component", "pipeline").
			Str("region", rd.region.Name).
			Ints("years", vec.ClampedYears).
			Msg("compensation factor clamped")
	}

	scaled, err := aggregate.ApplyScale(rd.baseline, vec)
	if err != nil {
		return nil, fmt.Errorf("applying scale: %w", err)
	}

	bundle := p.assemble(rd, state, filter, scaled)
	bundle.Status.ClampedYears = vec.ClampedYears
	bundle.Status.MeatLevelApplied = rd.engine.MeatReductionEnabled()

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	bundle.Status.ClimateModel = p.model.Name()
	proj, climateErr := climate.Run(ctx, p.model, bundle.TotalEmissions)
	if climateErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		bundle.Status.ClimateErr = climateErr
		bundle.Status.ClimateError = climateErr.Error()
		log.Warn().
			Ctx(ctx).
			Str("component", "pipeline").
			Str("region", rd.region.Name).
			Err(climateErr).
			Msg("climate model unavailable, returning emissions only")
	} else {
		bundle.Status.ClimateAvailable = true
		bundle.Concentration = proj.Concentration
		bundle.Forcing = proj.Forcing
		bundle.Temperature = proj.Temperature
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "pipeline").
		Str("bundle_id", bundle.ID).
		Bool("climate_available", bundle.Status.ClimateAvailable).
		Dur("duration", time.Since(start)).
		Msg("recompute finished")

	return bundle, nil
}

func (p *Pipeline) assemble(
	rd *regionData,
	state InterventionState,
	filter *catalog.FoodGroup,
	scaled aggregate.Scaled,
) *ResultBundle {
	items := p.cat.Items()
	groups := p.cat.Groups()

	var itemIdx, groupIdx []int
	if filter != nil {
		for _, it := range filter.Items {
			itemIdx = append(itemIdx, it.Index)
		}
		groupIdx = []int{p.cat.GroupIndex(filter.Items[0].Index)}
	} else {
		for _, it := range items {
			itemIdx = append(itemIdx, it.Index)
		}
		for g := range groups {
			groupIdx = append(groupIdx, g)
		}
	}

	perGroup := aggregate.Select(aggregate.SumByGroup(p.cat, scaled.Emissions), groupIdx)
	stack := aggregate.CumulativeStack(perGroup)

	itemSeries := func(m [][]float64) []Series {
		out := make([]Series, 0, len(itemIdx))
		for _, i := range itemIdx {
			out = append(out, Series{ID: items[i].Code, Name: items[i].Name, Values: m[i]})
		}
		return out
	}
	groupSeries := func(m [][]float64) []Series {
		out := make([]Series, 0, len(groupIdx))
		for k, g := range groupIdx {
			out = append(out, Series{ID: groups[g].ID, Name: groups[g].Name, Values: m[k]})
		}
		return out
	}

	return &ResultBundle{
		ID:                   logging.NewID(),
		Region:               rd.region,
		State:                state,
		Years:                p.cat.Years().Years(),
		PerItemEmissions:     itemSeries(scaled.Emissions),
		PerGroupEmissions:    groupSeries(perGroup),
		CumulativeGroupStack: groupSeries(stack),
		ScaledCalories:       itemSeries(scaled.Calories),
		ScaledProtein:        itemSeries(scaled.Protein),
		TotalEmissions:       aggregate.TotalEmissions(scaled.Emissions),
		BaselineEmissions:    append([]float64(nil), rd.baselineTotal...),
		TotalCalories:        aggregate.Sum(scaled.Calories),
		TotalProtein:         aggregate.Sum(scaled.Protein),
	}
}
