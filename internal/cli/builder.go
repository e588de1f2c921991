package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fairdiet/fairdiet/internal/cache"
	"github.com/fairdiet/fairdiet/internal/catalog"
	"github.com/fairdiet/fairdiet/internal/climate"
	"github.com/fairdiet/fairdiet/internal/config"
	"github.com/fairdiet/fairdiet/internal/ingest"
	"github.com/fairdiet/fairdiet/internal/logging"
	"github.com/fairdiet/fairdiet/internal/pipeline"
	"github.com/fairdiet/fairdiet/internal/scaling"
	"github.com/fairdiet/fairdiet/internal/series"
)

// loadCatalog returns the configured catalog file or the built-in one.
func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Data.Catalog == "" {
		return catalog.Default(), nil
	}
	f, err := os.Open(cfg.Data.Catalog)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	cat, err := catalog.Load(f)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", cfg.Data.Catalog, err)
	}
	return cat, nil
}

// newClimateModel builds the external model, or climate.Unavailable when no
// command is configured.
func newClimateModel(cfg *config.Config, cat *catalog.Catalog) (climate.Model, error) {
	cc := cfg.Climate
	if cc.Command == "" {
		return climate.Unavailable{Reason: "no climate command configured"}, nil
	}
	opts := []climate.ProcessOption{climate.WithFirstYear(cat.Years().First)}
	if cc.Timeout > 0 {
		opts = append(opts, climate.WithTimeout(cc.Timeout))
	}
	if cc.ProtocolConstraint != "" {
		opts = append(opts, climate.WithProtocolConstraint(cc.ProtocolConstraint))
	}
	m, err := climate.NewProcessModel(cc.Command, cc.Args, opts...)
	if err != nil {
		return nil, fmt.Errorf("configuring climate model: %w", err)
	}
	if !cc.Cache {
		return m, nil
	}
	store, err := openProjectionCache(cfg)
	if err != nil {
		return nil, err
	}
	return climate.Cached(m, store), nil
}

// openProjectionCache opens the on-disk climate projection cache.
func openProjectionCache(cfg *config.Config) (*cache.FileStore, error) {
	dir, err := cfg.Climate.ResolvedCacheDir()
	if err != nil {
		return nil, fmt.Errorf("resolving cache directory: %w", err)
	}
	store, err := cache.NewFileStore(dir, cfg.Climate.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("opening projection cache: %w", err)
	}
	return store, nil
}

// scalingOptions converts the scaling section.
func scalingOptions(cfg *config.Config) ([]scaling.Option, error) {
	policy, ok := scaling.ParsePolicy(cfg.Scaling.DegeneratePolicy)
	if !ok {
		return nil, fmt.Errorf("%w: unknown degenerate_policy %q", config.ErrInvalidConfig, cfg.Scaling.DegeneratePolicy)
	}
	return []scaling.Option{
		scaling.WithPolicy(policy, cfg.Scaling.MaxCompensation),
		scaling.WithMeatReduction(cfg.Scaling.ApplyMeatReduction),
	}, nil
}

// buildPipeline loads every catalog region from the data directory and wires
// the climate model and scaling policy. Load failures are fatal.
func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, error) {
	log := logging.FromContext(ctx)

	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	src := ingest.NewDirSource(cfg.Data.Dir,
		ingest.WithItemPattern(cfg.Data.ItemPattern),
		ingest.WithPopulationFile(cfg.Data.PopulationFile),
	)
	var storeOpts []series.Option
	if cfg.Data.PopulationFallback != 0 {
		storeOpts = append(storeOpts, series.WithPopulationFallback(cfg.Data.PopulationFallback))
	}
	stores, err := ingest.LoadStores(ctx, cat, src, cat.Regions(), storeOpts...)
	if err != nil {
		return nil, err
	}

	model, err := newClimateModel(cfg, cat)
	if err != nil {
		return nil, err
	}
	scalingOpts, err := scalingOptions(cfg)
	if err != nil {
		return nil, err
	}

	p, err := pipeline.New(cat, stores, model, pipeline.WithScalingOptions(scalingOpts...))
	if err != nil {
		return nil, err
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "cli").
		Str("data_dir", cfg.Data.Dir).
		Str("climate_model", p.ModelName()).
		Strs("regions", p.Regions()).
		Msg("pipeline ready")
	return p, nil
}
