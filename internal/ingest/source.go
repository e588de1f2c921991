package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fairdiet/fairdiet/internal/catalog"
	"github.com/fairdiet/fairdiet/internal/logging"
	"github.com/fairdiet/fairdiet/internal/series"
)

// Default file layout under the data directory.
const (
	DefaultItemPattern    = "food/FAOSTAT_{item}_data.csv"
	DefaultPopulationFile = "population/population.csv"

	itemPlaceholder = "{item}"
	maxParallelRead = 8
)

// DirSource reads item and population CSVs from a directory. Parsed files are
// cached, so building stores for several regions reads each file once.
type DirSource struct {
	dir            string
	itemPattern    string
	populationFile string

	mu    sync.Mutex
	cache map[string][]series.Row
}

// DirOption configures a DirSource.
type DirOption func(*DirSource)

// WithItemPattern sets the path of item files relative to the directory.
// "{item}" is replaced with the item's source name.
func WithItemPattern(pattern string) DirOption {
	return func(d *DirSource) {
		if pattern != "" {
			d.itemPattern = pattern
		}
	}
}

// WithPopulationFile sets the population CSV path relative to the directory.
func WithPopulationFile(name string) DirOption {
	return func(d *DirSource) {
		if name != "" {
			d.populationFile = name
		}
	}
}

// NewDirSource returns a source rooted at dir.
func NewDirSource(dir string, opts ...DirOption) *DirSource {
	d := &DirSource{
		dir:            dir,
		itemPattern:    DefaultItemPattern,
		populationFile: DefaultPopulationFile,
		cache:          make(map[string][]series.Row),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ItemPath returns the file an item is read from.
func (d *DirSource) ItemPath(item catalog.FoodItem) string {
	return d.resolve(strings.ReplaceAll(d.itemPattern, itemPlaceholder, item.SourceName()))
}

// PopulationPath returns the population file.
func (d *DirSource) PopulationPath() string {
	return d.resolve(d.populationFile)
}

func (d *DirSource) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(d.dir, name)
}

// ItemRows implements series.Source.
func (d *DirSource) ItemRows(ctx context.Context, item catalog.FoodItem) ([]series.Row, error) {
	return d.load(ctx, d.ItemPath(item), true)
}

// PopulationRows implements series.Source.
func (d *DirSource) PopulationRows(ctx context.Context) ([]series.Row, error) {
	return d.load(ctx, d.PopulationPath(), false)
}

// Preload reads every item file and the population file concurrently.
func (d *DirSource) Preload(ctx context.Context, items []catalog.FoodItem) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelRead)
	for _, item := range items {
		g.Go(func() error {
			_, err := d.ItemRows(gctx, item)
			return err
		})
	}
	g.Go(func() error {
		_, err := d.PopulationRows(gctx)
		return err
	})
	return g.Wait()
}

func (d *DirSource) load(ctx context.Context, path string, requireElement bool) ([]series.Row, error) {
	d.mu.Lock()
	rows, ok := d.cache[path]
	d.mu.Unlock()
	if ok {
		return rows, nil
	}

	log := logging.FromContext(ctx)
	log.Debug().
		Ctx(ctx).
		Str("component", "ingest").
		Str("operation", "load_file").
		Str("path", path).
		Msg("reading data file")

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err = ParseRows(ctx, f, requireElement)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	d.mu.Lock()
	d.cache[path] = rows
	d.mu.Unlock()
	return rows, nil
}

// LoadStores preloads src and builds one store per region concurrently. Any
// failure is fatal and returned as the first error.
func LoadStores(
	ctx context.Context,
	cat *catalog.Catalog,
	src *DirSource,
	regions []catalog.Region,
	opts ...series.Option,
) ([]*series.Store, error) {
	log := logging.FromContext(ctx)

	if err := src.Preload(ctx, cat.Items()); err != nil {
		return nil, &series.DataLoadError{Reason: "reading source files", Err: err}
	}

	stores := make([]*series.Store, len(regions))
	g, gctx := errgroup.WithContext(ctx)
	for i, region := range regions {
		g.Go(func() error {
			s, err := series.NewStore(gctx, cat, src, region, opts...)
			if err != nil {
				return err
			}
			stores[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info().
		Ctx(ctx).
		Str("component", "ingest").
		Int("regions", len(stores)).
		Int("items", cat.Len()).
		Msg("time-series stores loaded")

	return stores, nil
}
