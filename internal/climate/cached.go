package climate

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fairdiet/fairdiet/internal/cache"
	"github.com/fairdiet/fairdiet/internal/logging"
)

// ProjectionCache is the subset of *cache.FileStore used by Cached.
type ProjectionCache interface {
	Get(key string) (*cache.Entry, error)
	Set(key string, data json.RawMessage) error
}

// Identifier is implemented by models whose Name does not determine their
// output. Identity must differ whenever two models could project differently.
type Identifier interface {
	Identity() string
}

// CachedModel memoizes a deterministic model's projections by emissions
// trajectory. Cache failures are logged and fall through to the model.
type CachedModel struct {
	model Model
	store ProjectionCache
}

// Cached wraps m with store. Unavailable models are returned unwrapped since
// they never produce anything worth keeping.
func Cached(m Model, store ProjectionCache) Model {
	if _, ok := m.(Unavailable); ok || store == nil {
		return m
	}
	return &CachedModel{model: m, store: store}
}

// Name returns the wrapped model's name.
func (c *CachedModel) Name() string { return c.model.Name() }

// identity namespaces cache keys. Models without an Identity fall back to
// their name.
func (c *CachedModel) identity() string {
	if id, ok := c.model.(Identifier); ok {
		return id.Identity()
	}
	return c.model.Name()
}

// Project returns a cached projection for emissions or runs the model and
// stores the result. Only projections that pass Validate are stored.
func (c *CachedModel) Project(ctx context.Context, emissions []float64) (Projection, error) {
	log := logging.FromContext(ctx)
	key := cache.Key(c.identity(), emissions)

	entry, err := c.store.Get(key)
	switch {
	case err == nil:
		var p Projection
		if decodeErr := json.Unmarshal(entry.Data, &p); decodeErr == nil && Validate(p, len(emissions)) == nil {
			log.Debug().
				Ctx(ctx).
				Str("component", "climate").
				Str("operation", "project").
				Str("cache_key", key[:12]).
				Msg("projection cache hit")
			return p, nil
		}
	case errors.Is(err, cache.ErrNotFound), errors.Is(err, cache.ErrExpired):
	default:
		log.Warn().Ctx(ctx).Str("component", "climate").Err(err).Msg("reading projection cache")
	}

	p, err := c.model.Project(ctx, emissions)
	if err != nil {
		return Projection{}, err
	}
	if Validate(p, len(emissions)) != nil {
		return p, nil
	}

	data, err := json.Marshal(p)
	if err == nil {
		err = c.store.Set(key, data)
	}
	if err != nil {
		log.Warn().Ctx(ctx).Str("component", "climate").Err(err).Msg("writing projection cache")
	}
	return p, nil
}
