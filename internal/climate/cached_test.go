package climate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairdiet/fairdiet/internal/cache"
)

func countingModel(calls *int, err error) Func {
	return Func{Label: "counting", Fn: func(_ context.Context, e []float64) (Projection, error) {
		*calls++
		if err != nil {
			return Projection{}, err
		}
		return constantProjection(len(e), float64(*calls)), nil
	}}
}

// identifiedModel has a fixed name and a distinct identity.
type identifiedModel struct {
	Func
	id string
}

func (m identifiedModel) Identity() string { return m.id }

func fixedModel(id string, v float64) identifiedModel {
	return identifiedModel{id: id, Func: Func{Label: "sh", Fn: func(_ context.Context, e []float64) (Projection, error) {
		return constantProjection(len(e), v), nil
	}}}
}

func TestCached(t *testing.T) {
	store, err := cache.NewFileStore(t.TempDir(), time.Hour)
	require.NoError(t, err)

	var calls int
	m := Cached(countingModel(&calls, nil), store)
	assert.Equal(t, "counting", m.Name())

	ctx := context.Background()
	first, err := Run(ctx, m, []float64{1, 2, 3})
	require.NoError(t, err)
	second, err := Run(ctx, m, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	_, err = Run(ctx, m, []float64{1, 2, 4})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCached_KeyedByIdentity(t *testing.T) {
	store, err := cache.NewFileStore(t.TempDir(), time.Hour)
	require.NoError(t, err)

	ctx := context.Background()
	emissions := []float64{1, 2}
	a := Cached(fixedModel(`{"args":["a.sh"]}`, 1), store)
	b := Cached(fixedModel(`{"args":["b.sh"]}`, 2), store)
	require.Equal(t, a.Name(), b.Name())

	pa, err := Run(ctx, a, emissions)
	require.NoError(t, err)
	pb, err := Run(ctx, b, emissions)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, pa.Temperature)
	assert.Equal(t, []float64{2, 2}, pb.Temperature)

	st, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, st.Entries)
}

func TestCached_ErrorsNotStored(t *testing.T) {
	store, err := cache.NewFileStore(t.TempDir(), time.Hour)
	require.NoError(t, err)

	var calls int
	m := Cached(countingModel(&calls, errors.New("solver diverged")), store)
	for range 2 {
		_, err = Run(context.Background(), m, []float64{1})
		require.ErrorIs(t, err, ErrClimateModel)
	}
	assert.Equal(t, 2, calls)

	st, err := store.Stats()
	require.NoError(t, err)
	assert.Zero(t, st.Entries)
}

func TestCached_CorruptEntryRecomputed(t *testing.T) {
	store, err := cache.NewFileStore(t.TempDir(), time.Hour)
	require.NoError(t, err)
	emissions := []float64{5, 6}
	require.NoError(t, store.Set(cache.Key("counting", emissions), json.RawMessage(`{"temperature":[1]}`)))

	var calls int
	p, err := Run(context.Background(), Cached(countingModel(&calls, nil), store), emissions)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Len(t, p.Temperature, 2)
}

func TestCached_Passthrough(t *testing.T) {
	store, err := cache.NewFileStore(t.TempDir(), time.Hour)
	require.NoError(t, err)

	u := Unavailable{Reason: "off"}
	assert.Equal(t, u, Cached(u, store))

	var calls int
	assert.IsType(t, Func{}, Cached(countingModel(&calls, nil), nil))
}
