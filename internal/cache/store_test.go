package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T, ttl time.Duration) (*FileStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	s, err := NewFileStore(filepath.Join(t.TempDir(), "cache"), ttl, WithClock(clock.now))
	require.NoError(t, err)
	return s, clock
}

func TestNewFileStore(t *testing.T) {
	_, err := NewFileStore("", time.Hour)
	require.Error(t, err)

	_, err = NewFileStore(t.TempDir(), -time.Second)
	require.Error(t, err)

	s, err := NewFileStore(filepath.Join(t.TempDir(), "a", "b"), time.Hour)
	require.NoError(t, err)
	assert.DirExists(t, s.Dir())
	assert.Equal(t, time.Hour, s.TTL())
}

func TestFileStore_SetGet(t *testing.T) {
	s, clock := newTestStore(t, time.Hour)

	_, err := s.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set("k1", json.RawMessage(`{"temperature":[0.1]}`)))
	entry, err := s.Get("k1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"temperature":[0.1]}`, string(entry.Data))
	assert.Equal(t, "k1", entry.Key)

	clock.advance(30 * time.Minute)
	assert.Equal(t, 30*time.Minute, entry.Age(clock.now()))
	_, err = s.Get("k1")
	require.NoError(t, err)

	clock.advance(31 * time.Minute)
	_, err = s.Get("k1")
	require.ErrorIs(t, err, ErrExpired)
	_, err = s.Get("k1")
	require.ErrorIs(t, err, ErrNotFound, "expired entries are removed on read")
}

func TestFileStore_NoTTL(t *testing.T) {
	s, clock := newTestStore(t, 0)
	require.NoError(t, s.Set("k", json.RawMessage(`1`)))
	clock.advance(24 * 365 * time.Hour)
	_, err := s.Get("k")
	require.NoError(t, err)
}

func TestFileStore_InvalidKey(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)
	_, err := s.Get("")
	require.ErrorIs(t, err, ErrInvalidKey)
	require.ErrorIs(t, s.Set("", json.RawMessage(`1`)), ErrInvalidKey)
	require.ErrorIs(t, s.Delete(""), ErrInvalidKey)
}

func TestFileStore_KeySanitized(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)
	require.NoError(t, s.Set("a/b:c", json.RawMessage(`1`)))
	assert.FileExists(t, filepath.Join(s.Dir(), "a_b_c.json"))
	_, err := s.Get("a/b:c")
	require.NoError(t, err)
}

func TestFileStore_Maintenance(t *testing.T) {
	s, clock := newTestStore(t, time.Hour)
	require.NoError(t, s.Set("old", json.RawMessage(`1`)))
	clock.advance(2 * time.Hour)
	require.NoError(t, s.Set("new", json.RawMessage(`2`)))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "junk.json"), []byte("{"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0o600))

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, st.Entries)
	assert.Equal(t, 2, st.Expired)
	assert.Positive(t, st.Bytes)

	removed, err := s.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	require.NoError(t, s.Delete("new"))
	require.NoError(t, s.Delete("new"))

	require.NoError(t, s.Set("a", json.RawMessage(`1`)))
	require.NoError(t, s.Set("b", json.RawMessage(`1`)))
	removed, err = s.Clear()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.FileExists(t, filepath.Join(s.Dir(), "notes.txt"))
}

func TestEntry_JSON(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		ttl  time.Duration
	}{
		{name: "with expiry", ttl: time.Hour},
		{name: "without expiry", ttl: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEntry("k", json.RawMessage(`[1,2]`), tt.ttl, now)
			data, err := json.Marshal(e)
			require.NoError(t, err)

			var got Entry
			require.NoError(t, json.Unmarshal(data, &got))
			assert.True(t, e.CreatedAt.Equal(got.CreatedAt))
			assert.True(t, e.ExpiresAt.Equal(got.ExpiresAt))
			assert.Equal(t, tt.ttl == 0, got.ExpiresAt.IsZero())
		})
	}
}

func TestKey(t *testing.T) {
	a := Key("fair", []float64{1, 2, 3})
	assert.Len(t, a, 64)
	assert.Equal(t, a, Key("fair", []float64{1, 2, 3}))
	assert.NotEqual(t, a, Key("fair", []float64{1, 2, 3.0000000001}))
	assert.NotEqual(t, a, Key("other", []float64{1, 2, 3}))
	assert.NotEqual(t, Key("ab", nil), Key("a", []float64{}), "namespace is delimited")
}
