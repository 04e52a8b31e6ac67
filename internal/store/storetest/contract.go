// Package storetest provides a behavioural test suite shared by every
// store.DocumentStore backend, and a store double that fails on demand.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/nutricount/internal/store"
)

type doc struct {
	Name string  `json:"name"`
	Kcal float64 `json:"kcal"`
	Date string  `json:"date,omitempty"`
}

// RunContract exercises the DocumentStore contract against stores created by newStore.
func RunContract(t *testing.T, newStore func(t *testing.T) store.DocumentStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing document is absent, not an error", func(t *testing.T) {
		s := newStore(t)
		_, ok, err := s.GetOne(ctx, "foods", "nope")
		require.NoError(t, err)
		assert.False(t, ok)

		all, err := s.GetAll(ctx, "foods")
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("upsert overwrites the full document", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, "foods", "a", doc{Name: "rice", Kcal: 130, Date: "x"}))
		require.NoError(t, s.Upsert(ctx, "foods", "a", doc{Name: "rice", Kcal: 131}))

		got, ok, err := store.Get[doc](ctx, s, "foods", "a")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, doc{Name: "rice", Kcal: 131}, got)
	})

	t.Run("get all returns every document of the collection only", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, "foods", "a", doc{Name: "rice"}))
		require.NoError(t, s.Upsert(ctx, "foods", "b", doc{Name: "oats"}))
		require.NoError(t, s.Upsert(ctx, "tuppers", "c", doc{Name: "stew"}))

		all, err := store.List[doc](ctx, s, "foods", nil)
		require.NoError(t, err)
		names := []string{}
		for _, d := range all {
			names = append(names, d.Name)
		}
		assert.ElementsMatch(t, []string{"rice", "oats"}, names)
	})

	t.Run("update replaces only named fields", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, "historicalDays", "d1", doc{Name: "day", Kcal: 1800, Date: "2025-01-01"}))
		require.NoError(t, s.Update(ctx, "historicalDays", "d1", map[string]any{"date": "2025-01-02"}))

		got, ok, err := store.Get[doc](ctx, s, "historicalDays", "d1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, doc{Name: "day", Kcal: 1800, Date: "2025-01-02"}, got)
	})

	t.Run("update of a missing document is a persistence error", func(t *testing.T) {
		s := newStore(t)
		err := s.Update(ctx, "historicalDays", "ghost", map[string]any{"date": "2025-01-02"})
		require.Error(t, err)
		assert.True(t, store.IsPersistence(err))
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, "foods", "a", doc{Name: "rice"}))
		require.NoError(t, s.Delete(ctx, "foods", "a"))
		require.NoError(t, s.Delete(ctx, "foods", "a"))

		_, ok, err := s.GetOne(ctx, "foods", "a")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("raw JSON documents pass through", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Upsert(ctx, "foods", "raw", json.RawMessage(`{"name":"egg","kcal":155}`)))
		got, ok, err := store.Get[doc](ctx, s, "foods", "raw")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "egg", got.Name)
	})

	t.Run("empty id is rejected", func(t *testing.T) {
		s := newStore(t)
		err := s.Upsert(ctx, "foods", "", doc{})
		require.Error(t, err)
		assert.ErrorIs(t, err, store.ErrInvalidKey)
	})
}

// ErrInjected is returned by FailingStore when failure is enabled.
var ErrInjected = errors.New("injected store failure")

// FailingStore wraps a DocumentStore and fails writes (and optionally reads)
// while Fail is set.
type FailingStore struct {
	store.DocumentStore
	FailWrites bool
	FailReads  bool
	Writes     int
}

// NewFailingStore wraps a fresh memory store.
func NewFailingStore() *FailingStore {
	return &FailingStore{DocumentStore: store.NewMemoryStore()}
}

func (f *FailingStore) GetAll(ctx context.Context, collection string) ([]store.Record, error) {
	if f.FailReads {
		return nil, store.Wrap("list", collection, "", ErrInjected)
	}
	return f.DocumentStore.GetAll(ctx, collection)
}

func (f *FailingStore) GetOne(ctx context.Context, collection, id string) (store.Record, bool, error) {
	if f.FailReads {
		return store.Record{}, false, store.Wrap("get", collection, id, ErrInjected)
	}
	return f.DocumentStore.GetOne(ctx, collection, id)
}

func (f *FailingStore) Upsert(ctx context.Context, collection, id string, data any) error {
	if f.FailWrites {
		return store.Wrap("upsert", collection, id, ErrInjected)
	}
	f.Writes++
	return f.DocumentStore.Upsert(ctx, collection, id, data)
}

func (f *FailingStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if f.FailWrites {
		return store.Wrap("update", collection, id, ErrInjected)
	}
	f.Writes++
	return f.DocumentStore.Update(ctx, collection, id, fields)
}

func (f *FailingStore) Delete(ctx context.Context, collection, id string) error {
	if f.FailWrites {
		return store.Wrap("delete", collection, id, ErrInjected)
	}
	f.Writes++
	return f.DocumentStore.Delete(ctx, collection, id)
}
