package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/nutricount/internal/store"
	"github.com/rshade/nutricount/internal/store/storetest"
)

func TestMemoryStore_Contract(t *testing.T) {
	storetest.RunContract(t, func(_ *testing.T) store.DocumentStore {
		return store.NewMemoryStore()
	})
}

func TestFileStore_Contract(t *testing.T) {
	storetest.RunContract(t, func(t *testing.T) store.DocumentStore {
		s, err := store.NewFileStore(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s1, err := store.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Upsert(ctx, "foods", "rice", map[string]any{"name": "rice", "kcal": 130}))

	s2, err := store.NewFileStore(dir)
	require.NoError(t, err)
	rec, ok, err := s2.GetOne(ctx, "foods", "rice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"rice","kcal":130}`, string(rec.Data))

	_, statErr := os.Stat(filepath.Join(dir, "foods.json.lock"))
	assert.True(t, os.IsNotExist(statErr), "lock must be released")
}

func TestFileStore_CorruptedFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foods.json"), []byte("{invalid json"), 0o600))

	s, err := store.NewFileStore(dir)
	require.NoError(t, err)

	_, err = s.GetAll(ctx, "foods")
	require.Error(t, err)
	assert.True(t, store.IsPersistence(err))
	assert.ErrorIs(t, err, store.ErrStoreCorrupted)
}

func TestFileStore_FormatVersion(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"legacy 1.0.0 is readable", `{"format_version":"1.0.0","documents":{"a":{"name":"x"}}}`, false},
		{"future major is rejected", `{"format_version":"2.0.0","documents":{}}`, true},
		{"missing version is rejected", `{"documents":{}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "foods.json"), []byte(tt.content), 0o600))
			s, err := store.NewFileStore(dir)
			require.NoError(t, err)

			_, err = s.GetAll(ctx, "foods")
			if tt.wantErr {
				assert.ErrorIs(t, err, store.ErrStoreCorrupted)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewFileStore_EmptyDirectory(t *testing.T) {
	_, err := store.NewFileStore("")
	require.Error(t, err)
}

func TestWrap(t *testing.T) {
	assert.NoError(t, store.Wrap("get", "foods", "a", nil))

	base := errors.New("disk full")
	err := store.Wrap("upsert", "foods", "a", base)
	require.Error(t, err)
	assert.True(t, store.IsPersistence(err))
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "foods/a")

	assert.Same(t, err, store.Wrap("other", "x", "y", err), "already wrapped errors pass through")
	assert.False(t, store.IsPersistence(base))
}

func TestMergeFields(t *testing.T) {
	merged, err := store.MergeFields([]byte(`{"a":1,"b":"x"}`), map[string]any{"b": "y", "c": true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"b":"y","c":true}`, string(merged))

	_, err = store.MergeFields([]byte(`[1,2]`), map[string]any{"a": 1})
	assert.ErrorIs(t, err, store.ErrStoreCorrupted)
}
