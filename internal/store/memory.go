package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a DocumentStore kept entirely in memory. Documents are
// copied on the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string][]byte)}
}

// GetAll returns the documents of a collection ordered by id.
func (s *MemoryStore) GetAll(_ context.Context, collection string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.docs[collection]
	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, Record{ID: id, Data: clone(coll[id])})
	}
	return out, nil
}

// GetOne returns a single document.
func (s *MemoryStore) GetOne(_ context.Context, collection, id string) (Record, bool, error) {
	if err := validateKey("get", collection, id); err != nil {
		return Record{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.docs[collection][id]
	if !ok {
		return Record{}, false, nil
	}
	return Record{ID: id, Data: clone(data)}, true, nil
}

// Upsert replaces a document.
func (s *MemoryStore) Upsert(_ context.Context, collection, id string, data any) error {
	if err := validateKey("upsert", collection, id); err != nil {
		return err
	}
	raw, err := Encode(data)
	if err != nil {
		return Wrap("upsert", collection, id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string][]byte)
	}
	s.docs[collection][id] = clone(raw)
	return nil
}

// Update merges fields into an existing document.
func (s *MemoryStore) Update(_ context.Context, collection, id string, fields map[string]any) error {
	if err := validateKey("update", collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.docs[collection][id]
	if !ok {
		return &PersistenceError{Op: "update", Collection: collection, ID: id, Err: ErrNotFound}
	}
	merged, err := MergeFields(data, fields)
	if err != nil {
		return Wrap("update", collection, id, err)
	}
	s.docs[collection][id] = merged
	return nil
}

// Delete removes a document.
func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	if err := validateKey("delete", collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs[collection], id)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
