// Package store defines the document store contract used by nutricount and
// provides in-memory and JSON-file backends.
//
// A document store holds JSON documents keyed by collection name and document
// id. Upsert is a full overwrite; Update replaces only the named top-level
// fields of an existing document.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Common store errors.
var (
	// ErrNotFound indicates a document targeted by Update does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidKey indicates an empty collection name or document id.
	ErrInvalidKey = errors.New("collection and id cannot be empty")
	// ErrStoreCorrupted indicates persisted data exists but cannot be decoded.
	ErrStoreCorrupted = errors.New("store data corrupted")
)

// Record is a stored document.
type Record struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// DocumentStore is the persistence contract of the system.
type DocumentStore interface {
	// GetAll returns every document of a collection in unspecified order.
	GetAll(ctx context.Context, collection string) ([]Record, error)
	// GetOne returns a document, or false when it does not exist.
	GetOne(ctx context.Context, collection, id string) (Record, bool, error)
	// Upsert stores data as the full document, replacing any previous one.
	Upsert(ctx context.Context, collection, id string, data any) error
	// Update replaces the given top-level fields of an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// Close releases backend resources.
	Close() error
}

// PersistenceError wraps any failure reading from or writing to the store.
type PersistenceError struct {
	Op         string
	Collection string
	ID         string
	Err        error
}

func (e *PersistenceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("persistence %s %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
	}
	return fmt.Sprintf("persistence %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Wrap returns err as a PersistenceError. A nil err yields nil and an
// existing PersistenceError is returned unchanged.
func Wrap(op, collection, id string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Collection: collection, ID: id, Err: err}
}

// IsPersistence reports whether err is or wraps a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

func validateKey(op, collection, id string) error {
	if collection == "" || id == "" {
		return &PersistenceError{Op: op, Collection: collection, ID: id, Err: ErrInvalidKey}
	}
	return nil
}

// Get reads one document into a T.
func Get[T any](ctx context.Context, s DocumentStore, collection, id string) (T, bool, error) {
	var v T
	rec, ok, err := s.GetOne(ctx, collection, id)
	if err != nil || !ok {
		return v, false, Wrap("get", collection, id, err)
	}
	if err = json.Unmarshal(rec.Data, &v); err != nil {
		return v, false, Wrap("get", collection, id, fmt.Errorf("%w: %w", ErrStoreCorrupted, err))
	}
	return v, true, nil
}

// List reads every document of a collection, decoding each into a T.
// fill is called with the stored id so records that omit it in their body
// still carry it.
func List[T any](ctx context.Context, s DocumentStore, collection string, fill func(*T, string)) ([]T, error) {
	recs, err := s.GetAll(ctx, collection)
	if err != nil {
		return nil, Wrap("list", collection, "", err)
	}
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		var v T
		if err = json.Unmarshal(rec.Data, &v); err != nil {
			return nil, Wrap("list", collection, rec.ID, fmt.Errorf("%w: %w", ErrStoreCorrupted, err))
		}
		if fill != nil {
			fill(&v, rec.ID)
		}
		out = append(out, v)
	}
	return out, nil
}

// Encode encodes a document body; json.RawMessage passes through.
func Encode(data any) (json.RawMessage, error) {
	if raw, ok := data.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return nil, errors.New("invalid JSON document")
		}
		return raw, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshaling document: %w", err)
	}
	return b, nil
}

// MergeFields applies fields onto the top level of a JSON object document.
func MergeFields(doc json.RawMessage, fields map[string]any) (json.RawMessage, error) {
	obj := make(map[string]json.RawMessage)
	if len(doc) > 0 {
		if err := json.Unmarshal(doc, &obj); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreCorrupted, err)
		}
	}
	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshaling field %q: %w", k, err)
		}
		obj[k] = b
	}
	return json.Marshal(obj)
}
