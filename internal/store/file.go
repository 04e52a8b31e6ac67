package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"
)

// FileFormatVersion is the format version written into every collection file.
const FileFormatVersion = "1.1.0"

// supportedFormats is the range of collection file versions this build reads.
// 1.0.0 files predate item keys; the ledger backfills keys on load.
const supportedFormats = "^1.0.0"

// collectionFileData is the serialized form of one collection.
type collectionFileData struct {
	FormatVersion string                     `json:"format_version"`
	Documents     map[string]json.RawMessage `json:"documents"`
}

// FileStore persists each collection as a JSON file in a directory.
// Every operation reads the file, applies the change and writes it back
// atomically under a cross-process lockfile.
type FileStore struct {
	mu        sync.Mutex
	directory string
	formats   *semver.Constraints
}

// NewFileStore creates a file store rooted at directory, creating it if needed.
func NewFileStore(directory string) (*FileStore, error) {
	if directory == "" {
		return nil, errors.New("store directory cannot be empty")
	}
	if err := os.MkdirAll(directory, 0o750); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	formats, err := semver.NewConstraint(supportedFormats)
	if err != nil {
		return nil, fmt.Errorf("parsing supported formats: %w", err)
	}
	return &FileStore{directory: directory, formats: formats}, nil
}

// Directory returns the store directory.
func (s *FileStore) Directory() string {
	return s.directory
}

func (s *FileStore) collectionPath(collection string) string {
	return filepath.Join(s.directory, collection+".json")
}

// GetAll returns the documents of a collection ordered by id.
func (s *FileStore) GetAll(_ context.Context, collection string) ([]Record, error) {
	if collection == "" {
		return nil, &PersistenceError{Op: "list", Err: ErrInvalidKey}
	}
	var out []Record
	err := s.withCollection(collection, false, func(docs map[string]json.RawMessage) error {
		ids := make([]string, 0, len(docs))
		for id := range docs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out = make([]Record, 0, len(ids))
		for _, id := range ids {
			out = append(out, Record{ID: id, Data: docs[id]})
		}
		return nil
	})
	if err != nil {
		return nil, Wrap("list", collection, "", err)
	}
	return out, nil
}

// GetOne returns a single document.
func (s *FileStore) GetOne(_ context.Context, collection, id string) (Record, bool, error) {
	if err := validateKey("get", collection, id); err != nil {
		return Record{}, false, err
	}
	var (
		rec   Record
		found bool
	)
	err := s.withCollection(collection, false, func(docs map[string]json.RawMessage) error {
		data, ok := docs[id]
		if ok {
			rec, found = Record{ID: id, Data: data}, true
		}
		return nil
	})
	if err != nil {
		return Record{}, false, Wrap("get", collection, id, err)
	}
	return rec, found, nil
}

// Upsert replaces a document.
func (s *FileStore) Upsert(_ context.Context, collection, id string, data any) error {
	if err := validateKey("upsert", collection, id); err != nil {
		return err
	}
	raw, err := Encode(data)
	if err != nil {
		return Wrap("upsert", collection, id, err)
	}
	err = s.withCollection(collection, true, func(docs map[string]json.RawMessage) error {
		docs[id] = raw
		return nil
	})
	return Wrap("upsert", collection, id, err)
}

// Update merges fields into an existing document.
func (s *FileStore) Update(_ context.Context, collection, id string, fields map[string]any) error {
	if err := validateKey("update", collection, id); err != nil {
		return err
	}
	err := s.withCollection(collection, true, func(docs map[string]json.RawMessage) error {
		data, ok := docs[id]
		if !ok {
			return ErrNotFound
		}
		merged, mergeErr := MergeFields(data, fields)
		if mergeErr != nil {
			return mergeErr
		}
		docs[id] = merged
		return nil
	})
	return Wrap("update", collection, id, err)
}

// Delete removes a document.
func (s *FileStore) Delete(_ context.Context, collection, id string) error {
	if err := validateKey("delete", collection, id); err != nil {
		return err
	}
	err := s.withCollection(collection, true, func(docs map[string]json.RawMessage) error {
		delete(docs, id)
		return nil
	})
	return Wrap("delete", collection, id, err)
}

// Close is a no-op; files are not held open between operations.
func (s *FileStore) Close() error { return nil }

// withCollection loads a collection under the lock, runs fn and, when write
// is true and fn succeeds, saves the collection back.
func (s *FileStore) withCollection(collection string, write bool, fn func(map[string]json.RawMessage) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.collectionPath(collection)
	lock := newLockFile(path + ".lock")
	if err := lock.acquire(); err != nil {
		return fmt.Errorf("acquiring file lock: %w", err)
	}
	defer lock.release()

	docs, err := s.load(path)
	if err != nil {
		return err
	}
	if err = fn(docs); err != nil {
		return err
	}
	if !write {
		return nil
	}
	return save(path, docs)
}

// load reads a collection file. A missing file is an empty collection.
func (s *FileStore) load(path string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]json.RawMessage), nil
		}
		return nil, fmt.Errorf("reading collection file: %w", err)
	}

	var fileData collectionFileData
	if err = json.Unmarshal(data, &fileData); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreCorrupted, err)
	}

	v, err := semver.NewVersion(fileData.FormatVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid format version %q", ErrStoreCorrupted, fileData.FormatVersion)
	}
	if !s.formats.Check(v) {
		return nil, fmt.Errorf("%w: unsupported format version %s (supported %s)",
			ErrStoreCorrupted, v, supportedFormats)
	}

	if fileData.Documents == nil {
		fileData.Documents = make(map[string]json.RawMessage)
	}
	return fileData.Documents, nil
}

// save writes a collection file atomically via a temp file.
func save(path string, docs map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(collectionFileData{
		FormatVersion: FileFormatVersion,
		Documents:     docs,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling collection: %w", err)
	}

	tmpPath := path + ".tmp"
	if err = os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing collection temp file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming collection temp file: %w", err)
	}
	return nil
}
