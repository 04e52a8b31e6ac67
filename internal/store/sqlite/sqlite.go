// Package sqlite provides a SQLite-backed store.DocumentStore built on gorm.
// All documents live in a single table keyed by (collection, id).
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/rshade/nutricount/internal/store"
)

// document is the row shape of the documents table.
type document struct {
	Collection string    `gorm:"primaryKey;size:64"`
	ID         string    `gorm:"primaryKey;size:128"`
	Body       []byte    `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for the document model.
func (document) TableName() string {
	return "documents"
}

// Config holds SQLite store configuration.
type Config struct {
	Path  string
	Debug bool
}

// Store is a DocumentStore backed by a SQLite database.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ store.DocumentStore = (*Store)(nil)

// Open opens (creating if needed) the database at cfg.Path and migrates the schema.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path cannot be empty")
	}
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; one connection keeps :memory: databases shared.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err = db.AutoMigrate(&document{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// GetAll returns every document of a collection ordered by id.
func (s *Store) GetAll(ctx context.Context, collection string) ([]store.Record, error) {
	var rows []document
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Find(&rows).Error
	if err != nil {
		return nil, store.Wrap("list", collection, "", err)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	out := make([]store.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, store.Record{ID: r.ID, Data: r.Body})
	}
	return out, nil
}

// GetOne returns a single document.
func (s *Store) GetOne(ctx context.Context, collection, id string) (store.Record, bool, error) {
	if collection == "" || id == "" {
		return store.Record{}, false, store.Wrap("get", collection, id, store.ErrInvalidKey)
	}

	var row document
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.Record{}, false, nil
	}
	if err != nil {
		return store.Record{}, false, store.Wrap("get", collection, id, err)
	}
	return store.Record{ID: row.ID, Data: row.Body}, true, nil
}

// Upsert replaces a document.
func (s *Store) Upsert(ctx context.Context, collection, id string, data any) error {
	if collection == "" || id == "" {
		return store.Wrap("upsert", collection, id, store.ErrInvalidKey)
	}
	body, err := store.Encode(data)
	if err != nil {
		return store.Wrap("upsert", collection, id, err)
	}

	row := document{Collection: collection, ID: id, Body: body, UpdatedAt: s.now()}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
		}).
		Create(&row).Error
	return store.Wrap("upsert", collection, id, err)
}

// Update merges fields into an existing document inside a transaction.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if collection == "" || id == "" {
		return store.Wrap("update", collection, id, store.ErrInvalidKey)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row document
		if err := tx.Where("collection = ? AND id = ?", collection, id).Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrNotFound
			}
			return err
		}
		merged, err := store.MergeFields(row.Body, fields)
		if err != nil {
			return err
		}
		return tx.Model(&document{}).
			Where("collection = ? AND id = ?", collection, id).
			Updates(map[string]any{"body": []byte(merged), "updated_at": s.now()}).Error
	})
	return store.Wrap("update", collection, id, err)
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if collection == "" || id == "" {
		return store.Wrap("delete", collection, id, store.ErrInvalidKey)
	}
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&document{}).Error
	return store.Wrap("delete", collection, id, err)
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
