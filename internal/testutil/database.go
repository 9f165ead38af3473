// Package testutil provides test helpers backed by a real in-memory store.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/bucketeer/internal/model"
	"github.com/Veraticus/bucketeer/internal/storage"
)

// TestDB is a migrated in-memory database for a single test.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database. Migrations run
// automatically and the database is closed when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t).
//		WithBuckets(model.Bucket{Name: "Engineering"}).
//		WithRecords(model.Record{ID: "rec1", Fields: map[string]string{"name": "Ada"}})
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// WithRecords seeds records and returns the database for chaining.
func (db *TestDB) WithRecords(records ...model.Record) *TestDB {
	db.t.Helper()
	if err := db.Storage.SaveRecords(context.Background(), records); err != nil {
		db.t.Fatalf("failed to seed records: %v", err)
	}
	return db
}

// WithBuckets seeds buckets in the given order and returns the database for chaining.
func (db *TestDB) WithBuckets(buckets ...model.Bucket) *TestDB {
	db.t.Helper()
	if err := db.Storage.SaveBuckets(context.Background(), buckets); err != nil {
		db.t.Fatalf("failed to seed buckets: %v", err)
	}
	return db
}

// Evaluations returns every stored evaluation.
func (db *TestDB) Evaluations() []model.EvaluationResult {
	db.t.Helper()
	results, err := db.Storage.GetEvaluations(context.Background(), "")
	if err != nil {
		db.t.Fatalf("failed to read evaluations: %v", err)
	}
	return results
}
