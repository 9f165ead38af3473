package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Veraticus/bucketeer/internal/model"
)

// SaveBuckets inserts or updates buckets. The slice order becomes the
// display order returned by GetBuckets.
func (s *SQLiteStorage) SaveBuckets(ctx context.Context, buckets []model.Bucket) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBuckets(buckets); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for i, bucket := range buckets {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO buckets (name, description, position) VALUES (?, ?, ?)
				ON CONFLICT(name) DO UPDATE SET
					description = excluded.description,
					position = excluded.position`,
				bucket.Name, bucket.Description, i)
			if err != nil {
				return fmt.Errorf("failed to save bucket %q: %w", bucket.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Debug("saved buckets", "count", len(buckets))
	return nil
}

// GetBuckets returns all buckets in display order.
func (s *SQLiteStorage) GetBuckets(ctx context.Context) ([]model.Bucket, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name, description FROM buckets ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query buckets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var buckets []model.Bucket
	for rows.Next() {
		var bucket model.Bucket
		if err := rows.Scan(&bucket.Name, &bucket.Description); err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		buckets = append(buckets, bucket)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating buckets: %w", err)
	}

	slog.Debug("retrieved buckets", "count", len(buckets))
	return buckets, nil
}
