package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Veraticus/bucketeer/internal/model"
)

// SaveRecords inserts or replaces records by ID.
func (s *SQLiteStorage) SaveRecords(ctx context.Context, records []model.Record) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecords(records); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO records (id, fields) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET
				fields = excluded.fields,
				updated_at = CURRENT_TIMESTAMP`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, record := range records {
			fields := record.Fields
			if fields == nil {
				fields = map[string]string{}
			}
			encoded, err := json.Marshal(fields)
			if err != nil {
				return fmt.Errorf("failed to encode fields for record %s: %w", record.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, record.ID, string(encoded)); err != nil {
				return fmt.Errorf("failed to save record %s: %w", record.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Debug("saved records", "count", len(records))
	return nil
}

// GetRecords returns all records ordered by ID. When fields is non-empty each
// record is reduced to those fields.
func (s *SQLiteStorage) GetRecords(ctx context.Context, fields []string) ([]model.Record, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, fields FROM records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.Record
	for rows.Next() {
		var (
			id      string
			encoded string
		)
		if err := rows.Scan(&id, &encoded); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		var all map[string]string
		if err := json.Unmarshal([]byte(encoded), &all); err != nil {
			return nil, fmt.Errorf("failed to decode fields for record %s: %w", id, err)
		}

		records = append(records, model.Record{ID: id, Fields: selectFields(all, fields)})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	slog.Debug("retrieved records", "count", len(records))
	return records, nil
}

func selectFields(all map[string]string, fields []string) map[string]string {
	if len(fields) == 0 {
		return all
	}
	selected := make(map[string]string, len(fields))
	for _, field := range fields {
		if value, ok := all[field]; ok {
			selected[field] = value
		}
	}
	return selected
}

// CountRecords returns the number of stored records.
func (s *SQLiteStorage) CountRecords(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}
