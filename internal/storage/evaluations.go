package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/Veraticus/bucketeer/internal/model"
)

// CreateEvaluation appends one evaluation result. Writing the same result
// twice stores two rows.
func (s *SQLiteStorage) CreateEvaluation(ctx context.Context, result model.EvaluationResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEvaluation(result); err != nil {
		return err
	}

	encoded, err := json.Marshal(result.Values)
	if err != nil {
		return fmt.Errorf("failed to encode evaluation for record %s: %w", result.RecordID, err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluations (record_id, result) VALUES (?, ?)`,
		result.RecordID, string(encoded)); err != nil {
		return fmt.Errorf("failed to save evaluation for record %s: %w", result.RecordID, err)
	}
	return nil
}

// GetEvaluations returns stored evaluations, oldest first. An empty recordID
// returns evaluations for every record.
func (s *SQLiteStorage) GetEvaluations(ctx context.Context, recordID string) ([]model.EvaluationResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT record_id, result FROM evaluations`
	var args []any
	if recordID != "" {
		query += ` WHERE record_id = ?`
		args = append(args, recordID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []model.EvaluationResult
	for rows.Next() {
		var (
			result  model.EvaluationResult
			encoded string
		)
		if err := rows.Scan(&result.RecordID, &encoded); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}

		result.Values, err = decodeValues(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode evaluation for record %s: %w", result.RecordID, err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evaluations: %w", err)
	}

	return results, nil
}

// decodeValues restores whole numbers as int so scores round-trip unchanged.
func decodeValues(encoded string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(encoded)))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	for key, value := range raw {
		num, ok := value.(json.Number)
		if !ok {
			continue
		}
		if i, err := num.Int64(); err == nil {
			raw[key] = int(i)
			continue
		}
		f, err := num.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number for %s: %w", key, err)
		}
		raw[key] = f
	}
	return raw, nil
}
