// Package storage provides the data persistence layer for records, buckets and evaluations.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/bucketeer/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidRecord     = errors.New("invalid record")
	ErrInvalidBucket     = errors.New("invalid bucket")
	ErrInvalidEvaluation = errors.New("invalid evaluation")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRecords validates a slice of records.
func validateRecords(records []model.Record) error {
	if records == nil {
		return fmt.Errorf("%w: records", ErrNilParameter)
	}

	seen := make(map[string]int, len(records))
	for i, record := range records {
		if err := record.Validate(); err != nil {
			return fmt.Errorf("%w at index %d: %w", ErrInvalidRecord, i, err)
		}
		if prev, ok := seen[record.ID]; ok {
			return fmt.Errorf("%w at index %d: duplicate ID %q (first at index %d)", ErrInvalidRecord, i, record.ID, prev)
		}
		seen[record.ID] = i
	}
	return nil
}

// validateBuckets validates a slice of buckets.
func validateBuckets(buckets []model.Bucket) error {
	if buckets == nil {
		return fmt.Errorf("%w: buckets", ErrNilParameter)
	}

	seen := make(map[string]bool, len(buckets))
	for i, bucket := range buckets {
		if strings.TrimSpace(bucket.Name) == "" {
			return fmt.Errorf("%w at index %d: name is required", ErrInvalidBucket, i)
		}
		if seen[bucket.Name] {
			return fmt.Errorf("%w at index %d: duplicate name %q", ErrInvalidBucket, i, bucket.Name)
		}
		seen[bucket.Name] = true
	}
	return nil
}

// validateEvaluation validates a result before it is persisted.
func validateEvaluation(result model.EvaluationResult) error {
	if strings.TrimSpace(result.RecordID) == "" {
		return fmt.Errorf("%w: record ID is required", ErrInvalidEvaluation)
	}
	if len(result.Values) == 0 {
		return fmt.Errorf("%w: no values for record %s", ErrInvalidEvaluation, result.RecordID)
	}
	return nil
}
