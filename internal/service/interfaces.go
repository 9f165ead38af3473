// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/bucketeer/internal/model"
)

// RecordStore defines the contract for the record store collaborator.
type RecordStore interface {
	// Record operations
	SaveRecords(ctx context.Context, records []model.Record) error
	GetRecords(ctx context.Context, fields []string) ([]model.Record, error)
	CountRecords(ctx context.Context) (int, error)

	// Bucket operations
	SaveBuckets(ctx context.Context, buckets []model.Bucket) error
	GetBuckets(ctx context.Context) ([]model.Bucket, error)

	// Evaluation operations
	CreateEvaluation(ctx context.Context, result model.EvaluationResult) error
	GetEvaluations(ctx context.Context, recordID string) ([]model.EvaluationResult, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	OnFailedAttempt func(attempt int, err error)
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	Multiplier      float64
	Jitter          bool
}

// WithDefaults fills zero values with the standard retry policy.
func (o RetryOptions) WithDefaults() RetryOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = 100 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.Multiplier < 1 {
		o.Multiplier = 2.0
	}
	return o
}
