package engine

import (
	"context"

	"github.com/Veraticus/bucketeer/internal/model"
)

// ResultWriter persists one successful evaluation. service.RecordStore satisfies it.
type ResultWriter interface {
	CreateEvaluation(ctx context.Context, result model.EvaluationResult) error
}

// ProgressFunc receives the batch-wide progress in [0, 1]. Calls are
// sequential and the values never decrease.
type ProgressFunc func(progress float64)

// StateFunc observes evaluator state transitions. It may be called from many
// goroutines at once.
type StateFunc func(recordID, field string, state State)
