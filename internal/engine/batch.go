package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Veraticus/bucketeer/internal/common"
	"github.com/Veraticus/bucketeer/internal/llm"
	"github.com/Veraticus/bucketeer/internal/model"
)

// Runner fans an Evaluator out over every record of a batch.
type Runner struct {
	writer    ResultWriter
	evaluator *Evaluator
	logger    *slog.Logger
	progress  atomic.Pointer[Progress]
	cfg       Config
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithWriter persists each success as soon as it completes.
func WithWriter(w ResultWriter) RunnerOption {
	return func(r *Runner) { r.writer = w }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithStateObserver registers a callback for every evaluator state transition.
func WithStateObserver(fn StateFunc) RunnerOption {
	return func(r *Runner) { r.evaluator.onState = fn }
}

// NewRunner creates a batch runner for the given completion client.
func NewRunner(client llm.Client, cfg Config, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:       cfg,
		logger:    slog.Default(),
		evaluator: NewEvaluator(client, cfg, nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.evaluator.logger = r.logger
	return r
}

// Progress returns the progress of the current or most recent run.
func (r *Runner) Progress() float64 {
	if p := r.progress.Load(); p != nil {
		return p.Value()
	}
	return 0
}

// settled is the terminal state of one record.
type settled struct {
	result  *model.EvaluationResult
	failure *model.RecordFailure
}

// Run evaluates all records concurrently and returns once every record has
// settled. Configuration problems are returned before anything starts; every
// other failure is confined to its record and reported in the outcome.
func (r *Runner) Run(ctx context.Context, records []model.Record, buckets model.BucketContext, progressFn ProgressFunc) (*model.BatchOutcome, error) {
	if err := r.cfg.Validate(buckets); err != nil {
		return nil, err
	}

	startTime := time.Now()
	units := len(r.cfg.Outputs)
	progress := newProgress(len(records)*units, progressFn)
	r.progress.Store(progress)

	r.logger.Info("Starting batch evaluation",
		"records", len(records),
		"outputs", units,
		"grammar", string(r.cfg.Grammar.Kind))

	resultsChan := make(chan settled, len(records))

	var wg sync.WaitGroup
	wg.Add(len(records))
	for _, record := range records {
		go func(record model.Record) {
			defer wg.Done()
			resultsChan <- r.runRecord(ctx, record, buckets, progress, units)
		}(record)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	outcome := &model.BatchOutcome{
		Successes: make([]model.EvaluationResult, 0, len(records)),
	}
	for s := range resultsChan {
		if s.failure != nil {
			outcome.Failures = append(outcome.Failures, *s.failure)
			continue
		}
		outcome.Successes = append(outcome.Successes, *s.result)
	}

	progress.close()
	outcome.SortByRecordID()

	r.logger.Info("Batch evaluation complete",
		"succeeded", len(outcome.Successes),
		"failed", len(outcome.Failures),
		"duration", time.Since(startTime))

	return outcome, nil
}

// runRecord evaluates and optionally writes one record. Whatever happens, the
// record's full share of progress is credited before it returns.
func (r *Runner) runRecord(ctx context.Context, record model.Record, buckets model.BucketContext, progress *Progress, units int) (s settled) {
	var credited atomic.Int64

	fail := func(err error) settled {
		r.logger.Error("Failed to evaluate record",
			"record_id", record.ID,
			"error", err)
		return settled{failure: &model.RecordFailure{RecordID: record.ID, Err: err}}
	}

	defer func() {
		if rec := recover(); rec != nil {
			s = fail(fmt.Errorf("%w: panic: %v", common.ErrEvaluationFailed, rec))
		}
		progress.add(units - int(credited.Load()))
	}()

	if err := record.Validate(); err != nil {
		return fail(err)
	}

	result, err := r.evaluator.Evaluate(ctx, record, buckets, func() {
		credited.Add(1)
		progress.add(1)
	})
	if err != nil {
		return fail(err)
	}

	if r.writer != nil {
		if err := r.write(ctx, result); err != nil {
			return fail(err)
		}
	}

	r.logger.Debug("record evaluated", "record_id", record.ID)
	return settled{result: &result}
}

// write persists one result with its own retry budget. The model is never
// consulted again for a failed write.
func (r *Runner) write(ctx context.Context, result model.EvaluationResult) error {
	opts := r.cfg.WriteRetry
	opts.OnFailedAttempt = func(attempt int, err error) {
		r.logger.Warn("Failed to write evaluation, retrying",
			"attempt", attempt,
			"record_id", result.RecordID,
			"error", err)
	}

	err := common.WithRetry(ctx, func(int) error {
		return r.writer.CreateEvaluation(ctx, result)
	}, opts)
	if err != nil {
		return &common.WriteError{RecordID: result.RecordID, Err: err}
	}
	return nil
}
