package model

import (
	"fmt"
	"sort"
)

// EvaluationResult holds the structured output for one record, keyed by
// output field name. Values are int scores, ranking strings or transcripts.
type EvaluationResult struct {
	Values   map[string]any
	RecordID string
}

// RecordFailure is a record whose evaluation or write failed terminally.
type RecordFailure struct {
	Err      error
	RecordID string
}

// BatchOutcome partitions every input record of a run into successes and failures.
type BatchOutcome struct {
	Successes []EvaluationResult
	Failures  []RecordFailure
}

// Total returns the number of settled records.
func (o *BatchOutcome) Total() int {
	return len(o.Successes) + len(o.Failures)
}

// SortByRecordID orders both partitions by record ID so reports are stable.
func (o *BatchOutcome) SortByRecordID() {
	sort.Slice(o.Successes, func(i, j int) bool {
		return o.Successes[i].RecordID < o.Successes[j].RecordID
	})
	sort.Slice(o.Failures, func(i, j int) bool {
		return o.Failures[i].RecordID < o.Failures[j].RecordID
	})
}

// Summary returns the user-facing result line.
func (o *BatchOutcome) Summary() string {
	msg := fmt.Sprintf("Successfully created %d evaluation(s).", len(o.Successes))
	if len(o.Failures) > 0 {
		msg += fmt.Sprintf(" Failed %d times. See logs for failure details.", len(o.Failures))
	}
	return msg
}
