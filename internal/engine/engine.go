// Package engine implements the batch evaluation pipeline: one evaluator per
// record, retried as a whole unit, fanned out by a Runner that aggregates
// progress and partitions the outcome.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/bucketeer/internal/common"
	"github.com/Veraticus/bucketeer/internal/llm"
	"github.com/Veraticus/bucketeer/internal/model"
	"github.com/Veraticus/bucketeer/internal/service"
)

// Output is one destination field and the criteria the record is judged on.
// An empty Criteria falls back to the run's bucket context.
type Output struct {
	Field    string
	Criteria string
}

// Config holds the evaluation settings for a run.
type Config struct {
	Grammar   llm.Grammar
	LogsField string

	// Optional ranked-list destinations for the best and runner-up buckets.
	FirstChoiceField            string
	FirstChoiceConfidenceField  string
	SecondChoiceField           string
	SecondChoiceConfidenceField string

	Inputs  []model.FieldMapping
	Outputs []Output

	Retry      service.RetryOptions
	WriteRetry service.RetryOptions

	MaxTokens     int
	MinConfidence int
}

// DefaultConfig returns the default retry policy and token budget.
func DefaultConfig() Config {
	return Config{
		Grammar:   llm.Grammar{Kind: llm.GrammarScore, Keyword: llm.DefaultScoreKeyword},
		MaxTokens: llm.DefaultMaxTokens,
		Retry: service.RetryOptions{
			MaxAttempts:  5,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
		WriteRetry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
	}
}

func (c Config) maxTokens() int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return llm.DefaultMaxTokens
}

// Validate rejects a run that cannot start. Every problem here is a
// *common.ConfigError and is reported before any record is evaluated.
func (c Config) Validate(buckets model.BucketContext) error {
	if len(c.Inputs) == 0 {
		return common.NewConfigError("inputs", "no input fields selected")
	}
	for i, input := range c.Inputs {
		if strings.TrimSpace(input.Field) == "" {
			return common.NewConfigError("inputs", fmt.Sprintf("input %d has no field name", i))
		}
	}

	if len(c.Outputs) == 0 {
		return common.NewConfigError("outputs", "no output field designated")
	}

	seen := make(map[string]bool, len(c.Outputs)+1)
	for i, output := range c.Outputs {
		if strings.TrimSpace(output.Field) == "" {
			return common.NewConfigError("outputs", fmt.Sprintf("output %d has no field name", i))
		}
		if seen[output.Field] {
			return common.NewConfigError("outputs", fmt.Sprintf("output field %q is used twice", output.Field))
		}
		seen[output.Field] = true

		if strings.TrimSpace(output.Criteria) == "" && buckets.IsEmpty() {
			return common.NewConfigError("buckets", "no buckets selected")
		}
	}

	if c.LogsField != "" && seen[c.LogsField] {
		return common.NewConfigError("logs_field", fmt.Sprintf("%q is already an output field", c.LogsField))
	}

	switch c.Grammar.Kind {
	case llm.GrammarRankedList:
		if buckets.IsEmpty() {
			return common.NewConfigError("buckets", "no buckets selected")
		}
		if len(c.Outputs) > 1 {
			return common.NewConfigError("outputs", "the ranked list grammar writes a single output field")
		}
	case llm.GrammarScore, "":
		if c.hasChoiceFields() {
			return common.NewConfigError("first_choice_field", "choice fields require the ranked list grammar")
		}
	default:
		return common.NewConfigError("grammar", fmt.Sprintf("unknown grammar %q", c.Grammar.Kind))
	}

	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		return common.NewConfigError("min_confidence", fmt.Sprintf("must be between 0 and 100, got %d", c.MinConfidence))
	}

	return nil
}

func (c Config) hasChoiceFields() bool {
	return c.FirstChoiceField != "" || c.FirstChoiceConfidenceField != "" ||
		c.SecondChoiceField != "" || c.SecondChoiceConfidenceField != ""
}
