package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/bucketeer/internal/common"
	"github.com/Veraticus/bucketeer/internal/llm"
	"github.com/Veraticus/bucketeer/internal/model"
)

// State is the lifecycle stage of one output evaluation.
type State int

// Evaluation states. Succeeded and Failed are terminal.
const (
	StatePending State = iota
	StateBuilding
	StateCalling
	StateParsing
	StateRetrying
	StateSucceeded
	StateFailed
)

var stateNames = [...]string{"pending", "building", "calling", "parsing", "retrying", "succeeded", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions can follow.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Evaluator runs build, call and parse for a record as one retryable unit per
// configured output.
type Evaluator struct {
	client  llm.Client
	logger  *slog.Logger
	onState StateFunc
	cfg     Config
}

// NewEvaluator creates an evaluator. A nil logger uses slog.Default().
func NewEvaluator(client llm.Client, cfg Config, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{client: client, cfg: cfg, logger: logger}
}

// outputResult is one successfully parsed output.
type outputResult struct {
	value      any
	transcript string
	rankings   model.BucketRankings
}

// Evaluate evaluates every configured output of the record. Outputs run
// concurrently; the first terminal failure cancels the others and fails the
// record. onOutputDone is called once per output that succeeds.
func (e *Evaluator) Evaluate(ctx context.Context, record model.Record, buckets model.BucketContext, onOutputDone func()) (model.EvaluationResult, error) {
	bucketText := buckets.Render()
	results := make([]outputResult, len(e.cfg.Outputs))

	g, gctx := errgroup.WithContext(ctx)
	for i, output := range e.cfg.Outputs {
		criteria := output.Criteria
		if strings.TrimSpace(criteria) == "" {
			criteria = bucketText
		}

		g.Go(func() error {
			res, err := e.evaluateOutput(gctx, record, output.Field, criteria)
			if err != nil {
				return err
			}
			results[i] = res
			if onOutputDone != nil {
				onOutputDone()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return model.EvaluationResult{}, err
	}

	return e.assemble(record, results), nil
}

// assemble combines output values into one result. Log sections follow the
// configured output order regardless of completion order.
func (e *Evaluator) assemble(record model.Record, results []outputResult) model.EvaluationResult {
	values := make(map[string]any, len(results)+5)
	sections := make([]string, 0, len(results))

	for i, output := range e.cfg.Outputs {
		values[output.Field] = results[i].value
		sections = append(sections, fmt.Sprintf("# %s\n\n%s", output.Field, results[i].transcript))
	}

	if e.cfg.LogsField != "" {
		values[e.cfg.LogsField] = strings.Join(sections, "\n\n")
	}

	if e.cfg.Grammar.Kind == llm.GrammarRankedList && len(results) > 0 {
		e.setChoice(values, results[0].rankings.Nth(0), e.cfg.FirstChoiceField, e.cfg.FirstChoiceConfidenceField)
		e.setChoice(values, results[0].rankings.Nth(1), e.cfg.SecondChoiceField, e.cfg.SecondChoiceConfidenceField)
	}

	return model.EvaluationResult{RecordID: record.ID, Values: values}
}

func (e *Evaluator) setChoice(values map[string]any, choice *model.BucketRanking, nameField, confidenceField string) {
	if choice == nil {
		return
	}
	if nameField != "" {
		values[nameField] = choice.Bucket
	}
	if confidenceField != "" {
		values[confidenceField] = choice.Confidence
	}
}

func (e *Evaluator) evaluateOutput(ctx context.Context, record model.Record, field, criteria string) (outputResult, error) {
	e.transition(record.ID, field, StatePending)

	opts := e.cfg.Retry
	opts.OnFailedAttempt = func(attempt int, err error) {
		e.transition(record.ID, field, StateRetrying)
		e.logger.Warn("Evaluation attempt failed, retrying",
			"attempt", attempt,
			"record_id", record.ID,
			"field", field,
			"error", err)
	}

	var result outputResult
	err := common.WithRetry(ctx, func(int) error {
		res, attemptErr := e.attempt(ctx, record, field, criteria)
		if attemptErr != nil {
			return attemptErr
		}
		result = res
		return nil
	}, opts)
	if err != nil {
		e.transition(record.ID, field, StateFailed)
		return outputResult{}, fmt.Errorf("evaluating %s: %w", field, err)
	}

	e.transition(record.ID, field, StateSucceeded)
	return result, nil
}

// attempt is one full build, call and parse cycle. A panic anywhere in the
// cycle becomes an ordinary attempt failure.
func (e *Evaluator) attempt(ctx context.Context, record model.Record, field, criteria string) (result outputResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", common.ErrEvaluationFailed, r)
		}
	}()

	e.transition(record.ID, field, StateBuilding)
	conversation := llm.BuildConversation(record, e.cfg.Inputs, criteria, e.cfg.Grammar)

	e.transition(record.ID, field, StateCalling)
	reply, err := e.client.Complete(ctx, conversation, e.cfg.maxTokens())
	if err != nil {
		return outputResult{}, err
	}

	e.transition(record.ID, field, StateParsing)
	parsed, err := e.cfg.Grammar.Parse(reply)
	if err != nil {
		return outputResult{}, err
	}

	result = outputResult{
		value:      parsed.Value(),
		transcript: conversation.WithReply(reply).Transcript(),
		rankings:   parsed.Rankings,
	}

	if parsed.Kind == llm.GrammarRankedList && e.cfg.MinConfidence > 0 {
		kept := parsed.Rankings.AboveThreshold(e.cfg.MinConfidence)
		if len(kept) == 0 {
			return outputResult{}, &common.ParseError{
				Grammar: e.cfg.Grammar.Keyword,
				Reason:  fmt.Sprintf("no bucket rankings at or above %d%%", e.cfg.MinConfidence),
				Text:    reply,
			}
		}
		if len(kept) < len(parsed.Rankings) {
			result.value = kept.Render()
		}
		result.rankings = kept
	}

	return result, nil
}

func (e *Evaluator) transition(recordID, field string, state State) {
	e.logger.Debug("evaluation state", "record_id", recordID, "field", field, "state", state.String())
	if e.onState != nil {
		e.onState(recordID, field, state)
	}
}
