package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Veraticus/bucketeer/internal/common"
	"github.com/Veraticus/bucketeer/internal/llm"
	"github.com/Veraticus/bucketeer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// progressRecorder collects every value passed to the progress callback.
type progressRecorder struct {
	values []float64
	mu     sync.Mutex
}

func (p *progressRecorder) record(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, v)
}

func (p *progressRecorder) snapshot() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]float64, len(p.values))
	copy(out, p.values)
	return out
}

func assertMonotonic(t *testing.T, values []float64) {
	t.Helper()
	require.NotEmpty(t, values)
	assert.InDelta(t, 0.0, values[0], 0, "progress starts at zero")
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i], values[i-1], "progress decreased at step %d", i)
		assert.LessOrEqual(t, values[i], 1.0)
	}
	assert.InDelta(t, 1.0, values[len(values)-1], 1e-9)
}

// recordingWriter is a ResultWriter that can fail a given number of times per record.
type recordingWriter struct {
	failures map[string]int
	written  map[string]model.EvaluationResult
	attempts map[string]int
	mu       sync.Mutex
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{
		failures: make(map[string]int),
		written:  make(map[string]model.EvaluationResult),
		attempts: make(map[string]int),
	}
}

func (w *recordingWriter) CreateEvaluation(_ context.Context, result model.EvaluationResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.attempts[result.RecordID]++
	if w.failures[result.RecordID] != 0 {
		if w.failures[result.RecordID] > 0 {
			w.failures[result.RecordID]--
		}
		return errors.New("store unavailable")
	}
	w.written[result.RecordID] = result
	return nil
}

func TestRunner_PartitionsEveryRecordExactlyOnce(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	const n = 60
	client := NewMockClient(func(_ int, conversation model.Conversation) (string, error) {
		if strings.Contains(userContent(conversation), "Applicant bad-") {
			return "", &common.ServiceError{Provider: "openai", StatusCode: 503, Err: errors.New("unavailable")}
		}
		return "FINAL_RANKING = 3", nil
	})

	records := make([]model.Record, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("rec-%02d", i)
		if i%10 == 0 {
			id = fmt.Sprintf("bad-%02d", i)
		}
		records = append(records, testRecord(id))
	}

	progress := &progressRecorder{}
	runner := NewRunner(client, testConfig(t), WithLogger(discardLogger()))

	outcome, err := runner.Run(context.Background(), records, testBuckets(), progress.record)
	require.NoError(t, err)

	assert.Equal(t, n, outcome.Total())
	assert.Len(t, outcome.Successes, 54)
	assert.Len(t, outcome.Failures, 6)

	seen := make(map[string]int)
	for _, s := range outcome.Successes {
		seen[s.RecordID]++
		assert.Equal(t, 3, s.Values["Score"])
	}
	for _, f := range outcome.Failures {
		seen[f.RecordID]++
		assert.True(t, strings.HasPrefix(f.RecordID, "bad-"))
		assert.ErrorIs(t, f.Err, common.ErrMaxRetries)

		var svcErr *common.ServiceError
		assert.ErrorAs(t, f.Err, &svcErr)
	}
	require.Len(t, seen, n)
	for id, count := range seen {
		assert.Equal(t, 1, count, "record %s", id)
	}

	assertMonotonic(t, progress.snapshot())
	assert.InDelta(t, 1.0, runner.Progress(), 1e-9)
	assert.Equal(t, "Successfully created 54 evaluation(s). Failed 6 times. See logs for failure details.", outcome.Summary())
}

func TestRunner_MultipleOutputsProgress(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	client := NewMockClient(func(_ int, conversation model.Conversation) (string, error) {
		if strings.Contains(userContent(conversation), "Applicant r2") && strings.Contains(systemContent(conversation), "depth") {
			return "unparseable", nil
		}
		return "FINAL_RANKING = 4", nil
	})

	cfg := testConfig(t)
	cfg.Outputs = []Output{
		{Field: "Leadership", Criteria: "leadership"},
		{Field: "Technical", Criteria: "technical depth"},
	}

	progress := &progressRecorder{}
	outcome, err := NewRunner(client, cfg, WithLogger(discardLogger())).Run(
		context.Background(),
		[]model.Record{testRecord("r1"), testRecord("r2"), testRecord("r3")},
		model.BucketContext{},
		progress.record,
	)
	require.NoError(t, err)

	assert.Len(t, outcome.Successes, 2)
	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, "r2", outcome.Failures[0].RecordID)

	values := progress.snapshot()
	assertMonotonic(t, values)
	for _, v := range values {
		// Six units in total; every report is a whole number of them.
		units := v * 6
		assert.InDelta(t, float64(int(units+0.5)), units, 1e-9)
	}
}

func TestRunner_ConfigErrorsAbortBeforeLaunch(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		buckets model.BucketContext
		field   string
	}{
		{
			name:    "no input fields",
			mutate:  func(c *Config) { c.Inputs = nil },
			buckets: testBuckets(),
			field:   "inputs",
		},
		{
			name:    "no buckets",
			mutate:  func(*Config) {},
			buckets: model.BucketContext{},
			field:   "buckets",
		},
		{
			name:    "blank free-text buckets",
			mutate:  func(*Config) {},
			buckets: model.NewTextContext("   "),
			field:   "buckets",
		},
		{
			name:    "no output field",
			mutate:  func(c *Config) { c.Outputs = nil },
			buckets: testBuckets(),
			field:   "outputs",
		},
		{
			name:    "blank output field",
			mutate:  func(c *Config) { c.Outputs = []Output{{Field: " "}} },
			buckets: testBuckets(),
			field:   "outputs",
		},
		{
			name: "logs field collides with output",
			mutate: func(c *Config) {
				c.LogsField = "Score"
			},
			buckets: testBuckets(),
			field:   "logs_field",
		},
		{
			name: "choice fields with score grammar",
			mutate: func(c *Config) {
				c.FirstChoiceField = "First"
			},
			buckets: testBuckets(),
			field:   "first_choice_field",
		},
		{
			name: "ranked list with several outputs",
			mutate: func(c *Config) {
				c.Grammar = llm.Grammar{Kind: llm.GrammarRankedList, Keyword: llm.DefaultRankedListKeyword}
				c.Outputs = []Output{{Field: "A"}, {Field: "B"}}
			},
			buckets: testBuckets(),
			field:   "outputs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewMockClient(func(int, model.Conversation) (string, error) {
				return "FINAL_RANKING = 1", nil
			})
			cfg := testConfig(t)
			tt.mutate(&cfg)

			called := false
			outcome, err := NewRunner(client, cfg).Run(context.Background(),
				[]model.Record{testRecord("r1")}, tt.buckets, func(float64) { called = true })

			require.Error(t, err)
			assert.Nil(t, outcome)
			assert.ErrorIs(t, err, common.ErrMissingConfig)

			var cfgErr *common.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)

			assert.Zero(t, client.CallCount(), "no evaluator may start")
			assert.False(t, called, "progress is not touched")
		})
	}
}

func TestRunner_EmptyBatch(t *testing.T) {
	progress := &progressRecorder{}
	outcome, err := NewRunner(NewMockClient(nil), testConfig(t)).
		Run(context.Background(), nil, testBuckets(), progress.record)
	require.NoError(t, err)

	assert.Zero(t, outcome.Total())
	assert.Equal(t, []float64{0, 1}, progress.snapshot())
	assert.Equal(t, "Successfully created 0 evaluation(s).", outcome.Summary())
}

func TestRunner_InvalidRecordFailsAlone(t *testing.T) {
	client := NewMockClient(func(int, model.Conversation) (string, error) {
		return "FINAL_RANKING = 2", nil
	})

	outcome, err := NewRunner(client, testConfig(t), WithLogger(discardLogger())).Run(context.Background(),
		[]model.Record{testRecord("ok"), {Fields: map[string]string{"name": "nobody"}}}, testBuckets(), nil)
	require.NoError(t, err)

	assert.Len(t, outcome.Successes, 1)
	require.Len(t, outcome.Failures, 1)
	assert.Contains(t, outcome.Failures[0].Err.Error(), "record ID is required")
	assert.Equal(t, 1, client.CallCount())
}

func TestRunner_WritesEachSuccessWithItsOwnRetry(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	client := NewMockClient(func(int, model.Conversation) (string, error) {
		return "FINAL_RANKING = 5", nil
	})
	writer := newRecordingWriter()
	writer.failures["flaky"] = 2
	writer.failures["down"] = -1

	logger, buf := captureLogger()
	outcome, err := NewRunner(client, testConfig(t), WithWriter(writer), WithLogger(logger)).Run(
		context.Background(),
		[]model.Record{testRecord("fine"), testRecord("flaky"), testRecord("down")},
		testBuckets(),
		nil,
	)
	require.NoError(t, err)

	assert.Equal(t, 3, client.CallCount(), "write retries never go back to the model")

	assert.Len(t, outcome.Successes, 2)
	assert.Contains(t, writer.written, "fine")
	assert.Contains(t, writer.written, "flaky")
	assert.Equal(t, 3, writer.attempts["flaky"])
	assert.Equal(t, 3, writer.attempts["down"])

	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, "down", outcome.Failures[0].RecordID)
	var writeErr *common.WriteError
	require.ErrorAs(t, outcome.Failures[0].Err, &writeErr)
	assert.Equal(t, "down", writeErr.RecordID)

	assert.Len(t, logEntries(t, buf, "Failed to write evaluation, retrying"), 4)
	assert.Empty(t, logEntries(t, buf, retryMessage))
}

func TestRunner_CanceledContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := NewMockClient(func(int, model.Conversation) (string, error) {
		return "FINAL_RANKING = 1", nil
	})
	client := llm.WithLimiter(mock, llm.NewLimiter(1))

	progress := &progressRecorder{}
	outcome, err := NewRunner(client, testConfig(t), WithLogger(discardLogger())).Run(ctx,
		[]model.Record{testRecord("a"), testRecord("b")}, testBuckets(), progress.record)
	require.NoError(t, err)

	assert.Empty(t, outcome.Successes)
	require.Len(t, outcome.Failures, 2)
	for _, f := range outcome.Failures {
		assert.ErrorIs(t, f.Err, context.Canceled)
	}
	assert.Zero(t, mock.CallCount())
	assertMonotonic(t, progress.snapshot())
}

func TestRunner_StateObserverSeesTerminalStatePerOutput(t *testing.T) {
	client := NewMockClient(func(_ int, conversation model.Conversation) (string, error) {
		if strings.Contains(userContent(conversation), "Applicant b") {
			return "", errors.New("nope")
		}
		return "FINAL_RANKING = 1", nil
	})

	var (
		mu       sync.Mutex
		terminal = make(map[string]State)
	)
	observer := func(recordID, _ string, s State) {
		if !s.Terminal() {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		terminal[recordID] = s
	}

	_, err := NewRunner(client, testConfig(t), WithStateObserver(observer), WithLogger(discardLogger())).Run(
		context.Background(), []model.Record{testRecord("a"), testRecord("b")}, testBuckets(), nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]State{"a": StateSucceeded, "b": StateFailed}, terminal)
}
