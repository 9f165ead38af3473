package engine

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/bucketeer/internal/llm"
	"github.com/Veraticus/bucketeer/internal/model"
	"github.com/Veraticus/bucketeer/internal/service"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
		Jitter:       true,
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	grammar, err := llm.NewGrammar("score", "")
	require.NoError(t, err)

	return Config{
		Grammar: grammar,
		Inputs: []model.FieldMapping{
			{Field: "name", Label: "Name"},
			{Field: "why", Label: "Why do you want to join?"},
		},
		Outputs:    []Output{{Field: "Score"}},
		LogsField:  "Logs",
		Retry:      fastRetry(3),
		WriteRetry: fastRetry(3),
	}
}

func testBuckets() model.BucketContext {
	return model.NewBucketListContext([]model.Bucket{
		{Name: "Engineering", Description: "Builds software"},
		{Name: "Policy", Description: "Works on governance"},
	})
}

func testRecord(id string) model.Record {
	return model.Record{
		ID: id,
		Fields: map[string]string{
			"name": "Applicant " + id,
			"why":  "I have shipped production systems.",
		},
	}
}

// userContent returns the rendered record of a conversation.
func userContent(conversation model.Conversation) string {
	for _, msg := range conversation {
		if msg.Role == model.RoleUser {
			return msg.Content
		}
	}
	return ""
}

func systemContent(conversation model.Conversation) string {
	for _, msg := range conversation {
		if msg.Role == model.RoleSystem {
			return msg.Content
		}
	}
	return ""
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// captureLogger returns a JSON logger and the buffer it writes to.
func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

// logEntries decodes every log line with the given message.
func logEntries(t *testing.T, buf *bytes.Buffer, msg string) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == msg {
			entries = append(entries, entry)
		}
	}
	return entries
}
