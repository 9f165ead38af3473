package engine

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/Veraticus/bucketeer/internal/llm"
	"github.com/Veraticus/bucketeer/internal/model"
)

// MockClient is an llm.Client that answers from a reply function instead of a
// remote service. It backs dry runs and tests.
type MockClient struct {
	reply func(call int, conversation model.Conversation) (string, error)
	calls []MockCall
	mu    sync.Mutex
}

// MockCall records details of a completion request.
type MockCall struct {
	Conversation model.Conversation
	MaxTokens    int
}

// NewMockClient creates a mock whose replies come from reply. The call
// number passed to reply is 1-based and counts every call on the client.
func NewMockClient(reply func(call int, conversation model.Conversation) (string, error)) *MockClient {
	return &MockClient{
		reply: reply,
		calls: make([]MockCall, 0),
	}
}

// NewDeterministicClient creates a mock that always produces well-formed
// output for the grammar, derived from a hash of the rendered record so the
// same record always gets the same answer.
func NewDeterministicClient(grammar llm.Grammar, buckets []model.Bucket) *MockClient {
	return NewMockClient(func(_ int, conversation model.Conversation) (string, error) {
		seed := conversationSeed(conversation)

		if grammar.Kind != llm.GrammarRankedList {
			return fmt.Sprintf("Deterministic assessment.\n\n%s = %d", grammar.Keyword, 1+seed%5), nil
		}

		if len(buckets) == 0 {
			return "", fmt.Errorf("no buckets to rank")
		}

		var b strings.Builder
		b.WriteString("Deterministic assessment.\n\n")
		b.WriteString(grammar.Keyword)
		b.WriteString("\n")
		best := int(seed % uint32(len(buckets))) // #nosec G115 -- bucket lists are small
		fmt.Fprintf(&b, "%s: %d%%\n", buckets[best].Name, 60+seed%40)
		if len(buckets) > 1 {
			second := (best + 1) % len(buckets)
			fmt.Fprintf(&b, "%s: %d%%\n", buckets[second].Name, 30+seed%30)
		}
		return b.String(), nil
	})
}

func conversationSeed(conversation model.Conversation) uint32 {
	h := fnv.New32a()
	for _, msg := range conversation {
		if msg.Role == model.RoleUser {
			_, _ = h.Write([]byte(msg.Content))
		}
	}
	return h.Sum32()
}

// Complete implements llm.Client.
func (m *MockClient) Complete(ctx context.Context, conversation model.Conversation, maxTokens int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Conversation: conversation, MaxTokens: maxTokens})
	call := len(m.calls)
	m.mu.Unlock()

	return m.reply(call, conversation)
}

// Calls returns a copy of the recorded calls.
func (m *MockClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]MockCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallCount returns the number of completion requests made.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
