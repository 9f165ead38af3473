package llm

import (
	"context"

	"github.com/Veraticus/bucketeer/internal/model"
)

// DefaultMaxTokens caps the generated output of a single completion.
const DefaultMaxTokens = 1000

// Client defines the interface for completion service providers.
// Failures are reported as *common.ServiceError.
type Client interface {
	Complete(ctx context.Context, conversation model.Conversation, maxTokens int) (string, error)
}

// Config holds configuration for the completion service.
type Config struct {
	Provider     string
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	Temperature  float64
	MaxTokens    int
	Concurrency  int
}
