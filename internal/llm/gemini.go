package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Veraticus/bucketeer/internal/common"
	"github.com/Veraticus/bucketeer/internal/model"
	"google.golang.org/genai"
)

const (
	geminiProvider     = "gemini"
	defaultGeminiModel = "gemini-2.5-flash"
)

// generateFunc matches genai's Models.GenerateContent.
type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// geminiClient implements the Client interface for Google Gemini.
type geminiClient struct {
	generate    generateFunc
	model       string
	temperature float64
}

// newGeminiClient creates a new Gemini client backed by the genai SDK.
func newGeminiClient(ctx context.Context, cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &geminiClient{
		generate:    client.Models.GenerateContent,
		model:       modelName,
		temperature: cfg.Temperature,
	}, nil
}

// Complete sends the conversation to Gemini. System messages become the
// system instruction; assistant messages map to the model role.
func (c *geminiClient) Complete(ctx context.Context, conversation model.Conversation, maxTokens int) (string, error) {
	var system []string
	contents := make([]*genai.Content, 0, len(conversation))

	for _, msg := range conversation {
		switch msg.Role {
		case model.RoleSystem:
			system = append(system, msg.Content)
		case model.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	config := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens) // #nosec G115 -- token budgets are small
	}
	if c.temperature != 0 {
		temperature := float32(c.temperature)
		config.Temperature = &temperature
	}

	resp, err := c.generate(ctx, c.model, contents, config)
	if err != nil {
		return "", geminiServiceError(err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", &common.ServiceError{Provider: geminiProvider, Err: errors.New("no completion text returned")}
	}

	return text, nil
}

// geminiServiceError classifies a genai failure. HTTP 429 also wraps
// common.ErrRateLimit so retries wait the full backoff.
func geminiServiceError(err error) error {
	status := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.Code
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		status = apiErrPtr.Code
	}

	wrapped := fmt.Errorf("request failed: %w", err)
	if status == http.StatusTooManyRequests {
		wrapped = fmt.Errorf("request failed: %w: %w", common.ErrRateLimit, err)
	}

	return &common.ServiceError{Provider: geminiProvider, StatusCode: status, Err: wrapped}
}
