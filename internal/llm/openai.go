package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/bucketeer/internal/common"
	"github.com/Veraticus/bucketeer/internal/model"
)

const (
	openAIProvider       = "openai"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4-1106-preview"
)

// openAIClient implements the Client interface for the OpenAI chat completions API.
type openAIClient struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	organization string
	model        string
	temperature  float64
}

// newOpenAIClient creates a new OpenAI API client.
func newOpenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultOpenAIModel
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	// No client timeout: a slow completion keeps its limiter slot until the
	// transport resolves or the caller cancels.
	return &openAIClient{
		apiKey:       cfg.APIKey,
		organization: cfg.Organization,
		model:        modelName,
		baseURL:      baseURL,
		temperature:  cfg.Temperature,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 32,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// openAIRequest is the chat completions request body.
type openAIRequest struct {
	Temperature *float64        `json:"temperature,omitempty"`
	Model       string          `json:"model"`
	Messages    []model.Message `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

// openAIResponse represents the OpenAI API response structure.
type openAIResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
		Index        int    `json:"index"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Created int64 `json:"created"`
}

// Complete sends the conversation to OpenAI and returns the assistant reply.
func (c *openAIClient) Complete(ctx context.Context, conversation model.Conversation, maxTokens int) (string, error) {
	requestBody := openAIRequest{
		Model:     c.model,
		Messages:  conversation,
		MaxTokens: maxTokens,
	}
	if c.temperature != 0 {
		temperature := c.temperature
		requestBody.Temperature = &temperature
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", c.serviceError(0, "", fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", c.serviceError(0, "", fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.organization != "" {
		req.Header.Set("OpenAI-Organization", c.organization)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.serviceError(0, "", fmt.Errorf("request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.serviceError(resp.StatusCode, "", fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", c.serviceError(resp.StatusCode, string(body), common.ErrRateLimit)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.serviceError(resp.StatusCode, string(body), fmt.Errorf("HTTP error calling API: %s", strings.TrimSpace(string(body))))
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", c.serviceError(resp.StatusCode, string(body), fmt.Errorf("failed to parse response: %w", err))
	}

	if len(response.Choices) == 0 {
		return "", c.serviceError(resp.StatusCode, string(body), errors.New("no completion choices returned"))
	}

	return response.Choices[0].Message.Content, nil
}

func (c *openAIClient) serviceError(status int, body string, err error) error {
	return &common.ServiceError{
		Provider:   openAIProvider,
		StatusCode: status,
		Body:       body,
		Err:        err,
	}
}
