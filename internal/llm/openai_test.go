package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Veraticus/bucketeer/internal/common"
	"github.com/Veraticus/bucketeer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIClient(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		wantModel string
		wantURL   string
		wantErr   bool
	}{
		{
			name:      "valid config",
			config:    Config{APIKey: "test-key"},
			wantModel: defaultOpenAIModel,
			wantURL:   defaultOpenAIBaseURL,
		},
		{
			name:    "missing API key",
			config:  Config{},
			wantErr: true,
		},
		{
			name: "custom model and base URL",
			config: Config{
				APIKey:  "test-key",
				Model:   "gpt-4o",
				BaseURL: "http://localhost:8080/v1/",
			},
			wantModel: "gpt-4o",
			wantURL:   "http://localhost:8080/v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newOpenAIClient(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			oc, ok := client.(*openAIClient)
			require.True(t, ok)
			assert.Equal(t, tt.wantModel, oc.model)
			assert.Equal(t, tt.wantURL, oc.baseURL)
		})
	}
}

func newTestOpenAIClient(t *testing.T, handler http.HandlerFunc) *openAIClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := newOpenAIClient(Config{
		APIKey:       "test-key",
		Organization: "org-test",
		Model:        "gpt-test",
		BaseURL:      server.URL,
	})
	require.NoError(t, err)

	oc := client.(*openAIClient)
	oc.httpClient = server.Client()
	return oc
}

func TestOpenAIClient_Complete(t *testing.T) {
	conversation := model.Conversation{
		{Role: model.RoleUser, Content: "### Name\n\nAda"},
		{Role: model.RoleSystem, Content: "Classify"},
	}

	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "org-test", r.Header.Get("OpenAI-Organization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req openAIRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "gpt-test", req.Model)
		assert.Equal(t, 1000, req.MaxTokens)
		assert.Nil(t, req.Temperature)
		assert.Equal(t, []model.Message(conversation), req.Messages)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"FINAL_RANKING = 4"}}]}`))
	})

	text, err := client.Complete(context.Background(), conversation, 1000)
	require.NoError(t, err)
	assert.Equal(t, "FINAL_RANKING = 4", text)
}

func TestOpenAIClient_CompleteErrors(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		expectedError string
		status        int
		wantRateLimit bool
	}{
		{
			name:          "server error",
			status:        http.StatusInternalServerError,
			body:          `{"error":{"message":"boom"}}`,
			expectedError: "openai API error (status 500)",
		},
		{
			name:          "rate limited",
			status:        http.StatusTooManyRequests,
			body:          `{"error":{"message":"slow down"}}`,
			expectedError: "openai API error (status 429): rate limit exceeded",
			wantRateLimit: true,
		},
		{
			name:          "malformed body",
			status:        http.StatusOK,
			body:          `not json`,
			expectedError: "failed to parse response",
		},
		{
			name:          "no choices",
			status:        http.StatusOK,
			body:          `{"choices":[]}`,
			expectedError: "no completion choices returned",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestOpenAIClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Complete(context.Background(), model.Conversation{{Role: model.RoleUser, Content: "hi"}}, 10)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)

			var svcErr *common.ServiceError
			require.ErrorAs(t, err, &svcErr)
			assert.Equal(t, tt.status, svcErr.StatusCode)
			assert.Equal(t, tt.wantRateLimit, errors.Is(err, common.ErrRateLimit))
		})
	}
}

func TestOpenAIClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := newOpenAIClient(Config{APIKey: "k", BaseURL: url})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), nil, 10)
	var svcErr *common.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 0, svcErr.StatusCode)
	assert.Contains(t, err.Error(), "request failed")
}
