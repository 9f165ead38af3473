package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/bucketeer/internal/common"
	"github.com/Veraticus/bucketeer/internal/llm"
)

// LoadLLMConfig loads the completion client configuration. It follows this precedence:
// 1. Viper configuration (from config file or BUCKETEER_ env vars)
// 2. Provider environment variables (OPENAI_API_KEY, GEMINI_API_KEY)
// 3. Default values
func LoadLLMConfig(v *viper.Viper) (llm.Config, error) {
	cfg := llm.Config{
		Provider:     strings.ToLower(v.GetString("llm.provider")),
		APIKey:       v.GetString("llm.api_key"),
		Model:        v.GetString("llm.model"),
		BaseURL:      v.GetString("llm.base_url"),
		Organization: v.GetString("llm.organization"),
		Temperature:  v.GetFloat64("llm.temperature"),
		MaxTokens:    v.GetInt("llm.max_tokens"),
		Concurrency:  v.GetInt("llm.concurrency"),
	}

	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = llm.DefaultMaxTokens
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = llm.DefaultConcurrency
	}

	if cfg.APIKey == "" {
		switch cfg.Provider {
		case "openai":
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
			if cfg.Organization == "" {
				cfg.Organization = os.Getenv("OPENAI_ORG_ID")
			}
		case "gemini":
			cfg.APIKey = os.Getenv("GEMINI_API_KEY")
			if cfg.APIKey == "" {
				cfg.APIKey = os.Getenv("GOOGLE_API_KEY")
			}
		}
	}

	if cfg.APIKey == "" {
		return cfg, common.NewConfigError("llm.api_key", "no API key configured for provider "+cfg.Provider)
	}

	return cfg, nil
}
