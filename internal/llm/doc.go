// Package llm provides the completion service client used to evaluate records.
// It supports OpenAI and Google Gemini, gates every call through a process-wide
// concurrency limiter, builds the classification prompt and parses the model's
// answer with a strict grammar.
package llm
