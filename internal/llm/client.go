// Package llm provides the chat-completion client used by the pipeline's
// step collaborators, with token usage and cost accounting on every call.
package llm

import (
	"context"
	"encoding/json"
	"time"
)

// Client is the interface step collaborators use to reach a model.
type Client interface {
	// Complete sends a chat completion request.
	Complete(ctx context.Context, req *Request) (*Result, error)

	// Name returns the client identifier (e.g., "openai").
	Name() string
}

// Request is a chat completion request.
type Request struct {
	Model        string  `json:"model"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	UserPrompt   string  `json:"user_prompt"`
	Temperature  float64 `json:"temperature,omitempty"`

	// JSONOutput asks the model for a JSON object response.
	JSONOutput bool `json:"json_output,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// Result is the complete response from a model call. Expected failure modes
// are carried in Success/ErrorType rather than as Go errors.
type Result struct {
	Content    string          `json:"content"`
	ParsedJSON json.RawMessage `json:"parsed_json,omitempty"`

	// Token counts
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// Cost and timing
	CostUSD       float64       `json:"cost_usd"`
	ExecutionTime time.Duration `json:"execution_time"`

	// Provider info
	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`

	// Request tracking
	RequestID string `json:"request_id"`

	// Success/error
	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}
