package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is a Client for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string
	ResponseJSON json.RawMessage

	// Responses keyed by model lets one mock serve multiple steps.
	ResponsesByModel map[string]json.RawMessage

	// State
	requestCount atomic.Int64
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		ResponseText: "mock response",
		ResponseJSON: json.RawMessage(`{}`),
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Calls returns how many requests the mock has served.
func (c *MockClient) Calls() int {
	return int(c.requestCount.Load())
}

// Complete returns the configured canned response.
func (c *MockClient) Complete(ctx context.Context, req *Request) (*Result, error) {
	count := c.requestCount.Add(1)

	if c.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.Latency):
		}
	}

	result := &Result{
		RequestID:        fmt.Sprintf("mock-%d", count),
		Provider:         MockClientName,
		ModelUsed:        req.Model,
		PromptTokens:     100,
		CompletionTokens: 50,
		TotalTokens:      150,
		CostUSD:          0.001,
	}

	if c.ShouldFail || (c.FailAfter > 0 && count > int64(c.FailAfter)) {
		result.Success = false
		result.ErrorType = "mock_error"
		result.ErrorMessage = "mock failure"
		return result, nil
	}

	result.Success = true
	result.Content = c.ResponseText
	if req.JSONOutput {
		payload := c.ResponseJSON
		if byModel, ok := c.ResponsesByModel[req.Model]; ok {
			payload = byModel
		}
		result.ParsedJSON = payload
		result.Content = string(payload)
	}
	return result, nil
}
