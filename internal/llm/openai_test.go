package llm

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func completionResponse(content string) string {
	body := map[string]any{
		"id":    "chatcmpl-test",
		"model": "gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": 5,
			"total_tokens":      15,
		},
	}
	data, _ := json.Marshal(body)
	return string(data)
}

func newTestOpenAIClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewOpenAIClient(OpenAIConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		MaxRetries: 1,
	})
}

func TestOpenAIClient_Complete_Success(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionResponse(`{"taxonomy":[]}`)))
	})

	result, err := client.Complete(context.Background(), &Request{
		Model:        "gpt-4o-mini",
		SystemPrompt: "system",
		UserPrompt:   "user",
		JSONOutput:   true,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("Complete() failed: %s %s", result.ErrorType, result.ErrorMessage)
	}
	if result.Provider != OpenAIName {
		t.Errorf("provider = %s", result.Provider)
	}
	if result.PromptTokens != 10 || result.CompletionTokens != 5 || result.TotalTokens != 15 {
		t.Errorf("usage = %d/%d/%d", result.PromptTokens, result.CompletionTokens, result.TotalTokens)
	}
	if result.CostUSD <= 0 {
		t.Errorf("cost = %v, want > 0", result.CostUSD)
	}
	if string(result.ParsedJSON) != `{"taxonomy":[]}` {
		t.Errorf("parsed = %s", result.ParsedJSON)
	}
}

func TestOpenAIClient_Complete_ProviderError(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	})

	result, err := client.Complete(context.Background(), &Request{
		Model:      "gpt-4o-mini",
		UserPrompt: "user",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v, want result-level failure", err)
	}
	if result.Success {
		t.Fatal("provider error reported as success")
	}
	if result.ErrorType != "provider_error" {
		t.Errorf("error type = %s", result.ErrorType)
	}
}

func TestOpenAIClient_Complete_MalformedJSON(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionResponse("not json at all")))
	})

	result, err := client.Complete(context.Background(), &Request{
		Model:      "gpt-4o-mini",
		UserPrompt: "user",
		JSONOutput: true,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if result.Success {
		t.Fatal("malformed JSON reported as success")
	}
	if result.ErrorType != "malformed_json" {
		t.Errorf("error type = %s", result.ErrorType)
	}
}

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		model  string
		prompt int
		output int
		want   float64
	}{
		{"gpt-4o-mini", 1_000_000, 1_000_000, 0.75},
		{"gpt-4o-mini-2024-07-18", 1_000_000, 0, 0.15},
		{"gpt-4o", 1_000_000, 0, 2.50},
		{"some-unknown-model", 1_000_000, 1_000_000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got := estimateCost(tt.model, tt.prompt, tt.output)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("estimateCost() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, false},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"fence without language", "```\n{\"a\":1}\n```", `{"a":1}`, false},
		{"not json", "hello", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("extractJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && string(got) != tt.want {
				t.Errorf("extractJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMockClient_FailAfter(t *testing.T) {
	mock := NewMockClient()
	mock.FailAfter = 2

	for i := 0; i < 2; i++ {
		result, err := mock.Complete(context.Background(), &Request{Model: "m"})
		if err != nil || !result.Success {
			t.Fatalf("call %d should succeed", i+1)
		}
	}
	result, err := mock.Complete(context.Background(), &Request{Model: "m"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if result.Success {
		t.Error("third call should fail")
	}
	if mock.Calls() != 3 {
		t.Errorf("calls = %d, want 3", mock.Calls())
	}
}
