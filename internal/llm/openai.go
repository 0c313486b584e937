package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const OpenAIName = "openai"

// modelPricing maps model prefixes to USD per 1M tokens. Chat completion
// responses do not include cost, so it is derived from usage counts.
var modelPricing = []struct {
	prefix      string
	inputPer1M  float64
	outputPer1M float64
}{
	{"gpt-4o-mini", 0.15, 0.60},
	{"gpt-4o", 2.50, 10.00},
	{"gpt-4-turbo", 10.00, 30.00},
	{"o3-mini", 1.10, 4.40},
	{"gpt-3.5", 0.50, 1.50},
}

// OpenAIConfig holds configuration for the OpenAI chat client.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string        // Optional (tests, gateways)
	Timeout    time.Duration // HTTP timeout
	MaxRetries int           // Retry attempts for SDK transport
	HTTPClient *http.Client  // Optional (tests)
}

// OpenAIClient implements Client using the official OpenAI SDK.
type OpenAIClient struct {
	client openai.Client
}

// NewOpenAIClient creates a chat client for the given API credential.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{client: openai.NewClient(opts...)}
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// Complete sends a chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	result := &Result{
		RequestID: requestID,
		Provider:  OpenAIName,
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Opt(req.Temperature)
	}
	if req.JSONOutput {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		result.Success = false
		result.ErrorType = "provider_error"
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, nil
	}

	if len(resp.Choices) == 0 {
		result.Success = false
		result.ErrorType = "empty_response"
		result.ErrorMessage = "no choices in completion response"
		result.ExecutionTime = time.Since(start)
		return result, nil
	}

	result.Content = resp.Choices[0].Message.Content
	result.ModelUsed = resp.Model
	result.PromptTokens = int(resp.Usage.PromptTokens)
	result.CompletionTokens = int(resp.Usage.CompletionTokens)
	result.TotalTokens = int(resp.Usage.TotalTokens)
	result.CostUSD = estimateCost(resp.Model, result.PromptTokens, result.CompletionTokens)
	result.ExecutionTime = time.Since(start)
	result.Success = true

	if req.JSONOutput {
		parsed, perr := extractJSON(result.Content)
		if perr != nil {
			result.Success = false
			result.ErrorType = "malformed_json"
			result.ErrorMessage = perr.Error()
			return result, nil
		}
		result.ParsedJSON = parsed
	}

	return result, nil
}

// estimateCost derives USD cost from token usage and the pricing table.
// Unknown models cost zero rather than guessing.
func estimateCost(model string, promptTokens, completionTokens int) float64 {
	for _, p := range modelPricing {
		if strings.HasPrefix(model, p.prefix) {
			return float64(promptTokens)*p.inputPer1M/1e6 +
				float64(completionTokens)*p.outputPer1M/1e6
		}
	}
	return 0
}

// extractJSON validates content as a JSON document, tolerating markdown
// code fences some models wrap around JSON output.
func extractJSON(content string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	if !json.Valid([]byte(trimmed)) {
		return nil, fmt.Errorf("model output is not valid JSON")
	}
	return json.RawMessage(trimmed), nil
}
