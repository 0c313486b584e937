// Package steps provides the default LLM-backed collaborators for the
// report pipeline: comment clustering, claim extraction, dedup/sort, topic
// summarization, and the optional crux analysis. Each step consumes the
// accumulated run context, calls the model, validates the JSON payload
// against the step's schema, and returns the payload with usage and cost
// telemetry. The runner only ever sees the step table; tests swap in mocks.
package steps

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AIObjectives/tttc-light-js-sub002/internal/llm"
	"github.com/AIObjectives/tttc-light-js-sub002/internal/pipeline"
	"github.com/AIObjectives/tttc-light-js-sub002/internal/schema"
)

// Definitions returns the ordered step table wired to the given client.
func Definitions(client llm.Client) []pipeline.StepDefinition {
	return []pipeline.StepDefinition{
		{Name: pipeline.StepClustering, Run: Clustering(client)},
		{Name: pipeline.StepExtraction, Run: Extraction(client)},
		{Name: pipeline.StepSorting, Run: Sorting(client)},
		{Name: pipeline.StepSummaries, Run: Summaries(client)},
		{Name: pipeline.StepCruxes, Optional: true, Run: Cruxes(client)},
	}
}

// Clustering groups comments into a topic/subtopic taxonomy.
func Clustering(client llm.Client) pipeline.StepFunc {
	return func(ctx context.Context, rc *pipeline.RunContext) (*pipeline.StepResult, error) {
		comments, err := json.Marshal(rc.Input.Comments)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize comments: %w", err)
		}
		prompt := buildUserPrompt(rc.Input.ClusteringOptions, clusteringUserPrompt, string(comments))
		return invoke(ctx, client, rc.Input, rc.Input.ClusteringOptions,
			clusteringSystemPrompt, prompt, pipeline.StepClustering)
	}
}

// Extraction pulls attributed claims out of each comment, placed into the
// clustering step's taxonomy.
func Extraction(client llm.Client) pipeline.StepFunc {
	return func(ctx context.Context, rc *pipeline.RunContext) (*pipeline.StepResult, error) {
		var taxonomy schema.ClusteringResult
		if err := rc.Output(pipeline.StepClustering, &taxonomy); err != nil {
			return nil, fmt.Errorf("failed to load clustering output: %w", err)
		}
		payload, err := json.Marshal(map[string]any{
			"taxonomy": taxonomy.Topics,
			"comments": rc.Input.Comments,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to serialize extraction context: %w", err)
		}
		prompt := buildUserPrompt(rc.Input.ExtractionOptions, extractionUserPrompt, string(payload))
		return invoke(ctx, client, rc.Input, rc.Input.ExtractionOptions,
			extractionSystemPrompt, prompt, pipeline.StepExtraction)
	}
}

// Sorting deduplicates near-identical claims and orders the claim tree by
// the requested strategy.
func Sorting(client llm.Client) pipeline.StepFunc {
	return func(ctx context.Context, rc *pipeline.RunContext) (*pipeline.StepResult, error) {
		var claims schema.ExtractionResult
		if err := rc.Output(pipeline.StepExtraction, &claims); err != nil {
			return nil, fmt.Errorf("failed to load extraction output: %w", err)
		}
		sortBy := rc.Input.SortBy
		if sortBy == "" {
			sortBy = schema.SortByClaimCount
		}
		payload, err := json.Marshal(map[string]any{
			"claims": claims.Claims,
			"sortBy": sortBy,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to serialize sorting context: %w", err)
		}
		prompt := buildUserPrompt(rc.Input.DedupOptions, sortingUserPrompt, string(payload))
		return invoke(ctx, client, rc.Input, rc.Input.DedupOptions,
			sortingSystemPrompt, prompt, pipeline.StepSorting)
	}
}

// Summaries writes one short summary per topic from the sorted claim tree.
func Summaries(client llm.Client) pipeline.StepFunc {
	return func(ctx context.Context, rc *pipeline.RunContext) (*pipeline.StepResult, error) {
		tree := rc.Outputs[pipeline.StepSorting]
		prompt := buildUserPrompt(rc.Input.SummariesOptions, summariesUserPrompt, string(tree))
		return invoke(ctx, client, rc.Input, rc.Input.SummariesOptions,
			summariesSystemPrompt, prompt, pipeline.StepSummaries)
	}
}

// Cruxes is the optional secondary analysis: statements that split
// participants into agree/disagree camps.
func Cruxes(client llm.Client) pipeline.StepFunc {
	return func(ctx context.Context, rc *pipeline.RunContext) (*pipeline.StepResult, error) {
		var claims schema.ExtractionResult
		if err := rc.Output(pipeline.StepExtraction, &claims); err != nil {
			return nil, fmt.Errorf("failed to load extraction output: %w", err)
		}
		payload, err := json.Marshal(map[string]any{
			"claims":   claims.Claims,
			"comments": rc.Input.Comments,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to serialize crux context: %w", err)
		}
		prompt := buildUserPrompt(rc.Input.CruxesOptions, cruxesUserPrompt, string(payload))
		return invoke(ctx, client, rc.Input, rc.Input.CruxesOptions,
			cruxesSystemPrompt, prompt, pipeline.StepCruxes)
	}
}

// invoke runs one model call and maps the result onto the step contract.
func invoke(ctx context.Context, client llm.Client, input *schema.PipelineInput, opts schema.StepOptions, defaultSystem, userPrompt string, step pipeline.StepName) (*pipeline.StepResult, error) {
	systemPrompt := opts.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystem
	}

	result, err := client.Complete(ctx, &llm.Request{
		Model:        opts.Model,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  opts.Temperature,
		JSONOutput:   true,
	})
	if err != nil {
		return nil, err
	}

	if !result.Success {
		return &pipeline.StepResult{
			Success:      false,
			ErrorType:    result.ErrorType,
			ErrorMessage: result.ErrorMessage,
			Usage:        usageFrom(result),
			CostUSD:      result.CostUSD,
		}, nil
	}

	if err := validatePayload(step, result.ParsedJSON); err != nil {
		return &pipeline.StepResult{
			Success:      false,
			ErrorType:    "invalid_payload",
			ErrorMessage: err.Error(),
			Usage:        usageFrom(result),
			CostUSD:      result.CostUSD,
		}, nil
	}

	return &pipeline.StepResult{
		Success: true,
		Payload: result.ParsedJSON,
		Usage:   usageFrom(result),
		CostUSD: result.CostUSD,
	}, nil
}

func usageFrom(r *llm.Result) *pipeline.Usage {
	return &pipeline.Usage{
		InputTokens:  r.PromptTokens,
		OutputTokens: r.CompletionTokens,
		TotalTokens:  r.TotalTokens,
	}
}

// buildUserPrompt prefixes the serialized step context with the configured
// or default instruction text.
func buildUserPrompt(opts schema.StepOptions, defaultPrompt, context string) string {
	prompt := opts.UserPrompt
	if prompt == "" {
		prompt = defaultPrompt
	}
	return prompt + "\n\n" + context
}
