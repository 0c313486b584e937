// Package metrics aggregates a pipeline run's persisted telemetry into
// cost/usage summaries for worker logs and CLI output.
package metrics

import (
	"time"

	"github.com/AIObjectives/tttc-light-js-sub002/internal/pipeline"
)

// StepBreakdown is one step's telemetry.
type StepBreakdown struct {
	Step         string  `json:"step"`
	Status       string  `json:"status"`
	CostUSD      float64 `json:"cost_usd"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	Error        string  `json:"error,omitempty"`
}

// Summary aggregates one report's telemetry across all steps.
type Summary struct {
	ReportID     string          `json:"report_id"`
	Status       string          `json:"status"`
	TotalCostUSD float64         `json:"total_cost_usd"`
	TotalTokens  int             `json:"total_tokens"`
	InputTokens  int             `json:"input_tokens"`
	OutputTokens int             `json:"output_tokens"`
	StepsDone    int             `json:"steps_completed"`
	Elapsed      time.Duration   `json:"elapsed"`
	Steps        []StepBreakdown `json:"steps"`
}

// Summarize folds a pipeline state into a Summary. Steps are reported in
// pipeline order; entries the state never touched stay pending.
func Summarize(state *pipeline.PipelineState) *Summary {
	s := &Summary{
		ReportID: state.ReportID,
		Status:   string(state.Status),
		Elapsed:  state.UpdatedAt.Sub(state.CreatedAt),
	}

	for _, name := range pipeline.StepOrder() {
		a, ok := state.StepAnalytics[name]
		if !ok {
			a = &pipeline.StepAnalytics{Status: pipeline.StepPending}
		}

		b := StepBreakdown{
			Step:    string(name),
			Status:  string(a.Status),
			CostUSD: a.CostUSD,
			Error:   a.Error,
		}
		if a.Usage != nil {
			b.InputTokens = a.Usage.InputTokens
			b.OutputTokens = a.Usage.OutputTokens
			b.TotalTokens = a.Usage.TotalTokens
		}
		s.Steps = append(s.Steps, b)

		s.TotalCostUSD += b.CostUSD
		s.InputTokens += b.InputTokens
		s.OutputTokens += b.OutputTokens
		s.TotalTokens += b.TotalTokens
		if a.Status == pipeline.StepCompleted {
			s.StepsDone++
		}
	}
	return s
}
