package pipeline

import (
	"context"
	"encoding/json"

	"github.com/AIObjectives/tttc-light-js-sub002/internal/schema"
)

// StepName identifies one pipeline step.
type StepName string

const (
	StepClustering StepName = "clustering"
	StepExtraction StepName = "extraction"
	StepSorting    StepName = "sorting"
	StepSummaries  StepName = "summaries"
	StepCruxes     StepName = "cruxes"
)

// StepOrder returns the canonical step sequence. The single source of truth
// for both execution order and first-incomplete-step computation.
func StepOrder() []StepName {
	return []StepName{StepClustering, StepExtraction, StepSorting, StepSummaries, StepCruxes}
}

// RunContext is the accumulated context handed to each step: the job input
// plus the payloads of every step completed so far (current run or reloaded
// from checkpoints).
type RunContext struct {
	Input   *schema.PipelineInput
	Outputs map[StepName]json.RawMessage
}

// Output decodes a prior step's payload into v.
func (rc *RunContext) Output(name StepName, v any) error {
	return json.Unmarshal(rc.Outputs[name], v)
}

// StepResult is the outcome of one step invocation. Expected domain
// failures (provider errors, malformed output) travel in Success/ErrorType;
// Go errors are reserved for truly exceptional conditions, which the runner
// also treats as step failure.
type StepResult struct {
	Payload json.RawMessage
	Usage   *Usage
	CostUSD float64

	Success      bool
	ErrorType    string
	ErrorMessage string
}

// StepFunc is the collaborator contract: consume the accumulated context,
// produce a payload with usage and cost telemetry, or a typed failure.
type StepFunc func(ctx context.Context, rc *RunContext) (*StepResult, error)

// StepDefinition is one row of the ordered step table.
type StepDefinition struct {
	Name StepName

	// Optional steps run only when the job input enables them.
	Optional bool

	Run StepFunc
}
