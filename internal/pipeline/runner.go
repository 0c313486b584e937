package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/AIObjectives/tttc-light-js-sub002/internal/schema"
)

// RunnerConfig identifies the job and how to enter it.
type RunnerConfig struct {
	ReportID string
	UserID   string

	// ResumeFromState requests continuation of persisted state instead of a
	// fresh run. Resume against completed or live-running state fails fast.
	ResumeFromState bool

	// LockValue is the caller's lock token, recorded in state for
	// diagnostics. The runner never acquires or releases locks itself; that
	// boundary belongs to the caller.
	LockValue string
}

// RunResult pairs the final success verdict with the persisted state, which
// always reflects any failure that occurred.
type RunResult struct {
	Success bool
	State   *PipelineState
}

// Runner walks the ordered step table for one report, checkpointing state
// after every transition so a crashed worker's progress is recoverable.
type Runner struct {
	steps  []StepDefinition
	store  *StateStore
	logger *slog.Logger
	now    func() time.Time
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Steps  []StepDefinition
	Store  *StateStore
	Logger *slog.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

// NewRunner creates a runner over the given step table and state store.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Runner{
		steps:  opts.Steps,
		store:  opts.Store,
		logger: logger.With("component", "runner"),
		now:    now,
	}
}

// Run executes or resumes the pipeline for one report. The caller must hold
// the report's lock for the duration of the call.
//
// Step failures are reported through RunResult (Success=false, state marked
// failed); the error return carries conflict and infrastructure failures.
func (r *Runner) Run(ctx context.Context, input *schema.PipelineInput, cfg RunnerConfig) (*RunResult, error) {
	logger := r.logger.With("report_id", cfg.ReportID)

	state, err := r.enter(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	rc := &RunContext{
		Input:   input,
		Outputs: make(map[StepName]json.RawMessage, len(r.steps)),
	}
	for name, payload := range state.StepOutputs {
		if state.StepDone(name) {
			rc.Outputs[name] = payload
		}
	}

	for _, step := range r.steps {
		if step.Optional && !input.EnableCruxes {
			continue
		}

		// Completed checkpoints are never re-invoked; their persisted
		// payloads already seed the run context.
		if state.StepDone(step.Name) {
			logger.Debug("skipping completed step", "step", step.Name)
			continue
		}

		if err := r.runStep(ctx, state, rc, step, logger); err != nil {
			return nil, err
		}
		if state.Status == StatusFailed {
			return &RunResult{Success: false, State: state}, nil
		}
	}

	state.Status = StatusCompleted
	state.Error = ""
	if err := r.store.Save(ctx, state); err != nil {
		return nil, err
	}
	logger.Info("pipeline completed", "report_id", cfg.ReportID)
	return &RunResult{Success: true, State: state}, nil
}

// enter loads or creates state and validates that this execution may
// proceed, re-checking the conflict rules even though the caller should
// have settled them at lock acquisition.
func (r *Runner) enter(ctx context.Context, cfg RunnerConfig, logger *slog.Logger) (*PipelineState, error) {
	state, err := r.store.Get(ctx, cfg.ReportID)
	if err != nil {
		return nil, err
	}

	if state == nil || !cfg.ResumeFromState {
		state = NewInitialState(cfg.ReportID, cfg.UserID)
		state.Status = StatusRunning
		state.LockValue = cfg.LockValue
		if err := r.store.Save(ctx, state); err != nil {
			return nil, err
		}
		logger.Info("starting fresh run")
		return state, nil
	}

	switch state.Status {
	case StatusCompleted:
		return nil, fmt.Errorf("report %s: %w", cfg.ReportID, ErrAlreadyCompleted)
	case StatusRunning:
		if !IsStale(state, r.now()) {
			return nil, fmt.Errorf("report %s: %w", cfg.ReportID, ErrConcurrentRun)
		}
		logger.Warn("resuming stale running state", "updated_at", state.UpdatedAt)
	case StatusFailed:
		logger.Info("resuming failed run")
	default:
		logger.Info("resuming run", "status", state.Status)
	}

	state.Status = StatusRunning
	state.Error = ""
	state.LockValue = cfg.LockValue
	if err := r.store.Save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// runStep drives one step through in_progress to completed or failed,
// persisting state at each transition.
func (r *Runner) runStep(ctx context.Context, state *PipelineState, rc *RunContext, step StepDefinition, logger *slog.Logger) error {
	analytics := state.Analytics(step.Name)
	analytics.Status = StepInProgress
	analytics.Error = ""
	if err := r.store.Save(ctx, state); err != nil {
		return err
	}

	logger.Info("running step", "step", step.Name)
	start := r.now()

	result, err := step.Run(ctx, rc)
	if err != nil {
		// Collaborators reserve hard errors for exceptional conditions;
		// treat them as step failure all the same.
		result = &StepResult{
			Success:      false,
			ErrorType:    "internal_error",
			ErrorMessage: err.Error(),
		}
	}

	if !result.Success {
		analytics.Status = StepFailed
		analytics.Error = result.ErrorMessage
		state.Status = StatusFailed
		state.Error = fmt.Sprintf("%s: %s", step.Name, result.ErrorMessage)
		if err := r.store.Save(ctx, state); err != nil {
			return err
		}
		logger.Error("step failed",
			"step", step.Name,
			"error_type", result.ErrorType,
			"error", result.ErrorMessage,
		)
		return nil
	}

	analytics.Status = StepCompleted
	analytics.Usage = result.Usage
	analytics.CostUSD = result.CostUSD
	if state.StepOutputs == nil {
		state.StepOutputs = make(map[StepName]json.RawMessage)
	}
	state.StepOutputs[step.Name] = result.Payload
	rc.Outputs[step.Name] = result.Payload
	if err := r.store.Save(ctx, state); err != nil {
		return err
	}

	logger.Info("step completed",
		"step", step.Name,
		"cost_usd", result.CostUSD,
		"duration", r.now().Sub(start),
	)
	return nil
}
