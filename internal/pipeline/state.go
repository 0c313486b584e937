// Package pipeline implements the resumable, lock-guarded report pipeline:
// durable per-step state in the shared cache, a staleness policy for crash
// recovery, and the runner that walks the step sequence.
package pipeline

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of one report's pipeline.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StepStatus tracks one step within a run. Step statuses only move forward
// in pipeline order: a later step is never in_progress or completed while an
// earlier one is incomplete.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

// Usage is token accounting for one step.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// StepAnalytics is the per-step telemetry persisted with the state.
type StepAnalytics struct {
	Status  StepStatus `json:"status"`
	Usage   *Usage     `json:"usage,omitempty"`
	CostUSD float64    `json:"cost,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// PipelineState is the durable record of one report's progress. Exactly one
// exists per report; it is only mutated by the current lock holder.
type PipelineState struct {
	ReportID  string    `json:"reportId"`
	UserID    string    `json:"userId"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// LockValue records the token of the execution that last advanced this
	// state. Diagnostic only; lock lifecycle belongs to the caller.
	LockValue string `json:"lockValue,omitempty"`

	StepAnalytics map[StepName]*StepAnalytics `json:"stepAnalytics"`

	// StepOutputs holds each completed step's payload so a resumed run can
	// rebuild the input to the first incomplete step without recomputation.
	StepOutputs map[StepName]json.RawMessage `json:"stepOutputs,omitempty"`

	// Error mirrors the failing step's message at the pipeline level.
	Error string `json:"error,omitempty"`
}

// NewInitialState creates the state for a fresh run: queued, every step
// pending, createdAt == updatedAt == now.
func NewInitialState(reportID, userID string) *PipelineState {
	now := time.Now().UTC()
	analytics := make(map[StepName]*StepAnalytics, len(StepOrder()))
	for _, name := range StepOrder() {
		analytics[name] = &StepAnalytics{Status: StepPending}
	}
	return &PipelineState{
		ReportID:      reportID,
		UserID:        userID,
		Status:        StatusQueued,
		CreatedAt:     now,
		UpdatedAt:     now,
		StepAnalytics: analytics,
		StepOutputs:   make(map[StepName]json.RawMessage),
	}
}

// Analytics returns the entry for a step, creating it if the state predates
// the step (older records resumed by newer workers).
func (s *PipelineState) Analytics(name StepName) *StepAnalytics {
	if s.StepAnalytics == nil {
		s.StepAnalytics = make(map[StepName]*StepAnalytics)
	}
	a, ok := s.StepAnalytics[name]
	if !ok {
		a = &StepAnalytics{Status: StepPending}
		s.StepAnalytics[name] = a
	}
	return a
}

// StepDone reports whether a step has a completed checkpoint.
func (s *PipelineState) StepDone(name StepName) bool {
	a, ok := s.StepAnalytics[name]
	return ok && a.Status == StepCompleted
}
