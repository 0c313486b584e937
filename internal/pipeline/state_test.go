package pipeline

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewInitialState(t *testing.T) {
	state := NewInitialState("report-1", "user-1")

	if state.Status != StatusQueued {
		t.Errorf("status = %s, want queued", state.Status)
	}
	if !state.CreatedAt.Equal(state.UpdatedAt) {
		t.Errorf("createdAt %v != updatedAt %v", state.CreatedAt, state.UpdatedAt)
	}
	if len(state.StepAnalytics) != len(StepOrder()) {
		t.Fatalf("got %d step entries, want %d", len(state.StepAnalytics), len(StepOrder()))
	}
	for _, name := range StepOrder() {
		if got := state.StepAnalytics[name].Status; got != StepPending {
			t.Errorf("step %s status = %s, want pending", name, got)
		}
	}
}

func TestAnalytics_CreatesMissingEntry(t *testing.T) {
	// States written by older workers may predate a step; resuming must
	// not panic on the missing entry.
	state := &PipelineState{ReportID: "r"}
	a := state.Analytics(StepCruxes)
	if a == nil || a.Status != StepPending {
		t.Fatalf("Analytics() = %+v, want pending entry", a)
	}
}

func TestPipelineState_WireFormat(t *testing.T) {
	state := NewInitialState("report-1", "user-1")
	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	// Keys are camelCase to match the product's stored-record format.
	for _, key := range []string{`"reportId"`, `"userId"`, `"status"`, `"createdAt"`, `"updatedAt"`, `"stepAnalytics"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("serialized state missing %s: %s", key, data)
		}
	}

	var back PipelineState
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back.ReportID != "report-1" || back.Status != StatusQueued {
		t.Errorf("roundtrip lost fields: %+v", back)
	}
}
