package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/AIObjectives/tttc-light-js-sub002/internal/pipeline"
)

func TestSummarize(t *testing.T) {
	state := pipeline.NewInitialState("report-1", "user-1")
	state.Status = pipeline.StatusFailed
	state.UpdatedAt = state.CreatedAt.Add(90 * time.Second)

	state.Analytics(pipeline.StepClustering).Status = pipeline.StepCompleted
	state.Analytics(pipeline.StepClustering).CostUSD = 0.02
	state.Analytics(pipeline.StepClustering).Usage = &pipeline.Usage{InputTokens: 1000, OutputTokens: 400, TotalTokens: 1400}

	state.Analytics(pipeline.StepExtraction).Status = pipeline.StepFailed
	state.Analytics(pipeline.StepExtraction).CostUSD = 0.01
	state.Analytics(pipeline.StepExtraction).Usage = &pipeline.Usage{InputTokens: 500, OutputTokens: 100, TotalTokens: 600}
	state.Analytics(pipeline.StepExtraction).Error = "provider timeout"

	s := Summarize(state)

	if s.ReportID != "report-1" || s.Status != "failed" {
		t.Errorf("identity = %s/%s", s.ReportID, s.Status)
	}
	if math.Abs(s.TotalCostUSD-0.03) > 1e-9 {
		t.Errorf("TotalCostUSD = %v, want 0.03", s.TotalCostUSD)
	}
	if s.TotalTokens != 2000 || s.InputTokens != 1500 || s.OutputTokens != 500 {
		t.Errorf("tokens = %d/%d/%d, want 2000/1500/500", s.TotalTokens, s.InputTokens, s.OutputTokens)
	}
	if s.StepsDone != 1 {
		t.Errorf("StepsDone = %d, want 1", s.StepsDone)
	}
	if s.Elapsed != 90*time.Second {
		t.Errorf("Elapsed = %v, want 90s", s.Elapsed)
	}

	if len(s.Steps) != len(pipeline.StepOrder()) {
		t.Fatalf("got %d step rows, want %d", len(s.Steps), len(pipeline.StepOrder()))
	}
	if s.Steps[0].Step != "clustering" || s.Steps[0].Status != "completed" {
		t.Errorf("steps[0] = %+v", s.Steps[0])
	}
	if s.Steps[1].Error != "provider timeout" {
		t.Errorf("steps[1].Error = %q", s.Steps[1].Error)
	}
	if s.Steps[4].Status != "pending" {
		t.Errorf("steps[4].Status = %q, want pending", s.Steps[4].Status)
	}
}
