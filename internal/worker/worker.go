// Package worker owns job intake and execution for report pipelines. The
// Manager accepts report:generate tasks over an asynq queue; the Executor
// guards each run with the report's cache lock and drives the pipeline
// runner. Lock ownership lives here, not in the runner: the token is minted
// per execution and released when the run returns, whatever the outcome.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/AIObjectives/tttc-light-js-sub002/internal/llm"
	"github.com/AIObjectives/tttc-light-js-sub002/internal/metrics"
	"github.com/AIObjectives/tttc-light-js-sub002/internal/pipeline"
	"github.com/AIObjectives/tttc-light-js-sub002/internal/schema"
	"github.com/AIObjectives/tttc-light-js-sub002/internal/steps"
)

const (
	// TaskTypeGenerate is the asynq task type for report generation.
	TaskTypeGenerate = "report:generate"

	queueReports = "reports"
)

// TaskPayload is the wire form of one report generation job.
type TaskPayload struct {
	ReportID string                `json:"reportId"`
	UserID   string                `json:"userId"`
	Resume   bool                  `json:"resume"`
	Input    *schema.PipelineInput `json:"input"`
}

// StepsFactory builds the step table for one job. Swapped in tests.
type StepsFactory func(input *schema.PipelineInput) []pipeline.StepDefinition

// DefaultSteps wires the LLM-backed step table using the job's credential.
func DefaultSteps(input *schema.PipelineInput) []pipeline.StepDefinition {
	client := llm.NewOpenAIClient(llm.OpenAIConfig{APIKey: input.APIKey})
	return steps.Definitions(client)
}

// Executor runs one pipeline job under the report's lock.
type Executor struct {
	store  *pipeline.StateStore
	steps  StepsFactory
	logger *slog.Logger
}

// NewExecutor creates an executor. A nil steps factory falls back to
// DefaultSteps.
func NewExecutor(store *pipeline.StateStore, factory StepsFactory, logger *slog.Logger) *Executor {
	if factory == nil {
		factory = DefaultSteps
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		store:  store,
		steps:  factory,
		logger: logger.With("component", "worker"),
	}
}

// Execute acquires the report lock, runs the pipeline, and releases the
// lock. A report whose lock is held elsewhere returns ErrConcurrentRun;
// resuming completed state returns ErrAlreadyCompleted.
func (e *Executor) Execute(ctx context.Context, payload *TaskPayload) (*pipeline.RunResult, error) {
	if payload == nil || payload.ReportID == "" {
		return nil, errors.New("payload missing reportId")
	}
	if payload.Input == nil {
		return nil, fmt.Errorf("report %s: payload missing input", payload.ReportID)
	}

	logger := e.logger.With("report_id", payload.ReportID)
	token := lockToken()

	acquired, err := e.store.AcquirePipelineLock(ctx, payload.ReportID, token)
	if err != nil {
		return nil, err
	}
	if !acquired {
		logger.Warn("report lock held elsewhere, aborting")
		return nil, fmt.Errorf("report %s: %w", payload.ReportID, pipeline.ErrConcurrentRun)
	}
	defer func() {
		// Release must survive a canceled run context.
		if err := e.store.ReleasePipelineLock(context.WithoutCancel(ctx), payload.ReportID, token); err != nil {
			logger.Error("failed to release report lock", "error", err)
		}
	}()

	runner := pipeline.NewRunner(pipeline.RunnerOptions{
		Steps:  e.steps(payload.Input),
		Store:  e.store,
		Logger: e.logger,
	})

	result, err := runner.Run(ctx, payload.Input, pipeline.RunnerConfig{
		ReportID:        payload.ReportID,
		UserID:          payload.UserID,
		ResumeFromState: payload.Resume,
		LockValue:       token,
	})
	if err != nil {
		return nil, err
	}

	summary := metrics.Summarize(result.State)
	logger.Info("pipeline run finished",
		"success", result.Success,
		"status", result.State.Status,
		"steps_completed", summary.StepsDone,
		"total_tokens", summary.TotalTokens,
		"cost_usd", summary.TotalCostUSD,
		"elapsed", summary.Elapsed,
	)
	return result, nil
}

// lockToken mints a per-execution lock value traceable to this host.
func lockToken() string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return host + ":" + uuid.NewString()
}

// ManagerConfig configures the queue-backed worker.
type ManagerConfig struct {
	RedisURL    string
	Concurrency int
	Store       *pipeline.StateStore
	Steps       StepsFactory
	Logger      *slog.Logger
}

// Manager accepts report generation tasks from the queue and hands them to
// the executor.
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	exec   *Executor
	logger *slog.Logger
}

// NewManager creates the asynq client, server, and handler mux.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		client: asynq.NewClient(opt),
		server: asynq.NewServer(opt, asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				queueReports: 1,
			},
		}),
		mux:    asynq.NewServeMux(),
		exec:   NewExecutor(cfg.Store, cfg.Steps, logger),
		logger: logger.With("component", "worker_manager"),
	}
	m.mux.HandleFunc(TaskTypeGenerate, m.handleGenerateTask)
	return m, nil
}

// Start runs the queue server in the background.
func (m *Manager) Start() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && err != asynq.ErrServerClosed {
			m.logger.Error("queue server stopped", "error", err)
		}
	}()
}

// Shutdown stops the server and closes the client.
func (m *Manager) Shutdown() {
	m.server.Shutdown()
	m.client.Close()
}

// Enqueue submits a report generation task.
func (m *Manager) Enqueue(ctx context.Context, payload *TaskPayload) (string, error) {
	if payload == nil || payload.ReportID == "" {
		return "", errors.New("payload missing reportId")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	task := asynq.NewTask(TaskTypeGenerate, body, asynq.Queue(queueReports))
	info, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(2))
	if err != nil {
		return "", err
	}
	m.logger.Info("report task enqueued", "report_id", payload.ReportID, "task_id", info.ID)
	return info.ID, nil
}

// handleGenerateTask adapts queue delivery onto the executor. Conflicts are
// not retried: a completed report is done, and a concurrently held lock
// means another worker already owns the run.
func (m *Manager) handleGenerateTask(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("malformed task payload: %v: %w", err, asynq.SkipRetry)
	}

	_, err := m.exec.Execute(ctx, &payload)
	switch {
	case errors.Is(err, pipeline.ErrAlreadyCompleted):
		m.logger.Info("report already completed", "report_id", payload.ReportID)
		return nil
	case errors.Is(err, pipeline.ErrConcurrentRun):
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	default:
		return err
	}
}
