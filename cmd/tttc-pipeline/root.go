package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AIObjectives/tttc-light-js-sub002/internal/cache"
	"github.com/AIObjectives/tttc-light-js-sub002/internal/config"
	"github.com/AIObjectives/tttc-light-js-sub002/internal/llm"
	"github.com/AIObjectives/tttc-light-js-sub002/internal/output"
	"github.com/AIObjectives/tttc-light-js-sub002/internal/pipeline"
	"github.com/AIObjectives/tttc-light-js-sub002/internal/schema"
	"github.com/AIObjectives/tttc-light-js-sub002/internal/steps"
	"github.com/AIObjectives/tttc-light-js-sub002/internal/worker"
	"github.com/AIObjectives/tttc-light-js-sub002/version"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "tttc-pipeline",
	Short: "Resumable LLM pipeline turning public comments into topic reports",
	Long: `tttc-pipeline turns collections of public comments into structured
topic reports through a multi-step LLM pipeline.

The pipeline includes:
  - Comment clustering into a topic/subtopic taxonomy
  - Attributed claim extraction
  - Claim deduplication and sorting
  - Per-topic summarization
  - Optional crux analysis of points of controversy

Runs checkpoint after every step and can be resumed after a crash or
failure; a per-report lock keeps concurrent workers off the same report.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.tttc/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		output.SetFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads configuration from the --config flag or default paths.
func loadConfig() (*config.Config, error) {
	mgr, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, err
	}
	return mgr.Get(), nil
}

// newLogger builds the process logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newStore connects to Redis and returns the pipeline state store. The
// returned cache client must be closed by the caller.
func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline.StateStore, *cache.Client, error) {
	c, err := cache.New(cache.Config{URL: cfg.Redis.URL, Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	if err := c.WaitReady(ctx, 30*time.Second); err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("redis not reachable at %s: %w", cfg.Redis.URL, err)
	}
	return pipeline.NewStateStore(c, logger), c, nil
}

// newStepsFactory builds step tables from config, with the job input's own
// API key taking precedence over the configured one.
func newStepsFactory(cfg *config.Config) worker.StepsFactory {
	return func(input *schema.PipelineInput) []pipeline.StepDefinition {
		apiKey := input.APIKey
		if apiKey == "" {
			apiKey = cfg.ResolveAPIKey()
		}
		client := llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:     apiKey,
			BaseURL:    cfg.LLM.BaseURL,
			Timeout:    time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
			MaxRetries: cfg.LLM.MaxRetries,
		})
		return steps.Definitions(client)
	}
}

// readInput loads and validates a pipeline input JSON file, filling in the
// configured default model where step options leave it blank.
func readInput(path string, cfg *config.Config) (*schema.PipelineInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	var input schema.PipelineInput
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to parse input file: %w", err)
	}
	if len(input.Comments) == 0 {
		return nil, errors.New("input has no comments")
	}

	for _, opts := range []*schema.StepOptions{
		&input.ClusteringOptions,
		&input.ExtractionOptions,
		&input.DedupOptions,
		&input.SummariesOptions,
		&input.CruxesOptions,
	} {
		if opts.Model == "" {
			opts.Model = cfg.LLM.Model
		}
	}
	return &input, nil
}
