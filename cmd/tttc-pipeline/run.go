package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AIObjectives/tttc-light-js-sub002/internal/metrics"
	"github.com/AIObjectives/tttc-light-js-sub002/internal/output"
	"github.com/AIObjectives/tttc-light-js-sub002/internal/worker"
)

var (
	runInputFile string
	runReportID  string
	runUserID    string
	runResume    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a report pipeline in-process",
	Long: `Run a report pipeline to completion in this process, without the
queue. The report's lock is acquired for the duration of the run.

Examples:
  tttc-pipeline run --report r1 --input comments.json
  tttc-pipeline run --report r1 --input comments.json --resume`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		input, err := readInput(runInputFile, cfg)
		if err != nil {
			return err
		}

		store, c, err := newStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer c.Close()

		exec := worker.NewExecutor(store, newStepsFactory(cfg), logger)
		result, err := exec.Execute(ctx, &worker.TaskPayload{
			ReportID: runReportID,
			UserID:   runUserID,
			Resume:   runResume,
			Input:    input,
		})
		if err != nil {
			return err
		}

		if err := output.Print(metrics.Summarize(result.State)); err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("pipeline failed: %s", result.State.Error)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runInputFile, "input", "", "pipeline input JSON file (required)")
	runCmd.Flags().StringVar(&runReportID, "report", "", "report identifier (required)")
	runCmd.Flags().StringVar(&runUserID, "user", "", "user identifier")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "resume from persisted state")
	runCmd.MarkFlagRequired("input")
	runCmd.MarkFlagRequired("report")

	rootCmd.AddCommand(runCmd)
}
