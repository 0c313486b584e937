package main

import (
	"github.com/spf13/cobra"

	"github.com/AIObjectives/tttc-light-js-sub002/internal/output"
	"github.com/AIObjectives/tttc-light-js-sub002/internal/worker"
)

var (
	enqueueInputFile string
	enqueueReportID  string
	enqueueUserID    string
	enqueueResume    bool
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Submit a report generation task to the queue",
	Long: `Submit a report generation task for a running worker to pick up.

Examples:
  tttc-pipeline enqueue --report r1 --input comments.json
  tttc-pipeline enqueue --report r1 --input comments.json --resume`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		input, err := readInput(enqueueInputFile, cfg)
		if err != nil {
			return err
		}

		store, c, err := newStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer c.Close()

		mgr, err := worker.NewManager(worker.ManagerConfig{
			RedisURL: cfg.Redis.URL,
			Store:    store,
			Steps:    newStepsFactory(cfg),
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		defer mgr.Shutdown()

		taskID, err := mgr.Enqueue(ctx, &worker.TaskPayload{
			ReportID: enqueueReportID,
			UserID:   enqueueUserID,
			Resume:   enqueueResume,
			Input:    input,
		})
		if err != nil {
			return err
		}

		return output.Print(map[string]string{
			"reportId": enqueueReportID,
			"taskId":   taskID,
		})
	},
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueInputFile, "input", "", "pipeline input JSON file (required)")
	enqueueCmd.Flags().StringVar(&enqueueReportID, "report", "", "report identifier (required)")
	enqueueCmd.Flags().StringVar(&enqueueUserID, "user", "", "user identifier")
	enqueueCmd.Flags().BoolVar(&enqueueResume, "resume", false, "resume from persisted state")
	enqueueCmd.MarkFlagRequired("input")
	enqueueCmd.MarkFlagRequired("report")

	rootCmd.AddCommand(enqueueCmd)
}
