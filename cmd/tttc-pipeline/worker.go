package main

import (
	"github.com/spf13/cobra"

	"github.com/AIObjectives/tttc-light-js-sub002/internal/worker"
)

var workerConcurrency int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the queue worker daemon",
	Long: `Run the worker daemon that consumes report generation tasks from
the Redis-backed queue. Multiple workers may run against the same Redis;
the per-report lock keeps them from processing the same report twice.

Examples:
  tttc-pipeline worker
  tttc-pipeline worker --concurrency 8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		store, c, err := newStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer c.Close()

		concurrency := workerConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Worker.Concurrency
		}

		mgr, err := worker.NewManager(worker.ManagerConfig{
			RedisURL:    cfg.Redis.URL,
			Concurrency: concurrency,
			Store:       store,
			Steps:       newStepsFactory(cfg),
			Logger:      logger,
		})
		if err != nil {
			return err
		}

		mgr.Start()
		logger.Info("worker started", "concurrency", concurrency)

		<-ctx.Done()
		logger.Info("shutting down worker")
		mgr.Shutdown()
		return nil
	},
}

func init() {
	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "concurrent task handlers (default from config)")

	rootCmd.AddCommand(workerCmd)
}
