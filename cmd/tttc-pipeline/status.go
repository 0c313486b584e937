package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AIObjectives/tttc-light-js-sub002/internal/metrics"
	"github.com/AIObjectives/tttc-light-js-sub002/internal/output"
)

var statusReportID string

// statusView is the CLI rendering of a report's persisted state.
type statusView struct {
	Summary   *metrics.Summary `json:"summary" yaml:"summary"`
	CreatedAt time.Time        `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt" yaml:"updatedAt"`
	LockValue string           `json:"lockValue,omitempty" yaml:"lockValue,omitempty"`
	Error     string           `json:"error,omitempty" yaml:"error,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a report's pipeline state and cost summary",
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

		state, err := store.Get(ctx, statusReportID)
		if err != nil {
			return err
		}
		if state == nil {
			return fmt.Errorf("no pipeline state for report %s", statusReportID)
		}

		return output.Print(&statusView{
			Summary:   metrics.Summarize(state),
			CreatedAt: state.CreatedAt,
			UpdatedAt: state.UpdatedAt,
			LockValue: state.LockValue,
			Error:     state.Error,
		})
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusReportID, "report", "", "report identifier (required)")
	statusCmd.MarkFlagRequired("report")

	rootCmd.AddCommand(statusCmd)
}
