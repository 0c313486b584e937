package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/AIObjectives/tttc-light-js-sub002/internal/cache"
)

const (
	stateKeyPrefix = "pipeline:state:"
	lockKeyPrefix  = "pipeline:lock:"
)

// StateKey returns the cache key holding a report's serialized state.
func StateKey(reportID string) string {
	return stateKeyPrefix + reportID
}

// LockKey returns the cache key guarding a report's execution.
func LockKey(reportID string) string {
	return lockKeyPrefix + reportID
}

// StateStore persists PipelineState records in the shared cache and scopes
// lock operations to a report's lock key. It does not arbitrate concurrent
// writers; callers must hold the report's lock while saving.
type StateStore struct {
	cache  *cache.Client
	logger *slog.Logger

	// now is swapped in tests to control updatedAt stamping.
	now func() time.Time
}

// NewStateStore creates a state store over the given cache client.
func NewStateStore(c *cache.Client, logger *slog.Logger) *StateStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateStore{
		cache:  c,
		logger: logger.With("component", "state_store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Get loads a report's state. Returns (nil, nil) when none exists yet.
func (s *StateStore) Get(ctx context.Context, reportID string) (*PipelineState, error) {
	data, err := s.cache.GetBytes(ctx, StateKey(reportID))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var state PipelineState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("corrupt pipeline state for %s: %w", reportID, err)
	}
	return &state, nil
}

// Save stamps updatedAt and writes the state under the report's state key.
// updatedAt never moves backwards, even if the local clock does.
func (s *StateStore) Save(ctx context.Context, state *PipelineState) error {
	now := s.now()
	if now.After(state.UpdatedAt) {
		state.UpdatedAt = now
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to serialize pipeline state for %s: %w", state.ReportID, err)
	}
	if err := s.cache.SetBytes(ctx, StateKey(state.ReportID), data, 0); err != nil {
		return err
	}
	s.logger.Debug("state saved", "report_id", state.ReportID, "status", state.Status)
	return nil
}

// AcquirePipelineLock attempts to take ownership of a report for LockTTL.
// Returns whether this call obtained the lock.
func (s *StateStore) AcquirePipelineLock(ctx context.Context, reportID, token string) (bool, error) {
	ok, err := s.cache.AcquireLock(ctx, LockKey(reportID), token, LockTTL)
	if err != nil {
		return false, err
	}
	if ok {
		s.logger.Debug("lock acquired", "report_id", reportID)
	}
	return ok, nil
}

// ReleasePipelineLock releases a report lock if token still owns it.
// A lock that expired and was re-acquired elsewhere is left untouched.
func (s *StateStore) ReleasePipelineLock(ctx context.Context, reportID, token string) error {
	return s.cache.ReleaseLock(ctx, LockKey(reportID), token)
}
