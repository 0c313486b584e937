package pipeline

import "time"

// Lock lifetime and state staleness are the same duration on purpose: a
// state is deemed abandoned exactly when any lock its writer held would have
// been expired server-side by the cache. Lock expiry is arbitrated by the
// Redis server's clock; staleness compares each worker's own now() against
// the stored updatedAt, so every worker reaches the same verdict regardless
// of clock skew between workers.
const (
	// LockTTLSeconds is the lifetime of a report lock.
	LockTTLSeconds = 300

	// StateStalenessThresholdMS must equal LockTTLSeconds * 1000. Asserted
	// by test; do not tune independently.
	StateStalenessThresholdMS = LockTTLSeconds * 1000
)

// LockTTL is LockTTLSeconds as a duration.
const LockTTL = LockTTLSeconds * time.Second

// StateStalenessThreshold is StateStalenessThresholdMS as a duration.
const StateStalenessThreshold = StateStalenessThresholdMS * time.Millisecond

// IsStale reports whether state from a prior attempt may be treated as
// abandoned and resumed. The boundary is inclusive: state exactly at the
// threshold is stale, favoring forward progress over indefinite deadlock
// behind a dead worker.
func IsStale(state *PipelineState, now time.Time) bool {
	if state == nil {
		return false
	}
	return now.Sub(state.UpdatedAt) >= StateStalenessThreshold
}
