package pipeline

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/AIObjectives/tttc-light-js-sub002/internal/cache"
)

func newTestStore(t *testing.T) (*StateStore, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(s.Close)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewStateStore(cache.NewFromClient(rdb, nil), nil), s
}

func TestStateStore_GetMissing(t *testing.T) {
	store, _ := newTestStore(t)

	state, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if state != nil {
		t.Errorf("Get(missing) = %+v, want nil", state)
	}
}

func TestStateStore_SaveRoundtrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	state := NewInitialState("report-1", "user-1")
	state.Analytics(StepClustering).Status = StepCompleted
	state.Analytics(StepClustering).Usage = &Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}
	state.StepOutputs[StepClustering] = []byte(`{"taxonomy":[]}`)

	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Get(ctx, "report-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ReportID != "report-1" || got.UserID != "user-1" {
		t.Errorf("identity = %s/%s, want report-1/user-1", got.ReportID, got.UserID)
	}
	if got.Analytics(StepClustering).Status != StepCompleted {
		t.Errorf("clustering status = %s, want completed", got.Analytics(StepClustering).Status)
	}
	if got.Analytics(StepClustering).Usage.TotalTokens != 15 {
		t.Errorf("usage total = %d, want 15", got.Analytics(StepClustering).Usage.TotalTokens)
	}
	if string(got.StepOutputs[StepClustering]) != `{"taxonomy":[]}` {
		t.Errorf("clustering output = %s", got.StepOutputs[StepClustering])
	}
}

func TestStateStore_SaveRefreshesUpdatedAt(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return t0 }

	state := NewInitialState("report-1", "user-1")
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !state.UpdatedAt.Equal(t0) {
		t.Errorf("UpdatedAt = %v, want %v", state.UpdatedAt, t0)
	}

	// Every save refreshes updatedAt.
	t1 := t0.Add(30 * time.Second)
	store.now = func() time.Time { return t1 }
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !state.UpdatedAt.Equal(t1) {
		t.Errorf("UpdatedAt = %v, want %v", state.UpdatedAt, t1)
	}

	// A clock that jumped backwards must not rewind updatedAt.
	store.now = func() time.Time { return t0 }
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !state.UpdatedAt.Equal(t1) {
		t.Errorf("UpdatedAt moved backwards: %v, want %v", state.UpdatedAt, t1)
	}
}

func TestStateStore_LockKeyNamespace(t *testing.T) {
	if got, want := LockKey("abc"), "pipeline:lock:abc"; got != want {
		t.Errorf("LockKey() = %q, want %q", got, want)
	}
	if got, want := StateKey("abc"), "pipeline:state:abc"; got != want {
		t.Errorf("StateKey() = %q, want %q", got, want)
	}
	// The two namespaces must never collide for any report id.
	if LockKey("x") == StateKey("x") {
		t.Error("lock and state namespaces collide")
	}
}

func TestStateStore_PipelineLock(t *testing.T) {
	store, s := newTestStore(t)
	ctx := context.Background()

	ok, err := store.AcquirePipelineLock(ctx, "report-1", "token-a")
	if err != nil || !ok {
		t.Fatalf("AcquirePipelineLock() = %v, %v; want true, nil", ok, err)
	}

	// Held lock rejects other acquirers; locks are per-report.
	if ok, _ := store.AcquirePipelineLock(ctx, "report-1", "token-b"); ok {
		t.Error("second acquisition succeeded while lock held")
	}
	if ok, _ := store.AcquirePipelineLock(ctx, "report-2", "token-b"); !ok {
		t.Error("lock for a different report was refused")
	}

	// Foreign-token release is a silent no-op.
	if err := store.ReleasePipelineLock(ctx, "report-1", "token-b"); err != nil {
		t.Fatalf("ReleasePipelineLock(foreign) error = %v", err)
	}
	if ok, _ := store.AcquirePipelineLock(ctx, "report-1", "token-c"); ok {
		t.Error("foreign-token release freed the lock")
	}

	// Owner release frees it.
	if err := store.ReleasePipelineLock(ctx, "report-1", "token-a"); err != nil {
		t.Fatalf("ReleasePipelineLock(owner) error = %v", err)
	}
	if ok, _ := store.AcquirePipelineLock(ctx, "report-1", "token-c"); !ok {
		t.Error("lock not acquirable after owner release")
	}

	// TTL expiry is server-side.
	s.FastForward(LockTTL + time.Second)
	if ok, _ := store.AcquirePipelineLock(ctx, "report-1", "token-d"); !ok {
		t.Error("lock not acquirable after TTL expiry")
	}
}
