package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/staffsync/internal/model"
)

// --- Mock implementations ---

type FakeSyncer struct {
	mu     sync.Mutex
	calls  atomic.Int32
	sinces []time.Time
	result model.RunSummary
	err    error
}

func (f *FakeSyncer) IncrementalSync(_ context.Context, since time.Time) (model.RunSummary, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.sinces = append(f.sinces, since)
	f.mu.Unlock()
	return f.result, f.err
}

type RecordingNotifier struct {
	summaries []model.RunSummary
}

func (n *RecordingNotifier) Notify(s model.RunSummary) error {
	n.summaries = append(n.summaries, s)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// steppingClock returns successive times one minute apart.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := t
		t = t.Add(time.Minute)
		return now
	}
}

var t0 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// --- Tests ---

func TestRunOnce_WindowAdvancesOnSuccess(t *testing.T) {
	syncer := &FakeSyncer{result: model.RunSummary{Kind: "incremental", Total: 2, Succeeded: 2}}
	s := newScheduler(syncer, "@every 15m", 24*time.Hour, nil, discardLogger(), steppingClock(t0))

	if want := t0.Add(-24 * time.Hour); !s.Since().Equal(want) {
		t.Fatalf("initial since = %v, want %v", s.Since(), want)
	}

	s.RunOnce(context.Background())
	s.RunOnce(context.Background())

	if len(syncer.sinces) != 2 {
		t.Fatalf("calls = %d, want 2", len(syncer.sinces))
	}
	if !syncer.sinces[0].Equal(t0.Add(-24 * time.Hour)) {
		t.Errorf("first since = %v", syncer.sinces[0])
	}
	// The second run starts from when the first one started.
	if !syncer.sinces[1].Equal(t0.Add(time.Minute)) {
		t.Errorf("second since = %v, want %v", syncer.sinces[1], t0.Add(time.Minute))
	}
}

func TestRunOnce_FailedRunKeepsWindow(t *testing.T) {
	syncer := &FakeSyncer{err: &model.TransportError{Op: "list jobs", Err: errors.New("connection refused")}}
	s := newScheduler(syncer, "@every 15m", time.Hour, nil, discardLogger(), steppingClock(t0))

	s.RunOnce(context.Background())
	s.RunOnce(context.Background())

	if !syncer.sinces[0].Equal(syncer.sinces[1]) {
		t.Errorf("since moved after a failed run: %v -> %v", syncer.sinces[0], syncer.sinces[1])
	}
}

func TestRunOnce_NotifiesOnlyWhenRecordsFail(t *testing.T) {
	notifier := &RecordingNotifier{}
	syncer := &FakeSyncer{result: model.RunSummary{Kind: "incremental", Total: 3, Succeeded: 3}}
	s := newScheduler(syncer, "@every 15m", time.Hour, notifier, discardLogger(), steppingClock(t0))

	s.RunOnce(context.Background())
	if len(notifier.summaries) != 0 {
		t.Fatalf("clean run should not notify, got %d", len(notifier.summaries))
	}

	syncer.result = model.RunSummary{Kind: "incremental", Total: 3, Succeeded: 2, Failed: 1}
	s.RunOnce(context.Background())
	if len(notifier.summaries) != 1 || notifier.summaries[0].Failed != 1 {
		t.Errorf("summaries = %+v", notifier.summaries)
	}
}

func TestRun_InvalidSchedule(t *testing.T) {
	s := NewScheduler(&FakeSyncer{}, "every tuesday-ish", time.Hour, nil, discardLogger())
	if err := s.Run(context.Background()); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestRun_ImmediateSyncThenCancelReturnsPromptly(t *testing.T) {
	syncer := &FakeSyncer{}
	s := NewScheduler(syncer, "@every 1h", time.Hour, nil, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on cancel, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not return within 2s after cancel")
	}
	if got := syncer.calls.Load(); got != 1 {
		t.Errorf("sync calls = %d, want 1 (the immediate run)", got)
	}
}
