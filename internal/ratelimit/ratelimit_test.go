package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestPacer_EnforcesInterval(t *testing.T) {
	pacer := NewPacer(100 * time.Millisecond)
	ctx := context.Background()

	// First call should return immediately.
	start := time.Now()
	if err := pacer.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("first wait should not block, took %v", elapsed)
	}

	start = time.Now()
	if err := pacer.Wait(ctx); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Allow 20ms for timer jitter.
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestPacer_ZeroIntervalNeverBlocks(t *testing.T) {
	pacer := NewPacer(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 50; i++ {
		if err := pacer.Wait(ctx); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected no pacing, took %v", elapsed)
	}
}

func TestPacer_ContextCancellation(t *testing.T) {
	pacer := NewPacer(5 * time.Second)

	// Seed the limiter so the next call would have to wait.
	if err := pacer.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := pacer.Wait(ctx); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}
