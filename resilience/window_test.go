package resilience

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNewSlidingWindow_Defaults(t *testing.T) {
	sw := NewSlidingWindow(SlidingWindowConfig{})

	if sw.config.Window != time.Second {
		t.Errorf("Window = %v, want 1s", sw.config.Window)
	}
	if sw.config.MaxRequests != 100 {
		t.Errorf("MaxRequests = %d, want 100", sw.config.MaxRequests)
	}
	if sw.config.Policy != PolicyReject {
		t.Errorf("Policy = %v, want reject", sw.config.Policy)
	}
}

func TestSlidingWindow_AdmitsUpToMax(t *testing.T) {
	sw := NewSlidingWindow(SlidingWindowConfig{
		Window:      time.Second,
		MaxRequests: 3,
	})

	for i := 0; i < 3; i++ {
		if !sw.Allow() {
			t.Errorf("Allow() call %d = false, want true", i+1)
		}
	}

	if sw.Allow() {
		t.Error("Allow() = true with full window")
	}
	if occ := sw.Occupancy(); occ != 3 {
		t.Errorf("Occupancy() = %d, want 3", occ)
	}
}

func TestSlidingWindow_ExpiryFreesCapacity(t *testing.T) {
	sw := NewSlidingWindow(SlidingWindowConfig{
		Window:      30 * time.Millisecond,
		MaxRequests: 2,
	})

	sw.Allow()
	sw.Allow()

	if sw.Allow() {
		t.Fatal("Allow() = true with full window")
	}

	time.Sleep(40 * time.Millisecond)

	if !sw.Allow() {
		t.Error("Allow() = false after the window moved past old admissions")
	}
}

func TestSlidingWindow_RejectPolicy(t *testing.T) {
	sw := NewSlidingWindow(SlidingWindowConfig{
		Window:      time.Second,
		MaxRequests: 1,
		Policy:      PolicyReject,
	})

	if err := sw.Acquire(context.Background()); err != nil {
		t.Fatalf("First Acquire() error = %v", err)
	}

	err := sw.Acquire(context.Background())
	if err != ErrRateLimitExceeded {
		t.Errorf("Acquire() error = %v, want ErrRateLimitExceeded", err)
	}
}

func TestSlidingWindow_WaitPolicy(t *testing.T) {
	sw := NewSlidingWindow(SlidingWindowConfig{
		Window:      30 * time.Millisecond,
		MaxRequests: 1,
		Policy:      PolicyWait,
	})

	if err := sw.Acquire(context.Background()); err != nil {
		t.Fatalf("First Acquire() error = %v", err)
	}

	// Second acquire waits until the first admission exits the window
	start := time.Now()
	if err := sw.Acquire(context.Background()); err != nil {
		t.Fatalf("Second Acquire() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Acquire() returned after %v, expected ~30ms wait", elapsed)
	}
}

func TestSlidingWindow_WaitPolicyCancellation(t *testing.T) {
	sw := NewSlidingWindow(SlidingWindowConfig{
		Window:      10 * time.Second,
		MaxRequests: 1,
		Policy:      PolicyWait,
	})

	if err := sw.Acquire(context.Background()); err != nil {
		t.Fatalf("First Acquire() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := sw.Acquire(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("Acquire() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestSlidingWindow_ConcurrentBurst(t *testing.T) {
	sw := NewSlidingWindow(SlidingWindowConfig{
		Window:      time.Minute,
		MaxRequests: 10,
	})

	var admitted int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sw.Allow() {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 10 {
		t.Errorf("admitted = %d, want exactly 10", admitted)
	}
}

func TestSlidingWindow_Metrics(t *testing.T) {
	sw := NewSlidingWindow(SlidingWindowConfig{
		Window:      time.Second,
		MaxRequests: 5,
	})

	sw.Allow()
	sw.Allow()

	m := sw.Metrics()
	if m.Occupancy != 2 {
		t.Errorf("Occupancy = %d, want 2", m.Occupancy)
	}
	if m.Limit != 5 {
		t.Errorf("Limit = %d, want 5", m.Limit)
	}
}
