package resilience

import (
	"context"
	"sync"
	"time"
)

// SlidingWindowConfig configures the sliding window limiter.
type SlidingWindowConfig struct {
	// Window is the length of the moving interval.
	// Default: 1 second
	Window time.Duration

	// MaxRequests is the number of admissions allowed inside the window.
	// Default: 100
	MaxRequests int

	// Policy selects wait or reject when the window is full.
	// Default: PolicyReject
	Policy Policy
}

// SlidingWindow admits calls by counting admission timestamps inside a moving
// interval. After a successful admission the number of timestamps newer than
// now-Window never exceeds MaxRequests.
type SlidingWindow struct {
	config SlidingWindowConfig

	mu     sync.Mutex
	stamps []time.Time
}

// NewSlidingWindow creates a new sliding window limiter.
func NewSlidingWindow(config SlidingWindowConfig) *SlidingWindow {
	// Apply defaults
	if config.Window <= 0 {
		config.Window = time.Second
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = 100
	}

	return &SlidingWindow{
		config: config,
		stamps: make([]time.Time, 0, config.MaxRequests),
	}
}

// Allow admits the caller if the window has room, recording the admission.
// Prune, check and append happen under one lock hold.
func (sw *SlidingWindow) Allow() bool {
	admitted, _ := sw.take()
	return admitted
}

// Acquire admits the caller per the configured policy. Under PolicyWait the
// caller sleeps until the oldest timestamp exits the window, then re-attempts
// admission.
func (sw *SlidingWindow) Acquire(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		admitted, wait := sw.take()
		if admitted {
			return nil
		}
		if sw.config.Policy == PolicyReject {
			return ErrRateLimitExceeded
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// take prunes expired timestamps and tries to record an admission. When the
// window is full it returns the time until the oldest timestamp expires.
func (sw *SlidingWindow) take() (bool, time.Duration) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.pruneLocked(now)

	if len(sw.stamps) < sw.config.MaxRequests {
		sw.stamps = append(sw.stamps, now)
		return true, 0
	}

	wait := sw.stamps[0].Add(sw.config.Window).Sub(now)
	if wait <= 0 {
		wait = time.Millisecond
	}
	return false, wait
}

// pruneLocked drops timestamps older than now-Window. Must be called with
// sw.mu held.
func (sw *SlidingWindow) pruneLocked(now time.Time) {
	cutoff := now.Add(-sw.config.Window)
	i := 0
	for i < len(sw.stamps) && !sw.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		sw.stamps = append(sw.stamps[:0], sw.stamps[i:]...)
	}
}

// Metrics returns the current window occupancy and limit.
func (sw *SlidingWindow) Metrics() LimiterMetrics {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.pruneLocked(time.Now())

	return LimiterMetrics{
		Occupancy: len(sw.stamps),
		Limit:     sw.config.MaxRequests,
	}
}

// Occupancy returns the number of admissions currently inside the window.
func (sw *SlidingWindow) Occupancy() int {
	return sw.Metrics().Occupancy
}

var _ Limiter = (*SlidingWindow)(nil)
