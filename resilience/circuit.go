package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is blocking all requests.
	StateOpen
	// StateHalfOpen means the circuit is testing if the provider recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive counted failures in the
	// closed state before opening the circuit.
	// Default: 5
	FailureThreshold int

	// SuccessThreshold is the number of consecutive successes in the
	// half-open state before closing the circuit.
	// Default: 1
	SuccessThreshold int

	// OpenTimeout is how long the circuit stays open before admitting
	// half-open probes.
	// Default: 30 seconds
	OpenTimeout time.Duration

	// HalfOpenMaxRequests is the max concurrent probe requests allowed in
	// the half-open state.
	// Default: 1
	HalfOpenMaxRequests int

	// Classifier decides which errors count toward circuit health.
	// Errors it rejects leave the breaker untouched.
	// Default: DefaultClassifier (every error counts).
	Classifier Classifier

	// OnStateChange is called when the circuit state changes, while the
	// breaker's lock is held; it must return quickly and must not call back
	// into the breaker.
	OnStateChange func(from, to State)
}

// CircuitBreaker guards a single remote provider. One instance is shared by
// all concurrent callers hitting that provider; all state transitions happen
// inside a single critical section, so two simultaneous failures crossing the
// threshold produce exactly one open transition.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu             sync.Mutex
	state          State
	failures       int
	successes      int
	openedAt       time.Time
	halfOpenAt     time.Time
	halfOpenActive int // probes admitted and not yet resolved

	// Lifetime counters, never reset.
	totalRequests uint64
	totalFailures uint64
	tripCount     uint64
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	// Apply defaults
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.Classifier == nil {
		config.Classifier = DefaultClassifier()
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// CanExecute reports whether a call may proceed. In the open state the first
// caller after OpenTimeout elapses moves the circuit to half-open and is
// admitted as a probe; in the half-open state at most HalfOpenMaxRequests
// probes may be in flight at once. A caller that is admitted must report its
// outcome via RecordSuccess or RecordFailure exactly once.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true

	case StateOpen:
		if time.Since(cb.openedAt) < cb.config.OpenTimeout {
			return false
		}
		// Timeout elapsed: this caller becomes the first half-open probe.
		cb.transitionLocked(StateHalfOpen)
		cb.halfOpenActive = 1
		return true

	case StateHalfOpen:
		if cb.halfOpenActive >= cb.config.HalfOpenMaxRequests {
			return false
		}
		cb.halfOpenActive++
		return true
	}

	return false
}

// RecordSuccess reports a successful attempt. In the closed state it clears
// accumulated failure history; in the half-open state it counts toward
// SuccessThreshold and closes the circuit once reached. It has no effect
// while the circuit is open.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.totalRequests++
		cb.failures = 0

	case StateHalfOpen:
		cb.totalRequests++
		if cb.halfOpenActive > 0 {
			cb.halfOpenActive--
		}
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.transitionLocked(StateClosed)
		}
	}
}

// RecordFailure reports a failed attempt. Errors the classifier does not
// count toward circuit health (throttling, client errors) leave the failure
// counters untouched, but an admitted half-open probe always releases its
// slot: every outcome resolves the probe, only counted failures punish it.
// Counted failures accumulate in the closed state and open the circuit at
// FailureThreshold; in the half-open state a single counted failure re-opens
// the circuit immediately.
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	counted := cb.config.Classifier.IsCircuitFailure(err)

	switch cb.state {
	case StateClosed:
		if !counted {
			return
		}
		cb.totalRequests++
		cb.totalFailures++
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.transitionLocked(StateOpen)
		}

	case StateHalfOpen:
		if cb.halfOpenActive > 0 {
			cb.halfOpenActive--
		}
		if !counted {
			return
		}
		cb.totalRequests++
		cb.totalFailures++
		cb.successes = 0
		cb.transitionLocked(StateOpen)
	}
}

// State returns the current circuit state without mutating it.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the circuit back to closed and clears counted history.
// Lifetime counters are preserved.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateClosed {
		cb.transitionLocked(StateClosed)
		return
	}
	cb.failures = 0
	cb.successes = 0
}

// Execute runs the operation through the circuit breaker, reporting the
// outcome back automatically. Callers composing the breaker with a retry
// executor should instead use CanExecute plus RecordSuccess/RecordFailure so
// each attempt is reported individually.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if !cb.CanExecute() {
		return ErrCircuitOpen
	}

	err := op(ctx)
	if err != nil {
		cb.RecordFailure(err)
	} else {
		cb.RecordSuccess()
	}
	return err
}

// transitionLocked moves the breaker to state, maintaining the timestamps and
// counters tied to each state. Must be called with cb.mu held.
func (cb *CircuitBreaker) transitionLocked(state State) {
	from := cb.state
	if from == state {
		return
	}
	cb.state = state

	switch state {
	case StateOpen:
		cb.openedAt = time.Now()
		cb.halfOpenAt = time.Time{}
		cb.halfOpenActive = 0
		cb.successes = 0
		cb.tripCount++

	case StateHalfOpen:
		cb.halfOpenAt = time.Now()
		cb.openedAt = time.Time{}
		cb.halfOpenActive = 0
		cb.successes = 0

	case StateClosed:
		cb.openedAt = time.Time{}
		cb.halfOpenAt = time.Time{}
		cb.halfOpenActive = 0
		cb.failures = 0
		cb.successes = 0
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, state)
	}
}

// Metrics returns a snapshot of the breaker's counters. It never mutates
// state.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	m := CircuitBreakerMetrics{
		State:         cb.state,
		Failures:      cb.failures,
		Successes:     cb.successes,
		TotalRequests: cb.totalRequests,
		TotalFailures: cb.totalFailures,
		TripCount:     cb.tripCount,
		OpenedAt:      cb.openedAt,
		HalfOpenAt:    cb.halfOpenAt,
	}
	if cb.totalRequests > 0 {
		m.SuccessRate = float64(cb.totalRequests-cb.totalFailures) / float64(cb.totalRequests)
	}
	return m
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State         State
	Failures      int
	Successes     int
	TotalRequests uint64
	TotalFailures uint64
	TripCount     uint64
	SuccessRate   float64
	OpenedAt      time.Time
	HalfOpenAt    time.Time
}
