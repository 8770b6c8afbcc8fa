package circuitbreaker

import (
	"sync"
	"time"
)

// State is one of the three circuit breaker states.
type State int

const (
	Closed   State = iota // healthy, requests pass through
	Open                  // tripped, requests rejected until cooldown elapses
	HalfOpen              // cooldown elapsed, probing with one request
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Decision is the outcome of an admission check.
type Decision int

const (
	Reject Decision = iota
	Pass
)

// Admission is the result of Allow, carrying the secondary probe flag
// required by the admission table.
type Admission struct {
	Decision Decision
	IsProbe  bool
	Reason   string
}

// FailureKind is the set of non-success outcomes a breaker can record.
// HARD_DECLINE still transitions state (clearing a HALF_OPEN probe,
// reopening on a failed probe) but is never appended to the window — a
// processor is not "down" because cards are stolen.
type FailureKind int

const (
	SoftDecline FailureKind = iota
	RateLimited
	Timeout
	HardDecline
)

// Config holds the tunables of one breaker, sourced from environment
// configuration.
type Config struct {
	WindowSize      int
	WindowSeconds   time.Duration
	TripThreshold   float64
	CooldownSeconds time.Duration
	MinSamples      int
}

// StatusReport is the snapshot served by GET /processors/status.
type StatusReport struct {
	State                    State
	SuccessRate              float64
	TotalCallsInWindow       int
	SuccessfulCallsInWindow  int
	FailedCallsInWindow      int
	LastFailureAt            *time.Time
	CooldownRemainingSeconds *float64
}

// CircuitBreaker wraps one rolling window and the three-state machine of
// Its mutation is serialized by a per-breaker mutex; the lock is
// never held across a suspension point — callers invoke Allow/Record
// outside of any network call.
type CircuitBreaker struct {
	mutex sync.Mutex

	cfg    Config
	window *window

	state         State
	openedAt      *time.Time
	lastFailureAt *time.Time
	probeInFlight bool
}

// NewCircuitBreaker constructs a breaker in the CLOSED state with an
// empty window.
func NewCircuitBreaker(cfg Config) *CircuitBreaker {
	return &CircuitBreaker{
		cfg:    cfg,
		window: newWindow(cfg.WindowSize, cfg.WindowSeconds),
		state:  Closed,
	}
}

// Allow decides whether a call should be admitted at time now. It may
// transition OPEN to HALF_OPEN once the cooldown has elapsed. Only one
// probe is admitted at a time while HALF_OPEN — this implementation's
// resolution of the HALF_OPEN-concurrency open question (see DESIGN.md).
func (cb *CircuitBreaker) Allow(now time.Time) Admission {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case Closed:
		return Admission{Decision: Pass}

	case Open:
		if cb.openedAt != nil && !now.Before(cb.openedAt.Add(cb.cfg.CooldownSeconds)) {
			cb.state = HalfOpen
			cb.probeInFlight = true
			return Admission{Decision: Pass, IsProbe: true}
		}
		return Admission{Decision: Reject, Reason: "circuit_open"}

	case HalfOpen:
		if cb.probeInFlight {
			return Admission{Decision: Reject, Reason: "circuit_open"}
		}
		cb.probeInFlight = true
		return Admission{Decision: Pass, IsProbe: true}

	default:
		return Admission{Decision: Reject, Reason: "circuit_open"}
	}
}

// RecordSuccess records a successful call. A single success while
// HALF_OPEN fully closes the breaker and clears the window so recovery
// does not inherit stale failures. While CLOSED, a trip is re-evaluated
// immediately: window eviction is lazy, so a success call can itself
// age out enough stale successes to drop the rate below threshold.
func (cb *CircuitBreaker) RecordSuccess(now time.Time) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.window.record(true, now)

	switch cb.state {
	case HalfOpen:
		cb.state = Closed
		cb.openedAt = nil
		cb.probeInFlight = false
		cb.window.reset()
	case Closed:
		cb.evaluateTrip(now)
	}
}

// RecordFailure records a non-success outcome. HARD_DECLINE still clears
// a HALF_OPEN probe and reopens the circuit on a failed probe, but is
// never appended to the window — a processor is not "down" because cards
// are stolen. A probe failure of any kind while HALF_OPEN reopens the
// circuit and resets the cooldown clock.
func (cb *CircuitBreaker) RecordFailure(now time.Time, kind FailureKind) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.lastFailureAt = &now
	if kind != HardDecline {
		cb.window.record(false, now)
	}

	switch cb.state {
	case HalfOpen:
		cb.state = Open
		opened := now
		cb.openedAt = &opened
		cb.probeInFlight = false
	case Closed:
		cb.evaluateTrip(now)
	}
}

// evaluateTrip runs after every record on a CLOSED breaker: once the
// sample count reaches the minimum, a success rate below the trip
// threshold opens the circuit.
func (cb *CircuitBreaker) evaluateTrip(now time.Time) {
	total, successes := cb.window.snapshot(now)
	if total < cb.cfg.MinSamples {
		return
	}
	rate := float64(successes) / float64(total)
	if rate < cb.cfg.TripThreshold {
		cb.state = Open
		opened := now
		cb.openedAt = &opened
	}
}

// Status returns a snapshot suitable for the processors/status endpoint.
func (cb *CircuitBreaker) Status(now time.Time) StatusReport {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	total, successes := cb.window.snapshot(now)
	failed := total - successes

	rate := 1.0
	if total > 0 {
		rate = float64(successes) / float64(total)
	}

	report := StatusReport{
		State:                   cb.state,
		SuccessRate:             rate,
		TotalCallsInWindow:      total,
		SuccessfulCallsInWindow: successes,
		FailedCallsInWindow:     failed,
	}

	if cb.lastFailureAt != nil {
		t := *cb.lastFailureAt
		report.LastFailureAt = &t
	}

	if cb.state == Open && cb.openedAt != nil {
		remaining := cb.cfg.CooldownSeconds - now.Sub(*cb.openedAt)
		if remaining < 0 {
			remaining = 0
		}
		seconds := remaining.Seconds()
		report.CooldownRemainingSeconds = &seconds
	}

	return report
}

// Reset returns the breaker to CLOSED with an empty window (admin op).
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.window.reset()
	cb.state = Closed
	cb.openedAt = nil
	cb.lastFailureAt = nil
	cb.probeInFlight = false
}

// InjectFailures appends count synthetic failures at now and immediately
// re-evaluates the trip condition (admin op).
func (cb *CircuitBreaker) InjectFailures(now time.Time, count int) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.window.injectFailures(count, now)
	cb.lastFailureAt = &now

	if cb.state == Closed {
		cb.evaluateTrip(now)
	}
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}
