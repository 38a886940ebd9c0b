package circuit_breaker

import (
	"errors"
	"sync"
	"time"
)

type State uint8

const (
	Closed   State = 1
	Open     State = 2
	HalfOpen State = 3
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

var ErrOpen = errors.New("circuit breaker is open")

type CircuitBreaker interface {
	Call(fn func() error) error
	State() State
	Reset()
}

type circuitBreaker struct {
	mu    sync.Mutex
	state State
	// size of the sliding window of recorded outcomes
	window int
	// how long the breaker stays open before letting a probe through
	timeout time.Duration
	// failure ratio in the window that opens the breaker
	threshold float64
	// consecutive half-open successes required to close again
	recoveryRequests int

	outcomes     []bool
	pos          int
	successCount int
	openedAt     time.Time
	now          func() time.Time
}

func New(window int, timeout time.Duration, threshold float64, recoveryRequests int) CircuitBreaker {
	return newCircuitBreaker(window, timeout, threshold, recoveryRequests, time.Now)
}

func newCircuitBreaker(window int, timeout time.Duration, threshold float64, recoveryRequests int, now func() time.Time) *circuitBreaker {
	if window <= 0 {
		window = 1
	}
	return &circuitBreaker{
		state:            Closed,
		window:           window,
		timeout:          timeout,
		threshold:        threshold,
		recoveryRequests: recoveryRequests,
		outcomes:         make([]bool, window),
		now:              now,
	}
}

func (cb *circuitBreaker) Call(fn func() error) error {
	cb.mu.Lock()
	if cb.state == Open {
		if cb.now().Sub(cb.openedAt) <= cb.timeout {
			cb.mu.Unlock()
			return ErrOpen
		}
		cb.state = HalfOpen
		cb.successCount = 0
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.outcomes[cb.pos] = err != nil
	cb.pos = (cb.pos + 1) % cb.window

	if cb.state == HalfOpen {
		if err != nil {
			cb.trip()
			return err
		}
		cb.successCount++
		if cb.successCount >= cb.recoveryRequests {
			cb.reset()
		}
		return err
	}

	fails := 0
	for _, failed := range cb.outcomes {
		if failed {
			fails++
		}
	}
	if float64(fails)/float64(cb.window) >= cb.threshold {
		cb.trip()
	}
	return err
}

func (cb *circuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *circuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.reset()
}

func (cb *circuitBreaker) trip() {
	cb.state = Open
	cb.successCount = 0
	cb.openedAt = cb.now()
}

func (cb *circuitBreaker) reset() {
	for i := range cb.outcomes {
		cb.outcomes[i] = false
	}
	cb.successCount = 0
	cb.pos = 0
	cb.state = Closed
}
