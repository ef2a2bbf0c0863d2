package circuit_breaker

import (
	"errors"
	"sync"
	"time"
)

type Status uint8

const (
	Closed   Status = 1
	Open     Status = 2
	HalfOpen Status = 3
)

var ErrOpen = errors.New("circuit breaker is open")

type CircuitBreaker interface {
	Call(fn func() error) error
	Reset()
}

// circuitBreaker tracks the failure rate over a sliding window of calls.
// When the rate crosses the threshold the breaker opens and rejects calls
// until the cooldown passes; it then admits probes in half-open state and
// closes again after enough consecutive successes.
type circuitBreaker struct {
	mu    sync.Mutex
	state Status

	// window of the last windowSize call outcomes, true = failed
	window     []bool
	windowSize int
	pos        int

	// failure rate at which the breaker opens
	threshold float64
	// how long the breaker stays open before probing
	cooldown time.Duration
	openedAt time.Time

	// consecutive successes needed to close from half-open
	recovery     int
	successCount int
}

func New(windowSize int, cooldown time.Duration, threshold float64, recovery int) CircuitBreaker {
	return &circuitBreaker{
		state:      Closed,
		windowSize: windowSize,
		window:     make([]bool, windowSize),
		threshold:  threshold,
		cooldown:   cooldown,
		recovery:   recovery,
	}
}

func (cb *circuitBreaker) Call(fn func() error) error {
	cb.mu.Lock()
	if cb.state == Open {
		if time.Since(cb.openedAt) > cb.cooldown {
			cb.state = HalfOpen
			cb.successCount = 0
		} else {
			cb.mu.Unlock()
			return ErrOpen
		}
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.window[cb.pos] = err != nil
	cb.pos = (cb.pos + 1) % cb.windowSize

	if cb.state == HalfOpen {
		if err != nil {
			cb.successCount = 0
			cb.state = Open
			cb.openedAt = time.Now()
		} else {
			cb.successCount++
			if cb.successCount > cb.recovery {
				cb.Reset()
			}
		}
		return err
	}

	fails := 0
	for _, failed := range cb.window {
		if failed {
			fails++
		}
	}
	if float64(fails)/float64(cb.windowSize) >= cb.threshold {
		cb.state = Open
		cb.successCount = 0
		cb.openedAt = time.Now()
	}

	return err
}

// Reset closes the breaker and forgets recorded outcomes.
func (cb *circuitBreaker) Reset() {
	for i := range cb.window {
		cb.window[i] = false
	}
	cb.successCount = 0
	cb.pos = 0
	cb.state = Closed
}
