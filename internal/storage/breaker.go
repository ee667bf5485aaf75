package storage

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCircuitOpen is returned while the breaker rejects calls to the object store
var ErrCircuitOpen = errors.New("storage: circuit breaker open")

// CircuitBreaker stops calling an object store that keeps failing
type CircuitBreaker struct {
	Storage

	failureThreshold int
	resetTimeout     time.Duration
	logger           *zap.Logger

	consecutiveFailures int
	isOpen              bool
	halfOpen            bool // a single trial call is in flight
	openedAt            time.Time
	now                 func() time.Time

	mutex sync.Mutex
}

// NewCircuitBreaker wraps store. It opens after failureThreshold consecutive failures
// and lets one trial call through once resetTimeout has passed.
func NewCircuitBreaker(store Storage, failureThreshold int, resetTimeout time.Duration, logger *zap.Logger) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	return &CircuitBreaker{
		Storage:          store,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		logger:           logger,
		now:              time.Now,
	}
}

func (cb *CircuitBreaker) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if !cb.canProceed() {
		return "", ErrCircuitOpen
	}
	url, err := cb.Storage.Upload(ctx, key, r, size, contentType)
	cb.record(err)
	return url, err
}

func (cb *CircuitBreaker) Delete(ctx context.Context, key string) error {
	if !cb.canProceed() {
		return ErrCircuitOpen
	}
	err := cb.Storage.Delete(ctx, key)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) record(err error) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	trial := cb.halfOpen
	cb.halfOpen = false

	// a cancelled request says nothing about the store
	if err == nil || errors.Is(err, context.Canceled) {
		if trial {
			cb.logger.Info("storage circuit breaker closed")
		}
		cb.isOpen = false
		cb.consecutiveFailures = 0
		return
	}

	cb.consecutiveFailures++
	if trial || (!cb.isOpen && cb.consecutiveFailures >= cb.failureThreshold) {
		cb.isOpen = true
		cb.openedAt = cb.now()
		cb.logger.Error("storage circuit breaker open",
			zap.Int("consecutive_failures", cb.consecutiveFailures),
			zap.Duration("retry_after", cb.resetTimeout),
			zap.Error(err),
		)
	}
}

func (cb *CircuitBreaker) canProceed() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if !cb.isOpen {
		return true
	}
	if cb.halfOpen || cb.now().Sub(cb.openedAt) <= cb.resetTimeout {
		return false
	}

	cb.logger.Info("storage circuit breaker half-open, trying again")
	cb.halfOpen = true
	return true
}

// IsOpen reports whether calls are currently rejected
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.isOpen
}
