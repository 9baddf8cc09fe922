package durasock

import (
	"sync"
	"time"

	"github.com/durasock/durasock/pkg/logger"
)

// reconnectScheduler decides if and when to dial a replacement transport
// after an unexpected closure. It arms at most one timer at a time, and stops
// permanently once the retryer refuses or Stop is called.
type reconnectScheduler struct {
	retryer Retryer
	dial    func()
	log     logger.Logger

	mu        sync.Mutex
	attempt   int
	timer     *time.Timer
	disabled  bool
	exhausted bool
}

func newReconnectScheduler(r Retryer, dial func(), log logger.Logger) *reconnectScheduler {
	return &reconnectScheduler{retryer: r, dial: dial, log: log}
}

// Schedule arms the reconnect timer for the next attempt. It is a no-op while
// a timer is already pending, after Stop, and after the attempt ceiling has
// been reached.
func (s *reconnectScheduler) Schedule(cause error) {
	s.mu.Lock()

	if s.disabled || s.exhausted || s.timer != nil {
		s.mu.Unlock()
		return
	}

	delay, ok := s.retryer.NextDelay(s.attempt, cause)
	if !ok {
		s.exhausted = true
		attempts := s.attempt
		s.mu.Unlock()
		s.log.Info("reconnect attempts exhausted, giving up", "attempts", attempts)
		return
	}

	s.log.Debug("scheduling reconnect", "attempt", s.attempt+1, "delay", delay, "cause", cause)
	s.timer = time.AfterFunc(delay, s.fire)
	s.mu.Unlock()
}

func (s *reconnectScheduler) fire() {
	s.mu.Lock()
	if s.disabled {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.attempt++
	s.mu.Unlock()

	s.dial()
}

// Reset zeroes the attempt count. Called on every successful open.
func (s *reconnectScheduler) Reset() {
	s.mu.Lock()
	s.attempt = 0
	s.exhausted = false
	s.retryer.Reset()
	s.mu.Unlock()
}

// Stop cancels any pending timer and disables further scheduling. Only an
// explicit resume re-enables the scheduler.
func (s *reconnectScheduler) Stop() {
	s.mu.Lock()
	s.disabled = true
	s.cancelLocked()
	s.mu.Unlock()
}

// cancelPending drops a pending timer without disabling the scheduler.
// Used when the visibility gate suspends the connection.
func (s *reconnectScheduler) cancelPending() {
	s.mu.Lock()
	s.cancelLocked()
	s.mu.Unlock()
}

func (s *reconnectScheduler) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// resume re-enables a stopped scheduler with a clean slate. Called when the
// caller explicitly reconnects a closed controller.
func (s *reconnectScheduler) resume() {
	s.mu.Lock()
	s.disabled = false
	s.exhausted = false
	s.attempt = 0
	s.retryer.Reset()
	s.mu.Unlock()
}

// pendingTimer reports whether a reconnect timer is currently armed.
func (s *reconnectScheduler) pendingTimer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}
