package durasock

import "fmt"

// State is the lifecycle state of a [Conn].
type State int

const (
	// StateIdle means the controller has been constructed but never dialed.
	StateIdle State = iota
	// StateConnecting means a transport dial is in flight.
	StateConnecting
	// StateOpen means the transport is live and the heartbeat is running.
	StateOpen
	// StateClosing means a manual Close is tearing the controller down.
	StateClosing
	// StateReconnecting means the transport was lost and the controller is
	// waiting to dial a replacement (or is suspended by the visibility gate).
	StateReconnecting
	// StateClosed means the controller was closed by the caller. It is
	// terminal until Connect is called explicitly again.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateOpen:
		return "Open"
	case StateClosing:
		return "Closing"
	case StateReconnecting:
		return "Reconnecting"
	case StateClosed:
		return "Closed"
	default:
		return "InvalidState"
	}
}

func (s State) validateTransitionTo(newState State) error {
	switch s {
	case StateIdle:
		switch newState {
		case StateConnecting, StateClosing:
			return nil
		}
	case StateConnecting:
		switch newState {
		// Connecting back to Idle happens when the very first dial fails
		// and the error is returned to the caller instead of retried.
		case StateOpen, StateIdle, StateReconnecting, StateClosing:
			return nil
		}
	case StateOpen:
		switch newState {
		case StateReconnecting, StateClosing:
			return nil
		}
	case StateReconnecting:
		switch newState {
		case StateConnecting, StateClosing:
			return nil
		}
	case StateClosing:
		if newState == StateClosed {
			return nil
		}
	case StateClosed:
		// Explicit reopen.
		if newState == StateConnecting {
			return nil
		}
	}

	return fmt.Errorf("invalid state transition from %v to %v", s, newState)
}
