package durasock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "Idle", StateIdle.String())
	assert.Equal(t, "Connecting", StateConnecting.String())
	assert.Equal(t, "Open", StateOpen.String())
	assert.Equal(t, "Closing", StateClosing.String())
	assert.Equal(t, "Reconnecting", StateReconnecting.String())
	assert.Equal(t, "Closed", StateClosed.String())
	assert.Equal(t, "InvalidState", State(99).String())
}

func TestStateTransitions(t *testing.T) {
	all := []State{
		StateIdle, StateConnecting, StateOpen,
		StateClosing, StateReconnecting, StateClosed,
	}

	valid := map[State][]State{
		StateIdle:         {StateConnecting, StateClosing},
		StateConnecting:   {StateOpen, StateIdle, StateReconnecting, StateClosing},
		StateOpen:         {StateReconnecting, StateClosing},
		StateReconnecting: {StateConnecting, StateClosing},
		StateClosing:      {StateClosed},
		StateClosed:       {StateConnecting},
	}

	allowed := func(from, to State) bool {
		for _, s := range valid[from] {
			if s == to {
				return true
			}
		}
		return false
	}

	for _, from := range all {
		for _, to := range all {
			err := from.validateTransitionTo(to)
			if allowed(from, to) {
				assert.NoError(t, err, "%v -> %v should be valid", from, to)
			} else {
				assert.Error(t, err, "%v -> %v should be invalid", from, to)
			}
		}
	}
}
