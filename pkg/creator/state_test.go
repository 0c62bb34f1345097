package creator

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_HappyPath(t *testing.T) {
	tracker := newTracker(logrus.NewEntry(logrus.StandardLogger()), StateBuilt)

	for _, next := range []State{
		StateSigned,
		StateSubmitted,
		StateProcessed,
		StateConfirmed,
		StateFinalized,
	} {
		require.NoError(t, tracker.advance(next))
		assert.Equal(t, next, tracker.state)
	}

	assert.True(t, tracker.state.IsTerminal())
}

func TestTracker_Transitions(t *testing.T) {
	for _, tc := range []struct {
		from  State
		to    State
		valid bool
	}{
		{StateBuilt, StateSigned, true},
		{StateSubmitted, StateConfirmed, true},
		{StateSubmitted, StateFinalized, true},
		{StateSigned, StateRejected, true},
		{StateProcessed, StateRejected, true},
		{StateSubmitted, StateDropped, true},
		{StateConfirmed, StateConfirmed, true},

		{StateSigned, StateBuilt, false},
		{StateConfirmed, StateProcessed, false},
		{StateBuilt, StateRejected, false},
		{StateSigned, StateDropped, false},
		{StateFinalized, StateRejected, false},
		{StateRejected, StateConfirmed, false},
		{StateDropped, StateProcessed, false},
		{StateSubmitted, StateUnknown, false},
	} {
		tracker := newTracker(logrus.NewEntry(logrus.StandardLogger()), tc.from)

		err := tracker.advance(tc.to)
		if tc.valid {
			assert.NoError(t, err, "%s -> %s", tc.from, tc.to)
			assert.Equal(t, tc.to, tracker.state)
		} else {
			assert.True(t, errors.Is(err, ErrInvalidStateTransition), "%s -> %s", tc.from, tc.to)
			assert.Equal(t, tc.from, tracker.state)
		}
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "built", StateBuilt.String())
	assert.Equal(t, "finalized", StateFinalized.String())
	assert.Equal(t, "dropped", StateDropped.String())
	assert.Equal(t, "unknown", State(100).String())
}
