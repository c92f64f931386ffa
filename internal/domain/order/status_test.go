package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{
		StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded,
	} {
		assert.True(t, s.Valid(), "%s", s)
	}

	assert.False(t, Status("packed").Valid())
	assert.False(t, Status("").Valid())
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusRefunded.Terminal())

	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusConfirmed.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.False(t, StatusShipped.Terminal())
}

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// Forward moves along the fulfillment chain, including jumps.
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusShipped, true},
		{StatusConfirmed, StatusProcessing, true},
		{StatusConfirmed, StatusDelivered, true},
		{StatusProcessing, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},

		// No backward moves, no self-loops.
		{StatusConfirmed, StatusPending, false},
		{StatusShipped, StatusProcessing, false},
		{StatusProcessing, StatusProcessing, false},

		// Cancelled and refunded are reachable from any non-terminal state.
		{StatusPending, StatusCancelled, true},
		{StatusShipped, StatusCancelled, true},
		{StatusPending, StatusRefunded, true},
		{StatusShipped, StatusRefunded, true},

		// Terminal states are dead ends.
		{StatusDelivered, StatusRefunded, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusRefunded, StatusCancelled, false},

		// Unknown targets are rejected.
		{StatusPending, Status("packed"), false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}
