package statemachine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmdock/backend/pkg/statemachine"
)

type state string
type event string

const (
	pending   state = "PENDING"
	active    state = "ACTIVE"
	cancelled state = "CANCELLED"

	activate event = "activate"
	cancel   event = "cancel"
)

func TestTable(t *testing.T) {
	t.Parallel()

	table := statemachine.MustNew(
		statemachine.Transition[state, event]{From: pending, Event: activate, To: active},
		statemachine.Transition[state, event]{From: pending, Event: cancel, To: cancelled},
		statemachine.Transition[state, event]{From: active, Event: cancel, To: cancelled},
	)

	t.Run("legal move", func(t *testing.T) {
		t.Parallel()
		to, err := table.Next(pending, activate)
		require.NoError(t, err)
		assert.Equal(t, active, to)
		assert.True(t, table.Can(active, cancel))
	})

	t.Run("illegal move", func(t *testing.T) {
		t.Parallel()
		_, err := table.Next(cancelled, activate)
		require.Error(t, err)
		assert.True(t, statemachine.IsNoTransitionAvailableError(err))
		assert.False(t, table.Can(active, activate))
	})

	t.Run("events per state", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []event{activate, cancel}, table.Events(pending))
		assert.Empty(t, table.Events(cancelled))
	})
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := statemachine.New(
		statemachine.Transition[state, event]{From: pending, Event: activate, To: active},
		statemachine.Transition[state, event]{From: pending, Event: activate, To: cancelled},
	)
	assert.ErrorIs(t, err, statemachine.ErrDuplicateTransition)

	_, err = statemachine.New(statemachine.Transition[state, event]{From: pending, To: active})
	assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)

	assert.Panics(t, func() {
		statemachine.MustNew(statemachine.Transition[state, event]{From: pending, To: active})
	})
}
