package riding

import (
	"testing"

	"rideon-backend/internal/shared/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     Status
		err      error
	}{
		{StatusActive, StatusPaused, StatusPaused, nil},
		{StatusPaused, StatusActive, StatusActive, nil},
		{StatusActive, StatusActive, StatusActive, nil},
		{StatusPaused, StatusPaused, StatusPaused, nil},
		{StatusActive, StatusCompleted, StatusCompleted, nil},
		{StatusPaused, StatusCompleted, StatusCompleted, nil},
		{StatusActive, StatusCancelled, StatusCancelled, nil},
		{StatusPaused, StatusCancelled, StatusCancelled, nil},
		{StatusCompleted, StatusActive, StatusCompleted, apperr.ErrInvalidTransition},
		{StatusCompleted, StatusPaused, StatusCompleted, apperr.ErrInvalidTransition},
		{StatusCompleted, StatusCompleted, StatusCompleted, nil},
		{StatusCompleted, StatusCancelled, StatusCompleted, apperr.ErrInvalidTransition},
		{StatusCancelled, StatusCancelled, StatusCancelled, nil},
		{StatusCancelled, StatusActive, StatusCancelled, apperr.ErrInvalidTransition},
		{StatusCancelled, StatusCompleted, StatusCancelled, apperr.ErrInvalidTransition},
		{StatusActive, Status("RIDING"), StatusActive, apperr.ErrValidation},
	}
	for _, tc := range cases {
		got, err := Transition(tc.from, tc.to)
		if tc.err != nil {
			require.ErrorIs(t, err, tc.err, "%s -> %s", tc.from, tc.to)
		} else {
			require.NoError(t, err, "%s -> %s", tc.from, tc.to)
		}
		assert.Equal(t, tc.want, got, "%s -> %s", tc.from, tc.to)
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusActive.Terminal())
	assert.False(t, StatusPaused.Terminal())
	assert.False(t, Status("").Valid())
	assert.True(t, StatusPaused.Valid())
}
