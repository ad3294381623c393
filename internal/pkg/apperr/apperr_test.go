package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_WrappedError(t *testing.T) {
	err := fmt.Errorf("create service: %w", Conflict("service %q already exists", "Screen Repair"))

	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, IsConflict(err))
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestKindOf_Unclassified(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.False(t, IsAuthorization(errors.New("boom")))
}

func TestMessage_HidesInternalDetail(t *testing.T) {
	internal := Internal("load account", errors.New("pq: connection refused"))
	assert.NotContains(t, Message(internal), "connection refused")
	assert.NotContains(t, Message(errors.New("sql: no rows")), "sql")

	assert.Equal(t, "user not found", Message(NotFound("user")))
}

func TestValidation_Details(t *testing.T) {
	err := Validation("invalid input", map[string]string{"Email": "email"})
	assert.True(t, IsValidation(err))
	assert.Equal(t, map[string]any{"Email": "email"}, Details(err))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Internal("save part", cause)
	assert.ErrorIs(t, err, cause)
}
