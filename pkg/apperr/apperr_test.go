package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		kind   Kind
		status int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindBadRequest, http.StatusBadRequest},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			e := &Error{Kind: tt.kind, Message: "x"}
			assert.Equal(t, tt.status, e.Status())
		})
	}
}

func TestFrom(t *testing.T) {
	t.Run("passes typed errors through", func(t *testing.T) {
		orig := NotFound("workspace not found")
		got := From(orig)
		assert.Same(t, orig, got)
	})

	t.Run("unwraps wrapped typed errors", func(t *testing.T) {
		orig := Conflict("email already registered")
		wrapped := fmt.Errorf("signup: %w", orig)
		got := From(wrapped)
		assert.Equal(t, KindConflict, got.Kind)
		assert.Equal(t, "email already registered", got.Message)
	})

	t.Run("masks untyped errors as internal", func(t *testing.T) {
		got := From(errors.New("pq: connection refused"))
		assert.Equal(t, KindInternal, got.Kind)
		assert.Equal(t, "internal server error", got.Message)
		// The cause stays available for server-side logging.
		require.Error(t, got.Unwrap())
		assert.Contains(t, got.Unwrap().Error(), "connection refused")
	})
}

func TestValidationIssues(t *testing.T) {
	e := Validation("invalid input",
		Issue{Field: "email", Message: "must be a valid email", Code: "email"},
		Issue{Field: "password", Message: "is required", Code: "required"},
	)
	assert.Len(t, e.Issues, 2)
	assert.Equal(t, "email", e.Issues[0].Field)
	assert.Equal(t, http.StatusBadRequest, e.Status())
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("guard: %w", Unauthorized("not a member of this workspace"))
	assert.True(t, IsKind(err, KindUnauthorized))
	assert.False(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(errors.New("plain"), KindUnauthorized))
}
