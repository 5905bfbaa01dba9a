package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilder(t *testing.T) {
	err := NewError("tenant not found").
		WithHint("Tenant does not exist").
		WithReportableDetails(map[string]any{"tenant_id": "ten_1"}).
		Mark(ErrNotFound)

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsAlreadyExists(err))
	assert.Equal(t, "Tenant does not exist", GetHint(err))
	assert.Equal(t, "ten_1", GetReportableDetails(err)["tenant_id"])
	assert.Equal(t, http.StatusNotFound, HTTPStatusFromErr(err))
}

func TestWithErrorKeepsCause(t *testing.T) {
	cause := NewError("duplicate key").Mark(ErrAlreadyExists)
	err := WithError(cause).WithHint("Signup already exists").Mark(ErrDatabase)

	assert.True(t, IsAlreadyExists(err))
	assert.True(t, IsDatabase(err))
}

func TestBoundaryViolationResponseHidesDetails(t *testing.T) {
	err := NewError("row belongs to ten_b").
		WithReportableDetails(map[string]any{"owner": "ten_b"}).
		Mark(ErrBoundaryViolation)

	resp := NewErrorResponse(err)
	assert.Equal(t, http.StatusForbidden, HTTPStatusFromErr(err))
	assert.Equal(t, "access denied", resp.Error.Message)
	assert.Nil(t, resp.Error.Details)
	assert.NotContains(t, resp.Error.Message, "ten_b")
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		kind   error
		status int
	}{
		{ErrTenantTamper, http.StatusForbidden},
		{ErrInvalidTenant, http.StatusBadRequest},
		{ErrFeatureUnavailable, http.StatusForbidden},
		{ErrUnauthenticated, http.StatusUnauthorized},
		{ErrRateLimited, http.StatusTooManyRequests},
		{ErrInvalidOperation, http.StatusBadRequest},
		{ErrDatabase, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		err := NewError("x").Mark(tt.kind)
		assert.Equal(t, tt.status, HTTPStatusFromErr(err), tt.kind.Error())
	}
}

func TestInternalErrorsAreMasked(t *testing.T) {
	err := NewError("pq: connection refused").Mark(ErrDatabase)
	resp := NewErrorResponse(err)
	assert.Equal(t, "internal server error", resp.Error.Message)
}
