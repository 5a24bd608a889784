package handlers

import (
	"errors"
	"testing"

	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickethub/internal/status"
)

func asApiError(t *testing.T, err error) *router.ApiError {
	t.Helper()
	var apiErr *router.ApiError
	require.ErrorAs(t, err, &apiErr)
	return apiErr
}

func TestApiErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantMsg    string
	}{
		{status.E(status.Unauthenticated, "authentication required"), 401, "authentication required"},
		{status.E(status.PermissionDenied, "site admin role required"), 403, "site admin role required"},
		{status.E(status.NotFound, "event not found"), 404, "event not found"},
		{status.E(status.InvalidArgument, "eventId is required"), 400, "eventId is required"},
		{status.E(status.AlreadyExists, "bookmark already exists"), 409, "bookmark already exists"},
		{status.E(status.FailedPrecondition, "No tickets available"), 400, "No tickets available"},
	}

	for _, tc := range tests {
		apiErr := asApiError(t, apiError(tc.err))
		assert.Equal(t, tc.wantStatus, apiErr.Status, "%v", tc.err)
		assert.Equal(t, tc.wantMsg, apiErr.Message, "%v", tc.err)
	}
}

func TestApiErrorHidesInternalDetail(t *testing.T) {
	apiErr := asApiError(t, apiError(errors.New("dial tcp 10.0.0.1:6379: connection refused")))
	assert.Equal(t, 500, apiErr.Status)
	assert.NotContains(t, apiErr.Message, "10.0.0.1")

	wrapped := asApiError(t, apiError(status.Wrap(status.Internal, "failed to load event", errors.New("row scan failed"))))
	assert.Equal(t, 500, wrapped.Status)
	assert.NotContains(t, wrapped.Message, "row scan failed")
}
