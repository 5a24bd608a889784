package handlers

import (
	"log"

	"github.com/pocketbase/pocketbase/apis"

	"tickethub/internal/status"
)

// apiError maps the internal error taxonomy onto HTTP responses. Domain
// failures keep their specific message so clients can render something
// actionable; internal errors are logged with full detail and surface only a
// generic message.
func apiError(err error) error {
	code := status.CodeOf(err)
	message := status.MessageOf(err)

	switch code {
	case status.Unauthenticated:
		return apis.NewUnauthorizedError(message, nil)
	case status.PermissionDenied:
		return apis.NewForbiddenError(message, nil)
	case status.NotFound:
		return apis.NewNotFoundError(message, nil)
	case status.InvalidArgument:
		return apis.NewBadRequestError(message, nil)
	case status.AlreadyExists:
		return apis.NewApiError(409, message, map[string]any{"code": string(code)})
	case status.FailedPrecondition:
		return apis.NewApiError(400, message, map[string]any{"code": string(code)})
	default:
		log.Printf("internal error: %v", err)
		return apis.NewApiError(500, "Something went wrong. Please try again.", nil)
	}
}
