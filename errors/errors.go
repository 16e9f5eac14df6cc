package errors

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrInvalidRequest       = fmt.Errorf("invalid request")
	ErrUnauthorized         = fmt.Errorf("unauthorized")
	ErrPersistence          = fmt.Errorf("persistence failure")
	ErrNotMember            = fmt.Errorf("principal is not a member of the conversation")
	ErrNotAdmin             = fmt.Errorf("principal is not the conversation admin")
	ErrConversationNotFound = fmt.Errorf("conversation not found")
	ErrUserNotFound         = fmt.Errorf("user not found")
	ErrEmailTaken           = fmt.Errorf("email already registered")
	ErrBadCredentials       = fmt.Errorf("bad credentials")
	ErrInvalidPassword      = fmt.Errorf("password does not meet complexity requirements")
	ErrAlreadyBound         = fmt.Errorf("session already bound to another principal")
	ErrSessionNotFound      = fmt.Errorf("session not found")
	ErrSlowConsumer         = fmt.Errorf("subscriber buffer full, event dropped")
	ErrWorkerPanic          = fmt.Errorf("worker panic")
)

// MapToHTTPStatus translates domain sentinels to HTTP status codes at the
// fiber boundary. Unknown errors map to 500.
func MapToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidPassword):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrBadCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrNotMember), errors.Is(err, ErrNotAdmin):
		return fiber.StatusForbidden
	case errors.Is(err, ErrConversationNotFound), errors.Is(err, ErrUserNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrEmailTaken):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
