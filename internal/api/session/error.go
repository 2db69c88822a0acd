package session

import (
	"errors"

	"AccessAI/internal/mode"
	"AccessAI/pkg/confirmation"
	"AccessAI/pkg/response"
)

var (
	ErrInvalidMode         = response.NewError(400, "Invalid mode")
	ErrInvalidEvent        = response.NewError(400, "Invalid event")
	ErrSessionNotFound     = response.NewError(404, "Session not found")
	ErrStaleToken          = response.NewError(409, "Event token does not match the session")
	ErrConfirmationPending = response.NewError(409, "Confirmation pending")
	ErrSessionClosed       = response.NewError(410, "Session closed")
	ErrUnsupportedEvent    = response.NewError(422, "Event not supported in this mode")
	ErrTooManySessions     = response.NewError(503, "Too many sessions")
	ErrCreateSession       = response.NewError(500, "Failed to create session")
)

// FromModeError maps errors from the mode package onto API errors.
func FromModeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mode.ErrSessionClosed):
		return ErrSessionClosed
	case errors.Is(err, mode.ErrStaleToken):
		return ErrStaleToken
	case errors.Is(err, mode.ErrUnsupported):
		return ErrUnsupportedEvent
	case errors.Is(err, mode.ErrUnknownEvent), errors.Is(err, mode.ErrInvalidEvent):
		return ErrInvalidEvent
	case errors.Is(err, mode.ErrUnknownMode):
		return ErrInvalidMode
	case errors.Is(err, confirmation.ErrPending):
		return ErrConfirmationPending
	}
	return err
}
