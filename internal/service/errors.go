package service

import "errors"

// Domain error taxonomy. Handlers translate these at the boundary; nothing
// below the handler layer knows about HTTP statuses or socket events.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotParticipant = errors.New("not a participant of this conversation")
	ErrNotFound       = errors.New("not found")
)
