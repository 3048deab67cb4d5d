package ws

import (
	"errors"

	"github.com/cwrk-planet/interview-room/internal/domain"
)

// ClientMessage maps an error to the text sent in room:error.
func ClientMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInterviewIDRequired):
		return "interview_id is required"
	case errors.Is(err, domain.ErrInterviewNotFound):
		return "Interview not found"
	case errors.Is(err, domain.ErrRoomFull):
		return "Room is full"
	case errors.Is(err, domain.ErrNotInRoom):
		return "You are not in this room"
	case errors.Is(err, domain.ErrJoinFailed):
		return "Failed to join room"
	case errors.Is(err, domain.ErrMessageTooLong):
		return "Message is too long"
	case errors.Is(err, domain.ErrUnknownEvent):
		return "unknown event"
	case errors.Is(err, domain.ErrInvalidPayload):
		return "Invalid payload"
	default:
		return "Internal error"
	}
}

// reason is the metrics label for room_errors_total.
func reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInterviewIDRequired):
		return "missing_id"
	case errors.Is(err, domain.ErrInterviewNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrRoomFull):
		return "room_full"
	case errors.Is(err, domain.ErrNotInRoom):
		return "not_in_room"
	case errors.Is(err, domain.ErrJoinFailed):
		return "join_failed"
	case errors.Is(err, domain.ErrMessageTooLong):
		return "too_long"
	case errors.Is(err, domain.ErrUnknownEvent):
		return "unknown_event"
	case errors.Is(err, domain.ErrInvalidPayload):
		return "invalid_payload"
	default:
		return "internal"
	}
}
