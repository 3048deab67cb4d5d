package domain

import "errors"

var (
	ErrInterviewIDRequired = errors.New("interview_id is required")
	ErrInterviewNotFound   = errors.New("interview not found")
	ErrRoomFull            = errors.New("room is full")
	ErrNotInRoom           = errors.New("connection not in the room")
	ErrJoinFailed          = errors.New("failed to join room")
	ErrInvalidPayload      = errors.New("invalid payload")
	ErrUnknownEvent        = errors.New("unknown event")
	ErrMessageTooLong      = errors.New("message is too long")
)
