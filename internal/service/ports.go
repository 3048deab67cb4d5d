package service

import (
	"context"

	"github.com/cwrk-planet/interview-room/internal/domain"
	"github.com/cwrk-planet/interview-room/internal/event"
)

// Participant is a connection as the services see it.
type Participant interface {
	ID() string
	Identity() domain.Identity
	// CurrentRoom возвращает 0, если соединение ни в какой комнате.
	CurrentRoom() domain.InterviewID
	SetCurrentRoom(id domain.InterviewID)
}

// Multicaster is the transport's grouping capability.
type Multicaster interface {
	JoinGroup(connID string, group domain.RoomKey)
	LeaveGroup(connID string, group domain.RoomKey)
	// Broadcast to group, skipping excludeConnID ("" = nobody). Returns receivers.
	Broadcast(group domain.RoomKey, msg event.Message, excludeConnID string) int
	BroadcastAll(msg event.Message) int
	SendTo(connID string, msg event.Message) error
}

// InterviewLookup answers whether an interview exists.
// Get must return domain.ErrInterviewNotFound for unknown ids.
type InterviewLookup interface {
	Get(ctx context.Context, id domain.InterviewID) (domain.Interview, error)
	Ping(ctx context.Context) error
}
