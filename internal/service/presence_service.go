package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cwrk-planet/interview-room/internal/domain"
	"github.com/cwrk-planet/interview-room/internal/event"
	"github.com/cwrk-planet/interview-room/internal/metrics"
	"github.com/cwrk-planet/interview-room/internal/room"
)

const (
	DefaultMaxParticipants = 2
	DefaultLookupTimeout   = 5 * time.Second
)

type PresenceConfig struct {
	MaxParticipants int           // 0 - без ограничения
	LookupTimeout   time.Duration // таймаут проверки интервью
}

// PresenceService is the only writer of room membership. Group changes,
// registry changes and the resulting status broadcasts happen under mu, so
// every client sees the participant counts of a room in order.
type PresenceService struct {
	mu sync.Mutex

	registry *room.Registry
	groups   Multicaster
	lookup   InterviewLookup

	cfg PresenceConfig
	now func() time.Time
}

func NewPresenceService(reg *room.Registry, groups Multicaster, lookup InterviewLookup, cfg PresenceConfig) *PresenceService {
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = DefaultLookupTimeout
	}
	if cfg.MaxParticipants < 0 {
		cfg.MaxParticipants = 0
	}
	return &PresenceService{
		registry: reg,
		groups:   groups,
		lookup:   lookup,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *PresenceService) Join(ctx context.Context, p Participant, id domain.InterviewID) error {
	if !id.Valid() {
		return domain.ErrInterviewIDRequired
	}

	// lookup идёт без блокировки: реестр не трогаем, пока нет ответа
	lctx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()
	if _, err := s.lookup.Get(lctx, id); err != nil {
		if errors.Is(err, domain.ErrInterviewNotFound) {
			return domain.ErrInterviewNotFound
		}
		slog.Warn("interview lookup failed", "interview_id", id, "conn", p.ID(), "err", err)
		return fmt.Errorf("%w: %v", domain.ErrJoinFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	already := s.registry.Contains(id, p.ID())
	if !already && s.cfg.MaxParticipants > 0 && s.registry.MemberCount(id) >= s.cfg.MaxParticipants {
		return domain.ErrRoomFull
	}

	if cur := p.CurrentRoom(); cur.Valid() && cur != id {
		s.leaveLocked(p, cur)
	}

	key := id.RoomKey()
	s.groups.JoinGroup(p.ID(), key)
	p.SetCurrentRoom(id)
	count := s.registry.AddMember(id, p.ID())

	ident := p.Identity()
	ref := ident.Ref()
	s.groups.Broadcast(key, event.Message{
		Type: event.RoomStatus,
		Payload: event.RoomStatusPayload{
			InterviewID:  id,
			Status:       event.StatusActive,
			Participants: count,
			Message:      ident.Name + " joined the room",
			JoinedUser:   &ref,
			Timestamp:    event.Timestamp(s.now()),
		},
	}, "")
	s.groups.BroadcastAll(event.Message{
		Type: event.RoomUpdated,
		Payload: event.RoomUpdatedPayload{
			InterviewID:  id,
			Active:       true,
			Participants: count,
		},
	})

	if !already {
		metrics.RoomJoins.Inc()
	}
	metrics.ActiveRooms.Set(float64(s.registry.Len()))
	slog.Info("room join", "room", key, "user", ident.UserID, "conn", p.ID(), "participants", count)

	return nil
}

// Leave is the single leave path, used by room:leave and by disconnect.
// id == 0 means "whatever room the participant is in".
func (s *PresenceService) Leave(p Participant, id domain.InterviewID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := p.CurrentRoom()
	if !cur.Valid() {
		return false
	}
	if id.Valid() && id != cur {
		return false
	}
	s.leaveLocked(p, cur)
	return true
}

func (s *PresenceService) leaveLocked(p Participant, id domain.InterviewID) {
	key := id.RoomKey()
	s.groups.LeaveGroup(p.ID(), key)
	count := s.registry.RemoveMember(id, p.ID())

	status := event.StatusInactive
	if count > 0 {
		status = event.StatusActive
	}
	ident := p.Identity()
	ref := ident.Ref()

	// комната может быть уже пустой - тогда рассылка просто никому не уйдёт
	s.groups.Broadcast(key, event.Message{
		Type: event.RoomStatus,
		Payload: event.RoomStatusPayload{
			InterviewID:  id,
			Status:       status,
			Participants: count,
			Message:      ident.Name + " left the room",
			LeftUser:     &ref,
			Timestamp:    event.Timestamp(s.now()),
		},
	}, "")
	s.groups.BroadcastAll(event.Message{
		Type: event.RoomUpdated,
		Payload: event.RoomUpdatedPayload{
			InterviewID:  id,
			Active:       count > 0,
			Participants: count,
		},
	})
	p.SetCurrentRoom(0)

	metrics.RoomLeaves.Inc()
	metrics.ActiveRooms.Set(float64(s.registry.Len()))
	slog.Info("room leave", "room", key, "user", ident.UserID, "conn", p.ID(), "participants", count)
}

// Welcome registers a fresh connection and sends it the rooms:status
// snapshot. Both happen under mu, so no room:updated can slip in between
// and leave the newcomer with an older count.
func (s *PresenceService) Welcome(p Participant, register func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if register != nil {
		register()
	}
	return s.groups.SendTo(p.ID(), event.Message{Type: event.RoomsStatus, Payload: s.Snapshot()})
}

// Status is a side-effect free read for room:getStatus.
func (s *PresenceService) Status(id domain.InterviewID) event.StatusReplyPayload {
	n := s.registry.MemberCount(id)
	return event.StatusReplyPayload{
		InterviewID:  id,
		Active:       n > 0,
		Participants: n,
	}
}

// Snapshot - состояние всех активных комнат (rooms:status и HTTP).
func (s *PresenceService) Snapshot() event.RoomsStatusPayload {
	snap := s.registry.Snapshot()
	out := make(event.RoomsStatusPayload, len(snap))
	for id, n := range snap {
		out[id.String()] = event.RoomState{Active: n > 0, Participants: n}
	}
	return out
}

// Ready reports whether the interview store answers.
func (s *PresenceService) Ready(ctx context.Context) error {
	return s.lookup.Ping(ctx)
}
