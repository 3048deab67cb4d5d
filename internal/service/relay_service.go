package service

import (
	"strings"
	"time"

	"github.com/cwrk-planet/interview-room/internal/domain"
	"github.com/cwrk-planet/interview-room/internal/event"
	"github.com/cwrk-planet/interview-room/internal/room"
)

const DefaultMaxMessageBytes = 4096

type RelayConfig struct {
	MaxMessageBytes int // лимит на текст чата
}

// RelayService routes chat, editor, exec, transcript and signaling payloads.
// It never changes membership; the registry is only used for its
// ephemeral code/transcript caches.
type RelayService struct {
	registry *room.Registry
	groups   Multicaster
	cfg      RelayConfig
	now      func() time.Time
}

func NewRelayService(reg *room.Registry, groups Multicaster, cfg RelayConfig) *RelayService {
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = DefaultMaxMessageBytes
	}
	return &RelayService{
		registry: reg,
		groups:   groups,
		cfg:      cfg,
		now:      time.Now,
	}
}

// roomOf returns the sender's current room; a payload id, if present, must match it.
func (s *RelayService) roomOf(p Participant, id domain.InterviewID) (domain.InterviewID, error) {
	cur := p.CurrentRoom()
	if !cur.Valid() {
		return 0, domain.ErrNotInRoom
	}
	if id.Valid() && id != cur {
		return 0, domain.ErrNotInRoom
	}
	return cur, nil
}

// Chat echoes to the sender too, the UI relies on it for ordering.
func (s *RelayService) Chat(p Participant, in event.ChatPayload) error {
	id, err := s.roomOf(p, in.InterviewID)
	if err != nil {
		return err
	}
	text := strings.TrimSpace(in.Message)
	if text == "" {
		return nil
	}
	if len(text) > s.cfg.MaxMessageBytes {
		return domain.ErrMessageTooLong
	}

	s.groups.Broadcast(id.RoomKey(), event.Message{
		Type: event.RoomMessage,
		Payload: event.ChatBroadcastPayload{
			InterviewID: id,
			User:        p.Identity().Ref(),
			Message:     text,
			Timestamp:   event.Timestamp(s.now()),
		},
	}, "")
	return nil
}

// CodeSync is last-write-wins: the whole buffer goes out, nothing is merged.
func (s *RelayService) CodeSync(p Participant, in event.CodeSyncPayload) error {
	id, err := s.roomOf(p, in.InterviewID)
	if err != nil {
		return err
	}
	code := ""
	if in.Code != nil {
		code = *in.Code
	}
	s.registry.SetCode(id, code)

	s.groups.Broadcast(id.RoomKey(), event.Message{
		Type: event.RoomCodeUpdate,
		Payload: event.CodeUpdatePayload{
			InterviewID: id,
			Code:        code,
			User:        p.Identity().Ref(),
		},
	}, p.ID())
	return nil
}

func (s *RelayService) ExecSync(p Participant, in event.ExecSyncPayload) error {
	id, err := s.roomOf(p, in.InterviewID)
	if err != nil {
		return err
	}
	s.groups.Broadcast(id.RoomKey(), event.Message{
		Type: event.RoomExecUpdate,
		Payload: event.ExecUpdatePayload{
			InterviewID: id,
			Output:      in.Output,
			Executing:   in.Executing,
		},
	}, p.ID())
	return nil
}

// TranscriptSync relays a speech-to-text fragment. The author is taken from
// the verified identity, not from the client-supplied user field.
func (s *RelayService) TranscriptSync(p Participant, in event.TranscriptSyncPayload) error {
	id, err := s.roomOf(p, in.InterviewID)
	if err != nil {
		return err
	}
	ident := p.Identity()
	ref := ident.Ref()
	ref.Role = ident.Role
	now := s.now()

	s.registry.AppendTranscript(id, room.TranscriptEntry{Text: in.Text, User: ref, Timestamp: now})

	s.groups.Broadcast(id.RoomKey(), event.Message{
		Type: event.RoomTranscriptUpdate,
		Payload: event.TranscriptUpdatePayload{
			InterviewID: id,
			Text:        in.Text,
			User:        ref,
			Timestamp:   event.Timestamp(now),
		},
	}, p.ID())
	return nil
}

// Signal forwards webrtc:* verbatim to the other side, tagged with the sender's connection id.
func (s *RelayService) Signal(p Participant, kind string, in event.SignalPayload) error {
	if !event.IsSignal(kind) {
		return domain.ErrUnknownEvent
	}
	id, err := s.roomOf(p, in.InterviewID)
	if err != nil {
		return err
	}

	out := event.SignalRelayPayload{
		InterviewID: id,
		From:        p.ID(),
	}
	switch kind {
	case event.WebRTCReady:
		ref := p.Identity().Ref()
		out.User = &ref
	case event.WebRTCOffer:
		out.Offer = in.Offer
	case event.WebRTCAnswer:
		out.Answer = in.Answer
	case event.WebRTCIceCandidate:
		out.Candidate = in.Candidate
	}

	s.groups.Broadcast(id.RoomKey(), event.Message{Type: kind, Payload: out}, p.ID())
	return nil
}
