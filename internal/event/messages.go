package event

import (
	"encoding/json"
	"time"

	"github.com/cwrk-planet/interview-room/internal/domain"
)

// Message - исходящий кадр.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Frame - входящий кадр; payload разбирается уже под конкретный тип.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Timestamp formats t the way browsers print Date.toISOString().
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// --- outbound payloads ---

type ErrorPayload struct {
	Message string `json:"message"`
}

type RoomStatusPayload struct {
	InterviewID  domain.InterviewID `json:"interview_id"`
	Status       string             `json:"status"`
	Participants int                `json:"participants"`
	Message      string             `json:"message"`
	JoinedUser   *domain.UserRef    `json:"joinedUser,omitempty"`
	LeftUser     *domain.UserRef    `json:"leftUser,omitempty"`
	Timestamp    string             `json:"timestamp"`
}

// StatusReplyPayload - ответ на room:getStatus, только отправителю.
type StatusReplyPayload struct {
	InterviewID  domain.InterviewID `json:"interview_id"`
	Active       bool               `json:"active"`
	Participants int                `json:"participants"`
}

type RoomUpdatedPayload struct {
	InterviewID  domain.InterviewID `json:"interview_id"`
	Active       bool               `json:"active"`
	Participants int                `json:"participants"`
}

type RoomState struct {
	Active       bool `json:"active"`
	Participants int  `json:"participants"`
}

// RoomsStatusPayload is keyed by interview id, as the interview list page expects.
type RoomsStatusPayload map[string]RoomState

type ChatBroadcastPayload struct {
	InterviewID domain.InterviewID `json:"interview_id"`
	User        domain.UserRef     `json:"user"`
	Message     string             `json:"message"`
	Timestamp   string             `json:"timestamp"`
}

type CodeUpdatePayload struct {
	InterviewID domain.InterviewID `json:"interview_id"`
	Code        string             `json:"code"`
	User        domain.UserRef     `json:"user"`
}

type ExecUpdatePayload struct {
	InterviewID domain.InterviewID `json:"interview_id"`
	Output      string             `json:"output"`
	Executing   bool               `json:"executing"`
}

type TranscriptUpdatePayload struct {
	InterviewID domain.InterviewID `json:"interview_id"`
	Text        string             `json:"text"`
	User        domain.UserRef     `json:"user"`
	Timestamp   string             `json:"timestamp"`
}

// SignalRelayPayload несёт offer/answer/candidate как есть, не разбирая.
type SignalRelayPayload struct {
	InterviewID domain.InterviewID `json:"interview_id"`
	From        string             `json:"from"`
	User        *domain.UserRef    `json:"user,omitempty"`
	Offer       json.RawMessage    `json:"offer,omitempty"`
	Answer      json.RawMessage    `json:"answer,omitempty"`
	Candidate   json.RawMessage    `json:"candidate,omitempty"`
}

func Error(msg string) Message {
	return Message{Type: RoomError, Payload: ErrorPayload{Message: msg}}
}
