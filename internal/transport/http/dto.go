package http

import (
	"time"

	"github.com/cwrk-planet/interview-room/internal/domain"
	"github.com/cwrk-planet/interview-room/internal/event"
)

type RoomsStatusResponse struct {
	Rooms event.RoomsStatusPayload `json:"rooms"`
}

type HealthResponse struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"` // секунды
	Version   string  `json:"version"`
}

type TranscriptItem struct {
	Text      string         `json:"text"`
	User      domain.UserRef `json:"user"`
	Timestamp time.Time      `json:"timestamp"`
}

type RoomDetailResponse struct {
	InterviewID  domain.InterviewID `json:"interview_id"`
	Room         domain.RoomKey     `json:"room"`
	Active       bool               `json:"active"`
	Participants int                `json:"participants"`
	CreatedAt    time.Time          `json:"created_at"`
	Code         *string            `json:"code"`
	CodeLength   int                `json:"code_length"`
	Transcript   []TranscriptItem   `json:"transcript"`
}
