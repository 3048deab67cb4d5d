package event

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cwrk-planet/interview-room/internal/domain"
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidPayload, msg)
}

// Validator is implemented by every inbound payload.
type Validator interface {
	Validate() error
}

// Decode unmarshals raw into dst and runs its validation.
// An absent payload decodes as the zero value.
func Decode(raw json.RawMessage, dst Validator) error {
	if len(bytes.TrimSpace(raw)) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
		}
	}
	return dst.Validate()
}

type JoinPayload struct {
	InterviewID domain.InterviewID `json:"interview_id"`
}

func (p *JoinPayload) Validate() error {
	if !p.InterviewID.Valid() {
		return domain.ErrInterviewIDRequired
	}
	return nil
}

// LeavePayload: interview_id необязателен, по умолчанию текущая комната.
type LeavePayload struct {
	InterviewID domain.InterviewID `json:"interview_id"`
}

func (p *LeavePayload) Validate() error {
	if p.InterviewID < 0 {
		return invalid("interview_id must be positive")
	}
	return nil
}

type StatusQueryPayload struct {
	InterviewID domain.InterviewID `json:"interview_id"`
}

func (p *StatusQueryPayload) Validate() error {
	if !p.InterviewID.Valid() {
		return domain.ErrInterviewIDRequired
	}
	return nil
}

type ChatPayload struct {
	InterviewID domain.InterviewID `json:"interview_id"`
	Message     string             `json:"message"`
}

func (p *ChatPayload) Validate() error {
	if p.InterviewID < 0 {
		return invalid("interview_id must be positive")
	}
	return nil
}

type CodeSyncPayload struct {
	InterviewID domain.InterviewID `json:"interview_id"`
	Code        *string            `json:"code"`
}

func (p *CodeSyncPayload) Validate() error {
	if p.InterviewID < 0 {
		return invalid("interview_id must be positive")
	}
	if p.Code == nil {
		return invalid("code is required")
	}
	return nil
}

type ExecSyncPayload struct {
	InterviewID domain.InterviewID `json:"interview_id"`
	Output      string             `json:"output"`
	Executing   bool               `json:"executing"`
}

func (p *ExecSyncPayload) Validate() error {
	if p.InterviewID < 0 {
		return invalid("interview_id must be positive")
	}
	return nil
}

type TranscriptUser struct {
	Name string      `json:"name"`
	Role domain.Role `json:"role"`
}

type TranscriptSyncPayload struct {
	InterviewID domain.InterviewID `json:"interview_id"`
	Text        string             `json:"text"`
	User        *TranscriptUser    `json:"user,omitempty"`
}

func (p *TranscriptSyncPayload) Validate() error {
	if p.InterviewID < 0 {
		return invalid("interview_id must be positive")
	}
	if p.Text == "" {
		return invalid("text is required")
	}
	return nil
}

type SignalPayload struct {
	InterviewID domain.InterviewID `json:"interview_id"`
	Offer       json.RawMessage    `json:"offer,omitempty"`
	Answer      json.RawMessage    `json:"answer,omitempty"`
	Candidate   json.RawMessage    `json:"candidate,omitempty"`
}

func (p *SignalPayload) Validate() error {
	if p.InterviewID < 0 {
		return invalid("interview_id must be positive")
	}
	return nil
}

// ValidateFor checks that the field the signal kind carries is present.
func (p *SignalPayload) ValidateFor(kind string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	switch kind {
	case WebRTCOffer:
		if isEmptyJSON(p.Offer) {
			return invalid("offer is required")
		}
	case WebRTCAnswer:
		if isEmptyJSON(p.Answer) {
			return invalid("answer is required")
		}
	case WebRTCIceCandidate:
		if isEmptyJSON(p.Candidate) {
			return invalid("candidate is required")
		}
	}
	return nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}
