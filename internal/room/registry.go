package room

import (
	"sync"
	"time"

	"github.com/cwrk-planet/interview-room/internal/domain"
)

const DefaultTranscriptLimit = 10

type TranscriptEntry struct {
	Text      string         `json:"text"`
	User      domain.UserRef `json:"user"`
	Timestamp time.Time      `json:"timestamp"`
}

// Room - живое состояние одной комнаты, в БД не сохраняется.
type Room struct {
	InterviewID domain.InterviewID
	members     map[string]struct{} // connection id set
	createdAt   time.Time

	code       string
	hasCode    bool
	transcript []TranscriptEntry // ring, oldest first
}

// RoomView is a detached copy of a Room, safe to hand out.
type RoomView struct {
	InterviewID  domain.InterviewID
	Key          domain.RoomKey
	Participants int
	Members      []string
	CreatedAt    time.Time
	Code         string
	HasCode      bool
	Transcript   []TranscriptEntry
}

type Options struct {
	TranscriptLimit int
}

// Registry maps a room key to its Room. It never holds an empty room:
// rooms appear on the first AddMember and vanish when the last member leaves.
type Registry struct {
	mu    sync.Mutex
	rooms map[domain.RoomKey]*Room

	transcriptLimit int
	now             func() time.Time
}

func NewRegistry(opts Options) *Registry {
	if opts.TranscriptLimit <= 0 {
		opts.TranscriptLimit = DefaultTranscriptLimit
	}
	return &Registry{
		rooms:           make(map[domain.RoomKey]*Room),
		transcriptLimit: opts.TranscriptLimit,
		now:             time.Now,
	}
}

// ensureRoom must be called with r.mu held and followed by an insert.
func (r *Registry) ensureRoom(id domain.InterviewID) *Room {
	key := id.RoomKey()
	rm, ok := r.rooms[key]
	if !ok {
		rm = &Room{
			InterviewID: id,
			members:     make(map[string]struct{}),
			createdAt:   r.now(),
		}
		r.rooms[key] = rm
	}
	return rm
}

// AddMember inserts connID and returns the new member count.
func (r *Registry) AddMember(id domain.InterviewID, connID string) int {
	if !id.Valid() || connID == "" {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.ensureRoom(id)
	rm.members[connID] = struct{}{}
	return len(rm.members)
}

// RemoveMember deletes connID; the room itself is dropped at zero.
func (r *Registry) RemoveMember(id domain.InterviewID, connID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := id.RoomKey()
	rm, ok := r.rooms[key]
	if !ok {
		return 0
	}
	delete(rm.members, connID)
	if len(rm.members) == 0 {
		delete(r.rooms, key)
		return 0
	}
	return len(rm.members)
}

func (r *Registry) MemberCount(id domain.InterviewID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rm, ok := r.rooms[id.RoomKey()]; ok {
		return len(rm.members)
	}
	return 0
}

func (r *Registry) Contains(id domain.InterviewID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[id.RoomKey()]
	if !ok {
		return false
	}
	_, in := rm.members[connID]
	return in
}

func (r *Registry) Has(id domain.InterviewID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.rooms[id.RoomKey()]
	return ok
}

// Len - число активных комнат.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Snapshot returns member counts of all active rooms.
func (r *Registry) Snapshot() map[domain.InterviewID]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[domain.InterviewID]int, len(r.rooms))
	for _, rm := range r.rooms {
		out[rm.InterviewID] = len(rm.members)
	}
	return out
}

// SetCode caches the last editor buffer. Returns false if the room is gone.
func (r *Registry) SetCode(id domain.InterviewID, code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[id.RoomKey()]
	if !ok {
		return false
	}
	rm.code, rm.hasCode = code, true
	return true
}

// AppendTranscript keeps only the last transcriptLimit entries.
func (r *Registry) AppendTranscript(id domain.InterviewID, e TranscriptEntry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[id.RoomKey()]
	if !ok {
		return false
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = r.now()
	}
	rm.transcript = append(rm.transcript, e)
	if over := len(rm.transcript) - r.transcriptLimit; over > 0 {
		rm.transcript = append([]TranscriptEntry(nil), rm.transcript[over:]...)
	}
	return true
}

func (r *Registry) View(id domain.InterviewID) (RoomView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[id.RoomKey()]
	if !ok {
		return RoomView{}, false
	}
	members := make([]string, 0, len(rm.members))
	for m := range rm.members {
		members = append(members, m)
	}
	return RoomView{
		InterviewID:  rm.InterviewID,
		Key:          id.RoomKey(),
		Participants: len(rm.members),
		Members:      members,
		CreatedAt:    rm.createdAt,
		Code:         rm.code,
		HasCode:      rm.hasCode,
		Transcript:   append([]TranscriptEntry(nil), rm.transcript...),
	}, true
}
