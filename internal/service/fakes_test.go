package service

import (
	"context"
	"sync"
	"time"

	"github.com/cwrk-planet/interview-room/internal/domain"
	"github.com/cwrk-planet/interview-room/internal/event"
)

type fakeParticipant struct {
	id    string
	ident domain.Identity
	room  domain.InterviewID
}

func newParticipant(id string, userID int64, name string) *fakeParticipant {
	return &fakeParticipant{
		id:    id,
		ident: domain.Identity{UserID: userID, Name: name, Role: domain.RoleCandidate},
	}
}

func (p *fakeParticipant) ID() string                           { return p.id }
func (p *fakeParticipant) Identity() domain.Identity            { return p.ident }
func (p *fakeParticipant) CurrentRoom() domain.InterviewID      { return p.room }
func (p *fakeParticipant) SetCurrentRoom(id domain.InterviewID) { p.room = id }

// fakeGroups mimics the hub: every registered conn gets BroadcastAll,
// group members get Broadcast.
type fakeGroups struct {
	mu     sync.Mutex
	conns  []string
	groups map[domain.RoomKey]map[string]struct{}
	inbox  map[string][]event.Message
}

func newFakeGroups(conns ...string) *fakeGroups {
	return &fakeGroups{
		conns:  conns,
		groups: map[domain.RoomKey]map[string]struct{}{},
		inbox:  map[string][]event.Message{},
	}
}

func (g *fakeGroups) JoinGroup(connID string, group domain.RoomKey) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.groups[group] == nil {
		g.groups[group] = map[string]struct{}{}
	}
	g.groups[group][connID] = struct{}{}
}

func (g *fakeGroups) LeaveGroup(connID string, group domain.RoomKey) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.groups[group], connID)
	if len(g.groups[group]) == 0 {
		delete(g.groups, group)
	}
}

func (g *fakeGroups) Broadcast(group domain.RoomKey, msg event.Message, exclude string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for c := range g.groups[group] {
		if c == exclude {
			continue
		}
		g.inbox[c] = append(g.inbox[c], msg)
		n++
	}
	return n
}

func (g *fakeGroups) BroadcastAll(msg event.Message) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.conns {
		g.inbox[c] = append(g.inbox[c], msg)
	}
	return len(g.conns)
}

func (g *fakeGroups) SendTo(connID string, msg event.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inbox[connID] = append(g.inbox[connID], msg)
	return nil
}

// register makes connID a BroadcastAll receiver.
func (g *fakeGroups) register(connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.conns = append(g.conns, connID)
}

func (g *fakeGroups) members(group domain.RoomKey) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.groups[group])
}

// drain returns and forgets everything delivered to connID.
func (g *fakeGroups) drain(connID string) []event.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.inbox[connID]
	delete(g.inbox, connID)
	return out
}

func ofType(msgs []event.Message, typ string) []event.Message {
	var out []event.Message
	for _, m := range msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

type fakeLookup struct {
	known map[domain.InterviewID]domain.Interview
	err   error
	delay time.Duration
}

func newFakeLookup(ids ...domain.InterviewID) *fakeLookup {
	l := &fakeLookup{known: map[domain.InterviewID]domain.Interview{}}
	for _, id := range ids {
		l.known[id] = domain.Interview{ID: id, Title: "Go interview", Status: "scheduled"}
	}
	return l
}

func (l *fakeLookup) Get(ctx context.Context, id domain.InterviewID) (domain.Interview, error) {
	if l.delay > 0 {
		select {
		case <-time.After(l.delay):
		case <-ctx.Done():
			return domain.Interview{}, ctx.Err()
		}
	}
	if l.err != nil {
		return domain.Interview{}, l.err
	}
	iv, ok := l.known[id]
	if !ok {
		return domain.Interview{}, domain.ErrInterviewNotFound
	}
	return iv, nil
}

func (l *fakeLookup) Ping(context.Context) error { return l.err }
