package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/cwrk-planet/interview-room/internal/domain"
	"github.com/cwrk-planet/interview-room/internal/event"
	"github.com/cwrk-planet/interview-room/internal/metrics"
)

var (
	ErrConnNotFound    = errors.New("connection not found")
	ErrSendBufferFull  = errors.New("send buffer full")
	ErrConnUnavailable = errors.New("connection closed")
)

// Hub knows every live connection and which room groups it belongs to.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Conn
	groups map[domain.RoomKey]map[string]*Conn // room -> conn id -> conn
}

func NewHub() *Hub {
	return &Hub{
		conns:  make(map[string]*Conn),
		groups: make(map[domain.RoomKey]map[string]*Conn),
	}
}

func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID()] = c
}

// Unregister drops the connection and any group membership it still has.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.conns, connID)
	for key, members := range h.groups {
		if _, ok := members[connID]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(h.groups, key)
			}
		}
	}
}

func (h *Hub) JoinGroup(connID string, group domain.RoomKey) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[connID]
	if !ok {
		return
	}
	members, ok := h.groups[group]
	if !ok {
		members = make(map[string]*Conn)
		h.groups[group] = members
	}
	members[connID] = c
}

func (h *Hub) LeaveGroup(connID string, group domain.RoomKey) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.groups[group]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

// Broadcast sends msg to everyone in group except excludeConnID and
// returns how many connections accepted the frame.
func (h *Hub) Broadcast(group domain.RoomKey, msg event.Message, excludeConnID string) int {
	frame, ok := encode(msg)
	if !ok {
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for id, c := range h.groups[group] {
		if id == excludeConnID {
			continue
		}
		if h.deliver(c, frame, msg.Type) {
			n++
		}
	}
	return n
}

func (h *Hub) BroadcastAll(msg event.Message) int {
	frame, ok := encode(msg)
	if !ok {
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, c := range h.conns {
		if h.deliver(c, frame, msg.Type) {
			n++
		}
	}
	return n
}

func (h *Hub) SendTo(connID string, msg event.Message) error {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return ErrConnNotFound
	}
	return send(c, msg)
}

// Len - число живых соединений.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// groupSize - размер группы, для проверок в тестах.
func (h *Hub) groupSize(group domain.RoomKey) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// CloseAll closes every connection; each one then goes through the normal disconnect path.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
}

func (h *Hub) deliver(c *Conn, frame []byte, typ string) bool {
	if c.enqueue(frame) {
		return true
	}
	metrics.FramesDropped.Inc()
	slog.Warn("ws frame dropped", "conn", c.ID(), "user", c.Identity().UserID, "type", typ)
	return false
}

func send(c *Conn, msg event.Message) error {
	frame, ok := encode(msg)
	if !ok {
		return ErrConnUnavailable
	}
	select {
	case <-c.Done():
		return ErrConnUnavailable
	default:
	}
	if !c.enqueue(frame) {
		metrics.FramesDropped.Inc()
		return ErrSendBufferFull
	}
	return nil
}

func encode(msg event.Message) ([]byte, bool) {
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("ws encode failed", "type", msg.Type, "err", err)
		return nil, false
	}
	return b, true
}
