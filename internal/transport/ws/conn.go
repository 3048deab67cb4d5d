package ws

import (
	"sync"

	"github.com/cwrk-planet/interview-room/internal/domain"

	"github.com/gorilla/websocket"
)

// Conn is one authenticated socket. Only writeLoop writes to ws.
type Conn struct {
	id    string
	ident domain.Identity
	ws    *websocket.Conn
	send  chan []byte

	mu   sync.Mutex
	room domain.InterviewID

	closeOnce sync.Once
	closed    chan struct{}
}

func newConn(id string, ident domain.Identity, ws *websocket.Conn, buffer int) *Conn {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	return &Conn{
		id:     id,
		ident:  ident,
		ws:     ws,
		send:   make(chan []byte, buffer),
		closed: make(chan struct{}),
	}
}

func (c *Conn) ID() string                { return c.id }
func (c *Conn) Identity() domain.Identity { return c.ident }

func (c *Conn) CurrentRoom() domain.InterviewID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Conn) SetCurrentRoom(id domain.InterviewID) {
	c.mu.Lock()
	c.room = id
	c.mu.Unlock()
}

// enqueue never blocks: false means the frame was dropped.
func (c *Conn) enqueue(frame []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close asks writeLoop to send a close frame and release the socket.
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *Conn) Done() <-chan struct{} { return c.closed }
