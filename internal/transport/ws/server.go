package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/cwrk-planet/interview-room/internal/domain"
	"github.com/cwrk-planet/interview-room/internal/event"
	"github.com/cwrk-planet/interview-room/internal/metrics"
	"github.com/cwrk-planet/interview-room/internal/security"
	"github.com/cwrk-planet/interview-room/internal/service"
	"github.com/cwrk-planet/interview-room/pkg/httputil"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	DefaultPingInterval = 15 * time.Second
	DefaultWriteTimeout = 5 * time.Second
	DefaultReadLimit    = 1 << 20
	DefaultSendBuffer   = 64
)

type Authenticator interface {
	Verify(ctx context.Context, raw string) (domain.Identity, error)
}

type PresenceSvc interface {
	Join(ctx context.Context, p service.Participant, id domain.InterviewID) error
	Leave(p service.Participant, id domain.InterviewID) bool
	Welcome(p service.Participant, register func()) error
	Status(id domain.InterviewID) event.StatusReplyPayload
}

type RelaySvc interface {
	Chat(p service.Participant, in event.ChatPayload) error
	CodeSync(p service.Participant, in event.CodeSyncPayload) error
	ExecSync(p service.Participant, in event.ExecSyncPayload) error
	TranscriptSync(p service.Participant, in event.TranscriptSyncPayload) error
	Signal(p service.Participant, kind string, in event.SignalPayload) error
}

type Config struct {
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadLimit      int64
	SendBuffer     int
	AllowedOrigins []string // пусто или "*" - любой Origin
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	auth     Authenticator
	presence PresenceSvc
	relay    RelaySvc

	cfg Config
}

func NewServer(hub *Hub, auth Authenticator, presence PresenceSvc, relay RelaySvc, cfg Config) *Server {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = DefaultReadLimit
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultSendBuffer
	}
	return &Server{
		hub:      hub,
		auth:     auth,
		presence: presence,
		relay:    relay,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
}

// HandleWS: GET /ws (token в Authorization, ?token= или ?access_token=).
// Без валидного токена апгрейда не будет.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	ident, err := s.auth.Verify(r.Context(), TokenFromRequest(r))
	if err != nil {
		why := security.Reason(err)
		metrics.AuthFailures.WithLabelValues(why).Inc()
		slog.Warn("ws handshake rejected", "remote", r.RemoteAddr, "reason", why, "err", err)
		httputil.Error(r.Context(), w, http.StatusUnauthorized, "Authentication error", map[string]any{"reason": why})
		return
	}
	metrics.AuthSuccess.Inc()

	wsc, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader уже ответил клиенту
		slog.Warn("ws upgrade failed", "user", ident.UserID, "err", err)
		return
	}

	c := newConn(uuid.NewString(), ident, wsc, s.cfg.SendBuffer)
	go s.writeLoop(c)

	if err := s.presence.Welcome(c, func() { s.hub.Register(c) }); err != nil {
		slog.Warn("ws send initial rooms status failed", "conn", c.ID(), "err", err)
	}
	metrics.TotalConnections.Inc()
	metrics.ActiveConnections.Inc()
	slog.Info("ws connected", "conn", c.ID(), "user", ident.UserID, "role", ident.Role)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	s.readLoop(ctx, c)

	s.disconnect(c)
}

// disconnect runs once per connection, after the read loop is gone.
func (s *Server) disconnect(c *Conn) {
	room := c.CurrentRoom()
	s.presence.Leave(c, 0)
	s.hub.Unregister(c.ID())
	c.Close()

	metrics.ActiveConnections.Dec()
	slog.Info("ws disconnected", "conn", c.ID(), "user", c.Identity().UserID, "room", room)
}

func (s *Server) readLoop(ctx context.Context, c *Conn) {
	wait := 2 * s.cfg.PingInterval

	c.ws.SetReadLimit(s.cfg.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(wait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				slog.Debug("ws read failed", "conn", c.ID(), "err", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(wait))
		if mt != websocket.TextMessage {
			continue
		}
		s.handleFrame(ctx, c, data)
	}
}

func (s *Server) writeLoop(c *Conn) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				slog.Debug("ws write failed", "conn", c.ID(), "err", err)
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				slog.Debug("ws ping failed", "conn", c.ID(), "err", err)
				return
			}
		case <-c.closed:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return
		}
	}
}

// handleFrame processes one inbound frame; a panic here only costs the sender a room:error.
func (s *Server) handleFrame(ctx context.Context, c *Conn, data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("ws handler panic", "conn", c.ID(), "panic", rec, "stack", string(debug.Stack()))
			metrics.RoomErrors.WithLabelValues("panic").Inc()
			_ = send(c, event.Error("Internal error"))
		}
	}()

	var f event.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		s.replyError(c, "", domain.ErrInvalidPayload)
		return
	}
	metrics.EventsReceived.WithLabelValues(eventLabel(f.Type)).Inc()

	if err := s.dispatch(ctx, c, f); err != nil {
		s.replyError(c, f.Type, err)
	}
}

func (s *Server) dispatch(ctx context.Context, c *Conn, f event.Frame) error {
	switch f.Type {
	case event.RoomJoin:
		var in event.JoinPayload
		if err := event.Decode(f.Payload, &in); err != nil {
			return err
		}
		return s.presence.Join(ctx, c, in.InterviewID)

	case event.RoomLeave:
		var in event.LeavePayload
		if err := event.Decode(f.Payload, &in); err != nil {
			return err
		}
		s.presence.Leave(c, in.InterviewID)
		return nil

	case event.RoomGetStatus:
		var in event.StatusQueryPayload
		if err := event.Decode(f.Payload, &in); err != nil {
			return err
		}
		return send(c, event.Message{Type: event.RoomStatus, Payload: s.presence.Status(in.InterviewID)})

	case event.RoomMessage:
		var in event.ChatPayload
		if err := event.Decode(f.Payload, &in); err != nil {
			return err
		}
		return s.relay.Chat(c, in)

	case event.RoomCodeSync:
		var in event.CodeSyncPayload
		if err := event.Decode(f.Payload, &in); err != nil {
			return err
		}
		return s.relay.CodeSync(c, in)

	case event.RoomExecSync:
		var in event.ExecSyncPayload
		if err := event.Decode(f.Payload, &in); err != nil {
			return err
		}
		return s.relay.ExecSync(c, in)

	case event.RoomTranscriptSync:
		var in event.TranscriptSyncPayload
		if err := event.Decode(f.Payload, &in); err != nil {
			return err
		}
		return s.relay.TranscriptSync(c, in)

	case event.WebRTCReady, event.WebRTCOffer, event.WebRTCAnswer, event.WebRTCIceCandidate:
		var in event.SignalPayload
		if err := event.Decode(f.Payload, &in); err != nil {
			return err
		}
		if err := in.ValidateFor(f.Type); err != nil {
			return err
		}
		return s.relay.Signal(c, f.Type, in)

	default:
		return domain.ErrUnknownEvent
	}
}

// replyError answers only the sender.
func (s *Server) replyError(c *Conn, typ string, err error) {
	metrics.RoomErrors.WithLabelValues(reason(err)).Inc()
	slog.Debug("ws event rejected", "conn", c.ID(), "type", typ, "err", err)
	if sendErr := send(c, event.Error(ClientMessage(err))); sendErr != nil {
		slog.Debug("ws error reply dropped", "conn", c.ID(), "err", sendErr)
	}
}

// eventLabel keeps the metrics label set bounded.
func eventLabel(t string) string {
	switch t {
	case event.RoomJoin, event.RoomLeave, event.RoomMessage, event.RoomCodeSync,
		event.RoomExecSync, event.RoomTranscriptSync, event.RoomGetStatus:
		return t
	}
	if event.IsSignal(t) {
		return t
	}
	return "unknown"
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[strings.ToLower(o)] = struct{}{}
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// не браузер
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}
