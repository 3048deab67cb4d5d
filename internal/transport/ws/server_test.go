package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/interview-room/internal/domain"
	"github.com/cwrk-planet/interview-room/internal/event"
	"github.com/cwrk-planet/interview-room/internal/room"
	"github.com/cwrk-planet/interview-room/internal/security"
	"github.com/cwrk-planet/interview-room/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "ws-test-secret"

type memLookup map[domain.InterviewID]domain.Interview

func (m memLookup) Get(_ context.Context, id domain.InterviewID) (domain.Interview, error) {
	iv, ok := m[id]
	if !ok {
		return domain.Interview{}, domain.ErrInterviewNotFound
	}
	return iv, nil
}

func (m memLookup) Ping(context.Context) error { return nil }

type env struct {
	url      string
	registry *room.Registry
	hub      *Hub
}

func newEnv(t *testing.T) *env {
	t.Helper()
	reg := room.NewRegistry(room.Options{})
	hub := NewHub()
	lookup := memLookup{42: {ID: 42, Title: "Backend Go", Status: "scheduled"}}

	presence := service.NewPresenceService(reg, hub, lookup, service.PresenceConfig{MaxParticipants: 2})
	relay := service.NewRelayService(reg, hub, service.RelayConfig{})
	verifier := security.NewVerifier(security.VerifierConfig{Secret: secret}, nil)

	srv := NewServer(hub, verifier, presence, relay, Config{PingInterval: time.Second})
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWS))
	t.Cleanup(func() {
		hub.CloseAll()
		ts.Close()
	})

	return &env{
		url:      "ws" + strings.TrimPrefix(ts.URL, "http"),
		registry: reg,
		hub:      hub,
	}
}

func token(t *testing.T, id int64, name string, exp time.Time) string {
	t.Helper()
	claims := security.Claims{
		ID:    id,
		Name:  name,
		Email: strings.ToLower(name) + "@example.com",
		Role:  domain.RoleCandidate,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

// dial connects with ?token= and consumes the initial rooms:status.
func (e *env) dial(t *testing.T, id int64, name string) *websocket.Conn {
	t.Helper()
	c, resp, err := websocket.DefaultDialer.Dial(e.url+"?token="+token(t, id, name, time.Now().Add(time.Hour)), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = c.Close() })

	first := expect(t, c, event.RoomsStatus)
	require.NotNil(t, first)
	return c
}

func emit(t *testing.T, c *websocket.Conn, typ string, payload any) {
	t.Helper()
	require.NoError(t, c.WriteJSON(map[string]any{"type": typ, "payload": payload}))
}

// expect reads until a frame of typ arrives, skipping others.
func expect(t *testing.T, c *websocket.Conn, typ string) json.RawMessage {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	defer func() { _ = c.SetReadDeadline(time.Time{}) }()
	for {
		var f event.Frame
		require.NoError(t, c.ReadJSON(&f), "waiting for %s", typ)
		if f.Type == typ {
			return f.Payload
		}
	}
}

func TestHandshake_RejectsBadTokens(t *testing.T) {
	e := newEnv(t)

	cases := map[string]string{
		"missing": e.url,
		"garbage": e.url + "?token=nope",
		"expired": e.url + "?token=" + token(t, 1, "Alice", time.Now().Add(-time.Minute)),
	}
	for name, u := range cases {
		t.Run(name, func(t *testing.T) {
			c, resp, err := websocket.DefaultDialer.Dial(u, nil)
			if c != nil {
				_ = c.Close()
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
	assert.Equal(t, 0, e.hub.Len())
}

func TestHandshake_AuthorizationHeader(t *testing.T) {
	e := newEnv(t)
	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer "+token(t, 3, "Carol", time.Now().Add(time.Hour)))

	c, resp, err := websocket.DefaultDialer.Dial(e.url, hdr)
	require.NoError(t, err)
	defer c.Close()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	expect(t, c, event.RoomsStatus)
}

func TestHandshake_SchemeOnlyHeaderUsesQueryToken(t *testing.T) {
	e := newEnv(t)
	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer ")

	c, resp, err := websocket.DefaultDialer.Dial(e.url+"?token="+token(t, 4, "Dave", time.Now().Add(time.Hour)), hdr)
	require.NoError(t, err)
	defer c.Close()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	expect(t, c, event.RoomsStatus)
}

func TestSession_AliceAndBob(t *testing.T) {
	e := newEnv(t)
	alice := e.dial(t, 1, "Alice")
	bob := e.dial(t, 2, "Bob")

	emit(t, alice, event.RoomJoin, map[string]any{"interview_id": 42})
	var st event.RoomStatusPayload
	require.NoError(t, json.Unmarshal(expect(t, alice, event.RoomStatus), &st))
	assert.Equal(t, 1, st.Participants)

	var upd event.RoomUpdatedPayload
	require.NoError(t, json.Unmarshal(expect(t, bob, event.RoomUpdated), &upd))
	assert.Equal(t, event.RoomUpdatedPayload{InterviewID: 42, Active: true, Participants: 1}, upd)

	// interview_id строкой тоже принимается
	emit(t, bob, event.RoomJoin, map[string]any{"interview_id": "42"})
	require.NoError(t, json.Unmarshal(expect(t, alice, event.RoomStatus), &st))
	assert.Equal(t, 2, st.Participants)
	require.NotNil(t, st.JoinedUser)
	assert.Equal(t, "Bob", st.JoinedUser.Name)
	assert.Equal(t, 2, e.registry.MemberCount(42))

	emit(t, alice, event.RoomMessage, map[string]any{"interview_id": 42, "message": "hi"})
	for _, c := range []*websocket.Conn{alice, bob} {
		var chat event.ChatBroadcastPayload
		require.NoError(t, json.Unmarshal(expect(t, c, event.RoomMessage), &chat))
		assert.Equal(t, "hi", chat.Message)
		assert.Equal(t, "Alice", chat.User.Name)
	}

	emit(t, alice, event.RoomCodeSync, map[string]any{"interview_id": 42, "code": "fmt.Println(1)"})
	var code event.CodeUpdatePayload
	require.NoError(t, json.Unmarshal(expect(t, bob, event.RoomCodeUpdate), &code))
	assert.Equal(t, "fmt.Println(1)", code.Code)

	emit(t, bob, event.WebRTCOffer, map[string]any{"interview_id": 42, "offer": map[string]string{"type": "offer", "sdp": "v=0"}})
	var sig event.SignalRelayPayload
	require.NoError(t, json.Unmarshal(expect(t, alice, event.WebRTCOffer), &sig))
	assert.NotEmpty(t, sig.From)
	assert.JSONEq(t, `{"type":"offer","sdp":"v=0"}`, string(sig.Offer))

	// Bob drops without leaving
	require.NoError(t, bob.Close())
	require.NoError(t, json.Unmarshal(expect(t, alice, event.RoomStatus), &st))
	assert.Equal(t, 1, st.Participants)
	assert.Equal(t, event.StatusActive, st.Status)
	require.NotNil(t, st.LeftUser)
	assert.Equal(t, "Bob", st.LeftUser.Name)
	require.NoError(t, json.Unmarshal(expect(t, alice, event.RoomUpdated), &upd))
	assert.Equal(t, event.RoomUpdatedPayload{InterviewID: 42, Active: true, Participants: 1}, upd)
	assert.Equal(t, 1, e.registry.MemberCount(42))

	emit(t, alice, event.RoomLeave, map[string]any{"interview_id": 42})
	require.NoError(t, json.Unmarshal(expect(t, alice, event.RoomUpdated), &upd))
	assert.Equal(t, event.RoomUpdatedPayload{InterviewID: 42, Active: false, Participants: 0}, upd)
	assert.False(t, e.registry.Has(42))
	assert.Equal(t, 0, e.hub.groupSize(domain.InterviewID(42).RoomKey()))
}

func TestSession_Errors(t *testing.T) {
	e := newEnv(t)
	c := e.dial(t, 1, "Alice")

	errMsg := func() string {
		var p event.ErrorPayload
		require.NoError(t, json.Unmarshal(expect(t, c, event.RoomError), &p))
		return p.Message
	}

	emit(t, c, event.RoomJoin, map[string]any{"interview_id": 99999})
	assert.Equal(t, "Interview not found", errMsg())
	assert.False(t, e.registry.Has(99999))

	emit(t, c, event.RoomJoin, map[string]any{})
	assert.Equal(t, "interview_id is required", errMsg())

	emit(t, c, "room:explode", nil)
	assert.Equal(t, "unknown event", errMsg())

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, "Invalid payload", errMsg())

	emit(t, c, event.RoomCodeSync, map[string]any{"interview_id": 42, "code": "x"})
	assert.Equal(t, "You are not in this room", errMsg())

	emit(t, c, event.WebRTCAnswer, map[string]any{"interview_id": 42})
	assert.Equal(t, "Invalid payload", errMsg())
}

func TestSession_GetStatus(t *testing.T) {
	e := newEnv(t)
	a := e.dial(t, 1, "Alice")
	b := e.dial(t, 2, "Bob")

	emit(t, a, event.RoomJoin, map[string]any{"interview_id": 42})
	expect(t, a, event.RoomStatus)

	emit(t, b, event.RoomGetStatus, map[string]any{"interview_id": 42})
	var st event.StatusReplyPayload
	require.NoError(t, json.Unmarshal(expect(t, b, event.RoomStatus), &st))
	assert.Equal(t, event.StatusReplyPayload{InterviewID: 42, Active: true, Participants: 1}, st)
	assert.Equal(t, 1, e.registry.MemberCount(42), "getStatus does not join")
}

func TestSession_InitialRoomsStatus(t *testing.T) {
	e := newEnv(t)
	a := e.dial(t, 1, "Alice")
	emit(t, a, event.RoomJoin, map[string]any{"interview_id": 42})
	expect(t, a, event.RoomStatus)

	c, resp, err := websocket.DefaultDialer.Dial(e.url+"?access_token="+token(t, 2, "Bob", time.Now().Add(time.Hour)), nil)
	require.NoError(t, err)
	defer c.Close()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	var snap event.RoomsStatusPayload
	require.NoError(t, json.Unmarshal(expect(t, c, event.RoomsStatus), &snap))
	assert.Equal(t, event.RoomsStatusPayload{"42": {Active: true, Participants: 1}}, snap)
}

func TestShutdown_ClosesAndReconciles(t *testing.T) {
	e := newEnv(t)
	a := e.dial(t, 1, "Alice")
	emit(t, a, event.RoomJoin, map[string]any{"interview_id": 42})
	expect(t, a, event.RoomStatus)

	e.hub.CloseAll()
	require.Eventually(t, func() bool {
		return !e.registry.Has(42) && e.hub.Len() == 0
	}, 3*time.Second, 20*time.Millisecond)
}
