package event

// Входящие события (клиент -> сервер)
const (
	RoomJoin           = "room:join"
	RoomLeave          = "room:leave"
	RoomMessage        = "room:message" // также уходит обратно всем в комнате
	RoomCodeSync       = "room:code_sync"
	RoomExecSync       = "room:exec_sync"
	RoomTranscriptSync = "room:transcript_sync"
	RoomGetStatus      = "room:getStatus"

	WebRTCReady        = "webrtc:ready"
	WebRTCOffer        = "webrtc:offer"
	WebRTCAnswer       = "webrtc:answer"
	WebRTCIceCandidate = "webrtc:ice-candidate"
)

// Исходящие события (сервер -> клиент)
const (
	RoomError            = "room:error"
	RoomStatus           = "room:status"
	RoomUpdated          = "room:updated"
	RoomsStatus          = "rooms:status"
	RoomCodeUpdate       = "room:code_update"
	RoomExecUpdate       = "room:exec_update"
	RoomTranscriptUpdate = "room:transcript_update"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// IsSignal reports whether t is one of the webrtc:* relay events.
func IsSignal(t string) bool {
	switch t {
	case WebRTCReady, WebRTCOffer, WebRTCAnswer, WebRTCIceCandidate:
		return true
	}
	return false
}
