package domain

import (
	"encoding/json"
	"time"
)

// Event is the wire envelope for everything pushed to a client.
type Event struct {
	Type string `json:"event"`
	Data any    `json:"data"`
}

const (
	EventUserOnline  = "user:online"
	EventUserOffline = "user:offline"

	EventMessageReceive     = "message:receive"
	EventMessageSent        = "message:sent"
	EventMessageReadConfirm = "message:read:confirm"

	EventTypingStart = "typing:start"
	EventTypingStop  = "typing:stop"

	EventCallIncoming  = "call:incoming"
	EventCallInitiated = "call:initiated"
	EventCallAccepted  = "call:accepted"
	EventCallReady     = "call:ready"
	EventCallRejected  = "call:rejected"
	EventCallEnded     = "call:ended"

	EventWebRTCOffer        = "webrtc:offer"
	EventWebRTCAnswer       = "webrtc:answer"
	EventWebRTCICECandidate = "webrtc:ice-candidate"

	EventError     = "error"
	EventCallError = "call:error"
)

type PresencePayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type MessageSender struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

type MessagePayload struct {
	ID         string        `json:"id"`
	Sender     MessageSender `json:"sender"`
	ReceiverID string        `json:"receiver_id"`
	Content    string        `json:"content"`
	Type       string        `json:"type"`
	Read       bool          `json:"read"`
	CreatedAt  time.Time     `json:"created_at"`
}

type ReadConfirmPayload struct {
	MessageIDs []string `json:"message_ids"`
	ReadBy     string   `json:"read_by"`
}

type TypingPayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
}

type CallIncomingPayload struct {
	CallID     string `json:"call_id"`
	CallerID   string `json:"caller_id"`
	CallerName string `json:"caller_name"`
	CallType   string `json:"call_type"`
}

type CallAcceptedPayload struct {
	CallID       string `json:"call_id"`
	ReceiverID   string `json:"receiver_id"`
	ReceiverName string `json:"receiver_name"`
}

type CallRefPayload struct {
	CallID string `json:"call_id"`
}

type SignalPayload struct {
	CallID   string          `json:"call_id"`
	Payload  json.RawMessage `json:"payload"`
	SenderID string          `json:"sender_id"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// SignalEvent maps a signal kind to its wire event name.
func SignalEvent(kind SignalKind) string {
	switch kind {
	case SignalOffer:
		return EventWebRTCOffer
	case SignalAnswer:
		return EventWebRTCAnswer
	default:
		return EventWebRTCICECandidate
	}
}
