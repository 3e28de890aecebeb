package domain

import "time"

type CallType string

const (
	CallVideo CallType = "video"
	CallAudio CallType = "audio"
)

type CallStatus string

const (
	CallRinging  CallStatus = "ringing"
	CallAccepted CallStatus = "accepted"
	CallEnded    CallStatus = "ended"
	CallRejected CallStatus = "rejected"
)

type SignalKind string

const (
	SignalOffer        SignalKind = "offer"
	SignalAnswer       SignalKind = "answer"
	SignalICECandidate SignalKind = "ice-candidate"
)

// CallSession is the ephemeral record of one call attempt. It lives only in
// the call manager's table and is deleted on reject, end or disconnect.
type CallSession struct {
	ID         CallID
	CallerID   UserID
	ReceiverID UserID
	Type       CallType
	Status     CallStatus
	CreatedAt  time.Time
}

func NewCallSession(callerID, receiverID UserID, callType CallType) *CallSession {
	return &CallSession{
		ID:         NewCallID(),
		CallerID:   callerID,
		ReceiverID: receiverID,
		Type:       callType,
		Status:     CallRinging,
		CreatedAt:  time.Now(),
	}
}

// Involves reports whether the user is one of the two participants.
func (s *CallSession) Involves(id UserID) bool {
	return s.CallerID == id || s.ReceiverID == id
}

// Other returns the participant opposite to id. The second result is false
// when id is not a participant at all.
func (s *CallSession) Other(id UserID) (UserID, bool) {
	switch id {
	case s.CallerID:
		return s.ReceiverID, true
	case s.ReceiverID:
		return s.CallerID, true
	}
	return UserID{}, false
}
