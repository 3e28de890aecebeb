package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/avolkov/duet/internal/core/domain"
	"github.com/avolkov/duet/internal/core/port"
	"github.com/rs/zerolog/log"
)

// CallService owns the call state machine (ringing, accepted, ended,
// rejected) and relays opaque WebRTC payloads between the two participants
// of a call. Sessions are ephemeral; disconnect cleanup guarantees none
// survives a lost connection.
type CallService struct {
	registry *Registry

	mu       sync.Mutex
	sessions map[domain.CallID]*domain.CallSession
}

func NewCallService(registry *Registry) *CallService {
	return &CallService{
		registry: registry,
		sessions: make(map[domain.CallID]*domain.CallSession),
	}
}

// Initiate creates a ringing session and notifies both parties. Fails when
// the receiver has no live connection; no session is created in that case.
func (s *CallService) Initiate(ctx context.Context, caller port.Client, receiverID string, callType domain.CallType) error {
	recID, err := domain.ParseUserID(receiverID)
	if err != nil {
		return domain.ErrUserOffline
	}
	receiver, ok := s.registry.Lookup(recID)
	if !ok {
		return domain.ErrUserOffline
	}

	session := domain.NewCallSession(caller.UserID(), recID, callType)
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	// Disconnect cleanup runs after the registry entry is removed, so a
	// receiver absent at this point may have swept the table before the
	// insert above. The session must not outlive that sweep.
	if _, ok := s.registry.Lookup(recID); !ok {
		s.mu.Lock()
		delete(s.sessions, session.ID)
		s.mu.Unlock()
		return domain.ErrUserOffline
	}

	l := log.With().Str("call_id", session.ID.String()).Logger()
	l.Info().
		Str("caller_id", session.CallerID.String()).
		Str("receiver_id", session.ReceiverID.String()).
		Str("call_type", string(callType)).
		Msg("Call initiated")

	if err := receiver.Send(domain.Event{
		Type: domain.EventCallIncoming,
		Data: domain.CallIncomingPayload{
			CallID:     session.ID.String(),
			CallerID:   caller.UserID().String(),
			CallerName: caller.Username(),
			CallType:   string(callType),
		},
	}); err != nil {
		l.Warn().Err(err).Msg("Dropped call:incoming")
	}

	if err := caller.Send(domain.Event{
		Type: domain.EventCallInitiated,
		Data: domain.CallRefPayload{CallID: session.ID.String()},
	}); err != nil {
		l.Warn().Err(err).Msg("Dropped call:initiated")
	}
	return nil
}

// Accept transitions a session to accepted. Only the named receiver may
// accept. The caller and accepter get distinct events because the caller
// produces the offer in the signaling exchange that follows.
func (s *CallService) Accept(ctx context.Context, accepter port.Client, callID string) error {
	s.mu.Lock()
	session, ok := s.sessions[domain.CallID(callID)]
	if !ok || session.ReceiverID != accepter.UserID() {
		s.mu.Unlock()
		return domain.ErrInvalidCall
	}
	session.Status = domain.CallAccepted
	callerID := session.CallerID
	s.mu.Unlock()

	log.Info().Str("call_id", callID).Msg("Call accepted")

	if caller, ok := s.registry.Lookup(callerID); ok {
		if err := caller.Send(domain.Event{
			Type: domain.EventCallAccepted,
			Data: domain.CallAcceptedPayload{
				CallID:       callID,
				ReceiverID:   accepter.UserID().String(),
				ReceiverName: accepter.Username(),
			},
		}); err != nil {
			log.Warn().Err(err).Str("call_id", callID).Msg("Dropped call:accepted")
		}
	}

	if err := accepter.Send(domain.Event{
		Type: domain.EventCallReady,
		Data: domain.CallRefPayload{CallID: callID},
	}); err != nil {
		log.Warn().Err(err).Str("call_id", callID).Msg("Dropped call:ready")
	}
	return nil
}

// Reject removes a ringing session and notifies the caller. Rejecting an
// unknown call is a silent no-op. The actor is not checked against the
// participants.
func (s *CallService) Reject(ctx context.Context, callID string) {
	s.mu.Lock()
	session, ok := s.sessions[domain.CallID(callID)]
	if !ok || session.Status != domain.CallRinging {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, session.ID)
	callerID := session.CallerID
	s.mu.Unlock()

	log.Info().Str("call_id", callID).Msg("Call rejected")

	if caller, ok := s.registry.Lookup(callerID); ok {
		if err := caller.Send(domain.Event{
			Type: domain.EventCallRejected,
			Data: domain.CallRefPayload{CallID: callID},
		}); err != nil {
			log.Warn().Err(err).Str("call_id", callID).Msg("Dropped call:rejected")
		}
	}
}

// End removes a session from any non-terminal state and notifies the other
// participant. Ending an absent call is a silent no-op, which makes End
// idempotent.
func (s *CallService) End(ctx context.Context, enderID domain.UserID, callID string) {
	s.mu.Lock()
	session, ok := s.sessions[domain.CallID(callID)]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, session.ID)
	other, isParticipant := session.Other(enderID)
	s.mu.Unlock()

	log.Info().Str("call_id", callID).Str("ended_by", enderID.String()).Msg("Call ended")

	if !isParticipant {
		return
	}
	s.notifyEnded(other, callID)
}

// CleanupFor resolves every live session the user participates in, as run
// on disconnect. The other participant of each gets exactly one call:ended.
func (s *CallService) CleanupFor(ctx context.Context, userID domain.UserID) {
	type ended struct {
		callID domain.CallID
		other  domain.UserID
	}

	s.mu.Lock()
	var dropped []ended
	for id, session := range s.sessions {
		if !session.Involves(userID) {
			continue
		}
		other, _ := session.Other(userID)
		dropped = append(dropped, ended{callID: id, other: other})
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, e := range dropped {
		log.Info().Str("call_id", e.callID.String()).Str("user_id", userID.String()).Msg("Call ended by disconnect")
		s.notifyEnded(e.other, e.callID.String())
	}
}

// Forward relays an opaque signaling payload to the other participant of
// the call. Unknown calls and offline targets drop the payload silently;
// the contents are never inspected.
func (s *CallService) Forward(ctx context.Context, sender port.Client, callID string, kind domain.SignalKind, payload json.RawMessage) {
	s.mu.Lock()
	session, ok := s.sessions[domain.CallID(callID)]
	if !ok {
		s.mu.Unlock()
		return
	}
	target := session.ReceiverID
	if sender.UserID() != session.CallerID {
		target = session.CallerID
	}
	s.mu.Unlock()

	client, ok := s.registry.Lookup(target)
	if !ok {
		return
	}
	if err := client.Send(domain.Event{
		Type: domain.SignalEvent(kind),
		Data: domain.SignalPayload{
			CallID:   callID,
			Payload:  payload,
			SenderID: sender.UserID().String(),
		},
	}); err != nil {
		log.Warn().Err(err).Str("call_id", callID).Str("kind", string(kind)).Msg("Dropped signaling payload")
	}
}

// Session returns a copy of the live session, if any. Used by tests and
// diagnostics.
func (s *CallService) Session(callID string) (domain.CallSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[domain.CallID(callID)]
	if !ok {
		return domain.CallSession{}, false
	}
	return *session, true
}

func (s *CallService) notifyEnded(to domain.UserID, callID string) {
	client, ok := s.registry.Lookup(to)
	if !ok {
		return
	}
	if err := client.Send(domain.Event{
		Type: domain.EventCallEnded,
		Data: domain.CallRefPayload{CallID: callID},
	}); err != nil {
		log.Warn().Err(err).Str("call_id", callID).Msg("Dropped call:ended")
	}
}
